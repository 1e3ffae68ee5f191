package engine

import (
	"fmt"
	"time"
)

// Scheduler runs f once after d. The returned stop function cancels the
// call and reports whether it was still pending.
//
// The engine never trusts stop to win a race with an in-flight callback;
// every callback re-checks its token under the engine mutex.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

// RealScheduler schedules callbacks on wall-clock time via time.AfterFunc.
type RealScheduler struct{}

// AfterFunc implements Scheduler.
func (RealScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// ManualOnly is a Scheduler whose timers never fire on their own. Replay
// and step-by-step tooling use it and fire timeouts with ExpireTimeout.
type ManualOnly struct{}

// AfterFunc implements Scheduler.
func (ManualOnly) AfterFunc(time.Duration, func()) func() bool {
	return func() bool { return true }
}

// armedTimer is the one outstanding timeout of an engine.
type armedTimer struct {
	token uint64
	state string
	delay time.Duration
	stop  func() bool
}

// effectID names the timer in snapshots.
func (t *armedTimer) effectID() string {
	return fmt.Sprintf("timeout:%s#%d", t.state, t.token)
}

// armTimer schedules the timeout of the state just entered, if it has one.
// Called with e.mu held.
func (e *Engine) armTimer(stateID string) {
	st := e.states[stateID]
	if st == nil || st.Timeout == nil {
		return
	}

	e.timerSeq++
	token := e.timerSeq
	delay := st.Timeout.Delay()
	t := &armedTimer{token: token, state: stateID, delay: delay}
	e.timer = t
	t.stop = e.scheduler.AfterFunc(delay, func() { e.fireTimeout(token) })

	e.logger.Debug("timeout armed",
		"state", stateID,
		"delay_ms", st.Timeout.DelayMs,
		"token", token,
	)
}

// cancelTimer cancels the outstanding timeout. Called with e.mu held.
func (e *Engine) cancelTimer() {
	if e.timer == nil {
		return
	}
	t := e.timer
	e.timer = nil
	if t.stop != nil && !t.stop() {
		// Already fired; the callback will find its token stale.
		e.logger.Debug("timeout cancelled after firing", "state", t.state, "token", t.token)
		return
	}
	e.logger.Debug("timeout cancelled", "state", t.state, "token", t.token)
}

// fireTimeout is the scheduler callback for token.
func (e *Engine) fireTimeout(token uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expire(token)
}

// expire runs the timeout armed under token. A token that is no longer the
// armed one, or whose state is no longer current, is ignored. Returns
// whether the timeout ran. Called with e.mu held.
func (e *Engine) expire(token uint64) bool {
	t := e.timer
	if e.stopped || t == nil || t.token != token || t.state != e.current {
		e.logger.Debug("stale timeout ignored", "token", token, "state", e.current)
		return false
	}
	e.timer = nil

	src := e.currentState()
	tm := src.Timeout

	holds := e.evaluate(tm.GuardTree)
	target := tm.OnFalseTarget
	if holds {
		target = tm.OnTrueTarget
	}

	e.recordInput(Input{Kind: InputTimeout, State: src.ID})
	e.logger.Debug("timeout fired",
		"state", src.ID,
		"guard", holds,
		"target", target,
	)

	if tm.OnTimeoutAction != nil {
		e.runAction(*tm.OnTimeoutAction, src.ID, EventTimeout, nil)
	}
	e.enter(src, target, EventTimeout, CauseTimeout)
	e.drain()
	return true
}

// ExpireTimeout fires the armed timeout immediately, as if its delay had
// elapsed. Returns false if no timeout is armed. The scheduled callback, if
// it runs later, is stale and does nothing.
func (e *Engine) ExpireTimeout() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.mustBeStarted("ExpireTimeout")
	if e.timer == nil {
		return false
	}
	t := e.timer
	if t.stop != nil {
		t.stop()
	}
	return e.expire(t.token)
}
