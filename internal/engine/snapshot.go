package engine

import (
	"slices"
	"sync/atomic"

	"github.com/roach88/cartridge/internal/ir"
)

// StepCause says what produced a step.
type StepCause string

const (
	CauseStart   StepCause = "start"
	CauseEvent   StepCause = "event"
	CauseTimeout StepCause = "timeout"
	CauseRaise   StepCause = "raise"
)

// EventTimeout is the event name actions see when they run for a timeout.
const EventTimeout = "$timeout"

// Step is one accepted transition, or the initial entry for CauseStart.
type Step struct {
	Seq    int64     `json:"seq"`
	Cause  StepCause `json:"cause"`
	Event  string    `json:"event,omitempty"`
	From   string    `json:"from,omitempty"`
	To     string    `json:"to"`
	Digest string    `json:"digest"`
}

// Snapshot is an immutable copy of an engine's observable state.
type Snapshot struct {
	Entity         string         `json:"entity,omitempty"`
	Chart          string         `json:"chart"`
	CurrentStateID string         `json:"currentStateId"`
	Context        map[string]any `json:"context"`
	ActiveEffects  []string       `json:"activeEffects"`
	History        []string       `json:"history"`
	Started        bool           `json:"started"`
	Done           bool           `json:"done"`
	LastStep       *Step          `json:"lastStep,omitempty"`
}

// Digest hashes the current state id and context.
func (s Snapshot) Digest() (string, error) {
	return ir.SnapshotDigest(s.CurrentStateID, s.Context)
}

// Listener receives snapshots. It runs with the engine locked and must not
// call Send.
type Listener func(Snapshot)

type subscription struct {
	fn      Listener
	removed atomic.Bool
}

// snapshot builds a deep copy of the current state. Called with e.mu held.
func (e *Engine) snapshot() Snapshot {
	s := Snapshot{
		Entity:         e.id,
		Chart:          e.chart.ID,
		CurrentStateID: e.current,
		Context:        ir.CloneContext(e.ctx),
		ActiveEffects:  []string{},
		History:        slices.Clone(e.history),
		Started:        e.started,
		Done:           e.done,
	}
	if e.timer != nil {
		s.ActiveEffects = append(s.ActiveEffects, e.timer.effectID())
	}
	if e.lastStep != nil {
		step := *e.lastStep
		s.LastStep = &step
	}
	return s
}

// publish stores a fresh snapshot for lock-free readers and returns it.
// Called with e.mu held.
func (e *Engine) publish() Snapshot {
	s := e.snapshot()
	e.published.Store(&s)
	return s
}

// notify delivers s to every live subscription in registration order and
// compacts out unsubscribed ones. Called with e.mu held.
func (e *Engine) notify(s Snapshot) {
	live := e.subs[:0]
	for _, sub := range e.subs {
		if sub.removed.Load() {
			continue
		}
		live = append(live, sub)
	}
	clear(e.subs[len(live):])
	e.subs = live

	for _, sub := range e.subs {
		if sub.removed.Load() {
			continue
		}
		sub.fn(s.clone())
	}
}

// Subscribe registers l. It is called once immediately with the current
// snapshot and then after every accepted transition, after any listeners
// registered earlier. The returned function unsubscribes; it is safe to call
// from inside a listener and more than once.
func (e *Engine) Subscribe(l Listener) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sub := &subscription{fn: l}
	e.subs = append(e.subs, sub)

	l(e.snapshot())

	return func() { sub.removed.Store(true) }
}

// Snapshot returns the most recently published snapshot. It does not take
// the engine mutex, so listeners and executors may call it.
func (e *Engine) Snapshot() Snapshot {
	return e.published.Load().clone()
}

// clone deep-copies s so each reader owns its maps and slices.
func (s Snapshot) clone() Snapshot {
	out := s
	out.Context = ir.CloneContext(s.Context)
	out.History = slices.Clone(s.History)
	out.ActiveEffects = slices.Clone(s.ActiveEffects)
	if s.LastStep != nil {
		step := *s.LastStep
		out.LastStep = &step
	}
	return out
}
