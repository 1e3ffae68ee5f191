package testutil

import (
	"sort"
	"sync"
	"time"
)

// ManualScheduler is a virtual-time scheduler for tests.
//
// Timers fire only when Advance moves virtual time past their due time, on
// the goroutine calling Advance. Timers due at the same instant fire in the
// order they were scheduled. Callbacks run without the scheduler lock held,
// so they may schedule or stop other timers.
//
// ManualScheduler satisfies engine.Scheduler.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    uint64
	timers []*manualTimer
}

type manualTimer struct {
	due     time.Duration
	seq     uint64
	f       func()
	stopped bool
	fired   bool
}

// NewManualScheduler creates a scheduler at virtual time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc schedules f at now+d.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t := &manualTimer{due: s.now + d, seq: s.seq, f: f}
	s.timers = append(s.timers, t)

	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if t.fired || t.stopped {
			return false
		}
		t.stopped = true
		return true
	}
}

// Advance moves virtual time forward by d, firing every timer that becomes
// due, including timers scheduled by callbacks during the advance.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		next := s.nextDue(target)
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		s.now = next.due
		next.fired = true
		f := next.f
		s.mu.Unlock()

		f()
	}
}

// nextDue removes and returns the earliest live timer due at or before
// target. Called with s.mu held.
func (s *ManualScheduler) nextDue(target time.Duration) *manualTimer {
	live := s.timers[:0]
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	s.timers = live

	sort.SliceStable(s.timers, func(i, j int) bool {
		if s.timers[i].due != s.timers[j].due {
			return s.timers[i].due < s.timers[j].due
		}
		return s.timers[i].seq < s.timers[j].seq
	})
	if len(s.timers) == 0 || s.timers[0].due > target {
		return nil
	}
	t := s.timers[0]
	s.timers = s.timers[1:]
	return t
}

// Now returns the current virtual time.
func (s *ManualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Pending returns the number of timers neither fired nor stopped.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// CapturingScheduler records callbacks without ever running them, so a test
// can invoke a callback after its timer was cancelled and check that it is
// ignored.
type CapturingScheduler struct {
	mu        sync.Mutex
	Callbacks []func()
	Delays    []time.Duration
}

// AfterFunc records f and d. The stop function always reports success.
func (s *CapturingScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Callbacks = append(s.Callbacks, f)
	s.Delays = append(s.Delays, d)
	return func() bool { return true }
}

// Last returns the most recently captured callback.
func (s *CapturingScheduler) Last() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Callbacks) == 0 {
		return nil
	}
	return s.Callbacks[len(s.Callbacks)-1]
}
