package engine

import "sync/atomic"

// Clock is a monotonic logical clock for inputs and steps.
//
// Every recorded input and every accepted transition is stamped with a
// strictly increasing seq from this clock. Wall-clock time never orders
// anything, so a replay of the same inputs produces the same seqs.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// although the engine only advances it while holding its mutex.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
// Used to resume numbering after a journal's last recorded seq.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
