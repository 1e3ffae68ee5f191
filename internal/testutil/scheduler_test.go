package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualScheduler_FiresInDueOrder(t *testing.T) {
	s := NewManualScheduler()
	var fired []string

	s.AfterFunc(30*time.Millisecond, func() { fired = append(fired, "c") })
	s.AfterFunc(10*time.Millisecond, func() { fired = append(fired, "a") })
	s.AfterFunc(10*time.Millisecond, func() { fired = append(fired, "b") })

	s.Advance(20 * time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, 20*time.Millisecond, s.Now())
	assert.Equal(t, 1, s.Pending())

	s.Advance(10 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, fired)
	assert.Equal(t, 0, s.Pending())
}

func TestManualScheduler_Stop(t *testing.T) {
	s := NewManualScheduler()
	fired := false
	stop := s.AfterFunc(10*time.Millisecond, func() { fired = true })

	assert.True(t, stop(), "first stop cancels a pending timer")
	assert.False(t, stop(), "second stop reports nothing to cancel")

	s.Advance(time.Second)
	assert.False(t, fired)
}

func TestManualScheduler_StopAfterFire(t *testing.T) {
	s := NewManualScheduler()
	stop := s.AfterFunc(time.Millisecond, func() {})
	s.Advance(time.Millisecond)
	assert.False(t, stop())
}

func TestManualScheduler_CallbackSchedulesWithinAdvance(t *testing.T) {
	s := NewManualScheduler()
	var at []time.Duration

	s.AfterFunc(10*time.Millisecond, func() {
		at = append(at, s.Now())
		s.AfterFunc(10*time.Millisecond, func() { at = append(at, s.Now()) })
	})

	s.Advance(25 * time.Millisecond)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, at)
}

func TestCapturingScheduler(t *testing.T) {
	s := &CapturingScheduler{}
	assert.Nil(t, s.Last())

	ran := 0
	s.AfterFunc(5*time.Millisecond, func() { ran++ })
	assert.Equal(t, []time.Duration{5 * time.Millisecond}, s.Delays)
	assert.Equal(t, 0, ran, "captured callbacks never run on their own")

	s.Last()()
	assert.Equal(t, 1, ran)
}
