package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer bounds the number of raised events drained for one input.
//
// Actions may raise events, and the transitions those events take may raise
// more. A chart whose states raise each other forever would otherwise never
// return from Send. Each input gets a fresh enforcer; when it trips, the
// remaining queued events are discarded and the engine stays in whatever
// state it reached.
type QuotaEnforcer struct {
	maxSteps int
	current  int
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
//
// Typical default: 1000 (configurable via WithMaxSteps)
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check increments the step counter and validates against the limit.
// Returns StepsExceededError if the quota is exceeded.
func (q *QuotaEnforcer) Check(entity string) error {
	q.current++
	if q.current > q.maxSteps {
		return &StepsExceededError{
			Entity: entity,
			Steps:  q.current,
			Limit:  q.maxSteps,
		}
	}
	return nil
}

// Reset resets the step counter to 0.
func (q *QuotaEnforcer) Reset() {
	q.current = 0
}

// Current returns the current step count.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the maximum steps limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError is reported when draining raised events exceeds the
// max steps quota.
type StepsExceededError struct {
	Entity string
	Steps  int
	Limit  int
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("entity %s exceeded max steps quota: %d steps > %d limit",
		e.Entity, e.Steps, e.Limit)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
