package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents a recoverable problem detected while processing
// an input. The engine logs these and carries on; they are never returned
// from Send.
//
// Runtime errors include:
//   - Unknown action: no executor registered for an action kind
//   - Action failed: an executor returned an error
//   - Quota exceeded: raised events kept cascading past the limit
//   - Journal failed: the journal rejected a record
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Chart identifies the statechart.
	Chart string

	// State is the state being processed when the error occurred.
	State string

	// Event is the triggering event, if any.
	Event string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownAction indicates no executor is registered for a kind.
	ErrCodeUnknownAction RuntimeErrorCode = "UNKNOWN_ACTION"

	// ErrCodeActionFailed indicates an executor returned an error.
	ErrCodeActionFailed RuntimeErrorCode = "ACTION_FAILED"

	// ErrCodeQuotaExceeded indicates raised events exceeded max steps.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeJournalFailed indicates the journal rejected a record.
	ErrCodeJournalFailed RuntimeErrorCode = "JOURNAL_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.State != "" && e.Event != "" {
		msg = fmt.Sprintf("%s (state=%s, event=%s)", msg, e.State, e.Event)
	} else if e.State != "" {
		msg = fmt.Sprintf("%s (state=%s)", msg, e.State)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Matches both RuntimeError with ErrCodeQuotaExceeded and StepsExceededError.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) && re.Code == ErrCodeQuotaExceeded {
		return true
	}
	var se *StepsExceededError
	return errors.As(err, &se)
}

// IsUnknownActionError returns true if the error reports a missing executor.
func IsUnknownActionError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnknownAction
	}
	return false
}

// NewQuotaError wraps a StepsExceededError for logging.
func NewQuotaError(chart, state string, cause *StepsExceededError) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQuotaExceeded,
		Message: fmt.Sprintf("raised events exceeded max steps (%d > %d)", cause.Steps, cause.Limit),
		Chart:   chart,
		State:   state,
		Err:     cause,
	}
}

// ErrUnknownState is wrapped by New when the chart references a state it
// does not define.
var ErrUnknownState = errors.New("unknown state")
