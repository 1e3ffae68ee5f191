package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Built-in action kinds. Hosts may register executors for other kinds.
const (
	ActionAssign    = "assign"
	ActionIncrement = "increment"
	ActionToggle    = "toggle"
	ActionLog       = "log"
	ActionRaise     = "raise"
)

// Action is a side-effect command handed to the executor registered for its
// Kind. Fields other than Kind are interpreted by that executor.
type Action struct {
	Kind    string         `json:"kind"`
	Var     string         `json:"var,omitempty"`
	Value   any            `json:"value,omitempty"`
	Event   string         `json:"event,omitempty"`
	Message string         `json:"message,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
}

// ValidationError represents a validation error with field path and message.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the fields required by the built-in kinds.
// Unknown kinds pass; their executors own their own parameters.
func (a *Action) Validate() []ValidationError {
	var errs []ValidationError

	if a.Kind == "" {
		errs = append(errs, ValidationError{Field: "kind", Message: "action kind is required"})
		return errs
	}

	switch a.Kind {
	case ActionAssign, ActionIncrement, ActionToggle:
		if a.Var == "" {
			errs = append(errs, ValidationError{
				Field:   "var",
				Message: fmt.Sprintf("%s action requires a target variable", a.Kind),
			})
		}
	case ActionRaise:
		if a.Event == "" {
			errs = append(errs, ValidationError{
				Field:   "event",
				Message: "raise action requires an event name",
			})
		}
	}

	return errs
}

// String renders the action compactly for logs and traces.
func (a Action) String() string {
	switch {
	case a.Var != "" && a.Value != nil:
		return fmt.Sprintf("%s(%s=%v)", a.Kind, a.Var, a.Value)
	case a.Var != "":
		return fmt.Sprintf("%s(%s)", a.Kind, a.Var)
	case a.Event != "":
		return fmt.Sprintf("%s(%s)", a.Kind, a.Event)
	case a.Message != "":
		return fmt.Sprintf("%s(%q)", a.Kind, a.Message)
	}
	return a.Kind
}

// UnmarshalJSON accepts either an action object or a legacy command string
// of the form "KIND:rest". The kind is lowercased; the remainder becomes the
// event for raise and the message otherwise.
func (a *Action) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var cmd string
		if err := json.Unmarshal(trimmed, &cmd); err != nil {
			return err
		}
		*a = ParseCommand(cmd)
		return nil
	}

	type plain Action
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*a = Action(p)
	return nil
}

// ParseCommand converts a "KIND:rest" command string into an Action.
// A string without a colon is a bare kind.
func ParseCommand(cmd string) Action {
	kind, rest, found := strings.Cut(cmd, ":")
	act := Action{Kind: strings.ToLower(strings.TrimSpace(kind))}
	if !found {
		return act
	}
	rest = strings.TrimSpace(rest)
	if act.Kind == ActionRaise {
		act.Event = rest
	} else {
		act.Message = rest
	}
	return act
}
