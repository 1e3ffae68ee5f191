package engine

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/roach88/cartridge/internal/ir"
)

// ActionContext is what an executor sees while an action runs.
//
// Context is the engine's live context map; executors mutate it directly.
// Payload is the payload of the triggering event, untouched.
type ActionContext struct {
	Context map[string]any
	Chart   string
	State   string
	Event   string
	Payload any
	Logger  *slog.Logger

	raise func(event string, payload any)
}

// Raise queues event for processing after the current transition has
// finished and notified its listeners.
func (ac *ActionContext) Raise(event string, payload any) {
	if ac.raise != nil {
		ac.raise(event, payload)
	}
}

// Executor runs one kind of action.
type Executor interface {
	Execute(ac *ActionContext, action ir.Action) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ac *ActionContext, action ir.Action) error

// Execute implements Executor.
func (f ExecutorFunc) Execute(ac *ActionContext, action ir.Action) error {
	return f(ac, action)
}

// Executors maps action kinds to executors.
type Executors map[string]Executor

// DefaultExecutors returns a fresh map with the built-in kinds:
// assign, increment, toggle, log and raise.
func DefaultExecutors() Executors {
	return Executors{
		ir.ActionAssign:    ExecutorFunc(executeAssign),
		ir.ActionIncrement: ExecutorFunc(executeIncrement),
		ir.ActionToggle:    ExecutorFunc(executeToggle),
		ir.ActionLog:       ExecutorFunc(executeLog),
		ir.ActionRaise:     ExecutorFunc(executeRaise),
	}
}

// executeAssign sets Var to Value. With params {"from": "payload"} the
// value comes from the event payload instead: the payload's field named Var
// when the payload is an object, otherwise the whole payload.
func executeAssign(ac *ActionContext, action ir.Action) error {
	if from, _ := action.Params["from"].(string); from == "payload" {
		if obj, ok := ac.Payload.(map[string]any); ok {
			v, found := obj[action.Var]
			if !found {
				return fmt.Errorf("assign %s: payload has no field %q", action.Var, action.Var)
			}
			ac.Context[action.Var] = ir.CloneValue(v)
			return nil
		}
		ac.Context[action.Var] = ir.CloneValue(ac.Payload)
		return nil
	}
	ac.Context[action.Var] = ir.CloneValue(action.Value)
	return nil
}

// executeIncrement adds Value (default 1) to the numeric variable Var.
// A missing variable counts as 0. Numeric strings are accepted for Value.
func executeIncrement(ac *ActionContext, action ir.Action) error {
	delta := 1.0
	if action.Value != nil {
		d, ok := numeric(action.Value)
		if !ok {
			return fmt.Errorf("increment %s: non-numeric amount %v", action.Var, action.Value)
		}
		delta = d
	}

	current := 0.0
	if v, ok := ac.Context[action.Var]; ok && v != nil {
		n, ok := numeric(v)
		if !ok {
			return fmt.Errorf("increment %s: variable holds %T, not a number", action.Var, v)
		}
		current = n
	}

	ac.Context[action.Var] = current + delta
	return nil
}

// executeToggle flips the boolean variable Var. A missing variable becomes
// true.
func executeToggle(ac *ActionContext, action ir.Action) error {
	v, ok := ac.Context[action.Var]
	if !ok || v == nil {
		ac.Context[action.Var] = true
		return nil
	}
	b, ok := v.(bool)
	if !ok {
		return fmt.Errorf("toggle %s: variable holds %T, not a boolean", action.Var, v)
	}
	ac.Context[action.Var] = !b
	return nil
}

func executeLog(ac *ActionContext, action ir.Action) error {
	ac.Logger.Info("action log",
		"message", action.Message,
		"state", ac.State,
		"event", ac.Event,
	)
	return nil
}

// executeRaise queues Event with Value as its payload.
func executeRaise(ac *ActionContext, action ir.Action) error {
	event := action.Event
	if event == "" {
		event = action.Message
	}
	if event == "" {
		return fmt.Errorf("raise: no event name")
	}
	ac.Raise(event, ir.CloneValue(action.Value))
	return nil
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// runActions runs actions in declaration order. Called with e.mu held.
func (e *Engine) runActions(actions []ir.Action, stateID, event string, payload any) {
	for _, act := range actions {
		e.runAction(act, stateID, event, payload)
	}
}

// runAction dispatches one action to its executor. Unknown kinds and
// executor failures are logged and skipped. Called with e.mu held.
func (e *Engine) runAction(act ir.Action, stateID, event string, payload any) {
	exec, ok := e.executors[act.Kind]
	if !ok {
		err := &RuntimeError{
			Code:    ErrCodeUnknownAction,
			Message: fmt.Sprintf("no executor for action kind %q", act.Kind),
			Chart:   e.chart.ID,
			State:   stateID,
			Event:   event,
		}
		e.logger.Warn("action skipped", "error", err, "action", act.String())
		return
	}

	ac := &ActionContext{
		Context: e.ctx,
		Chart:   e.chart.ID,
		State:   stateID,
		Event:   event,
		Payload: payload,
		Logger:  e.logger,
		raise: func(name string, p any) {
			e.pending.Enqueue(raisedEvent{Event: name, Payload: p, From: stateID})
		},
	}
	if err := exec.Execute(ac, act); err != nil {
		rerr := &RuntimeError{
			Code:    ErrCodeActionFailed,
			Message: fmt.Sprintf("action %s failed", act.String()),
			Chart:   e.chart.ID,
			State:   stateID,
			Event:   event,
			Err:     err,
		}
		e.logger.Error("action failed", "error", rerr)
		return
	}
	e.logger.Debug("action executed", "action", act.String(), "state", stateID)
}
