package ir

import (
	"math"
	"time"
)

// Cartridge is a named bundle of statecharts.
type Cartridge struct {
	ID          string       `json:"id"`
	Label       string       `json:"label,omitempty"`
	Statecharts []Statechart `json:"statecharts"`
}

// Statechart returns the statechart with the given id, or nil.
func (c *Cartridge) Statechart(id string) *Statechart {
	for i := range c.Statecharts {
		if c.Statecharts[i].ID == id {
			return &c.Statecharts[i]
		}
	}
	return nil
}

// DisplayLabel returns Label, falling back to ID.
func (c *Cartridge) DisplayLabel() string {
	if c.Label != "" {
		return c.Label
	}
	return c.ID
}

// Statechart is a flat state graph with a context schema.
type Statechart struct {
	ID      string             `json:"id"`
	Initial string             `json:"initial"`
	Context map[string]VarSpec `json:"context,omitempty"`
	States  []State            `json:"states"`
}

// State returns the state with the given id, or nil.
func (s *Statechart) State(id string) *State {
	for i := range s.States {
		if s.States[i].ID == id {
			return &s.States[i]
		}
	}
	return nil
}

// Variables returns the set of context variable names declared by the
// schema.
func (s *Statechart) Variables() map[string]bool {
	vars := make(map[string]bool, len(s.Context))
	for name := range s.Context {
		vars[name] = true
	}
	return vars
}

// InitialContext builds a fresh context from the schema defaults.
// Structured defaults are deep-copied so engines never share them.
func (s *Statechart) InitialContext() map[string]any {
	ctx := make(map[string]any, len(s.Context))
	for name, spec := range s.Context {
		ctx[name] = CloneValue(spec.Default)
	}
	return ctx
}

// VarSpec declares one context variable.
type VarSpec struct {
	Type    string `json:"type"`
	Default any    `json:"default"`
}

// ValidVarTypes defines the allowed context variable types.
var ValidVarTypes = map[string]bool{
	"string":  true,
	"number":  true,
	"boolean": true,
	"object":  true,
	"array":   true,
}

// StateKind classifies a state.
type StateKind string

const (
	KindInitial  StateKind = "initial"
	KindState    StateKind = "state"
	KindCompound StateKind = "compound"
	KindFinal    StateKind = "final"
	KindHistory  StateKind = "history"
)

// ValidStateKinds defines the allowed state kinds. An empty kind means
// KindState.
var ValidStateKinds = map[StateKind]bool{
	"":           true,
	KindInitial:  true,
	KindState:    true,
	KindCompound: true,
	KindFinal:    true,
	KindHistory:  true,
}

// State is a node in the statechart.
type State struct {
	ID          string       `json:"id"`
	Kind        StateKind    `json:"kind,omitempty"`
	OnEntry     []Action     `json:"on_entry,omitempty"`
	OnExit      []Action     `json:"on_exit,omitempty"`
	Transitions []Transition `json:"transitions,omitempty"`
	Timeout     *Timeout     `json:"timeout,omitempty"`
}

// IsFinal reports whether entering this state ends the run.
func (s *State) IsFinal() bool {
	return s.Kind == KindFinal
}

// Transition is an event-triggered edge. Transitions of a state are matched
// in authoring order.
type Transition struct {
	Event   string     `json:"event"`
	Target  string     `json:"target"`
	Guard   *GuardTree `json:"guard,omitempty"`
	Actions []Action   `json:"actions,omitempty"`
}

// Timeout is a delayed, guard-branching transition out of a state.
type Timeout struct {
	DelayMs         int64      `json:"delayMs"`
	GuardTree       *GuardTree `json:"guardTree,omitempty"`
	OnTrueTarget    string     `json:"onTrueTarget"`
	OnFalseTarget   string     `json:"onFalseTarget"`
	OnTimeoutAction *Action    `json:"onTimeoutAction,omitempty"`
}

// MaxDelayMs is the largest delay, in milliseconds, a time.Duration holds.
const MaxDelayMs = math.MaxInt64 / int64(time.Millisecond)

// Delay returns DelayMs as a Duration. Negative delays become zero and
// delays above MaxDelayMs saturate instead of overflowing.
func (t *Timeout) Delay() time.Duration {
	switch {
	case t.DelayMs <= 0:
		return 0
	case t.DelayMs > MaxDelayMs:
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(t.DelayMs) * time.Millisecond
}

// CloneValue deep-copies a JSON-shaped value.
func CloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = CloneValue(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = CloneValue(elem)
		}
		return out
	default:
		return val
	}
}

// CloneContext deep-copies a runtime context.
func CloneContext(ctx map[string]any) map[string]any {
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		out[k] = CloneValue(v)
	}
	return out
}
