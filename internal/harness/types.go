package harness

import (
	"github.com/roach88/cartridge/internal/engine"
)

// Trace event types.
const (
	TraceInput = "input"
	TraceStep  = "step"
)

// TraceEvent is one journal entry: an input the engine received or a step
// it took, in seq order.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Type    string `json:"type"`
	Kind    string `json:"kind"` // input kind or step cause
	Event   string `json:"event,omitempty"`
	Payload any    `json:"payload,omitempty"`
	State   string `json:"state,omitempty"` // inputs: state on arrival
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held and the
	// replay reproduced every step.
	Pass bool `json:"pass"`

	Trace  []TraceEvent     `json:"trace"`
	Errors []string         `json:"errors,omitempty"`
	Final  *engine.Snapshot `json:"final,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddInputTrace adds an input to the trace.
func (r *Result) AddInputTrace(in engine.Input) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:     in.Seq,
		Type:    TraceInput,
		Kind:    string(in.Kind),
		Event:   in.Event,
		Payload: in.Payload,
		State:   in.State,
	})
}

// AddStepTrace adds a step to the trace.
func (r *Result) AddStepTrace(step engine.Step) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:   step.Seq,
		Type:  TraceStep,
		Kind:  string(step.Cause),
		Event: step.Event,
		From:  step.From,
		To:    step.To,
	})
}

// Steps returns the step entries of the trace.
func (r *Result) Steps() []TraceEvent {
	var steps []TraceEvent
	for _, ev := range r.Trace {
		if ev.Type == TraceStep {
			steps = append(steps, ev)
		}
	}
	return steps
}
