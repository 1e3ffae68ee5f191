package engine

// InputKind distinguishes recorded inputs.
type InputKind string

const (
	InputStart   InputKind = "start"
	InputEvent   InputKind = "event"
	InputTimeout InputKind = "timeout"
)

// Input is an external stimulus: the start call, a sent event (accepted or
// not), or a timeout firing. Raised events are consequences of inputs and
// are not recorded as inputs themselves.
type Input struct {
	Seq     int64     `json:"seq"`
	Kind    InputKind `json:"kind"`
	Event   string    `json:"event,omitempty"`
	Payload any       `json:"payload,omitempty"`
	State   string    `json:"state"` // current state when the input arrived
}

// Journal receives every input and every step, in seq order.
//
// The engine calls it with its mutex held. Errors are logged and never stop
// execution.
type Journal interface {
	RecordInput(in Input) error
	RecordStep(step Step) error
}

// MemoryJournal keeps inputs and steps in memory. Used by Replay and tests.
type MemoryJournal struct {
	Inputs []Input
	Steps  []Step
}

// RecordInput implements Journal.
func (j *MemoryJournal) RecordInput(in Input) error {
	j.Inputs = append(j.Inputs, in)
	return nil
}

// RecordStep implements Journal.
func (j *MemoryJournal) RecordStep(step Step) error {
	j.Steps = append(j.Steps, step)
	return nil
}
