package engine

import (
	"fmt"

	"github.com/roach88/cartridge/internal/ir"
)

// Replay re-executes a recorded input sequence on a fresh engine and
// returns the steps it produced.
//
// Replay is the same code path as live execution. The only difference is
// the scheduler: timers never fire on their own, and each recorded timeout
// input fires the armed timeout through ExpireTimeout. Because transition
// selection and guard evaluation depend only on the current state and
// context, the same inputs yield the same steps with the same digests.
//
// The first input must be the start input. A timeout input with no armed
// timeout means the journal and the chart disagree and is an error.
func Replay(chart *ir.Statechart, inputs []Input, opts ...Option) ([]Step, error) {
	if len(inputs) == 0 || inputs[0].Kind != InputStart {
		return nil, fmt.Errorf("replay: journal does not begin with a start input")
	}

	j := &MemoryJournal{}
	all := append([]Option{}, opts...)
	all = append(all, WithScheduler(ManualOnly{}), WithJournal(j))

	e, err := New(chart, all...)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	defer e.Stop()

	e.Start()
	for _, in := range inputs[1:] {
		switch in.Kind {
		case InputEvent:
			e.Send(in.Event, in.Payload)
		case InputTimeout:
			if !e.ExpireTimeout() {
				return j.Steps, fmt.Errorf("replay: input seq %d: no timeout armed in state %q", in.Seq, e.Snapshot().CurrentStateID)
			}
		case InputStart:
			return j.Steps, fmt.Errorf("replay: input seq %d: duplicate start", in.Seq)
		default:
			return j.Steps, fmt.Errorf("replay: input seq %d: unknown kind %q", in.Seq, in.Kind)
		}
	}
	return j.Steps, nil
}

// Divergence describes the first step where a replay disagrees with a
// recording.
type Divergence struct {
	Index    int
	Recorded *Step
	Replayed *Step
}

func (d Divergence) String() string {
	switch {
	case d.Recorded == nil && d.Replayed == nil:
		return "no divergence"
	case d.Recorded == nil:
		return fmt.Sprintf("step %d: replay produced extra step to %s", d.Index, d.Replayed.To)
	case d.Replayed == nil:
		return fmt.Sprintf("step %d: replay missing recorded step to %s", d.Index, d.Recorded.To)
	default:
		return fmt.Sprintf("step %d: recorded %s->%s (%s), replayed %s->%s (%s)",
			d.Index,
			d.Recorded.From, d.Recorded.To, short(d.Recorded.Digest),
			d.Replayed.From, d.Replayed.To, short(d.Replayed.Digest))
	}
}

func short(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

// CompareSteps returns the first divergence between recorded and replayed
// steps, comparing cause, endpoints and digest. Seq numbers are not
// compared.
func CompareSteps(recorded, replayed []Step) (Divergence, bool) {
	n := max(len(recorded), len(replayed))
	for i := 0; i < n; i++ {
		var r, p *Step
		if i < len(recorded) {
			r = &recorded[i]
		}
		if i < len(replayed) {
			p = &replayed[i]
		}
		if r == nil || p == nil ||
			r.Cause != p.Cause || r.Event != p.Event ||
			r.From != p.From || r.To != p.To || r.Digest != p.Digest {
			return Divergence{Index: i, Recorded: r, Replayed: p}, true
		}
	}
	return Divergence{}, false
}
