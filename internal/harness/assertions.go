package harness

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/cartridge/internal/engine"
	"github.com/roach88/cartridge/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the step trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nSteps:\n")
		for _, ev := range e.Trace {
			if ev.Type != TraceStep {
				continue
			}
			if ev.From == "" {
				fmt.Fprintf(&buf, "  [%d] %s -> %s\n", ev.Seq, ev.Kind, ev.To)
			} else {
				fmt.Fprintf(&buf, "  [%d] %s %s: %s -> %s\n", ev.Seq, ev.Kind, ev.Event, ev.From, ev.To)
			}
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	final := result.Final
	if final == nil {
		final = &engine.Snapshot{}
	}

	switch a.Type {
	case AssertFinalState:
		if final.CurrentStateID != a.State {
			return &AssertionError{Type: a.Type, Expected: a.State, Actual: final.CurrentStateID, Trace: result.Trace}
		}
	case AssertContext:
		if err := matchContext(final.Context, a.Expect); err != nil {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%v", a.Expect), Actual: err.Error(), Trace: result.Trace}
		}
	case AssertHistory:
		if !slices.Equal(final.History, a.States) {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%v", a.States), Actual: fmt.Sprintf("%v", final.History)}
		}
	case AssertDone:
		if final.Done != a.Done {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("done=%t", a.Done), Actual: fmt.Sprintf("done=%t in state %q", final.Done, final.CurrentStateID)}
		}
	case AssertTraceContains:
		return assertTraceContains(result.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// assertTraceContains checks that a transition on the event was taken.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	if slices.ContainsFunc(trace, func(ev TraceEvent) bool {
		return ev.Type == TraceStep && ev.Event == a.Event
	}) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("transition on %s", a.Event),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that transitions on the events occur in the given
// order. Intervening transitions are allowed.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(a.Events) && ev.Type == TraceStep && ev.Event == a.Events[next] {
			next++
		}
	}
	if next == len(a.Events) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("transitions in order: %v", a.Events),
		Actual:   fmt.Sprintf("no transition on %s after %v", a.Events[next], a.Events[:next]),
		Trace:    trace,
	}
}

// assertTraceCount checks that exactly Count transitions on the event were
// taken.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Type == TraceStep && ev.Event == a.Event {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d transitions on %s", a.Count, a.Event),
			Actual:   fmt.Sprintf("%d transitions", count),
			Trace:    trace,
		}
	}
	return nil
}

// matchContext checks that actual contains every key of expected with an
// equal value. Values compare by canonical JSON, so 1 and 1.0 are equal.
func matchContext(actual, expected map[string]any) error {
	for _, key := range ir.SortedKeys(expected) {
		got, ok := actual[key]
		if !ok {
			return fmt.Errorf("context has no variable %q", key)
		}
		if !valuesEqual(expected[key], got) {
			return fmt.Errorf("context %q = %v, expected %v", key, got, expected[key])
		}
	}
	return nil
}

func valuesEqual(a, b any) bool {
	ca, errA := ir.MarshalCanonical(a)
	cb, errB := ir.MarshalCanonical(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}
