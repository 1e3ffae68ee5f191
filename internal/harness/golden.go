package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/cartridge/internal/ir"
)

// TraceSnapshot is what a golden file records for a scenario: the trace
// and the final observable state. Digests are left out; replay already
// checks them.
type TraceSnapshot struct {
	ScenarioName string        `json:"scenario_name"`
	Chart        string        `json:"chart"`
	Trace        []TraceEvent  `json:"trace"`
	Final        FinalSnapshot `json:"final"`
}

// FinalSnapshot is the part of engine.Snapshot a golden file pins.
type FinalSnapshot struct {
	State   string         `json:"state"`
	Context map[string]any `json:"context"`
	History []string       `json:"history"`
	Done    bool           `json:"done"`
}

// NewTraceSnapshot builds the golden snapshot of a result.
func NewTraceSnapshot(name, chart string, result *Result) TraceSnapshot {
	snap := TraceSnapshot{ScenarioName: name, Chart: chart, Trace: result.Trace}
	if result.Final != nil {
		snap.Final = FinalSnapshot{
			State:   result.Final.CurrentStateID,
			Context: result.Final.Context,
			History: result.Final.History,
			Done:    result.Final.Done,
		}
	}
	return snap
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if the scenario cannot run. Trace mismatches fail t via
// goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, scenario.Chart, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name, chart string, result *Result) error {
	t.Helper()

	traceJSON, err := ir.MarshalCanonical(NewTraceSnapshot(name, chart, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, traceJSON)
	return nil
}
