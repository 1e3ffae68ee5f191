package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/cartridge/internal/compiler"
	"github.com/roach88/cartridge/internal/engine"
	"github.com/roach88/cartridge/internal/ir"
	"github.com/roach88/cartridge/internal/store"
	"github.com/roach88/cartridge/internal/testutil"
)

// sessionID is the fixed journal session for scenario runs.
const sessionID = "scenario"

// Harness holds one scenario run's collaborators.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	sched  *testutil.ManualScheduler
	cart   *ir.Cartridge
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, with a
// manual scheduler so timeouts fire only on advance steps.
//
// Execution flow:
//  1. Load and validate the cartridge
//  2. Start an engine on the selected chart, journaling into the store
//  3. Execute flow steps, checking each expect clause
//  4. Evaluate assertions against the trace and final snapshot
//  5. Replay the journal and compare step digests
//
// A returned error means the scenario could not run; failed expectations
// are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with engine logs sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	cart, chart, err := loadChart(scenario.Cartridge, scenario.Chart)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	sess, err := store.NewSession(engine.NewFixedGenerator(sessionID), cart, chart.ID, sessionID, scenario.Context)
	if err != nil {
		return nil, err
	}
	if err := st.CreateSession(ctx, sess); err != nil {
		return nil, err
	}

	sched := testutil.NewManualScheduler()
	opts := []engine.Option{
		engine.WithID(sessionID),
		engine.WithLogger(logger),
		engine.WithScheduler(sched),
		engine.WithJournal(st.Recorder(ctx, sessionID)),
		engine.WithContext(scenario.Context),
	}
	if scenario.MaxSteps > 0 {
		opts = append(opts, engine.WithMaxSteps(scenario.MaxSteps))
	}
	eng, err := engine.New(chart, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	defer eng.Stop()

	h := &Harness{store: st, engine: eng, sched: sched, cart: cart, logger: logger}

	result := NewResult()
	eng.Start()
	if err := h.executeFlow(scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	final := eng.Snapshot()
	result.Final = &final
	if err := h.collectTrace(ctx, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	if err := h.verifyReplay(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// executeFlow runs each step and checks its expect clause.
func (h *Harness) executeFlow(flow []FlowStep, result *Result) error {
	for i, step := range flow {
		accepted := false
		if step.Send != "" {
			accepted = h.engine.Send(step.Send, step.Payload)
		} else {
			d, err := step.Duration()
			if err != nil {
				return fmt.Errorf("flow step %d: %w", i, err)
			}
			h.sched.Advance(d)
		}

		if step.Expect == nil {
			continue
		}
		snap := h.engine.Snapshot()
		label := stepLabel(i, step)
		if exp := step.Expect.Accepted; exp != nil && step.Send != "" && *exp != accepted {
			result.AddError(fmt.Sprintf("%s: expected accepted=%t, got %t", label, *exp, accepted))
		}
		if exp := step.Expect.State; exp != "" && exp != snap.CurrentStateID {
			result.AddError(fmt.Sprintf("%s: expected state %q, got %q", label, exp, snap.CurrentStateID))
		}
		if err := matchContext(snap.Context, step.Expect.Context); err != nil {
			result.AddError(fmt.Sprintf("%s: %v", label, err))
		}
	}
	return nil
}

func stepLabel(i int, step FlowStep) string {
	if step.Send != "" {
		return fmt.Sprintf("flow[%d] send %s", i, step.Send)
	}
	return fmt.Sprintf("flow[%d] advance %s", i, step.Advance)
}

// collectTrace reads the journal back and merges inputs and steps by seq.
func (h *Harness) collectTrace(ctx context.Context, result *Result) error {
	inputs, err := h.store.ReadInputs(ctx, sessionID)
	if err != nil {
		return err
	}
	steps, err := h.store.ReadSteps(ctx, sessionID)
	if err != nil {
		return err
	}

	i, j := 0, 0
	for i < len(inputs) || j < len(steps) {
		if j >= len(steps) || (i < len(inputs) && inputs[i].Seq < steps[j].Seq) {
			result.AddInputTrace(inputs[i])
			i++
			continue
		}
		result.AddStepTrace(steps[j])
		j++
	}
	return nil
}

// verifyReplay re-executes the journal and fails the result on any
// divergence.
func (h *Harness) verifyReplay(ctx context.Context, result *Result) error {
	rr, err := store.Replay(ctx, h.store, sessionID, h.cart, false, h.logger)
	if err != nil {
		result.AddError(fmt.Sprintf("replay failed: %v", err))
		return nil
	}
	if !rr.Identical {
		result.AddError(fmt.Sprintf("replay diverged: %s", rr.Divergence))
	}
	return nil
}

// loadChart loads the cartridges at path, rejects them if validation finds
// errors, and selects the chart ref names.
func loadChart(path, ref string) (*ir.Cartridge, *ir.Statechart, error) {
	loaded, errs := compiler.Load(path, compiler.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, nil, fmt.Errorf("failed to load cartridge: %w", errs[0])
	}
	if findings := loaded.Validate(compiler.DefaultOptions()); compiler.HasErrors(findings) {
		errs, _ := compiler.Split(findings)
		return nil, nil, fmt.Errorf("cartridge is invalid: %w", errs[0])
	}
	return ResolveChart(loaded.Cartridges, ref)
}

// ResolveChart finds the chart ref names: "cartridgeId.chartId", or a bare
// chart id that is unique across cartridges.
func ResolveChart(cartridges []ir.Cartridge, ref string) (*ir.Cartridge, *ir.Statechart, error) {
	if cartID, chartID, ok := strings.Cut(ref, "."); ok {
		for i := range cartridges {
			if cartridges[i].ID != cartID {
				continue
			}
			if chart := cartridges[i].Statechart(chartID); chart != nil {
				return &cartridges[i], chart, nil
			}
			return nil, nil, fmt.Errorf("cartridge %q has no statechart %q", cartID, chartID)
		}
		return nil, nil, fmt.Errorf("cartridge %q not found", cartID)
	}

	var (
		cart  *ir.Cartridge
		chart *ir.Statechart
	)
	for i := range cartridges {
		if c := cartridges[i].Statechart(ref); c != nil {
			if chart != nil {
				return nil, nil, fmt.Errorf("statechart %q is ambiguous; qualify it as cartridge.%s", ref, ref)
			}
			cart, chart = &cartridges[i], c
		}
	}
	if chart == nil {
		return nil, nil, fmt.Errorf("statechart %q not found", ref)
	}
	return cart, chart, nil
}
