package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/roach88/cartridge/internal/guard"
	"github.com/roach88/cartridge/internal/ir"
)

// DefaultMaxSteps is the default number of raised events drained per input.
const DefaultMaxSteps = 1000

// Engine interprets one statechart for one entity.
//
// Thread-safety model:
//   - Start, Send, ExpireTimeout, Subscribe, Stop: safe from any goroutine,
//     serialized by the engine mutex
//   - Snapshot: lock-free read of the last published snapshot
//   - Timer callbacks: run on the scheduler's goroutine and take the mutex
//
// INVARIANTS:
//   - The current state id always names a state of the chart
//   - History starts with the initial state and only grows
//   - At most one timeout is armed, and only for the current state
type Engine struct {
	mu sync.Mutex

	id        string
	chart     *ir.Statechart
	states    map[string]*ir.State
	logger    *slog.Logger
	clock     *Clock
	scheduler Scheduler
	executors Executors
	journal   Journal
	maxSteps  int
	overrides map[string]any

	started bool
	stopped bool
	done    bool

	current  string
	ctx      map[string]any
	history  []string
	lastStep *Step
	timer    *armedTimer
	timerSeq uint64
	pending  *eventQueue
	subs     []*subscription

	published atomic.Pointer[Snapshot]
}

// Option configures an Engine.
type Option func(*Engine)

// WithID sets the entity id reported in snapshots and logs.
func WithID(id string) Option {
	return func(e *Engine) {
		e.id = id
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithScheduler sets the timer scheduler. Default: RealScheduler.
func WithScheduler(s Scheduler) Option {
	return func(e *Engine) {
		e.scheduler = s
	}
}

// WithClock sets the logical clock. Used to resume a journal's numbering.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithExecutor registers ex for kind, replacing any built-in of that kind.
func WithExecutor(kind string, ex Executor) Option {
	return func(e *Engine) {
		e.executors[kind] = ex
	}
}

// WithJournal records every input and step to j.
func WithJournal(j Journal) Option {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithMaxSteps sets how many raised events one input may drain.
//
// Default: 1000 steps (DefaultMaxSteps)
// Use WithMaxSteps(10) for testing quota enforcement.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// WithContext overrides schema defaults in the initial context.
func WithContext(values map[string]any) Option {
	return func(e *Engine) {
		e.overrides = values
	}
}

// New creates an engine positioned at the chart's initial state. Nothing
// runs until Start.
//
// New rejects charts whose initial state, transition targets or timeout
// targets name undefined states, so the current state id can never dangle.
// The chart's states and their transition lists are copied; later edits to
// chart do not affect the engine.
func New(chart *ir.Statechart, opts ...Option) (*Engine, error) {
	if chart == nil {
		return nil, fmt.Errorf("engine: nil statechart")
	}

	c := *chart
	c.States = slices.Clone(chart.States)
	states := make(map[string]*ir.State, len(c.States))
	for i := range c.States {
		st := &c.States[i]
		st.Transitions = slices.Clone(st.Transitions)
		st.OnEntry = slices.Clone(st.OnEntry)
		st.OnExit = slices.Clone(st.OnExit)
		if _, dup := states[st.ID]; dup {
			return nil, fmt.Errorf("engine: chart %s: duplicate state %q", c.ID, st.ID)
		}
		states[st.ID] = st
	}

	if err := checkTargets(&c, states); err != nil {
		return nil, err
	}

	e := &Engine{
		chart:     &c,
		states:    states,
		logger:    slog.Default(),
		clock:     NewClock(),
		scheduler: RealScheduler{},
		executors: DefaultExecutors(),
		maxSteps:  DefaultMaxSteps,
		pending:   newEventQueue(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("chart", c.ID)
	if e.id != "" {
		e.logger = e.logger.With("entity", e.id)
	}

	e.ctx = c.InitialContext()
	for k, v := range e.overrides {
		e.ctx[k] = ir.CloneValue(v)
	}
	e.current = c.Initial
	e.history = []string{c.Initial}
	e.publish()

	return e, nil
}

func checkTargets(c *ir.Statechart, states map[string]*ir.State) error {
	if _, ok := states[c.Initial]; !ok {
		return fmt.Errorf("engine: chart %s: initial state %q: %w", c.ID, c.Initial, ErrUnknownState)
	}
	for _, st := range c.States {
		for i, tr := range st.Transitions {
			if _, ok := states[tr.Target]; !ok {
				return fmt.Errorf("engine: chart %s: state %s transition[%d] target %q: %w",
					c.ID, st.ID, i, tr.Target, ErrUnknownState)
			}
		}
		if st.Timeout != nil {
			for _, target := range []string{st.Timeout.OnTrueTarget, st.Timeout.OnFalseTarget} {
				if _, ok := states[target]; !ok {
					return fmt.Errorf("engine: chart %s: state %s timeout target %q: %w",
						c.ID, st.ID, target, ErrUnknownState)
				}
			}
		}
	}
	return nil
}

// ID returns the entity id.
func (e *Engine) ID() string {
	return e.id
}

// ChartID returns the id of the interpreted statechart.
func (e *Engine) ChartID() string {
	return e.chart.ID
}

// Start runs on_entry of the initial state, arms its timeout and notifies
// listeners. Calling Start twice is a programming error and panics.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		panic(fmt.Sprintf("engine: Start called twice on chart %s", e.chart.ID))
	}
	e.started = true

	st := e.currentState()
	e.recordInput(Input{Kind: InputStart, State: st.ID})
	e.logger.Info("engine started", "state", st.ID)

	e.runActions(st.OnEntry, st.ID, "", nil)
	if st.IsFinal() {
		e.done = true
	} else {
		e.armTimer(st.ID)
	}
	e.commit(Step{Cause: CauseStart, To: st.ID})
	e.drain()
}

// Send delivers event with an optional payload and reports whether a
// transition was taken. The payload reaches actions only; it never
// influences transition selection.
//
// The first transition of the current state whose event matches is
// selected. If its guard is false the event is ignored. If no transition
// matches, the event is dropped and logged. Events raised by the transition's
// actions are processed before Send returns.
//
// Send panics if called before Start. After Stop, or once a final state has
// been entered, events are dropped.
func (e *Engine) Send(event string, payload any) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.mustBeStarted("Send")
	if e.stopped {
		e.logger.Debug("event dropped: engine stopped", "event", event)
		return false
	}

	e.recordInput(Input{Kind: InputEvent, Event: event, Payload: payload, State: e.current})
	accepted := e.dispatch(event, payload, CauseEvent)
	e.drain()
	return accepted
}

// Stop cancels the armed timeout and makes the engine drop further input.
// Stop is idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return
	}
	e.stopped = true
	e.cancelTimer()
	e.pending.Clear()
	e.publish()
	e.logger.Debug("engine stopped", "state", e.current)
}

// Done reports whether a final state has been entered.
func (e *Engine) Done() bool {
	return e.published.Load().Done
}

func (e *Engine) mustBeStarted(op string) {
	if !e.started {
		panic(fmt.Sprintf("engine: %s called before Start on chart %s", op, e.chart.ID))
	}
}

// currentState returns the current state. A current id missing from the
// graph means the engine's invariants were broken, so it panics.
func (e *Engine) currentState() *ir.State {
	st, ok := e.states[e.current]
	if !ok {
		panic(fmt.Sprintf("engine: current state %q not found in chart %s", e.current, e.chart.ID))
	}
	return st
}

// dispatch processes one event against the current state. Called with e.mu
// held.
func (e *Engine) dispatch(event string, payload any, cause StepCause) bool {
	src := e.currentState()

	if e.done {
		e.logger.Debug("event dropped: final state reached", "event", event, "state", src.ID)
		return false
	}

	idx := slices.IndexFunc(src.Transitions, func(tr ir.Transition) bool {
		return tr.Event == event
	})
	if idx < 0 {
		e.logger.Debug("event dropped: no transition", "event", event, "state", src.ID)
		return false
	}
	tr := src.Transitions[idx]

	if !e.evaluate(tr.Guard) {
		e.logger.Debug("event ignored: guard rejected",
			"event", event,
			"state", src.ID,
			"guard", guard.Format(tr.Guard.Root()),
		)
		return false
	}

	e.runActions(tr.Actions, src.ID, event, payload)
	e.enter(src, tr.Target, event, cause)
	return true
}

// evaluate runs a guard, logging references to undefined variables.
func (e *Engine) evaluate(tree *ir.GuardTree) bool {
	root := tree.Root()
	if root == nil {
		return true
	}
	if res := guard.Validate(root, varsOf(e.ctx)); !res.Valid {
		e.logger.Debug("guard references undefined variables",
			"variables", res.UndefinedVariables(),
			"state", e.current,
		)
	}
	return guard.Evaluate(root, e.ctx)
}

func varsOf(ctx map[string]any) map[string]bool {
	vars := make(map[string]bool, len(ctx))
	for k := range ctx {
		vars[k] = true
	}
	return vars
}

// enter leaves src for target: cancel the timer, run on_exit, move, record
// history, run on_entry, arm the new timer, then publish and notify.
// Called with e.mu held.
func (e *Engine) enter(src *ir.State, target, event string, cause StepCause) {
	e.cancelTimer()
	e.runActions(src.OnExit, src.ID, event, nil)

	e.current = target
	e.history = append(e.history, target)
	dst := e.currentState()

	e.runActions(dst.OnEntry, dst.ID, event, nil)
	if dst.IsFinal() {
		e.done = true
		e.logger.Info("final state reached", "state", dst.ID)
	} else {
		e.armTimer(dst.ID)
	}

	e.logger.Debug("transition",
		"from", src.ID,
		"to", dst.ID,
		"event", event,
		"cause", cause,
	)
	e.commit(Step{Cause: cause, Event: event, From: src.ID, To: dst.ID})
}

// commit stamps step, journals it, publishes and notifies.
// Called with e.mu held.
func (e *Engine) commit(step Step) {
	step.Seq = e.clock.Next()
	digest, err := ir.SnapshotDigest(e.current, e.ctx)
	if err != nil {
		e.logger.Warn("snapshot digest failed", "error", err, "state", e.current)
	}
	step.Digest = digest
	e.lastStep = &step

	if e.journal != nil {
		if err := e.journal.RecordStep(step); err != nil {
			e.logger.Error("journal write failed", "error", &RuntimeError{
				Code:    ErrCodeJournalFailed,
				Message: "record step",
				Chart:   e.chart.ID,
				State:   step.To,
				Event:   step.Event,
				Err:     err,
			})
		}
	}

	e.notify(e.publish())
}

// recordInput stamps and journals an input. Called with e.mu held.
func (e *Engine) recordInput(in Input) {
	in.Seq = e.clock.Next()
	if e.journal == nil {
		return
	}
	if err := e.journal.RecordInput(in); err != nil {
		e.logger.Error("journal write failed", "error", &RuntimeError{
			Code:    ErrCodeJournalFailed,
			Message: "record input",
			Chart:   e.chart.ID,
			State:   in.State,
			Event:   in.Event,
			Err:     err,
		})
	}
}

// drain processes raised events in FIFO order until the queue is empty or
// the quota trips. Called with e.mu held.
func (e *Engine) drain() {
	if e.pending.Len() == 0 {
		return
	}
	quota := NewQuotaEnforcer(e.maxSteps)
	for {
		ev, ok := e.pending.TryDequeue()
		if !ok {
			return
		}
		if e.stopped {
			e.pending.Clear()
			return
		}
		if err := quota.Check(e.id); err != nil {
			var se *StepsExceededError
			errors.As(err, &se)
			dropped := e.pending.Clear() + 1
			e.logger.Error("max steps quota exceeded",
				"error", NewQuotaError(e.chart.ID, e.current, se),
				"dropped", dropped,
			)
			return
		}
		e.logger.Debug("raised event", "event", ev.Event, "raised_in", ev.From)
		e.dispatch(ev.Event, ev.Payload, CauseRaise)
	}
}
