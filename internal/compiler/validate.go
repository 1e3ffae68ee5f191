package compiler

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/roach88/cartridge/internal/guard"
	"github.com/roach88/cartridge/internal/ir"
)

// Validation codes. E2xx findings are fatal to a cartridge load; W3xx
// findings are reported and the cartridge still loads.
const (
	ErrUnknownTarget        = "E201" // transition target not defined
	ErrUnknownTimeoutTarget = "E202" // timeout onTrueTarget/onFalseTarget not defined
	ErrEmptyGroup           = "E203" // guard group with no children
	ErrUndefinedVariable    = "E204" // guard variable not in the context schema
	ErrDuplicateState       = "E205" // state id defined twice in a chart
	ErrInitialState         = "E206" // initial state missing or not defined
	ErrDuplicateChart       = "E207" // statechart id defined twice in a cartridge
	ErrNegativeDelay        = "E208" // timeout delayMs below zero or beyond a Duration
	ErrTimeoutOnFinal       = "E209" // final states cannot time out
	ErrInvalidVarType       = "E210" // context variable type not recognised
	ErrInvalidAction        = "E211" // action missing a field its kind requires
	ErrInvalidGuard         = "E212" // guard operator or operand type not recognised
	ErrInvalidStateKind     = "E213" // state kind not recognised
	ErrMissingID            = "E214" // empty cartridge, chart, state or event id
	ErrDottedID             = "E215" // cartridge, chart or event id containing "."

	WarnSameTimeoutTargets = "W301" // onTrueTarget == onFalseTarget
	WarnSelfTarget         = "W302" // target is the source state
	WarnLongDelay          = "W303" // delay above Options.MaxDelay
	WarnUnreachableState   = "W304" // no path from the initial state
	WarnGuardStyle         = "W305" // single-child group, self comparison
)

// ValidationError represents one validation finding.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	loc := ""
	switch {
	case e.File != "" && e.Line > 0:
		loc = fmt.Sprintf("%s:%d: ", e.File, e.Line)
	case e.File != "":
		loc = e.File + ": "
	case e.Line > 0:
		loc = fmt.Sprintf("line %d: ", e.Line)
	}
	return fmt.Sprintf("[%s] %s%s: %s", e.Code, loc, e.Field, e.Message)
}

// IsWarning reports whether the finding is non-fatal.
func (e ValidationError) IsWarning() bool {
	return strings.HasPrefix(e.Code, "W")
}

// HasErrors reports whether any finding is fatal.
func HasErrors(findings []ValidationError) bool {
	return slices.ContainsFunc(findings, func(f ValidationError) bool {
		return !f.IsWarning()
	})
}

// Split separates fatal findings from warnings, preserving order.
func Split(findings []ValidationError) (errs, warnings []ValidationError) {
	for _, f := range findings {
		if f.IsWarning() {
			warnings = append(warnings, f)
		} else {
			errs = append(errs, f)
		}
	}
	return errs, warnings
}

// Options tunes validation.
type Options struct {
	// MaxDelay is the longest timeout delay accepted without a warning.
	// Zero disables the check.
	MaxDelay time.Duration
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{MaxDelay: time.Hour}
}

// Validate checks a cartridge's structure and returns every finding, fatal
// and otherwise, in source order. It does not fail fast.
func Validate(c *ir.Cartridge, opts Options) []ValidationError {
	v := &validator{opts: opts}

	if strings.TrimSpace(c.ID) == "" {
		v.add("id", ErrMissingID, "cartridge id is required")
	}
	v.pathSegment("id", "cartridge", c.ID)

	charts := make(map[string]bool)
	for i := range c.Statecharts {
		chart := &c.Statecharts[i]
		field := fmt.Sprintf("statecharts[%d]", i)
		if charts[chart.ID] {
			v.add(field+".id", ErrDuplicateChart, "duplicate statechart id %q", chart.ID)
		}
		charts[chart.ID] = true
		v.chart(field, chart)
	}
	return v.findings
}

type validator struct {
	opts     Options
	findings []ValidationError
}

func (v *validator) add(field, code, format string, args ...any) {
	v.findings = append(v.findings, ValidationError{
		Field:   field,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	})
}

func (v *validator) chart(field string, chart *ir.Statechart) {
	if strings.TrimSpace(chart.ID) == "" {
		v.add(field+".id", ErrMissingID, "statechart id is required")
	}
	v.pathSegment(field+".id", "statechart", chart.ID)

	for _, name := range ir.SortedKeys(chart.Context) {
		if spec := chart.Context[name]; !ir.ValidVarTypes[spec.Type] {
			v.add(field+".context."+name+".type", ErrInvalidVarType,
				"invalid type %q for variable %q", spec.Type, name)
		}
	}

	states := make(map[string]bool, len(chart.States))
	for i, st := range chart.States {
		sf := fmt.Sprintf("%s.states[%d]", field, i)
		switch {
		case strings.TrimSpace(st.ID) == "":
			v.add(sf+".id", ErrMissingID, "state id is required")
		case states[st.ID]:
			v.add(sf+".id", ErrDuplicateState, "duplicate state id %q", st.ID)
		}
		states[st.ID] = true
	}

	initialOK := false
	switch {
	case chart.Initial == "":
		v.add(field+".initial", ErrInitialState, "initial state is required")
	case !states[chart.Initial]:
		v.add(field+".initial", ErrInitialState, "initial state %q is not defined", chart.Initial)
	default:
		initialOK = true
	}

	vars := chart.Variables()
	for i := range chart.States {
		v.state(fmt.Sprintf("%s.states[%d]", field, i), &chart.States[i], states, vars)
	}

	if initialOK {
		reached := reachable(chart)
		for i, st := range chart.States {
			if st.ID != "" && !reached[st.ID] {
				v.add(fmt.Sprintf("%s.states[%d]", field, i), WarnUnreachableState,
					"state %q is not reachable from %q", st.ID, chart.Initial)
			}
		}
	}
}

func (v *validator) state(field string, st *ir.State, states, vars map[string]bool) {
	if !ir.ValidStateKinds[st.Kind] {
		v.add(field+".kind", ErrInvalidStateKind, "invalid state kind %q", st.Kind)
	}

	v.actions(field+".on_entry", st.OnEntry)
	v.actions(field+".on_exit", st.OnExit)

	for i, tr := range st.Transitions {
		tf := fmt.Sprintf("%s.transitions[%d]", field, i)
		if strings.TrimSpace(tr.Event) == "" {
			v.add(tf+".event", ErrMissingID, "transition event is required")
		}
		v.pathSegment(tf+".event", "event", tr.Event)
		switch {
		case !states[tr.Target]:
			v.add(tf+".target", ErrUnknownTarget, "target state %q is not defined", tr.Target)
		case tr.Target == st.ID:
			v.add(tf+".target", WarnSelfTarget, "transition %q targets its own state %q", tr.Event, st.ID)
		}
		v.guard(tf+".guard", tr.Guard, vars)
		v.actions(tf+".actions", tr.Actions)
	}

	if st.Timeout != nil {
		v.timeout(field+".timeout", st, states, vars)
	}
}

func (v *validator) timeout(field string, st *ir.State, states, vars map[string]bool) {
	tm := st.Timeout

	if st.IsFinal() {
		v.add(field, ErrTimeoutOnFinal, "final state %q cannot have a timeout", st.ID)
	}

	switch {
	case tm.DelayMs < 0:
		v.add(field+".delayMs", ErrNegativeDelay, "delay must not be negative, got %dms", tm.DelayMs)
	case tm.DelayMs > ir.MaxDelayMs:
		v.add(field+".delayMs", ErrNegativeDelay, "delay %dms is out of range, the maximum is %dms", tm.DelayMs, ir.MaxDelayMs)
	case v.opts.MaxDelay > 0 && tm.DelayMs > v.opts.MaxDelay.Milliseconds():
		v.add(field+".delayMs", WarnLongDelay, "delay %s exceeds %s", tm.Delay(), v.opts.MaxDelay)
	}

	for _, t := range []struct{ name, target string }{
		{"onTrueTarget", tm.OnTrueTarget},
		{"onFalseTarget", tm.OnFalseTarget},
	} {
		switch {
		case !states[t.target]:
			v.add(field+"."+t.name, ErrUnknownTimeoutTarget, "timeout target %q is not defined", t.target)
		case t.target == st.ID:
			v.add(field+"."+t.name, WarnSelfTarget, "timeout targets its own state %q", st.ID)
		}
	}
	if tm.OnTrueTarget == tm.OnFalseTarget && tm.OnTrueTarget != "" {
		v.add(field, WarnSameTimeoutTargets, "onTrueTarget and onFalseTarget are both %q", tm.OnTrueTarget)
	}

	v.guard(field+".guardTree", tm.GuardTree, vars)
	if tm.OnTimeoutAction != nil {
		v.action(field+".onTimeoutAction", *tm.OnTimeoutAction)
	}
}

func (v *validator) guard(field string, tree *ir.GuardTree, vars map[string]bool) {
	root := tree.Root()
	if root == nil {
		return
	}
	res := guard.Validate(root, vars)
	for _, issue := range res.Errors {
		code := ErrInvalidGuard
		switch issue.Code {
		case guard.CodeUndefinedVariable:
			code = ErrUndefinedVariable
		case guard.CodeEmptyGroup:
			code = ErrEmptyGroup
		}
		v.add(joinField(field, issue.Path), code, "%s", issue.Message)
	}
	for _, issue := range res.Warnings {
		v.add(joinField(field, issue.Path), WarnGuardStyle, "%s", issue.Message)
	}
}

func (v *validator) actions(field string, actions []ir.Action) {
	for i, a := range actions {
		v.action(fmt.Sprintf("%s[%d]", field, i), a)
	}
}

func (v *validator) action(field string, a ir.Action) {
	for _, e := range a.Validate() {
		v.add(field+"."+e.Field, ErrInvalidAction, "%s", e.Message)
	}
}

// pathSegment rejects ids that would make a dotted event path ambiguous.
func (v *validator) pathSegment(field, what, id string) {
	if strings.Contains(id, ".") {
		v.add(field, ErrDottedID, "%s id %q must not contain %q", what, id, ".")
	}
}

func joinField(base, sub string) string {
	if sub == "" {
		return base
	}
	return base + "." + sub
}

// reachable returns the states reachable from the initial state through
// transitions and timeout targets.
func reachable(chart *ir.Statechart) map[string]bool {
	seen := map[string]bool{chart.Initial: true}
	queue := []string{chart.Initial}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		st := chart.State(id)
		if st == nil {
			continue
		}
		next := make([]string, 0, len(st.Transitions)+2)
		for _, tr := range st.Transitions {
			next = append(next, tr.Target)
		}
		if st.Timeout != nil {
			next = append(next, st.Timeout.OnTrueTarget, st.Timeout.OnFalseTarget)
		}
		for _, n := range next {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return seen
}
