package guard

import (
	"fmt"

	"github.com/roach88/cartridge/internal/ir"
)

// IssueCode identifies a validation finding.
type IssueCode string

const (
	// Errors
	CodeUndefinedVariable IssueCode = "UndefinedVariable"
	CodeEmptyGroup        IssueCode = "EmptyGroup"
	CodeInvalidOperator   IssueCode = "InvalidOperator"
	CodeInvalidOperand    IssueCode = "InvalidOperand"

	// Warnings
	CodeSingleChildGroup IssueCode = "SingleChildGroup"
	CodeSelfComparison   IssueCode = "SelfComparison"
)

// Issue is one validation finding. Path locates the node in the tree using
// the JSON field names, for example "children[1].leftKey".
type Issue struct {
	Code    IssueCode
	Path    string
	Name    string // variable name, for UndefinedVariable
	Message string
}

func (i Issue) Error() string {
	if i.Path == "" {
		return fmt.Sprintf("%s: %s", i.Code, i.Message)
	}
	return fmt.Sprintf("%s at %s: %s", i.Code, i.Path, i.Message)
}

// Result is the outcome of Validate.
type Result struct {
	Valid    bool
	Errors   []Issue
	Warnings []Issue
}

// UndefinedVariables returns the distinct names reported as undefined, in
// the order first found.
func (r Result) UndefinedVariables() []string {
	var names []string
	seen := make(map[string]bool)
	for _, issue := range r.Errors {
		if issue.Code == CodeUndefinedVariable && !seen[issue.Name] {
			seen[issue.Name] = true
			names = append(names, issue.Name)
		}
	}
	return names
}

// Validate statically checks expr against the set of available context
// variables. It reports every variable operand whose key is not in vars and
// every group without children. It never evaluates or mutates the tree.
// A nil expression is valid.
func Validate(expr ir.Guard, vars map[string]bool) Result {
	v := &validator{vars: vars}
	v.walk(expr, "")
	return Result{
		Valid:    len(v.errors) == 0,
		Errors:   v.errors,
		Warnings: v.warnings,
	}
}

type validator struct {
	vars     map[string]bool
	errors   []Issue
	warnings []Issue
}

func (v *validator) walk(expr ir.Guard, path string) {
	switch n := expr.(type) {
	case nil:
		return
	case ir.Condition:
		v.condition(n, path)
	case ir.Group:
		v.group(n, path)
	case *ir.GuardTree:
		v.walk(n.Root(), path)
	case ir.GuardTree:
		v.walk(n.Guard, path)
	}
}

func (v *validator) condition(c ir.Condition, path string) {
	if !c.Operator.Valid() {
		v.errors = append(v.errors, Issue{
			Code:    CodeInvalidOperator,
			Path:    join(path, "operator"),
			Message: fmt.Sprintf("unknown comparison operator %q", c.Operator),
		})
	}

	if c.LeftType != ir.OperandLiteral {
		v.variable(c.LeftKey, join(path, "leftKey"))
	}

	if c.RightType == ir.OperandVariable {
		key, ok := c.RightValue.(string)
		if !ok {
			v.errors = append(v.errors, Issue{
				Code:    CodeInvalidOperand,
				Path:    join(path, "rightValue"),
				Message: fmt.Sprintf("variable operand must name a variable, got %T", c.RightValue),
			})
		} else {
			v.variable(key, join(path, "rightValue"))
			if c.LeftType != ir.OperandLiteral && key == c.LeftKey {
				v.warnings = append(v.warnings, Issue{
					Code:    CodeSelfComparison,
					Path:    path,
					Name:    key,
					Message: fmt.Sprintf("variable %q is compared with itself", key),
				})
			}
		}
	}
}

func (v *validator) variable(name, path string) {
	if v.vars[name] {
		return
	}
	v.errors = append(v.errors, Issue{
		Code:    CodeUndefinedVariable,
		Path:    path,
		Name:    name,
		Message: fmt.Sprintf("variable %q is not defined in the context", name),
	})
}

func (v *validator) group(g ir.Group, path string) {
	if g.Operator != ir.GroupAnd && g.Operator != ir.GroupOr {
		v.errors = append(v.errors, Issue{
			Code:    CodeInvalidOperator,
			Path:    join(path, "operator"),
			Message: fmt.Sprintf("unknown group operator %q", g.Operator),
		})
	}

	switch len(g.Children) {
	case 0:
		v.errors = append(v.errors, Issue{
			Code:    CodeEmptyGroup,
			Path:    path,
			Message: "group must have at least one child",
		})
	case 1:
		v.warnings = append(v.warnings, Issue{
			Code:    CodeSingleChildGroup,
			Path:    path,
			Message: "group with a single child is redundant",
		})
	}

	for i, child := range g.Children {
		v.walk(child, join(path, fmt.Sprintf("children[%d]", i)))
	}
}

func join(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}
