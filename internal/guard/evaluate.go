package guard

import (
	"github.com/roach88/cartridge/internal/ir"
)

// Evaluate reports whether expr holds against ctx.
//
// A nil expression always holds, so an unguarded transition is taken
// unconditionally. Groups short-circuit: and stops at the first false child,
// or at the first true one. An empty group evaluates as the identity of its
// operator (and: true, or: false) before negation; load-time validation
// rejects empty groups, so this only matters for unvalidated input. An
// unknown group or comparison operator yields false, and negation still
// applies to that result.
func Evaluate(expr ir.Guard, ctx map[string]any) bool {
	switch n := expr.(type) {
	case nil:
		return true
	case ir.Condition:
		return evaluateCondition(n, ctx)
	case ir.Group:
		return evaluateGroup(n, ctx)
	case *ir.GuardTree:
		return Evaluate(n.Root(), ctx)
	case ir.GuardTree:
		return Evaluate(n.Guard, ctx)
	default:
		return false
	}
}

// EvaluateTree evaluates an optional guard tree.
func EvaluateTree(tree *ir.GuardTree, ctx map[string]any) bool {
	return Evaluate(tree.Root(), ctx)
}

func evaluateCondition(c ir.Condition, ctx map[string]any) bool {
	result := compare(c.Operator, resolveLeft(c, ctx), resolveRight(c, ctx))
	if c.Negated {
		return !result
	}
	return result
}

func evaluateGroup(g ir.Group, ctx map[string]any) bool {
	var result bool
	switch g.Operator {
	case ir.GroupAnd:
		result = true
		for _, child := range g.Children {
			if !Evaluate(child, ctx) {
				result = false
				break
			}
		}
	case ir.GroupOr:
		result = false
		for _, child := range g.Children {
			if Evaluate(child, ctx) {
				result = true
				break
			}
		}
	}
	if g.Negated {
		return !result
	}
	return result
}
