package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/cartridge/internal/ir"
)

func TestEvaluateCondition(t *testing.T) {
	ctx := map[string]any{
		"coins":   float64(3),
		"lives":   2,
		"name":    "mario",
		"armed":   true,
		"nothing": nil,
		"inv":     map[string]any{"key": true},
	}

	tests := []struct {
		name string
		expr ir.Guard
		want bool
	}{
		{"gt true", ir.Var("coins", ir.OpGT, 2), true},
		{"gt false", ir.Var("coins", ir.OpGT, 3), false},
		{"gte equal", ir.Var("coins", ir.OpGTE, 3), true},
		{"lt", ir.Var("coins", ir.OpLT, 4.5), true},
		{"lte", ir.Var("coins", ir.OpLTE, 2.9), false},
		{"eq float and int", ir.Var("lives", ir.OpEQ, 2.0), true},
		{"ne", ir.Var("lives", ir.OpNE, 3), true},
		{"numeric string literal coerced", ir.Var("coins", ir.OpEQ, "3"), true},
		{"numeric string with spaces", ir.Var("coins", ir.OpGT, " 2.5 "), true},
		{"non-numeric string literal", ir.Var("name", ir.OpEQ, "mario"), true},
		{"string ordering", ir.Var("name", ir.OpLT, "zelda"), true},
		{"string vs number ordering", ir.Var("name", ir.OpGT, 1), false},
		{"bool eq", ir.Var("armed", ir.OpEQ, true), true},
		{"bool ordering is false", ir.Var("armed", ir.OpGT, false), false},
		{"null eq null", ir.Var("nothing", ir.OpEQ, nil), true},
		{"structured eq", ir.Var("inv", ir.OpEQ, map[string]any{"key": true}), true},
		{"variable vs variable", ir.VarVar("coins", ir.OpGT, "lives"), true},
		{"unknown operator", ir.Var("coins", ir.Operator("like"), 3), false},
		{"negated unknown operator", ir.Not(ir.Var("coins", ir.Operator("like"), 3)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.expr, ctx))
		})
	}
}

func TestEvaluateUndefinedVariable(t *testing.T) {
	ctx := map[string]any{"x": 1.0}

	tests := []struct {
		name string
		expr ir.Guard
		want bool
	}{
		{"gt", ir.Var("missing", ir.OpGT, 0), false},
		{"gte", ir.Var("missing", ir.OpGTE, 0), false},
		{"lt", ir.Var("missing", ir.OpLT, 0), false},
		{"lte", ir.Var("missing", ir.OpLTE, 0), false},
		{"eq literal", ir.Var("missing", ir.OpEQ, 0), false},
		{"eq null literal", ir.Var("missing", ir.OpEQ, nil), false},
		{"ne literal", ir.Var("missing", ir.OpNE, 0), true},
		{"eq another missing", ir.VarVar("missing", ir.OpEQ, "gone"), true},
		{"ne another missing", ir.VarVar("missing", ir.OpNE, "gone"), false},
		{"eq defined variable", ir.VarVar("missing", ir.OpEQ, "x"), false},
		{"negated ordering", ir.Not(ir.Var("missing", ir.OpGT, 0)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.expr, ctx))
		})
	}
}

func TestEvaluateNonStringVariableKey(t *testing.T) {
	c := ir.Condition{
		LeftType:   ir.OperandVariable,
		LeftKey:    "x",
		Operator:   ir.OpEQ,
		RightType:  ir.OperandVariable,
		RightValue: 42.0,
	}
	assert.False(t, Evaluate(c, map[string]any{"x": 42.0}))
}

func TestEvaluateLiteralLeftOperand(t *testing.T) {
	c := ir.Condition{
		LeftType:   ir.OperandLiteral,
		LeftKey:    "10",
		Operator:   ir.OpGT,
		RightType:  ir.OperandVariable,
		RightValue: "x",
	}
	assert.True(t, Evaluate(c, map[string]any{"x": 5.0}))
}

func TestEvaluateGroups(t *testing.T) {
	ctx := map[string]any{"a": 1.0, "b": 2.0}
	yes := ir.Var("a", ir.OpEQ, 1)
	no := ir.Var("b", ir.OpEQ, 1)

	tests := []struct {
		name string
		expr ir.Guard
		want bool
	}{
		{"and all true", ir.And(yes, yes), true},
		{"and one false", ir.And(yes, no), false},
		{"or one true", ir.Or(no, yes), true},
		{"or all false", ir.Or(no, no), false},
		{"negated and", ir.Not(ir.And(yes, no)), true},
		{"negated or", ir.Not(ir.Or(yes, no)), false},
		{"nested", ir.And(yes, ir.Or(no, ir.Not(no))), true},
		{"empty and", ir.And(), true},
		{"empty or", ir.Or(), false},
		{"unknown group operator", ir.Group{Operator: "xor", Children: []ir.Guard{yes}}, false},
		{"negated unknown group operator", ir.Group{Operator: "xor", Children: []ir.Guard{yes}, Negated: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.expr, ctx))
		})
	}
}

func TestEvaluateNilAndTrees(t *testing.T) {
	assert.True(t, Evaluate(nil, nil))
	assert.True(t, EvaluateTree(nil, nil))

	tree := ir.NewGuardTree(ir.Var("x", ir.OpGT, 5))
	assert.True(t, EvaluateTree(tree, map[string]any{"x": 6.0}))
	assert.False(t, Evaluate(tree, map[string]any{"x": 5.0}))
}

func TestEvaluateDoesNotMutateContext(t *testing.T) {
	ctx := map[string]any{"x": 1.0}
	Evaluate(ir.And(ir.Var("x", ir.OpGT, 0), ir.Var("y", ir.OpEQ, 1)), ctx)
	assert.Equal(t, map[string]any{"x": 1.0}, ctx)
}

func TestEvaluateShortCircuit(t *testing.T) {
	// The second child would be false; short-circuit must not change the
	// outcome, only skip work.
	ctx := map[string]any{"x": 1.0}
	assert.False(t, Evaluate(ir.And(ir.Var("x", ir.OpGT, 5), ir.Var("x", ir.OpEQ, 1)), ctx))
	assert.True(t, Evaluate(ir.Or(ir.Var("x", ir.OpEQ, 1), ir.Var("x", ir.OpGT, 5)), ctx))
}
