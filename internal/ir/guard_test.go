package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionMarshalIncludesTypeTag(t *testing.T) {
	c := Var("x", OpGT, 5)
	data, err := json.Marshal(c)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"type": "condition",
		"leftType": "variable",
		"leftKey": "x",
		"operator": "gt",
		"rightType": "literal",
		"rightValue": 5
	}`, string(data))
}

func TestGroupMarshalNestsChildren(t *testing.T) {
	g := Group{
		Operator: GroupAnd,
		Negated:  true,
		Children: []Guard{Var("a", OpEQ, "on"), Or(Var("b", OpLT, 1))},
	}
	data, err := json.Marshal(g)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))
	assert.Equal(t, "group", generic["type"])
	assert.Equal(t, true, generic["negated"])

	children := generic["children"].([]any)
	require.Len(t, children, 2)
	assert.Equal(t, "condition", children[0].(map[string]any)["type"])
	assert.Equal(t, "group", children[1].(map[string]any)["type"])
}

func TestUnmarshalGuardRoundTripsTree(t *testing.T) {
	original := Not(And(
		Var("coins", OpGTE, 3),
		Or(VarVar("x", OpNE, "y"), Not(Var("armed", OpEQ, true))),
	))

	data, err := json.Marshal(original)
	require.NoError(t, err)

	decoded, err := UnmarshalGuard(data)
	require.NoError(t, err)

	group, ok := decoded.(Group)
	require.True(t, ok, "root should decode as Group, got %T", decoded)
	assert.True(t, group.Negated)
	assert.Equal(t, GroupAnd, group.Operator)
	require.Len(t, group.Children, 2)

	first := group.Children[0].(Condition)
	assert.Equal(t, "coins", first.LeftKey)
	assert.Equal(t, OpGTE, first.Operator)
	assert.Equal(t, float64(3), first.RightValue)

	inner := group.Children[1].(Group)
	assert.Equal(t, GroupOr, inner.Operator)
	assert.Equal(t, OperandVariable, inner.Children[0].(Condition).RightType)
	assert.True(t, inner.Children[1].(Condition).Negated)
}

func TestUnmarshalGuardInfersVariantWithoutTag(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"children means group", `{"operator":"or","children":[{"leftKey":"x","operator":"gt","rightValue":1}]}`, "group"},
		{"empty children still group", `{"operator":"and","children":[]}`, "group"},
		{"plain condition", `{"leftKey":"x","operator":"gt","rightValue":1}`, "condition"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := UnmarshalGuard([]byte(tt.input))
			require.NoError(t, err)
			switch g.(type) {
			case Group:
				assert.Equal(t, "group", tt.want)
			case Condition:
				assert.Equal(t, "condition", tt.want)
			}
		})
	}
}

func TestUnmarshalGuardDefaultsOperandTypes(t *testing.T) {
	g, err := UnmarshalGuard([]byte(`{"leftKey":"x","operator":"gt","rightValue":"5"}`))
	require.NoError(t, err)

	c := g.(Condition)
	assert.Equal(t, OperandVariable, c.LeftType)
	assert.Equal(t, OperandLiteral, c.RightType)
	assert.Equal(t, "5", c.RightValue)
}

func TestUnmarshalGuardRejectsUnknownType(t *testing.T) {
	_, err := UnmarshalGuard([]byte(`{"type":"script","source":"return true"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown node type "script"`)
}

func TestUnmarshalGuardReportsChildPath(t *testing.T) {
	_, err := UnmarshalGuard([]byte(`{"type":"group","operator":"and","children":[{"type":"condition"},{"type":"bogus"}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "children[1]")
}

func TestGuardTreeNull(t *testing.T) {
	var tr struct {
		Guard *GuardTree `json:"guard"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"guard":null}`), &tr))
	assert.Nil(t, tr.Guard.Root())

	var nilTree *GuardTree
	assert.Nil(t, nilTree.Root())
	assert.Nil(t, NewGuardTree(nil))
}

func TestNotFlipsNegation(t *testing.T) {
	c := Var("x", OpGT, 5)
	assert.True(t, Not(c).(Condition).Negated)
	assert.False(t, Not(Not(c)).(Condition).Negated)

	g := And(c)
	assert.True(t, Not(g).(Group).Negated)
}

func TestOperatorValid(t *testing.T) {
	for _, op := range Operators {
		assert.True(t, op.Valid(), "%s should be valid", op)
	}
	assert.False(t, Operator("matches").Valid())
	assert.False(t, Operator("").Valid())
}
