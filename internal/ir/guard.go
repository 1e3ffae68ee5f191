package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Guard is a sealed interface over guard expression nodes.
// Only Condition and Group implement it, so every consumer can switch over
// the two variants exhaustively.
type Guard interface {
	guardNode() // Sealed
}

// OperandType says how a condition operand is resolved.
type OperandType string

const (
	OperandVariable OperandType = "variable"
	OperandLiteral  OperandType = "literal"
)

// Operator is a comparison operator.
type Operator string

const (
	OpGT  Operator = "gt"
	OpGTE Operator = "gte"
	OpLT  Operator = "lt"
	OpLTE Operator = "lte"
	OpEQ  Operator = "eq"
	OpNE  Operator = "ne"
)

// Operators lists every comparison operator in a stable order.
var Operators = []Operator{OpGT, OpGTE, OpLT, OpLTE, OpEQ, OpNE}

// Valid reports whether op is one of the six comparison operators.
func (op Operator) Valid() bool {
	switch op {
	case OpGT, OpGTE, OpLT, OpLTE, OpEQ, OpNE:
		return true
	}
	return false
}

// GroupOperator combines the children of a Group.
type GroupOperator string

const (
	GroupAnd GroupOperator = "and"
	GroupOr  GroupOperator = "or"
)

// Condition compares a variable against a literal or another variable.
//
// The left operand is always a variable lookup. RightValue holds the literal
// when RightType is literal, and the variable name (a string) when RightType
// is variable. Negated inverts the comparison result.
type Condition struct {
	LeftType   OperandType `json:"leftType"`
	LeftKey    string      `json:"leftKey"`
	Operator   Operator    `json:"operator"`
	RightType  OperandType `json:"rightType"`
	RightValue any         `json:"rightValue"`
	Negated    bool        `json:"negated,omitempty"`
}

func (Condition) guardNode() {}

// Group combines child guards with and/or. A valid group has at least one
// child.
type Group struct {
	Operator GroupOperator `json:"operator"`
	Children []Guard       `json:"children"`
	Negated  bool          `json:"negated,omitempty"`
}

func (Group) guardNode() {}

// Var builds a condition comparing variable key against a literal.
func Var(key string, op Operator, literal any) Condition {
	return Condition{
		LeftType:   OperandVariable,
		LeftKey:    key,
		Operator:   op,
		RightType:  OperandLiteral,
		RightValue: literal,
	}
}

// VarVar builds a condition comparing two variables.
func VarVar(left string, op Operator, right string) Condition {
	return Condition{
		LeftType:   OperandVariable,
		LeftKey:    left,
		Operator:   op,
		RightType:  OperandVariable,
		RightValue: right,
	}
}

// Not returns g with its negation flag flipped.
func Not(g Guard) Guard {
	switch n := g.(type) {
	case Condition:
		n.Negated = !n.Negated
		return n
	case Group:
		n.Negated = !n.Negated
		return n
	}
	return g
}

// And groups children with the and operator.
func And(children ...Guard) Group {
	return Group{Operator: GroupAnd, Children: children}
}

// Or groups children with the or operator.
func Or(children ...Guard) Group {
	return Group{Operator: GroupOr, Children: children}
}

// MarshalJSON writes the condition with a "condition" type tag.
func (c Condition) MarshalJSON() ([]byte, error) {
	type plain Condition
	return marshalTagged("condition", plain(c))
}

// MarshalJSON writes the group with a "group" type tag.
func (g Group) MarshalJSON() ([]byte, error) {
	type plain Group
	return marshalTagged("group", plain(g))
}

// marshalTagged prepends "type":tag to the encoded object.
func marshalTagged(tag string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	tagBytes, err := json.Marshal(tag)
	if err != nil {
		return nil, err
	}
	buf.Write(tagBytes)
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a group, including its polymorphic children.
func (g *Group) UnmarshalJSON(data []byte) error {
	var raw struct {
		Operator GroupOperator     `json:"operator"`
		Children []json.RawMessage `json:"children"`
		Negated  bool              `json:"negated"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	g.Operator = raw.Operator
	g.Negated = raw.Negated
	g.Children = make([]Guard, 0, len(raw.Children))
	for i, child := range raw.Children {
		node, err := UnmarshalGuard(child)
		if err != nil {
			return fmt.Errorf("children[%d]: %w", i, err)
		}
		g.Children = append(g.Children, node)
	}
	return nil
}

// UnmarshalGuard decodes one guard node.
//
// The "type" field selects the variant. When it is absent, a node carrying
// "children" is a group and anything else is a condition.
func UnmarshalGuard(data []byte) (Guard, error) {
	var probe struct {
		Type     string          `json:"type"`
		Children json.RawMessage `json:"children"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("guard: %w", err)
	}

	kind := probe.Type
	if kind == "" {
		if probe.Children != nil {
			kind = "group"
		} else {
			kind = "condition"
		}
	}

	switch kind {
	case "group":
		var g Group
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, fmt.Errorf("guard group: %w", err)
		}
		return g, nil
	case "condition":
		var c Condition
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("guard condition: %w", err)
		}
		if c.LeftType == "" {
			c.LeftType = OperandVariable
		}
		if c.RightType == "" {
			c.RightType = OperandLiteral
		}
		return c, nil
	default:
		return nil, fmt.Errorf("guard: unknown node type %q", kind)
	}
}

// GuardTree wraps a Guard so it can sit in JSON-decoded structs.
type GuardTree struct {
	Guard
}

// NewGuardTree wraps g. A nil g yields nil.
func NewGuardTree(g Guard) *GuardTree {
	if g == nil {
		return nil
	}
	return &GuardTree{Guard: g}
}

// Root returns the wrapped guard, or nil for a nil tree.
func (t *GuardTree) Root() Guard {
	if t == nil {
		return nil
	}
	return t.Guard
}

// MarshalJSON encodes the wrapped node.
func (t GuardTree) MarshalJSON() ([]byte, error) {
	if t.Guard == nil {
		return []byte("null"), nil
	}
	return json.Marshal(t.Guard)
}

// UnmarshalJSON decodes the wrapped node.
func (t *GuardTree) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		t.Guard = nil
		return nil
	}
	g, err := UnmarshalGuard(data)
	if err != nil {
		return err
	}
	t.Guard = g
	return nil
}
