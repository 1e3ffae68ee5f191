package guard

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/cartridge/internal/ir"
)

var operatorSymbols = map[ir.Operator]string{
	ir.OpGT:  ">",
	ir.OpGTE: ">=",
	ir.OpLT:  "<",
	ir.OpLTE: "<=",
	ir.OpEQ:  "==",
	ir.OpNE:  "!=",
}

// Format renders expr in a human-readable form for diagnostics:
//
//	$x > 5
//	!($x > 5)
//	($a == "on" AND ($b < $c OR $d != true))
//
// Variables carry a $ prefix, groups are parenthesized with their operator
// in upper case, and negation is a leading ! around the node. The output is
// not parsed back.
func Format(expr ir.Guard) string {
	switch n := expr.(type) {
	case nil:
		return "true"
	case ir.Condition:
		s := formatCondition(n)
		if n.Negated {
			return "!(" + s + ")"
		}
		return s
	case ir.Group:
		s := formatGroup(n)
		if n.Negated {
			return "!" + s
		}
		return s
	case *ir.GuardTree:
		return Format(n.Root())
	case ir.GuardTree:
		return Format(n.Guard)
	default:
		return fmt.Sprintf("<%T>", expr)
	}
}

func formatCondition(c ir.Condition) string {
	left := "$" + c.LeftKey
	if c.LeftType == ir.OperandLiteral {
		left = formatLiteral(c.LeftKey)
	}

	var right string
	if c.RightType == ir.OperandVariable {
		right = fmt.Sprintf("$%v", c.RightValue)
	} else {
		right = formatLiteral(c.RightValue)
	}

	symbol, ok := operatorSymbols[c.Operator]
	if !ok {
		symbol = string(c.Operator)
	}
	return left + " " + symbol + " " + right
}

func formatGroup(g ir.Group) string {
	parts := make([]string, len(g.Children))
	for i, child := range g.Children {
		parts[i] = Format(child)
	}
	sep := " " + strings.ToUpper(string(g.Operator)) + " "
	return "(" + strings.Join(parts, sep) + ")"
}

// formatLiteral renders numeric strings as numbers, matching how they are
// compared, and quotes every other string.
func formatLiteral(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		if f, ok := parseNumeric(val); ok {
			return formatNumber(f)
		}
		return strconv.Quote(val)
	case bool:
		return strconv.FormatBool(val)
	}
	if f, ok := toFloat64(v); ok {
		return formatNumber(f)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
