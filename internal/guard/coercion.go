package guard

import (
	"math"
	"strconv"
	"strings"

	"github.com/roach88/cartridge/internal/ir"
)

// undefined is the resolved value of a variable missing from the context.
type undefined struct{}

// resolveLeft resolves the left operand. Left operands are variables unless
// explicitly marked literal, in which case LeftKey holds the literal text.
func resolveLeft(c ir.Condition, ctx map[string]any) any {
	if c.LeftType == ir.OperandLiteral {
		return coerceLiteral(c.LeftKey)
	}
	return lookup(ctx, c.LeftKey)
}

// resolveRight resolves the right operand. A variable operand names its key
// in RightValue; a non-string key cannot name anything and is undefined.
func resolveRight(c ir.Condition, ctx map[string]any) any {
	if c.RightType == ir.OperandVariable {
		key, ok := c.RightValue.(string)
		if !ok {
			return undefined{}
		}
		return lookup(ctx, key)
	}
	return coerceLiteral(c.RightValue)
}

func lookup(ctx map[string]any, key string) any {
	v, ok := ctx[key]
	if !ok {
		return undefined{}
	}
	return v
}

// coerceLiteral turns numeric strings into float64. Other values pass
// through unchanged.
func coerceLiteral(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if f, ok := parseNumeric(s); ok {
		return f
	}
	return s
}

// parseNumeric parses s as a finite decimal number, ignoring surrounding
// whitespace. Empty strings are not numeric.
func parseNumeric(s string) (float64, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toFloat64 converts value to float64 if it is a numeric type.
// Handles float64 from JSON decoding and the integer types hosts commonly
// put into a context directly.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// asNumbers converts both values to float64 for numeric comparison.
func asNumbers(a, b any) (float64, float64, bool) {
	na, oka := toFloat64(a)
	nb, okb := toFloat64(b)
	return na, nb, oka && okb
}
