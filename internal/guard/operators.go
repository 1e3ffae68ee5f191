package guard

import (
	"reflect"

	"github.com/roach88/cartridge/internal/ir"
)

// compare applies op to the resolved operands.
// An unrecognized operator never matches.
func compare(op ir.Operator, left, right any) bool {
	switch op {
	case ir.OpEQ:
		return equal(left, right)
	case ir.OpNE:
		return !equal(left, right)
	case ir.OpGT:
		cmp, ok := order(left, right)
		return ok && cmp > 0
	case ir.OpGTE:
		cmp, ok := order(left, right)
		return ok && cmp >= 0
	case ir.OpLT:
		cmp, ok := order(left, right)
		return ok && cmp < 0
	case ir.OpLTE:
		cmp, ok := order(left, right)
		return ok && cmp <= 0
	default:
		return false
	}
}

// equal compares with numeric type mixing. Undefined equals only undefined.
func equal(a, b any) bool {
	_, aUndef := a.(undefined)
	_, bUndef := b.(undefined)
	if aUndef || bUndef {
		return aUndef && bUndef
	}
	if na, nb, ok := asNumbers(a, b); ok {
		return na == nb
	}
	// DeepEqual never panics on uncomparable values such as maps and slices.
	return reflect.DeepEqual(a, b)
}

// order performs a three-way comparison. ok is false when the pair has no
// natural ordering: undefined, mixed types, booleans, or structured values.
func order(a, b any) (cmp int, ok bool) {
	if na, nb, numeric := asNumbers(a, b); numeric {
		switch {
		case na < nb:
			return -1, true
		case na > nb:
			return 1, true
		case na == nb:
			return 0, true
		}
		// NaN
		return 0, false
	}
	sa, aok := a.(string)
	sb, bok := b.(string)
	if aok && bok {
		switch {
		case sa < sb:
			return -1, true
		case sa > sb:
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
