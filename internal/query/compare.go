package query

import "time"

// compare evaluates `lhs op rhs` across the value kinds a Point attribute can
// hold: time.Time, string, int64, float64, and bool. Operands of mismatched
// kind compare unequal (and fail ordering comparisons, which always yield
// false).
func compare(lhs interface{}, op ComparisonOp, rhs interface{}) bool {
	switch l := lhs.(type) {
	case time.Time:
		r, ok := rhs.(time.Time)
		if !ok {
			return op == OpNe
		}
		return compareOrdered(l.Compare(r), op)
	case string:
		r, ok := rhs.(string)
		if !ok {
			return op == OpNe
		}
		switch {
		case l < r:
			return compareOrdered(-1, op)
		case l > r:
			return compareOrdered(1, op)
		default:
			return compareOrdered(0, op)
		}
	case bool:
		r, ok := rhs.(bool)
		if !ok {
			return op == OpNe
		}
		if op == OpEq {
			return l == r
		}
		if op == OpNe {
			return l != r
		}
		return false
	case int64:
		return compareNumeric(float64(l), op, rhs)
	case float64:
		return compareNumeric(l, op, rhs)
	default:
		return op == OpNe
	}
}

func compareNumeric(l float64, op ComparisonOp, rhs interface{}) bool {
	var r float64
	switch v := rhs.(type) {
	case int64:
		r = float64(v)
	case float64:
		r = v
	default:
		return op == OpNe
	}
	switch {
	case l < r:
		return compareOrdered(-1, op)
	case l > r:
		return compareOrdered(1, op)
	default:
		return compareOrdered(0, op)
	}
}

// compareOrdered maps a three-way comparison result (-1, 0, 1) to the
// requested operator.
func compareOrdered(cmp int, op ComparisonOp) bool {
	switch op {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpLt:
		return cmp < 0
	case OpLe:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGe:
		return cmp >= 0
	default:
		return false
	}
}
