package query

import "time"

// PartialEval computes the (candidate_row_ids, residual) pair for q against
// idx. This is the entry point the engine calls before scanning storage.
func PartialEval(q Query, idx IndexView) (RowSet, Query) {
	return q.PartialEval(idx)
}

func (l ComparisonLeaf) PartialEval(idx IndexView) (RowSet, Query) {
	switch l.Path.Kind {
	case PathTime:
		t, ok := l.Operand.(time.Time)
		if !ok {
			return idx.AllRows(), l
		}
		switch l.Op {
		case OpEq:
			return idx.RowsInTimeRange(&t, true, &t, true), Always
		case OpNe:
			eq := idx.RowsInTimeRange(&t, true, &t, true)
			return eq.Complement(idx.AllRows()), Always
		case OpLt:
			return idx.RowsInTimeRange(nil, false, &t, false), Always
		case OpLe:
			return idx.RowsInTimeRange(nil, false, &t, true), Always
		case OpGt:
			return idx.RowsInTimeRange(&t, false, nil, false), Always
		case OpGe:
			return idx.RowsInTimeRange(&t, true, nil, false), Always
		}
		return idx.AllRows(), l

	case PathMeasurement:
		name, ok := l.Operand.(string)
		if !ok {
			return idx.AllRows(), l
		}
		switch l.Op {
		case OpEq:
			return idx.RowsForMeasurement(name), Always
		case OpNe:
			eq := idx.RowsForMeasurement(name)
			return eq.Complement(idx.AllRows()), Always
		}
		return idx.AllRows(), l

	case PathTag:
		value, ok := l.Operand.(string)
		if !ok || l.Op != OpEq {
			return idx.AllRows(), l
		}
		return idx.RowsForTag(l.Path.Key, value), Always

	default:
		return idx.AllRows(), l
	}
}

func (l ExistenceLeaf) PartialEval(idx IndexView) (RowSet, Query) {
	switch l.Path.Kind {
	case PathTag:
		return idx.RowsWithTagKey(l.Path.Key), Always
	case PathField:
		return idx.RowsWithFieldKey(l.Path.Key), Always
	default:
		return idx.AllRows(), l
	}
}

func (l RegexLeaf) PartialEval(idx IndexView) (RowSet, Query) {
	return idx.AllRows(), l
}

// PartialEval implements the "not Q" rule: when Q resolves exactly (residual
// is Always), the complement of its candidate set is exact too. Otherwise
// index pruning gives up and the whole negation becomes the residual.
func (q NotQuery) PartialEval(idx IndexView) (RowSet, Query) {
	cand, residual := q.Q.PartialEval(idx)
	if isAlways(residual) {
		return cand.Complement(idx.AllRows()), Always
	}
	return idx.AllRows(), q
}

func (q AndQuery) PartialEval(idx IndexView) (RowSet, Query) {
	candA, residualA := q.A.PartialEval(idx)
	candB, residualB := q.B.PartialEval(idx)
	cand := candA.Intersect(candB)

	switch {
	case isAlways(residualA) && isAlways(residualB):
		return cand, Always
	case isAlways(residualA):
		return cand, residualB
	case isAlways(residualB):
		return cand, residualA
	default:
		return cand, And(residualA, residualB)
	}
}

func (q OrQuery) PartialEval(idx IndexView) (RowSet, Query) {
	candA, residualA := q.A.PartialEval(idx)
	candB, residualB := q.B.PartialEval(idx)

	if isAlways(residualA) && isAlways(residualB) {
		return candA.Union(candB), Always
	}
	return idx.AllRows(), q
}
