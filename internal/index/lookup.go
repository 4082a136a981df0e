package index

import (
	"sort"
	"time"

	"github.com/tinyflux/tinyflux/internal/query"
)

// The methods below satisfy query.IndexView. Results are always built with
// query.NewRowSet rather than query.NewRowSetFromSorted: row-ids recorded
// during a rebuilt, out-of-time-order history are not guaranteed ascending
// in row-id space even though they are ascending in time, so the result
// must be (re-)sorted rather than assumed sorted.

// AllRows returns every row-id the index currently tracks.
func (idx *Index) AllRows() query.RowSet {
	return query.NewRowSet(idx.allRowIDs...)
}

// RowsInTimeRange returns the row-ids whose timestamp falls within
// [lo, hi], honoring the requested inclusivity on each bound. A nil bound
// means unbounded on that side.
func (idx *Index) RowsInTimeRange(lo *time.Time, loInclusive bool, hi *time.Time, hiInclusive bool) query.RowSet {
	ts := idx.timestamps
	start := 0
	if lo != nil {
		if loInclusive {
			start = sort.Search(len(ts), func(i int) bool { return !ts[i].t.Before(*lo) })
		} else {
			start = sort.Search(len(ts), func(i int) bool { return ts[i].t.After(*lo) })
		}
	}
	end := len(ts)
	if hi != nil {
		if hiInclusive {
			end = sort.Search(len(ts), func(i int) bool { return ts[i].t.After(*hi) })
		} else {
			end = sort.Search(len(ts), func(i int) bool { return !ts[i].t.Before(*hi) })
		}
	}
	if start >= end {
		return query.NewRowSet()
	}

	ids := make([]int, 0, end-start)
	for _, e := range ts[start:end] {
		ids = append(ids, e.rowID)
	}
	return query.NewRowSet(ids...)
}

// RowsForMeasurement returns the row-ids tagged with the given measurement.
func (idx *Index) RowsForMeasurement(name string) query.RowSet {
	id, ok := idx.measurements.lookup(name)
	if !ok {
		return query.NewRowSet()
	}
	return query.NewRowSet(idx.byMeasurement[id]...)
}

// RowsForTag returns the row-ids carrying the exact (key, value) tag pair.
func (idx *Index) RowsForTag(key, value string) query.RowSet {
	id, ok := idx.tagKeyNames.lookup(key)
	if !ok {
		return query.NewRowSet()
	}
	return query.NewRowSet(idx.byTag[tagKey{id, value}]...)
}

// RowsWithTagKey returns the row-ids that have any value for the given tag
// key.
func (idx *Index) RowsWithTagKey(key string) query.RowSet {
	id, ok := idx.tagKeyNames.lookup(key)
	if !ok {
		return query.NewRowSet()
	}
	return query.NewRowSet(idx.tagKeys[id]...)
}

// RowsWithFieldKey returns the row-ids that have any value for the given
// field key.
func (idx *Index) RowsWithFieldKey(key string) query.RowSet {
	id, ok := idx.fieldKeyNames.lookup(key)
	if !ok {
		return query.NewRowSet()
	}
	return query.NewRowSet(idx.fieldKeys[id]...)
}
