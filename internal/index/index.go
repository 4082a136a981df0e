// Package index maintains the in-memory inverted index over a storage
// backend: a time-sorted row sequence plus per-measurement, per-tag, and
// per-key lookup tables. The index is advisory: when it goes stale,
// Rebuild restores it with a full scan. Lookups do not check validity and
// return whatever the index last recorded, so a caller checks IsValid first
// and, while it is false, falls back to a full scan and residual
// evaluation (as the engine does).
package index

import (
	"time"

	"github.com/tinyflux/tinyflux/pkg/types"
)

// tagKey identifies a (key, value) pair. The key half is interned since a
// handful of tag keys repeat across every row; the value half is left as a
// raw string since tag values carry much higher cardinality and rarely
// repeat enough to be worth a second table.
type tagKey struct {
	keyID int
	value string
}

type timeEntry struct {
	t     time.Time
	rowID int
}

// Index is not safe for concurrent use. Callers that share one across
// goroutines must serialize access themselves, matching the engine's
// single-threaded contract.
type Index struct {
	timestamps    []timeEntry
	allRowIDs     []int
	measurements  *table
	tagKeyNames   *table
	fieldKeyNames *table
	byMeasurement map[int][]int
	byTag         map[tagKey][]int
	tagKeys       map[int][]int
	fieldKeys     map[int][]int

	valid   bool
	empty   bool
	maxTime time.Time
}

// New returns an empty, valid index.
func New() *Index {
	idx := &Index{}
	idx.reset()
	return idx
}

func (idx *Index) reset() {
	idx.timestamps = nil
	idx.allRowIDs = nil
	idx.measurements = newTable()
	idx.tagKeyNames = newTable()
	idx.fieldKeyNames = newTable()
	idx.byMeasurement = map[int][]int{}
	idx.byTag = map[tagKey][]int{}
	idx.tagKeys = map[int][]int{}
	idx.fieldKeys = map[int][]int{}
	idx.valid = true
	idx.empty = true
	idx.maxTime = time.Time{}
}

// IsValid reports whether the index currently reflects the backend's
// contents. A caller should Rebuild before trusting lookups when this is
// false.
func (idx *Index) IsValid() bool {
	return idx.valid
}

// RowCount returns the number of rows the index currently tracks.
func (idx *Index) RowCount() int {
	return len(idx.allRowIDs)
}

// Insert incrementally folds one row into the index. Rows must be
// presented in non-decreasing time order (the order the engine assigns
// row-ids in); a row older than the newest one seen so far invalidates the
// index instead of being folded in; so the caller is expected to Rebuild
// before the next read that needs exact results.
func (idx *Index) Insert(rowID int, p *types.Point) {
	if !idx.valid {
		return
	}
	if !idx.empty && p.Time.Before(idx.maxTime) {
		idx.valid = false
		return
	}
	idx.appendEntry(rowID, p)
}

// Invalidate forces the index stale without mutating its contents. The
// engine calls this when it is opened over a backend that already holds
// rows; bulk rewrites (update/remove) call Rebuild directly instead.
func (idx *Index) Invalidate() {
	idx.valid = false
}

func (idx *Index) appendEntry(rowID int, p *types.Point) {
	idx.timestamps = append(idx.timestamps, timeEntry{t: p.Time, rowID: rowID})
	idx.allRowIDs = append(idx.allRowIDs, rowID)

	mID := idx.measurements.intern(p.Measurement)
	idx.byMeasurement[mID] = append(idx.byMeasurement[mID], rowID)

	for k, v := range p.Tags {
		kID := idx.tagKeyNames.intern(k)
		idx.byTag[tagKey{kID, v}] = append(idx.byTag[tagKey{kID, v}], rowID)
		idx.tagKeys[kID] = append(idx.tagKeys[kID], rowID)
	}
	for k := range p.Fields {
		kID := idx.fieldKeyNames.intern(k)
		idx.fieldKeys[kID] = append(idx.fieldKeys[kID], rowID)
	}

	idx.maxTime = p.Time
	idx.empty = false
}
