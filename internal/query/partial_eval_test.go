package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinyflux/tinyflux/pkg/types"
)

// fakeIndex is a minimal in-memory IndexView for exercising PartialEval
// without depending on internal/index (which itself depends on this
// package).
type fakeIndex struct {
	all          RowSet
	byMeasure    map[string]RowSet
	byTag        map[[2]string]RowSet
	byTagKey     map[string]RowSet
	byFieldKey   map[string]RowSet
	timestamps   []time.Time // parallel to row-ids 0..N-1, ascending
}

func (f *fakeIndex) AllRows() RowSet { return f.all }

func (f *fakeIndex) RowsInTimeRange(lo *time.Time, loInclusive bool, hi *time.Time, hiInclusive bool) RowSet {
	var out []int
	for id, ts := range f.timestamps {
		if lo != nil {
			if loInclusive && ts.Before(*lo) {
				continue
			}
			if !loInclusive && !ts.After(*lo) {
				continue
			}
		}
		if hi != nil {
			if hiInclusive && ts.After(*hi) {
				continue
			}
			if !hiInclusive && !ts.Before(*hi) {
				continue
			}
		}
		out = append(out, id)
	}
	return NewRowSet(out...)
}

func (f *fakeIndex) RowsForMeasurement(name string) RowSet { return f.byMeasure[name] }
func (f *fakeIndex) RowsForTag(key, value string) RowSet   { return f.byTag[[2]string{key, value}] }
func (f *fakeIndex) RowsWithTagKey(key string) RowSet      { return f.byTagKey[key] }
func (f *fakeIndex) RowsWithFieldKey(key string) RowSet    { return f.byFieldKey[key] }

func newFakeIndex() *fakeIndex {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	return &fakeIndex{
		all: NewRowSet(0, 1, 2, 3),
		byMeasure: map[string]RowSet{
			"A": NewRowSet(0, 1),
			"B": NewRowSet(2, 3),
		},
		byTag: map[[2]string]RowSet{
			{"city", "LA"}: NewRowSet(0, 2),
			{"city", "SF"}: NewRowSet(1, 3),
		},
		byTagKey: map[string]RowSet{
			"city": NewRowSet(0, 1, 2, 3),
		},
		byFieldKey: map[string]RowSet{
			"aqi": NewRowSet(0, 1, 2, 3),
		},
		timestamps: []time.Time{
			base,
			base.Add(1 * time.Hour),
			base.Add(2 * time.Hour),
			base.Add(3 * time.Hour),
		},
	}
}

func TestPartialEval_MeasurementEquality(t *testing.T) {
	idx := newFakeIndex()
	cand, residual := PartialEval(Measurement().Eq("A"), idx)
	assert.True(t, isAlways(residual))
	assert.Equal(t, []int{0, 1}, cand.ToSlice())
}

func TestPartialEval_TagEquality(t *testing.T) {
	idx := newFakeIndex()
	cand, residual := PartialEval(Tag("city").Eq("LA"), idx)
	assert.True(t, isAlways(residual))
	assert.Equal(t, []int{0, 2}, cand.ToSlice())
}

func TestPartialEval_And(t *testing.T) {
	idx := newFakeIndex()
	q := And(Measurement().Eq("A"), Tag("city").Eq("LA"))
	cand, residual := PartialEval(q, idx)
	assert.True(t, isAlways(residual))
	assert.Equal(t, []int{0}, cand.ToSlice())
}

func TestPartialEval_Or_BothSupported(t *testing.T) {
	idx := newFakeIndex()
	q := Or(Measurement().Eq("A"), Tag("city").Eq("SF"))
	cand, residual := PartialEval(q, idx)
	assert.True(t, isAlways(residual))
	assert.Equal(t, []int{0, 1, 3}, cand.ToSlice())
}

func TestPartialEval_FieldComparisonUnsupported(t *testing.T) {
	idx := newFakeIndex()
	q := Field("aqi").Gt(int64(100))
	cand, residual := PartialEval(q, idx)
	assert.False(t, isAlways(residual))
	assert.Equal(t, idx.AllRows().ToSlice(), cand.ToSlice())
}

func TestPartialEval_Not_FullySupported(t *testing.T) {
	idx := newFakeIndex()
	q := Not(Measurement().Eq("A"))
	cand, residual := PartialEval(q, idx)
	assert.True(t, isAlways(residual))
	assert.Equal(t, []int{2, 3}, cand.ToSlice())
}

func TestPartialEval_Not_Unsupported_FallsBackToScan(t *testing.T) {
	idx := newFakeIndex()
	q := Not(Field("aqi").Gt(int64(100)))
	cand, residual := PartialEval(q, idx)
	assert.False(t, isAlways(residual))
	assert.Equal(t, idx.AllRows().ToSlice(), cand.ToSlice())
}

func TestPartialEval_TimeRange(t *testing.T) {
	idx := newFakeIndex()
	lo := idx.timestamps[1]
	hi := idx.timestamps[2]
	q := And(Time().Ge(lo), Time().Le(hi))
	cand, residual := PartialEval(q, idx)
	assert.True(t, isAlways(residual))
	assert.Equal(t, []int{1, 2}, cand.ToSlice())
}

func TestPartialEval_SoundnessAgainstEval(t *testing.T) {
	idx := newFakeIndex()
	points := []struct {
		id   int
		m    string
		city string
		ts   time.Time
	}{
		{0, "A", "LA", idx.timestamps[0]},
		{1, "A", "SF", idx.timestamps[1]},
		{2, "B", "LA", idx.timestamps[2]},
		{3, "B", "SF", idx.timestamps[3]},
	}

	q := Or(Measurement().Eq("A"), Tag("city").Eq("SF"))
	cand, residual := q.PartialEval(idx)
	require.True(t, isAlways(residual))

	for _, pt := range points {
		p := mustPoint(t, pt.ts, true, pt.m, types.TagSet{"city": pt.city}, nil)
		assert.Equal(t, q.Eval(p), cand.Contains(pt.id) && residual.Eval(p), "row %d", pt.id)
	}
	// The candidate set must equal exactly {0,1,3}: A-measurement rows
	// {0,1} unioned with city=SF rows {1,3}.
	assert.Equal(t, []int{0, 1, 3}, cand.ToSlice())
}
