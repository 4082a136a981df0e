package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyflux/tinyflux/internal/query"
	"github.com/tinyflux/tinyflux/internal/storage"
	"github.com/tinyflux/tinyflux/pkg/types"
)

func newEngine() *Engine {
	return New(storage.NewMemoryBackend(), Config{AutoIndex: true})
}

func point(t *testing.T, when time.Time, measurement string, tags types.TagSet, fields types.FieldSet) *types.Point {
	t.Helper()
	p, err := types.NewPoint(when, true, measurement, tags, fields)
	require.NoError(t, err)
	return p
}

// Scenario 1: insert two points, filter by time and by field comparison.
func TestEngine_Scenario_TimeAndFieldFilters(t *testing.T) {
	e := newEngine()

	laTime := time.Date(2020, 8, 28, 0, 0, 0, 0, time.FixedZone("PDT", -7*3600))
	sfTime := time.Date(2020, 12, 5, 0, 0, 0, 0, time.FixedZone("PST", -8*3600))

	_, err := e.Insert(point(t, laTime, "", types.TagSet{"city": "LA"}, types.FieldSet{"aqi": int64(112)}))
	require.NoError(t, err)
	_, err = e.Insert(point(t, sfTime, "", types.TagSet{"city": "SF"}, types.FieldSet{"aqi": int64(128)}))
	require.NoError(t, err)

	cutoff := time.Date(2020, 11, 1, 0, 0, 0, 0, time.UTC)
	n, err := e.Count(query.Time().Ge(cutoff))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	matches, err := e.Search(query.Field("aqi").Gt(int64(120)), true)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "SF", matches[0].Tags["city"])

	measurements, err := e.Measurements()
	require.NoError(t, err)
	assert.Equal(t, []string{types.DefaultMeasurementName}, measurements)
}

// Scenario 2: an out-of-order insert invalidates the index; the next read
// rebuilds it.
func TestEngine_Scenario_OutOfOrderInvalidatesThenRebuilds(t *testing.T) {
	e := newEngine()
	base := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		_, err := e.Insert(point(t, base.Add(time.Duration(i)*time.Hour), "m", nil, nil))
		require.NoError(t, err)
	}
	_, err := e.Insert(point(t, base.Add(-time.Hour), "m", nil, nil))
	require.NoError(t, err)

	assert.False(t, e.idx.IsValid())

	all, err := e.All(true)
	require.NoError(t, err)
	assert.Len(t, all, 11)
	assert.True(t, e.idx.IsValid())
}

// Scenario 3: update_all merges tags additively; a later unset_tags call
// removes only the named key.
func TestEngine_Scenario_UpdateAllTagsAreAdditive(t *testing.T) {
	e := newEngine()
	_, err := e.Insert(point(t, time.Now(), "m", types.TagSet{"room": "bedroom"}, nil))
	require.NoError(t, err)
	_, err = e.Insert(point(t, time.Now(), "m", types.TagSet{"room": "kitchen"}, nil))
	require.NoError(t, err)

	err = e.UpdateAll(UpdateSpec{
		Tags: func(tags types.TagSet) types.TagSet {
			return types.TagSet{"state": "CA"}
		},
	})
	require.NoError(t, err)

	all, err := e.All(true)
	require.NoError(t, err)
	for _, p := range all {
		assert.Equal(t, "CA", p.Tags["state"])
		assert.Contains(t, []string{"bedroom", "kitchen"}, p.Tags["room"])
	}

	err = e.UpdateAll(UpdateSpec{UnsetTags: []string{"room"}})
	require.NoError(t, err)

	all, err = e.All(true)
	require.NoError(t, err)
	for _, p := range all {
		_, hasRoom := p.Tags["room"]
		assert.False(t, hasRoom)
		assert.Equal(t, "CA", p.Tags["state"])
	}
}

// Scenario 4: a measurement view only sees its own measurement's points.
func TestEngine_Scenario_MeasurementViewIsScoped(t *testing.T) {
	e := newEngine()
	for i := 0; i < 50; i++ {
		_, err := e.Insert(point(t, time.Now(), "A", nil, nil))
		require.NoError(t, err)
	}
	for i := 0; i < 50; i++ {
		_, err := e.Insert(point(t, time.Now(), "B", nil, nil))
		require.NoError(t, err)
	}

	view := e.Measurement("A")
	all, err := view.All(false)
	require.NoError(t, err)
	assert.Len(t, all, 50)
	for _, p := range all {
		assert.Equal(t, "A", p.Measurement)
	}

	_, err = view.Insert(point(t, time.Now(), "ignored", nil, nil))
	require.NoError(t, err)

	all, err = view.All(false)
	require.NoError(t, err)
	assert.Len(t, all, 51)
}

// Scenario 5: the index range fast path restricts the materialized scan to
// the matching candidate rows.
func TestEngine_Scenario_TimeRangeUsesIndexFastPath(t *testing.T) {
	e := newEngine()
	base := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		_, err := e.Insert(point(t, base.Add(time.Duration(i)*time.Hour), "m", nil, nil))
		require.NoError(t, err)
	}

	lo := base.Add(5 * time.Hour)
	hi := base.Add(10 * time.Hour)
	q := query.And(query.Time().Ge(lo), query.Time().Lt(hi))

	matches, err := e.scanMatches(q)
	require.NoError(t, err)
	assert.Len(t, matches, 5)

	rows, err := e.backend.ReadAll()
	require.NoError(t, err)
	candidates, _, err := e.candidatesFor(q, rows)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6, 7, 8, 9}, candidates.ToSlice())
}

// Scenario 6: compact-prefix serialization round-trips through a fresh
// engine over the same backend.
func TestEngine_Scenario_CompactSerializationRoundTrips(t *testing.T) {
	backend := storage.NewMemoryBackend()
	e1 := New(backend, Config{AutoIndex: true, CompactKeys: true})

	p := point(t, time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), "m", types.TagSet{"city": "LA"}, types.FieldSet{"aqi": int64(42)})
	_, err := e1.Insert(p)
	require.NoError(t, err)

	e2 := New(backend, Config{AutoIndex: true})
	all, err := e2.All(true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Equal(p))
}

func TestEngine_ContainsMatchesCount(t *testing.T) {
	e := newEngine()
	_, err := e.Insert(point(t, time.Now(), "m", nil, types.FieldSet{"x": int64(1)}))
	require.NoError(t, err)

	q := query.Field("x").Eq(int64(1))
	ok, err := e.Contains(q)
	require.NoError(t, err)
	n, err := e.Count(q)
	require.NoError(t, err)
	assert.Equal(t, n > 0, ok)
}

func TestEngine_GetTieBreaksByRowID(t *testing.T) {
	e := newEngine()
	ts := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := e.Insert(point(t, ts, "m", types.TagSet{"who": "first"}, nil))
	require.NoError(t, err)
	_, err = e.Insert(point(t, ts, "m", types.TagSet{"who": "second"}, nil))
	require.NoError(t, err)

	got, ok, err := e.Get(query.Measurement().Eq("m"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", got.Tags["who"])
}

func TestEngine_RemoveAllEmptiesIndex(t *testing.T) {
	e := newEngine()
	_, err := e.Insert(point(t, time.Now(), "m", nil, nil))
	require.NoError(t, err)

	require.NoError(t, e.RemoveAll())

	n, err := e.Count(query.Always)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.True(t, e.idx.IsValid())
}

func TestEngine_InsertMultipleRejectsBadBatchSize(t *testing.T) {
	e := newEngine()
	_, err := e.InsertMultiple([]*types.Point{point(t, time.Now(), "m", nil, nil)}, 0)
	assert.Error(t, err)
}

func TestEngine_SelectUnknownPathErrors(t *testing.T) {
	e := newEngine()
	_, err := e.Select([]query.AttributePath{{Kind: query.PathKind(99)}}, query.Always)
	assert.Error(t, err)
}
