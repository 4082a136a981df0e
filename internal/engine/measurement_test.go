package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyflux/tinyflux/pkg/types"
)

func TestMeasurementView_TagAndFieldKeysAreScoped(t *testing.T) {
	e := newEngine()
	_, err := e.Insert(point(t, time.Now(), "A", types.TagSet{"city": "LA"}, types.FieldSet{"aqi": int64(1)}))
	require.NoError(t, err)
	_, err = e.Insert(point(t, time.Now(), "B", types.TagSet{"other": "x"}, types.FieldSet{"temp": 1.0}))
	require.NoError(t, err)

	view := e.Measurement("A")

	tagKeys, err := view.TagKeys()
	require.NoError(t, err)
	assert.Equal(t, []string{"city"}, tagKeys)

	fieldKeys, err := view.FieldKeys()
	require.NoError(t, err)
	assert.Equal(t, []string{"aqi"}, fieldKeys)

	values, err := view.TagValues("city")
	require.NoError(t, err)
	assert.Equal(t, []string{"LA"}, values)

	fieldValues, err := view.FieldValues("aqi")
	require.NoError(t, err)
	assert.Equal(t, []types.FieldValue{int64(1)}, fieldValues)
}

func TestMeasurementView_RemoveAllOnlyAffectsItsMeasurement(t *testing.T) {
	e := newEngine()
	_, err := e.Insert(point(t, time.Now(), "A", nil, nil))
	require.NoError(t, err)
	_, err = e.Insert(point(t, time.Now(), "B", nil, nil))
	require.NoError(t, err)

	require.NoError(t, e.Measurement("A").RemoveAll())

	all, err := e.All(false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "B", all[0].Measurement)
}

func TestMeasurementView_UpdateAllOnlyAffectsItsMeasurement(t *testing.T) {
	e := newEngine()
	_, err := e.Insert(point(t, time.Now(), "A", nil, nil))
	require.NoError(t, err)
	_, err = e.Insert(point(t, time.Now(), "B", nil, nil))
	require.NoError(t, err)

	err = e.Measurement("A").UpdateAll(UpdateSpec{
		Tags: func(types.TagSet) types.TagSet { return types.TagSet{"stamped": "yes"} },
	})
	require.NoError(t, err)

	all, err := e.All(false)
	require.NoError(t, err)
	for _, p := range all {
		_, stamped := p.Tags["stamped"]
		assert.Equal(t, p.Measurement == "A", stamped)
	}
}
