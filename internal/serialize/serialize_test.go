package serialize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyflux/tinyflux/pkg/types"
)

func TestSerialize_RoundTrip(t *testing.T) {
	ts := time.Date(2020, 3, 4, 12, 30, 0, 0, time.UTC)
	p, err := types.NewPoint(ts, true, "weather", types.TagSet{"city": "LA"}, types.FieldSet{
		"temp": 72.5,
		"ok":   true,
		"note": "clear",
		"n":    int64(7),
	})
	require.NoError(t, err)

	row := Serialize(p, false)
	got, err := Deserialize(row)
	require.NoError(t, err)

	assert.True(t, got.Equal(p))
}

func TestSerialize_CompactPrefix(t *testing.T) {
	p, err := types.NewPoint(time.Time{}, false, "m", types.TagSet{"city": "LA"}, types.FieldSet{"temp": 1.0})
	require.NoError(t, err)

	row := Serialize(p, true)
	assert.Contains(t, row, "t_city")
	assert.Contains(t, row, "f_temp")
}

func TestSerialize_UnstampedTimeIsEmptyString(t *testing.T) {
	p, err := types.NewPoint(time.Time{}, false, "m", nil, nil)
	require.NoError(t, err)

	row := Serialize(p, false)
	assert.Equal(t, "", row[0])

	got, err := Deserialize(row)
	require.NoError(t, err)
	assert.False(t, got.HasTime)
}

func TestSerialize_ZeroFloatKeepsDecimalPoint(t *testing.T) {
	p, err := types.NewPoint(time.Time{}, false, "m", nil, types.FieldSet{"x": 0.0})
	require.NoError(t, err)

	row := Serialize(p, false)
	got, err := Deserialize(row)
	require.NoError(t, err)

	assert.Equal(t, 0.0, got.Fields["x"])
	assert.IsType(t, float64(0), got.Fields["x"])
}

func TestSerialize_EmptyStringTagValueRoundTrips(t *testing.T) {
	p, err := types.NewPoint(time.Time{}, false, "m", types.TagSet{"city": ""}, nil)
	require.NoError(t, err)

	row := Serialize(p, false)
	got, err := Deserialize(row)
	require.NoError(t, err)

	assert.Equal(t, "", got.Tags["city"])
}

func TestSerialize_StringFieldLookingLikeANumberStaysAString(t *testing.T) {
	p, err := types.NewPoint(time.Time{}, false, "m", nil, types.FieldSet{"code": "007"})
	require.NoError(t, err)

	row := Serialize(p, false)
	got, err := Deserialize(row)
	require.NoError(t, err)

	assert.Equal(t, "007", got.Fields["code"])
	assert.IsType(t, "", got.Fields["code"])
}

func TestSerialize_MixedPrefixesInSameRow(t *testing.T) {
	row := []string{"", "m", "__tag__city", "LA", "f_temp", "3.5"}
	got, err := Deserialize(row)
	require.NoError(t, err)

	assert.Equal(t, "LA", got.Tags["city"])
	assert.Equal(t, 3.5, got.Fields["temp"])
}

func TestDeserialize_RejectsShortRow(t *testing.T) {
	_, err := Deserialize([]string{"only-time"})
	assert.Error(t, err)
}
