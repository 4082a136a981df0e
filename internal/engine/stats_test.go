package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyflux/tinyflux/internal/observability"
	"github.com/tinyflux/tinyflux/internal/query"
	"github.com/tinyflux/tinyflux/internal/storage"
)

func TestEngine_RecordsFastPathScan(t *testing.T) {
	stats := observability.NewQueryStats(time.Hour)
	e := New(storage.NewMemoryBackend(), Config{AutoIndex: true, Stats: stats})

	_, err := e.Insert(point(t, time.Now(), "m", nil, nil))
	require.NoError(t, err)

	_, err = e.Count(query.Always)
	require.NoError(t, err)

	snap := stats.Snapshot()
	assert.Equal(t, int64(1), snap.TotalReads)
	assert.Equal(t, int64(1), snap.IndexFastPaths)
}

func TestEngine_RecordsRebuildOnOutOfOrderInsert(t *testing.T) {
	stats := observability.NewQueryStats(time.Hour)
	e := New(storage.NewMemoryBackend(), Config{AutoIndex: true, Stats: stats})

	base := time.Now()
	_, err := e.Insert(point(t, base, "m", nil, nil))
	require.NoError(t, err)
	_, err = e.Insert(point(t, base.Add(-time.Hour), "m", nil, nil))
	require.NoError(t, err)

	_, err = e.All(true)
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.Snapshot().RebuildCount)
}
