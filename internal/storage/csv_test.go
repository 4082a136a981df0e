package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCSVBackend(t *testing.T) *CSVBackend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "points.csv")
	b, err := NewCSVBackend(path)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestCSVBackend_AppendAndReadAll(t *testing.T) {
	b := newTestCSVBackend(t)

	id0, err := b.Append(RawRow{"2020-01-01T00:00:00", "m", "_tag_city", "LA"})
	require.NoError(t, err)
	assert.Equal(t, 0, id0)

	id1, err := b.Append(RawRow{"2020-01-02T00:00:00", "m", "_tag_city", "SF"})
	require.NoError(t, err)
	assert.Equal(t, 1, id1)

	rows, err := b.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "LA", rows[0].Raw[3])
	assert.Equal(t, "SF", rows[1].Raw[3])
}

func TestCSVBackend_RewriteSwapsAtomically(t *testing.T) {
	b := newTestCSVBackend(t)
	b.AppendMany([]RawRow{
		{"t0", "m"},
		{"t1", "m"},
		{"t2", "m"},
	})

	err := b.Rewrite([]RawRow{{"t1", "m"}})
	require.NoError(t, err)

	rows, err := b.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "t1", rows[0].Raw[0])
}

func TestCSVBackend_Len(t *testing.T) {
	b := newTestCSVBackend(t)
	b.AppendMany([]RawRow{{"t0", "m"}, {"t1", "m"}})

	n, err := b.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCSVBackend_EmptyValuesRoundTrip(t *testing.T) {
	b := newTestCSVBackend(t)
	b.Append(RawRow{"t0", "m", "_tag_city", ""})

	rows, err := b.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0].Raw[3])
}
