package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteBackend(t *testing.T) *SQLiteBackend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "points.db")
	b, err := NewSQLiteBackend(path)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestSQLiteBackend_AppendAssignsDenseIDs(t *testing.T) {
	b := newTestSQLiteBackend(t)

	id0, err := b.Append(RawRow{"t0", "m"})
	require.NoError(t, err)
	id1, err := b.Append(RawRow{"t1", "m"})
	require.NoError(t, err)

	assert.Equal(t, 0, id0)
	assert.Equal(t, 1, id1)
}

func TestSQLiteBackend_ReadAllPreservesOrder(t *testing.T) {
	b := newTestSQLiteBackend(t)
	b.AppendMany([]RawRow{{"t0", "m"}, {"t1", "m"}, {"t2", "m"}})

	rows, err := b.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, row := range rows {
		assert.Equal(t, i, row.ID)
	}
}

func TestSQLiteBackend_RewriteReplacesAndRenumbers(t *testing.T) {
	b := newTestSQLiteBackend(t)
	b.AppendMany([]RawRow{{"t0", "m"}, {"t1", "m"}, {"t2", "m"}})

	require.NoError(t, b.Rewrite([]RawRow{{"t1", "m"}}))

	rows, err := b.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 0, rows[0].ID)
	assert.Equal(t, "t1", rows[0].Raw[0])
}

func TestSQLiteBackend_Len(t *testing.T) {
	b := newTestSQLiteBackend(t)
	b.AppendMany([]RawRow{{"t0", "m"}, {"t1", "m"}})

	n, err := b.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
