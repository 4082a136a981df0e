package index

import (
	"sort"

	"github.com/tinyflux/tinyflux/internal/serialize"
	"github.com/tinyflux/tinyflux/internal/storage"
	"github.com/tinyflux/tinyflux/pkg/types"
)

// Rebuild discards the current index contents and replays every row
// currently in backend, sorted by time ascending with row-id as a stable
// tie-break. It is the only path back to valid=true once an out-of-order
// insert or a bulk rewrite has invalidated the index.
func (idx *Index) Rebuild(backend storage.Backend) error {
	rows, err := backend.ReadAll()
	if err != nil {
		return err
	}

	type entry struct {
		rowID int
		p     *types.Point
	}
	entries := make([]entry, 0, len(rows))
	for _, row := range rows {
		p, err := serialize.Deserialize(row.Raw)
		if err != nil {
			return err
		}
		entries = append(entries, entry{rowID: row.ID, p: p})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		ti, tj := entries[i].p.Time, entries[j].p.Time
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return entries[i].rowID < entries[j].rowID
	})

	idx.reset()
	for _, e := range entries {
		idx.appendEntry(e.rowID, e.p)
	}
	idx.valid = true

	return nil
}
