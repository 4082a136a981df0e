// Package engine implements the read/write core: insert, search, and the
// update/remove rewrite path over a storage backend and its index.
package engine

import (
	"sort"
	"time"

	tferrors "github.com/tinyflux/tinyflux/internal/errors"
	"github.com/tinyflux/tinyflux/internal/index"
	"github.com/tinyflux/tinyflux/internal/observability"
	"github.com/tinyflux/tinyflux/internal/query"
	"github.com/tinyflux/tinyflux/internal/serialize"
	"github.com/tinyflux/tinyflux/internal/storage"
	"github.com/tinyflux/tinyflux/pkg/types"
)

// Config controls engine-wide behavior.
type Config struct {
	// AutoIndex rebuilds the index before a read whenever it has gone
	// stale. Disabling it means reads over a stale index fall back to a
	// full scan instead of paying a rebuild; fast paths come back once
	// Reindex, Update, Remove or RemoveAll rebuilds the index. A valid
	// index is used for reads either way.
	AutoIndex bool
	// CompactKeys selects the t_/f_ prefix convention on writes instead
	// of __tag__/__field__.
	CompactKeys bool
	// Stats, when non-nil, records read-path behavior: whether a read
	// used the index fast path or fell back to a full scan, and how
	// many times the index had to rebuild.
	Stats *observability.QueryStats
}

// Engine owns one storage backend and its index exclusively. It is not
// safe for concurrent use; callers wanting concurrency provide their own
// mutual exclusion around it.
type Engine struct {
	backend storage.Backend
	idx     *index.Index
	cfg     Config
}

// New wraps backend with an engine using the given configuration. The
// index starts empty; if backend already has rows Reindex must be called
// (or a first auto-indexed read will do it).
func New(backend storage.Backend, cfg Config) *Engine {
	e := &Engine{
		backend: backend,
		idx:     index.New(),
		cfg:     cfg,
	}
	if n, err := backend.Len(); err == nil && n > 0 {
		e.idx.Invalidate()
	}
	return e
}

// Insert appends one point, stamping the current UTC time if it is
// unstamped, and returns its assigned row-id.
func (e *Engine) Insert(p *types.Point) (int, error) {
	stamped := stampIfUnset(p)
	row := serialize.Serialize(stamped, e.cfg.CompactKeys)

	id, err := e.backend.Append(row)
	if err != nil {
		return 0, err
	}
	e.idx.Insert(id, stamped)
	return id, nil
}

// InsertMultiple appends points in iteration order, batch_size at a time,
// and returns their assigned row-ids in the same order. batchSize must be
// at least 1.
func (e *Engine) InsertMultiple(points []*types.Point, batchSize int) ([]int, error) {
	if batchSize < 1 {
		return nil, tferrors.NewValidationError(
			tferrors.CodeInvalidBatchSize, "batch_size must be at least 1",
		)
	}

	ids := make([]int, 0, len(points))
	for start := 0; start < len(points); start += batchSize {
		end := start + batchSize
		if end > len(points) {
			end = len(points)
		}

		batch := points[start:end]
		stamped := make([]*types.Point, len(batch))
		rows := make([]storage.RawRow, len(batch))
		for i, p := range batch {
			stamped[i] = stampIfUnset(p)
			rows[i] = serialize.Serialize(stamped[i], e.cfg.CompactKeys)
		}

		batchIDs, err := e.backend.AppendMany(rows)
		if err != nil {
			return ids, err
		}
		for i, id := range batchIDs {
			e.idx.Insert(id, stamped[i])
		}
		ids = append(ids, batchIDs...)
	}

	return ids, nil
}

func stampIfUnset(p *types.Point) *types.Point {
	if p.HasTime {
		return p
	}
	stamped := p.Clone()
	stamped.Time = time.Now().UTC()
	stamped.HasTime = true
	return stamped
}

// ensureIndex rebuilds a stale index when auto-indexing is on, and reports
// whether the index can now be trusted for an index-only read.
func (e *Engine) ensureIndex() (bool, error) {
	if e.cfg.AutoIndex && !e.idx.IsValid() {
		if err := e.idx.Rebuild(e.backend); err != nil {
			return false, err
		}
		if e.cfg.Stats != nil {
			e.cfg.Stats.RecordRebuild()
		}
	}
	return e.idx.IsValid(), nil
}

type matchedRow struct {
	id int
	p  *types.Point
}

// candidatesFor returns the candidate row-id set and residual predicate for
// q. When the index is valid this is the index's partial evaluation; when
// it is not (auto-index disabled, or a stale index the caller hasn't
// rebuilt), the index cannot be trusted for even a row-id enumeration, so
// every row currently in the backend is a candidate and the full query
// becomes the residual.
func (e *Engine) candidatesFor(q query.Query, rows []storage.StoredRow) (query.RowSet, query.Query, error) {
	valid, err := e.ensureIndex()
	if err != nil {
		return query.RowSet{}, nil, err
	}
	if valid {
		candidates, residual := query.PartialEval(q, e.idx)
		if e.cfg.Stats != nil {
			e.cfg.Stats.RecordScan(true, candidates.Len(), len(rows))
		}
		return candidates, residual, nil
	}

	ids := make([]int, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	if e.cfg.Stats != nil {
		e.cfg.Stats.RecordScan(false, len(rows), len(rows))
	}
	return query.NewRowSet(ids...), q, nil
}

// scanMatches computes the candidate set for q, scans the backend once,
// and returns every row whose id is a candidate and whose materialized
// point satisfies the residual predicate.
func (e *Engine) scanMatches(q query.Query) ([]matchedRow, error) {
	rows, err := e.backend.ReadAll()
	if err != nil {
		return nil, err
	}
	candidates, residual, err := e.candidatesFor(q, rows)
	if err != nil {
		return nil, err
	}

	matches := make([]matchedRow, 0)
	for _, row := range rows {
		if !candidates.Contains(row.ID) {
			continue
		}
		p, err := serialize.Deserialize(row.Raw)
		if err != nil {
			return nil, err
		}
		if residual.Eval(p) {
			matches = append(matches, matchedRow{id: row.ID, p: p})
		}
	}
	return matches, nil
}

func sortMatches(matches []matchedRow) {
	sort.SliceStable(matches, func(i, j int) bool {
		ti, tj := matches[i].p.Time, matches[j].p.Time
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return matches[i].id < matches[j].id
	})
}

// Search returns every point matching q. Results are sorted by time
// ascending (row-id ascending on ties) unless sorted is false, in which
// case they are returned in storage scan order.
func (e *Engine) Search(q query.Query, sorted bool) ([]*types.Point, error) {
	matches, err := e.scanMatches(q)
	if err != nil {
		return nil, err
	}
	if sorted {
		sortMatches(matches)
	}
	points := make([]*types.Point, len(matches))
	for i, m := range matches {
		points[i] = m.p
	}
	return points, nil
}

// Contains reports whether any point matches q, short-circuiting on the
// first hit instead of scanning the whole candidate set.
func (e *Engine) Contains(q query.Query) (bool, error) {
	rows, err := e.backend.ReadAll()
	if err != nil {
		return false, err
	}
	candidates, residual, err := e.candidatesFor(q, rows)
	if err != nil {
		return false, err
	}
	for _, row := range rows {
		if !candidates.Contains(row.ID) {
			continue
		}
		p, err := serialize.Deserialize(row.Raw)
		if err != nil {
			return false, err
		}
		if residual.Eval(p) {
			return true, nil
		}
	}
	return false, nil
}

// Count returns the number of points matching q.
func (e *Engine) Count(q query.Query) (int, error) {
	matches, err := e.scanMatches(q)
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}

// Get returns the first point matching q in sorted order (time ascending,
// row-id ascending on ties), and false if nothing matches.
func (e *Engine) Get(q query.Query) (*types.Point, bool, error) {
	matches, err := e.scanMatches(q)
	if err != nil {
		return nil, false, err
	}
	if len(matches) == 0 {
		return nil, false, nil
	}
	sortMatches(matches)
	return matches[0].p, true, nil
}

// Select returns, for every point matching q in sorted order, the values
// at the requested attribute paths, in the same order as paths. A missing
// attribute on a given point yields nil for that column.
func (e *Engine) Select(paths []query.AttributePath, q query.Query) ([][]interface{}, error) {
	for _, path := range paths {
		if path.Kind < query.PathTime || path.Kind > query.PathField {
			return nil, tferrors.NewLookupError(
				tferrors.CodeUnknownPath, "select: unknown attribute path",
			)
		}
	}

	matches, err := e.scanMatches(q)
	if err != nil {
		return nil, err
	}
	sortMatches(matches)

	rows := make([][]interface{}, len(matches))
	for i, m := range matches {
		row := make([]interface{}, len(paths))
		for j, path := range paths {
			v, ok := query.Resolve(m.p, path)
			if ok {
				row[j] = v
			}
		}
		rows[i] = row
	}
	return rows, nil
}

// All returns every point, sorted by time ascending unless sorted is
// false.
func (e *Engine) All(sorted bool) ([]*types.Point, error) {
	return e.Search(query.Always, sorted)
}

// Iterate is an alias for All: full enumeration, sorted or insertion
// order.
func (e *Engine) Iterate(sorted bool) ([]*types.Point, error) {
	return e.All(sorted)
}

// Reindex forces a full rebuild regardless of AutoIndex.
func (e *Engine) Reindex() error {
	return e.idx.Rebuild(e.backend)
}

// Len returns the current row count.
func (e *Engine) Len() (int, error) {
	return e.backend.Len()
}

// Close releases the underlying backend's resources.
func (e *Engine) Close() error {
	return e.backend.Close()
}

// Measurements returns every distinct measurement name, sourced from the
// index when valid, otherwise from a full scan.
func (e *Engine) Measurements() ([]string, error) {
	valid, err := e.ensureIndex()
	if err != nil {
		return nil, err
	}
	if valid {
		return e.idx.MeasurementNames(), nil
	}
	return e.scanDistinctSingle(func(p *types.Point) string { return p.Measurement })
}

// TagKeys returns every distinct tag key across the whole backend.
func (e *Engine) TagKeys() ([]string, error) {
	valid, err := e.ensureIndex()
	if err != nil {
		return nil, err
	}
	if valid {
		return e.idx.TagKeyNames(), nil
	}
	return e.scanDistinctMulti(func(p *types.Point) []string {
		keys := make([]string, 0, len(p.Tags))
		for k := range p.Tags {
			keys = append(keys, k)
		}
		return keys
	})
}

// FieldKeys returns every distinct field key across the whole backend.
func (e *Engine) FieldKeys() ([]string, error) {
	valid, err := e.ensureIndex()
	if err != nil {
		return nil, err
	}
	if valid {
		return e.idx.FieldKeyNames(), nil
	}
	return e.scanDistinctMulti(func(p *types.Point) []string {
		keys := make([]string, 0, len(p.Fields))
		for k := range p.Fields {
			keys = append(keys, k)
		}
		return keys
	})
}

// TagValues returns every distinct value recorded under the given tag key.
func (e *Engine) TagValues(key string) ([]string, error) {
	valid, err := e.ensureIndex()
	if err != nil {
		return nil, err
	}
	if valid {
		return e.idx.TagValuesForKey(key), nil
	}
	return e.scanDistinctPresent(func(p *types.Point) (string, bool) {
		v, ok := p.Tags[key]
		return v, ok
	})
}

// FieldValues returns every distinct value recorded for the given field
// key. Field values are never index-backed (fields are indexed only by
// key), so this always deserializes the rows where the field is present;
// the index is still used to prune the scan down to those rows.
func (e *Engine) FieldValues(key string) ([]types.FieldValue, error) {
	matches, err := e.scanMatches(query.Field(key).Exists())
	if err != nil {
		return nil, err
	}
	seen := map[interface{}]struct{}{}
	values := make([]types.FieldValue, 0)
	for _, m := range matches {
		v := m.p.Fields[key]
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	return values, nil
}

// Timestamps returns every row's timestamp, ascending, sourced from the
// index when valid, otherwise from a full scan.
func (e *Engine) Timestamps() ([]time.Time, error) {
	valid, err := e.ensureIndex()
	if err != nil {
		return nil, err
	}
	if valid {
		return e.idx.AllTimestampsSorted(), nil
	}
	points, err := e.All(true)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, len(points))
	for i, p := range points {
		out[i] = p.Time
	}
	return out, nil
}
