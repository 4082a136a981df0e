package engine

import (
	"time"

	"github.com/tinyflux/tinyflux/internal/query"
	"github.com/tinyflux/tinyflux/pkg/types"
)

// MeasurementView wraps an Engine scoped to one measurement name: it
// prepends `measurement == name` to every query via and, stamps inserted
// points' measurement to name, and forwards everything else unchanged.
type MeasurementView struct {
	engine *Engine
	name   string
}

// Measurement returns a view of e scoped to the given measurement name.
func (e *Engine) Measurement(name string) *MeasurementView {
	return &MeasurementView{engine: e, name: name}
}

func (m *MeasurementView) scope(q query.Query) query.Query {
	if q == nil {
		q = query.Always
	}
	return query.And(query.Measurement().Eq(m.name), q)
}

// Insert stamps p's measurement to this view's name and inserts it.
func (m *MeasurementView) Insert(p *types.Point) (int, error) {
	stamped := p.Clone()
	stamped.Measurement = m.name
	return m.engine.Insert(stamped)
}

// InsertMultiple stamps every point's measurement to this view's name and
// inserts them in batches.
func (m *MeasurementView) InsertMultiple(points []*types.Point, batchSize int) ([]int, error) {
	stamped := make([]*types.Point, len(points))
	for i, p := range points {
		cp := p.Clone()
		cp.Measurement = m.name
		stamped[i] = cp
	}
	return m.engine.InsertMultiple(stamped, batchSize)
}

// All returns every point in this measurement.
func (m *MeasurementView) All(sorted bool) ([]*types.Point, error) {
	return m.Search(query.Always, sorted)
}

// Search returns every point in this measurement matching q.
func (m *MeasurementView) Search(q query.Query, sorted bool) ([]*types.Point, error) {
	return m.engine.Search(m.scope(q), sorted)
}

// Contains reports whether any point in this measurement matches q.
func (m *MeasurementView) Contains(q query.Query) (bool, error) {
	return m.engine.Contains(m.scope(q))
}

// Count returns the number of points in this measurement matching q.
func (m *MeasurementView) Count(q query.Query) (int, error) {
	return m.engine.Count(m.scope(q))
}

// Get returns the first point in this measurement matching q, in sorted
// order.
func (m *MeasurementView) Get(q query.Query) (*types.Point, bool, error) {
	return m.engine.Get(m.scope(q))
}

// Select returns the requested attribute values for every matching point
// in this measurement.
func (m *MeasurementView) Select(paths []query.AttributePath, q query.Query) ([][]interface{}, error) {
	return m.engine.Select(paths, m.scope(q))
}

// Update rewrites every point in this measurement matching q.
func (m *MeasurementView) Update(q query.Query, spec UpdateSpec) error {
	return m.engine.Update(m.scope(q), spec)
}

// UpdateAll applies spec to every point in this measurement.
func (m *MeasurementView) UpdateAll(spec UpdateSpec) error {
	return m.engine.Update(m.scope(query.Always), spec)
}

// Remove drops every point in this measurement matching q.
func (m *MeasurementView) Remove(q query.Query) error {
	return m.engine.Remove(m.scope(q))
}

// RemoveAll drops every point in this measurement, leaving other
// measurements untouched.
func (m *MeasurementView) RemoveAll() error {
	return m.engine.Remove(m.scope(query.Always))
}

// TagKeys returns every distinct tag key present on a point in this
// measurement.
func (m *MeasurementView) TagKeys() ([]string, error) {
	matches, err := m.engine.scanMatches(m.scope(query.Always))
	if err != nil {
		return nil, err
	}
	set := map[string]struct{}{}
	for _, mr := range matches {
		for k := range mr.p.Tags {
			set[k] = struct{}{}
		}
	}
	return sortedSetKeys(set), nil
}

// FieldKeys returns every distinct field key present on a point in this
// measurement.
func (m *MeasurementView) FieldKeys() ([]string, error) {
	matches, err := m.engine.scanMatches(m.scope(query.Always))
	if err != nil {
		return nil, err
	}
	set := map[string]struct{}{}
	for _, mr := range matches {
		for k := range mr.p.Fields {
			set[k] = struct{}{}
		}
	}
	return sortedSetKeys(set), nil
}

// TagValues returns every distinct value recorded under key within this
// measurement.
func (m *MeasurementView) TagValues(key string) ([]string, error) {
	matches, err := m.engine.scanMatches(m.scope(query.Tag(key).Exists()))
	if err != nil {
		return nil, err
	}
	set := map[string]struct{}{}
	for _, mr := range matches {
		set[mr.p.Tags[key]] = struct{}{}
	}
	return sortedSetKeys(set), nil
}

// FieldValues returns every distinct value recorded under key within this
// measurement.
func (m *MeasurementView) FieldValues(key string) ([]types.FieldValue, error) {
	matches, err := m.engine.scanMatches(m.scope(query.Field(key).Exists()))
	if err != nil {
		return nil, err
	}
	seen := map[interface{}]struct{}{}
	values := make([]types.FieldValue, 0)
	for _, mr := range matches {
		v := mr.p.Fields[key]
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	return values, nil
}

// Timestamps returns every timestamp within this measurement, ascending.
func (m *MeasurementView) Timestamps() ([]time.Time, error) {
	points, err := m.All(true)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, len(points))
	for i, p := range points {
		out[i] = p.Time
	}
	return out, nil
}
