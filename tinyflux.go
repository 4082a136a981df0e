// Package tinyflux is a tiny, file-backed time-series datastore. It wraps
// an append-only storage backend (in-memory, CSV, or SQLite) with an
// in-memory inverted index so that time-range, measurement, and tag
// lookups avoid a full scan whenever the index is valid, and a composable
// query algebra for filtering on time, measurement, tags, and fields.
package tinyflux

import (
	"time"

	"github.com/tinyflux/tinyflux/internal/engine"
	"github.com/tinyflux/tinyflux/internal/observability"
	"github.com/tinyflux/tinyflux/internal/storage"
	"github.com/tinyflux/tinyflux/pkg/types"
)

// Point is a single time-series observation: a timestamp, a measurement
// name, a set of string tags, and a set of typed fields.
type Point = types.Point

// TagSet maps tag keys to their string values.
type TagSet = types.TagSet

// FieldValue is the dynamic value type a field may hold: int64, float64,
// bool, or string.
type FieldValue = types.FieldValue

// FieldSet maps field keys to their values.
type FieldSet = types.FieldSet

// DefaultMeasurementName is stamped onto a Point whose Measurement is
// left blank.
const DefaultMeasurementName = types.DefaultMeasurementName

// NewPoint validates and constructs a Point. hasTime false leaves the
// point unstamped; DB.Insert stamps it with the current UTC time on
// write.
func NewPoint(t time.Time, hasTime bool, measurement string, tags TagSet, fields FieldSet) (*Point, error) {
	return types.NewPoint(t, hasTime, measurement, tags, fields)
}

// Config controls a DB's storage backend and engine behavior.
type Config struct {
	// AutoIndex rebuilds the index before a read whenever it has gone
	// stale. Disabling it means reads over a stale index fall back to a
	// full scan instead of paying a rebuild; fast paths come back once
	// Reindex, Update, Remove or RemoveAll rebuilds the index. A valid
	// index is used for reads either way.
	AutoIndex bool

	// CompactKeys selects the t_/f_ prefix convention on writes instead
	// of __tag__/__field__. Either convention is accepted on read
	// regardless of this setting.
	CompactKeys bool

	// Stats, when non-nil, records read-path statistics: index-fast-path
	// versus full-scan counts, candidate-set sizes, and rebuild counts.
	// The engine does not record attribute-path query frequency.
	Stats *observability.QueryStats
}

// DefaultConfig returns a Config with auto-indexing on and the full
// __tag__/__field__ prefix convention.
func DefaultConfig() Config {
	return Config{AutoIndex: true}
}

// DB is a TinyFlux database: one storage backend plus the index and query
// engine over it. A DB is not safe for concurrent use; callers wanting
// concurrent access provide their own mutual exclusion around it.
type DB struct {
	eng *engine.Engine
}

// Open opens a DB backed by a CSV file at path, creating it if it doesn't
// already exist.
func Open(path string, cfg Config) (*DB, error) {
	backend, err := storage.NewCSVBackend(path)
	if err != nil {
		return nil, err
	}
	return newDB(backend, cfg), nil
}

// OpenSQLite opens a DB backed by a SQLite file at path.
func OpenSQLite(path string, cfg Config) (*DB, error) {
	backend, err := storage.NewSQLiteBackend(path)
	if err != nil {
		return nil, err
	}
	return newDB(backend, cfg), nil
}

// OpenMemory opens a DB backed by a process-local, non-persistent store.
// Useful for tests and scratch pipelines.
func OpenMemory(cfg Config) *DB {
	return newDB(storage.NewMemoryBackend(), cfg)
}

func newDB(backend storage.Backend, cfg Config) *DB {
	return &DB{eng: engine.New(backend, engine.Config{
		AutoIndex:   cfg.AutoIndex,
		CompactKeys: cfg.CompactKeys,
		Stats:       cfg.Stats,
	})}
}

// Close releases the underlying backend's resources.
func (db *DB) Close() error {
	return db.eng.Close()
}

// Insert appends one point, stamping the current UTC time if it is
// unstamped, and returns its assigned row-id.
func (db *DB) Insert(p *Point) (int, error) {
	return db.eng.Insert(p)
}

// InsertMultiple appends points in order, batchSize at a time, and
// returns their assigned row-ids in the same order.
func (db *DB) InsertMultiple(points []*Point, batchSize int) ([]int, error) {
	return db.eng.InsertMultiple(points, batchSize)
}

// All returns every point, sorted by time ascending unless sorted is
// false, in which case points are returned in storage scan order.
func (db *DB) All(sorted bool) ([]*Point, error) {
	return db.eng.All(sorted)
}

// Search returns every point matching q.
func (db *DB) Search(q Query, sorted bool) ([]*Point, error) {
	return db.eng.Search(q, sorted)
}

// Contains reports whether any point matches q.
func (db *DB) Contains(q Query) (bool, error) {
	return db.eng.Contains(q)
}

// Count returns the number of points matching q.
func (db *DB) Count(q Query) (int, error) {
	return db.eng.Count(q)
}

// Get returns the first point matching q in sorted order (time ascending,
// row-id ascending on ties), and false if nothing matches.
func (db *DB) Get(q Query) (*Point, bool, error) {
	return db.eng.Get(q)
}

// Select returns, for every point matching q in sorted order, the values
// at the requested attribute paths.
func (db *DB) Select(paths []AttributePath, q Query) ([][]interface{}, error) {
	return db.eng.Select(paths, q)
}

// Update rewrites every point matching q according to spec.
func (db *DB) Update(q Query, spec UpdateSpec) error {
	return db.eng.Update(q, spec)
}

// UpdateAll applies spec to every point in the database.
func (db *DB) UpdateAll(spec UpdateSpec) error {
	return db.eng.UpdateAll(spec)
}

// Remove drops every point matching q.
func (db *DB) Remove(q Query) error {
	return db.eng.Remove(q)
}

// RemoveAll drops every point in the database.
func (db *DB) RemoveAll() error {
	return db.eng.RemoveAll()
}

// Reindex forces a full index rebuild regardless of AutoIndex.
func (db *DB) Reindex() error {
	return db.eng.Reindex()
}

// Len returns the current row count.
func (db *DB) Len() (int, error) {
	return db.eng.Len()
}

// Measurements returns every distinct measurement name.
func (db *DB) Measurements() ([]string, error) {
	return db.eng.Measurements()
}

// TagKeys returns every distinct tag key across the whole database.
func (db *DB) TagKeys() ([]string, error) {
	return db.eng.TagKeys()
}

// FieldKeys returns every distinct field key across the whole database.
func (db *DB) FieldKeys() ([]string, error) {
	return db.eng.FieldKeys()
}

// TagValues returns every distinct value recorded under the given tag
// key.
func (db *DB) TagValues(key string) ([]string, error) {
	return db.eng.TagValues(key)
}

// FieldValues returns every distinct value recorded for the given field
// key.
func (db *DB) FieldValues(key string) ([]FieldValue, error) {
	return db.eng.FieldValues(key)
}

// Timestamps returns every row's timestamp, ascending.
func (db *DB) Timestamps() ([]time.Time, error) {
	return db.eng.Timestamps()
}

// Measurement returns a view of db scoped to one measurement name: reads
// only see that measurement's points, and writes through it are stamped
// with that name.
func (db *DB) Measurement(name string) *MeasurementView {
	return &MeasurementView{view: db.eng.Measurement(name)}
}

// MeasurementView wraps a DB scoped to one measurement name.
type MeasurementView struct {
	view *engine.MeasurementView
}

// Insert stamps p's measurement to this view's name and inserts it.
func (m *MeasurementView) Insert(p *Point) (int, error) { return m.view.Insert(p) }

// InsertMultiple stamps every point's measurement to this view's name and
// inserts them in batches.
func (m *MeasurementView) InsertMultiple(points []*Point, batchSize int) ([]int, error) {
	return m.view.InsertMultiple(points, batchSize)
}

// All returns every point in this measurement.
func (m *MeasurementView) All(sorted bool) ([]*Point, error) { return m.view.All(sorted) }

// Search returns every point in this measurement matching q.
func (m *MeasurementView) Search(q Query, sorted bool) ([]*Point, error) {
	return m.view.Search(q, sorted)
}

// Contains reports whether any point in this measurement matches q.
func (m *MeasurementView) Contains(q Query) (bool, error) { return m.view.Contains(q) }

// Count returns the number of points in this measurement matching q.
func (m *MeasurementView) Count(q Query) (int, error) { return m.view.Count(q) }

// Get returns the first point in this measurement matching q, in sorted
// order.
func (m *MeasurementView) Get(q Query) (*Point, bool, error) { return m.view.Get(q) }

// Select returns the requested attribute values for every matching point
// in this measurement.
func (m *MeasurementView) Select(paths []AttributePath, q Query) ([][]interface{}, error) {
	return m.view.Select(paths, q)
}

// Update rewrites every point in this measurement matching q.
func (m *MeasurementView) Update(q Query, spec UpdateSpec) error { return m.view.Update(q, spec) }

// UpdateAll applies spec to every point in this measurement.
func (m *MeasurementView) UpdateAll(spec UpdateSpec) error { return m.view.UpdateAll(spec) }

// Remove drops every point in this measurement matching q.
func (m *MeasurementView) Remove(q Query) error { return m.view.Remove(q) }

// RemoveAll drops every point in this measurement, leaving other
// measurements untouched.
func (m *MeasurementView) RemoveAll() error { return m.view.RemoveAll() }

// TagKeys returns every distinct tag key present on a point in this
// measurement.
func (m *MeasurementView) TagKeys() ([]string, error) { return m.view.TagKeys() }

// FieldKeys returns every distinct field key present on a point in this
// measurement.
func (m *MeasurementView) FieldKeys() ([]string, error) { return m.view.FieldKeys() }

// TagValues returns every distinct value recorded under key within this
// measurement.
func (m *MeasurementView) TagValues(key string) ([]string, error) { return m.view.TagValues(key) }

// FieldValues returns every distinct value recorded under key within this
// measurement.
func (m *MeasurementView) FieldValues(key string) ([]FieldValue, error) {
	return m.view.FieldValues(key)
}

// Timestamps returns every timestamp within this measurement, ascending.
func (m *MeasurementView) Timestamps() ([]time.Time, error) { return m.view.Timestamps() }

// UpdateSpec describes a rewrite applied to every point an Update call
// matches. Tags and Fields are merge-not-replace: the callable only needs
// to return the keys it wants to add or change, omitted keys are kept.
// UnsetTags/UnsetFields remove keys after the merge.
type UpdateSpec = engine.UpdateSpec
