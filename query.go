package tinyflux

import "github.com/tinyflux/tinyflux/internal/query"

// Query is a composable predicate over a Point: a leaf comparison,
// existence check, regex match, transform, or test, combined with Not,
// And, or Or.
type Query = query.Query

// AttributePath identifies a point attribute for Select: the timestamp,
// the measurement, a tag key, or a field key.
type AttributePath = query.AttributePath

// Always matches every point.
var Always = query.Always

// Not negates q.
func Not(q Query) Query { return query.Not(q) }

// And matches points satisfying both a and b.
func And(a, b Query) Query { return query.And(a, b) }

// Or matches points satisfying either a or b.
func Or(a, b Query) Query { return query.Or(a, b) }

// Time starts a query over a point's timestamp.
func Time() query.TimeBuilder { return query.Time() }

// Measurement starts a query over a point's measurement name.
func Measurement() query.MeasurementBuilder { return query.Measurement() }

// Tag starts a query over the given tag key.
func Tag(key string) query.TagBuilder { return query.Tag(key) }

// Field starts a query over the given field key.
func Field(key string) query.FieldBuilder { return query.Field(key) }
