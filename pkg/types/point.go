package types

import (
	"fmt"
	"time"

	tferrors "github.com/tinyflux/tinyflux/internal/errors"
)

// DefaultMeasurementName is stamped onto a Point when no measurement is given.
const DefaultMeasurementName = "_default"

// TagSet maps tag keys to tag values. Both keys and values are strings; the
// empty string is a valid value.
type TagSet map[string]string

// FieldValue is restricted to int64, float64, bool, and string. Any other
// concrete type fails validation.
type FieldValue interface{}

// FieldSet maps field keys to field values.
type FieldSet map[string]FieldValue

// Point is the only data type the engine handles directly: a timestamp,
// measurement name, tag set, and field set. HasTime false means
// "unstamped"; the engine fills in Time at insert time.
type Point struct {
	Time        time.Time
	HasTime     bool
	Measurement string
	Tags        TagSet
	Fields      FieldSet
}

// NewPoint builds a Point from the given attributes, defaulting measurement
// to DefaultMeasurementName and tags/fields to empty sets. It validates tags
// and fields and returns a *errors.TinyFluxError on the first violation.
func NewPoint(t time.Time, hasTime bool, measurement string, tags TagSet, fields FieldSet) (*Point, error) {
	if measurement == "" {
		measurement = DefaultMeasurementName
	}
	if tags == nil {
		tags = TagSet{}
	}
	if fields == nil {
		fields = FieldSet{}
	}

	if err := ValidateTags(tags); err != nil {
		return nil, err
	}
	if err := ValidateFields(fields); err != nil {
		return nil, err
	}

	p := &Point{
		Measurement: measurement,
		Tags:        tags,
		Fields:      fields,
	}
	if hasTime {
		p.Time = t.UTC()
		p.HasTime = true
	}

	return p, nil
}

// NewPointUnchecked builds a Point without running tag/field validation. It
// exists for the deserialization path, where rows originate from storage
// already written by a validated Point and re-validating on every read
// would be pure overhead.
func NewPointUnchecked(t time.Time, hasTime bool, measurement string, tags TagSet, fields FieldSet) *Point {
	if measurement == "" {
		measurement = DefaultMeasurementName
	}
	if tags == nil {
		tags = TagSet{}
	}
	if fields == nil {
		fields = FieldSet{}
	}
	p := &Point{
		Measurement: measurement,
		Tags:        tags,
		Fields:      fields,
	}
	if hasTime {
		p.Time = t.UTC()
		p.HasTime = true
	}
	return p
}

// ValidateTags checks that every tag key is non-empty. Go's type system
// already enforces string keys and values at the TagSet type level;
// this exists so callers building a TagSet from untyped data (e.g. a
// deserialized config or a dynamic updater) get the same typed error the
// engine would raise on construction.
func ValidateTags(tags TagSet) error {
	for k := range tags {
		if k == "" {
			return tferrors.NewValidationError(
				tferrors.CodeInvalidTags, "tag keys must be non-empty strings",
			)
		}
	}
	return nil
}

// ValidateFields checks that every field value is one of int64, float64,
// bool, or string.
func ValidateFields(fields FieldSet) error {
	for k, v := range fields {
		if k == "" {
			return tferrors.NewValidationError(
				tferrors.CodeInvalidFields, "field keys must be non-empty strings",
			)
		}
		switch v.(type) {
		case int64, float64, bool, string:
			continue
		default:
			return tferrors.NewValidationError(
				tferrors.CodeInvalidFields,
				fmt.Sprintf("field %q has unsupported type %T", k, v),
			)
		}
	}
	return nil
}

// Equal reports whether two points are structurally equivalent across all
// four attributes, after UTC normalization.
func (p *Point) Equal(other *Point) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.HasTime != other.HasTime {
		return false
	}
	if p.HasTime && !p.Time.Equal(other.Time) {
		return false
	}
	if p.Measurement != other.Measurement {
		return false
	}
	if len(p.Tags) != len(other.Tags) {
		return false
	}
	for k, v := range p.Tags {
		if ov, ok := other.Tags[k]; !ok || ov != v {
			return false
		}
	}
	if len(p.Fields) != len(other.Fields) {
		return false
	}
	for k, v := range p.Fields {
		ov, ok := other.Fields[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// String returns a printable representation of the point.
func (p *Point) String() string {
	timeStr := "unstamped"
	if p.HasTime {
		timeStr = p.Time.Format(time.RFC3339Nano)
	}
	s := fmt.Sprintf("Point(time=%s, measurement=%s", timeStr, p.Measurement)
	if len(p.Tags) > 0 {
		s += fmt.Sprintf(", tags=%v", map[string]string(p.Tags))
	}
	if len(p.Fields) > 0 {
		s += fmt.Sprintf(", fields=%v", map[string]FieldValue(p.Fields))
	}
	s += ")"
	return s
}

// Clone returns a deep copy of the point.
func (p *Point) Clone() *Point {
	tags := make(TagSet, len(p.Tags))
	for k, v := range p.Tags {
		tags[k] = v
	}
	fields := make(FieldSet, len(p.Fields))
	for k, v := range p.Fields {
		fields[k] = v
	}
	return &Point{
		Time:        p.Time,
		HasTime:     p.HasTime,
		Measurement: p.Measurement,
		Tags:        tags,
		Fields:      fields,
	}
}
