package query

import (
	"regexp"
	"time"
)

// TimeBuilder builds comparison leaves over the time attribute.
type TimeBuilder struct{}

// Time starts a query over the point's timestamp.
func Time() TimeBuilder { return TimeBuilder{} }

func (TimeBuilder) path() AttributePath { return AttributePath{Kind: PathTime} }

func (b TimeBuilder) Eq(t time.Time) Query { return ComparisonLeaf{Path: b.path(), Op: OpEq, Operand: t} }
func (b TimeBuilder) Ne(t time.Time) Query { return ComparisonLeaf{Path: b.path(), Op: OpNe, Operand: t} }
func (b TimeBuilder) Lt(t time.Time) Query { return ComparisonLeaf{Path: b.path(), Op: OpLt, Operand: t} }
func (b TimeBuilder) Le(t time.Time) Query { return ComparisonLeaf{Path: b.path(), Op: OpLe, Operand: t} }
func (b TimeBuilder) Gt(t time.Time) Query { return ComparisonLeaf{Path: b.path(), Op: OpGt, Operand: t} }
func (b TimeBuilder) Ge(t time.Time) Query { return ComparisonLeaf{Path: b.path(), Op: OpGe, Operand: t} }

// MeasurementBuilder builds leaves over the measurement attribute.
type MeasurementBuilder struct{}

// Measurement starts a query over the point's measurement name.
func Measurement() MeasurementBuilder { return MeasurementBuilder{} }

func (MeasurementBuilder) path() AttributePath { return AttributePath{Kind: PathMeasurement} }

func (b MeasurementBuilder) Eq(name string) Query {
	return ComparisonLeaf{Path: b.path(), Op: OpEq, Operand: name}
}

func (b MeasurementBuilder) Ne(name string) Query {
	return ComparisonLeaf{Path: b.path(), Op: OpNe, Operand: name}
}

// Matches compiles pattern as a fully-anchored regular expression tested
// against the measurement name.
func (b MeasurementBuilder) Matches(pattern string) (Query, error) {
	return compileRegex(b.path(), pattern, RegexMatches)
}

// Search compiles pattern as a substring regular expression tested against
// the measurement name.
func (b MeasurementBuilder) Search(pattern string) (Query, error) {
	return compileRegex(b.path(), pattern, RegexSearch)
}

// Noop returns a query that matches every point; it is the same value as
// Always.
func (MeasurementBuilder) Noop() Query { return Always }

// TagBuilder builds leaves scoped to a single tag key.
type TagBuilder struct {
	key string
}

// Tag starts a query over the given tag key.
func Tag(key string) TagBuilder { return TagBuilder{key: key} }

func (b TagBuilder) path() AttributePath { return AttributePath{Kind: PathTag, Key: b.key} }

func (b TagBuilder) Eq(value string) Query {
	return ComparisonLeaf{Path: b.path(), Op: OpEq, Operand: value}
}

func (b TagBuilder) Ne(value string) Query {
	return ComparisonLeaf{Path: b.path(), Op: OpNe, Operand: value}
}

func (b TagBuilder) Exists() Query { return ExistenceLeaf{Path: b.path()} }

// Matches compiles pattern as a fully-anchored regular expression tested
// against this tag's value.
func (b TagBuilder) Matches(pattern string) (Query, error) {
	return compileRegex(b.path(), pattern, RegexMatches)
}

// Search compiles pattern as a substring regular expression tested against
// this tag's value.
func (b TagBuilder) Search(pattern string) (Query, error) {
	return compileRegex(b.path(), pattern, RegexSearch)
}

// Map applies fn to the raw tag value and compares the result to operand.
func (b TagBuilder) Map(fn func(interface{}) interface{}) FieldTransformBuilder {
	return FieldTransformBuilder{path: b.path(), fn: fn}
}

// Test applies fn to the raw tag value and uses its boolean result directly.
func (b TagBuilder) Test(fn func(interface{}) bool) Query {
	return TestLeaf{Path: b.path(), Fn: fn}
}

// FieldBuilder builds leaves scoped to a single field key.
type FieldBuilder struct {
	key string
}

// Field starts a query over the given field key.
func Field(key string) FieldBuilder { return FieldBuilder{key: key} }

func (b FieldBuilder) path() AttributePath { return AttributePath{Kind: PathField, Key: b.key} }

func (b FieldBuilder) Eq(value interface{}) Query {
	return ComparisonLeaf{Path: b.path(), Op: OpEq, Operand: value}
}

func (b FieldBuilder) Ne(value interface{}) Query {
	return ComparisonLeaf{Path: b.path(), Op: OpNe, Operand: value}
}

func (b FieldBuilder) Lt(value interface{}) Query {
	return ComparisonLeaf{Path: b.path(), Op: OpLt, Operand: value}
}

func (b FieldBuilder) Le(value interface{}) Query {
	return ComparisonLeaf{Path: b.path(), Op: OpLe, Operand: value}
}

func (b FieldBuilder) Gt(value interface{}) Query {
	return ComparisonLeaf{Path: b.path(), Op: OpGt, Operand: value}
}

func (b FieldBuilder) Ge(value interface{}) Query {
	return ComparisonLeaf{Path: b.path(), Op: OpGe, Operand: value}
}

func (b FieldBuilder) Exists() Query { return ExistenceLeaf{Path: b.path()} }

// Map applies fn to the raw field value before comparison.
func (b FieldBuilder) Map(fn func(interface{}) interface{}) FieldTransformBuilder {
	return FieldTransformBuilder{path: b.path(), fn: fn}
}

// Test applies fn to the raw field value and uses its boolean result
// directly.
func (b FieldBuilder) Test(fn func(interface{}) bool) Query {
	return TestLeaf{Path: b.path(), Fn: fn}
}

// FieldTransformBuilder completes a Map(...) call with the comparison to run
// against the transformed value.
type FieldTransformBuilder struct {
	path AttributePath
	fn   func(interface{}) interface{}
}

func (b FieldTransformBuilder) Eq(operand interface{}) Query {
	return TransformLeaf{Path: b.path, Fn: b.fn, Op: OpEq, Operand: operand}
}

func (b FieldTransformBuilder) Ne(operand interface{}) Query {
	return TransformLeaf{Path: b.path, Fn: b.fn, Op: OpNe, Operand: operand}
}

func (b FieldTransformBuilder) Lt(operand interface{}) Query {
	return TransformLeaf{Path: b.path, Fn: b.fn, Op: OpLt, Operand: operand}
}

func (b FieldTransformBuilder) Le(operand interface{}) Query {
	return TransformLeaf{Path: b.path, Fn: b.fn, Op: OpLe, Operand: operand}
}

func (b FieldTransformBuilder) Gt(operand interface{}) Query {
	return TransformLeaf{Path: b.path, Fn: b.fn, Op: OpGt, Operand: operand}
}

func (b FieldTransformBuilder) Ge(operand interface{}) Query {
	return TransformLeaf{Path: b.path, Fn: b.fn, Op: OpGe, Operand: operand}
}

func compileRegex(path AttributePath, pattern string, mode RegexMode) (Query, error) {
	expr := pattern
	if mode == RegexMatches {
		expr = "^(?:" + pattern + ")$"
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, newRegexError(err)
	}
	return RegexLeaf{Path: path, Mode: mode, Pattern: re, Raw: pattern}, nil
}
