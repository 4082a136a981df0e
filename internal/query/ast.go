// Package query implements the predicate algebra points are tested against:
// a tree of leaves and boolean combinators that can be evaluated directly
// against a materialized point, or partially evaluated against an index to
// prune a scan down to a candidate row-id set plus a residual predicate.
package query

import (
	"fmt"

	"github.com/tinyflux/tinyflux/pkg/types"
)

// PathKind distinguishes the four attribute dimensions a leaf can navigate.
type PathKind int

const (
	PathTime PathKind = iota
	PathMeasurement
	PathTag
	PathField
)

// AttributePath identifies one attribute of a Point. Key is only meaningful
// for PathTag and PathField.
type AttributePath struct {
	Kind PathKind
	Key  string
}

func (p AttributePath) String() string {
	switch p.Kind {
	case PathTime:
		return "time"
	case PathMeasurement:
		return "measurement"
	case PathTag:
		return fmt.Sprintf("tags.%s", p.Key)
	case PathField:
		return fmt.Sprintf("fields.%s", p.Key)
	default:
		return "unknown"
	}
}

// ComparisonOp is one of the six relational operators a comparison leaf may
// use.
type ComparisonOp int

const (
	OpEq ComparisonOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

// Query is the evaluable predicate tree. Every node can test a materialized
// point directly, and can attempt a partial evaluation against an index.
type Query interface {
	queryNode()
	// Eval reports whether p satisfies this query. Missing attributes
	// referenced by a comparison or transform leaf evaluate to false.
	Eval(p *types.Point) bool
	// PartialEval attempts to answer this query using only the index,
	// returning a candidate row-id set and a residual query that must
	// still be evaluated against materialized points drawn from that
	// set. A residual of Always means the candidate set is exact.
	PartialEval(idx IndexView) (RowSet, Query)
	fmt.Stringer
}

// trueQuery is the residual sentinel meaning "the candidate set is exact,
// no further filtering is required."
type trueQuery struct{}

func (trueQuery) queryNode() {}

func (trueQuery) Eval(*types.Point) bool { return true }

func (t trueQuery) PartialEval(idx IndexView) (RowSet, Query) {
	return idx.AllRows(), t
}

func (trueQuery) String() string { return "true" }

// Always is the residual meaning a candidate set fully answers a query.
var Always Query = trueQuery{}

func isAlways(q Query) bool {
	_, ok := q.(trueQuery)
	return ok
}

// ComparisonLeaf compares the value at Path to Operand using Op.
type ComparisonLeaf struct {
	Path    AttributePath
	Op      ComparisonOp
	Operand interface{}
}

func (ComparisonLeaf) queryNode() {}

func (l ComparisonLeaf) Eval(p *types.Point) bool {
	v, ok := resolve(p, l.Path)
	if !ok {
		return false
	}
	return compare(v, l.Op, l.Operand)
}

func (l ComparisonLeaf) String() string {
	return fmt.Sprintf("%s %s %v", l.Path, opString(l.Op), l.Operand)
}

// ExistenceLeaf tests whether Path is present on the point (only meaningful
// for tags.<key> and fields.<key>).
type ExistenceLeaf struct {
	Path AttributePath
}

func (ExistenceLeaf) queryNode() {}

func (l ExistenceLeaf) Eval(p *types.Point) bool {
	_, ok := resolve(p, l.Path)
	return ok
}

func (l ExistenceLeaf) String() string {
	return fmt.Sprintf("%s exists", l.Path)
}

// RegexMode distinguishes a full-string match from a substring search.
type RegexMode int

const (
	RegexMatches RegexMode = iota // anchored, full-string
	RegexSearch                   // substring
)

// Matcher is satisfied by *regexp.Regexp; kept as an interface so this
// package never needs to import regexp directly in the AST definitions.
type Matcher interface {
	MatchString(s string) bool
}

// RegexLeaf tests a measurement or tag-value path against a compiled
// pattern.
type RegexLeaf struct {
	Path    AttributePath
	Mode    RegexMode
	Pattern Matcher
	// Raw is the original pattern source, kept for String().
	Raw string
}

func (RegexLeaf) queryNode() {}

func (l RegexLeaf) Eval(p *types.Point) bool {
	v, ok := resolve(p, l.Path)
	if !ok {
		return false
	}
	s, ok := v.(string)
	if !ok {
		return false
	}
	return l.Pattern.MatchString(s)
}

func (l RegexLeaf) String() string {
	verb := "matches"
	if l.Mode == RegexSearch {
		verb = "search"
	}
	return fmt.Sprintf("%s %s /%s/", l.Path, verb, l.Raw)
}

// TransformLeaf applies Fn to the raw attribute value before comparing the
// result to Operand with Op. Transforms never take the index fast path.
type TransformLeaf struct {
	Path    AttributePath
	Fn      func(interface{}) interface{}
	Op      ComparisonOp
	Operand interface{}
}

func (TransformLeaf) queryNode() {}

func (l TransformLeaf) Eval(p *types.Point) bool {
	v, ok := resolve(p, l.Path)
	if !ok {
		return false
	}
	return compare(l.Fn(v), l.Op, l.Operand)
}

func (l TransformLeaf) String() string {
	return fmt.Sprintf("%s.map(...) %s %v", l.Path, opString(l.Op), l.Operand)
}

func (l TransformLeaf) PartialEval(idx IndexView) (RowSet, Query) {
	return idx.AllRows(), l
}

// TestLeaf applies Fn to the raw attribute value and uses the boolean result
// directly. Like TransformLeaf, it never takes the index fast path.
type TestLeaf struct {
	Path AttributePath
	Fn   func(interface{}) bool
}

func (TestLeaf) queryNode() {}

func (l TestLeaf) Eval(p *types.Point) bool {
	v, ok := resolve(p, l.Path)
	if !ok {
		return false
	}
	return l.Fn(v)
}

func (l TestLeaf) String() string {
	return fmt.Sprintf("%s.test(...)", l.Path)
}

func (l TestLeaf) PartialEval(idx IndexView) (RowSet, Query) {
	return idx.AllRows(), l
}

// NotQuery negates Q.
type NotQuery struct {
	Q Query
}

func (NotQuery) queryNode() {}

func (q NotQuery) Eval(p *types.Point) bool {
	return !q.Q.Eval(p)
}

func (q NotQuery) String() string {
	return fmt.Sprintf("not (%s)", q.Q)
}

// AndQuery is the logical conjunction of A and B.
type AndQuery struct {
	A, B Query
}

func (AndQuery) queryNode() {}

func (q AndQuery) Eval(p *types.Point) bool {
	return q.A.Eval(p) && q.B.Eval(p)
}

func (q AndQuery) String() string {
	return fmt.Sprintf("(%s) and (%s)", q.A, q.B)
}

// OrQuery is the logical disjunction of A and B.
type OrQuery struct {
	A, B Query
}

func (OrQuery) queryNode() {}

func (q OrQuery) Eval(p *types.Point) bool {
	return q.A.Eval(p) || q.B.Eval(p)
}

func (q OrQuery) String() string {
	return fmt.Sprintf("(%s) or (%s)", q.A, q.B)
}

// Not builds the negation of q.
func Not(q Query) Query { return NotQuery{Q: q} }

// And builds the conjunction of a and b.
func And(a, b Query) Query { return AndQuery{A: a, B: b} }

// Or builds the disjunction of a and b.
func Or(a, b Query) Query { return OrQuery{A: a, B: b} }

func opString(op ComparisonOp) string {
	switch op {
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return "?"
	}
}

// Resolve fetches the raw value at path from p, for callers (such as
// select) that need attribute access outside of a leaf's own Eval. ok is
// false when the attribute does not exist on the point.
func Resolve(p *types.Point, path AttributePath) (interface{}, bool) {
	return resolve(p, path)
}

// resolve fetches the raw value at path from p. ok is false when the
// attribute does not exist on the point (absent tag/field key).
func resolve(p *types.Point, path AttributePath) (interface{}, bool) {
	switch path.Kind {
	case PathTime:
		if !p.HasTime {
			return nil, false
		}
		return p.Time, true
	case PathMeasurement:
		return p.Measurement, true
	case PathTag:
		v, ok := p.Tags[path.Key]
		return v, ok
	case PathField:
		v, ok := p.Fields[path.Key]
		return v, ok
	default:
		return nil, false
	}
}
