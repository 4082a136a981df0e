// Package serialize implements the Point <-> raw-row codec: timestamp
// canonicalization, the tag/field key-prefix conventions, and numeric/
// boolean/string value escaping described in the data model.
package serialize

import (
	"sort"
	"strconv"
	"strings"
	"time"

	tferrors "github.com/tinyflux/tinyflux/internal/errors"
	"github.com/tinyflux/tinyflux/internal/storage"
	"github.com/tinyflux/tinyflux/pkg/types"
)

// Prefix conventions for tag/field keys. Writers pick one via the Compact
// option; readers accept either, detected per key.
const (
	fullTagPrefix      = "__tag__"
	fullFieldPrefix    = "__field__"
	compactTagPrefix   = "t_"
	compactFieldPrefix = "f_"
)

// stringFieldMarker prefixes the serialized value of a string-typed field.
// The original numeric-only field model never needed to disambiguate a
// string from a number; once field values may also be plain strings (see
// DESIGN.md), a marker is the only way a reader can tell "007" the string
// apart from 007 the integer. U+0000 cannot occur in a field value supplied
// through Point (Go strings built from user input won't contain a NUL
// unless the caller deliberately inserts one), so it is a safe sigil.
const stringFieldMarker = "\x00"

const timeLayout = "2006-01-02T15:04:05.000000"

// Serialize converts a point into its on-disk row representation. Unstamped
// points serialize their time column as the empty string. compact selects
// the t_/f_ prefix convention over __tag__/__field__.
func Serialize(p *types.Point, compact bool) storage.RawRow {
	tagPrefix, fieldPrefix := fullTagPrefix, fullFieldPrefix
	if compact {
		tagPrefix, fieldPrefix = compactTagPrefix, compactFieldPrefix
	}

	row := make(storage.RawRow, 0, 2+2*(len(p.Tags)+len(p.Fields)))
	row = append(row, serializeTime(p), p.Measurement)

	for _, k := range sortedKeys(p.Tags) {
		row = append(row, tagPrefix+k, p.Tags[k])
	}
	for _, k := range sortedFieldKeys(p.Fields) {
		row = append(row, fieldPrefix+k, encodeFieldValue(p.Fields[k]))
	}

	return row
}

func serializeTime(p *types.Point) string {
	if !p.HasTime {
		return ""
	}
	return p.Time.UTC().Format(timeLayout)
}

func sortedKeys(m types.TagSet) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedFieldKeys(m types.FieldSet) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func encodeFieldValue(v types.FieldValue) string {
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return formatFloat(x)
	case bool:
		if x {
			return "True"
		}
		return "False"
	case string:
		return stringFieldMarker + x
	default:
		return stringFieldMarker + ""
	}
}

// formatFloat always emits a decimal point, so 0.0 round-trips as "0.0"
// rather than the ambiguous-with-int "0".
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Deserialize parses a raw row back into a point. It accepts both the full
// and compact prefix conventions, even within the same row.
func Deserialize(row storage.RawRow) (*types.Point, error) {
	if len(row) < 2 {
		return nil, tferrors.NewValidationError(
			tferrors.CodeInvalidFields, "row is missing time/measurement columns",
		)
	}

	var t time.Time
	hasTime := row[0] != ""
	if hasTime {
		parsed, err := time.Parse(timeLayout, row[0])
		if err != nil {
			return nil, tferrors.Wrap(
				tferrors.ErrCategoryValidation, tferrors.CodeInvalidTime,
				"failed to parse row timestamp", err,
			)
		}
		t = parsed.UTC()
	}

	measurement := row[1]
	tags := types.TagSet{}
	fields := types.FieldSet{}

	i := 2
	for i+1 < len(row) {
		key, rawValue := row[i], row[i+1]

		switch {
		case strings.HasPrefix(key, fullTagPrefix):
			tags[strings.TrimPrefix(key, fullTagPrefix)] = rawValue
		case strings.HasPrefix(key, compactTagPrefix):
			tags[strings.TrimPrefix(key, compactTagPrefix)] = rawValue
		case strings.HasPrefix(key, fullFieldPrefix):
			fields[strings.TrimPrefix(key, fullFieldPrefix)] = decodeFieldValue(rawValue)
		case strings.HasPrefix(key, compactFieldPrefix):
			fields[strings.TrimPrefix(key, compactFieldPrefix)] = decodeFieldValue(rawValue)
		}
		i += 2
	}

	return types.NewPointUnchecked(t, hasTime, measurement, tags, fields), nil
}

func decodeFieldValue(raw string) types.FieldValue {
	if strings.HasPrefix(raw, stringFieldMarker) {
		return strings.TrimPrefix(raw, stringFieldMarker)
	}
	if raw == "True" {
		return true
	}
	if raw == "False" {
		return false
	}
	if isInteger(raw) {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n
		}
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func isInteger(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
