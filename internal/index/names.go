package index

import (
	"sort"
	"time"
)

// MeasurementNames returns every distinct measurement name the index has
// seen, sorted.
func (idx *Index) MeasurementNames() []string {
	return sortedInternedKeys(idx.byMeasurement, idx.measurements)
}

// TagKeyNames returns every distinct tag key the index has seen, sorted.
func (idx *Index) TagKeyNames() []string {
	return sortedInternedKeys(idx.tagKeys, idx.tagKeyNames)
}

// FieldKeyNames returns every distinct field key the index has seen,
// sorted.
func (idx *Index) FieldKeyNames() []string {
	return sortedInternedKeys(idx.fieldKeys, idx.fieldKeyNames)
}

// TagValuesForKey returns every distinct value recorded for the given tag
// key, sorted. Field values are deliberately not indexed (see the
// glossary: fields are indexed only by key), so there is no equivalent for
// fields.
func (idx *Index) TagValuesForKey(key string) []string {
	id, ok := idx.tagKeyNames.lookup(key)
	if !ok {
		return nil
	}
	seen := map[string]struct{}{}
	for tk := range idx.byTag {
		if tk.keyID == id {
			seen[tk.value] = struct{}{}
		}
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// AllTimestampsSorted returns every row's timestamp in ascending order.
func (idx *Index) AllTimestampsSorted() []time.Time {
	out := make([]time.Time, len(idx.timestamps))
	for i, e := range idx.timestamps {
		out[i] = e.t
	}
	return out
}

func sortedInternedKeys(m map[int][]int, t *table) []string {
	names := make([]string, 0, len(m))
	for id := range m {
		names = append(names, t.string(id))
	}
	sort.Strings(names)
	return names
}
