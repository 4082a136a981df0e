package engine

import (
	"sort"

	"github.com/tinyflux/tinyflux/pkg/types"
)

// scanDistinctSingle collects the distinct values of a single-valued
// attribute (e.g. measurement) across every row via a full scan.
func (e *Engine) scanDistinctSingle(extract func(*types.Point) string) ([]string, error) {
	points, err := e.All(false)
	if err != nil {
		return nil, err
	}
	set := map[string]struct{}{}
	for _, p := range points {
		set[extract(p)] = struct{}{}
	}
	return sortedSetKeys(set), nil
}

// scanDistinctMulti collects the distinct values of a multi-valued
// attribute (e.g. the set of tag keys present on a point) across every
// row via a full scan.
func (e *Engine) scanDistinctMulti(extract func(*types.Point) []string) ([]string, error) {
	points, err := e.All(false)
	if err != nil {
		return nil, err
	}
	set := map[string]struct{}{}
	for _, p := range points {
		for _, v := range extract(p) {
			set[v] = struct{}{}
		}
	}
	return sortedSetKeys(set), nil
}

// scanDistinctPresent collects the distinct values of an attribute that is
// only sometimes present on a point (e.g. a specific tag key's value).
func (e *Engine) scanDistinctPresent(extract func(*types.Point) (string, bool)) ([]string, error) {
	points, err := e.All(false)
	if err != nil {
		return nil, err
	}
	set := map[string]struct{}{}
	for _, p := range points {
		if v, ok := extract(p); ok {
			set[v] = struct{}{}
		}
	}
	return sortedSetKeys(set), nil
}

func sortedSetKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
