package query_test

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/tinyflux/tinyflux/internal/index"
	"github.com/tinyflux/tinyflux/internal/query"
	"github.com/tinyflux/tinyflux/internal/serialize"
	"github.com/tinyflux/tinyflux/internal/storage"
	"github.com/tinyflux/tinyflux/pkg/types"
)

// buildIndexedBackend inserts one point per given city/aqi pair (in order,
// ascending by the offset each is tagged with) and returns the backend
// alongside a freshly rebuilt index over it.
func buildIndexedBackend(t *testing.T, cities []string, aqis []int64) (storage.Backend, *index.Index) {
	t.Helper()
	backend := storage.NewMemoryBackend()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := range cities {
		p := types.NewPointUnchecked(base.Add(time.Duration(i)*time.Minute), true, "m",
			types.TagSet{"city": cities[i]}, types.FieldSet{"aqi": aqis[i]})
		row := serialize.Serialize(p, false)
		if _, err := backend.Append(row); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	idx := index.New()
	if err := idx.Rebuild(backend); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	return backend, idx
}

// TestProperty_PartialEvalSoundness validates that for every row in the
// backend, evaluating the full query directly agrees with evaluating the
// residual query on exactly the rows the candidate set selects: a row not
// in the candidate set never satisfies the full query, and a row in the
// candidate set satisfies the full query exactly when it satisfies the
// residual.
func TestProperty_PartialEvalSoundness(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	cityGen := gen.OneConstOf("LA", "SF", "NYC")
	aqiGen := gen.Int64Range(0, 300)

	properties.Property("tag equality partial eval is sound", prop.ForAll(
		func(cities []string, aqis []int64, target string) bool {
			n := len(cities)
			if len(aqis) < n {
				n = len(aqis)
			}
			cities, aqis = cities[:n], aqis[:n]
			if n == 0 {
				return true
			}

			backend, idx := buildIndexedBackend(t, cities, aqis)
			rows, err := backend.ReadAll()
			if err != nil {
				t.Fatalf("read failed: %v", err)
			}

			q := query.Tag("city").Eq(target)
			candidates, residual := query.PartialEval(q, idx)

			for _, row := range rows {
				p, err := serialize.Deserialize(row.Raw)
				if err != nil {
					t.Fatalf("deserialize failed: %v", err)
				}
				want := q.Eval(p)
				got := candidates.Contains(row.ID) && residual.Eval(p)
				if want != got {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(6, cityGen),
		gen.SliceOfN(6, aqiGen),
		cityGen,
	))

	properties.Property("field comparison partial eval is sound (always a full residual)", prop.ForAll(
		func(cities []string, aqis []int64, threshold int64) bool {
			n := len(cities)
			if len(aqis) < n {
				n = len(aqis)
			}
			cities, aqis = cities[:n], aqis[:n]
			if n == 0 {
				return true
			}

			backend, idx := buildIndexedBackend(t, cities, aqis)
			rows, err := backend.ReadAll()
			if err != nil {
				t.Fatalf("read failed: %v", err)
			}

			q := query.Field("aqi").Gt(threshold)
			candidates, residual := query.PartialEval(q, idx)

			for _, row := range rows {
				p, err := serialize.Deserialize(row.Raw)
				if err != nil {
					t.Fatalf("deserialize failed: %v", err)
				}
				want := q.Eval(p)
				got := candidates.Contains(row.ID) && residual.Eval(p)
				if want != got {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(6, cityGen),
		gen.SliceOfN(6, aqiGen),
		aqiGen,
	))

	properties.TestingRun(t)
}
