package index

import "github.com/spaolacci/murmur3"

// table interns strings into small integer ids, hashed with murmur3
// instead of Go's native map hash. Measurement names, tag keys, and field
// keys repeat across nearly every row; interning them means appendEntry's
// per-row bookkeeping indexes int-keyed maps. Each insert still hashes
// every name once with murmur3 to look up its id.
type table struct {
	buckets map[uint64][]internEntry
	byID    []string
}

type internEntry struct {
	hash uint64
	s    string
	id   int
}

func newTable() *table {
	return &table{buckets: map[uint64][]internEntry{}}
}

// intern returns the stable id for s, assigning a new one the first time
// s is seen.
func (t *table) intern(s string) int {
	h := murmur3.Sum64([]byte(s))
	for _, e := range t.buckets[h] {
		if e.s == s {
			return e.id
		}
	}
	id := len(t.byID)
	t.byID = append(t.byID, s)
	t.buckets[h] = append(t.buckets[h], internEntry{hash: h, s: s, id: id})
	return id
}

// lookup returns the id already assigned to s, if any.
func (t *table) lookup(s string) (int, bool) {
	h := murmur3.Sum64([]byte(s))
	for _, e := range t.buckets[h] {
		if e.s == s {
			return e.id, true
		}
	}
	return 0, false
}

// string returns the string previously interned under id.
func (t *table) string(id int) string {
	return t.byID[id]
}

func (t *table) reset() {
	t.buckets = map[uint64][]internEntry{}
	t.byID = nil
}
