// Package observability tracks read-path statistics for a TinyFlux engine:
// which attribute paths and operators queries actually use, how often the
// index fast path served a read versus falling back to a full scan, and
// how often the index has had to rebuild.
package observability

import (
	"sort"
	"sync"
	"time"
)

// QueryStats tracks attribute-path frequency and scan behavior for
// performance monitoring and for deciding when a denser index would pay
// off.
type QueryStats struct {
	mu            sync.RWMutex
	attributeFreq map[string]*AttributeStats
	window        time.Duration

	totalReads     int64
	indexFastPaths int64
	fullScans      int64
	rebuildCount   int64
	candidateSum   int64
	rowSum         int64
}

// AttributeStats holds statistics for one attribute path, e.g. tag.city or
// field.aqi.
type AttributeStats struct {
	Path      string
	Frequency int64
	LastSeen  time.Time
	Operators map[string]int // operator -> count, e.g. "eq" -> 5, "gt" -> 2
}

// NewQueryStats creates a new read-path statistics tracker. window is the
// duration after which an attribute's entry is eligible for pruning once
// it hasn't been queried again.
func NewQueryStats(window time.Duration) *QueryStats {
	return &QueryStats{
		attributeFreq: make(map[string]*AttributeStats),
		window:        window,
	}
}

// RecordAttribute records that a query touched the given attribute path
// with the given operator. path is formatted as the caller sees fit, e.g.
// "tag.city" or "field.aqi".
func (q *QueryStats) RecordAttribute(path, operator string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats, exists := q.attributeFreq[path]
	if !exists {
		stats = &AttributeStats{
			Path:      path,
			Operators: make(map[string]int),
		}
		q.attributeFreq[path] = stats
	}

	stats.Frequency++
	stats.LastSeen = time.Now()
	stats.Operators[operator]++
}

// RecordScan records the outcome of one candidatesFor call: whether the
// index fast path supplied candidates (usedIndex) or the read fell back to
// treating every row as a candidate, and how many rows were actually
// scanned and deserialized versus how many rows the backend held in total.
func (q *QueryStats) RecordScan(usedIndex bool, candidateRows, totalRows int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.totalReads++
	if usedIndex {
		q.indexFastPaths++
	} else {
		q.fullScans++
	}
	q.candidateSum += int64(candidateRows)
	q.rowSum += int64(totalRows)
}

// RecordRebuild records one full index rebuild.
func (q *QueryStats) RecordRebuild() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rebuildCount++
}

// Snapshot is a point-in-time read of the aggregate scan counters.
type Snapshot struct {
	TotalReads         int64
	IndexFastPaths     int64
	FullScans          int64
	RebuildCount       int64
	AverageSelectivity float64 // total candidateRows divided by total totalRows across recorded scans, 0 when no rows were ever scanned
}

// Snapshot returns the current aggregate scan counters.
func (q *QueryStats) Snapshot() Snapshot {
	q.mu.RLock()
	defer q.mu.RUnlock()

	s := Snapshot{
		TotalReads:     q.totalReads,
		IndexFastPaths: q.indexFastPaths,
		FullScans:      q.fullScans,
		RebuildCount:   q.rebuildCount,
	}
	if q.rowSum > 0 {
		s.AverageSelectivity = float64(q.candidateSum) / float64(q.rowSum)
	}
	return s
}

// GetTopAttributes returns the top n attribute paths by query frequency,
// sorted descending. Each entry is a defensive copy.
func (q *QueryStats) GetTopAttributes(n int) []AttributeStats {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if n <= 0 || len(q.attributeFreq) == 0 {
		return []AttributeStats{}
	}

	stats := make([]AttributeStats, 0, len(q.attributeFreq))
	for _, s := range q.attributeFreq {
		cp := AttributeStats{
			Path:      s.Path,
			Frequency: s.Frequency,
			LastSeen:  s.LastSeen,
			Operators: make(map[string]int, len(s.Operators)),
		}
		for op, count := range s.Operators {
			cp.Operators[op] = count
		}
		stats = append(stats, cp)
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Frequency > stats[j].Frequency
	})

	if n > len(stats) {
		n = len(stats)
	}
	return stats[:n]
}

// Prune removes attribute entries not queried again within window.
func (q *QueryStats) Prune() {
	q.mu.Lock()
	defer q.mu.Unlock()

	threshold := time.Now().Add(-q.window)
	for path, stats := range q.attributeFreq {
		if stats.LastSeen.Before(threshold) {
			delete(q.attributeFreq, path)
		}
	}
}
