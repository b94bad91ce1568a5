// Package report aggregates analyzed records into per-(namespace, query
// shape) summaries, keeping a running count, total time, and last-seen
// date, per §4.10.
package report

import (
	"sort"
	"sync"
	"time"

	"github.com/go-go-golems/dex/pkg/dex/analyzer"
)

// Entry is one aggregated (namespace, queryMask) summary.
type Entry struct {
	Namespace         string
	QueryMask         string
	Count             int
	TotalTimeMillis   int
	AvgTimeMillis     int
	LastSeenDate      time.Time
	Supported         bool
	IndexStatus       analyzer.Coverage
	Recommendation    analyzer.Recommendation
	HasRecommendation bool
}

type key struct {
	namespace string
	queryMask string
}

// Aggregator accumulates Entries keyed by (namespace, queryMask). Add and
// GetReports are safe for concurrent use; a single mutex guards the map so
// that lastSeenDate's monotone-max update is consistent regardless of call
// order (§5).
type Aggregator struct {
	mu      sync.Mutex
	entries map[key]*Entry
}

// New builds an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{entries: make(map[key]*Entry)}
}

// Add folds one analyzed record's timing into its (namespace, queryMask)
// entry, creating it on first sight. On creation, supported and indexStatus
// are copied onto the entry per §4.10; rec is copied by the first call whose
// hasRec is true and kept afterwards. AvgTimeMillis is recomputed with
// integer division on every update.
func (a *Aggregator) Add(namespace, queryMask string, millis int, seenAt time.Time, supported bool, indexStatus analyzer.Coverage, rec analyzer.Recommendation, hasRec bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	k := key{namespace: namespace, queryMask: queryMask}
	e, ok := a.entries[k]
	if !ok {
		e = &Entry{Namespace: namespace, QueryMask: queryMask, Supported: supported, IndexStatus: indexStatus}
		a.entries[k] = e
	}

	e.Count++
	e.TotalTimeMillis += millis
	e.AvgTimeMillis = e.TotalTimeMillis / e.Count

	if seenAt.After(e.LastSeenDate) {
		e.LastSeenDate = seenAt
	}

	if hasRec && !e.HasRecommendation {
		e.Recommendation = rec
		e.HasRecommendation = true
	}
}

// GetReports returns every accumulated Entry, sorted by TotalTimeMillis
// descending (the slowest-overall query shapes first), per §4.10.
func (a *Aggregator) GetReports() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Entry, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, *e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalTimeMillis > out[j].TotalTimeMillis
	})
	return out
}
