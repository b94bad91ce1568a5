// Package dex wires the parser dispatcher, query analyzer, index cache, and
// report aggregator into a single driver loop over either a log file or a
// stream of profile entries.
package dex

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/dex/pkg/dex/analyzer"
	"github.com/go-go-golems/dex/pkg/dex/dexerr"
	"github.com/go-go-golems/dex/pkg/dex/indexcache"
	"github.com/go-go-golems/dex/pkg/dex/orderedmap"
	"github.com/go-go-golems/dex/pkg/dex/parser"
	"github.com/go-go-golems/dex/pkg/dex/report"
)

// RunStats carries the bookkeeping counters emitted alongside results
// (§6): line counts, the observed time range, unparsable-line subtotals
// split by whether a timestamp was recovered, and dex's own wall time.
type RunStats struct {
	LinesPassed             int
	LinesProcessed          int
	UnparsableWithTimestamp int
	UnparsableNoTimestamp   int
	TimeRangeStart          time.Time
	TimeRangeEnd            time.Time
	DexWallTimeMillis       int64
	TimedOut                bool
}

// Runner drives one analysis run: every line or profile entry it accepts is
// dispatched, classified, scored against cached indexes, and folded into
// the aggregator.
type Runner struct {
	Dispatcher *parser.Dispatcher
	Indexes    *indexcache.Cache
	Aggregator *report.Aggregator

	// Namespaces restricts analysis to the given "db.collection" strings.
	// An empty set means "all namespaces".
	Namespaces map[string]bool
}

// NewRunner builds a Runner from its collaborators. namespaces may be nil
// or empty to analyze every namespace encountered.
func NewRunner(dispatcher *parser.Dispatcher, indexes *indexcache.Cache, namespaces []string) *Runner {
	nsSet := make(map[string]bool, len(namespaces))
	for _, ns := range namespaces {
		nsSet[ns] = true
	}
	return &Runner{
		Dispatcher: dispatcher,
		Indexes:    indexes,
		Aggregator: report.New(),
		Namespaces: nsSet,
	}
}

// RunLines drives the runner over a channel of raw log lines until the
// channel closes or ctx's deadline expires. It returns the accumulated
// RunStats; results live in r.Aggregator.
func (r *Runner) RunLines(ctx context.Context, lines <-chan string) RunStats {
	start := time.Now()
	stats := RunStats{}

	for {
		select {
		case <-ctx.Done():
			stats.TimedOut = true
			log.Debug().Err(dexerr.Timeout(ctx.Err())).Msg("run stopped early")
			stats.DexWallTimeMillis = time.Since(start).Milliseconds()
			return stats
		case line, ok := <-lines:
			if !ok {
				stats.DexWallTimeMillis = time.Since(start).Milliseconds()
				return stats
			}
			stats.LinesPassed++
			rec, matched := r.Dispatcher.ParseLine(line)
			if !matched {
				log.Debug().Err(dexerr.MalformedInput(line, errors.New("no handler matched"))).Msg("skipping unparsable line")
				if parser.HasTimestampPrefix(line) {
					stats.UnparsableWithTimestamp++
				} else {
					stats.UnparsableNoTimestamp++
				}
				continue
			}
			stats.LinesProcessed++
			r.observe(ctx, rec, &stats)
		}
	}
}

// RunProfileEntries drives the runner over a channel of structured profile
// documents, mirroring RunLines but through the profile handler.
func (r *Runner) RunProfileEntries(ctx context.Context, entries <-chan *orderedmap.Map) RunStats {
	start := time.Now()
	stats := RunStats{}

	for {
		select {
		case <-ctx.Done():
			stats.TimedOut = true
			log.Debug().Err(dexerr.Timeout(ctx.Err())).Msg("run stopped early")
			stats.DexWallTimeMillis = time.Since(start).Milliseconds()
			return stats
		case entry, ok := <-entries:
			if !ok {
				stats.DexWallTimeMillis = time.Since(start).Milliseconds()
				return stats
			}
			stats.LinesPassed++
			rec, matched, err := r.Dispatcher.ParseProfileEntry(entry)
			if err != nil {
				log.Warn().Err(dexerr.MalformedInput("<profile entry>", err)).Msg("profile entry handler error, skipping entry")
				stats.UnparsableNoTimestamp++
				continue
			}
			if !matched {
				stats.UnparsableNoTimestamp++
				continue
			}
			stats.LinesProcessed++
			r.observe(ctx, rec, &stats)
		}
	}
}

func (r *Runner) observe(ctx context.Context, rec *parser.Record, stats *RunStats) {
	if len(r.Namespaces) > 0 && !r.Namespaces[rec.NS] {
		return
	}

	if !rec.TS.IsZero() {
		if stats.TimeRangeStart.IsZero() || rec.TS.Before(stats.TimeRangeStart) {
			stats.TimeRangeStart = rec.TS
		}
		if rec.TS.After(stats.TimeRangeEnd) {
			stats.TimeRangeEnd = rec.TS
		}
	}

	if !rec.Supported {
		log.Debug().Err(dexerr.UnsupportedQuery(rec.NS, errors.New(rec.QueryMask))).Msg("recording unsupported query without analysis")
		r.Aggregator.Add(rec.NS, rec.QueryMask, rec.Stats.Millis, rec.TS, false, analyzer.CoverageUnknown, analyzer.Recommendation{}, false)
		return
	}

	qa := analyzer.Analyze(rec)

	db, collection := SplitNamespace(rec.NS)
	indexes := r.Indexes.Get(ctx, db, collection)
	indexAnalysis := analyzer.AnalyzeIndexes(qa, indexes)

	supported := qa.Supported
	var rec2 analyzer.Recommendation
	var hasRec bool
	if indexAnalysis.NeedsRecommendation {
		rec2, hasRec = analyzer.Recommend(rec.NS, qa)
		if supported && !hasRec && len(qa.AnalyzedFields) > 0 {
			// The only way Recommend can fail here, given qa.Supported was
			// already true and there is at least one analyzed field, is a
			// round-trip validation failure (§4.8): discard the
			// recommendation and downgrade per spec.md:152.
			supported = false
		}
	}

	r.Aggregator.Add(rec.NS, rec.QueryMask, rec.Stats.Millis, rec.TS, supported, indexAnalysis.IndexStatus, rec2, hasRec)
}

// SplitNamespace splits a "db.collection" string on its first dot.
func SplitNamespace(ns string) (db, collection string) {
	for i := 0; i < len(ns); i++ {
		if ns[i] == '.' {
			return ns[:i], ns[i+1:]
		}
	}
	return ns, ""
}
