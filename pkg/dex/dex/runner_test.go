package dex

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/dex/pkg/dex/analyzer"
	"github.com/go-go-golems/dex/pkg/dex/indexcache"
	"github.com/go-go-golems/dex/pkg/dex/parser"
)

func newTestRunner(namespaces ...string) *Runner {
	dispatcher := parser.NewDispatcher(parser.DefaultLogHandlers())
	cache := indexcache.New(nil)
	return NewRunner(dispatcher, cache, namespaces)
}

func TestRunner_RunLines_AggregatesMatchingNamespace(t *testing.T) {
	r := newTestRunner()
	lines := make(chan string, 2)
	lines <- `Tue Jan  1 10:00:00 [conn1] query test.coll query: { a: 1 } ntoreturn:0 nscanned:1 100ms`
	lines <- `Tue Jan  1 10:00:01 [conn1] query test.coll query: { a: 2 } ntoreturn:0 nscanned:1 200ms`
	close(lines)

	stats := r.RunLines(context.Background(), lines)
	assert.Equal(t, 2, stats.LinesPassed)
	assert.Equal(t, 2, stats.LinesProcessed)

	reports := r.Aggregator.GetReports()
	require.Len(t, reports, 1)
	assert.Equal(t, 2, reports[0].Count)
	assert.Equal(t, 300, reports[0].TotalTimeMillis)
}

func TestRunner_RunLines_FiltersByNamespace(t *testing.T) {
	r := newTestRunner("other.coll")
	lines := make(chan string, 1)
	lines <- `Tue Jan  1 10:00:00 [conn1] query test.coll query: { a: 1 } ntoreturn:0 nscanned:1 50ms`
	close(lines)

	r.RunLines(context.Background(), lines)
	assert.Empty(t, r.Aggregator.GetReports())
}

func TestRunner_RunLines_SplitsUnparsableByTimestampPresence(t *testing.T) {
	r := newTestRunner()
	lines := make(chan string, 2)
	lines <- `Tue Jan  1 10:00:00 [conn1] some unrelated chatter with no timing`
	lines <- `totally unparseable line with no timestamp and no millis either`
	close(lines)

	stats := r.RunLines(context.Background(), lines)
	assert.Equal(t, 0, stats.LinesProcessed)
	assert.Equal(t, 1, stats.UnparsableWithTimestamp)
	assert.Equal(t, 1, stats.UnparsableNoTimestamp)
}

func TestRunner_RunLines_TimesOutWithPartialResults(t *testing.T) {
	r := newTestRunner()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	lines := make(chan string)
	stats := r.RunLines(ctx, lines)
	assert.True(t, stats.TimedOut)
}

func TestRunner_RunLines_UnsupportedQueryEntryCarriesSupportedFalse(t *testing.T) {
	r := newTestRunner()
	lines := make(chan string, 1)
	lines <- `Tue Jan  1 10:00:00 [conn1] query test.coll query: { a: { $where: "1" } } ntoreturn:0 nscanned:1 50ms`
	close(lines)

	r.RunLines(context.Background(), lines)

	reports := r.Aggregator.GetReports()
	require.Len(t, reports, 1)
	assert.False(t, reports[0].Supported)
	assert.False(t, reports[0].HasRecommendation)
}

func TestRunner_RunLines_SupportedQueryEntryCarriesIndexStatus(t *testing.T) {
	r := newTestRunner()
	lines := make(chan string, 1)
	lines <- `Tue Jan  1 10:00:00 [conn1] query test.coll query: { a: 1 } ntoreturn:0 nscanned:1 100ms`
	close(lines)

	r.RunLines(context.Background(), lines)

	reports := r.Aggregator.GetReports()
	require.Len(t, reports, 1)
	assert.True(t, reports[0].Supported)
	assert.Equal(t, analyzer.CoverageNone, reports[0].IndexStatus)
	assert.True(t, reports[0].HasRecommendation)
}
