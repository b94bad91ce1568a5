package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/dex/pkg/dex/analyzer"
)

func TestAggregator_AddAccumulatesCountAndAverage(t *testing.T) {
	a := New()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a.Add("db.coll", `{"a":"<val>"}`, 10, t0, true, analyzer.CoverageFull, analyzer.Recommendation{}, false)
	a.Add("db.coll", `{"a":"<val>"}`, 30, t0.Add(time.Minute), true, analyzer.CoverageFull, analyzer.Recommendation{}, false)

	reports := a.GetReports()
	require.Len(t, reports, 1)
	assert.Equal(t, 2, reports[0].Count)
	assert.Equal(t, 40, reports[0].TotalTimeMillis)
	assert.Equal(t, 20, reports[0].AvgTimeMillis)
}

func TestAggregator_AvgUsesIntegerDivision(t *testing.T) {
	a := New()
	t0 := time.Now().UTC()

	a.Add("db.coll", "mask", 1, t0, true, analyzer.CoverageFull, analyzer.Recommendation{}, false)
	a.Add("db.coll", "mask", 1, t0, true, analyzer.CoverageFull, analyzer.Recommendation{}, false)
	a.Add("db.coll", "mask", 2, t0, true, analyzer.CoverageFull, analyzer.Recommendation{}, false)

	reports := a.GetReports()
	require.Len(t, reports, 1)
	// total=4, count=3 -> 4/3 truncates to 1, not 1.33.
	assert.Equal(t, 1, reports[0].AvgTimeMillis)
}

func TestAggregator_LastSeenDateIsMonotoneMax(t *testing.T) {
	a := New()
	later := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	earlier := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a.Add("db.coll", "mask", 5, later, true, analyzer.CoverageFull, analyzer.Recommendation{}, false)
	a.Add("db.coll", "mask", 5, earlier, true, analyzer.CoverageFull, analyzer.Recommendation{}, false)

	reports := a.GetReports()
	require.Len(t, reports, 1)
	assert.True(t, reports[0].LastSeenDate.Equal(later))
}

func TestAggregator_KeysAreNamespaceAndMaskPair(t *testing.T) {
	a := New()
	t0 := time.Now().UTC()

	a.Add("db.coll1", "mask", 5, t0, true, analyzer.CoverageFull, analyzer.Recommendation{}, false)
	a.Add("db.coll2", "mask", 5, t0, true, analyzer.CoverageFull, analyzer.Recommendation{}, false)
	a.Add("db.coll1", "othermask", 5, t0, true, analyzer.CoverageFull, analyzer.Recommendation{}, false)

	reports := a.GetReports()
	assert.Len(t, reports, 3)
}

func TestAggregator_GetReportsSortedByTotalTimeDescending(t *testing.T) {
	a := New()
	t0 := time.Now().UTC()

	a.Add("db.coll", "slow", 500, t0, true, analyzer.CoverageFull, analyzer.Recommendation{}, false)
	a.Add("db.coll", "fast", 10, t0, true, analyzer.CoverageFull, analyzer.Recommendation{}, false)
	a.Add("db.coll", "medium", 100, t0, true, analyzer.CoverageFull, analyzer.Recommendation{}, false)

	reports := a.GetReports()
	require.Len(t, reports, 3)
	assert.Equal(t, "slow", reports[0].QueryMask)
	assert.Equal(t, "medium", reports[1].QueryMask)
	assert.Equal(t, "fast", reports[2].QueryMask)
}

func TestAggregator_FirstRecommendationSticks(t *testing.T) {
	a := New()
	t0 := time.Now().UTC()
	first := analyzer.Recommendation{Index: `{"a":1}`, ShellCommand: `db["coll"].ensureIndex({"a":1}, {"background": true})`}
	second := analyzer.Recommendation{Index: `{"b":1}`, ShellCommand: `db["coll"].ensureIndex({"b":1}, {"background": true})`}

	a.Add("db.coll", "mask", 5, t0, true, analyzer.CoveragePartial, first, true)
	a.Add("db.coll", "mask", 5, t0, true, analyzer.CoveragePartial, second, true)

	reports := a.GetReports()
	require.Len(t, reports, 1)
	assert.True(t, reports[0].HasRecommendation)
	assert.Equal(t, first, reports[0].Recommendation)
}

func TestAggregator_SupportedAndIndexStatusAreCopiedOnFirstSight(t *testing.T) {
	a := New()
	t0 := time.Now().UTC()

	a.Add("db.coll", "mask", 5, t0, false, analyzer.CoverageUnknown, analyzer.Recommendation{}, false)
	// A later call for the same (namespace, queryMask) carries a different
	// supported/indexStatus, but the first-sight values stick.
	a.Add("db.coll", "mask", 5, t0, true, analyzer.CoverageFull, analyzer.Recommendation{}, false)

	reports := a.GetReports()
	require.Len(t, reports, 1)
	assert.False(t, reports[0].Supported)
	assert.Equal(t, analyzer.CoverageUnknown, reports[0].IndexStatus)
}
