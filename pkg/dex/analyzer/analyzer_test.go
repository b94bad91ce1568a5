package analyzer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/dex/pkg/dex/analyzer"
	"github.com/go-go-golems/dex/pkg/dex/orderedmap"
	"github.com/go-go-golems/dex/pkg/dex/parser"
	"github.com/go-go-golems/dex/pkg/dex/scrub"
)

// buildRecord parses and scrubs a predicate (and optional sort spec) the
// same way a log line handler would, producing a Record ready for Analyze.
func buildRecord(t *testing.T, predicateSrc, orderbySrc string) *parser.Record {
	t.Helper()

	parsed, err := parser.ParseDoc(predicateSrc)
	require.NoError(t, err)
	query, ok := parser.AsMap(scrub.Scrub(parsed))
	require.True(t, ok)

	var orderby *orderedmap.Map
	if orderbySrc != "" {
		parsedOB, err := parser.ParseDoc(orderbySrc)
		require.NoError(t, err)
		orderby, ok = parser.AsMap(scrub.Scrub(parsedOB))
		require.True(t, ok)
	}

	return &parser.Record{
		NS:        "test.coll",
		Query:     query,
		OrderBy:   orderby,
		QueryMask: scrub.BuildMask(query, orderby, ""),
		Supported: true,
	}
}

// fixedIndexes is the collection-level index set used throughout spec.md's
// end-to-end scenario table. Field names follow the scenario predicates
// (complexIndexedField*), see DESIGN.md's resolved-inconsistency note.
func fixedIndexes() []analyzer.IndexDescriptor {
	return []analyzer.IndexDescriptor{
		{Name: "simple_idx", Key: []analyzer.IndexKeyField{
			{FieldName: "simpleIndexedField", Direction: -1},
		}},
		{Name: "complex_two_idx", Key: []analyzer.IndexKeyField{
			{FieldName: "complexIndexedFieldOne", Direction: -1},
			{FieldName: "complexIndexedFieldTwo", Direction: -1},
		}},
		{Name: "complex_backwards_idx", Key: []analyzer.IndexKeyField{
			{FieldName: "complexIndexedFieldTen", Direction: -1},
			{FieldName: "complexIndexedFieldNine", Direction: -1},
		}},
		{Name: "complex_three_idx", Key: []analyzer.IndexKeyField{
			{FieldName: "complexIndexedFieldOne", Direction: -1},
			{FieldName: "complexIndexedFieldTwo", Direction: -1},
			{FieldName: "complexIndexedFieldThree", Direction: -1},
		}},
		{Name: "geo_idx", Key: []analyzer.IndexKeyField{
			{FieldName: "geoOne", Direction: "2d"},
		}},
	}
}

func TestScenario1_UnindexedEquivFieldRecommendsSimpleIndex(t *testing.T) {
	rec := buildRecord(t, `{simpleUnindexedField: 5}`, "")
	qa := analyzer.Analyze(rec)
	ia := analyzer.AnalyzeIndexes(qa, fixedIndexes())
	require.True(t, ia.NeedsRecommendation)

	recommendation, ok := analyzer.Recommend(rec.NS, qa)
	require.True(t, ok)
	assert.JSONEq(t, `{"simpleUnindexedField":1}`, recommendation.Index)
}

func TestRecommend_ShellCommandUsesBracketedCollectionAndBackgroundFlag(t *testing.T) {
	rec := buildRecord(t, `{simpleUnindexedField: 5}`, "")
	qa := analyzer.Analyze(rec)

	recommendation, ok := analyzer.Recommend(rec.NS, qa)
	require.True(t, ok)
	assert.Equal(t,
		`db["coll"].ensureIndex({"simpleUnindexedField":1}, {"background": true})`,
		recommendation.ShellCommand)
}

func TestScenario2_IndexedEquivFieldNeedsNoRecommendation(t *testing.T) {
	rec := buildRecord(t, `{simpleIndexedField: 5}`, "")
	qa := analyzer.Analyze(rec)
	ia := analyzer.AnalyzeIndexes(qa, fixedIndexes())
	assert.False(t, ia.NeedsRecommendation)
	assert.Equal(t, analyzer.CoverageFull, ia.IndexStatus)
}

func TestScenario3_UnindexedRangeFieldRecommendsSimpleIndex(t *testing.T) {
	rec := buildRecord(t, `{simpleUnindexedField: {$lt: 4}}`, "")
	qa := analyzer.Analyze(rec)
	ia := analyzer.AnalyzeIndexes(qa, fixedIndexes())
	require.True(t, ia.NeedsRecommendation)

	recommendation, ok := analyzer.Recommend(rec.NS, qa)
	require.True(t, ok)
	assert.JSONEq(t, `{"simpleUnindexedField":1}`, recommendation.Index)
}

func TestScenario4_EmptyPredicateWithSortRecommendsSortOnlyIndex(t *testing.T) {
	rec := buildRecord(t, `{}`, `{simpleUnindexedField: 1}`)
	qa := analyzer.Analyze(rec)
	ia := analyzer.AnalyzeIndexes(qa, fixedIndexes())
	require.True(t, ia.NeedsRecommendation)

	recommendation, ok := analyzer.Recommend(rec.NS, qa)
	require.True(t, ok)
	assert.JSONEq(t, `{"simpleUnindexedField":1}`, recommendation.Index)
}

func TestScenario5_TwoFieldCoveredByThreeFieldPrefixNeedsNoRecommendation(t *testing.T) {
	rec := buildRecord(t, `{complexIndexedFieldOne: 1, complexIndexedFieldTwo: 1}`, "")
	qa := analyzer.Analyze(rec)
	ia := analyzer.AnalyzeIndexes(qa, fixedIndexes())
	assert.False(t, ia.NeedsRecommendation)
	assert.Equal(t, analyzer.CoverageFull, ia.IndexStatus)
}

func TestScenario6_WrongFieldOrderStillRecommends(t *testing.T) {
	rec := buildRecord(t, `{complexIndexedFieldNine: 1, complexIndexedFieldTen: {$lt: 4}}`, "")
	qa := analyzer.Analyze(rec)
	ia := analyzer.AnalyzeIndexes(qa, fixedIndexes())
	require.True(t, ia.NeedsRecommendation)

	recommendation, ok := analyzer.Recommend(rec.NS, qa)
	require.True(t, ok)
	assert.Equal(t, `{"complexIndexedFieldNine":1,"complexIndexedFieldTen":1}`, recommendation.Index)
}

func TestScenario7_NearOperatorIsUnsupportedAndNeverIndexed(t *testing.T) {
	rec := buildRecord(t, `{geoOne: {$near: [50,50]}}`, "")
	qa := analyzer.Analyze(rec)
	assert.False(t, qa.Supported)

	_, ok := analyzer.Recommend(rec.NS, qa)
	assert.False(t, ok)
}

func TestInvariant_IdealFullCoverageNeverRecommends(t *testing.T) {
	rec := buildRecord(t, `{simpleIndexedField: 5}`, "")
	qa := analyzer.Analyze(rec)
	ia := analyzer.AnalyzeIndexes(qa, fixedIndexes())
	require.Equal(t, analyzer.CoverageFull, ia.IndexStatus)
	assert.False(t, ia.NeedsRecommendation)
}

func TestInvariant_UnsupportedNeverRecommends(t *testing.T) {
	rec := buildRecord(t, `{a: {$where: "1"}}`, "")
	qa := analyzer.Analyze(rec)
	require.False(t, qa.Supported)
	_, ok := analyzer.Recommend(rec.NS, qa)
	assert.False(t, ok)
}

func TestInvariant_RecommendationFieldOrderIsEquivSortRange(t *testing.T) {
	rec := buildRecord(t, `{b: {$gt: 1}, a: 5}`, `{c: 1}`)
	qa := analyzer.Analyze(rec)
	recommendation, ok := analyzer.Recommend(rec.NS, qa)
	require.True(t, ok)
	assert.Equal(t, `{"a":1,"c":1,"b":1}`, recommendation.Index)
}

func TestBoundary_GeospatialIndexNeverSelected(t *testing.T) {
	rec := buildRecord(t, `{geoOne: 5}`, "")
	qa := analyzer.Analyze(rec)
	ia := analyzer.AnalyzeIndexes(qa, fixedIndexes())
	for _, report := range append(ia.FullIndexes, ia.PartialIndexes...) {
		assert.NotEqual(t, "geo_idx", report.Index.Name)
	}
}
