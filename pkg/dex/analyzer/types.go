// Package analyzer classifies a normalized query's fields by access role and
// scores existing indexes against that classification, synthesizing an ideal
// index recommendation when no existing index suffices.
package analyzer

// FieldRole is the access-pattern role a field plays in a query, which
// determines its place in an ideal compound index.
type FieldRole string

const (
	RoleEquiv       FieldRole = "EQUIV"
	RoleRange       FieldRole = "RANGE"
	RoleSort        FieldRole = "SORT"
	RoleUnsupported FieldRole = "UNSUPPORTED"
)

// Coverage describes how much of a query an index's key prefix can serve.
type Coverage string

const (
	CoverageUnknown Coverage = "unknown"
	CoverageNone    Coverage = "none"
	CoveragePartial Coverage = "partial"
	CoverageFull    Coverage = "full"
)

// AnalyzedField is one field of a query, classified by role. Seq is only
// meaningful for SORT fields, recording their position in the sort spec.
type AnalyzedField struct {
	FieldName string
	FieldType FieldRole
	Seq       int
}

// QueryAnalysis is the ordered classification of a normalized query's
// fields, per spec §3/§4.5. Ordering invariant: SORT fields first (in
// orderby order), then query fields in source order, skipping any name
// already placed as SORT.
type QueryAnalysis struct {
	AnalyzedFields []AnalyzedField
	FieldCount     int
	Supported      bool
	QueryMask      string
}

// IndexDescriptor is the ordered key list of one existing index.
// Each pair is (fieldName, direction-or-type); direction "2d" marks a
// geospatial index.
type IndexDescriptor struct {
	Name string
	Key  []IndexKeyField
}

// IndexKeyField is one (field, direction) pair in an index's key list.
// Direction is typically 1, -1, or the literal string "2d".
type IndexKeyField struct {
	FieldName string
	Direction interface{}
}

// IndexReport scores one existing index against a QueryAnalysis.
type IndexReport struct {
	Coverage           Coverage
	IdealOrder         bool
	QueryFieldsCovered int
	Index              IndexDescriptor
	Supported          bool
}

// IndexAnalysis aggregates all of a collection's IndexReports.
type IndexAnalysis struct {
	IndexStatus         Coverage
	FullIndexes         []IndexReport
	PartialIndexes      []IndexReport
	NeedsRecommendation bool
}

// Recommendation is a synthesized ideal index for a query that no existing
// index fully and ideally covers.
type Recommendation struct {
	Index        string // canonical {"f":1,...} shape, ascending-only
	ShellCommand string
}
