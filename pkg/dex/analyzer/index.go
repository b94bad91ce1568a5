package analyzer

// AnalyzeIndexes scores every cached index against a query analysis and
// rolls the result up into an IndexAnalysis, per §4.6.
func AnalyzeIndexes(qa QueryAnalysis, indexes []IndexDescriptor) IndexAnalysis {
	if !qa.Supported || len(qa.AnalyzedFields) == 0 {
		return IndexAnalysis{IndexStatus: CoverageUnknown, NeedsRecommendation: true}
	}

	var full, partial []IndexReport
	needsRecommendation := true

	for _, idx := range indexes {
		report := ReportIndex(idx, qa)
		if !report.Supported {
			continue
		}
		switch report.Coverage {
		case CoverageFull:
			full = append(full, report)
			if report.IdealOrder {
				needsRecommendation = false
			}
		case CoveragePartial:
			partial = append(partial, report)
		}
	}

	status := CoverageNone
	if len(full) > 0 {
		status = CoverageFull
	} else if len(partial) > 0 {
		status = CoveragePartial
	}

	return IndexAnalysis{
		IndexStatus:         status,
		FullIndexes:         full,
		PartialIndexes:      partial,
		NeedsRecommendation: needsRecommendation,
	}
}

// ReportIndex analyzes one existing index descriptor against a query
// analysis, per §4.7.
func ReportIndex(idx IndexDescriptor, qa QueryAnalysis) IndexReport {
	var equiv, sortFields, rangeFields []string
	allFields := make(map[string]bool, len(qa.AnalyzedFields))

	for _, f := range qa.AnalyzedFields {
		allFields[f.FieldName] = true
		switch f.FieldType {
		case RoleEquiv:
			equiv = append(equiv, f.FieldName)
		case RoleSort:
			sortFields = append(sortFields, f.FieldName)
		case RoleRange:
			rangeFields = append(rangeFields, f.FieldName)
		}
	}
	inEquiv := toSet(equiv)
	inSort := toSet(sortFields)
	inRange := toSet(rangeFields)

	maxEquivSeq := len(equiv)
	maxSortSeq := maxEquivSeq + len(sortFields)
	maxRangeSeq := maxSortSeq + len(rangeFields)

	coverage := CoverageNone
	covered := 0
	supported := true
	idealOrder := true

	for _, keyField := range idx.Key {
		if dir, ok := keyField.Direction.(string); ok && dir == "2d" {
			supported = false
			break
		}
		if !allFields[keyField.FieldName] {
			break
		}
		if covered == 0 {
			coverage = CoveragePartial
		}
		switch {
		case covered < maxEquivSeq:
			if !inEquiv[keyField.FieldName] {
				idealOrder = false
			}
		case covered < maxSortSeq:
			if !inSort[keyField.FieldName] {
				idealOrder = false
			}
		case covered < maxRangeSeq:
			if !inRange[keyField.FieldName] {
				idealOrder = false
			}
		}
		covered++
	}

	if covered == qa.FieldCount {
		coverage = CoverageFull
	}

	return IndexReport{
		Coverage:           coverage,
		IdealOrder:         idealOrder,
		QueryFieldsCovered: covered,
		Index:              idx,
		Supported:          supported,
	}
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
