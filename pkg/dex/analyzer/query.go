package analyzer

import (
	"github.com/go-go-golems/dex/pkg/dex/orderedmap"
	"github.com/go-go-golems/dex/pkg/dex/parser"
)

// rangeOperators are the inner operator keys that classify a field as RANGE
// when every operator key of its sub-document is one of them. $not is included even
// though it semantically wraps another operator — this classification is
// preserved deliberately (spec open question (a)).
var rangeOperators = map[string]bool{
	"$ne": true, "$gt": true, "$lt": true, "$gte": true, "$lte": true,
	"$in": true, "$nin": true, "$all": true, "$not": true,
}

// unsupportedOperators always force UNSUPPORTED classification of the field
// they appear as a top-level predicate key.
var unsupportedOperators = map[string]bool{
	"$mod": true, "$exists": true, "$size": true, "$type": true,
	"$elemMatch": true, "$where": true, "$near": true, "$within": true,
}

// compositeOperators ($or/$nor/$and) are also UNSUPPORTED: this analyzer
// does not reason about nested boolean composition.
var compositeOperators = map[string]bool{
	"$or": true, "$nor": true, "$and": true,
}

// Analyze classifies a normalized record's fields by access role, per §4.5.
func Analyze(rec *parser.Record) QueryAnalysis {
	supported := true
	if rec.Command != "" && !parser.SupportedCommands[rec.Command] {
		supported = false
	}

	var fields []AnalyzedField
	sortNames := make(map[string]bool)

	if rec.OrderBy != nil {
		seq := 0
		for pair := rec.OrderBy.Oldest(); pair != nil; pair = pair.Next() {
			fields = append(fields, AnalyzedField{
				FieldName: pair.Key,
				FieldType: RoleSort,
				Seq:       seq,
			})
			sortNames[pair.Key] = true
			seq++
		}
	}

	if rec.Query != nil {
		for pair := rec.Query.Oldest(); pair != nil; pair = pair.Next() {
			if sortNames[pair.Key] {
				continue
			}
			role, ok := classifyField(pair.Key, pair.Value)
			if !ok {
				supported = false
			}
			fields = append(fields, AnalyzedField{FieldName: pair.Key, FieldType: role})
		}
	}

	return QueryAnalysis{
		AnalyzedFields: fields,
		FieldCount:     len(fields),
		Supported:      supported,
		QueryMask:      rec.QueryMask,
	}
}

// classifyField returns the field's role and whether that role is a
// supported one (false for UNSUPPORTED).
func classifyField(key string, value interface{}) (FieldRole, bool) {
	if compositeOperators[key] || unsupportedOperators[key] {
		return RoleUnsupported, false
	}

	m, ok := value.(*orderedmap.Map)
	if !ok || m.Len() == 0 {
		return RoleEquiv, true
	}

	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		if !rangeOperators[pair.Key] {
			return RoleUnsupported, false
		}
	}
	return RoleRange, true
}
