package analyzer

import (
	"bytes"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/dex/pkg/dex/dexerr"
	"github.com/go-go-golems/dex/pkg/dex/parser"
)

// Recommend synthesizes an ideal compound index for a query analysis,
// ordering fields EQUIV, then SORT (in orderby order), then RANGE, per §4.8.
// It returns (zero, false) when the query analysis carries no fields, or
// when the synthesized shape fails to round-trip through the document
// parser (the index is discarded rather than recommended).
func Recommend(ns string, qa QueryAnalysis) (Recommendation, bool) {
	if !qa.Supported || len(qa.AnalyzedFields) == 0 {
		return Recommendation{}, false
	}

	var equiv, sortFields, rangeFields []string
	for _, f := range qa.AnalyzedFields {
		switch f.FieldType {
		case RoleEquiv:
			equiv = append(equiv, f.FieldName)
		case RoleSort:
			sortFields = append(sortFields, f.FieldName)
		case RoleRange:
			rangeFields = append(rangeFields, f.FieldName)
		default:
			return Recommendation{}, false
		}
	}

	ordered := make([]string, 0, len(qa.AnalyzedFields))
	ordered = append(ordered, equiv...)
	ordered = append(ordered, sortFields...)
	ordered = append(ordered, rangeFields...)

	shape := buildShape(ordered)
	if err := roundTrip(shape); err != nil {
		log.Debug().Err(dexerr.InvalidRecommendation(shape, err)).Msg("discarding synthesized recommendation")
		return Recommendation{}, false
	}

	return Recommendation{
		Index:        shape,
		ShellCommand: fmt.Sprintf(`db["%s"].ensureIndex(%s, {"background": true})`, collectionOf(ns), shape),
	}, true
}

// buildShape renders the canonical ascending-only {"f":1,...} index shape.
func buildShape(fields []string) string {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(f)
		buf.WriteString(`":1`)
	}
	buf.WriteByte('}')
	return buf.String()
}

// roundTrip discards a synthesized shape that the permissive document
// parser itself cannot re-read, per §4.8's validation step.
func roundTrip(shape string) error {
	_, err := parser.ParseDoc(shape)
	return err
}

// collectionOf returns the collection part of a "db.collection" namespace.
func collectionOf(ns string) string {
	for i := 0; i < len(ns); i++ {
		if ns[i] == '.' {
			return ns[i+1:]
		}
	}
	return ns
}
