package scrub

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-go-golems/dex/pkg/dex/orderedmap"
)

// Mask renders v as canonical JSON: object keys sorted ascending at every
// level, no whitespace, "," and ":" separators. It is a pure function of the
// shape of v — callers pass already-scrubbed values so that no literal
// influences the output.
func Mask(v interface{}) string {
	var b strings.Builder
	writeCanonical(&b, v)
	return b.String()
}

// BuildMask wraps a scrubbed query (and optional scrubbed sort spec / command
// name) in the §4.1 envelope and renders it as a canonical mask string.
func BuildMask(scrubbedQuery interface{}, scrubbedOrderBy interface{}, command string) string {
	envelope := orderedmap.New()
	envelope.Set("$query", scrubbedQuery)
	if scrubbedOrderBy != nil {
		envelope.Set("$orderby", scrubbedOrderBy)
	}
	if command != "" {
		envelope.Set("$cmd", command)
	}
	return Mask(envelope)
}

func writeCanonical(b *strings.Builder, v interface{}) {
	switch val := v.(type) {
	case nil:
		b.WriteString("null")
	case *orderedmap.Map:
		writeCanonicalMap(b, val)
	case map[string]interface{}:
		writeCanonicalMap(b, orderedMapFromPlain(val))
	case []interface{}:
		b.WriteByte('[')
		for i, e := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, e)
		}
		b.WriteByte(']')
	case string:
		b.WriteString(strconv.Quote(val))
	case bool:
		b.WriteString(strconv.FormatBool(val))
	case int:
		b.WriteString(strconv.Itoa(val))
	case int64:
		b.WriteString(strconv.FormatInt(val, 10))
	case float64:
		b.WriteString(strconv.FormatFloat(val, 'g', -1, 64))
	default:
		b.WriteString(strconv.Quote(fmt.Sprintf("%v", val)))
	}
}

func writeCanonicalMap(b *strings.Builder, m *orderedmap.Map) {
	keys := orderedmap.Keys(m)
	sort.Strings(keys)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		val, _ := m.Get(k)
		writeCanonical(b, val)
	}
	b.WriteByte('}')
}

func orderedMapFromPlain(m map[string]interface{}) *orderedmap.Map {
	// Plain maps lose insertion order; canonical output sorts keys anyway
	// so this only matters for callers that hand in map[string]interface{}
	// directly (e.g. constants in tests).
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := orderedmap.New()
	for _, k := range keys {
		out.Set(k, m[k])
	}
	return out
}
