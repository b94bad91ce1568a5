// Package scrub replaces literal values in a query shape with placeholders
// and serializes the result to a canonical, order-independent mask string.
package scrub

import (
	"sort"

	"github.com/go-go-golems/dex/pkg/dex/orderedmap"
)

// multiValueOperators collapse to a single placeholder regardless of how
// many literal values they actually carry, so {$in: [1,2]} and {$in: [9]}
// produce the same shape.
var multiValueOperators = map[string]bool{
	"$in":  true,
	"$nin": true,
	"$all": true,
}

const placeholder = "<val>"

// Scrub recursively replaces every leaf value in v with the placeholder
// string, preserving map key order and sorting list elements so that
// differently-ordered multi-valued arguments collapse to the same shape.
//
// v must be one of: *orderedmap.Map, []interface{}, or a scalar
// (string/bool/int/int64/float64/nil). The return value has the same shape
// as v, with every scalar replaced by "<val>".
func Scrub(v interface{}) interface{} {
	switch val := v.(type) {
	case *orderedmap.Map:
		return scrubMap(val)
	case []interface{}:
		return scrubList(val)
	default:
		return placeholder
	}
}

func scrubMap(m *orderedmap.Map) *orderedmap.Map {
	out := orderedmap.New()
	if m == nil {
		return out
	}
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		if multiValueOperators[pair.Key] {
			out.Set(pair.Key, []interface{}{placeholder})
			continue
		}
		out.Set(pair.Key, Scrub(pair.Value))
	}
	return out
}

func scrubList(a []interface{}) []interface{} {
	out := make([]interface{}, 0, len(a))
	for _, e := range a {
		out = append(out, Scrub(e))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return Mask(out[i]) < Mask(out[j])
	})
	return out
}
