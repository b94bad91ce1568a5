// Package orderedmap re-exports github.com/wk8/go-ordered-map/v2 under the
// names this module's packages use for query predicates, sort specs, and
// index key lists, all of which are semantically order-sensitive.
package orderedmap

import (
	om "github.com/wk8/go-ordered-map/v2"
)

// Map is an insertion-ordered string-keyed map of arbitrary values, used for
// query predicates, sort specifications ("orderby"), and command payloads.
type Map = om.OrderedMap[string, interface{}]

// New returns an empty Map.
func New() *Map {
	return om.New[string, interface{}]()
}

// Pair is a single key/value entry as returned by Map.Oldest/Newest/Next.
type Pair = om.Pair[string, interface{}]

// FromPairs builds a Map preserving the given key order.
func FromPairs(pairs ...Pair) *Map {
	m := New()
	for _, p := range pairs {
		m.Set(p.Key, p.Value)
	}
	return m
}

// Keys returns the map's keys in insertion order.
func Keys(m *Map) []string {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, m.Len())
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}
