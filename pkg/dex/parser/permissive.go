package parser

import (
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/dex/pkg/dex/orderedmap"
)

// trailingCommaRx strips a trailing comma before a closing brace/bracket,
// which the server's log format tolerates but plain YAML flow syntax does
// not.
var trailingCommaRx = regexp.MustCompile(`,\s*([}\]])`)

// ParseDoc decodes a permissive, order-preserving document: unquoted keys,
// single-quoted strings, and trailing commas are all tolerated because the
// underlying decoder is YAML (a JSON superset) with a light preprocessing
// pass. The result is built from *orderedmap.Map, []interface{}, and
// scalars (string, bool, int, float64, nil) so that field order downstream
// of the decode is always the source order.
func ParseDoc(src string) (interface{}, error) {
	cleaned := trailingCommaRx.ReplaceAllString(src, "$1")

	var node yaml.Node
	if err := yaml.Unmarshal([]byte(cleaned), &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	return nodeToValue(node.Content[0]), nil
}

func nodeToValue(n *yaml.Node) interface{} {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil
		}
		return nodeToValue(n.Content[0])
	case yaml.MappingNode:
		m := orderedmap.New()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			m.Set(key, nodeToValue(n.Content[i+1]))
		}
		return m
	case yaml.SequenceNode:
		out := make([]interface{}, 0, len(n.Content))
		for _, c := range n.Content {
			out = append(out, nodeToValue(c))
		}
		return out
	case yaml.ScalarNode:
		return scalarValue(n)
	case yaml.AliasNode:
		return nodeToValue(n.Alias)
	default:
		return nil
	}
}

func scalarValue(n *yaml.Node) interface{} {
	switch n.Tag {
	case "!!null":
		return nil
	case "!!bool":
		b, err := strconv.ParseBool(n.Value)
		if err == nil {
			return b
		}
	case "!!int":
		i, err := strconv.ParseInt(n.Value, 10, 64)
		if err == nil {
			return i
		}
	case "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err == nil {
			return f
		}
	}
	return n.Value
}

// AsMap type-asserts v as *orderedmap.Map, returning (nil, false) for any
// other shape (including a literally absent/nil value).
func AsMap(v interface{}) (*orderedmap.Map, bool) {
	m, ok := v.(*orderedmap.Map)
	return m, ok
}
