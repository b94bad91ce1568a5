// Package render formats the final run output. It is the one package
// allowed to special-case the server's historical quote convention (§4.11):
// everything else treats JSON normally.
package render

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// Render marshals v as indented JSON, then swaps its quoting convention:
// unescaped double quotes become single quotes, and escaped double quotes
// are unescaped, matching the output format spec.md §6 describes. HTML
// escaping is disabled so that mask placeholders like "<val>" survive
// unmangled.
func Render(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", errors.Wrap(err, "render: marshaling output document")
	}
	return quoteSwap(strings.TrimRight(buf.String(), "\n")), nil
}

// quoteSwap walks the JSON text byte by byte and swaps its quoting
// convention: a backslash-escaped double quote (from a JSON-encoded string
// nested inside a string, e.g. an embedded mask) is restored to a bare
// double quote, and every remaining double quote — now unambiguously a
// structural JSON delimiter — becomes a single quote.
func quoteSwap(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) && s[i+1] == '"' {
			b.WriteByte('"')
			i++
			continue
		}
		if c == '"' {
			b.WriteByte('\'')
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
