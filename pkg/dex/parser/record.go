// Package parser turns a raw log line or profile entry into the normalized
// query record described in spec §3, via an ordered list of handlers tried
// in a fixed order (§4.2).
package parser

import (
	"time"

	"github.com/go-go-golems/dex/pkg/dex/orderedmap"
)

// Stats carries the service-time and any other trailing counters parsed off
// a log line or read directly off a profile entry. Millis is always present;
// other keys are passed through verbatim.
type Stats struct {
	Millis int
	Extra  map[string]int
}

// Record is the normalized query descriptor produced by a handler, per
// spec §3.
type Record struct {
	NS        string
	Query     *orderedmap.Map
	OrderBy   *orderedmap.Map // nil if the query carries no sort
	Command   string          // "" unless this is a command query
	QueryMask string
	Stats     Stats
	Supported bool
	TS        time.Time // zero Time if no timestamp was available
}
