package parser

import (
	"regexp"
	"strconv"
	"time"

	"github.com/go-go-golems/dex/pkg/dex/orderedmap"
)

// timestampRx matches the fixed-width "Wkd Mon D HH:MM:SS" prefix used by
// the server's log format (§4.2). The year is absent and assumed to be the
// current UTC year.
var timestampRx = regexp.MustCompile(`^[A-Za-z]{3} [A-Za-z]{3}\s+\d{1,2} \d{2}:\d{2}:\d{2}`)

const timestampLayout = "Mon Jan _2 15:04:05 2006"

// Dispatcher tries an ordered list of LineHandlers and returns the first
// non-nil result, per §4.2.
type Dispatcher struct {
	handlers       []LineHandler
	profileHandler ProfileHandler
	now            func() time.Time
}

// NewDispatcher builds a Dispatcher with the given handlers, tried in order.
func NewDispatcher(handlers []LineHandler) *Dispatcher {
	return &Dispatcher{handlers: handlers, now: time.Now}
}

// ParseLine tries each handler in order and returns the first successful
// Record, with any line timestamp attached. It returns (nil, false) if no
// handler produced a record, and (nil, true) is never returned — "false"
// always means "no record".
func (d *Dispatcher) ParseLine(line string) (*Record, bool) {
	for _, h := range d.handlers {
		rec, err := h.Handle(line)
		if err != nil {
			// §4.2: an internal handler error yields no result; keep trying.
			continue
		}
		if rec != nil {
			if ts, ok := d.parseTimestamp(line); ok {
				rec.TS = ts
			}
			return rec, true
		}
	}
	return nil, false
}

// ParseProfileEntry extracts a Record from one structured profile document.
// If the entry carries a "ts" field it is attached directly (profile
// entries are already timestamped, unlike raw log lines).
func (d *Dispatcher) ParseProfileEntry(entry *orderedmap.Map) (*Record, bool, error) {
	rec, err := d.profileHandler.Handle(entry)
	if err != nil {
		return nil, false, err
	}
	if rec == nil {
		return nil, false, nil
	}
	if entry != nil {
		if tsVal, has := entry.Get("ts"); has {
			if ts, ok := tsVal.(time.Time); ok {
				rec.TS = ts
			}
		}
	}
	return rec, true, nil
}

// HasTimestampPrefix reports whether line begins with the fixed-width
// server timestamp, regardless of whether any handler accepted the line.
// The runner uses this to split unparsable-line counts (§6/§7).
func HasTimestampPrefix(line string) bool {
	return timestampRx.MatchString(line)
}

func (d *Dispatcher) parseTimestamp(line string) (time.Time, bool) {
	match := timestampRx.FindString(line)
	if match == "" {
		return time.Time{}, false
	}
	year := d.now().UTC().Year()
	ts, err := time.Parse(timestampLayout, match+" "+strconv.Itoa(year))
	if err != nil {
		return time.Time{}, false
	}
	return ts.UTC(), true
}
