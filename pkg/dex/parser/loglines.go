package parser

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/pkg/errors"

	"github.com/go-go-golems/dex/pkg/dex/orderedmap"
	"github.com/go-go-golems/dex/pkg/dex/scrub"
)

// LineHandler extracts a normalized Record from one raw log line. A nil,
// nil return means "does not apply, try the next handler"; a non-nil error
// is treated the same way by the Dispatcher (§4.2: "a handler that raises
// an internal error yields no result").
type LineHandler interface {
	Name() string
	Handle(line string) (*Record, error)
}

// SupportedCommands are the $cmd command queries this module understands.
// Anything else is recorded as unsupported rather than dropped, per §4.3.
var SupportedCommands = map[string]bool{
	"count":         true,
	"findAndModify": true,
	"geoNear":       true,
}

// scrubPredicate scrubs an arbitrary parsed value and asserts it back to a
// map, falling back to an empty map for malformed (non-map) predicates.
func scrubPredicate(raw interface{}) *orderedmap.Map {
	if raw == nil {
		return orderedmap.New()
	}
	scrubbed := scrub.Scrub(raw)
	m, ok := scrubbed.(*orderedmap.Map)
	if !ok {
		return orderedmap.New()
	}
	return m
}

// unwrapQueryEnvelope splits a parsed predicate document into its
// $query/$orderby parts if the document came wrapped that way, per §4.3's
// "if the resulting mapping contains a single $query wrapper, unwrap it".
func unwrapQueryEnvelope(raw interface{}) (query interface{}, orderby interface{}, err error) {
	m, ok := AsMap(raw)
	if !ok {
		return nil, nil, errors.New("query payload is not a document")
	}
	if qv, has := m.Get("$query"); has {
		query = qv
		if ob, has2 := m.Get("$orderby"); has2 {
			orderby = ob
		}
		return query, orderby, nil
	}
	return m, nil, nil
}

////////////////////////////////////////////////////////////////////////////
// Standard query handler
////////////////////////////////////////////////////////////////////////////

var standardQueryRx = regexp.MustCompile(
	`.*\[(?P<connection>\S*)\] (?P<operation>\S+) (?P<ns>\S+\.\S+) query: ` +
		`(?P<query>\{.*\}) (?P<stats>(?:\S+ )*)(?P<millis>\d+)ms`)

// StandardQueryHandler matches general queries, including getmore.
type StandardQueryHandler struct{}

func (StandardQueryHandler) Name() string { return "Standard Query Log Line Handler" }

func (StandardQueryHandler) Handle(line string) (*Record, error) {
	m := standardQueryRx.FindStringSubmatch(line)
	if m == nil {
		return nil, nil
	}
	groups := namedGroups(standardQueryRx, m)

	parsed, err := ParseDoc(groups["query"])
	if err != nil {
		return nil, errors.Wrap(err, "standard query handler: parsing predicate")
	}
	rawQuery, rawOrderBy, err := unwrapQueryEnvelope(parsed)
	if err != nil {
		return nil, err
	}

	scrubbedQuery := scrubPredicate(rawQuery)
	var scrubbedOrderBy *orderedmap.Map
	if rawOrderBy != nil {
		scrubbedOrderBy = scrubPredicate(rawOrderBy)
	}

	millis, err := strconv.Atoi(groups["millis"])
	if err != nil {
		return nil, errors.Wrap(err, "standard query handler: parsing millis")
	}

	return &Record{
		NS:        groups["ns"],
		Query:     scrubbedQuery,
		OrderBy:   scrubbedOrderBy,
		QueryMask: buildMaskFromScrubbed(scrubbedQuery, scrubbedOrderBy, ""),
		Stats:     Stats{Millis: millis, Extra: parseLineStats(groups["stats"])},
		Supported: true,
	}, nil
}

////////////////////////////////////////////////////////////////////////////
// Command query handler
////////////////////////////////////////////////////////////////////////////

var cmdQueryRx = regexp.MustCompile(
	`.*\[conn(?P<connid>\d+)\] command (?P<db>\S+)\.\$cmd command: ` +
		`(?P<query>\{.*\}) (?P<stats>(?:\S+ )*)(?P<millis>\d+)ms`)

// CmdQueryHandler matches $cmd command queries (count, findAndModify,
// geoNear). It must be tried before StandardQueryHandler because command
// lines syntactically overlap generic queries (§4.2).
type CmdQueryHandler struct{}

func (CmdQueryHandler) Name() string { return "CMD Log Line Handler" }

func (CmdQueryHandler) Handle(line string) (*Record, error) {
	m := cmdQueryRx.FindStringSubmatch(line)
	if m == nil {
		return nil, nil
	}
	groups := namedGroups(cmdQueryRx, m)

	parsed, err := ParseDoc(groups["query"])
	if err != nil {
		return nil, errors.Wrap(err, "cmd query handler: parsing command document")
	}
	doc, ok := AsMap(parsed)
	if !ok || doc.Len() == 0 {
		return nil, errors.New("cmd query handler: command document is not a map")
	}

	command := doc.Oldest().Key
	db := groups["db"]
	millis, err := strconv.Atoi(groups["millis"])
	if err != nil {
		return nil, errors.Wrap(err, "cmd query handler: parsing millis")
	}
	stats := Stats{Millis: millis, Extra: parseLineStats(groups["stats"])}

	if !SupportedCommands[command] {
		return &Record{
			NS:        db + ".$cmd",
			Query:     orderedmap.New(),
			Command:   command,
			QueryMask: buildMaskFromScrubbed(orderedmap.New(), nil, command),
			Stats:     stats,
			Supported: false,
		}, nil
	}

	var ns string
	var rawPredicate interface{}
	var rawOrderBy interface{}

	switch command {
	case "count":
		name, _ := doc.Get("count")
		ns = fmt.Sprintf("%s.%v", db, name)
		rawPredicate, _ = doc.Get("query")
	case "findAndModify":
		name, _ := doc.Get("findAndModify")
		ns = fmt.Sprintf("%s.%v", db, name)
		rawPredicate, _ = doc.Get("query")
		if sort, has := doc.Get("sort"); has {
			rawOrderBy = sort
		}
	case "geoNear":
		name, _ := doc.Get("geoNear")
		ns = fmt.Sprintf("%s.%v", db, name)
		rawPredicate, _ = doc.Get("search")
	}

	scrubbedQuery := scrubPredicate(rawPredicate)
	var scrubbedOrderBy *orderedmap.Map
	if rawOrderBy != nil {
		scrubbedOrderBy = scrubPredicate(rawOrderBy)
	}

	return &Record{
		NS:        ns,
		Query:     scrubbedQuery,
		OrderBy:   scrubbedOrderBy,
		Command:   command,
		QueryMask: buildMaskFromScrubbed(scrubbedQuery, scrubbedOrderBy, ""),
		Stats:     stats,
		Supported: true,
	}, nil
}

////////////////////////////////////////////////////////////////////////////
// Update query handler
////////////////////////////////////////////////////////////////////////////

var updateQueryRx = regexp.MustCompile(
	`.*\[conn(?P<connid>\d+)\] update (?P<ns>\S+\.\S+) query: ` +
		`(?P<query>\{.*\}) update: (?P<update>\{.*\}) (?P<stats>(?:\S+ )*)(?P<millis>\d+)ms`)

// UpdateQueryHandler matches update operations. Only the predicate
// participates in analysis; the update document is discarded (§4.3).
type UpdateQueryHandler struct{}

func (UpdateQueryHandler) Name() string { return "Update Log Line Handler" }

func (UpdateQueryHandler) Handle(line string) (*Record, error) {
	m := updateQueryRx.FindStringSubmatch(line)
	if m == nil {
		return nil, nil
	}
	groups := namedGroups(updateQueryRx, m)

	parsed, err := ParseDoc(groups["query"])
	if err != nil {
		return nil, errors.Wrap(err, "update query handler: parsing predicate")
	}
	rawQuery, rawOrderBy, err := unwrapQueryEnvelope(parsed)
	if err != nil {
		return nil, err
	}

	scrubbedQuery := scrubPredicate(rawQuery)
	var scrubbedOrderBy *orderedmap.Map
	if rawOrderBy != nil {
		scrubbedOrderBy = scrubPredicate(rawOrderBy)
	}

	millis, err := strconv.Atoi(groups["millis"])
	if err != nil {
		return nil, errors.Wrap(err, "update query handler: parsing millis")
	}

	return &Record{
		NS:        groups["ns"],
		Query:     scrubbedQuery,
		OrderBy:   scrubbedOrderBy,
		QueryMask: buildMaskFromScrubbed(scrubbedQuery, scrubbedOrderBy, ""),
		Stats:     Stats{Millis: millis, Extra: parseLineStats(groups["stats"])},
		Supported: true,
	}, nil
}

////////////////////////////////////////////////////////////////////////////
// Timing fallback handler
////////////////////////////////////////////////////////////////////////////

var timingFallbackRx = regexp.MustCompile(`(?P<millis>\d+)ms\s*$`)

// TimingFallbackHandler matches any line ending in "<N>ms" so that
// unparseable slow lines still contribute to the unparsed-time tally
// (§4.3). It must be tried last.
type TimingFallbackHandler struct{}

func (TimingFallbackHandler) Name() string { return "Timing Fallback Log Line Handler" }

func (TimingFallbackHandler) Handle(line string) (*Record, error) {
	m := timingFallbackRx.FindStringSubmatch(line)
	if m == nil {
		return nil, nil
	}
	groups := namedGroups(timingFallbackRx, m)
	millis, err := strconv.Atoi(groups["millis"])
	if err != nil {
		return nil, errors.Wrap(err, "timing fallback handler: parsing millis")
	}
	return &Record{
		NS:        "?",
		Stats:     Stats{Millis: millis},
		Supported: false,
	}, nil
}

// namedGroups returns a map of named capture groups to their matched text
// for the given regex and a result from FindStringSubmatch.
func namedGroups(rx *regexp.Regexp, match []string) map[string]string {
	groups := make(map[string]string, len(match))
	for i, name := range rx.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		groups[name] = match[i]
	}
	return groups
}

// buildMaskFromScrubbed renders the §4.1 envelope mask from already-scrubbed
// query/orderby values (possibly nil orderby).
func buildMaskFromScrubbed(query *orderedmap.Map, orderby *orderedmap.Map, command string) string {
	var ob interface{}
	if orderby != nil {
		ob = orderby
	}
	return scrub.BuildMask(query, ob, command)
}

// DefaultLogHandlers returns the handler list in dispatch order: the command
// handler first (it must precede the general-query handler per §4.2), then
// update (whose braces-in-braces shape could otherwise be mis-split by the
// standard handler's greedy capture), then the standard handler, and
// finally the timing fallback.
func DefaultLogHandlers() []LineHandler {
	return []LineHandler{
		CmdQueryHandler{},
		UpdateQueryHandler{},
		StandardQueryHandler{},
		TimingFallbackHandler{},
	}
}
