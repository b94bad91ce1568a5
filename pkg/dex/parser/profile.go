package parser

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/go-go-golems/dex/pkg/dex/orderedmap"
)

// ProfileHandler extracts a normalized Record from one structured profile
// document (§4.4).
type ProfileHandler struct{}

// Handle implements the profile-entry extraction rules: insert ops are
// dropped, query/update/command ops extract the predicate and optional
// sort, reading millis and ns directly off the entry.
func (ProfileHandler) Handle(entry *orderedmap.Map) (*Record, error) {
	if entry == nil {
		return nil, nil
	}
	opVal, has := entry.Get("op")
	if !has {
		return nil, nil
	}
	op, _ := opVal.(string)

	ns, _ := getString(entry, "ns")
	millis := getInt(entry, "millis")
	stats := Stats{Millis: millis}

	switch op {
	case "insert":
		return nil, nil

	case "query":
		queryVal, _ := entry.Get("query")
		queryDoc, ok := AsMap(queryVal)
		if !ok {
			return nil, errors.New("profile handler: query entry has no document")
		}
		var rawQuery interface{} = queryDoc
		var rawOrderBy interface{}
		if qv, has := queryDoc.Get("$query"); has {
			rawQuery = qv
		} else {
			rawQuery = queryDoc
		}
		if ob, has := queryDoc.Get("$orderby"); has {
			rawOrderBy = ob
		}
		return buildRecord(ns, rawQuery, rawOrderBy, "", stats), nil

	case "update":
		queryVal, _ := entry.Get("query")
		var rawOrderBy interface{}
		if updateObjVal, has := entry.Get("updateobj"); has {
			if updateObj, ok := AsMap(updateObjVal); ok {
				if ob, has := updateObj.Get("orderby"); has {
					rawOrderBy = ob
				}
			}
		}
		return buildRecord(ns, queryVal, rawOrderBy, "", stats), nil

	case "command":
		cmdVal, has := entry.Get("command")
		if !has {
			return nil, errors.New("profile handler: command entry missing command document")
		}
		cmdDoc, ok := AsMap(cmdVal)
		if !ok || cmdDoc.Len() == 0 {
			return nil, errors.New("profile handler: command document is not a map")
		}
		command := cmdDoc.Oldest().Key
		if !SupportedCommands[command] {
			return &Record{
				NS:        dbOf(ns) + ".$cmd",
				Query:     orderedmap.New(),
				Command:   command,
				QueryMask: buildMaskFromScrubbed(orderedmap.New(), nil, command),
				Stats:     stats,
				Supported: false,
			}, nil
		}

		var entryNS string
		var rawPredicate interface{}
		var rawOrderBy interface{}
		switch command {
		case "count":
			name, _ := cmdDoc.Get("count")
			entryNS = fmt.Sprintf("%s.%v", dbOf(ns), name)
			rawPredicate, _ = cmdDoc.Get("query")
		case "findAndModify":
			name, _ := cmdDoc.Get("findAndModify")
			entryNS = fmt.Sprintf("%s.%v", dbOf(ns), name)
			rawPredicate, _ = cmdDoc.Get("query")
			if sort, has := cmdDoc.Get("sort"); has {
				rawOrderBy = sort
			}
		case "geoNear":
			name, _ := cmdDoc.Get("geoNear")
			entryNS = fmt.Sprintf("%s.%v", dbOf(ns), name)
			rawPredicate, _ = cmdDoc.Get("search")
		}
		return buildRecord(entryNS, rawPredicate, rawOrderBy, command, stats), nil

	default:
		return nil, nil
	}
}

func buildRecord(ns string, rawQuery, rawOrderBy interface{}, command string, stats Stats) *Record {
	scrubbedQuery := scrubPredicate(rawQuery)
	var scrubbedOrderBy *orderedmap.Map
	if rawOrderBy != nil {
		scrubbedOrderBy = scrubPredicate(rawOrderBy)
	}
	return &Record{
		NS:        ns,
		Query:     scrubbedQuery,
		OrderBy:   scrubbedOrderBy,
		Command:   command,
		QueryMask: buildMaskFromScrubbed(scrubbedQuery, scrubbedOrderBy, command),
		Stats:     stats,
		Supported: true,
	}
}

func getString(m *orderedmap.Map, key string) (string, bool) {
	v, has := m.Get(key)
	if !has {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func getInt(m *orderedmap.Map, key string) int {
	v, has := m.Get(key)
	if !has {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// dbOf returns the database part of a "db.collection" namespace.
func dbOf(ns string) string {
	for i := 0; i < len(ns); i++ {
		if ns[i] == '.' {
			return ns[:i]
		}
	}
	return ns
}
