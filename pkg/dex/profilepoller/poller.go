// Package profilepoller periodically scans a database's system.profile
// collection for entries newer than the last one seen, converting each
// into the ordered document shape the parser package expects. Supplements
// the profile-collection input mode spec.md mentions but does not fully
// specify, grounded on original_source/dex/dex.py's profiling invocation.
package profilepoller

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/go-go-golems/dex/pkg/dex/orderedmap"
)

// Poller watches one database's system.profile collection.
type Poller struct {
	client   *mongo.Client
	database string
	interval time.Duration
	lastSeen time.Time
}

// New builds a Poller that scans database.system.profile every interval.
func New(client *mongo.Client, database string, interval time.Duration) *Poller {
	return &Poller{client: client, database: database, interval: interval, lastSeen: time.Now().UTC()}
}

// Run polls until ctx is done, pushing each new profile entry onto out.
// out is closed when Run returns.
func (p *Poller) Run(ctx context.Context, out chan<- *orderedmap.Map) {
	defer close(out)
	if p.client == nil {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx, out)
		}
	}
}

func (p *Poller) poll(ctx context.Context, out chan<- *orderedmap.Map) {
	coll := p.client.Database(p.database).Collection("system.profile")
	filter := bson.M{"ts": bson.M{"$gt": p.lastSeen}}
	cursor, err := coll.Find(ctx, filter, options.Find().SetSort(bson.M{"ts": 1}))
	if err != nil {
		log.Warn().Err(errors.Wrap(err, "profilepoller: querying system.profile")).Msg("skipping this poll cycle")
		return
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		entry := rawToOrderedMap(cursor.Current)
		if ts, ok := entry.Get("ts"); ok {
			if t, ok := ts.(time.Time); ok && t.After(p.lastSeen) {
				p.lastSeen = t
			}
		}
		out <- entry
	}
	if err := cursor.Err(); err != nil {
		log.Warn().Err(err).Msg("profilepoller: iterating cursor")
	}
}

// rawToOrderedMap decodes a raw BSON document into an order-preserving map,
// the same shape ParseDoc produces for log-embedded predicates.
func rawToOrderedMap(raw bson.Raw) *orderedmap.Map {
	m := orderedmap.New()
	elems, err := raw.Elements()
	if err != nil {
		return m
	}
	for _, elem := range elems {
		m.Set(elem.Key(), bsonValueToGo(elem.Value()))
	}
	return m
}

func bsonValueToGo(v bson.RawValue) interface{} {
	switch v.Type {
	case bson.TypeString:
		return v.StringValue()
	case bson.TypeInt32:
		return int(v.Int32())
	case bson.TypeInt64:
		return int(v.Int64())
	case bson.TypeDouble:
		return v.Double()
	case bson.TypeBoolean:
		return v.Boolean()
	case bson.TypeDateTime:
		return v.Time()
	case bson.TypeEmbeddedDocument:
		doc, _ := v.DocumentOK()
		return rawToOrderedMap(doc)
	case bson.TypeArray:
		arr, _ := v.ArrayOK()
		elems, _ := arr.Elements()
		out := make([]interface{}, 0, len(elems))
		for _, e := range elems {
			out = append(out, bsonValueToGo(e.Value()))
		}
		return out
	case bson.TypeNull:
		return nil
	default:
		return v.String()
	}
}
