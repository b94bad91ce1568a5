// Package indexcache fetches and caches the existing index list for a
// database/collection pair, so repeated queries against the same
// collection never re-fetch from the server, per §4.9.
package indexcache

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/singleflight"

	"github.com/go-go-golems/dex/pkg/dex/analyzer"
	"github.com/go-go-golems/dex/pkg/dex/dexerr"
)

// Cache holds a per-(database, collection) lazily built index list. A
// connection failure at fetch time is logged as a warning and cached as an
// empty list, rather than retried on every subsequent lookup for the same
// collection (§4.9: "never re-fetch on a cache hit").
type Cache struct {
	client *mongo.Client
	group  singleflight.Group

	mu      sync.RWMutex
	entries map[string][]analyzer.IndexDescriptor
}

// New builds a Cache backed by an already-connected mongo client. client may
// be nil, in which case every lookup returns an empty index list (useful
// when analyzing stored logs with no live server to consult).
func New(client *mongo.Client) *Cache {
	return &Cache{client: client, entries: make(map[string][]analyzer.IndexDescriptor)}
}

// Get returns the index descriptors for database.collection, fetching and
// caching them on first use. Concurrent callers for the same key share one
// fetch via singleflight.
func (c *Cache) Get(ctx context.Context, database, collection string) []analyzer.IndexDescriptor {
	key := database + "." + collection
	if cached, ok := c.lookup(key); ok {
		return cached
	}

	result, _, _ := c.group.Do(key, func() (interface{}, error) {
		if cached, ok := c.lookup(key); ok {
			return cached, nil
		}
		descriptors := c.fetch(ctx, database, collection)
		c.mu.Lock()
		c.entries[key] = descriptors
		c.mu.Unlock()
		return descriptors, nil
	})

	descriptors, _ := result.([]analyzer.IndexDescriptor)
	return descriptors
}

func (c *Cache) lookup(key string) ([]analyzer.IndexDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cached, ok := c.entries[key]
	return cached, ok
}

func (c *Cache) fetch(ctx context.Context, database, collection string) []analyzer.IndexDescriptor {
	if c.client == nil {
		return nil
	}

	coll := c.client.Database(database).Collection(collection)
	cursor, err := coll.Indexes().List(ctx)
	if err != nil {
		log.Warn().Err(dexerr.IndexFetchFailed(database+"."+collection, err)).
			Msg("continuing without live index data for this collection")
		return nil
	}
	defer cursor.Close(ctx)

	var descriptors []analyzer.IndexDescriptor
	for cursor.Next(ctx) {
		var raw bson.Raw
		if err := cursor.Decode(&raw); err != nil {
			log.Warn().Err(err).Msg("indexcache: decoding index document")
			continue
		}
		descriptors = append(descriptors, decodeDescriptor(raw))
	}
	if err := cursor.Err(); err != nil {
		log.Warn().Err(err).Msg("indexcache: iterating index cursor")
	}
	return descriptors
}

func decodeDescriptor(raw bson.Raw) analyzer.IndexDescriptor {
	name, _ := raw.Lookup("name").StringValueOK()
	keyVal := raw.Lookup("key")
	keyDoc, _ := keyVal.DocumentOK()

	var fields []analyzer.IndexKeyField
	elems, _ := keyDoc.Elements()
	for _, elem := range elems {
		fields = append(fields, analyzer.IndexKeyField{
			FieldName: elem.Key(),
			Direction: bsonValueToDirection(elem.Value()),
		})
	}
	return analyzer.IndexDescriptor{Name: name, Key: fields}
}

func bsonValueToDirection(v bson.RawValue) interface{} {
	switch v.Type {
	case bson.TypeInt32:
		return int(v.Int32())
	case bson.TypeInt64:
		return int(v.Int64())
	case bson.TypeDouble:
		return int(v.Double())
	case bson.TypeString:
		return v.StringValue()
	default:
		return fmt.Sprintf("%v", v)
	}
}
