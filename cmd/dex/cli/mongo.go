package cli

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// connectMongo dials the configured --mongo-uri, if any. A connection
// failure is logged as a warning; the caller continues with a nil client,
// which the index cache treats as "no live index metadata available"
// (§4.9).
func connectMongo(ctx context.Context) *mongo.Client {
	uri := viper.GetString("mongo-uri")
	if uri == "" {
		return nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		log.Warn().Err(err).Msg("could not connect to mongo-uri; continuing without live index metadata")
		return nil
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		log.Warn().Err(err).Msg("mongo ping failed; continuing without live index metadata")
		return nil
	}
	return client
}
