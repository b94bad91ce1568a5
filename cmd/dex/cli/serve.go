package cli

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/dex/pkg/dex/dex"
	"github.com/go-go-golems/dex/pkg/dex/indexcache"
	"github.com/go-go-golems/dex/pkg/dex/orderedmap"
	"github.com/go-go-golems/dex/pkg/dex/parser"
	"github.com/go-go-golems/dex/pkg/dex/profilepoller"
)

var refreshInterval time.Duration

// serveCmd wires analyze-profile's poller to periodic report dumps, per
// spec.md §3's "emitted on shutdown or periodic refresh" lifecycle note.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Continuously analyzes a profile collection, dumping reports on a timer",
	RunE: func(cmd *cobra.Command, args []string) error {
		ns := viper.GetStringSlice("namespace")
		if len(ns) == 0 {
			return errors.New("serve requires at least one --namespace")
		}

		ctx := cmd.Context()
		client := connectMongo(ctx)
		if client == nil {
			return errors.New("serve requires a reachable --mongo-uri")
		}

		database, _ := dex.SplitNamespace(ns[0])
		poller := profilepoller.New(client, database, pollInterval)

		entries := make(chan *orderedmap.Map, 256)
		go poller.Run(ctx, entries)

		dispatcher := parser.NewDispatcher(parser.DefaultLogHandlers())
		runner := dex.NewRunner(dispatcher, indexcache.New(client), ns)

		go func() {
			stats := runner.RunProfileEntries(ctx, entries)
			log.Info().Bool("timedOut", stats.TimedOut).Msg("serve: profile stream ended")
		}()

		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				if err := printReport(runner, dex.RunStats{}); err != nil {
					log.Warn().Err(err).Msg("serve: failed to print final report")
				}
				return nil
			case <-ticker.C:
				if err := printReport(runner, dex.RunStats{}); err != nil {
					log.Warn().Err(err).Msg("serve: failed to print periodic report")
				}
			}
		}
	},
}

func init() {
	serveCmd.Flags().DurationVar(&refreshInterval, "refresh", 30*time.Second, "How often to dump the accumulated report")
}
