package cli

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/dex/pkg/dex/dex"
	"github.com/go-go-golems/dex/pkg/dex/indexcache"
	"github.com/go-go-golems/dex/pkg/dex/orderedmap"
	"github.com/go-go-golems/dex/pkg/dex/parser"
	"github.com/go-go-golems/dex/pkg/dex/profilepoller"
)

var pollInterval time.Duration

var analyzeProfileCmd = &cobra.Command{
	Use:   "analyze-profile",
	Short: "Polls a database's system.profile collection and recommends indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ns := viper.GetStringSlice("namespace")
		if len(ns) == 0 {
			return errors.New("analyze-profile requires at least one --namespace")
		}

		ctx := cmd.Context()
		if timeout := viper.GetDuration("timeout"); timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		client := connectMongo(ctx)
		if client == nil {
			return errors.New("analyze-profile requires a reachable --mongo-uri")
		}

		database, _ := dex.SplitNamespace(ns[0])
		poller := profilepoller.New(client, database, pollInterval)

		entries := make(chan *orderedmap.Map, 256)
		go poller.Run(ctx, entries)

		dispatcher := parser.NewDispatcher(parser.DefaultLogHandlers())
		runner := dex.NewRunner(dispatcher, indexcache.New(client), ns)

		stats := runner.RunProfileEntries(ctx, entries)
		return printReport(runner, stats)
	},
}

func init() {
	analyzeProfileCmd.Flags().DurationVar(&pollInterval, "poll", 5*time.Second, "Polling interval for new profile entries")
}
