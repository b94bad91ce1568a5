package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/nxadm/tail"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/dex/pkg/dex/dex"
	"github.com/go-go-golems/dex/pkg/dex/indexcache"
	"github.com/go-go-golems/dex/pkg/dex/parser"
	"github.com/go-go-golems/dex/pkg/dex/render"
)

var followLogs bool

var analyzeLogsCmd = &cobra.Command{
	Use:   "analyze-logs <path>",
	Short: "Analyzes a slow-query log file and recommends indexes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		lines := make(chan string, 256)
		readErr := make(chan error, 1)
		if followLogs {
			go tailFile(path, lines, readErr)
		} else {
			go func() { readErr <- scanFile(path, lines) }()
		}

		runner := buildRunner(cmd.Context())
		ctx := cmd.Context()
		if timeout := viper.GetDuration("timeout"); timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		stats := runner.RunLines(ctx, lines)
		// On timeout or cancellation the reader may still be running (a
		// followed file never ends), so only wait for it after a full read.
		if !stats.TimedOut {
			if err := <-readErr; err != nil {
				return err
			}
		}

		return printReport(runner, stats)
	},
}

func init() {
	analyzeLogsCmd.Flags().BoolVar(&followLogs, "follow", false, "Keep watching the file for new lines")
}

func scanFile(path string, out chan<- string) error {
	defer close(out)
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "could not open %s", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		out <- scanner.Text()
	}
	return scanner.Err()
}

func tailFile(path string, out chan<- string, errOut chan<- error) {
	defer close(out)
	cfg := tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Poll:      true,
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekStart},
	}
	t, err := tail.TailFile(path, cfg)
	if err != nil {
		errOut <- errors.Wrapf(err, "failed to tail %s", path)
		return
	}
	for line := range t.Lines {
		if line.Err != nil {
			log.Warn().Err(line.Err).Msg("error tailing file")
			continue
		}
		out <- line.Text
	}
	errOut <- nil
}

func buildRunner(ctx context.Context) *dex.Runner {
	dispatcher := parser.NewDispatcher(parser.DefaultLogHandlers())
	cache := indexcache.New(connectMongo(ctx))
	return dex.NewRunner(dispatcher, cache, viper.GetStringSlice("namespace"))
}

func printReport(runner *dex.Runner, stats dex.RunStats) error {
	doc := map[string]interface{}{
		"runStats": stats,
		"results":  runner.Aggregator.GetReports(),
	}
	out, err := render.Render(doc)
	if err != nil {
		return errors.Wrap(err, "rendering report")
	}
	fmt.Fprintln(os.Stdout, out)
	return nil
}
