package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/dex/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "dex",
	Short: "Analyzes slow MongoDB-style queries and recommends indexes",
}

// Execute runs the root command, exiting the process on error. SIGINT/SIGTERM
// cancel the command's context so long-running modes (serve, analyze-profile,
// analyze-logs --follow) get a chance to emit their final report before the
// process exits.
func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("mongo-uri", "", "MongoDB connection URI used to fetch live index metadata")
	rootCmd.PersistentFlags().StringSlice("namespace", nil, "Restrict analysis to these db.collection namespaces (default: all)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Wall-clock time budget for the run (0 disables the timeout)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().Bool("json-log", false, "Emit structured JSON logs instead of console output")

	cobra.CheckErr(initViper())

	rootCmd.AddCommand(analyzeLogsCmd)
	rootCmd.AddCommand(analyzeProfileCmd)
	rootCmd.AddCommand(serveCmd)

	cobra.OnInitialize(func() {
		logging.Setup(viper.GetBool("verbose"), viper.GetBool("json-log"))
	})
}

func initViper() error {
	viper.SetEnvPrefix("dex")
	viper.AutomaticEnv()
	return viper.BindPFlags(rootCmd.PersistentFlags())
}
