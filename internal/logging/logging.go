// Package logging configures the process-wide zerolog logger: a
// human-readable console writer by default, or structured JSON when the
// caller asks for it.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs the global zerolog logger. verbose lowers the level to
// debug; json selects structured output over the console writer.
func Setup(verbose bool, json bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if json {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}

	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = zerolog.New(writer).With().Timestamp().Logger()
}
