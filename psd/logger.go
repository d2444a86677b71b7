package psd

import (
	"os"

	"github.com/rs/zerolog"
)

// logger is the package debug logger. It is disabled unless the PSD_DEBUG
// environment variable is set, so the decoder stays silent in normal use.
// Heuristic fallbacks (length-width rereads, RLE count-width retries,
// channel-length disambiguation) log here so misbehaving files can be
// diagnosed without a debugger.
var logger = newLogger()

func newLogger() zerolog.Logger {
	if os.Getenv("PSD_DEBUG") == "" {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.DebugLevel).
		With().Timestamp().Logger()
}

func debugf(format string, args ...interface{}) {
	logger.Debug().Msgf(format, args...)
}
