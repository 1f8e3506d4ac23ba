// Package logging constructs the zerolog.Logger shared across the engine
// and its collaborators.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// New builds a logger writing structured JSON lines to stdout with a
// timestamp field in zerolog's default RFC 3339 format, at debug level
// when debug is true and info level otherwise.
func New(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
