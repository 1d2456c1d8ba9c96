// Package observability builds the structured logger and the Prometheus
// metrics recorder attached to a fixture store.
package observability

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// NewLogger returns a timestamped zerolog logger writing JSON lines to w
// (stderr when nil) at the given level.
func NewLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// NewConsoleLogger is NewLogger with human-readable output, used by the CLI.
func NewConsoleLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return NewLogger(zerolog.ConsoleWriter{Out: w, NoColor: true}, level)
}
