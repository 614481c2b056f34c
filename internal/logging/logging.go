// Package logging configures the process-wide diagnostic logger.
//
// Operator-facing status lines are written directly by the CLI; the zerolog
// logger carries the lower-level trace (spawned commands, GPIO transitions)
// and is raised to debug level with --verbose.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger writing to w. verbose enables debug output.
func New(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	return zerolog.New(cw).Level(level).With().Timestamp().Logger()
}
