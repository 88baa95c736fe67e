// Package logging builds the zerolog logger shared by the Tracker binaries.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Options configures New.
type Options struct {
	Service string
	Version string
	Level   string
	// Format is "json" or "console".
	Format string
	// Output defaults to os.Stderr so command output on stdout stays clean.
	Output io.Writer
}

// New returns a structured logger tagged with the service and version.
func New(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if opts.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", opts.Service).
		Str("version", opts.Version).
		Logger()
}
