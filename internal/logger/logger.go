// Package logger configures the gateway's zerolog output.
//
// One process-wide base logger carries the service identity; each subsystem
// tags its records through Component. Connection state (user id, room id)
// changes per frame and is attached at the call site, not baked into a
// logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var base zerolog.Logger

// Init configures the process logger. An unknown level falls back to info
// so a typo in LOG_LEVEL never silences the gateway.
func Init(level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly}
	}

	base = zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Str("service", "kuttalk-gateway").
		Int("pid", os.Getpid()).
		Logger()
}

// Base returns the process logger.
func Base() *zerolog.Logger {
	return &base
}

// Component returns a logger tagged for one gateway subsystem, e.g.
// Component("gateway") or Component("database"). Before Init runs the
// returned logger is disabled, which keeps tests quiet.
func Component(name string) *zerolog.Logger {
	l := base.With().Str("component", name).Logger()
	return &l
}
