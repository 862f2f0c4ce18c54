// Package logger configures the process-wide zerolog setup.
package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the root logger. format is "json" or "console"; level is any
// zerolog level name ("debug", "info", ...). Unknown values fall back to
// info-level JSON output.
func New(level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if strings.EqualFold(format, "console") {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}

	return logger.Level(lvl).With().Timestamp().Logger()
}

// Component returns a child logger tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
