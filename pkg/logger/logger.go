package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger construction
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json or pretty
	Env    string
}

// New creates a new zerolog logger with structured output
func New(opts Options) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var logLevel zerolog.Level
	switch strings.ToLower(opts.Level) {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	// Use pretty console output in development
	if opts.Env == "development" || opts.Format == "pretty" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			Level(logLevel).
			With().
			Timestamp().
			Caller().
			Str("service", "portfolio-blog-api").
			Logger()
	}

	// JSON output for production
	return zerolog.New(os.Stdout).
		Level(logLevel).
		With().
		Timestamp().
		Str("service", "portfolio-blog-api").
		Logger()
}
