package rpcconn

import (
	"os"

	"github.com/rs/zerolog"
)

// newLogger builds a zerolog.Logger from a LoggingConfig, writing to
// stderr either as JSON (the default, machine-parseable) or as the
// human-readable console writer.
func newLogger(cfg LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out zerolog.Logger
	if cfg.Format == "console" {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	} else {
		out = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return out.Level(level)
}
