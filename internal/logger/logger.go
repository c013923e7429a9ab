// Package logger builds the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"hogwarts-game-core/internal/config"
)

// New creates the logger described by cfg and installs it as the global
// zerolog logger, so packages logging through zerolog/log pick it up.
func New(cfg *config.Config) zerolog.Logger {
	return build(os.Stderr, cfg.Log)
}

func build(out io.Writer, cfg config.LogConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(out).
		With().
		Timestamp().
		Caller().
		Logger().
		Level(level)

	log.Logger = logger
	return logger
}
