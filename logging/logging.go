// Package logging configures the process-wide zerolog logger.
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config controls logger initialization.
type Config struct {
	// Level is the minimum level to emit (trace, debug, info, warn, error).
	Level string

	// Console switches to the human-readable console writer. JSON otherwise.
	Console bool

	// Component is attached to every event as the "component" field.
	Component string
}

// Init configures the global logger. Safe to call more than once; the last
// call wins.
func Init(cfg Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Console {
		logger = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if cfg.Component != "" {
		logger = logger.With().Str("component", cfg.Component).Logger()
	}

	log.Logger = logger.Level(level)
	zerolog.SetGlobalLevel(level)
}
