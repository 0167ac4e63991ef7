// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config controls level and output encoding.
type Config struct {
	Level  string
	Format string // "console" or "json"
	Output io.Writer
}

// Init replaces log.Logger according to cfg.
func Init(cfg Config) error {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return err
		}
	}

	var output io.Writer = os.Stdout
	if cfg.Output != nil {
		output = cfg.Output
	}
	if cfg.Format != "json" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	return nil
}

// WithComponent returns a child logger tagged with the component name.
func WithComponent(component string) *zerolog.Logger {
	l := log.With().Str("component", component).Logger()
	return &l
}
