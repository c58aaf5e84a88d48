// Package logger builds the root zerolog logger for the mcws command.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

type Config struct {
	Level  string
	Debug  bool
	Output string
}

// New returns a JSON logger writing to Output ("stdout", "stderr" or
// "console" for human readable stderr). Debug wins over Level.
func New(cfg Config) (zerolog.Logger, error) {
	var output io.Writer
	switch cfg.Output {
	case "", "stderr":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	case "console":
		output = zerolog.ConsoleWriter{Out: os.Stderr}
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log output %q", cfg.Output)
	}
	return build(output, cfg)
}

func build(output io.Writer, cfg Config) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	} else if cfg.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), err
		}
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}

// WithComponent tags l with a component name.
func WithComponent(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}
