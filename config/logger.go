package config

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// NewLogger builds a zerolog logger from the logging settings. Unparseable
// levels fall back to info.
func (c Config) NewLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stderr
	if c.LogFormat == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
