// Package logger configures zerolog for the tracker process.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config controls the level, format and destination of the root logger.
// Output defaults to stdout.
type Config struct {
	Level  string
	Pretty bool
	Output io.Writer
}

// New returns the root logger with timestamps and caller info.
// Empty or unknown levels log at info. The global zerolog level is set to the
// same threshold so package-level loggers agree with it.
func New(cfg Config) zerolog.Logger {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	return zerolog.New(writer(cfg)).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()
}

// SetGlobalLogger replaces the logger behind github.com/rs/zerolog/log
func SetGlobalLogger(l zerolog.Logger) {
	log.Logger = l
}

func parseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		return zerolog.WarnLevel
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func writer(cfg Config) io.Writer {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if !cfg.Pretty {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
}
