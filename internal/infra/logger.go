package infra

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the structured logger shared by every component.
type Logger = zerolog.Logger

// NewLogger builds the process logger. Development gets a console writer on
// stderr and debug output; everything else emits JSON on stdout. LOG_LEVEL
// overrides the environment default.
func NewLogger(cfg *Config) Logger {
	env, level := "production", ""
	if cfg != nil {
		env, level = cfg.AppEnv, cfg.LogLevel
	}

	var out io.Writer = os.Stdout
	if env == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).
		Level(parseLevel(level, env)).
		With().
		Timestamp().
		Str("service", "studio").
		Logger()
}

// NopLogger discards everything; used as the default for optional loggers.
func NopLogger() *Logger {
	l := zerolog.Nop()
	return &l
}

func parseLevel(raw, env string) zerolog.Level {
	if lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw))); err == nil && raw != "" {
		return lvl
	}
	if env == "development" {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
