package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Environment variables read by DefaultConfig.
const (
	EnvLevel  = "STDEXPORT_LOG_LEVEL"
	EnvFormat = "STDEXPORT_LOG_FORMAT"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Config selects the level, format and destination of a logger.
type Config struct {
	Writer    io.Writer
	Level     slog.Level
	Format    string
	AddSource bool
}

// DefaultConfig reads STDEXPORT_LOG_LEVEL (DEBUG, INFO, WARN, ERROR) and
// STDEXPORT_LOG_FORMAT (json, text). Unset or invalid values fall back to
// INFO and json on standard error.
func DefaultConfig() Config {
	cfg := Config{Writer: os.Stderr, Level: slog.LevelInfo, Format: FormatJSON}
	if v, ok := os.LookupEnv(EnvLevel); ok {
		if l, err := parseLevel(v); err == nil {
			cfg.Level = l
		}
	}
	if v := strings.ToLower(strings.TrimSpace(os.Getenv(EnvFormat))); v == FormatText {
		cfg.Format = FormatText
	}
	return cfg
}

// Setup returns a logger for cfg.
func Setup(cfg Config) *slog.Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	if cfg.Format == FormatText {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     cfg.Level,
			AddSource: cfg.AddSource,
		}))
	}
	return slog.New(NewHandler(
		WithWriter(w),
		WithLevel(cfg.Level),
		WithSource(cfg.AddSource),
	))
}
