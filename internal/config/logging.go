package config

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// SetupLogging configures the global slog logger to write to w.
func SetupLogging(w io.Writer, cfg LoggingConfig) {
	slog.SetDefault(NewLogger(w, cfg))
}

// NewLogger builds a logger writing to w. The text format uses tint's
// colored console handler; anything else logs JSON.
func NewLogger(w io.Writer, cfg LoggingConfig) *slog.Logger {
	level := ParseLevel(cfg.Level)

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
