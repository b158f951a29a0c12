package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New constructs the JSON slog logger shared by every component.
// debug forces the debug level regardless of LOG_LEVEL.
func New(level string, debug bool) *slog.Logger {
	return NewWithWriter(os.Stdout, level, debug)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level string, debug bool) *slog.Logger {
	lvl := parseLevel(level)
	if debug {
		lvl = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler).With("service", "havet-arena")
}

// Discard returns a logger that drops everything. Used by tests and as a nil fallback.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
