// Package logger configures the process-wide slog logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// L is the process logger. Services receive it through their constructors.
var L = slog.Default()

// Init initializes the global logger with the given level and format (e.g. "debug", "json").
// Optional attrs are attached to every record, typically the process name.
func Init(level, format string, attrs ...slog.Attr) {
	L = New(os.Stdout, level, format, attrs...)
	slog.SetDefault(L)
}

// New builds a logger writing to w without touching the global logger.
func New(w io.Writer, level, format string, attrs ...slog.Attr) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	if len(attrs) > 0 {
		handler = handler.WithAttrs(attrs)
	}
	return slog.New(handler)
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
