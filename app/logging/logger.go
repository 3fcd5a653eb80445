package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns the service logger.
// - format=json: JSON handler, for log shipping
// - anything else: text handler
// debug lowers the level to Debug and adds source locations.
func NewLogger(format string, debug bool) *slog.Logger {
	return newLogger(os.Stdout, format, debug)
}

func newLogger(w io.Writer, format string, debug bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: debug,
	}
	if debug {
		opts.Level = slog.LevelDebug
	}

	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
