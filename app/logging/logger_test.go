package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerLevels(t *testing.T) {
	logger := newLogger(&bytes.Buffer{}, "text", false)
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Expected debug to be disabled")
	}

	logger = newLogger(&bytes.Buffer{}, "text", true)
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Expected debug to be enabled")
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "JSON", false).Info("Task completed", "feed", "usgs")
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"feed":"usgs"`) {
		t.Errorf("Expected JSON output, got: %s", buf.String())
	}

	buf.Reset()
	newLogger(&buf, "text", false).Info("Task completed", "feed", "usgs")
	if !strings.Contains(buf.String(), "feed=usgs") {
		t.Errorf("Expected text output, got: %s", buf.String())
	}

	if NewLogger("text", false) == nil {
		t.Fatal("Expected logger")
	}
}
