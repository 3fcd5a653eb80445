package cfg

import (
	"strings"
	"testing"
)

func TestGetVersion(t *testing.T) {
	// Test default version
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}

	version := GetVersion()
	if version != "dev" && version != "unknown" {
		// This is fine, version could be set at build time
		t.Logf("Version: %s", version)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load([]string{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.FeedURL != DefaultFeedURL {
		t.Errorf("Expected default feed URL '%s', got '%s'", DefaultFeedURL, cfg.FeedURL)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.WorkerCount != 2 {
		t.Errorf("Expected worker count 2, got %d", cfg.WorkerCount)
	}
	if cfg.SchedulerInterval != 30 {
		t.Errorf("Expected scheduler interval 30, got %d", cfg.SchedulerInterval)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("Expected log format 'text', got '%s'", cfg.LogFormat)
	}
	if Get() != cfg {
		t.Error("Expected Get to return the loaded configuration")
	}
}

func TestLoadFromFlagsAndEnv(t *testing.T) {
	t.Setenv("USER_AGENT", "Test Agent")
	t.Setenv("API_ACCESS_KEY", "test-key")

	cfg, err := load([]string{"--port", "9090", "--worker-count", "4", "--feed-url", "https://example.com/feed.geojson", "--debug", "--log-format", "json"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Expected port '9090', got '%s'", cfg.Port)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("Expected worker count 4, got %d", cfg.WorkerCount)
	}
	if cfg.FeedURL != "https://example.com/feed.geojson" {
		t.Errorf("Expected feed URL override, got '%s'", cfg.FeedURL)
	}
	if cfg.UserAgent != "Test Agent" {
		t.Errorf("Expected user agent 'Test Agent', got '%s'", cfg.UserAgent)
	}
	if cfg.APIAccessKey != "test-key" {
		t.Errorf("Expected API key 'test-key', got '%s'", cfg.APIAccessKey)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
	if cfg.LogFormat != "json" {
		t.Errorf("Expected log format 'json', got '%s'", cfg.LogFormat)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	if _, err := load([]string{"--worker-count", "0"}); err == nil {
		t.Error("Expected error for zero workers")
	}

	_, err := load([]string{"--log-format", "xml"})
	if err == nil {
		t.Fatal("Expected error for unknown log format")
	}
	if !strings.Contains(err.Error(), "failed to parse configuration") {
		t.Errorf("Unexpected error: %v", err)
	}
}
