package tasks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lysyi3m/quake-report/app/feed"
	"github.com/lysyi3m/quake-report/app/quake"
)

func setupConfigCache(t *testing.T, files map[string]string) *feed.ConfigCache {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name+".yml"), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	configCache := feed.NewConfigCache(dir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}
	return configCache
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Timed out waiting for condition")
}

func startLoop(t *testing.T) *Loop {
	t.Helper()

	loop := NewLoop(16)
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	t.Cleanup(func() {
		loop.Stop()
		cancel()
	})
	return loop
}

func TestSchedulerStartLoadsEnabledFeeds(t *testing.T) {
	configCache := setupConfigCache(t, map[string]string{
		"enabled": `
url: "https://example.com/enabled.geojson"
settings:
  enabled: true
`,
		"disabled": `
url: "https://example.com/disabled.geojson"
settings:
  enabled: false
`,
	})

	board := feed.NewBoard()
	pipeline := &MockPipeline{records: []quake.Record{portVilaRecord(t)}}
	runRepo := &MockRunRepository{}
	scheduler := newScheduler(configCache, board, pipeline, startLoop(t), runRepo, time.Hour, 2)

	scheduler.Start()
	defer scheduler.Stop()

	waitFor(t, func() bool {
		_, ok := board.Get("enabled")
		return ok
	})

	snapshot, _ := board.Get("enabled")
	if !snapshot.Available || len(snapshot.Records) != 1 {
		t.Errorf("Unexpected snapshot: %+v", snapshot)
	}
	if _, ok := board.Get("disabled"); ok {
		t.Error("Disabled feed should not be loaded")
	}
	if pipeline.callCount() != 1 {
		t.Errorf("Expected 1 pipeline run, got: %d", pipeline.callCount())
	}
}

func TestSchedulerFailureClearsSnapshot(t *testing.T) {
	configCache := setupConfigCache(t, map[string]string{
		"usgs": `
url: "https://example.com/usgs.geojson"
settings:
  enabled: true
`,
	})

	board := feed.NewBoard()
	board.Replace("usgs", []quake.Record{portVilaRecord(t)}, true)

	pipeline := &MockPipeline{err: &quake.Error{Kind: quake.KindIOFailure, Op: "fetch"}}
	scheduler := newScheduler(configCache, board, pipeline, startLoop(t), nil, time.Hour, 1)

	scheduler.Start()
	defer scheduler.Stop()

	waitFor(t, func() bool {
		snapshot, _ := board.Get("usgs")
		return !snapshot.Available
	})

	snapshot, _ := board.Get("usgs")
	if len(snapshot.Records) != 0 {
		t.Errorf("Expected records to be cleared, got: %d", len(snapshot.Records))
	}
}

func TestSchedulerRefreshSupersedesInFlightLoad(t *testing.T) {
	configCache := setupConfigCache(t, map[string]string{
		"usgs": `
url: "https://example.com/usgs.geojson"
settings:
  enabled: true
`,
	})

	board := feed.NewBoard()
	gate := make(chan struct{})
	pipeline := &MockPipeline{records: []quake.Record{portVilaRecord(t)}, gate: gate}
	scheduler := newScheduler(configCache, board, pipeline, startLoop(t), nil, time.Hour, 2)

	scheduler.Start()
	defer scheduler.Stop()

	waitFor(t, func() bool { return pipeline.callCount() == 1 })

	scheduler.mu.Lock()
	first := scheduler.active["usgs"]
	scheduler.mu.Unlock()

	second, err := scheduler.RefreshFeed("usgs")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if first == nil || first.State() != StateCancelled {
		t.Errorf("Expected the in-flight load to be cancelled")
	}

	waitFor(t, func() bool { return pipeline.callCount() == 2 })
	close(gate)

	waitFor(t, func() bool {
		_, ok := board.Get("usgs")
		return ok
	})
	if second.State() != StateDelivered {
		t.Errorf("Expected the newer load to be delivered, got: %s", second.State())
	}
	if first.State() != StateCancelled {
		t.Errorf("Superseded load must stay cancelled, got: %s", first.State())
	}
}

func TestSchedulerRefreshUnknownOrDisabledFeed(t *testing.T) {
	configCache := setupConfigCache(t, map[string]string{
		"off": `
url: "https://example.com/off.geojson"
settings:
  enabled: false
`,
	})

	scheduler := newScheduler(configCache, feed.NewBoard(), &MockPipeline{}, Inline, nil, time.Hour, 1)

	if _, err := scheduler.RefreshFeed("missing"); err == nil {
		t.Error("Expected error for unknown feed")
	}
	if _, err := scheduler.RefreshFeed("off"); err == nil {
		t.Error("Expected error for disabled feed")
	}
}

func TestSchedulerIsDue(t *testing.T) {
	configCache := setupConfigCache(t, nil)
	scheduler := newScheduler(configCache, feed.NewBoard(), &MockPipeline{}, Inline, nil, time.Hour, 1)

	now := time.Date(2016, 5, 1, 22, 0, 0, 0, time.UTC)
	feedConfig := &feed.Config{Name: "usgs", Settings: feed.ConfigSettings{RefreshInterval: 300}}

	if !scheduler.isDue(feedConfig, now) {
		t.Error("Feed that never ran should be due")
	}

	scheduler.lastStarted["usgs"] = now.Add(-time.Minute)
	if scheduler.isDue(feedConfig, now) {
		t.Error("Feed started a minute ago should not be due")
	}

	scheduler.lastStarted["usgs"] = now.Add(-5 * time.Minute)
	if !scheduler.isDue(feedConfig, now) {
		t.Error("Feed should be due once the refresh interval elapsed")
	}
}

func TestSchedulerEnqueueTaskQueueFull(t *testing.T) {
	scheduler := newScheduler(setupConfigCache(t, nil), feed.NewBoard(), &MockPipeline{}, Inline, nil, time.Hour, 1)

	for i := 0; i < cap(scheduler.taskQueue); i++ {
		if err := scheduler.EnqueueTask(NewLoadQuakesTask("usgs", &MockPipeline{}, scheduler, Inline, nil)); err != nil {
			t.Fatalf("Unexpected error at %d: %v", i, err)
		}
	}

	if err := scheduler.EnqueueTask(NewLoadQuakesTask("usgs", &MockPipeline{}, scheduler, Inline, nil)); err == nil {
		t.Error("Expected error when queue is full")
	}

	scheduler.Stop()
	if err := scheduler.EnqueueTask(NewLoadQuakesTask("usgs", &MockPipeline{}, scheduler, Inline, nil)); err == nil {
		t.Error("Expected error after Stop")
	}
}

func TestSchedulerDropsDisabledFeed(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "quakes.yml")
	writeConfig := func(enabled string) {
		content := "url: \"https://example.com/quakes.geojson\"\nsettings:\n  enabled: " + enabled + "\n"
		if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	writeConfig("true")
	configCache := feed.NewConfigCache(dir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	board := feed.NewBoard()
	pipeline := &MockPipeline{records: []quake.Record{portVilaRecord(t)}}
	scheduler := newScheduler(configCache, board, pipeline, startLoop(t), nil, time.Hour, 1)

	scheduler.Start()
	defer scheduler.Stop()

	waitFor(t, func() bool {
		_, ok := board.Get("quakes")
		return ok
	})

	writeConfig("false")
	scheduler.startDueTasks()

	if _, ok := board.Get("quakes"); ok {
		t.Error("Expected snapshot of disabled feed to be cleared")
	}
	if pipeline.callCount() != 1 {
		t.Errorf("Expected no load for disabled feed, got %d runs", pipeline.callCount())
	}

	scheduler.mu.Lock()
	_, hasLast := scheduler.lastStarted["quakes"]
	scheduler.mu.Unlock()
	if hasLast {
		t.Error("Expected schedule of disabled feed to be forgotten")
	}
}
