package tasks

import (
	"context"

	"github.com/lysyi3m/quake-report/app/quake"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the API to manage background loads.
// Example usage:
//
//	scheduler := NewScheduler(configCache, board, pipeline, loop, runRepo)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.RefreshFeed("usgs")
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	RefreshFeed(feedName string) (*LoadQuakesTask, error)
}

// TaskQueue accepts tasks for background execution.
type TaskQueue interface {
	EnqueueTask(task TaskInterface) error
}

// QuakePipeline fetches and decodes one feed URL.
type QuakePipeline interface {
	Run(ctx context.Context, rawURL string) ([]quake.Record, error)
}

var _ QuakePipeline = (*quake.Pipeline)(nil)
