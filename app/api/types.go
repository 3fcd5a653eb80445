package api

import (
	"time"

	"github.com/lysyi3m/quake-report/app/database"
	"github.com/lysyi3m/quake-report/app/feed"
	"github.com/lysyi3m/quake-report/app/quake"
	"github.com/lysyi3m/quake-report/app/tasks"
)

type GeneratorInterface interface {
	Run(feedConfig *feed.Config, snapshot feed.Snapshot, records []quake.Record) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type Handler struct {
	configCache *feed.ConfigCache
	board       *feed.Board
	filterer    *feed.Filterer
	generator   GeneratorInterface
	runRepo     database.RunRepository
	scheduler   tasks.TaskSchedulerInterface
}

type quakeView struct {
	Title      string   `json:"title"`
	Magnitude  *float64 `json:"magnitude"`
	Place      string   `json:"place"`
	Time       int64    `json:"time"`
	OccurredAt string   `json:"occurred_at"`
	URL        string   `json:"url"`
}

func newQuakeView(record quake.Record) quakeView {
	view := quakeView{
		Title:      record.Title(),
		Place:      record.Location(),
		Time:       record.OccurredAtMillis(),
		OccurredAt: record.OccurredAt().In(time.Local).Format(time.RFC3339),
		URL:        record.DetailURL(),
	}
	if mag, ok := record.Magnitude(); ok {
		view.Magnitude = &mag
	}
	return view
}

type runView struct {
	TaskID       string `json:"task_id"`
	Outcome      string `json:"outcome"`
	RecordCount  int    `json:"record_count"`
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	StartedAt    string `json:"started_at"`
	Duration     string `json:"duration"`
}

func newRunView(run database.Run) runView {
	return runView{
		TaskID:       run.TaskID,
		Outcome:      run.Outcome,
		RecordCount:  run.RecordCount,
		ErrorKind:    run.ErrorKind,
		ErrorMessage: run.ErrorMessage,
		StartedAt:    run.StartedAt.In(time.Local).Format(time.RFC3339),
		Duration:     run.FinishedAt.Sub(run.StartedAt).String(),
	}
}
