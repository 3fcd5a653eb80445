package database

import (
	"time"
)

const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// Run is one pipeline execution of a load task
type Run struct {
	ID           int64
	TaskID       string
	FeedName     string
	Outcome      string // succeeded, failed, skipped
	RecordCount  int
	ErrorKind    string // empty unless Outcome is failed
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

type RunStats struct {
	Total     int
	Succeeded int
	Failed    int
	LastRunAt *time.Time
}
