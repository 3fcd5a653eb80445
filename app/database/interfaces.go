package database

type RunRepository interface {
	InsertRun(run Run) (int64, error)
	GetRecentRuns(feedName string, limit int) ([]Run, error)
	GetRunStats(feedName string) (RunStats, error)
}
