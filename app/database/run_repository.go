package database

import (
	"database/sql"
	"fmt"
	"time"
)

// RunRepositoryImpl handles database operations for fetch runs
type RunRepositoryImpl struct {
	db *DB
}

var _ RunRepository = (*RunRepositoryImpl)(nil)

func NewRunRepository(db *DB) *RunRepositoryImpl {
	return &RunRepositoryImpl{db: db}
}

func (r *RunRepositoryImpl) InsertRun(run Run) (int64, error) {
	res, err := r.db.Exec(`
		INSERT INTO fetch_runs (
			task_id, feed_name, outcome, record_count,
			error_kind, error_message, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.TaskID, run.FeedName, run.Outcome, run.RecordCount,
		run.ErrorKind, run.ErrorMessage, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	return id, nil
}

// GetRecentRuns returns the newest runs for a feed first
func (r *RunRepositoryImpl) GetRecentRuns(feedName string, limit int) ([]Run, error) {
	rows, err := r.db.Query(`
		SELECT id, task_id, feed_name, outcome, record_count,
		       error_kind, error_message, started_at, finished_at
		FROM fetch_runs
		WHERE feed_name = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, feedName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var run Run
		var startedAt, finishedAt int64
		err := rows.Scan(
			&run.ID, &run.TaskID, &run.FeedName, &run.Outcome, &run.RecordCount,
			&run.ErrorKind, &run.ErrorMessage, &startedAt, &finishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		run.StartedAt = time.UnixMilli(startedAt).UTC()
		run.FinishedAt = time.UnixMilli(finishedAt).UTC()
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}

	return runs, nil
}

func (r *RunRepositoryImpl) GetRunStats(feedName string) (RunStats, error) {
	var stats RunStats
	var lastRun sql.NullInt64

	err := r.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
		       MAX(started_at)
		FROM fetch_runs
		WHERE feed_name = ?
	`, OutcomeSucceeded, OutcomeFailed, feedName).Scan(&stats.Total, &stats.Succeeded, &stats.Failed, &lastRun)
	if err != nil {
		return RunStats{}, fmt.Errorf("failed to get run stats: %w", err)
	}

	if lastRun.Valid {
		t := time.UnixMilli(lastRun.Int64).UTC()
		stats.LastRunAt = &t
	}

	return stats, nil
}
