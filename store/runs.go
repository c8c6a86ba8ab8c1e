package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is one row of the run history.
type Run struct {
	ID            string
	HookName      string
	StartedAt     time.Time
	Duration      time.Duration
	Success       bool
	TotalFiles    int
	AnalyzedFiles int
	CachedFiles   int
	Error         string
}

// RecordRun appends run to the history, assigning an ID when it has none.
func (s *SQLite) RecordRun(ctx context.Context, run Run) error {
	if s.db == nil {
		return ErrClosed
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, hook_name, started_at, duration_ms, success, total_files, analyzed_files, cached_files, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.HookName, run.StartedAt.UnixMilli(), run.Duration.Milliseconds(), run.Success,
		run.TotalFiles, run.AnalyzedFiles, run.CachedFiles, run.Error,
	)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *SQLite) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hook_name, started_at, duration_ms, success, total_files, analyzed_files, cached_files, error
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run        Run
			startedMs  int64
			durationMs int64
		)
		if err := rows.Scan(&run.ID, &run.HookName, &startedMs, &durationMs, &run.Success,
			&run.TotalFiles, &run.AnalyzedFiles, &run.CachedFiles, &run.Error); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.StartedAt = time.UnixMilli(startedMs)
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
