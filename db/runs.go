package db

import (
	"context"
	"fmt"

	"flatshare-scraper/models"
)

// StartRun records the beginning of a pipeline run
func (db *DB) StartRun(ctx context.Context, runID string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO runs (id, status)
		VALUES ($1, 'in_progress')
		ON CONFLICT (id) DO NOTHING
	`, runID)
	if err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// FinishRun marks a run done and stores its counts
func (db *DB) FinishRun(ctx context.Context, runID string, s models.RunSummary) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE runs
		SET status = 'done', raw_count = $1, unique_count = $2, persisted_count = $3,
			failed_count = $4, sample_data = $5, finished_at = CURRENT_TIMESTAMP
		WHERE id = $6
	`, s.RawCount, s.UniqueCount, s.PersistedCount, s.FailedCount, s.SampleData, runID)
	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	return nil
}
