package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"mitds/internal/models"
)

// RunRepo persists IngestionRun bookkeeping rows (§3, §4.4 O1), grounded
// on the teacher's analysis_repo.go JSONB-upsert style.
type RunRepo struct {
	pool *pgxpool.Pool
}

func NewRunRepo(pool *pgxpool.Pool) *RunRepo { return &RunRepo{pool: pool} }

// Create writes the initial "running" row for a new ingestion run.
func (r *RunRepo) Create(ctx context.Context, run *models.IngestionRun) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO ingestion_runs (id, source, status, started_at, records_processed, records_created, records_updated, duplicates_found, errors, captured_log)
		VALUES ($1, $2, $3, $4, 0, 0, 0, 0, '[]'::jsonb, '')
	`, run.ID, run.Source, string(run.Status), run.StartedAt)
	if err != nil {
		return fmt.Errorf("create ingestion run: %w", err)
	}
	return nil
}

// Finish updates the run row with final counters, status, errors and
// captured log text.
func (r *RunRepo) Finish(ctx context.Context, run *models.IngestionRun) error {
	errJSON, err := json.Marshal(run.Errors)
	if err != nil {
		return fmt.Errorf("marshal run errors: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE ingestion_runs SET
			status = $2, completed_at = $3,
			records_processed = $4, records_created = $5, records_updated = $6, duplicates_found = $7,
			errors = $8, captured_log = $9
		WHERE id = $1
	`, run.ID, string(run.Status), run.CompletedAt, run.RecordsProcessed, run.RecordsCreated, run.RecordsUpdated, run.DuplicatesFound, errJSON, run.CapturedLog)
	if err != nil {
		return fmt.Errorf("finish ingestion run: %w", err)
	}
	return nil
}

// LastSync returns the most recent run for source whose status is
// completed or partial, or nil if there is none. Framework.Run uses its
// StartedAt to seed incremental windows (§4.4).
func (r *RunRepo) LastSync(ctx context.Context, source string) (*models.IngestionRun, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, source, status, started_at, completed_at, records_processed, records_created, records_updated, duplicates_found, errors, captured_log
		FROM ingestion_runs
		WHERE source = $1 AND status IN ('completed', 'partial')
		ORDER BY started_at DESC LIMIT 1
	`, source)

	var run models.IngestionRun
	var status string
	var errJSON []byte
	if err := row.Scan(&run.ID, &run.Source, &status, &run.StartedAt, &run.CompletedAt,
		&run.RecordsProcessed, &run.RecordsCreated, &run.RecordsUpdated, &run.DuplicatesFound, &errJSON, &run.CapturedLog); err != nil {
		return nil, nil //nolint:nilerr // absence of a prior run is not an error
	}
	run.Status = models.RunStatus(status)
	if err := json.Unmarshal(errJSON, &run.Errors); err != nil {
		return nil, fmt.Errorf("unmarshal run errors: %w", err)
	}
	return &run, nil
}
