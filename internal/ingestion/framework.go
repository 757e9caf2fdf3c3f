package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mitds/internal/mitderr"
	"mitds/internal/models"
	"mitds/internal/obslog"
	"mitds/internal/store"
)

// Framework is the shared orchestrator for all source adapters.
type Framework struct {
	runs    *store.RunRepo
	retry   RetryConfig
	limiters *ServiceLimiters
}

func NewFramework(runs *store.RunRepo, retry RetryConfig, limiters *ServiceLimiters) *Framework {
	return &Framework{runs: runs, retry: retry, limiters: limiters}
}

// Run executes one adapter run to completion, implementing O1-O5.
func (f *Framework) Run(ctx context.Context, a Adapter, cfg RunConfig) (*models.IngestionRun, error) {
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.Incremental && cfg.DateFrom == nil {
		if last, err := f.runs.LastSync(ctx, a.Source()); err == nil && last != nil {
			cfg.DateFrom = &last.StartedAt
		}
	}

	run := &models.IngestionRun{
		ID:        cfg.RunID,
		Source:    a.Source(),
		Status:    models.RunRunning,
		StartedAt: time.Now(),
	}
	if err := f.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create ingestion run: %w", err)
	}

	ring := obslog.NewRingBuffer(0, nil)
	logger := obslog.New(ring, a.Source(), run.ID)

	next, err := f.fetchWithRetry(ctx, a, cfg)
	if err != nil {
		run.Status = models.RunFailed
		f.finish(ctx, run, ring, logger, mitderr.Fatal(err))
		return run, nil
	}

	f.processAll(ctx, a, cfg, next, run, logger)

	if run.Status == models.RunRunning {
		if len(run.Errors) > 0 {
			run.Status = models.RunPartial
		} else {
			run.Status = models.RunCompleted
		}
	}
	f.finish(ctx, run, ring, logger, nil)
	return run, nil
}

func (f *Framework) fetchWithRetry(ctx context.Context, a Adapter, cfg RunConfig) (func() (Record, bool, error), error) {
	var next func() (Record, bool, error)
	err := WithRetry(ctx, f.retry, "", func(ctx context.Context) error {
		n, err := a.Fetch(ctx, cfg)
		if err != nil {
			return err
		}
		next = n
		return nil
	})
	return next, err
}

func (f *Framework) processAll(ctx context.Context, a Adapter, cfg RunConfig, next func() (Record, bool, error), run *models.IngestionRun, logger *slog.Logger) {
	count := 0
	for {
		if cfg.Limit > 0 && count >= cfg.Limit {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		rec, ok, err := next()
		if err != nil {
			run.Errors = append(run.Errors, models.IngestionError{Message: err.Error()})
			run.Status = models.RunPartial
			continue
		}
		if !ok {
			return
		}

		count++
		run.RecordsProcessed++

		result := a.Process(ctx, rec)
		switch result.Outcome {
		case OutcomeCreated:
			run.RecordsCreated++
		case OutcomeUpdated:
			run.RecordsUpdated++
		case OutcomeDuplicate:
			run.DuplicatesFound++
		case OutcomeFailed:
			run.Errors = append(run.Errors, models.IngestionError{RecordID: rec.RecordID(), Message: errString(result.Err)})
		}

		logger.Info("record processed", "record_id", rec.RecordID(), "outcome", string(result.Outcome), "ident", result.Ident)
		if count%100 == 0 {
			logger.Info("progress", "records_processed", count)
		}
	}
}

func (f *Framework) finish(ctx context.Context, run *models.IngestionRun, ring *obslog.RingBuffer, logger *slog.Logger, fatal error) {
	if fatal != nil {
		logger.Error("fatal run error", "error", fatal.Error())
	}
	now := time.Now()
	run.CompletedAt = &now
	run.CapturedLog = ring.Flush()
	if err := f.runs.Finish(ctx, run); err != nil {
		// Best-effort: the run struct returned to the caller still
		// reflects the true outcome even if persisting the final row fails.
		logger.Error("failed to persist run completion", "error", err.Error())
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
