package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"mitds/internal/models"
)

// ReviewRepo persists ReviewCandidate rows in the review_queue table for
// mentions sent to human review (§4.3).
type ReviewRepo struct {
	pool *pgxpool.Pool
}

func NewReviewRepo(pool *pgxpool.Pool) *ReviewRepo { return &ReviewRepo{pool: pool} }

func (r *ReviewRepo) Enqueue(ctx context.Context, c *models.ReviewCandidate) error {
	sigJSON, err := json.Marshal(c.Signals)
	if err != nil {
		return fmt.Errorf("marshal review signals: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO review_queue (id, mention_name, candidate_id, confidence, signals, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.MentionName, c.CandidateID, c.Confidence, sigJSON, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("enqueue review candidate: %w", err)
	}
	return nil
}
