package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mitds/internal/models"
)

// EvidenceRepo persists append-only Evidence rows.
type EvidenceRepo struct {
	pool *pgxpool.Pool
}

func NewEvidenceRepo(pool *pgxpool.Pool) *EvidenceRepo { return &EvidenceRepo{pool: pool} }

// Insert appends an Evidence row within tx. Evidence is append-only: there
// is no upsert path here.
func (r *EvidenceRepo) Insert(ctx context.Context, tx pgx.Tx, ev *models.Evidence) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO evidence (id, evidence_type, source_url, retrieved_at, extractor_name, extractor_version, raw_data_key, content_hash, extraction_confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, ev.ID, ev.EvidenceType, ev.SourceURL, ev.RetrievedAt, ev.ExtractorName, ev.ExtractorVersion, ev.RawDataKey, ev.ContentHash, ev.ExtractionConfidence)
	if err != nil {
		return fmt.Errorf("insert evidence: %w", err)
	}
	return nil
}

// EventRepo persists the events table used by the temporal detector.
type EventRepo struct {
	pool *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) *EventRepo { return &EventRepo{pool: pool} }

func (r *EventRepo) Insert(ctx context.Context, tx pgx.Tx, id string, ev models.TimingEvent) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO events (id, entity_id, timestamp, event_type, metadata)
		VALUES ($1, $2, $3, $4, $5)
	`, id, ev.EntityID, ev.Timestamp, ev.EventType, ev.Metadata)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ForEntities loads all timing events for the given entity ids, ordered by
// timestamp, for the temporal-coordination detector to consume.
func (r *EventRepo) ForEntities(ctx context.Context, entityIDs []string) ([]models.TimingEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT entity_id, timestamp, event_type, metadata
		FROM events WHERE entity_id = ANY($1)
		ORDER BY timestamp ASC
	`, entityIDs)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []models.TimingEvent
	for rows.Next() {
		var ev models.TimingEvent
		if err := rows.Scan(&ev.EntityID, &ev.Timestamp, &ev.EventType, &ev.Metadata); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
