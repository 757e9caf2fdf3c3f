package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mitds/internal/models"
)

// EdgeRepo persists Edge rows keyed on (edge_type, merge_key).
type EdgeRepo struct {
	pool *pgxpool.Pool
}

func NewEdgeRepo(pool *pgxpool.Pool) *EdgeRepo { return &EdgeRepo{pool: pool} }

// FindByMergeKey looks up an edge by (type, merge key). For undirected
// types, the caller is expected to have already normalized the merge key
// so that (a,b) and (b,a) collide (see graph.EdgeMergeKey and
// graph.SortedPair).
func (r *EdgeRepo) FindByMergeKey(ctx context.Context, edgeType models.EdgeType, mergeKey string) (*models.Edge, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, source_id, target_id, valid_from, valid_to, confidence, evidence_ids, attrs, created_at, updated_at
		FROM graph_edges WHERE edge_type = $1 AND merge_key = $2
	`, string(edgeType), mergeKey)

	var e models.Edge
	e.Type = edgeType
	var evJSON, attrsJSON []byte
	if err := row.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.ValidFrom, &e.ValidTo, &e.Confidence, &evJSON, &attrsJSON, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find edge by merge key: %w", err)
	}
	if err := json.Unmarshal(evJSON, &e.EvidenceID); err != nil {
		return nil, fmt.Errorf("unmarshal evidence ids: %w", err)
	}
	if err := json.Unmarshal(attrsJSON, &e.Properties); err != nil {
		return nil, fmt.Errorf("unmarshal edge attrs: %w", err)
	}
	return &e, nil
}

// Upsert inserts or updates an Edge keyed on (edge_type, merge_key) within
// tx. Evidence references are appended, never replaced; created_at is
// never overwritten; updated_at is always the caller-supplied commit-time
// clock value (§9: single server-side clock source at commit time).
func (r *EdgeRepo) Upsert(ctx context.Context, tx pgx.Tx, e *models.Edge, mergeKey string) (*models.Edge, bool, error) {
	evJSON, err := json.Marshal(e.EvidenceID)
	if err != nil {
		return nil, false, fmt.Errorf("marshal evidence ids: %w", err)
	}
	attrsJSON, err := json.Marshal(e.Properties)
	if err != nil {
		return nil, false, fmt.Errorf("marshal edge attrs: %w", err)
	}

	var id string
	var wasInserted bool
	err = tx.QueryRow(ctx, `
		INSERT INTO graph_edges (id, edge_type, source_id, target_id, merge_key, valid_from, valid_to, confidence, evidence_ids, attrs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (edge_type, merge_key) DO UPDATE SET
			valid_to = EXCLUDED.valid_to,
			confidence = GREATEST(graph_edges.confidence, EXCLUDED.confidence),
			evidence_ids = (
				SELECT jsonb_agg(DISTINCT v) FROM jsonb_array_elements(graph_edges.evidence_ids || EXCLUDED.evidence_ids) v
			),
			attrs = graph_edges.attrs || EXCLUDED.attrs,
			updated_at = $11
		RETURNING id, (xmax = 0) AS inserted
	`, e.ID, string(e.Type), e.SourceID, e.TargetID, mergeKey, e.ValidFrom, e.ValidTo, e.Confidence, evJSON, attrsJSON, e.UpdatedAt).
		Scan(&id, &wasInserted)
	if err != nil {
		return nil, false, fmt.Errorf("upsert edge: %w", err)
	}

	e.ID = id
	if wasInserted {
		e.CreatedAt = e.UpdatedAt
	}
	return e, wasInserted, nil
}
