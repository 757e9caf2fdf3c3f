package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"mitds/internal/models"
	"mitds/internal/store"
)

// Clock is the single server-side clock source used at commit time (§9),
// so updated_at monotonicity (T3) holds regardless of caller-supplied
// timestamps. Injectable for deterministic tests.
type Clock func() time.Time

// NodeResult is returned by UpsertNode (§6).
type NodeResult struct {
	ID      string
	Created bool
}

// EdgeResult is returned by UpsertEdge (§6).
type EdgeResult struct {
	ID      string
	Created bool
}

// Writer is the Graph Writer: transactional, idempotent upsert of nodes
// and edges over the relational store.
type Writer struct {
	pool      *pgxpool.Pool
	entities  *store.EntityRepo
	edges     *store.EdgeRepo
	evidence  *store.EvidenceRepo
	now       Clock
}

// New builds a Writer over pool. now defaults to time.Now if nil.
func New(pool *pgxpool.Pool, now Clock) *Writer {
	if now == nil {
		now = time.Now
	}
	return &Writer{
		pool:     pool,
		entities: store.NewEntityRepo(pool),
		edges:    store.NewEdgeRepo(pool),
		evidence: store.NewEvidenceRepo(pool),
		now:      now,
	}
}

// UpsertNode inserts or updates an Entity, enforcing its per-type merge
// key (§4.2). Runs in its own transaction so node + evidence commit
// atomically.
func (w *Writer) UpsertNode(ctx context.Context, e *models.Entity, ev *models.Evidence) (NodeResult, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := w.now()
	e.UpdatedAt = now
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}

	mergeKey := NodeMergeKey(e)

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return NodeResult{}, fmt.Errorf("begin node upsert tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after Commit

	saved, created, err := w.entities.Upsert(ctx, tx, e, mergeKey)
	if err != nil {
		return NodeResult{}, err
	}

	if ev != nil {
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		if err := w.evidence.Insert(ctx, tx, ev); err != nil {
			return NodeResult{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return NodeResult{}, fmt.Errorf("commit node upsert: %w", err)
	}
	return NodeResult{ID: saved.ID, Created: created}, nil
}

// UpsertEdge inserts or updates an Edge, enforcing I1 (endpoints must
// already exist), the type's merge key (I2), and undirected semantics for
// SHARED_INFRA. Runs in its own transaction so edge + evidence commit
// atomically; a cancellation mid-record leaves no dangling evidence rows.
func (w *Writer) UpsertEdge(ctx context.Context, e *models.Edge, ev *models.Evidence) (EdgeResult, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := w.now()
	e.UpdatedAt = now
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}

	if Undirected(e.Type) {
		e.SourceID, e.TargetID = SortedPair(e.SourceID, e.TargetID)
	}

	mergeKey, err := EdgeMergeKey(e)
	if err != nil {
		return EdgeResult{}, fmt.Errorf("compute edge merge key: %w", err)
	}

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return EdgeResult{}, fmt.Errorf("begin edge upsert tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := w.checkEndpointsExist(ctx, e.SourceID, e.TargetID); err != nil {
		return EdgeResult{}, err
	}

	saved, created, err := w.edges.Upsert(ctx, tx, e, mergeKey)
	if err != nil {
		return EdgeResult{}, err
	}

	if ev != nil {
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		if err := w.evidence.Insert(ctx, tx, ev); err != nil {
			return EdgeResult{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return EdgeResult{}, fmt.Errorf("commit edge upsert: %w", err)
	}
	return EdgeResult{ID: saved.ID, Created: created}, nil
}

func (w *Writer) checkEndpointsExist(ctx context.Context, sourceID, targetID string) error {
	var count int
	err := w.pool.QueryRow(ctx, `SELECT count(*) FROM entities WHERE id = ANY($1)`, []string{sourceID, targetID}).Scan(&count)
	if err != nil {
		return fmt.Errorf("check edge endpoints: %w", err)
	}
	if count != 2 {
		return fmt.Errorf("edge endpoints %s, %s must exist as nodes at commit time", sourceID, targetID)
	}
	return nil
}

// CreateSharedInfra is the named §6 convenience that builds a SHARED_INFRA
// edge from an infrastructure-detector match.
func (w *Writer) CreateSharedInfra(ctx context.Context, outletA, outletB string, signals []models.SharedInfraSignal, totalScore float64, category string, ev *models.Evidence) (EdgeResult, error) {
	e := &models.Edge{
		Type:     models.EdgeSharedInfra,
		SourceID: outletA,
		TargetID: outletB,
		Properties: map[string]any{
			"signals":          signals,
			"total_score":      totalScore,
			"sharing_category": category,
		},
		Confidence: confidenceFromScore(totalScore),
	}
	return w.UpsertEdge(ctx, e, ev)
}

func confidenceFromScore(score float64) float64 {
	c := score / 10.0
	if c > 1 {
		c = 1
	}
	return c
}
