package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresGraphView implements GraphView against the relational store.
// SQL has no native token-sort-ratio, so name candidates are pre-filtered
// with a trigram-ish ILIKE pass and then scored in Go via TokenSortRatio.
type PostgresGraphView struct {
	pool *pgxpool.Pool
}

func NewPostgresGraphView(pool *pgxpool.Pool) *PostgresGraphView {
	return &PostgresGraphView{pool: pool}
}

func (v *PostgresGraphView) CandidatesByIdentifier(ctx context.Context, idType, idValue string) ([]Candidate, error) {
	mergeKey := idType + ":" + idValue
	rows, err := v.pool.Query(ctx, `
		SELECT e.id, COALESCE(count(g.id), 0) AS outgoing
		FROM entities e
		LEFT JOIN graph_edges g ON g.source_id = e.id
		WHERE e.merge_key = $1
		GROUP BY e.id
	`, mergeKey)
	if err != nil {
		return nil, fmt.Errorf("query candidates by identifier: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.EntityID, &c.OutgoingEdges); err != nil {
			return nil, fmt.Errorf("scan identifier candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (v *PostgresGraphView) CandidatesByName(ctx context.Context, normalizedName string, minSimilarity float64) ([]Candidate, error) {
	firstToken := normalizedName
	if idx := strings.IndexByte(normalizedName, ' '); idx >= 0 {
		firstToken = normalizedName[:idx]
	}

	rows, err := v.pool.Query(ctx, `
		SELECT e.id, e.name, e.attrs->>'jurisdiction', e.attrs->'address'->>'city', e.attrs->'address'->>'postal',
		       COALESCE((SELECT count(*) FROM graph_edges g WHERE g.source_id = e.id), 0) AS outgoing
		FROM entities e
		WHERE e.name ILIKE '%' || $1 || '%'
	`, firstToken)
	if err != nil {
		return nil, fmt.Errorf("query candidates by name: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var entityID, name string
		var jurisdiction, city, postal *string
		var outgoing int
		if err := rows.Scan(&entityID, &name, &jurisdiction, &city, &postal, &outgoing); err != nil {
			return nil, fmt.Errorf("scan name candidate: %w", err)
		}
		sim := TokenSortRatio(normalizedName, Normalize(name))
		if sim < minSimilarity {
			continue
		}
		c := Candidate{EntityID: entityID, OutgoingEdges: outgoing, NameSimilarity: sim}
		if jurisdiction != nil {
			c.Jurisdiction = *jurisdiction
		}
		if city != nil {
			c.City = *city
		}
		if postal != nil {
			c.Postal = *postal
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (v *PostgresGraphView) SharesDirector(ctx context.Context, entityID string, directors []string) (bool, error) {
	var count int
	err := v.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM graph_edges g
		JOIN entities p ON p.id = g.source_id
		WHERE g.target_id = $1 AND g.edge_type IN ('DIRECTOR_OF')
		  AND lower(p.name) = ANY($2)
	`, entityID, lowerAll(directors)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check shared director: %w", err)
	}
	return count > 0, nil
}

func lowerAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToLower(s)
	}
	return out
}
