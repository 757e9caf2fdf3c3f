package funding

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"mitds/internal/models"
)

// PostgresGraphSource implements GraphSource over the entities/graph_edges
// tables, reading FUNDED_BY edges directly rather than through the Writer
// (detection is read-only and runs outside any write transaction).
type PostgresGraphSource struct {
	pool *pgxpool.Pool
}

func NewPostgresGraphSource(pool *pgxpool.Pool) *PostgresGraphSource {
	return &PostgresGraphSource{pool: pool}
}

func (s *PostgresGraphSource) FundingEdges(ctx context.Context) ([]FundingEdge, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT source_id, target_id, attrs
		FROM graph_edges WHERE edge_type = $1
	`, string(models.EdgeFundedBy))
	if err != nil {
		return nil, fmt.Errorf("query funding edges: %w", err)
	}
	defer rows.Close()

	var out []FundingEdge
	for rows.Next() {
		var sourceID, targetID string
		var attrs map[string]any
		if err := rows.Scan(&sourceID, &targetID, &attrs); err != nil {
			return nil, fmt.Errorf("scan funding edge: %w", err)
		}
		// FUNDED_BY edges run recipient -> funder (source -> target).
		recipientID, funderID := sourceID, targetID
		var amount float64
		if v, ok := attrs["amount"].(float64); ok {
			amount = v
		}
		out = append(out, FundingEdge{FunderID: funderID, RecipientID: recipientID, Amount: amount})
	}
	return out, rows.Err()
}

func (s *PostgresGraphSource) EntityName(ctx context.Context, id string) (string, error) {
	var name string
	err := s.pool.QueryRow(ctx, `SELECT name FROM entities WHERE id = $1`, id).Scan(&name)
	if err != nil {
		return "", fmt.Errorf("lookup entity name: %w", err)
	}
	return name, nil
}
