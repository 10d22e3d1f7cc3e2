package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alignmentlab/secret-agi/internal/model"
)

// MetricsRepo handles agent metric rows.
type MetricsRepo struct {
	db *sql.DB
}

// NewMetricsRepo creates a MetricsRepo.
func NewMetricsRepo(db *sql.DB) *MetricsRepo {
	return &MetricsRepo{db: db}
}

// Record inserts one agent metric row.
func (r *MetricsRepo) Record(ctx context.Context, m *model.AgentMetric) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO agent_metrics (id, game_id, actor_id, turn_number, tokens, response_ms, invalid_attempts, state_size)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at`,
		m.ID, m.GameID, m.ActorID, m.TurnNumber, m.Tokens, m.ResponseMs, m.InvalidAttempts, m.StateSize,
	).Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("record agent metric: %w", err)
	}
	return nil
}
