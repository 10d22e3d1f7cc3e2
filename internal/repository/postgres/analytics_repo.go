package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alignmentlab/secret-agi/internal/model"
)

// AnalyticsRepo aggregates the persisted history for experiment
// tooling; it never writes.
type AnalyticsRepo struct {
	db *sql.DB
}

// NewAnalyticsRepo creates an AnalyticsRepo.
func NewAnalyticsRepo(db *sql.DB) *AnalyticsRepo {
	return &AnalyticsRepo{db: db}
}

// AgentPerformance returns per-actor action statistics for one game.
func (r *AnalyticsRepo) AgentPerformance(ctx context.Context, gameID string) ([]model.AgentPerformance, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT actor_id,
		        COUNT(*) AS total,
		        COUNT(*) FILTER (WHERE is_valid = true) AS valid,
		        COUNT(*) FILTER (WHERE is_valid = false) AS invalid,
		        COALESCE(AVG(processing_ms), 0) AS avg_ms
		 FROM actions WHERE game_id = $1
		 GROUP BY actor_id ORDER BY actor_id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("agent performance: %w", err)
	}
	defer rows.Close()

	var perf []model.AgentPerformance
	for rows.Next() {
		var p model.AgentPerformance
		if err := rows.Scan(&p.ActorID, &p.TotalActions, &p.ValidActions, &p.InvalidActions, &p.AvgProcessingMs); err != nil {
			return nil, fmt.Errorf("scan performance: %w", err)
		}
		perf = append(perf, p)
	}
	return perf, rows.Err()
}

// GameTimeline returns the turn-ordered merge of actions and events
// for one game.
func (r *AnalyticsRepo) GameTimeline(ctx context.Context, gameID string) ([]model.TimelineEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT turn_number, 'action' AS kind, kind AS type, actor_id, params AS detail, created_at
		 FROM actions WHERE game_id = $1
		 UNION ALL
		 SELECT turn_number, 'event' AS kind, type, COALESCE(actor_id, ''), payload AS detail, created_at
		 FROM events WHERE game_id = $1
		 ORDER BY turn_number, created_at`, gameID)
	if err != nil {
		return nil, fmt.Errorf("game timeline: %w", err)
	}
	defer rows.Close()

	var entries []model.TimelineEntry
	for rows.Next() {
		var e model.TimelineEntry
		var detail []byte
		if err := rows.Scan(&e.TurnNumber, &e.Kind, &e.Type, &e.ActorID, &detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan timeline: %w", err)
		}
		e.Detail = detail
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
