package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alignmentlab/secret-agi/internal/model"
)

// PlayerRepo handles seat rows.
type PlayerRepo struct {
	db *sql.DB
}

// NewPlayerRepo creates a PlayerRepo.
func NewPlayerRepo(db *sql.DB) *PlayerRepo {
	return &PlayerRepo{db: db}
}

// CreateAll inserts every seat of a game in one transaction.
func (r *PlayerRepo) CreateAll(ctx context.Context, players []model.PlayerRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for i := range players {
		p := &players[i]
		_, err := tx.ExecContext(ctx,
			`INSERT INTO players (id, game_id, seat_id, agent_type, agent_config, role, allegiance, alive)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, p.GameID, p.SeatID, p.AgentType, nullBytes(p.AgentConfig), p.Role, p.Allegiance, p.Alive)
		if err != nil {
			return fmt.Errorf("insert player %s: %w", p.SeatID, err)
		}
	}
	return tx.Commit()
}

// ListByGame returns the game's seats ordered by seat id. Seating
// order lives in the state blob; rows exist for querying.
func (r *PlayerRepo) ListByGame(ctx context.Context, gameID string) ([]model.PlayerRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, game_id, seat_id, agent_type, agent_config, role, allegiance, alive
		 FROM players WHERE game_id = $1 ORDER BY seat_id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var players []model.PlayerRow
	for rows.Next() {
		var p model.PlayerRow
		var cfg []byte
		if err := rows.Scan(&p.ID, &p.GameID, &p.SeatID, &p.AgentType, &cfg, &p.Role, &p.Allegiance, &p.Alive); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		p.AgentConfig = cfg
		players = append(players, p)
	}
	return players, rows.Err()
}
