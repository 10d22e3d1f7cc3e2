package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/alignmentlab/secret-agi/internal/model"
)

// GameRepo handles game metadata rows.
type GameRepo struct {
	db *sql.DB
}

// NewGameRepo creates a GameRepo.
func NewGameRepo(db *sql.DB) *GameRepo {
	return &GameRepo{db: db}
}

// Create inserts a new game row.
func (r *GameRepo) Create(ctx context.Context, g *model.Game) error {
	metadata := g.Metadata
	if metadata == nil {
		metadata = json.RawMessage(`{}`)
	}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO games (id, status, config, current_turn, metadata)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at`,
		g.ID, g.Status, []byte(g.Config), g.CurrentTurn, []byte(metadata),
	).Scan(&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create game: %w", err)
	}
	return nil
}

// FindByID returns a game by id, or nil when absent.
func (r *GameRepo) FindByID(ctx context.Context, id string) (*model.Game, error) {
	var g model.Game
	var outcome []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT id, created_at, updated_at, status, config, current_turn, final_outcome, metadata
		 FROM games WHERE id = $1`, id,
	).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt, &g.Status, (*[]byte)(&g.Config), &g.CurrentTurn, &outcome, (*[]byte)(&g.Metadata))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find game: %w", err)
	}
	g.FinalOutcome = outcome
	return &g, nil
}

// ListByStatus returns games with the given status, oldest first.
func (r *GameRepo) ListByStatus(ctx context.Context, status string) ([]model.Game, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, created_at, updated_at, status, config, current_turn, final_outcome, metadata
		 FROM games WHERE status = $1 ORDER BY created_at`, status)
	if err != nil {
		return nil, fmt.Errorf("list games by status: %w", err)
	}
	defer rows.Close()

	var games []model.Game
	for rows.Next() {
		var g model.Game
		var outcome []byte
		if err := rows.Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt, &g.Status, (*[]byte)(&g.Config), &g.CurrentTurn, &outcome, (*[]byte)(&g.Metadata)); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		g.FinalOutcome = outcome
		games = append(games, g)
	}
	return games, rows.Err()
}

// UpdateTurn advances the game's current turn and status.
func (r *GameRepo) UpdateTurn(ctx context.Context, gameID string, currentTurn int, status string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE games SET current_turn = $1, status = $2, updated_at = now() WHERE id = $3`,
		currentTurn, status, gameID)
	if err != nil {
		return fmt.Errorf("update game turn: %w", err)
	}
	return nil
}

// SetOutcome marks a game finished (or failed) with its final outcome.
func (r *GameRepo) SetOutcome(ctx context.Context, gameID, status string, finalOutcome json.RawMessage) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE games SET status = $1, final_outcome = $2, updated_at = now() WHERE id = $3`,
		status, []byte(finalOutcome), gameID)
	if err != nil {
		return fmt.Errorf("set game outcome: %w", err)
	}
	return nil
}

// MergeMetadata shallow-merges a JSON patch into the game's metadata.
func (r *GameRepo) MergeMetadata(ctx context.Context, gameID string, patch json.RawMessage) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE games SET metadata = metadata || $1::jsonb, updated_at = now() WHERE id = $2`,
		[]byte(patch), gameID)
	if err != nil {
		return fmt.Errorf("merge game metadata: %w", err)
	}
	return nil
}
