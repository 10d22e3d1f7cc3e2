package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alignmentlab/secret-agi/internal/model"
)

// StateRepo handles per-turn state snapshots.
type StateRepo struct {
	db *sql.DB
}

// NewStateRepo creates a StateRepo.
func NewStateRepo(db *sql.DB) *StateRepo {
	return &StateRepo{db: db}
}

// Save upserts a snapshot on the (game_id, turn_number) key. Replays
// and checkpoints rewrite the same turn; the blob is identical either
// way, so last-write-wins is safe.
func (r *StateRepo) Save(ctx context.Context, s *model.StateSnapshot) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO game_states (id, game_id, turn_number, state_blob, checksum)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (game_id, turn_number)
		 DO UPDATE SET state_blob = EXCLUDED.state_blob, checksum = EXCLUDED.checksum
		 RETURNING id, created_at`,
		s.ID, s.GameID, s.TurnNumber, []byte(s.StateBlob), s.Checksum,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// FindByTurn returns the snapshot at an exact turn, or nil.
func (r *StateRepo) FindByTurn(ctx context.Context, gameID string, turn int) (*model.StateSnapshot, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, game_id, turn_number, state_blob, created_at, checksum
		 FROM game_states WHERE game_id = $1 AND turn_number = $2`, gameID, turn))
}

// FindLatest returns the highest-turn snapshot for the game, or nil.
func (r *StateRepo) FindLatest(ctx context.Context, gameID string) (*model.StateSnapshot, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, game_id, turn_number, state_blob, created_at, checksum
		 FROM game_states WHERE game_id = $1 ORDER BY turn_number DESC LIMIT 1`, gameID))
}

// FindLatestAtOrBelow returns the newest snapshot not past the given
// turn, or nil.
func (r *StateRepo) FindLatestAtOrBelow(ctx context.Context, gameID string, turn int) (*model.StateSnapshot, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, game_id, turn_number, state_blob, created_at, checksum
		 FROM game_states WHERE game_id = $1 AND turn_number <= $2
		 ORDER BY turn_number DESC LIMIT 1`, gameID, turn))
}

func (r *StateRepo) scanOne(row *sql.Row) (*model.StateSnapshot, error) {
	var s model.StateSnapshot
	err := row.Scan(&s.ID, &s.GameID, &s.TurnNumber, (*[]byte)(&s.StateBlob), &s.CreatedAt, &s.Checksum)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find snapshot: %w", err)
	}
	return &s, nil
}
