package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alignmentlab/secret-agi/internal/model"
)

// ActionRepo handles action records.
type ActionRepo struct {
	db *sql.DB
}

// NewActionRepo creates an ActionRepo.
func NewActionRepo(db *sql.DB) *ActionRepo {
	return &ActionRepo{db: db}
}

// InsertPending writes the record with null validity before processing
// begins. It commits on its own so a crash mid-action leaves evidence.
func (r *ActionRepo) InsertPending(ctx context.Context, a *model.ActionRecord) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO actions (id, game_id, turn_number, actor_id, kind, params)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		a.ID, a.GameID, a.TurnNumber, a.ActorID, a.Kind, nullBytes(a.Params),
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert pending action: %w", err)
	}
	return nil
}

// CountValid returns the number of valid actions for the game.
func (r *ActionRepo) CountValid(ctx context.Context, gameID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM actions WHERE game_id = $1 AND is_valid = true`, gameID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count valid actions: %w", err)
	}
	return count, nil
}

// Latest returns the newest action record for the game, or nil.
func (r *ActionRepo) Latest(ctx context.Context, gameID string) (*model.ActionRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, game_id, turn_number, actor_id, kind, params, is_valid, error, processing_ms, created_at
		 FROM actions WHERE game_id = $1 ORDER BY created_at DESC, turn_number DESC LIMIT 1`, gameID)
	a, err := scanAction(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest action: %w", err)
	}
	return a, nil
}

// ListPending returns the game's in-flight action records, oldest first.
func (r *ActionRepo) ListPending(ctx context.Context, gameID string) ([]model.ActionRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, game_id, turn_number, actor_id, kind, params, is_valid, error, processing_ms, created_at
		 FROM actions WHERE game_id = $1 AND is_valid IS NULL ORDER BY created_at`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list pending actions: %w", err)
	}
	defer rows.Close()

	var records []model.ActionRecord
	for rows.Next() {
		a, err := scanAction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		records = append(records, *a)
	}
	return records, rows.Err()
}

// FailPending marks every pending action invalid with the recovery
// marker and returns how many were reconciled.
func (r *ActionRepo) FailPending(ctx context.Context, gameID, marker string) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE actions SET is_valid = false, error = $1 WHERE game_id = $2 AND is_valid IS NULL`,
		marker, gameID)
	if err != nil {
		return 0, fmt.Errorf("fail pending actions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("fail pending actions: %w", err)
	}
	return int(n), nil
}

// ListInterruptedGames returns active games holding at least one
// pending action record.
func (r *ActionRepo) ListInterruptedGames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT g.id FROM games g
		 JOIN actions a ON a.game_id = g.id AND a.is_valid IS NULL
		 WHERE g.status = 'active' ORDER BY g.id`)
	if err != nil {
		return nil, fmt.Errorf("list interrupted games: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan game id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanAction(scan func(dest ...any) error) (*model.ActionRecord, error) {
	var a model.ActionRecord
	var params []byte
	var isValid sql.NullBool
	var errMsg sql.NullString
	var procMs sql.NullInt64
	err := scan(&a.ID, &a.GameID, &a.TurnNumber, &a.ActorID, &a.Kind, &params, &isValid, &errMsg, &procMs, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Params = params
	if isValid.Valid {
		a.IsValid = &isValid.Bool
	}
	a.Error = errMsg.String
	if procMs.Valid {
		a.ProcessingMs = &procMs.Int64
	}
	return &a, nil
}

// nullBytes maps empty JSON to SQL NULL.
func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
