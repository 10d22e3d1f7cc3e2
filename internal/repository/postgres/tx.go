package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alignmentlab/secret-agi/internal/repository"
)

// Coordinator groups the writes of one processed action into a single
// transaction: action completion, snapshot, events, chat, and the game
// row update. Commit failure leaves the store at the previous turn.
type Coordinator struct {
	db *sql.DB
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(db *sql.DB) *Coordinator {
	return &Coordinator{db: db}
}

// CommitAction atomically persists one action's writes.
func (c *Coordinator) CommitAction(ctx context.Context, w *repository.ActionWrite) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin action tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE actions SET turn_number = $1, is_valid = $2, error = NULLIF($3, ''), processing_ms = $4
		 WHERE id = $5`,
		w.TurnNumber, w.IsValid, w.Error, w.ProcessingMs, w.ActionID)
	if err != nil {
		return fmt.Errorf("complete action: %w", err)
	}

	if w.Snapshot != nil {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO game_states (id, game_id, turn_number, state_blob, checksum)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (game_id, turn_number)
			 DO UPDATE SET state_blob = EXCLUDED.state_blob, checksum = EXCLUDED.checksum`,
			w.Snapshot.ID, w.Snapshot.GameID, w.Snapshot.TurnNumber, []byte(w.Snapshot.StateBlob), w.Snapshot.Checksum)
		if err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
	}

	for i := range w.Events {
		if err := insertEvent(ctx, tx, &w.Events[i]); err != nil {
			return err
		}
	}

	if w.Chat != nil {
		if err := insertChat(ctx, tx, w.Chat); err != nil {
			return err
		}
	}

	for _, u := range w.AliveUpdates {
		_, err = tx.ExecContext(ctx,
			`UPDATE players SET alive = $1 WHERE game_id = $2 AND seat_id = $3`,
			u.Alive, w.GameID, u.SeatID)
		if err != nil {
			return fmt.Errorf("update player alive: %w", err)
		}
	}

	if w.IsValid {
		if w.FinalOutcome != nil {
			_, err = tx.ExecContext(ctx,
				`UPDATE games SET current_turn = $1, status = $2, final_outcome = $3, updated_at = now() WHERE id = $4`,
				w.CurrentTurn, w.Status, []byte(w.FinalOutcome), w.GameID)
		} else {
			_, err = tx.ExecContext(ctx,
				`UPDATE games SET current_turn = $1, status = $2, updated_at = now() WHERE id = $3`,
				w.CurrentTurn, w.Status, w.GameID)
		}
		if err != nil {
			return fmt.Errorf("update game: %w", err)
		}
	}

	return tx.Commit()
}
