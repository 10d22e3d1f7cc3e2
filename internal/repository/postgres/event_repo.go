package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alignmentlab/secret-agi/internal/model"
)

// EventRepo handles event rows.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo creates an EventRepo.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

// Append inserts event rows outside a coordinated transaction; the
// coordinator uses the same statement for in-transaction writes.
func (r *EventRepo) Append(ctx context.Context, events []model.EventRecord) error {
	for i := range events {
		if err := insertEvent(ctx, r.db, &events[i]); err != nil {
			return err
		}
	}
	return nil
}

// ListByGame returns the game's events in commit order.
func (r *EventRepo) ListByGame(ctx context.Context, gameID string) ([]model.EventRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, game_id, turn_number, type, actor_id, payload, created_at
		 FROM events WHERE game_id = $1 ORDER BY turn_number, created_at, id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.EventRecord
	for rows.Next() {
		var e model.EventRecord
		var actor sql.NullString
		if err := rows.Scan(&e.ID, &e.GameID, &e.TurnNumber, &e.Type, &actor, (*[]byte)(&e.Payload), &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.ActorID = actor.String
		events = append(events, e)
	}
	return events, rows.Err()
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertEvent(ctx context.Context, ex execer, e *model.EventRecord) error {
	var actor any
	if e.ActorID != "" {
		actor = e.ActorID
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO events (id, game_id, turn_number, type, actor_id, payload)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.GameID, e.TurnNumber, e.Type, actor, []byte(e.Payload))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}
