package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alignmentlab/secret-agi/internal/model"
)

// ChatRepo handles chat message rows.
type ChatRepo struct {
	db *sql.DB
}

// NewChatRepo creates a ChatRepo.
func NewChatRepo(db *sql.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// Insert writes one chat message.
func (r *ChatRepo) Insert(ctx context.Context, m *model.ChatMessage) error {
	return insertChat(ctx, r.db, m)
}

// ListByGame returns all chat messages for a game in turn order.
func (r *ChatRepo) ListByGame(ctx context.Context, gameID string) ([]model.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, game_id, turn_number, speaker_id, message, phase, created_at
		 FROM chat_messages WHERE game_id = $1 ORDER BY turn_number, created_at`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list chat: %w", err)
	}
	defer rows.Close()

	var messages []model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.GameID, &m.TurnNumber, &m.SpeakerID, &m.Message, &m.Phase, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func insertChat(ctx context.Context, ex execer, m *model.ChatMessage) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO chat_messages (id, game_id, turn_number, speaker_id, message, phase)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.GameID, m.TurnNumber, m.SpeakerID, m.Message, m.Phase)
	if err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}
	return nil
}
