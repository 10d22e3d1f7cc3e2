package model

import (
	"encoding/json"
	"time"
)

// Game status values, persisted as strings.
const (
	GameStatusActive    = "active"
	GameStatusCompleted = "completed"
	GameStatusFailed    = "failed"
	GameStatusPaused    = "paused"
)

// AgentTypeExternal marks seats driven by an out-of-process agent; the
// engine itself does not distinguish agent kinds.
const AgentTypeExternal = "external"

// Game is the per-game metadata row.
type Game struct {
	ID           string          `json:"id"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Status       string          `json:"status"`
	Config       json.RawMessage `json:"config"`
	CurrentTurn  int             `json:"current_turn"`
	FinalOutcome json.RawMessage `json:"final_outcome,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
}

// StateSnapshot is one full serialized game state, keyed by
// (game_id, turn_number). Checksum is a SHA-256 hex digest of the blob.
type StateSnapshot struct {
	ID         string          `json:"id"`
	GameID     string          `json:"game_id"`
	TurnNumber int             `json:"turn_number"`
	StateBlob  json.RawMessage `json:"state_blob"`
	CreatedAt  time.Time       `json:"created_at"`
	Checksum   string          `json:"checksum"`
}

// PlayerRow is one seat of a game as persisted. SeatID is the in-game
// player id; ID is the row identity.
type PlayerRow struct {
	ID          string          `json:"id"`
	GameID      string          `json:"game_id"`
	SeatID      string          `json:"seat_id"`
	AgentType   string          `json:"agent_type"`
	AgentConfig json.RawMessage `json:"agent_config,omitempty"`
	Role        string          `json:"role"`
	Allegiance  string          `json:"allegiance"`
	Alive       bool            `json:"alive"`
}

// ActionRecord is one submitted action, valid or not. IsValid is nil
// while the action is in flight; an interrupted run leaves it nil for
// recovery to reconcile.
type ActionRecord struct {
	ID           string          `json:"id"`
	GameID       string          `json:"game_id"`
	TurnNumber   int             `json:"turn_number"`
	ActorID      string          `json:"actor_id"`
	Kind         string          `json:"kind"`
	Params       json.RawMessage `json:"params,omitempty"`
	IsValid      *bool           `json:"is_valid,omitempty"`
	Error        string          `json:"error,omitempty"`
	ProcessingMs *int64          `json:"processing_ms,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// EventRecord is one persisted game event.
type EventRecord struct {
	ID         string          `json:"id"`
	GameID     string          `json:"game_id"`
	TurnNumber int             `json:"turn_number"`
	Type       string          `json:"type"`
	ActorID    string          `json:"actor_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ChatMessage is one recorded table-talk message.
type ChatMessage struct {
	ID         string    `json:"id"`
	GameID     string    `json:"game_id"`
	TurnNumber int       `json:"turn_number"`
	SpeakerID  string    `json:"speaker_id"`
	Message    string    `json:"message"`
	Phase      string    `json:"phase"`
	CreatedAt  time.Time `json:"created_at"`
}

// AgentMetric is one per-turn counter row attached by the orchestrator.
type AgentMetric struct {
	ID              string    `json:"id"`
	GameID          string    `json:"game_id"`
	ActorID         string    `json:"actor_id"`
	TurnNumber      int       `json:"turn_number"`
	Tokens          *int      `json:"tokens,omitempty"`
	ResponseMs      *int64    `json:"response_ms,omitempty"`
	InvalidAttempts int       `json:"invalid_attempts"`
	StateSize       *int      `json:"state_size,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// AgentPerformance aggregates the actions table per actor.
type AgentPerformance struct {
	ActorID         string  `json:"actor_id"`
	TotalActions    int     `json:"total_actions"`
	ValidActions    int     `json:"valid_actions"`
	InvalidActions  int     `json:"invalid_actions"`
	AvgProcessingMs float64 `json:"avg_processing_ms"`
}

// TimelineEntry is one row of the merged action/event timeline.
type TimelineEntry struct {
	TurnNumber int             `json:"turn_number"`
	Kind       string          `json:"kind"` // "action" or "event"
	Type       string          `json:"type"`
	ActorID    string          `json:"actor_id,omitempty"`
	Detail     json.RawMessage `json:"detail,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
