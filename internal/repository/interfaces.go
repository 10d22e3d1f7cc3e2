package repository

import (
	"context"
	"encoding/json"

	"github.com/alignmentlab/secret-agi/internal/model"
)

// GameRepository defines game metadata operations.
type GameRepository interface {
	Create(ctx context.Context, g *model.Game) error
	FindByID(ctx context.Context, id string) (*model.Game, error)
	ListByStatus(ctx context.Context, status string) ([]model.Game, error)
	UpdateTurn(ctx context.Context, gameID string, currentTurn int, status string) error
	SetOutcome(ctx context.Context, gameID string, status string, finalOutcome json.RawMessage) error
	MergeMetadata(ctx context.Context, gameID string, patch json.RawMessage) error
}

// PlayerRepository defines seat persistence operations.
type PlayerRepository interface {
	CreateAll(ctx context.Context, players []model.PlayerRow) error
	ListByGame(ctx context.Context, gameID string) ([]model.PlayerRow, error)
}

// StateRepository defines snapshot operations. Save upserts on the
// unique (game_id, turn_number) key.
type StateRepository interface {
	Save(ctx context.Context, s *model.StateSnapshot) error
	FindByTurn(ctx context.Context, gameID string, turn int) (*model.StateSnapshot, error)
	FindLatest(ctx context.Context, gameID string) (*model.StateSnapshot, error)
	FindLatestAtOrBelow(ctx context.Context, gameID string, turn int) (*model.StateSnapshot, error)
}

// ActionRepository defines action-record operations. InsertPending
// writes the record with a null validity before processing begins; a
// record still pending after a crash is the interruption evidence
// recovery looks for.
type ActionRepository interface {
	InsertPending(ctx context.Context, a *model.ActionRecord) error
	CountValid(ctx context.Context, gameID string) (int, error)
	Latest(ctx context.Context, gameID string) (*model.ActionRecord, error)
	ListPending(ctx context.Context, gameID string) ([]model.ActionRecord, error)
	FailPending(ctx context.Context, gameID, marker string) (int, error)
	ListInterruptedGames(ctx context.Context) ([]string, error)
}

// EventRepository defines event append and read operations.
type EventRepository interface {
	Append(ctx context.Context, events []model.EventRecord) error
	ListByGame(ctx context.Context, gameID string) ([]model.EventRecord, error)
}

// ChatRepository defines chat persistence.
type ChatRepository interface {
	Insert(ctx context.Context, m *model.ChatMessage) error
	ListByGame(ctx context.Context, gameID string) ([]model.ChatMessage, error)
}

// MetricsRepository records orchestrator-supplied agent counters.
type MetricsRepository interface {
	Record(ctx context.Context, m *model.AgentMetric) error
}

// AnalyticsRepository aggregates the persisted history for debugging
// and experiment tooling.
type AnalyticsRepository interface {
	AgentPerformance(ctx context.Context, gameID string) ([]model.AgentPerformance, error)
	GameTimeline(ctx context.Context, gameID string) ([]model.TimelineEntry, error)
}

// AliveUpdate flips one seat's alive flag.
type AliveUpdate struct {
	SeatID string
	Alive  bool
}

// ActionWrite bundles everything one processed action persists. The
// coordinator commits it atomically: on failure nothing is written and
// the caller's in-memory state stays authoritative.
type ActionWrite struct {
	GameID       string
	ActionID     string
	TurnNumber   int
	IsValid      bool
	Error        string
	ProcessingMs int64

	// Set for valid actions only.
	Snapshot     *model.StateSnapshot
	CurrentTurn  int
	Status       string
	FinalOutcome json.RawMessage
	AliveUpdates []AliveUpdate

	Events []model.EventRecord
	Chat   *model.ChatMessage
}

// Coordinator is the transactional unit-of-work for one action.
type Coordinator interface {
	CommitAction(ctx context.Context, w *ActionWrite) error
}

// StateCache is a non-authoritative fast path for the latest serialized
// state per game. Errors are logged and swallowed by callers; the event
// store remains the source of truth.
type StateCache interface {
	SetState(ctx context.Context, gameID string, turn int, blob json.RawMessage) error
	GetState(ctx context.Context, gameID string) (json.RawMessage, error)
	Invalidate(ctx context.Context, gameID string) error
}

// Store bundles the repositories and the coordinator of one backend.
type Store struct {
	Games     GameRepository
	Players   PlayerRepository
	States    StateRepository
	Actions   ActionRepository
	Events    EventRepository
	Chat      ChatRepository
	Metrics   MetricsRepository
	Analytics AnalyticsRepository
	Tx        Coordinator
}
