package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/alignmentlab/secret-agi/internal/model"
	"github.com/alignmentlab/secret-agi/internal/repository"
	"github.com/alignmentlab/secret-agi/pkg/secretagi"
)

var (
	ErrGameNotFound      = errors.New("game not found")
	ErrGameCompleted     = errors.New("game is already completed")
	ErrSnapshotNotFound  = errors.New("no state snapshot found")
	ErrNoConsistentState = errors.New("no consistent state to restore")
)

// Update is what an actor gets back from the engine after submitting an
// action: the outcome, the events and chat that became visible to them
// since their previous update, the filtered state, and the actions now
// open to them.
type Update struct {
	Success      bool                     `json:"success"`
	Error        *secretagi.ActionError   `json:"error,omitempty"`
	Events       []secretagi.Event        `json:"events,omitempty"`
	Chat         []model.ChatMessage      `json:"chat,omitempty"`
	State        *secretagi.FilteredState `json:"state"`
	ValidActions []secretagi.ActionKind   `json:"valid_actions,omitempty"`
}

// liveGame is the in-memory side of one loaded game: the authoritative
// state plus per-actor delivery cursors into its event and chat logs.
// mu serializes actions within this game; games do not block each
// other.
type liveGame struct {
	mu           sync.Mutex
	state        *secretagi.GameState
	eventCursors map[string]int
	chat         []model.ChatMessage
	chatCursors  map[string]int
}

// GameEngine is the facade the orchestrator talks to. All writes for
// one action go through the store's coordinator in a single commit; the
// in-memory state only advances after that commit succeeds.
type GameEngine struct {
	store *repository.Store
	cache repository.StateCache
	log   zerolog.Logger

	mu    sync.Mutex // guards games; per-game work holds liveGame.mu
	games map[string]*liveGame
}

// NewGameEngine creates a GameEngine. cache may be nil.
func NewGameEngine(store *repository.Store, cache repository.StateCache, log zerolog.Logger) *GameEngine {
	return &GameEngine{
		store: store,
		cache: cache,
		log:   log.With().Str("component", "engine").Logger(),
		games: make(map[string]*liveGame),
	}
}

// CreateGame deals a new game and persists its initial records: the
// game row, one player row per seat, and the turn-0 snapshot.
func (e *GameEngine) CreateGame(ctx context.Context, cfg secretagi.Config) (*secretagi.GameState, error) {
	gameID := model.NewID()
	gs, err := secretagi.NewGame(gameID, cfg)
	if err != nil {
		return nil, err
	}

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	if err := e.store.Games.Create(ctx, &model.Game{
		ID:          gameID,
		Status:      model.GameStatusActive,
		Config:      cfgJSON,
		CurrentTurn: 0,
	}); err != nil {
		return nil, fmt.Errorf("create game row: %w", err)
	}

	rows := make([]model.PlayerRow, len(gs.Players))
	for i := range gs.Players {
		p := &gs.Players[i]
		rows[i] = model.PlayerRow{
			ID:         model.NewID(),
			GameID:     gameID,
			SeatID:     p.ID,
			AgentType:  model.AgentTypeExternal,
			Role:       string(p.Role),
			Allegiance: string(p.Allegiance()),
			Alive:      true,
		}
	}
	if err := e.store.Players.CreateAll(ctx, rows); err != nil {
		return nil, fmt.Errorf("create player rows: %w", err)
	}

	if _, err := e.saveSnapshot(ctx, gs); err != nil {
		return nil, err
	}
	e.cacheState(ctx, gs)

	e.mu.Lock()
	e.games[gameID] = newLiveGame(gs)
	e.mu.Unlock()

	e.log.Info().Str("game_id", gameID).Int("players", cfg.PlayerCount).
		Int64("seed", cfg.Seed).Msg("game created")
	return gs.Clone(), nil
}

func newLiveGame(gs *secretagi.GameState) *liveGame {
	return &liveGame{
		state:        gs,
		eventCursors: make(map[string]int),
		chatCursors:  make(map[string]int),
	}
}

// PerformAction runs the full write protocol for one submitted action:
// a pending audit record goes down before processing, then processing
// happens in memory, then every resulting write lands in one commit.
// A commit failure leaves the in-memory state at the previous turn and
// reports an internal error in the update.
func (e *GameEngine) PerformAction(ctx context.Context, gameID, actorID string, act secretagi.Action) (*Update, error) {
	lg, err := e.getGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	lg.mu.Lock()
	defer lg.mu.Unlock()
	gs := lg.state

	actionID := model.NewID()
	if err := e.store.Actions.InsertPending(ctx, &model.ActionRecord{
		ID:         actionID,
		GameID:     gameID,
		TurnNumber: gs.TurnNumber + 1,
		ActorID:    actorID,
		Kind:       string(act.Kind),
		Params:     act.Params(),
	}); err != nil {
		return nil, fmt.Errorf("insert pending action: %w", err)
	}

	start := time.Now()
	next, events, verr := secretagi.Apply(gs, actorID, act)
	elapsed := time.Since(start).Milliseconds()

	if verr != nil {
		w := &repository.ActionWrite{
			GameID:       gameID,
			ActionID:     actionID,
			TurnNumber:   gs.TurnNumber,
			IsValid:      false,
			Error:        verr.Error(),
			ProcessingMs: elapsed,
			Events:       e.toEventRecords(gameID, events),
		}
		if err := e.store.Tx.CommitAction(ctx, w); err != nil {
			e.log.Error().Err(err).Str("game_id", gameID).Str("action_id", actionID).
				Msg("commit of rejected action failed")
		}
		e.log.Debug().Str("game_id", gameID).Str("actor", actorID).
			Str("kind", string(act.Kind)).Str("code", string(verr.Code)).
			Msg("action rejected")
		u := e.buildUpdateLocked(lg, actorID)
		u.Success = false
		u.Error = verr
		// The rejection audit event is not part of the state history,
		// so deliver it directly.
		u.Events = append(u.Events, events...)
		return u, nil
	}

	w, err := e.buildWrite(gameID, actionID, next, events, elapsed, actorID, act)
	if err != nil {
		return nil, err
	}
	if err := e.store.Tx.CommitAction(ctx, w); err != nil {
		e.log.Error().Err(err).Str("game_id", gameID).Str("action_id", actionID).
			Msg("action commit failed, state not advanced")
		u := e.buildUpdateLocked(lg, actorID)
		u.Success = false
		u.Error = &secretagi.ActionError{Code: secretagi.CodeInternal, Message: "persist failed"}
		return u, nil
	}

	lg.state = next
	if w.Chat != nil {
		lg.chat = append(lg.chat, *w.Chat)
	}
	e.cacheState(ctx, next)

	if next.IsGameOver {
		e.log.Info().Str("game_id", gameID).Int("turns", next.TurnNumber).
			Interface("winners", next.Winners).Msg("game completed")
		if e.cache != nil {
			if err := e.cache.Invalidate(ctx, gameID); err != nil {
				e.log.Warn().Err(err).Str("game_id", gameID).Msg("cache invalidate failed")
			}
		}
	}

	u := e.buildUpdateLocked(lg, actorID)
	u.Success = true
	return u, nil
}

// buildWrite assembles the single-commit bundle for a valid action.
func (e *GameEngine) buildWrite(gameID, actionID string, next *secretagi.GameState, events []secretagi.Event, elapsed int64, actorID string, act secretagi.Action) (*repository.ActionWrite, error) {
	blob, checksum, err := EncodeState(next)
	if err != nil {
		return nil, err
	}

	w := &repository.ActionWrite{
		GameID:       gameID,
		ActionID:     actionID,
		TurnNumber:   next.TurnNumber,
		IsValid:      true,
		ProcessingMs: elapsed,
		Snapshot: &model.StateSnapshot{
			ID:         model.NewID(),
			GameID:     gameID,
			TurnNumber: next.TurnNumber,
			StateBlob:  blob,
			Checksum:   checksum,
		},
		CurrentTurn: next.TurnNumber,
		Status:      model.GameStatusActive,
		Events:      e.toEventRecords(gameID, events),
	}

	for _, ev := range events {
		switch p := ev.Payload.(type) {
		case secretagi.StateChangedPayload:
			if p.Change == secretagi.ChangePlayerEliminated {
				w.AliveUpdates = append(w.AliveUpdates, repository.AliveUpdate{SeatID: p.PlayerID, Alive: false})
			}
		case secretagi.GameEndedPayload:
			outcome, err := json.Marshal(p)
			if err != nil {
				return nil, fmt.Errorf("marshal outcome: %w", err)
			}
			w.Status = model.GameStatusCompleted
			w.FinalOutcome = outcome
		}
	}

	if act.Kind == secretagi.ActionSendChatMessage {
		w.Chat = &model.ChatMessage{
			ID:         model.NewID(),
			GameID:     gameID,
			TurnNumber: next.TurnNumber,
			SpeakerID:  actorID,
			Message:    act.Message,
			Phase:      string(next.CurrentPhase),
		}
	}
	return w, nil
}

func (e *GameEngine) toEventRecords(gameID string, events []secretagi.Event) []model.EventRecord {
	records := make([]model.EventRecord, 0, len(events))
	for _, ev := range events {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			e.log.Error().Err(err).Str("event_id", ev.ID).Msg("marshal event payload")
			continue
		}
		records = append(records, model.EventRecord{
			ID:         ev.ID,
			GameID:     gameID,
			TurnNumber: ev.TurnNumber,
			Type:       string(ev.Type),
			ActorID:    ev.ActorID,
			Payload:    payload,
		})
	}
	return records
}

// buildUpdateLocked advances the actor's cursors and assembles their
// view of the current state. Callers hold lg.mu.
func (e *GameEngine) buildUpdateLocked(lg *liveGame, actorID string) *Update {
	gs := lg.state

	var visible []secretagi.Event
	for i := lg.eventCursors[actorID]; i < len(gs.Events); i++ {
		ev := gs.Events[i]
		if ev.VisibleTo(actorID) {
			visible = append(visible, ev)
		}
	}
	lg.eventCursors[actorID] = len(gs.Events)

	var chat []model.ChatMessage
	if n := lg.chatCursors[actorID]; n < len(lg.chat) {
		chat = append(chat, lg.chat[n:]...)
	}
	lg.chatCursors[actorID] = len(lg.chat)

	return &Update{
		Events:       visible,
		Chat:         chat,
		State:        secretagi.FilterState(gs, actorID),
		ValidActions: secretagi.ValidActions(gs, actorID),
	}
}

// GetUpdate returns the actor's current view without submitting an
// action, draining their event and chat cursors.
func (e *GameEngine) GetUpdate(ctx context.Context, gameID, actorID string) (*Update, error) {
	lg, err := e.getGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	lg.mu.Lock()
	defer lg.mu.Unlock()
	u := e.buildUpdateLocked(lg, actorID)
	u.Success = true
	return u, nil
}

// AwaitingActionFrom returns the players the game is blocked on.
func (e *GameEngine) AwaitingActionFrom(ctx context.Context, gameID string) ([]string, error) {
	lg, err := e.getGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	lg.mu.Lock()
	defer lg.mu.Unlock()
	return secretagi.AwaitingActionFrom(lg.state), nil
}

// getGame returns the loaded game, loading it from the store on first
// touch. The store load happens outside e.mu so a slow load does not
// stall other games; a racing load keeps whichever entry landed first.
func (e *GameEngine) getGame(ctx context.Context, gameID string) (*liveGame, error) {
	e.mu.Lock()
	if lg, ok := e.games[gameID]; ok {
		e.mu.Unlock()
		return lg, nil
	}
	e.mu.Unlock()

	gs, err := e.loadState(ctx, gameID)
	if err != nil {
		return nil, err
	}
	lg := newLiveGame(gs)
	chat, err := e.store.Chat.ListByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("load chat: %w", err)
	}
	lg.chat = chat

	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, ok := e.games[gameID]; ok {
		return existing, nil
	}
	e.games[gameID] = lg
	return lg, nil
}

// loadState restores the latest state, preferring the cache and falling
// back to the newest snapshot.
func (e *GameEngine) loadState(ctx context.Context, gameID string) (*secretagi.GameState, error) {
	game, err := e.store.Games.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrGameNotFound
	}

	if e.cache != nil {
		blob, err := e.cache.GetState(ctx, gameID)
		if err != nil {
			e.log.Warn().Err(err).Str("game_id", gameID).Msg("cache read failed")
		} else if blob != nil {
			if gs, err := DecodeState(blob, ""); err == nil {
				return gs, nil
			}
			e.log.Warn().Str("game_id", gameID).Msg("cached state undecodable, falling back to store")
		}
	}

	snap, err := e.store.States.FindLatest(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, ErrSnapshotNotFound
	}
	return DecodeState(snap.StateBlob, snap.Checksum)
}

// LoadGame returns the latest persisted state for a game.
func (e *GameEngine) LoadGame(ctx context.Context, gameID string) (*secretagi.GameState, error) {
	lg, err := e.getGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	lg.mu.Lock()
	defer lg.mu.Unlock()
	return lg.state.Clone(), nil
}

// LoadGameAt restores the snapshot at a specific turn and makes it the
// current state, with fresh delivery cursors. Play continuing from
// here replays over the stored turns one commit at a time.
func (e *GameEngine) LoadGameAt(ctx context.Context, gameID string, turn int) (*secretagi.GameState, error) {
	snap, err := e.store.States.FindByTurn(ctx, gameID, turn)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, ErrSnapshotNotFound
	}
	gs, err := DecodeState(snap.StateBlob, snap.Checksum)
	if err != nil {
		return nil, err
	}
	if err := e.rebind(ctx, gameID, gs); err != nil {
		return nil, err
	}
	e.cacheState(ctx, gs)
	return gs.Clone(), nil
}

// rebind replaces the live game with the given state under fresh
// cursors, reloading the chat log from the store.
func (e *GameEngine) rebind(ctx context.Context, gameID string, gs *secretagi.GameState) error {
	lg := newLiveGame(gs)
	chat, err := e.store.Chat.ListByGame(ctx, gameID)
	if err != nil {
		return fmt.Errorf("load chat: %w", err)
	}
	lg.chat = chat

	e.mu.Lock()
	e.games[gameID] = lg
	e.mu.Unlock()
	return nil
}

// Checkpoint re-persists the current state and stamps the game row so
// operators can see when a consistent point was last forced. Returns
// the snapshot id.
func (e *GameEngine) Checkpoint(ctx context.Context, gameID string) (string, error) {
	lg, err := e.getGame(ctx, gameID)
	if err != nil {
		return "", err
	}
	lg.mu.Lock()
	defer lg.mu.Unlock()
	snapID, err := e.saveSnapshot(ctx, lg.state)
	if err != nil {
		return "", err
	}
	patch, err := json.Marshal(map[string]int{"last_checkpoint_turn": lg.state.TurnNumber})
	if err != nil {
		return "", err
	}
	return snapID, e.store.Games.MergeMetadata(ctx, gameID, patch)
}

// RecordAgentMetrics attaches orchestrator-side counters to a turn.
func (e *GameEngine) RecordAgentMetrics(ctx context.Context, m *model.AgentMetric) error {
	if m.ID == "" {
		m.ID = model.NewID()
	}
	return e.store.Metrics.Record(ctx, m)
}

// Release drops a game from memory; the next touch reloads it from the
// store. Used by tests and recovery.
func (e *GameEngine) Release(gameID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.games, gameID)
}

func (e *GameEngine) saveSnapshot(ctx context.Context, gs *secretagi.GameState) (string, error) {
	blob, checksum, err := EncodeState(gs)
	if err != nil {
		return "", err
	}
	snap := &model.StateSnapshot{
		ID:         model.NewID(),
		GameID:     gs.GameID,
		TurnNumber: gs.TurnNumber,
		StateBlob:  blob,
		Checksum:   checksum,
	}
	return snap.ID, e.store.States.Save(ctx, snap)
}

// cacheState is best-effort: cache errors are logged, never surfaced.
func (e *GameEngine) cacheState(ctx context.Context, gs *secretagi.GameState) {
	if e.cache == nil {
		return
	}
	blob, _, err := EncodeState(gs)
	if err != nil {
		e.log.Error().Err(err).Str("game_id", gs.GameID).Msg("encode state for cache")
		return
	}
	if err := e.cache.SetState(ctx, gs.GameID, gs.TurnNumber, blob); err != nil {
		e.log.Warn().Err(err).Str("game_id", gs.GameID).Msg("cache write failed")
	}
}
