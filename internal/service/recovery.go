package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/alignmentlab/secret-agi/internal/repository"
	"github.com/alignmentlab/secret-agi/pkg/secretagi"
)

// RecoveryMarker is the error written to pending actions that recovery
// fails.
const RecoveryMarker = "interrupted: failed by recovery"

// Interruption classifications.
const (
	InterruptionIncompleteAction   = "incomplete_action"
	InterruptionTransactionFailure = "transaction_failure"
	InterruptionAgentTimeout       = "agent_timeout"
)

// InterruptionReport is the diagnosis of one possibly-interrupted game.
type InterruptionReport struct {
	GameID             string   `json:"game_id"`
	Classification     string   `json:"classification"`
	LastConsistentTurn int      `json:"last_consistent_turn"`
	PendingActionIDs   []string `json:"pending_action_ids,omitempty"`
}

// RecoveryService reconciles games whose last run died mid-action. The
// persisted evidence is a pending action record (is_valid NULL) on an
// active game.
type RecoveryService struct {
	store *repository.Store
	cache repository.StateCache
	log   zerolog.Logger
}

// NewRecoveryService creates a RecoveryService. cache may be nil.
func NewRecoveryService(store *repository.Store, cache repository.StateCache, log zerolog.Logger) *RecoveryService {
	return &RecoveryService{
		store: store,
		cache: cache,
		log:   log.With().Str("component", "recovery").Logger(),
	}
}

// FindInterrupted lists active games with at least one pending action.
func (s *RecoveryService) FindInterrupted(ctx context.Context) ([]string, error) {
	return s.store.Actions.ListInterruptedGames(ctx)
}

// Analyze classifies why a game looks interrupted: a still-pending
// action means the process died mid-action; a snapshot turn that does
// not match the count of valid actions means a commit was torn; an
// otherwise consistent game was simply abandoned by its agents.
func (s *RecoveryService) Analyze(ctx context.Context, gameID string) (*InterruptionReport, error) {
	game, err := s.store.Games.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrGameNotFound
	}

	pending, err := s.store.Actions.ListPending(ctx, gameID)
	if err != nil {
		return nil, err
	}
	validCount, err := s.store.Actions.CountValid(ctx, gameID)
	if err != nil {
		return nil, err
	}

	report := &InterruptionReport{
		GameID:             gameID,
		LastConsistentTurn: validCount,
	}
	for _, a := range pending {
		report.PendingActionIDs = append(report.PendingActionIDs, a.ID)
	}

	latest, err := s.store.States.FindLatest(ctx, gameID)
	if err != nil {
		return nil, err
	}

	switch {
	case len(pending) > 0:
		report.Classification = InterruptionIncompleteAction
	case latest == nil || latest.TurnNumber != validCount:
		report.Classification = InterruptionTransactionFailure
	default:
		report.Classification = InterruptionAgentTimeout
	}
	return report, nil
}

// Recover restores a game to its last consistent state: pending actions
// are failed with a marker, the snapshot at turn = count(valid actions)
// is reloaded, and the cache entry is dropped so it cannot serve a
// state ahead of the store. Running it on a healthy game is a no-op
// restore of the current state.
func (s *RecoveryService) Recover(ctx context.Context, gameID string) (*secretagi.GameState, error) {
	game, err := s.store.Games.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrGameNotFound
	}

	failed, err := s.store.Actions.FailPending(ctx, gameID, RecoveryMarker)
	if err != nil {
		return nil, err
	}

	validCount, err := s.store.Actions.CountValid(ctx, gameID)
	if err != nil {
		return nil, err
	}

	snap, err := s.store.States.FindByTurn(ctx, gameID, validCount)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		// A torn commit can leave the exact turn missing; the nearest
		// earlier snapshot is the last provably consistent point.
		snap, err = s.store.States.FindLatestAtOrBelow(ctx, gameID, validCount)
		if err != nil {
			return nil, err
		}
		if snap == nil {
			return nil, ErrNoConsistentState
		}
		s.log.Warn().Str("game_id", gameID).Int("wanted_turn", validCount).
			Int("restored_turn", snap.TurnNumber).Msg("exact snapshot missing, restored earlier turn")
	}

	gs, err := DecodeState(snap.StateBlob, snap.Checksum)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, gameID); err != nil {
			s.log.Warn().Err(err).Str("game_id", gameID).Msg("cache invalidate failed")
		}
	}

	if err := s.store.Games.UpdateTurn(ctx, gameID, snap.TurnNumber, game.Status); err != nil {
		return nil, err
	}

	s.log.Info().Str("game_id", gameID).Int("failed_pending", failed).
		Int("restored_turn", snap.TurnNumber).Msg("game recovered")
	return gs, nil
}

// Recover reconciles an interrupted game and rebinds the engine's
// in-memory state to the restored snapshot.
func (e *GameEngine) Recover(ctx context.Context, gameID string) (*secretagi.GameState, error) {
	rec := NewRecoveryService(e.store, e.cache, e.log)
	gs, err := rec.Recover(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if err := e.rebind(ctx, gameID, gs); err != nil {
		return nil, err
	}
	return gs.Clone(), nil
}
