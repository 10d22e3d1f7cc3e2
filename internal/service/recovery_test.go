package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/alignmentlab/secret-agi/internal/model"
	"github.com/alignmentlab/secret-agi/internal/repository"
	"github.com/alignmentlab/secret-agi/internal/repository/memory"
	"github.com/alignmentlab/secret-agi/pkg/secretagi"
)

// playTurns drives a fresh game a few valid turns forward and returns
// the engine, store and current state.
func playTurns(t *testing.T, turns int) (*GameEngine, *repository.Store, *secretagi.GameState) {
	t.Helper()
	store := memory.New()
	engine := NewGameEngine(store, nil, zerolog.Nop())
	ctx := context.Background()

	gs, err := engine.CreateGame(ctx, testConfig(5))
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	policy := NewRandomPolicy(7)
	for i := 0; i < turns; i++ {
		actorID := secretagi.AwaitingActionFrom(gs)[0]
		u, err := engine.PerformAction(ctx, gs.GameID, actorID, policy.ChooseAction(gs, actorID))
		if err != nil {
			t.Fatalf("PerformAction: %v", err)
		}
		if !u.Success {
			t.Fatalf("turn %d rejected: %v", i, u.Error)
		}
		gs, err = engine.LoadGame(ctx, gs.GameID)
		if err != nil {
			t.Fatalf("LoadGame: %v", err)
		}
	}
	return engine, store, gs
}

func TestRecoveryOfInterruptedAction(t *testing.T) {
	engine, store, gs := playTurns(t, 3)
	ctx := context.Background()

	// Simulate a crash mid-action: the pending record went down, the
	// process died before the commit.
	if err := store.Actions.InsertPending(ctx, &model.ActionRecord{
		ID:         model.NewID(),
		GameID:     gs.GameID,
		TurnNumber: gs.TurnNumber + 1,
		ActorID:    gs.Players[0].ID,
		Kind:       string(secretagi.ActionObserve),
	}); err != nil {
		t.Fatalf("InsertPending: %v", err)
	}

	rec := NewRecoveryService(store, nil, zerolog.Nop())

	interrupted, err := rec.FindInterrupted(ctx)
	if err != nil {
		t.Fatalf("FindInterrupted: %v", err)
	}
	if len(interrupted) != 1 || interrupted[0] != gs.GameID {
		t.Fatalf("expected %s interrupted, got %v", gs.GameID, interrupted)
	}

	report, err := rec.Analyze(ctx, gs.GameID)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.Classification != InterruptionIncompleteAction {
		t.Errorf("expected incomplete_action, got %s", report.Classification)
	}
	if report.LastConsistentTurn != gs.TurnNumber {
		t.Errorf("last consistent turn %d, want %d", report.LastConsistentTurn, gs.TurnNumber)
	}
	if len(report.PendingActionIDs) != 1 {
		t.Errorf("expected 1 pending action, got %d", len(report.PendingActionIDs))
	}

	restored, err := engine.Recover(ctx, gs.GameID)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if restored.TurnNumber != gs.TurnNumber {
		t.Errorf("restored turn %d, want %d", restored.TurnNumber, gs.TurnNumber)
	}

	// The pending action was failed with the marker.
	pending, err := store.Actions.ListPending(ctx, gs.GameID)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending actions survived recovery: %d", len(pending))
	}
	latest, _ := store.Actions.Latest(ctx, gs.GameID)
	if latest.Error != RecoveryMarker {
		t.Errorf("expected recovery marker, got %q", latest.Error)
	}

	if _, err := rec.FindInterrupted(ctx); err != nil {
		t.Fatalf("FindInterrupted: %v", err)
	}

	// Recovery is idempotent.
	again, err := engine.Recover(ctx, gs.GameID)
	if err != nil {
		t.Fatalf("second Recover: %v", err)
	}
	if again.TurnNumber != restored.TurnNumber {
		t.Errorf("second recovery moved the state: %d vs %d", again.TurnNumber, restored.TurnNumber)
	}

	// Play continues from the restored state.
	actorID := secretagi.AwaitingActionFrom(restored)[0]
	policy := NewRandomPolicy(11)
	u, err := engine.PerformAction(ctx, gs.GameID, actorID, policy.ChooseAction(restored, actorID))
	if err != nil {
		t.Fatalf("PerformAction after recovery: %v", err)
	}
	if !u.Success {
		t.Fatalf("post-recovery action rejected: %v", u.Error)
	}
}

func TestAnalyzeTransactionFailure(t *testing.T) {
	_, store, gs := playTurns(t, 2)
	ctx := context.Background()

	// A torn commit: the action was marked valid but its snapshot never
	// landed.
	actionID := model.NewID()
	if err := store.Actions.InsertPending(ctx, &model.ActionRecord{
		ID:      actionID,
		GameID:  gs.GameID,
		ActorID: gs.Players[0].ID,
		Kind:    string(secretagi.ActionObserve),
	}); err != nil {
		t.Fatalf("InsertPending: %v", err)
	}
	if err := store.Tx.CommitAction(ctx, &repository.ActionWrite{
		GameID:     gs.GameID,
		ActionID:   actionID,
		TurnNumber: gs.TurnNumber + 1,
		IsValid:    true,
	}); err != nil {
		t.Fatalf("CommitAction: %v", err)
	}

	rec := NewRecoveryService(store, nil, zerolog.Nop())
	report, err := rec.Analyze(ctx, gs.GameID)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.Classification != InterruptionTransactionFailure {
		t.Errorf("expected transaction_failure, got %s", report.Classification)
	}

	// Recover falls back to the newest snapshot at or below the valid
	// count; the missing turn cannot be restored.
	restored, err := rec.Recover(ctx, gs.GameID)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if restored.TurnNumber != gs.TurnNumber {
		t.Errorf("restored turn %d, want fallback %d", restored.TurnNumber, gs.TurnNumber)
	}
}

func TestAnalyzeAgentTimeout(t *testing.T) {
	_, store, gs := playTurns(t, 2)
	ctx := context.Background()

	// No pending actions, snapshots consistent: the game is just idle.
	rec := NewRecoveryService(store, nil, zerolog.Nop())
	report, err := rec.Analyze(ctx, gs.GameID)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.Classification != InterruptionAgentTimeout {
		t.Errorf("expected agent_timeout, got %s", report.Classification)
	}
}

func TestRecoverUnknownGame(t *testing.T) {
	store := memory.New()
	rec := NewRecoveryService(store, nil, zerolog.Nop())
	if _, err := rec.Recover(context.Background(), "missing"); err != ErrGameNotFound {
		t.Errorf("expected ErrGameNotFound, got %v", err)
	}
}
