//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/alignmentlab/secret-agi/internal/model"
	"github.com/alignmentlab/secret-agi/internal/repository"
	"github.com/alignmentlab/secret-agi/internal/testutil"
)

var testDB *sql.DB

func setup(t *testing.T) {
	t.Helper()
	if testDB == nil {
		testDB = testutil.SetupDB(t)
	}
	testutil.CleanupDB(t, testDB)
}

// createTestGame inserts an active game row and returns its id.
func createTestGame(t *testing.T) string {
	t.Helper()
	repo := NewGameRepo(testDB)
	g := &model.Game{
		ID:     model.NewID(),
		Status: model.GameStatusActive,
		Config: json.RawMessage(`{"player_count":5,"seed":42}`),
	}
	if err := repo.Create(context.Background(), g); err != nil {
		t.Fatalf("create test game: %v", err)
	}
	return g.ID
}

// --- GameRepo ---

func TestGameCreateAndFind(t *testing.T) {
	setup(t)
	repo := NewGameRepo(testDB)
	gameID := createTestGame(t)

	g, err := repo.FindByID(context.Background(), gameID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if g == nil {
		t.Fatal("game not found")
	}
	if g.Status != model.GameStatusActive || g.CurrentTurn != 0 {
		t.Fatalf("unexpected game row: %+v", g)
	}

	missing, err := repo.FindByID(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("FindByID missing: %v", err)
	}
	if missing != nil {
		t.Fatal("expected nil for unknown id")
	}
}

func TestGameUpdateTurnAndOutcome(t *testing.T) {
	setup(t)
	repo := NewGameRepo(testDB)
	gameID := createTestGame(t)
	ctx := context.Background()

	if err := repo.UpdateTurn(ctx, gameID, 7, model.GameStatusActive); err != nil {
		t.Fatalf("UpdateTurn: %v", err)
	}
	outcome := json.RawMessage(`{"winners":["safety"],"reason":"agi_eliminated"}`)
	if err := repo.SetOutcome(ctx, gameID, model.GameStatusCompleted, outcome); err != nil {
		t.Fatalf("SetOutcome: %v", err)
	}

	g, err := repo.FindByID(ctx, gameID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if g.CurrentTurn != 7 || g.Status != model.GameStatusCompleted {
		t.Fatalf("update lost: %+v", g)
	}
	if g.FinalOutcome == nil {
		t.Fatal("final outcome not stored")
	}

	completed, err := repo.ListByStatus(ctx, model.GameStatusCompleted)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != gameID {
		t.Fatalf("expected one completed game, got %v", completed)
	}
}

func TestGameMergeMetadata(t *testing.T) {
	setup(t)
	repo := NewGameRepo(testDB)
	gameID := createTestGame(t)
	ctx := context.Background()

	if err := repo.MergeMetadata(ctx, gameID, json.RawMessage(`{"a":1}`)); err != nil {
		t.Fatalf("first merge: %v", err)
	}
	if err := repo.MergeMetadata(ctx, gameID, json.RawMessage(`{"b":2}`)); err != nil {
		t.Fatalf("second merge: %v", err)
	}

	g, _ := repo.FindByID(ctx, gameID)
	var meta map[string]int
	if err := json.Unmarshal(g.Metadata, &meta); err != nil {
		t.Fatalf("unmarshal metadata: %v", err)
	}
	if meta["a"] != 1 || meta["b"] != 2 {
		t.Fatalf("merge dropped keys: %v", meta)
	}
}

// --- StateRepo ---

func TestStateSaveUpsertsAndFinds(t *testing.T) {
	setup(t)
	repo := NewStateRepo(testDB)
	gameID := createTestGame(t)
	ctx := context.Background()

	for turn := 0; turn <= 3; turn++ {
		snap := &model.StateSnapshot{
			ID:         model.NewID(),
			GameID:     gameID,
			TurnNumber: turn,
			StateBlob:  json.RawMessage(`{"turn_number":` + string(rune('0'+turn)) + `}`),
			Checksum:   "sum",
		}
		if err := repo.Save(ctx, snap); err != nil {
			t.Fatalf("Save turn %d: %v", turn, err)
		}
	}

	// Re-saving the same turn replaces, not duplicates.
	if err := repo.Save(ctx, &model.StateSnapshot{
		ID: model.NewID(), GameID: gameID, TurnNumber: 3,
		StateBlob: json.RawMessage(`{"turn_number":3,"v":2}`), Checksum: "sum2",
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	latest, err := repo.FindLatest(ctx, gameID)
	if err != nil {
		t.Fatalf("FindLatest: %v", err)
	}
	if latest.TurnNumber != 3 || latest.Checksum != "sum2" {
		t.Fatalf("latest wrong: %+v", latest)
	}

	at2, err := repo.FindLatestAtOrBelow(ctx, gameID, 2)
	if err != nil {
		t.Fatalf("FindLatestAtOrBelow: %v", err)
	}
	if at2.TurnNumber != 2 {
		t.Fatalf("expected turn 2, got %d", at2.TurnNumber)
	}

	missing, err := repo.FindByTurn(ctx, gameID, 99)
	if err != nil {
		t.Fatalf("FindByTurn: %v", err)
	}
	if missing != nil {
		t.Fatal("expected nil for unknown turn")
	}
}

// --- ActionRepo ---

func TestActionPendingLifecycle(t *testing.T) {
	setup(t)
	repo := NewActionRepo(testDB)
	gameID := createTestGame(t)
	ctx := context.Background()

	a := &model.ActionRecord{
		ID:         model.NewID(),
		GameID:     gameID,
		TurnNumber: 1,
		ActorID:    "p1",
		Kind:       "nominate",
		Params:     json.RawMessage(`{"target_id":"p2"}`),
	}
	if err := repo.InsertPending(ctx, a); err != nil {
		t.Fatalf("InsertPending: %v", err)
	}

	pending, err := repo.ListPending(ctx, gameID)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 1 || pending[0].IsValid != nil {
		t.Fatalf("expected one pending action, got %+v", pending)
	}

	interrupted, err := repo.ListInterruptedGames(ctx)
	if err != nil {
		t.Fatalf("ListInterruptedGames: %v", err)
	}
	if len(interrupted) != 1 || interrupted[0] != gameID {
		t.Fatalf("expected %s interrupted, got %v", gameID, interrupted)
	}

	n, err := repo.FailPending(ctx, gameID, "interrupted: failed by recovery")
	if err != nil {
		t.Fatalf("FailPending: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 failed, got %d", n)
	}

	latest, err := repo.Latest(ctx, gameID)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.IsValid == nil || *latest.IsValid {
		t.Fatal("failed action should be invalid")
	}
	if latest.Error != "interrupted: failed by recovery" {
		t.Fatalf("marker lost: %q", latest.Error)
	}

	count, err := repo.CountValid(ctx, gameID)
	if err != nil {
		t.Fatalf("CountValid: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 valid actions, got %d", count)
	}
}

// --- Coordinator ---

func TestCoordinatorCommitsAtomically(t *testing.T) {
	setup(t)
	gameID := createTestGame(t)
	ctx := context.Background()

	players := NewPlayerRepo(testDB)
	if err := players.CreateAll(ctx, []model.PlayerRow{
		{ID: model.NewID(), GameID: gameID, SeatID: "p1", AgentType: model.AgentTypeExternal,
			Role: "safety", Allegiance: "safety", Alive: true},
		{ID: model.NewID(), GameID: gameID, SeatID: "p2", AgentType: model.AgentTypeExternal,
			Role: "agi", Allegiance: "acceleration", Alive: true},
	}); err != nil {
		t.Fatalf("CreateAll: %v", err)
	}

	actions := NewActionRepo(testDB)
	actionID := model.NewID()
	if err := actions.InsertPending(ctx, &model.ActionRecord{
		ID: actionID, GameID: gameID, TurnNumber: 1, ActorID: "p1", Kind: "use_power",
	}); err != nil {
		t.Fatalf("InsertPending: %v", err)
	}

	coord := NewCoordinator(testDB)
	err := coord.CommitAction(ctx, &repository.ActionWrite{
		GameID:       gameID,
		ActionID:     actionID,
		TurnNumber:   1,
		IsValid:      true,
		ProcessingMs: 4,
		Snapshot: &model.StateSnapshot{
			ID: model.NewID(), GameID: gameID, TurnNumber: 1,
			StateBlob: json.RawMessage(`{"turn_number":1}`), Checksum: "c1",
		},
		CurrentTurn: 1,
		Status:      model.GameStatusActive,
		AliveUpdates: []repository.AliveUpdate{
			{SeatID: "p2", Alive: false},
		},
		Events: []model.EventRecord{
			{ID: model.NewID(), GameID: gameID, TurnNumber: 1, Type: "power_triggered",
				ActorID: "p1", Payload: json.RawMessage(`{"threshold":11,"effect":"eliminate","target_id":"p2"}`)},
		},
	})
	if err != nil {
		t.Fatalf("CommitAction: %v", err)
	}

	rec, _ := actions.Latest(ctx, gameID)
	if rec.IsValid == nil || !*rec.IsValid || rec.ProcessingMs == nil {
		t.Fatalf("action completion not written: %+v", rec)
	}
	snap, _ := NewStateRepo(testDB).FindByTurn(ctx, gameID, 1)
	if snap == nil {
		t.Fatal("snapshot not written")
	}
	rows, _ := players.ListByGame(ctx, gameID)
	for _, row := range rows {
		if row.SeatID == "p2" && row.Alive {
			t.Fatal("alive update not written")
		}
	}
	events, _ := NewEventRepo(testDB).ListByGame(ctx, gameID)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	g, _ := NewGameRepo(testDB).FindByID(ctx, gameID)
	if g.CurrentTurn != 1 {
		t.Fatalf("game row not advanced: %+v", g)
	}
}

// --- Chat, Metrics, Analytics ---

func TestChatInsertAndList(t *testing.T) {
	setup(t)
	repo := NewChatRepo(testDB)
	gameID := createTestGame(t)
	ctx := context.Background()

	if err := repo.Insert(ctx, &model.ChatMessage{
		ID: model.NewID(), GameID: gameID, TurnNumber: 2,
		SpeakerID: "p3", Message: "suspicious", Phase: "team_proposal",
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	msgs, err := repo.ListByGame(ctx, gameID)
	if err != nil {
		t.Fatalf("ListByGame: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Message != "suspicious" {
		t.Fatalf("chat row wrong: %+v", msgs)
	}
}

func TestMetricsAndAnalytics(t *testing.T) {
	setup(t)
	gameID := createTestGame(t)
	ctx := context.Background()

	tokens := 900
	if err := NewMetricsRepo(testDB).Record(ctx, &model.AgentMetric{
		ID: model.NewID(), GameID: gameID, ActorID: "p1", TurnNumber: 1, Tokens: &tokens,
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	actions := NewActionRepo(testDB)
	coord := NewCoordinator(testDB)
	for i, valid := range []bool{true, true, false} {
		id := model.NewID()
		if err := actions.InsertPending(ctx, &model.ActionRecord{
			ID: id, GameID: gameID, TurnNumber: i + 1, ActorID: "p1", Kind: "observe",
		}); err != nil {
			t.Fatalf("InsertPending: %v", err)
		}
		if err := coord.CommitAction(ctx, &repository.ActionWrite{
			GameID: gameID, ActionID: id, TurnNumber: i + 1,
			IsValid: valid, ProcessingMs: 2,
			CurrentTurn: i + 1, Status: model.GameStatusActive,
		}); err != nil {
			t.Fatalf("CommitAction: %v", err)
		}
	}

	perf, err := NewAnalyticsRepo(testDB).AgentPerformance(ctx, gameID)
	if err != nil {
		t.Fatalf("AgentPerformance: %v", err)
	}
	if len(perf) != 1 {
		t.Fatalf("expected one actor, got %d", len(perf))
	}
	if perf[0].TotalActions != 3 || perf[0].ValidActions != 2 || perf[0].InvalidActions != 1 {
		t.Fatalf("aggregation wrong: %+v", perf[0])
	}

	timeline, err := NewAnalyticsRepo(testDB).GameTimeline(ctx, gameID)
	if err != nil {
		t.Fatalf("GameTimeline: %v", err)
	}
	if len(timeline) != 3 {
		t.Fatalf("expected 3 timeline rows, got %d", len(timeline))
	}
}
