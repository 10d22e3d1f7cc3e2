package secretagi

import (
	"reflect"
	"testing"
)

func TestEvaluateWin(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(gs *GameState)
		deckExhausted bool
		wantWinners   []Role
		wantConds     []WinCondition
	}{
		{
			name:   "no condition",
			mutate: func(gs *GameState) { gs.Capability = 5; gs.Safety = 3 },
		},
		{
			name:        "safety threshold",
			mutate:      func(gs *GameState) { gs.Capability = 9; gs.Safety = 15 },
			wantWinners: []Role{RoleSafety},
			wantConds:   []WinCondition{CondSafetyThreshold},
		},
		{
			name:        "safety at capability 10",
			mutate:      func(gs *GameState) { gs.Capability = 10; gs.Safety = 11 },
			wantWinners: []Role{RoleSafety},
			wantConds:   []WinCondition{CondSafetyAtCap10},
		},
		{
			name: "agi eliminated",
			mutate: func(gs *GameState) {
				gs.AGIPlayer().Alive = false
			},
			wantWinners: []Role{RoleSafety},
			wantConds:   []WinCondition{CondAGIEliminated},
		},
		{
			name:        "capability 15 with low safety",
			mutate:      func(gs *GameState) { gs.Capability = 15; gs.Safety = 9 },
			wantWinners: []Role{RoleAccelerationist, RoleAGI},
			wantConds:   []WinCondition{CondCapabilityThreshold, CondCapabilityRunaway},
		},
		{
			name:        "capability runaway",
			mutate:      func(gs *GameState) { gs.Capability = 8; gs.Safety = 2 },
			wantWinners: []Role{RoleAccelerationist, RoleAGI},
			wantConds:   []WinCondition{CondCapabilityRunaway},
		},
		{
			name: "agi engineer at capability 8",
			mutate: func(gs *GameState) {
				gs.Capability = 8
				gs.Safety = 5
				gs.CurrentPhase = PhaseResearch
				gs.NominatedEngineerID = gs.AGIPlayer().ID
			},
			wantWinners: []Role{RoleAccelerationist, RoleAGI},
			wantConds:   []WinCondition{CondAGIEngineer},
		},
		{
			name: "agi nominee below capability 8 is not a win",
			mutate: func(gs *GameState) {
				gs.Capability = 7
				gs.Safety = 5
				gs.CurrentPhase = PhaseResearch
				gs.NominatedEngineerID = gs.AGIPlayer().ID
			},
		},
		{
			name:          "deck exhausted with safety ahead",
			mutate:        func(gs *GameState) { gs.Capability = 4; gs.Safety = 4 },
			deckExhausted: true,
			wantWinners:   []Role{RoleSafety},
			wantConds:     []WinCondition{CondDeckExhausted},
		},
		{
			name:          "deck exhausted with capability ahead",
			mutate:        func(gs *GameState) { gs.Capability = 5; gs.Safety = 4 },
			deckExhausted: true,
			wantWinners:   []Role{RoleAccelerationist, RoleAGI},
			wantConds:     []WinCondition{CondDeckExhausted},
		},
		{
			name: "simultaneous conditions favor evil",
			mutate: func(gs *GameState) {
				gs.Capability = 21
				gs.Safety = 15
			},
			wantWinners: []Role{RoleAccelerationist, RoleAGI},
			wantConds:   []WinCondition{CondSafetyThreshold, CondCapabilityRunaway},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := testState(5)
			tt.mutate(gs)
			win := EvaluateWin(gs, tt.deckExhausted)
			if tt.wantWinners == nil {
				if win != nil {
					t.Fatalf("EvaluateWin = %+v, want nil", win)
				}
				return
			}
			if win == nil {
				t.Fatal("EvaluateWin = nil, want a result")
			}
			if !reflect.DeepEqual(win.Winners, tt.wantWinners) {
				t.Errorf("winners = %v, want %v", win.Winners, tt.wantWinners)
			}
			if !reflect.DeepEqual(win.Conditions, tt.wantConds) {
				t.Errorf("conditions = %v, want %v", win.Conditions, tt.wantConds)
			}
		})
	}
}

func TestWinResultReason(t *testing.T) {
	w := &WinResult{Conditions: []WinCondition{CondSafetyThreshold, CondCapabilityRunaway}}
	if got := w.Reason(); got != "safety_threshold+capability_runaway" {
		t.Errorf("Reason() = %q", got)
	}
}

func TestPowersTriggered(t *testing.T) {
	tests := []struct {
		oldCap, newCap, players int
		want                    []int
	}{
		{0, 2, 5, nil},
		{2, 3, 5, nil}, // 3 is gated to 9-10 player games
		{2, 3, 9, []int{3}},
		{5, 6, 5, []int{6}},
		{8, 11, 5, []int{9, 10}},
		{8, 11, 10, []int{9, 10, 11}},
		{9, 12, 5, []int{10, 12}},
		{10, 12, 9, []int{11, 12}},
		{6, 6, 5, nil}, // no increase, nothing fires
		{11, 12, 5, []int{12}},
	}
	for _, tt := range tests {
		got := PowersTriggered(tt.oldCap, tt.newCap, tt.players)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("PowersTriggered(%d, %d, %dp) = %v, want %v", tt.oldCap, tt.newCap, tt.players, got, tt.want)
		}
	}
}

func TestPowerRequiresTarget(t *testing.T) {
	for _, threshold := range []int{3, 6, 9, 11} {
		if !PowerRequiresTarget(threshold) {
			t.Errorf("power %d should require a target", threshold)
		}
	}
	for _, threshold := range []int{10, 12} {
		if PowerRequiresTarget(threshold) {
			t.Errorf("power %d should not require a target", threshold)
		}
	}
}

func TestVoteTally(t *testing.T) {
	gs := testState(5)
	gs.Players[4].Alive = false

	votes := map[string]bool{"p1": true, "p2": true, "p3": false}
	if voteComplete(gs, votes) {
		t.Error("vote should be incomplete with one living voter missing")
	}
	votes["p4"] = false
	if !voteComplete(gs, votes) {
		t.Error("vote should be complete once every living player voted")
	}

	// The dead player's vote must not count even if present.
	votes["p5"] = true
	yes, total := tallyVotes(gs, votes)
	if yes != 2 || total != 4 {
		t.Errorf("tally = %d/%d, want 2/4", yes, total)
	}
	// 2 of 4 is a tie: not a strict majority.
	if yes > total/2 {
		t.Error("tie should not pass")
	}
}

func TestEligibleEngineers(t *testing.T) {
	gs := testState(5)
	gs.Players[1].WasLastEngineer = true
	gs.Players[2].Alive = false

	got := EligibleEngineers(gs)
	want := []string{"p1", "p4", "p5"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("EligibleEngineers = %v, want %v", got, want)
	}
}

func TestEmergencySafetyAvailable(t *testing.T) {
	tests := []struct {
		cap, safety int
		want        bool
	}{
		{4, 0, true},
		{5, 0, true},
		{3, 0, false},
		{6, 0, false},
		{9, 5, true},
		{9, 4, true},
		{9, 3, false},
	}
	for _, tt := range tests {
		gs := testState(5)
		gs.Capability = tt.cap
		gs.Safety = tt.safety
		if got := EmergencySafetyAvailable(gs); got != tt.want {
			t.Errorf("EmergencySafetyAvailable(cap=%d, safety=%d) = %v, want %v", tt.cap, tt.safety, got, tt.want)
		}
	}
}

func TestAdvanceDirector(t *testing.T) {
	gs := testState(5)
	gs.CurrentDirectorIndex = 0

	advanceDirector(gs)
	if gs.CurrentDirectorIndex != 1 {
		t.Errorf("director index = %d, want 1", gs.CurrentDirectorIndex)
	}

	// Rotation skips the dead.
	gs.Players[2].Alive = false
	advanceDirector(gs)
	if gs.CurrentDirectorIndex != 3 {
		t.Errorf("director index = %d, want 3 (skipping dead seat 2)", gs.CurrentDirectorIndex)
	}

	// A C=9 override wins over rotation and is consumed.
	gs.NextDirectorOverride = "p1"
	advanceDirector(gs)
	if gs.CurrentDirectorIndex != 0 {
		t.Errorf("director index = %d, want 0 via override", gs.CurrentDirectorIndex)
	}
	if gs.NextDirectorOverride != "" {
		t.Error("override should be consumed")
	}

	// An override pointing at a dead player falls back to rotation.
	gs.NextDirectorOverride = "p3"
	advanceDirector(gs)
	if gs.CurrentDirectorIndex != 1 {
		t.Errorf("director index = %d, want 1 (dead override dropped)", gs.CurrentDirectorIndex)
	}
}
