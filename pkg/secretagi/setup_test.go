package secretagi

import (
	"reflect"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid 5p", Config{PlayerCount: 5, PlayerIDs: []string{"p1", "p2", "p3", "p4", "p5"}}, false},
		{"too few", Config{PlayerCount: 4, PlayerIDs: []string{"p1", "p2", "p3", "p4"}}, true},
		{"too many", Config{PlayerCount: 11, PlayerIDs: make([]string, 11)}, true},
		{"count mismatch", Config{PlayerCount: 5, PlayerIDs: []string{"p1", "p2"}}, true},
		{"duplicate id", Config{PlayerCount: 5, PlayerIDs: []string{"p1", "p2", "p3", "p1", "p5"}}, true},
		{"empty id", Config{PlayerCount: 5, PlayerIDs: []string{"p1", "p2", "p3", "", "p5"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewGameRoleDistribution(t *testing.T) {
	tests := []struct {
		n, safety, accel int
	}{
		{5, 3, 1},
		{6, 4, 1},
		{7, 4, 2},
		{8, 5, 2},
		{9, 5, 3},
		{10, 6, 3},
	}
	for _, tt := range tests {
		cfg := Config{PlayerCount: tt.n, PlayerIDs: seatIDs(tt.n), Seed: 7}
		gs, err := NewGame("g", cfg)
		if err != nil {
			t.Fatalf("NewGame(%d): %v", tt.n, err)
		}
		counts := map[Role]int{}
		for _, p := range gs.Players {
			counts[p.Role]++
		}
		if counts[RoleSafety] != tt.safety || counts[RoleAccelerationist] != tt.accel || counts[RoleAGI] != 1 {
			t.Errorf("n=%d roles = %v, want %d safety, %d accel, 1 agi", tt.n, counts, tt.safety, tt.accel)
		}
	}
}

func TestNewGameDeckComposition(t *testing.T) {
	gs, err := NewGame("g", Config{PlayerCount: 5, PlayerIDs: seatIDs(5), Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(gs.Deck) != 17 {
		t.Fatalf("deck has %d papers, want 17", len(gs.Deck))
	}

	counts := map[[2]int]int{}
	ids := map[string]bool{}
	for _, p := range gs.Deck {
		counts[[2]int{p.Capability, p.Safety}]++
		if ids[p.ID] {
			t.Errorf("duplicate paper id %s", p.ID)
		}
		ids[p.ID] = true
	}
	want := map[[2]int]int{
		{0, 2}: 3,
		{1, 2}: 2, {1, 3}: 2, {1, 1}: 2,
		{2, 2}: 2, {3, 0}: 2, {2, 1}: 2, {3, 1}: 2,
	}
	if !reflect.DeepEqual(counts, want) {
		t.Errorf("deck composition = %v, want %v", counts, want)
	}
}

func TestNewGameInitialState(t *testing.T) {
	gs, err := NewGame("g", Config{PlayerCount: 7, PlayerIDs: seatIDs(7), Seed: 3})
	if err != nil {
		t.Fatal(err)
	}
	if gs.TurnNumber != 0 || gs.RoundNumber != 1 {
		t.Errorf("turn=%d round=%d, want 0 and 1", gs.TurnNumber, gs.RoundNumber)
	}
	if gs.CurrentPhase != PhaseTeamProposal || gs.CurrentSubPhase != AwaitNomination {
		t.Errorf("phase=%s/%s, want team_proposal/await_nomination", gs.CurrentPhase, gs.CurrentSubPhase)
	}
	if gs.CurrentDirectorIndex < 0 || gs.CurrentDirectorIndex >= 7 {
		t.Errorf("director index %d out of range", gs.CurrentDirectorIndex)
	}
	for _, p := range gs.Players {
		if !p.Alive || p.WasLastEngineer {
			t.Errorf("player %s not fresh: alive=%v wasLastEngineer=%v", p.ID, p.Alive, p.WasLastEngineer)
		}
	}
}

func TestNewGameSeedDeterminism(t *testing.T) {
	cfg := Config{PlayerCount: 6, PlayerIDs: seatIDs(6), Seed: 42}
	a, err := NewGame("g", cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewGame("g", cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different initial states")
	}

	cfg.Seed = 43
	c, err := NewGame("g", cfg)
	if err != nil {
		t.Fatal(err)
	}
	if reflect.DeepEqual(a.Deck, c.Deck) {
		t.Error("different seeds produced identical deck order")
	}
}

func seatIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = string(rune('a'+i)) + "1"
	}
	return ids
}
