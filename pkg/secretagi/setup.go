package secretagi

import (
	"fmt"
	"math/rand"
)

// Config describes a new game.
type Config struct {
	PlayerCount int      `json:"player_count"`
	PlayerIDs   []string `json:"player_ids"`
	Seed        int64    `json:"seed"`
}

// Validate checks the config against the supported table sizes.
func (c Config) Validate() error {
	if c.PlayerCount < 5 || c.PlayerCount > 10 {
		return fmt.Errorf("player count must be 5-10, got %d", c.PlayerCount)
	}
	if len(c.PlayerIDs) != c.PlayerCount {
		return fmt.Errorf("expected %d player ids, got %d", c.PlayerCount, len(c.PlayerIDs))
	}
	seen := make(map[string]bool, len(c.PlayerIDs))
	for _, id := range c.PlayerIDs {
		if id == "" {
			return fmt.Errorf("player ids must be non-empty")
		}
		if seen[id] {
			return fmt.Errorf("duplicate player id %q", id)
		}
		seen[id] = true
	}
	return nil
}

// roleCounts returns the number of Safety and Accelerationist roles
// for a table of n players. There is always exactly one AGI.
func roleCounts(n int) (safety, accel int) {
	switch n {
	case 5:
		return 3, 1
	case 6:
		return 4, 1
	case 7:
		return 4, 2
	case 8:
		return 5, 2
	case 9:
		return 5, 3
	default:
		return 6, 3
	}
}

// deckComposition is the canonical 17-paper multiset: (capability,
// safety) pairs in the order paper ids are assigned before shuffling.
var deckComposition = [][2]int{
	{0, 2}, {0, 2}, {0, 2},
	{1, 2}, {1, 2},
	{1, 3}, {1, 3},
	{1, 1}, {1, 1},
	{2, 2}, {2, 2},
	{3, 0}, {3, 0},
	{2, 1}, {2, 1},
	{3, 1}, {3, 1},
}

func buildDeck() []Paper {
	deck := make([]Paper, len(deckComposition))
	for i, c := range deckComposition {
		deck[i] = Paper{
			ID:         fmt.Sprintf("paper_%d", i),
			Capability: c[0],
			Safety:     c[1],
		}
	}
	return deck
}

// NewGame deals roles, shuffles the deck and picks a starting director,
// all driven by the config seed. The returned state is at turn 0 in
// TeamProposal awaiting a nomination.
func NewGame(gameID string, cfg Config) (*GameState, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	safety, accel := roleCounts(cfg.PlayerCount)
	roles := make([]Role, 0, cfg.PlayerCount)
	for i := 0; i < safety; i++ {
		roles = append(roles, RoleSafety)
	}
	for i := 0; i < accel; i++ {
		roles = append(roles, RoleAccelerationist)
	}
	roles = append(roles, RoleAGI)
	rng.Shuffle(len(roles), func(i, j int) {
		roles[i], roles[j] = roles[j], roles[i]
	})

	players := make([]Player, cfg.PlayerCount)
	for i, id := range cfg.PlayerIDs {
		players[i] = Player{ID: id, Role: roles[i], Alive: true}
	}

	deck := buildDeck()
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})

	return &GameState{
		GameID:               gameID,
		TurnNumber:           0,
		RoundNumber:          1,
		Players:              players,
		Deck:                 deck,
		CurrentDirectorIndex: rng.Intn(cfg.PlayerCount),
		CurrentPhase:         PhaseTeamProposal,
		CurrentSubPhase:      AwaitNomination,
	}, nil
}
