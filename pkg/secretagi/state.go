package secretagi

// GameState is a complete snapshot of one game at a point in time.
// The action processor treats states as values: it clones before
// applying, so an emitted state is never mutated afterwards and is
// safe to persist by reference.
type GameState struct {
	GameID      string `json:"game_id"`
	TurnNumber  int    `json:"turn_number"`
	RoundNumber int    `json:"round_number"`

	Players []Player `json:"players"`

	Capability int `json:"capability"`
	Safety     int `json:"safety"`

	Deck      []Paper `json:"deck"` // index 0 is the top
	Discard   []Paper `json:"discard"`
	Published []Paper `json:"published"`

	CurrentDirectorIndex int `json:"current_director_index"`
	FailedProposals      int `json:"failed_proposals"`

	CurrentPhase    Phase    `json:"current_phase"`
	CurrentSubPhase SubPhase `json:"current_sub_phase"`

	// Research-round buffers; non-nil only between nomination and
	// publication (or veto resolution).
	NominatedEngineerID string  `json:"nominated_engineer_id,omitempty"`
	DirectorCards       []Paper `json:"director_cards,omitempty"`
	EngineerCards       []Paper `json:"engineer_cards,omitempty"`

	TeamVotes      map[string]bool `json:"team_votes,omitempty"`
	EmergencyVotes map[string]bool `json:"emergency_votes,omitempty"`

	VetoUnlocked                   bool `json:"veto_unlocked"`
	VetoDeclined                   bool `json:"veto_declined"`
	EmergencySafetyActive          bool `json:"emergency_safety_active"`
	EmergencySafetyCalledThisRound bool `json:"emergency_safety_called_this_round"`
	AGIMustReveal                  bool `json:"agi_must_reveal"`

	// Capability thresholds from the in-flight publication that still
	// have to execute, ascending. The head is the one awaiting a target.
	PendingPowers []int `json:"pending_powers,omitempty"`

	// Director chosen by the C=9 power; consumed by the next director
	// advance in place of rotation.
	NextDirectorOverride string `json:"next_director_override,omitempty"`

	// viewer id -> target id -> allegiance, from C=3/C=6 powers.
	ViewedAllegiances map[string]map[string]Allegiance `json:"viewed_allegiances,omitempty"`

	IsGameOver bool   `json:"is_game_over"`
	Winners    []Role `json:"winners,omitempty"`

	Events []Event `json:"events"`
}

// PlayerByID returns the player with the given id, or nil.
func (gs *GameState) PlayerByID(id string) *Player {
	for i := range gs.Players {
		if gs.Players[i].ID == id {
			return &gs.Players[i]
		}
	}
	return nil
}

// CurrentDirector returns the player currently holding the director seat.
func (gs *GameState) CurrentDirector() *Player {
	return &gs.Players[gs.CurrentDirectorIndex]
}

// AGIPlayer returns the AGI, or nil if the state has no AGI seat.
func (gs *GameState) AGIPlayer() *Player {
	for i := range gs.Players {
		if gs.Players[i].Role == RoleAGI {
			return &gs.Players[i]
		}
	}
	return nil
}

// AliveCount returns the number of living players.
func (gs *GameState) AliveCount() int {
	count := 0
	for i := range gs.Players {
		if gs.Players[i].Alive {
			count++
		}
	}
	return count
}

// AliveIDs returns the ids of living players in seat order.
func (gs *GameState) AliveIDs() []string {
	var ids []string
	for i := range gs.Players {
		if gs.Players[i].Alive {
			ids = append(ids, gs.Players[i].ID)
		}
	}
	return ids
}

// NextDirectorIndex returns the seat of the next living player
// clockwise from the current director.
func (gs *GameState) NextDirectorIndex() int {
	n := len(gs.Players)
	for offset := 1; offset <= n; offset++ {
		idx := (gs.CurrentDirectorIndex + offset) % n
		if gs.Players[idx].Alive {
			return idx
		}
	}
	return gs.CurrentDirectorIndex
}

// Clone returns a deep copy of the GameState. Emitted events are
// immutable, so the events slice is copied but payloads are shared.
func (gs *GameState) Clone() *GameState {
	c := &GameState{
		GameID:      gs.GameID,
		TurnNumber:  gs.TurnNumber,
		RoundNumber: gs.RoundNumber,

		Capability: gs.Capability,
		Safety:     gs.Safety,

		CurrentDirectorIndex: gs.CurrentDirectorIndex,
		FailedProposals:      gs.FailedProposals,

		CurrentPhase:    gs.CurrentPhase,
		CurrentSubPhase: gs.CurrentSubPhase,

		NominatedEngineerID: gs.NominatedEngineerID,

		VetoUnlocked:                   gs.VetoUnlocked,
		VetoDeclined:                   gs.VetoDeclined,
		EmergencySafetyActive:          gs.EmergencySafetyActive,
		EmergencySafetyCalledThisRound: gs.EmergencySafetyCalledThisRound,
		AGIMustReveal:                  gs.AGIMustReveal,

		NextDirectorOverride: gs.NextDirectorOverride,

		IsGameOver: gs.IsGameOver,
	}
	if gs.Players != nil {
		c.Players = make([]Player, len(gs.Players))
		copy(c.Players, gs.Players)
	}
	c.Deck = clonePapers(gs.Deck)
	c.Discard = clonePapers(gs.Discard)
	c.Published = clonePapers(gs.Published)
	c.DirectorCards = clonePapers(gs.DirectorCards)
	c.EngineerCards = clonePapers(gs.EngineerCards)
	c.TeamVotes = cloneVotes(gs.TeamVotes)
	c.EmergencyVotes = cloneVotes(gs.EmergencyVotes)
	if gs.PendingPowers != nil {
		c.PendingPowers = make([]int, len(gs.PendingPowers))
		copy(c.PendingPowers, gs.PendingPowers)
	}
	if gs.ViewedAllegiances != nil {
		c.ViewedAllegiances = make(map[string]map[string]Allegiance, len(gs.ViewedAllegiances))
		for viewer, seen := range gs.ViewedAllegiances {
			inner := make(map[string]Allegiance, len(seen))
			for target, a := range seen {
				inner[target] = a
			}
			c.ViewedAllegiances[viewer] = inner
		}
	}
	if gs.Winners != nil {
		c.Winners = make([]Role, len(gs.Winners))
		copy(c.Winners, gs.Winners)
	}
	if gs.Events != nil {
		c.Events = make([]Event, len(gs.Events))
		copy(c.Events, gs.Events)
	}
	return c
}

func clonePapers(papers []Paper) []Paper {
	if papers == nil {
		return nil
	}
	c := make([]Paper, len(papers))
	copy(c, papers)
	return c
}

func cloneVotes(votes map[string]bool) map[string]bool {
	if votes == nil {
		return nil
	}
	c := make(map[string]bool, len(votes))
	for k, v := range votes {
		c[k] = v
	}
	return c
}
