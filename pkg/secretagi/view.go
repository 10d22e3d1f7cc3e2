package secretagi

// PlayerView is the public slice of one seat.
type PlayerView struct {
	ID              string `json:"id"`
	Alive           bool   `json:"alive"`
	WasLastEngineer bool   `json:"was_last_engineer"`
}

// FilteredState is what a single player is allowed to see. Public board
// state is always present; role, allies, viewed allegiances and the
// hand are filled only for the viewing player.
type FilteredState struct {
	GameID      string `json:"game_id"`
	TurnNumber  int    `json:"turn_number"`
	RoundNumber int    `json:"round_number"`

	Capability      int      `json:"capability"`
	Safety          int      `json:"safety"`
	CurrentPhase    Phase    `json:"current_phase"`
	CurrentSubPhase SubPhase `json:"current_sub_phase,omitempty"`
	FailedProposals int      `json:"failed_proposals"`

	Players             []PlayerView `json:"players"`
	CurrentDirectorID   string       `json:"current_director_id"`
	NominatedEngineerID string       `json:"nominated_engineer_id,omitempty"`

	VetoUnlocked                   bool `json:"veto_unlocked"`
	EmergencySafetyActive          bool `json:"emergency_safety_active"`
	EmergencySafetyCalledThisRound bool `json:"emergency_safety_called_this_round"`
	AGIMustReveal                  bool `json:"agi_must_reveal"`

	IsGameOver bool   `json:"is_game_over"`
	Winners    []Role `json:"winners,omitempty"`

	// Private to the viewing player.
	Role              Role                  `json:"role,omitempty"`
	Allegiance        Allegiance            `json:"allegiance,omitempty"`
	KnownAllies       []string              `json:"known_allies,omitempty"`
	ViewedAllegiances map[string]Allegiance `json:"viewed_allegiances,omitempty"`
	Hand              []Paper               `json:"hand,omitempty"`
}

// FilterState builds the view of the state for one player. An unknown
// player id yields the public view only.
func FilterState(gs *GameState, playerID string) *FilteredState {
	fs := &FilteredState{
		GameID:      gs.GameID,
		TurnNumber:  gs.TurnNumber,
		RoundNumber: gs.RoundNumber,

		Capability:      gs.Capability,
		Safety:          gs.Safety,
		CurrentPhase:    gs.CurrentPhase,
		CurrentSubPhase: gs.CurrentSubPhase,
		FailedProposals: gs.FailedProposals,

		CurrentDirectorID:   gs.CurrentDirector().ID,
		NominatedEngineerID: gs.NominatedEngineerID,

		VetoUnlocked:                   gs.VetoUnlocked,
		EmergencySafetyActive:          gs.EmergencySafetyActive,
		EmergencySafetyCalledThisRound: gs.EmergencySafetyCalledThisRound,
		AGIMustReveal:                  gs.AGIMustReveal,

		IsGameOver: gs.IsGameOver,
	}
	fs.Players = make([]PlayerView, len(gs.Players))
	for i := range gs.Players {
		p := &gs.Players[i]
		fs.Players[i] = PlayerView{ID: p.ID, Alive: p.Alive, WasLastEngineer: p.WasLastEngineer}
	}
	if gs.Winners != nil {
		fs.Winners = make([]Role, len(gs.Winners))
		copy(fs.Winners, gs.Winners)
	}

	viewer := gs.PlayerByID(playerID)
	if viewer == nil {
		return fs
	}

	fs.Role = viewer.Role
	fs.Allegiance = viewer.Allegiance()

	// Accelerationists and the AGI know each other from setup.
	if viewer.Role != RoleSafety {
		for i := range gs.Players {
			p := &gs.Players[i]
			if p.ID != viewer.ID && p.Role != RoleSafety {
				fs.KnownAllies = append(fs.KnownAllies, p.ID)
			}
		}
	}

	if seen := gs.ViewedAllegiances[playerID]; seen != nil {
		fs.ViewedAllegiances = make(map[string]Allegiance, len(seen))
		for target, a := range seen {
			fs.ViewedAllegiances[target] = a
		}
	}

	switch {
	case gs.CurrentSubPhase == AwaitDirectorDiscard && gs.CurrentDirector().ID == playerID:
		fs.Hand = clonePapers(gs.DirectorCards)
	case gs.NominatedEngineerID == playerID && len(gs.EngineerCards) > 0:
		fs.Hand = clonePapers(gs.EngineerCards)
	}

	return fs
}

// AwaitingActionFrom returns, in seat order, the players the engine is
// waiting on in the current sub-state. Empty once the game is over.
func AwaitingActionFrom(gs *GameState) []string {
	if gs.IsGameOver {
		return nil
	}
	switch gs.CurrentSubPhase {
	case AwaitNomination, AwaitDirectorDiscard, AwaitVetoResponse, AwaitPowerTarget:
		return []string{gs.CurrentDirector().ID}
	case AwaitEngineerDecision:
		return []string{gs.NominatedEngineerID}
	case AwaitTeamVote:
		return missingVoters(gs, gs.TeamVotes)
	case AwaitEmergencyVote:
		return missingVoters(gs, gs.EmergencyVotes)
	}
	return nil
}

func missingVoters(gs *GameState, votes map[string]bool) []string {
	var ids []string
	for i := range gs.Players {
		p := &gs.Players[i]
		if !p.Alive {
			continue
		}
		if _, ok := votes[p.ID]; !ok {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
