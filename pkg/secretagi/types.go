package secretagi

// Role is a player's hidden role, dealt at setup.
type Role string

const (
	RoleSafety          Role = "safety"
	RoleAccelerationist Role = "accelerationist"
	RoleAGI             Role = "agi"
)

// Allegiance is the faction a role wins with.
type Allegiance string

const (
	AllegianceSafety       Allegiance = "safety"
	AllegianceAcceleration Allegiance = "acceleration"
)

// Allegiance returns the faction the role belongs to. The AGI sides
// with the Accelerationists.
func (r Role) Allegiance() Allegiance {
	if r == RoleSafety {
		return AllegianceSafety
	}
	return AllegianceAcceleration
}

// Phase is the coarse game phase.
type Phase string

const (
	PhaseTeamProposal Phase = "team_proposal"
	PhaseResearch     Phase = "research"
	PhaseGameOver     Phase = "game_over"
)

// SubPhase pinpoints the action the engine is waiting on. It is empty
// once the game is over.
type SubPhase string

const (
	AwaitNomination       SubPhase = "await_nomination"
	AwaitTeamVote         SubPhase = "await_team_vote"
	AwaitEmergencyVote    SubPhase = "await_emergency_vote"
	AwaitDirectorDiscard  SubPhase = "await_director_discard"
	AwaitEngineerDecision SubPhase = "await_engineer_decision"
	AwaitVetoResponse     SubPhase = "await_veto_response"
	AwaitPowerTarget      SubPhase = "await_power_target"
	SubPhaseNone          SubPhase = ""
)

// ActionKind identifies a player action.
type ActionKind string

const (
	ActionNominate            ActionKind = "nominate"
	ActionVoteTeam            ActionKind = "vote_team"
	ActionCallEmergencySafety ActionKind = "call_emergency_safety"
	ActionVoteEmergency       ActionKind = "vote_emergency"
	ActionDiscardPaper        ActionKind = "discard_paper"
	ActionDeclareVeto         ActionKind = "declare_veto"
	ActionRespondVeto         ActionKind = "respond_veto"
	ActionPublishPaper        ActionKind = "publish_paper"
	ActionUsePower            ActionKind = "use_power"
	ActionSendChatMessage     ActionKind = "send_chat_message"
	ActionObserve             ActionKind = "observe"
)

// ErrorCode classifies why an action was rejected.
type ErrorCode string

const (
	CodeInvalidPhase     ErrorCode = "invalid_phase"
	CodeNotActor         ErrorCode = "not_actor"
	CodeIneligibleTarget ErrorCode = "ineligible_target"
	CodeDuplicateVote    ErrorCode = "duplicate_vote"
	CodeNotUnlocked      ErrorCode = "not_unlocked"
	CodeUnknownPaper     ErrorCode = "unknown_paper"
	CodeSizeGated        ErrorCode = "size_gated"
	CodeGameOver         ErrorCode = "game_over"
	CodeInternal         ErrorCode = "internal"
)

// WinCondition is a stable code for one way the game can end. The
// GameEnded reason joins every condition that fired with "+".
type WinCondition string

const (
	CondAGIEliminated       WinCondition = "agi_eliminated"
	CondSafetyAtCap10       WinCondition = "safety_at_capability_10"
	CondSafetyThreshold     WinCondition = "safety_threshold"
	CondCapabilityThreshold WinCondition = "capability_threshold"
	CondCapabilityRunaway   WinCondition = "capability_runaway"
	CondAGIEngineer         WinCondition = "agi_engineer"
	CondDeckExhausted       WinCondition = "deck_exhausted"
)

// Paper is one research paper card. Immutable once created.
type Paper struct {
	ID         string `json:"id"`
	Capability int    `json:"capability"`
	Safety     int    `json:"safety"`
}

// Player is one seat at the table. Seating order is fixed at setup.
type Player struct {
	ID              string `json:"id"`
	Role            Role   `json:"role"`
	Alive           bool   `json:"alive"`
	WasLastEngineer bool   `json:"was_last_engineer"`
}

// Allegiance returns the faction the player wins with.
func (p *Player) Allegiance() Allegiance {
	return p.Role.Allegiance()
}
