package secretagi

import (
	"encoding/json"
	"fmt"
)

// Action is one submitted player action. Only the fields relevant to
// the kind are set; pointer fields distinguish absent from false.
type Action struct {
	Kind     ActionKind `json:"kind"`
	TargetID string     `json:"target_id,omitempty"`
	Vote     *bool      `json:"vote,omitempty"`
	Agree    *bool      `json:"agree,omitempty"`
	PaperID  string     `json:"paper_id,omitempty"`
	Message  string     `json:"message,omitempty"`
}

// Params serializes the action's parameters for audit records. Returns
// nil when the action carries none.
func (a Action) Params() json.RawMessage {
	p := struct {
		TargetID string `json:"target_id,omitempty"`
		Vote     *bool  `json:"vote,omitempty"`
		Agree    *bool  `json:"agree,omitempty"`
		PaperID  string `json:"paper_id,omitempty"`
		Message  string `json:"message,omitempty"`
	}{a.TargetID, a.Vote, a.Agree, a.PaperID, a.Message}
	data, err := json.Marshal(p)
	if err != nil || string(data) == "{}" {
		return nil
	}
	return data
}

// Constructors for each action kind.

func Nominate(targetID string) Action {
	return Action{Kind: ActionNominate, TargetID: targetID}
}

func VoteTeam(vote bool) Action {
	return Action{Kind: ActionVoteTeam, Vote: &vote}
}

func CallEmergencySafety() Action {
	return Action{Kind: ActionCallEmergencySafety}
}

func VoteEmergency(vote bool) Action {
	return Action{Kind: ActionVoteEmergency, Vote: &vote}
}

func DiscardPaper(paperID string) Action {
	return Action{Kind: ActionDiscardPaper, PaperID: paperID}
}

func DeclareVeto() Action {
	return Action{Kind: ActionDeclareVeto}
}

func RespondVeto(agree bool) Action {
	return Action{Kind: ActionRespondVeto, Agree: &agree}
}

func PublishPaper(paperID string) Action {
	return Action{Kind: ActionPublishPaper, PaperID: paperID}
}

func UsePower(targetID string) Action {
	return Action{Kind: ActionUsePower, TargetID: targetID}
}

func SendChatMessage(message string) Action {
	return Action{Kind: ActionSendChatMessage, Message: message}
}

func Observe() Action {
	return Action{Kind: ActionObserve}
}

// ActionError describes why an action was rejected.
type ActionError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func reject(code ErrorCode, format string, args ...any) *ActionError {
	return &ActionError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Apply validates and applies one action. On success it returns the
// successor state and the events the action produced, the first of
// which is the valid ActionAttempted record; the input state is never
// mutated. On rejection the input state is returned unchanged together
// with a single audit event that belongs in the event log but not in
// the state's own history.
func Apply(gs *GameState, actorID string, act Action) (*GameState, []Event, *ActionError) {
	if verr := validate(gs, actorID, act); verr != nil {
		audit := newEvent(gs, actorID, ActionAttemptedPayload{
			Kind:      act.Kind,
			Params:    act.Params(),
			Valid:     false,
			ErrorCode: verr.Code,
		})
		return gs, []Event{audit}, verr
	}

	next := gs.Clone()
	next.TurnNumber++
	mark := len(next.Events)

	next.Events = append(next.Events, newEvent(next, actorID, ActionAttemptedPayload{
		Kind:   act.Kind,
		Params: act.Params(),
		Valid:  true,
	}))

	if err := process(next, actorID, act); err != nil {
		// A processing failure means an invariant broke; the caller
		// keeps the pre-action state and should run recovery.
		audit := newEvent(gs, actorID, ActionAttemptedPayload{
			Kind:      act.Kind,
			Params:    act.Params(),
			Valid:     false,
			ErrorCode: CodeInternal,
		})
		return gs, []Event{audit}, reject(CodeInternal, "%v", err)
	}

	return next, next.Events[mark:], nil
}

func validate(gs *GameState, actorID string, act Action) *ActionError {
	if gs.IsGameOver {
		return reject(CodeGameOver, "game is over")
	}
	actor := gs.PlayerByID(actorID)
	if actor == nil {
		return reject(CodeNotActor, "unknown player %q", actorID)
	}

	switch act.Kind {
	case ActionObserve:
		return nil
	case ActionSendChatMessage:
		if !actor.Alive {
			return reject(CodeNotActor, "eliminated players cannot chat")
		}
		if act.Message == "" {
			return reject(CodeInternal, "missing message")
		}
		return nil
	case ActionNominate:
		return validateNominate(gs, actor, act)
	case ActionVoteTeam:
		return validateVoteTeam(gs, actor, act)
	case ActionCallEmergencySafety:
		return validateCallEmergencySafety(gs, actor)
	case ActionVoteEmergency:
		return validateVoteEmergency(gs, actor, act)
	case ActionDiscardPaper:
		return validateDiscardPaper(gs, actor, act)
	case ActionDeclareVeto:
		return validateDeclareVeto(gs, actor)
	case ActionRespondVeto:
		return validateRespondVeto(gs, actor, act)
	case ActionPublishPaper:
		return validatePublishPaper(gs, actor, act)
	case ActionUsePower:
		return validateUsePower(gs, actor, act)
	default:
		return reject(CodeInternal, "unknown action kind %q", act.Kind)
	}
}

func validateNominate(gs *GameState, actor *Player, act Action) *ActionError {
	if gs.CurrentSubPhase != AwaitNomination {
		return reject(CodeInvalidPhase, "no nomination expected now")
	}
	if actor.ID != gs.CurrentDirector().ID {
		return reject(CodeNotActor, "only the director nominates")
	}
	if act.TargetID == "" {
		return reject(CodeInternal, "missing target_id")
	}
	target := gs.PlayerByID(act.TargetID)
	if target == nil {
		return reject(CodeIneligibleTarget, "unknown player %q", act.TargetID)
	}
	if !target.Alive {
		return reject(CodeIneligibleTarget, "%s is eliminated", target.ID)
	}
	if target.WasLastEngineer {
		return reject(CodeIneligibleTarget, "%s was the previous engineer", target.ID)
	}
	return nil
}

func validateVoteTeam(gs *GameState, actor *Player, act Action) *ActionError {
	if gs.CurrentSubPhase != AwaitTeamVote {
		return reject(CodeInvalidPhase, "no team vote open")
	}
	if !actor.Alive {
		return reject(CodeNotActor, "eliminated players do not vote")
	}
	if act.Vote == nil {
		return reject(CodeInternal, "missing vote")
	}
	if _, ok := gs.TeamVotes[actor.ID]; ok {
		return reject(CodeDuplicateVote, "%s already voted", actor.ID)
	}
	return nil
}

func validateCallEmergencySafety(gs *GameState, actor *Player) *ActionError {
	if gs.CurrentSubPhase != AwaitNomination && gs.CurrentSubPhase != AwaitTeamVote {
		return reject(CodeInvalidPhase, "emergency safety cannot be called now")
	}
	if !actor.Alive {
		return reject(CodeNotActor, "eliminated players cannot call emergency safety")
	}
	if gs.EmergencySafetyCalledThisRound {
		return reject(CodeInvalidPhase, "emergency safety already called this round")
	}
	if !EmergencySafetyAvailable(gs) {
		return reject(CodeInvalidPhase, "capability lead is not 4 or 5")
	}
	return nil
}

func validateVoteEmergency(gs *GameState, actor *Player, act Action) *ActionError {
	if gs.CurrentSubPhase != AwaitEmergencyVote {
		return reject(CodeInvalidPhase, "no emergency vote open")
	}
	if !actor.Alive {
		return reject(CodeNotActor, "eliminated players do not vote")
	}
	if act.Vote == nil {
		return reject(CodeInternal, "missing vote")
	}
	if _, ok := gs.EmergencyVotes[actor.ID]; ok {
		return reject(CodeDuplicateVote, "%s already voted", actor.ID)
	}
	return nil
}

func validateDiscardPaper(gs *GameState, actor *Player, act Action) *ActionError {
	if gs.CurrentSubPhase != AwaitDirectorDiscard {
		return reject(CodeInvalidPhase, "no director discard expected now")
	}
	if actor.ID != gs.CurrentDirector().ID {
		return reject(CodeNotActor, "only the director discards")
	}
	if act.PaperID == "" {
		return reject(CodeInternal, "missing paper_id")
	}
	for _, p := range gs.DirectorCards {
		if p.ID == act.PaperID {
			return nil
		}
	}
	return reject(CodeUnknownPaper, "paper %q is not in the director's hand", act.PaperID)
}

func validateDeclareVeto(gs *GameState, actor *Player) *ActionError {
	if gs.CurrentSubPhase != AwaitEngineerDecision {
		return reject(CodeInvalidPhase, "no engineer decision expected now")
	}
	if actor.ID != gs.NominatedEngineerID {
		return reject(CodeNotActor, "only the engineer can declare a veto")
	}
	if !gs.VetoUnlocked {
		return reject(CodeNotUnlocked, "veto power is not unlocked")
	}
	if gs.VetoDeclined {
		return reject(CodeInvalidPhase, "veto already refused this round")
	}
	return nil
}

func validateRespondVeto(gs *GameState, actor *Player, act Action) *ActionError {
	if gs.CurrentSubPhase != AwaitVetoResponse {
		return reject(CodeInvalidPhase, "no veto response expected now")
	}
	if actor.ID != gs.CurrentDirector().ID {
		return reject(CodeNotActor, "only the director responds to a veto")
	}
	if act.Agree == nil {
		return reject(CodeInternal, "missing agree")
	}
	return nil
}

func validatePublishPaper(gs *GameState, actor *Player, act Action) *ActionError {
	if gs.CurrentSubPhase != AwaitEngineerDecision {
		return reject(CodeInvalidPhase, "no engineer decision expected now")
	}
	if actor.ID != gs.NominatedEngineerID {
		return reject(CodeNotActor, "only the engineer publishes")
	}
	if act.PaperID == "" {
		return reject(CodeInternal, "missing paper_id")
	}
	for _, p := range gs.EngineerCards {
		if p.ID == act.PaperID {
			return nil
		}
	}
	return reject(CodeUnknownPaper, "paper %q is not in the engineer's hand", act.PaperID)
}

func validateUsePower(gs *GameState, actor *Player, act Action) *ActionError {
	if gs.CurrentSubPhase != AwaitPowerTarget {
		return reject(CodeInvalidPhase, "no power awaiting a target")
	}
	if actor.ID != gs.CurrentDirector().ID {
		return reject(CodeNotActor, "only the director targets powers")
	}
	if len(gs.PendingPowers) == 0 {
		return reject(CodeInternal, "no pending power")
	}
	threshold := gs.PendingPowers[0]
	if (threshold == 3 || threshold == 11) && len(gs.Players) < 9 {
		return reject(CodeSizeGated, "power %d requires a 9-10 player game", threshold)
	}
	if act.TargetID == "" {
		return reject(CodeInternal, "missing target_id")
	}
	if act.TargetID == actor.ID {
		return reject(CodeIneligibleTarget, "cannot target yourself")
	}
	target := gs.PlayerByID(act.TargetID)
	if target == nil {
		return reject(CodeIneligibleTarget, "unknown player %q", act.TargetID)
	}
	if !target.Alive {
		return reject(CodeIneligibleTarget, "%s is eliminated", target.ID)
	}
	return nil
}

func process(gs *GameState, actorID string, act Action) error {
	switch act.Kind {
	case ActionObserve:
		return nil
	case ActionSendChatMessage:
		gs.Events = append(gs.Events, newEvent(gs, actorID, ChatMessagePayload{
			Message: act.Message,
			Phase:   gs.CurrentPhase,
		}))
		return nil
	case ActionNominate:
		gs.NominatedEngineerID = act.TargetID
		gs.TeamVotes = make(map[string]bool)
		gs.CurrentSubPhase = AwaitTeamVote
		return nil
	case ActionVoteTeam:
		return processVoteTeam(gs, actorID, *act.Vote)
	case ActionCallEmergencySafety:
		gs.EmergencySafetyCalledThisRound = true
		gs.EmergencyVotes = make(map[string]bool)
		gs.CurrentSubPhase = AwaitEmergencyVote
		return nil
	case ActionVoteEmergency:
		return processVoteEmergency(gs, actorID, *act.Vote)
	case ActionDiscardPaper:
		return processDiscardPaper(gs, act.PaperID)
	case ActionDeclareVeto:
		gs.CurrentSubPhase = AwaitVetoResponse
		return nil
	case ActionRespondVeto:
		return processRespondVeto(gs, *act.Agree)
	case ActionPublishPaper:
		return processPublishPaper(gs, actorID, act.PaperID)
	case ActionUsePower:
		return processUsePower(gs, actorID, act.TargetID)
	default:
		return fmt.Errorf("unknown action kind %q", act.Kind)
	}
}

func processVoteTeam(gs *GameState, actorID string, vote bool) error {
	gs.TeamVotes[actorID] = vote
	if !voteComplete(gs, gs.TeamVotes) {
		return nil
	}

	yes, total := tallyVotes(gs, gs.TeamVotes)
	passed := yes > total/2
	gs.Events = append(gs.Events, newEvent(gs, "", VoteCompletedPayload{
		VoteType:   VoteTypeTeam,
		Result:     passed,
		Votes:      gs.TeamVotes,
		YesCount:   yes,
		TotalCount: total,
	}))
	gs.TeamVotes = nil

	if passed {
		return startResearch(gs)
	}

	gs.FailedProposals++
	if gs.FailedProposals >= 3 {
		return autoPublish(gs)
	}
	advanceDirector(gs)
	resetTeamProposalState(gs)
	gs.CurrentSubPhase = AwaitNomination
	return nil
}

func processVoteEmergency(gs *GameState, actorID string, vote bool) error {
	gs.EmergencyVotes[actorID] = vote
	if !voteComplete(gs, gs.EmergencyVotes) {
		return nil
	}

	yes, total := tallyVotes(gs, gs.EmergencyVotes)
	passed := yes > total/2
	gs.Events = append(gs.Events, newEvent(gs, "", VoteCompletedPayload{
		VoteType:   VoteTypeEmergency,
		Result:     passed,
		Votes:      gs.EmergencyVotes,
		YesCount:   yes,
		TotalCount: total,
	}))
	gs.EmergencyVotes = nil

	if passed {
		gs.EmergencySafetyActive = true
	}
	if gs.NominatedEngineerID != "" {
		gs.CurrentSubPhase = AwaitTeamVote
	} else {
		gs.CurrentSubPhase = AwaitNomination
	}
	return nil
}

func processDiscardPaper(gs *GameState, paperID string) error {
	idx := -1
	for i := range gs.DirectorCards {
		if gs.DirectorCards[i].ID == paperID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("paper %s not in director hand", paperID)
	}

	gs.Discard = append(gs.Discard, gs.DirectorCards[idx])
	remaining := make([]Paper, 0, len(gs.DirectorCards)-1)
	remaining = append(remaining, gs.DirectorCards[:idx]...)
	remaining = append(remaining, gs.DirectorCards[idx+1:]...)
	gs.EngineerCards = remaining
	gs.DirectorCards = nil
	gs.CurrentSubPhase = AwaitEngineerDecision
	return nil
}

func processRespondVeto(gs *GameState, agree bool) error {
	if !agree {
		gs.VetoDeclined = true
		gs.CurrentSubPhase = AwaitEngineerDecision
		return nil
	}

	// The director's earlier discard already moved the third card.
	gs.Discard = append(gs.Discard, gs.EngineerCards...)
	gs.EngineerCards = nil

	gs.FailedProposals++
	if gs.FailedProposals >= 3 {
		return autoPublish(gs)
	}
	transitionPhase(gs, PhaseTeamProposal)
	resetTeamProposalState(gs)
	gs.CurrentSubPhase = AwaitNomination
	return nil
}

func processPublishPaper(gs *GameState, actorID, paperID string) error {
	idx := -1
	for i := range gs.EngineerCards {
		if gs.EngineerCards[i].ID == paperID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("paper %s not in engineer hand", paperID)
	}
	paper := gs.EngineerCards[idx]
	for i := range gs.EngineerCards {
		if i != idx {
			gs.Discard = append(gs.Discard, gs.EngineerCards[i])
		}
	}
	gs.EngineerCards = nil

	oldCap := gs.Capability
	gain := paper.Capability
	if gs.EmergencySafetyActive {
		gain = max(gain-1, 0)
		gs.EmergencySafetyActive = false
	}
	gs.Capability += gain
	gs.Safety += paper.Safety
	gs.Published = append(gs.Published, paper)

	if engineer := gs.PlayerByID(actorID); engineer != nil {
		engineer.WasLastEngineer = true
	}

	gs.Events = append(gs.Events, newEvent(gs, actorID, PaperPublishedPayload{
		Paper:          paper,
		CapabilityGain: gain,
		SafetyGain:     paper.Safety,
		AutoPublished:  false,
		Capability:     gs.Capability,
		Safety:         gs.Safety,
	}))

	gs.PendingPowers = PowersTriggered(oldCap, gs.Capability, len(gs.Players))
	return resolvePublication(gs)
}

func processUsePower(gs *GameState, actorID, targetID string) error {
	if len(gs.PendingPowers) == 0 {
		return fmt.Errorf("no pending power")
	}
	threshold := gs.PendingPowers[0]
	gs.PendingPowers = gs.PendingPowers[1:]

	gs.Events = append(gs.Events, newEvent(gs, actorID, PowerTriggeredPayload{
		Threshold: threshold,
		Effect:    powerEffect(threshold),
		TargetID:  targetID,
	}))

	target := gs.PlayerByID(targetID)
	if target == nil {
		return fmt.Errorf("power target %s not found", targetID)
	}

	switch threshold {
	case 3, 6:
		if gs.ViewedAllegiances == nil {
			gs.ViewedAllegiances = make(map[string]map[string]Allegiance)
		}
		if gs.ViewedAllegiances[actorID] == nil {
			gs.ViewedAllegiances[actorID] = make(map[string]Allegiance)
		}
		gs.ViewedAllegiances[actorID][targetID] = target.Allegiance()
		gs.Events = append(gs.Events, newEvent(gs, actorID, StateChangedPayload{
			Change:     ChangeAllegianceViewed,
			TargetID:   targetID,
			Allegiance: target.Allegiance(),
		}))
	case 9:
		gs.NextDirectorOverride = targetID
		gs.Events = append(gs.Events, newEvent(gs, "", StateChangedPayload{
			Change:        ChangeDirectorChosen,
			NewDirectorID: targetID,
		}))
	case 11:
		target.Alive = false
		gs.Events = append(gs.Events, newEvent(gs, "", StateChangedPayload{
			Change:   ChangePlayerEliminated,
			PlayerID: targetID,
			Role:     target.Role,
		}))
	default:
		return fmt.Errorf("power %d does not take a target", threshold)
	}

	return resolvePublication(gs)
}

// startResearch runs when a team vote passes. The nominee stays set so
// the approved-AGI-engineer condition is visible to the win check
// before any cards are drawn.
func startResearch(gs *GameState) error {
	resetEngineerEligibility(gs)
	gs.FailedProposals = 0
	transitionPhase(gs, PhaseResearch)

	if win := EvaluateWin(gs, false); win != nil {
		finishGame(gs, win)
		return nil
	}
	if len(gs.Deck) < 3 {
		finishGame(gs, EvaluateWin(gs, true))
		return nil
	}

	gs.DirectorCards = clonePapers(gs.Deck[:3])
	gs.Deck = gs.Deck[3:]
	gs.CurrentSubPhase = AwaitDirectorDiscard
	return nil
}

// autoPublish force-publishes the top paper after three failed
// proposals. Unlike a chosen publication, the director seat advances
// before powers execute, so the incoming director supplies any power
// targets; the proposal bookkeeping resets first so the forced paper
// cannot satisfy the approved-AGI-engineer condition.
func autoPublish(gs *GameState) error {
	if len(gs.Deck) == 0 {
		finishGame(gs, EvaluateWin(gs, true))
		return nil
	}

	paper := gs.Deck[0]
	gs.Deck = gs.Deck[1:]

	oldCap := gs.Capability
	gain := paper.Capability
	if gs.EmergencySafetyActive {
		gain = max(gain-1, 0)
		gs.EmergencySafetyActive = false
	}
	gs.Capability += gain
	gs.Safety += paper.Safety
	gs.Published = append(gs.Published, paper)

	gs.Events = append(gs.Events, newEvent(gs, "", PaperPublishedPayload{
		Paper:          paper,
		CapabilityGain: gain,
		SafetyGain:     paper.Safety,
		AutoPublished:  true,
		Capability:     gs.Capability,
		Safety:         gs.Safety,
	}))

	gs.FailedProposals = 0
	resetEngineerEligibility(gs)
	advanceDirector(gs)
	resetTeamProposalState(gs)
	transitionPhase(gs, PhaseTeamProposal)

	gs.PendingPowers = PowersTriggered(oldCap, gs.Capability, len(gs.Players))
	return resolvePublication(gs)
}

// resolvePublication drains the power queue for the in-flight
// publication: immediate powers execute inline, a targeted power parks
// the game until the director supplies a target. Once the queue is
// empty the consolidated win check runs and play routes onward.
func resolvePublication(gs *GameState) error {
	for len(gs.PendingPowers) > 0 {
		t := gs.PendingPowers[0]
		if PowerRequiresTarget(t) {
			gs.CurrentSubPhase = AwaitPowerTarget
			return nil
		}
		executeImmediatePower(gs, t)
		gs.PendingPowers = gs.PendingPowers[1:]
	}
	gs.PendingPowers = nil

	if win := EvaluateWin(gs, len(gs.Deck) == 0); win != nil {
		finishGame(gs, win)
		return nil
	}

	if gs.CurrentPhase == PhaseResearch {
		prepareNextRound(gs)
		return nil
	}
	gs.CurrentSubPhase = AwaitNomination
	return nil
}

func executeImmediatePower(gs *GameState, threshold int) {
	switch threshold {
	case 10:
		gs.AGIMustReveal = true
	case 12:
		gs.VetoUnlocked = true
	}
	gs.Events = append(gs.Events, newEvent(gs, "", PowerTriggeredPayload{
		Threshold: threshold,
		Effect:    powerEffect(threshold),
	}))
}

// prepareNextRound follows a chosen publication: the director seat
// advances (honoring a C=9 override), play returns to TeamProposal and
// the round counter moves. Engineer eligibility is not reset here; the
// outgoing engineer stays barred until the next team forms.
func prepareNextRound(gs *GameState) {
	advanceDirector(gs)
	transitionPhase(gs, PhaseTeamProposal)
	resetTeamProposalState(gs)
	gs.CurrentSubPhase = AwaitNomination
	gs.RoundNumber++
}

func resetTeamProposalState(gs *GameState) {
	gs.NominatedEngineerID = ""
	gs.TeamVotes = nil
	gs.EmergencyVotes = nil
	gs.EmergencySafetyCalledThisRound = false
	gs.VetoDeclined = false
	gs.DirectorCards = nil
	gs.EngineerCards = nil
}

func transitionPhase(gs *GameState, to Phase) {
	if gs.CurrentPhase == to {
		return
	}
	from := gs.CurrentPhase
	gs.CurrentPhase = to
	gs.Events = append(gs.Events, newEvent(gs, "", PhaseTransitionPayload{From: from, To: to}))
}

func finishGame(gs *GameState, win *WinResult) {
	gs.IsGameOver = true
	gs.Winners = win.Winners
	transitionPhase(gs, PhaseGameOver)
	gs.CurrentSubPhase = SubPhaseNone
	gs.Events = append(gs.Events, newEvent(gs, "", GameEndedPayload{
		Winners:    win.Winners,
		Reason:     win.Reason(),
		Capability: gs.Capability,
		Safety:     gs.Safety,
	}))
}

// ValidActions returns the action kinds the player could submit in the
// current state, mirroring the validator.
func ValidActions(gs *GameState, playerID string) []ActionKind {
	if gs.IsGameOver {
		return nil
	}
	p := gs.PlayerByID(playerID)
	if p == nil {
		return nil
	}

	var kinds []ActionKind
	isDirector := p.Alive && gs.CurrentDirector().ID == playerID

	switch gs.CurrentSubPhase {
	case AwaitNomination:
		if isDirector {
			kinds = append(kinds, ActionNominate)
		}
	case AwaitTeamVote:
		if p.Alive {
			if _, voted := gs.TeamVotes[playerID]; !voted {
				kinds = append(kinds, ActionVoteTeam)
			}
		}
	case AwaitEmergencyVote:
		if p.Alive {
			if _, voted := gs.EmergencyVotes[playerID]; !voted {
				kinds = append(kinds, ActionVoteEmergency)
			}
		}
	case AwaitDirectorDiscard:
		if isDirector {
			kinds = append(kinds, ActionDiscardPaper)
		}
	case AwaitEngineerDecision:
		if p.Alive && gs.NominatedEngineerID == playerID {
			kinds = append(kinds, ActionPublishPaper)
			if gs.VetoUnlocked && !gs.VetoDeclined {
				kinds = append(kinds, ActionDeclareVeto)
			}
		}
	case AwaitVetoResponse:
		if isDirector {
			kinds = append(kinds, ActionRespondVeto)
		}
	case AwaitPowerTarget:
		if isDirector {
			kinds = append(kinds, ActionUsePower)
		}
	}

	if p.Alive &&
		(gs.CurrentSubPhase == AwaitNomination || gs.CurrentSubPhase == AwaitTeamVote) &&
		!gs.EmergencySafetyCalledThisRound && EmergencySafetyAvailable(gs) {
		kinds = append(kinds, ActionCallEmergencySafety)
	}
	if p.Alive {
		kinds = append(kinds, ActionSendChatMessage)
	}
	kinds = append(kinds, ActionObserve)
	return kinds
}
