package secretagi

import (
	crand "crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// EventType tags the payload variant carried by an Event.
type EventType string

const (
	EventActionAttempted EventType = "action_attempted"
	EventStateChanged    EventType = "state_changed"
	EventPhaseTransition EventType = "phase_transition"
	EventPaperPublished  EventType = "paper_published"
	EventPowerTriggered  EventType = "power_triggered"
	EventVoteCompleted   EventType = "vote_completed"
	EventChatMessage     EventType = "chat_message"
	EventGameEnded       EventType = "game_ended"
)

// StateChange names the kind of StateChanged event.
type StateChange string

const (
	ChangePlayerEliminated StateChange = "player_eliminated"
	ChangeAllegianceViewed StateChange = "allegiance_viewed"
	ChangeDirectorChosen   StateChange = "director_chosen"
)

// VoteType names the vote a VoteCompleted event closes.
type VoteType string

const (
	VoteTypeTeam      VoteType = "team"
	VoteTypeEmergency VoteType = "emergency_safety"
)

// Event is the envelope shared by every game event. The payload is one
// of the *Payload variants below, selected by Type.
type Event struct {
	ID         string       `json:"id"`
	Type       EventType    `json:"type"`
	ActorID    string       `json:"actor_id,omitempty"`
	TurnNumber int          `json:"turn_number"`
	Payload    EventPayload `json:"payload"`
}

// EventPayload is implemented by every payload variant.
type EventPayload interface {
	eventType() EventType
}

// ActionAttemptedPayload records every submitted action, valid or not.
type ActionAttemptedPayload struct {
	Kind      ActionKind      `json:"kind"`
	Params    json.RawMessage `json:"params,omitempty"`
	Valid     bool            `json:"valid"`
	ErrorCode ErrorCode       `json:"error_code,omitempty"`
}

// StateChangedPayload records a discrete state mutation outside the
// normal publication flow. PlayerID and Role accompany
// player_eliminated, TargetID and Allegiance accompany
// allegiance_viewed, and NewDirectorID accompanies director_chosen.
type StateChangedPayload struct {
	Change        StateChange `json:"change"`
	PlayerID      string      `json:"player_id,omitempty"`
	Role          Role        `json:"role,omitempty"`
	TargetID      string      `json:"target_id,omitempty"`
	Allegiance    Allegiance  `json:"allegiance,omitempty"`
	NewDirectorID string      `json:"new_director_id,omitempty"`
}

// PhaseTransitionPayload records an actual phase change.
type PhaseTransitionPayload struct {
	From Phase `json:"from"`
	To   Phase `json:"to"`
}

// PaperPublishedPayload records a publication, forced or chosen, with
// the post-publication meters.
type PaperPublishedPayload struct {
	Paper          Paper `json:"paper"`
	CapabilityGain int   `json:"capability_gain"`
	SafetyGain     int   `json:"safety_gain"`
	AutoPublished  bool  `json:"auto_published"`
	Capability     int   `json:"capability"`
	Safety         int   `json:"safety"`
}

// PowerTriggeredPayload records one executed capability power.
type PowerTriggeredPayload struct {
	Threshold int    `json:"threshold"`
	Effect    string `json:"effect"`
	TargetID  string `json:"target_id,omitempty"`
}

// VoteCompletedPayload records a finished vote with the full ballot.
type VoteCompletedPayload struct {
	VoteType   VoteType        `json:"vote_type"`
	Result     bool            `json:"result"`
	Votes      map[string]bool `json:"votes"`
	YesCount   int             `json:"yes_count"`
	TotalCount int             `json:"total_count"`
}

// ChatMessagePayload records table talk.
type ChatMessagePayload struct {
	Message string `json:"message"`
	Phase   Phase  `json:"phase"`
}

// GameEndedPayload records the final outcome.
type GameEndedPayload struct {
	Winners    []Role `json:"winners"`
	Reason     string `json:"reason"`
	Capability int    `json:"capability"`
	Safety     int    `json:"safety"`
}

func (ActionAttemptedPayload) eventType() EventType { return EventActionAttempted }
func (StateChangedPayload) eventType() EventType    { return EventStateChanged }
func (PhaseTransitionPayload) eventType() EventType { return EventPhaseTransition }
func (PaperPublishedPayload) eventType() EventType  { return EventPaperPublished }
func (PowerTriggeredPayload) eventType() EventType  { return EventPowerTriggered }
func (VoteCompletedPayload) eventType() EventType   { return EventVoteCompleted }
func (ChatMessagePayload) eventType() EventType     { return EventChatMessage }
func (GameEndedPayload) eventType() EventType       { return EventGameEnded }

// VisibleTo reports whether the event may be shown to the given
// player. Allegiance viewings are private to the viewer; everything
// else is public.
func (e *Event) VisibleTo(playerID string) bool {
	p, ok := e.Payload.(StateChangedPayload)
	if !ok || p.Change != ChangeAllegianceViewed {
		return true
	}
	return e.ActorID == playerID
}

// UnmarshalJSON decodes the envelope, then the payload variant named
// by the type tag.
func (e *Event) UnmarshalJSON(data []byte) error {
	var shell struct {
		ID         string          `json:"id"`
		Type       EventType       `json:"type"`
		ActorID    string          `json:"actor_id"`
		TurnNumber int             `json:"turn_number"`
		Payload    json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &shell); err != nil {
		return err
	}
	e.ID = shell.ID
	e.Type = shell.Type
	e.ActorID = shell.ActorID
	e.TurnNumber = shell.TurnNumber

	if shell.Payload == nil {
		e.Payload = nil
		return nil
	}
	payload, err := decodePayload(shell.Type, shell.Payload)
	if err != nil {
		return err
	}
	e.Payload = payload
	return nil
}

func decodePayload(t EventType, data []byte) (EventPayload, error) {
	switch t {
	case EventActionAttempted:
		var p ActionAttemptedPayload
		return p, json.Unmarshal(data, &p)
	case EventStateChanged:
		var p StateChangedPayload
		return p, json.Unmarshal(data, &p)
	case EventPhaseTransition:
		var p PhaseTransitionPayload
		return p, json.Unmarshal(data, &p)
	case EventPaperPublished:
		var p PaperPublishedPayload
		return p, json.Unmarshal(data, &p)
	case EventPowerTriggered:
		var p PowerTriggeredPayload
		return p, json.Unmarshal(data, &p)
	case EventVoteCompleted:
		var p VoteCompletedPayload
		return p, json.Unmarshal(data, &p)
	case EventChatMessage:
		var p ChatMessagePayload
		return p, json.Unmarshal(data, &p)
	case EventGameEnded:
		var p GameEndedPayload
		return p, json.Unmarshal(data, &p)
	default:
		return nil, fmt.Errorf("unknown event type %q", t)
	}
}

// newEvent stamps an envelope for the given state's current turn.
func newEvent(gs *GameState, actorID string, payload EventPayload) Event {
	return Event{
		ID:         newEventID(),
		Type:       payload.eventType(),
		ActorID:    actorID,
		TurnNumber: gs.TurnNumber,
		Payload:    payload,
	}
}

func newEventID() string {
	b := make([]byte, 16)
	if _, err := crand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
