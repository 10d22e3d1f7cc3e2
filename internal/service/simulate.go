package service

import (
	"context"
	"fmt"

	"github.com/alignmentlab/secret-agi/pkg/secretagi"
)

// Summary is the outcome of one simulated game.
type Summary struct {
	GameID          string           `json:"game_id"`
	Completed       bool             `json:"completed"`
	Winners         []secretagi.Role `json:"winners,omitempty"`
	Reason          string           `json:"reason,omitempty"`
	Turns           int              `json:"turns"`
	FinalCapability int              `json:"final_capability"`
	FinalSafety     int              `json:"final_safety"`
}

// SimulateToCompletion creates a game and drives it with the policy
// until it ends or turnCap valid turns have been played. A game that
// hits the cap is reported with Completed=false, not an error.
func (e *GameEngine) SimulateToCompletion(ctx context.Context, cfg secretagi.Config, policy Policy, turnCap int) (*Summary, error) {
	gs, err := e.CreateGame(ctx, cfg)
	if err != nil {
		return nil, err
	}
	gameID := gs.GameID

	for !gs.IsGameOver && gs.TurnNumber < turnCap {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		waiting := secretagi.AwaitingActionFrom(gs)
		if len(waiting) == 0 {
			return nil, fmt.Errorf("game %s stalled at turn %d: nobody to act", gameID, gs.TurnNumber)
		}
		actorID := waiting[0]
		act := policy.ChooseAction(gs, actorID)
		u, err := e.PerformAction(ctx, gameID, actorID, act)
		if err != nil {
			return nil, err
		}
		if !u.Success {
			return nil, fmt.Errorf("game %s: policy chose invalid action %s for %s: %v",
				gameID, act.Kind, actorID, u.Error)
		}
		next, err := e.LoadGame(ctx, gameID)
		if err != nil {
			return nil, err
		}
		gs = next
	}

	s := &Summary{
		GameID:          gameID,
		Completed:       gs.IsGameOver,
		Turns:           gs.TurnNumber,
		FinalCapability: gs.Capability,
		FinalSafety:     gs.Safety,
	}
	if gs.IsGameOver {
		s.Winners = gs.Winners
		for _, ev := range gs.Events {
			if p, ok := ev.Payload.(secretagi.GameEndedPayload); ok {
				s.Reason = p.Reason
			}
		}
	}
	return s, nil
}
