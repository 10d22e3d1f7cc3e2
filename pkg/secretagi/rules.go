package secretagi

import "strings"

// WinResult describes a decided game: the winning roles and every
// condition that fired on the evaluation that ended it.
type WinResult struct {
	Winners    []Role
	Conditions []WinCondition
}

// Reason joins the fired condition codes in evaluation order.
func (w *WinResult) Reason() string {
	parts := make([]string, len(w.Conditions))
	for i, c := range w.Conditions {
		parts[i] = string(c)
	}
	return strings.Join(parts, "+")
}

// EvaluateWin collects every win condition that currently holds and
// returns nil if none do. deckExhausted marks a moment where the deck
// could not serve a draw or a round conclusion, which decides the game
// by whichever meter is ahead. When conditions for both factions hold
// simultaneously, the Accelerationist faction wins.
func EvaluateWin(gs *GameState, deckExhausted bool) *WinResult {
	var safetyConds, evilConds []WinCondition

	if agi := gs.AGIPlayer(); agi != nil && !agi.Alive {
		safetyConds = append(safetyConds, CondAGIEliminated)
	}
	if gs.Capability == 10 && gs.Safety >= gs.Capability {
		safetyConds = append(safetyConds, CondSafetyAtCap10)
	}
	if gs.Safety >= 15 {
		safetyConds = append(safetyConds, CondSafetyThreshold)
	}
	if gs.Capability >= 15 && gs.Safety < 10 {
		evilConds = append(evilConds, CondCapabilityThreshold)
	}
	if gs.Capability-gs.Safety >= 6 {
		evilConds = append(evilConds, CondCapabilityRunaway)
	}
	if agi := gs.AGIPlayer(); agi != nil &&
		gs.CurrentPhase == PhaseResearch &&
		gs.NominatedEngineerID == agi.ID &&
		gs.Capability >= 8 {
		evilConds = append(evilConds, CondAGIEngineer)
	}
	if deckExhausted {
		if gs.Safety >= gs.Capability {
			safetyConds = append(safetyConds, CondDeckExhausted)
		} else {
			evilConds = append(evilConds, CondDeckExhausted)
		}
	}

	if len(safetyConds) == 0 && len(evilConds) == 0 {
		return nil
	}

	// Keep the canonical evaluation order in the merged reason.
	conds := append(safetyConds, evilConds...)
	if len(evilConds) > 0 {
		return &WinResult{
			Winners:    []Role{RoleAccelerationist, RoleAGI},
			Conditions: conds,
		}
	}
	return &WinResult{Winners: []Role{RoleSafety}, Conditions: conds}
}

// powerThresholds lists every capability power in ascending order.
var powerThresholds = []int{3, 6, 9, 10, 11, 12}

// PowersTriggered returns the thresholds crossed by a capability
// increase from oldCap to newCap, ascending. The C=3 and C=11 powers
// exist only at 9-10 player tables.
func PowersTriggered(oldCap, newCap, playerCount int) []int {
	var triggered []int
	for _, t := range powerThresholds {
		if (t == 3 || t == 11) && playerCount < 9 {
			continue
		}
		if oldCap < t && t <= newCap {
			triggered = append(triggered, t)
		}
	}
	return triggered
}

// PowerRequiresTarget reports whether the threshold's effect needs a
// target chosen by the director.
func PowerRequiresTarget(threshold int) bool {
	switch threshold {
	case 3, 6, 9, 11:
		return true
	default:
		return false
	}
}

// powerEffect returns the stable effect code carried by PowerTriggered
// events for the given threshold.
func powerEffect(threshold int) string {
	switch threshold {
	case 3, 6:
		return "view_allegiance"
	case 9:
		return "choose_director"
	case 10:
		return "agi_must_reveal"
	case 11:
		return "eliminate"
	case 12:
		return "unlock_veto"
	default:
		return "unknown"
	}
}

// EligibleEngineers returns the ids of living players who may be
// nominated: everyone except the previous round's engineer.
func EligibleEngineers(gs *GameState) []string {
	var ids []string
	for i := range gs.Players {
		p := &gs.Players[i]
		if p.Alive && !p.WasLastEngineer {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// EmergencySafetyAvailable reports whether the board allows an
// emergency safety call: the capability lead is exactly 4 or 5.
func EmergencySafetyAvailable(gs *GameState) bool {
	gap := gs.Capability - gs.Safety
	return gap == 4 || gap == 5
}

// voteComplete reports whether every living player appears in votes.
func voteComplete(gs *GameState, votes map[string]bool) bool {
	for i := range gs.Players {
		p := &gs.Players[i]
		if !p.Alive {
			continue
		}
		if _, ok := votes[p.ID]; !ok {
			return false
		}
	}
	return true
}

// tallyVotes counts yes votes among living voters. Both vote kinds
// pass on a strict majority; ties fail.
func tallyVotes(gs *GameState, votes map[string]bool) (yes, total int) {
	for i := range gs.Players {
		p := &gs.Players[i]
		if !p.Alive {
			continue
		}
		v, ok := votes[p.ID]
		if !ok {
			continue
		}
		total++
		if v {
			yes++
		}
	}
	return yes, total
}

func resetEngineerEligibility(gs *GameState) {
	for i := range gs.Players {
		gs.Players[i].WasLastEngineer = false
	}
}

// advanceDirector moves the director seat. A pending C=9 override wins
// over rotation and is consumed; an override pointing at a dead player
// is dropped.
func advanceDirector(gs *GameState) {
	if gs.NextDirectorOverride != "" {
		chosen := gs.NextDirectorOverride
		gs.NextDirectorOverride = ""
		for i := range gs.Players {
			if gs.Players[i].ID == chosen && gs.Players[i].Alive {
				gs.CurrentDirectorIndex = i
				return
			}
		}
	}
	gs.CurrentDirectorIndex = gs.NextDirectorIndex()
}
