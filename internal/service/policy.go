package service

import (
	"math/rand"

	"github.com/alignmentlab/secret-agi/pkg/secretagi"
)

// Policy picks an action for a player the engine is waiting on. It is
// how simulation drives games without an out-of-process agent.
type Policy interface {
	ChooseAction(gs *secretagi.GameState, playerID string) secretagi.Action
}

// RandomPolicy plays uniformly random legal moves. Chat and observe are
// excluded so simulated games always advance.
type RandomPolicy struct {
	rng *rand.Rand
}

// NewRandomPolicy creates a seeded RandomPolicy.
func NewRandomPolicy(seed int64) *RandomPolicy {
	return &RandomPolicy{rng: rand.New(rand.NewSource(seed))}
}

// ChooseAction picks a legal advancing action for the player.
func (p *RandomPolicy) ChooseAction(gs *secretagi.GameState, playerID string) secretagi.Action {
	kinds := secretagi.ValidActions(gs, playerID)
	var advancing []secretagi.ActionKind
	for _, k := range kinds {
		switch k {
		case secretagi.ActionSendChatMessage, secretagi.ActionObserve,
			secretagi.ActionCallEmergencySafety:
			// Emergency calls are legal in many states but restart the
			// round; random play would loop on them.
		default:
			advancing = append(advancing, k)
		}
	}
	if len(advancing) == 0 {
		return secretagi.Observe()
	}
	kind := advancing[p.rng.Intn(len(advancing))]

	switch kind {
	case secretagi.ActionNominate:
		eligible := p.nominationTargets(gs)
		return secretagi.Nominate(eligible[p.rng.Intn(len(eligible))])
	case secretagi.ActionVoteTeam:
		return secretagi.VoteTeam(p.rng.Intn(2) == 0)
	case secretagi.ActionVoteEmergency:
		return secretagi.VoteEmergency(p.rng.Intn(2) == 0)
	case secretagi.ActionDiscardPaper:
		cards := gs.DirectorCards
		return secretagi.DiscardPaper(cards[p.rng.Intn(len(cards))].ID)
	case secretagi.ActionPublishPaper:
		cards := gs.EngineerCards
		return secretagi.PublishPaper(cards[p.rng.Intn(len(cards))].ID)
	case secretagi.ActionDeclareVeto:
		// Half the time the engineer tries the veto instead of publishing.
		if p.rng.Intn(2) == 0 {
			return secretagi.DeclareVeto()
		}
		cards := gs.EngineerCards
		return secretagi.PublishPaper(cards[p.rng.Intn(len(cards))].ID)
	case secretagi.ActionRespondVeto:
		return secretagi.RespondVeto(p.rng.Intn(2) == 0)
	case secretagi.ActionUsePower:
		targets := p.powerTargets(gs, playerID)
		return secretagi.UsePower(targets[p.rng.Intn(len(targets))])
	}
	return secretagi.Observe()
}

func (p *RandomPolicy) nominationTargets(gs *secretagi.GameState) []string {
	return secretagi.EligibleEngineers(gs)
}

func (p *RandomPolicy) powerTargets(gs *secretagi.GameState, directorID string) []string {
	var targets []string
	for _, id := range gs.AliveIDs() {
		if id != directorID {
			targets = append(targets, id)
		}
	}
	if len(targets) == 0 {
		// Cannot happen in a live game; keep the policy total anyway.
		return []string{directorID}
	}
	return targets
}
