package npc

import (
	"math/rand"
	"sync"

	"golf-lite/card"
	"golf-lite/golf"
)

// unknownValue is the expected worth of a face-down card, used when
// weighing a swap into an unseen position.
const unknownValue = 5

// RuleBrain is a heuristic Decider. One instance serves every CPU seat;
// the profile knobs differentiate their play.
type RuleBrain struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRuleBrain(seed int64) *RuleBrain {
	return &RuleBrain{rng: rand.New(rand.NewSource(seed))}
}

func (b *RuleBrain) Decide(view GameView, profile Profile) Action {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case view.Phase == golf.PhaseInitialFlip:
		return Action{Type: ActionFlipInitial, Positions: firstFaceDown(view.Hand, view.InitialFlips)}

	case view.AwaitingFlip:
		pos := pickFaceDown(view.Hand)
		if pos < 0 || b.rng.Float64() < profile.Brain.Randomness*0.3 {
			return Action{Type: ActionSkipFlip}
		}
		return Action{Type: ActionFlip, Position: pos}

	case view.DrawnCard != nil:
		pos, gain := bestSwap(view)
		if view.DrawnFromDiscard {
			// A discard draw has to land somewhere.
			return Action{Type: ActionSwap, Position: pos}
		}
		if gain > 0 || (gain == 0 && b.rng.Float64() < profile.Brain.Riskiness) {
			return Action{Type: ActionSwap, Position: pos}
		}
		return Action{Type: ActionDiscard}

	default:
		down := countFaceDown(view.Hand)
		if view.Options.KnockEarly && down > 0 && down <= 2 &&
			b.rng.Float64() > profile.Brain.KnockCaution {
			return Action{Type: ActionKnock}
		}
		if view.DiscardTop != nil && b.wantsDiscardTop(view, profile) {
			return Action{Type: ActionDraw, Source: golf.SourceDiscard}
		}
		return Action{Type: ActionDraw, Source: golf.SourceDeck}
	}
}

// bestSwap picks the position where the drawn card helps most and how
// much it gains over leaving the hand alone.
func bestSwap(view GameView) (int, int) {
	drawn := golf.CardValue(view.DrawnCard.Rank, view.Options)
	bestPos, bestGain := 0, int(-1<<31)
	for j := range view.Hand {
		cur := unknownValue
		if view.Hand[j].FaceUp {
			cur = golf.CardValue(view.Hand[j].Rank, view.Options)
		}
		gain := cur - drawn
		p := columnPartner(j)
		if view.Hand[p].FaceUp &&
			view.Hand[p].Rank == view.DrawnCard.Rank &&
			view.Hand[j].Rank != view.DrawnCard.Rank {
			// Completing a column zeroes both cards.
			gain += golf.CardValue(view.Hand[p].Rank, view.Options) + drawn
		}
		if gain > bestGain {
			bestPos, bestGain = j, gain
		}
	}
	return bestPos, bestGain
}

func (b *RuleBrain) wantsDiscardTop(view GameView, profile Profile) bool {
	top := view.DiscardTop
	for j := range view.Hand {
		if view.Hand[j].FaceUp && view.Hand[j].Rank == top.Rank &&
			!view.Hand[columnPartner(j)].FaceUp {
			return true
		}
	}
	v := golf.CardValue(top.Rank, view.Options)
	if v <= 0 {
		return true
	}
	return v <= 2 && b.rng.Float64() < profile.Brain.DiscardBias
}

func columnPartner(j int) int {
	if j < golf.HandSize/2 {
		return j + golf.HandSize/2
	}
	return j - golf.HandSize/2
}

func pickFaceDown(hand []card.Card) int {
	for j := range hand {
		if !hand[j].FaceUp {
			return j
		}
	}
	return -1
}

func countFaceDown(hand []card.Card) int {
	n := 0
	for j := range hand {
		if !hand[j].FaceUp {
			n++
		}
	}
	return n
}

func firstFaceDown(hand []card.Card, count int) []int {
	var out []int
	for j := range hand {
		if len(out) == count {
			break
		}
		if !hand[j].FaceUp {
			out = append(out, j)
		}
	}
	return out
}
