package npc

import (
	"golf-lite/card"
	"golf-lite/golf"
)

// Action kinds a brain may return.
const (
	ActionFlipInitial = "flip_initial"
	ActionDraw        = "draw"
	ActionSwap        = "swap"
	ActionDiscard     = "discard"
	ActionFlip        = "flip"
	ActionSkipFlip    = "skip_flip"
	ActionKnock       = "knock"
)

// Action is one decision. Source is set for draw, Position for swap/flip,
// Positions for the initial flip.
type Action struct {
	Type      string
	Source    string
	Position  int
	Positions []int
}

// GameView is what a CPU seat can legitimately see: its own hand, the
// discard top, and its own drawn card. Opponents' hidden cards are not in
// the view.
type GameView struct {
	Phase            golf.Phase
	Hand             []card.Card
	DiscardTop       *card.Card
	DrawnCard        *card.Card
	DrawnFromDiscard bool
	AwaitingFlip     bool
	InitialFlips     int
	Options          golf.Options
}

// Decider picks the next action for a CPU seat. Implementations must
// return a legal action for the view they are given.
type Decider interface {
	Decide(view GameView, profile Profile) Action
}
