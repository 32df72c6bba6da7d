package npc

import (
	"testing"

	"golf-lite/card"
	"golf-lite/golf"
)

func downHand() []card.Card {
	hand := make([]card.Card, golf.HandSize)
	for i := range hand {
		hand[i] = card.New(card.Hearts, card.Rank5)
	}
	return hand
}

func testProfile() Profile {
	return Profile{ID: "t", Brain: BrainProfile{Riskiness: 0.5, DiscardBias: 0.5, KnockCaution: 0.5, Randomness: 0.2}}
}

func TestDecideInitialFlip(t *testing.T) {
	b := NewRuleBrain(1)
	view := GameView{Phase: golf.PhaseInitialFlip, Hand: downHand(), InitialFlips: 2}
	a := b.Decide(view, testProfile())
	if a.Type != ActionFlipInitial {
		t.Fatalf("action = %s", a.Type)
	}
	if len(a.Positions) != 2 || a.Positions[0] == a.Positions[1] {
		t.Fatalf("positions = %v", a.Positions)
	}
	for _, pos := range a.Positions {
		if view.Hand[pos].FaceUp {
			t.Fatalf("chose face-up position %d", pos)
		}
	}
}

func TestDecidePendingFlipIsLegal(t *testing.T) {
	b := NewRuleBrain(2)
	hand := downHand()
	hand[0].FaceUp = true
	hand[1].FaceUp = true
	view := GameView{Phase: golf.PhasePlaying, Hand: hand, AwaitingFlip: true}
	for i := 0; i < 50; i++ {
		a := b.Decide(view, testProfile())
		switch a.Type {
		case ActionFlip:
			if view.Hand[a.Position].FaceUp {
				t.Fatalf("flip at face-up position %d", a.Position)
			}
		case ActionSkipFlip:
		default:
			t.Fatalf("unexpected action %s with flip pending", a.Type)
		}
	}
}

func TestDecideMustSwapDiscardDraw(t *testing.T) {
	b := NewRuleBrain(3)
	drawn := card.Card{Suit: card.Spades, Rank: card.RankQueen, FaceUp: true}
	view := GameView{
		Phase:            golf.PhasePlaying,
		Hand:             downHand(),
		DrawnCard:        &drawn,
		DrawnFromDiscard: true,
	}
	for i := 0; i < 50; i++ {
		a := b.Decide(view, testProfile())
		if a.Type != ActionSwap {
			t.Fatalf("discard-drawn card not swapped: %s", a.Type)
		}
		if a.Position < 0 || a.Position >= golf.HandSize {
			t.Fatalf("swap position out of range: %d", a.Position)
		}
	}
}

func TestDecideCompletesColumn(t *testing.T) {
	b := NewRuleBrain(4)
	hand := downHand()
	// Face-up nine at position 1; drawn nine should land on its partner.
	hand[1] = card.Card{Suit: card.Clubs, Rank: card.Rank9, FaceUp: true}
	drawn := card.Card{Suit: card.Spades, Rank: card.Rank9, FaceUp: true}
	view := GameView{Phase: golf.PhasePlaying, Hand: hand, DrawnCard: &drawn}
	a := b.Decide(view, testProfile())
	if a.Type != ActionSwap || a.Position != 4 {
		t.Fatalf("action = %+v, want swap at 4", a)
	}
}

func TestDecideTakesNegativeDiscardTop(t *testing.T) {
	b := NewRuleBrain(5)
	top := card.Card{Rank: card.RankJoker, FaceUp: true}
	view := GameView{Phase: golf.PhasePlaying, Hand: downHand(), DiscardTop: &top}
	a := b.Decide(view, testProfile())
	if a.Type != ActionDraw || a.Source != golf.SourceDiscard {
		t.Fatalf("action = %+v, want discard draw", a)
	}
}

func TestDecideDefaultDrawsDeck(t *testing.T) {
	b := NewRuleBrain(6)
	top := card.Card{Suit: card.Hearts, Rank: card.RankJack, FaceUp: true}
	view := GameView{Phase: golf.PhasePlaying, Hand: downHand(), DiscardTop: &top}
	a := b.Decide(view, testProfile())
	if a.Type != ActionDraw || a.Source != golf.SourceDeck {
		t.Fatalf("action = %+v, want deck draw", a)
	}
}

func TestDecideKnockRespectsOption(t *testing.T) {
	hand := downHand()
	for i := 0; i < 5; i++ {
		hand[i].FaceUp = true
	}
	profile := testProfile()
	profile.Brain.KnockCaution = 0

	// Without the option no brain may knock, however bold.
	b := NewRuleBrain(7)
	view := GameView{Phase: golf.PhasePlaying, Hand: hand}
	for i := 0; i < 50; i++ {
		if a := b.Decide(view, profile); a.Type == ActionKnock {
			t.Fatalf("knock without the option enabled")
		}
	}

	view.Options = golf.Options{KnockEarly: true}
	knocked := false
	for i := 0; i < 50; i++ {
		if a := b.Decide(view, profile); a.Type == ActionKnock {
			knocked = true
			break
		}
	}
	if !knocked {
		t.Fatalf("zero-caution brain never knocked in 50 tries")
	}
}
