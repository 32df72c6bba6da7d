package card

import "testing"

func TestDeckComposition(t *testing.T) {
	d := NewDeck(1, 2, 7)
	if d.Len() != 54 {
		t.Fatalf("single deck + 2 jokers: Len() = %d, want 54", d.Len())
	}
	jokers := 0
	for _, c := range d.Cards() {
		if c.FaceUp {
			t.Fatalf("fresh deck contains a face-up card: %v", c)
		}
		if c.IsJoker() {
			jokers++
		}
	}
	if jokers != 2 {
		t.Fatalf("joker count = %d, want 2", jokers)
	}

	if got := NewDeck(3, 6, 7).Len(); got != 162 {
		t.Fatalf("triple deck + 6 jokers: Len() = %d, want 162", got)
	}
}

func TestDeckSeedDeterminism(t *testing.T) {
	a := NewDeck(2, 4, 42)
	b := NewDeck(2, 4, 42)
	ca, cb := a.Cards(), b.Cards()
	for i := range ca {
		if ca[i] != cb[i] {
			t.Fatalf("same seed diverged at index %d: %v vs %v", i, ca[i], cb[i])
		}
	}
	c := NewDeck(2, 4, 43)
	same := true
	for i, cc := range c.Cards() {
		if cc != ca[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("seeds 42 and 43 produced identical order")
	}
}

func TestDeckRandomSeedRecorded(t *testing.T) {
	d := NewDeck(1, 0, 0)
	if d.Seed() == 0 {
		t.Fatalf("zero seed was not replaced with a recorded one")
	}
	r := RestoreDeck(d.Seed(), 0, d.Cards())
	da, _ := d.Draw()
	ra, _ := r.Draw()
	if da != ra {
		t.Fatalf("restored deck drew %v, original drew %v", ra, da)
	}
}

func TestDrawPopsInOrder(t *testing.T) {
	d := NewDeck(1, 0, 99)
	want := d.Cards()
	for i := len(want) - 1; i >= 0; i-- {
		c, ok := d.Draw()
		if !ok {
			t.Fatalf("deck ran out early at %d", i)
		}
		if c != want[i] {
			t.Fatalf("draw %d = %v, want %v", i, c, want[i])
		}
	}
	if _, ok := d.Draw(); ok {
		t.Fatalf("empty deck still drew")
	}
}

func TestReshuffleDeterministic(t *testing.T) {
	d := NewDeck(1, 0, 5)
	for d.Len() > 0 {
		d.Draw()
	}
	pile := []Card{
		{Suit: Hearts, Rank: Rank5, FaceUp: true},
		{Suit: Clubs, Rank: Rank9, FaceUp: true},
		{Suit: Spades, Rank: RankAce, FaceUp: true},
	}

	// A deck restored mid-round must reshuffle exactly like the live one.
	r := RestoreDeck(d.Seed(), d.Reshuffles(), d.Cards())
	d.Reshuffle(pile)
	r.Reshuffle(pile)
	dc, rc := d.Cards(), r.Cards()
	for i := range dc {
		if dc[i] != rc[i] {
			t.Fatalf("reshuffle diverged at %d: %v vs %v", i, dc[i], rc[i])
		}
		if dc[i].FaceUp {
			t.Fatalf("reshuffled card still face up: %v", dc[i])
		}
	}
}
