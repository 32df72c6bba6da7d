package golf

import (
	"testing"

	"golf-lite/card"
)

func up(s card.Suit, r card.Rank) card.Card {
	return card.Card{Suit: s, Rank: r, FaceUp: true}
}

func TestScoreHandColumnPair(t *testing.T) {
	// Column (0,3) is a king pair and scores 0; the others sum to 24.
	hand := []card.Card{
		up(card.Hearts, card.RankKing),
		up(card.Hearts, card.Rank5),
		up(card.Hearts, card.Rank7),
		up(card.Clubs, card.RankKing),
		up(card.Clubs, card.Rank9),
		up(card.Clubs, card.Rank3),
	}
	if got := ScoreHand(hand, Options{}); got != 24 {
		t.Fatalf("ScoreHand = %d, want 24", got)
	}
}

func TestScoreHandOrderWithinColumn(t *testing.T) {
	a := []card.Card{
		up(card.Hearts, card.Rank4), up(card.Hearts, card.Rank5), up(card.Hearts, card.Rank6),
		up(card.Clubs, card.Rank9), up(card.Clubs, card.Rank5), up(card.Clubs, card.Rank2),
	}
	b := []card.Card{
		up(card.Clubs, card.Rank9), up(card.Clubs, card.Rank5), up(card.Clubs, card.Rank2),
		up(card.Hearts, card.Rank4), up(card.Hearts, card.Rank5), up(card.Hearts, card.Rank6),
	}
	if ScoreHand(a, Options{}) != ScoreHand(b, Options{}) {
		t.Fatalf("column score depends on card order: %d vs %d",
			ScoreHand(a, Options{}), ScoreHand(b, Options{}))
	}
}

func TestCardValueVariants(t *testing.T) {
	cases := []struct {
		name string
		rank card.Rank
		opts Options
		want int
	}{
		{"king default", card.RankKing, Options{}, 0},
		{"super kings", card.RankKing, Options{SuperKings: true}, -2},
		{"seven default", card.Rank7, Options{}, 7},
		{"lucky sevens", card.Rank7, Options{LuckySevens: true}, 0},
		{"ten default", card.Rank10, Options{}, 10},
		{"ten penny", card.Rank10, Options{TenPenny: true}, 1},
		{"joker default", card.RankJoker, Options{}, -2},
		{"lucky swing", card.RankJoker, Options{LuckySwing: true}, -5},
	}
	for _, c := range cases {
		if got := CardValue(c.rank, c.opts); got != c.want {
			t.Errorf("%s: CardValue = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestScoreHandQueensWild(t *testing.T) {
	hand := []card.Card{
		up(card.Hearts, card.RankQueen),
		up(card.Hearts, card.Rank2),
		up(card.Hearts, card.Rank3),
		up(card.Clubs, card.Rank9),
		up(card.Clubs, card.Rank2),
		up(card.Clubs, card.Rank4),
	}
	// Without the variant the queen column scores Q+9 = 19.
	if got := ScoreHand(hand, Options{}); got != 19+(-2-2)+(3+4) {
		t.Fatalf("default = %d", got)
	}
	// With queens_wild the queen matches anything in its column.
	if got := ScoreHand(hand, Options{QueensWild: true}); got != (-2-2)+(3+4) {
		t.Fatalf("queens_wild = %d, want %d", got, (-2-2)+(3+4))
	}
}

func TestScoreHandEagleEye(t *testing.T) {
	joker := card.Card{Rank: card.RankJoker, FaceUp: true}
	hand := []card.Card{
		joker,
		up(card.Hearts, card.Rank5),
		up(card.Hearts, card.Rank6),
		joker,
		up(card.Clubs, card.Rank5),
		up(card.Clubs, card.Rank6),
	}
	// Matching joker column is 0 by default, -8 under eagle_eye.
	if got := ScoreHand(hand, Options{}); got != 0 {
		t.Fatalf("default joker pair = %d, want 0", got)
	}
	if got := ScoreHand(hand, Options{EagleEye: true}); got != -8 {
		t.Fatalf("eagle_eye joker pair = %d, want -8", got)
	}
}

func TestScoreHandFourOfAKind(t *testing.T) {
	hand := []card.Card{
		up(card.Hearts, card.Rank9),
		up(card.Diamonds, card.Rank9),
		up(card.Hearts, card.Rank4),
		up(card.Clubs, card.Rank9),
		up(card.Spades, card.Rank9),
		up(card.Clubs, card.Rank6),
	}
	// Without the variant, columns (0,3) and (1,4) are nine pairs (0 each)
	// and (2,5) sums to 10.
	if got := ScoreHand(hand, Options{}); got != 10 {
		t.Fatalf("default = %d, want 10", got)
	}
	// With it, the four nines are removed and the rest still sums to 10.
	if got := ScoreHand(hand, Options{FourOfAKind: true}); got != 10 {
		t.Fatalf("four_of_a_kind = %d, want 10", got)
	}

	// Three of a kind is not enough to trigger removal.
	hand[4] = up(card.Spades, card.Rank8)
	if got := ScoreHand(hand, Options{FourOfAKind: true}); got != 9+9+8+4+6 {
		t.Fatalf("three nines = %d, want %d", got, 9+9+8+4+6)
	}
}

func TestRoundModifiersBlackjackUnderdog(t *testing.T) {
	scores := map[string]int{"p1": 21, "p2": 10, "p3": 10}
	applyRoundModifiers(scores, "", Options{Blackjack: true, UnderdogBonus: true})
	if scores["p1"] != -3 || scores["p2"] != 10 || scores["p3"] != 10 {
		t.Fatalf("scores = %v, want p1=-3 p2=10 p3=10", scores)
	}
	winners := roundWinners(scores)
	if len(winners) != 1 || winners[0] != "p1" {
		t.Fatalf("winners = %v, want [p1]", winners)
	}
}

func TestRoundModifiersKnock(t *testing.T) {
	// Finisher does not hold the unique minimum: +10, then -5 bonus.
	scores := map[string]int{"knocker": 8, "other": 8}
	applyRoundModifiers(scores, "knocker", Options{KnockPenalty: true, KnockBonus: true})
	if scores["knocker"] != 13 || scores["other"] != 8 {
		t.Fatalf("scores = %v, want knocker=13 other=8", scores)
	}

	// Unique minimum: no penalty, bonus still applies.
	scores = map[string]int{"knocker": 5, "other": 8}
	applyRoundModifiers(scores, "knocker", Options{KnockPenalty: true, KnockBonus: true})
	if scores["knocker"] != 0 || scores["other"] != 8 {
		t.Fatalf("scores = %v, want knocker=0 other=8", scores)
	}
}

func TestRoundModifiersTiedShame(t *testing.T) {
	scores := map[string]int{"a": 7, "b": 7, "c": 12}
	applyRoundModifiers(scores, "", Options{TiedShame: true})
	// Ties are detected against the pre-modifier scores, so c keeps 12
	// even though a and b land on it.
	if scores["a"] != 12 || scores["b"] != 12 || scores["c"] != 12 {
		t.Fatalf("scores = %v, want a=12 b=12 c=12", scores)
	}
}

func TestRoundModifiersDepartedFinisher(t *testing.T) {
	scores := map[string]int{"a": 3, "b": 9}
	applyRoundModifiers(scores, "gone", Options{KnockPenalty: true, KnockBonus: true})
	if scores["a"] != 3 || scores["b"] != 9 {
		t.Fatalf("departed finisher changed scores: %v", scores)
	}
}
