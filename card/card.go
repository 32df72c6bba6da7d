package card

// Suit of a standard playing card. Jokers carry no suit.
type Suit string

const (
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
	Spades   Suit = "spades"
	NoSuit   Suit = ""
)

// Suits lists the four standard suits in deck-construction order.
var Suits = []Suit{Hearts, Diamonds, Clubs, Spades}

// Rank as it appears on the wire.
type Rank string

const (
	RankAce   Rank = "A"
	Rank2     Rank = "2"
	Rank3     Rank = "3"
	Rank4     Rank = "4"
	Rank5     Rank = "5"
	Rank6     Rank = "6"
	Rank7     Rank = "7"
	Rank8     Rank = "8"
	Rank9     Rank = "9"
	Rank10    Rank = "10"
	RankJack  Rank = "J"
	RankQueen Rank = "Q"
	RankKing  Rank = "K"
	RankJoker Rank = "joker"
)

// Ranks lists the thirteen non-joker ranks in deck-construction order.
var Ranks = []Rank{
	RankAce, Rank2, Rank3, Rank4, Rank5, Rank6, Rank7,
	Rank8, Rank9, Rank10, RankJack, RankQueen, RankKing,
}

// Card is a single card in play. Suit and Rank never change; FaceUp is
// flipped by the game engine.
type Card struct {
	Suit   Suit `json:"suit,omitempty"`
	Rank   Rank `json:"rank,omitempty"`
	FaceUp bool `json:"face_up"`
}

// New returns a face-down card.
func New(s Suit, r Rank) Card {
	return Card{Suit: s, Rank: r}
}

// NewJoker returns a face-down joker.
func NewJoker() Card {
	return Card{Rank: RankJoker}
}

func (c Card) IsJoker() bool {
	return c.Rank == RankJoker
}

func (c Card) String() string {
	if c.IsJoker() {
		return "joker"
	}
	return string(c.Rank) + " of " + string(c.Suit)
}

// BaseValue is the card's score under default rules:
// A=1, 2=-2, 3..10 face value, J=Q=10, K=0, joker=-2.
// Rule variants adjust these at scoring time, never here.
func (c Card) BaseValue() int {
	switch c.Rank {
	case RankAce:
		return 1
	case Rank2:
		return -2
	case Rank3:
		return 3
	case Rank4:
		return 4
	case Rank5:
		return 5
	case Rank6:
		return 6
	case Rank7:
		return 7
	case Rank8:
		return 8
	case Rank9:
		return 9
	case Rank10:
		return 10
	case RankJack, RankQueen:
		return 10
	case RankKing:
		return 0
	case RankJoker:
		return -2
	default:
		return 0
	}
}
