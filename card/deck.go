package card

import (
	"math/rand"
	"time"
)

// Deck is a seeded draw pile. The same seed always yields the same order,
// and mid-round reshuffles derive from seed + reshuffle count so a deck
// restored from a snapshot keeps reshuffling identically.
type Deck struct {
	seed       int64
	reshuffles int64
	cards      []Card
}

// NewDeck builds numDecks standard 52-card packs plus the given number of
// jokers, shuffled by seed. A zero seed picks a random one; the chosen seed
// is recorded either way so the deck can be rebuilt later.
func NewDeck(numDecks, jokers int, seed int64) *Deck {
	if numDecks < 1 {
		numDecks = 1
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	cards := make([]Card, 0, numDecks*52+jokers)
	for d := 0; d < numDecks; d++ {
		for _, s := range Suits {
			for _, r := range Ranks {
				cards = append(cards, New(s, r))
			}
		}
	}
	for j := 0; j < jokers; j++ {
		cards = append(cards, NewJoker())
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	return &Deck{seed: seed, cards: cards}
}

// RestoreDeck rebuilds a deck from snapshot fields without reshuffling.
func RestoreDeck(seed, reshuffles int64, cards []Card) *Deck {
	d := &Deck{seed: seed, reshuffles: reshuffles, cards: make([]Card, len(cards))}
	copy(d.cards, cards)
	return d
}

func (d *Deck) Seed() int64 { return d.seed }

func (d *Deck) Reshuffles() int64 { return d.reshuffles }

func (d *Deck) Len() int { return len(d.cards) }

// Cards returns a copy of the remaining draw pile, top of the pile last.
func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}

// Draw removes and returns the top card. ok is false when the deck is empty.
func (d *Deck) Draw() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	c := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return c, true
}

// Reshuffle folds the given cards back into the draw pile face down. The
// shuffle order comes from seed + the reshuffle counter, so replay and
// snapshot restore see the same order.
func (d *Deck) Reshuffle(cards []Card) {
	d.reshuffles++
	for _, c := range cards {
		c.FaceUp = false
		d.cards = append(d.cards, c)
	}
	rng := rand.New(rand.NewSource(d.seed + d.reshuffles))
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}
