package golf

import (
	"math/rand"
	"sort"
	"time"

	"golf-lite/card"
)

// GameState is the full serialized form kept in the state cache. It
// carries everything needed to resume play, including the deck order, so
// a server restart with a warm cache skips the event replay.
type GameState struct {
	ID       string `json:"id"`
	RoomCode string `json:"room_code"`
	HostID   string `json:"host_id"`

	Phase        string  `json:"phase"`
	Round        int     `json:"round"`
	TotalRounds  int     `json:"total_rounds"`
	NumDecks     int     `json:"num_decks"`
	InitialFlips int     `json:"initial_flips"`
	Options      Options `json:"options"`

	Players    []*Player `json:"players"`
	CurrentIdx int       `json:"current_idx"`

	DrawnCard        *card.Card `json:"drawn_card,omitempty"`
	DrawnFromDiscard bool       `json:"drawn_from_discard,omitempty"`
	AwaitingFlip     bool       `json:"awaiting_flip,omitempty"`

	Discard        []card.Card `json:"discard"`
	DeckSeed       int64       `json:"deck_seed,omitempty"`
	DeckReshuffles int64       `json:"deck_reshuffles,omitempty"`
	DeckCards      []card.Card `json:"deck_cards,omitempty"`

	FinisherID     string   `json:"finisher_id,omitempty"`
	FinalTurnDone  []string `json:"final_turn_done,omitempty"`
	InitialFlipped []string `json:"initial_flipped,omitempty"`

	LastSeq uint64 `json:"last_seq"`
}

// ExportState captures the game for the cache. A game rebuilt from the
// event log exports the same state as the live one did.
func (g *Game) ExportState() *GameState {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := &GameState{
		ID:           g.cfg.ID,
		RoomCode:     g.cfg.RoomCode,
		HostID:       g.cfg.HostID,
		Phase:        g.phase.String(),
		Round:        g.round,
		TotalRounds:  g.totalRounds,
		NumDecks:     g.numDecks,
		InitialFlips: g.initialFlips,
		Options:      g.opts,
		CurrentIdx:   g.currentIdx,

		DrawnFromDiscard: g.drawnFromDiscard,
		AwaitingFlip:     g.awaitingFlip,

		Discard: append([]card.Card(nil), g.discard...),

		FinisherID:     g.finisherID,
		FinalTurnDone:  sortedKeys(g.finalTurnDone),
		InitialFlipped: sortedKeys(g.initialFlipped),

		LastSeq: g.lastSeq,
	}
	for _, p := range g.players {
		cp := *p
		cp.Cards = append([]card.Card(nil), p.Cards...)
		st.Players = append(st.Players, &cp)
	}
	if g.drawnCard != nil {
		c := *g.drawnCard
		st.DrawnCard = &c
	}
	if g.deck != nil {
		st.DeckSeed = g.deck.Seed()
		st.DeckReshuffles = g.deck.Reshuffles()
		st.DeckCards = g.deck.Cards()
	}
	return st
}

// RestoreGame rebuilds a live game from a cached state.
func RestoreGame(st *GameState) *Game {
	g := &Game{
		cfg: Config{ID: st.ID, RoomCode: st.RoomCode, HostID: st.HostID},
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),

		phase:        phaseFromString(st.Phase),
		round:        st.Round,
		totalRounds:  st.TotalRounds,
		numDecks:     st.NumDecks,
		initialFlips: st.InitialFlips,
		opts:         st.Options,
		currentIdx:   st.CurrentIdx,

		drawnFromDiscard: st.DrawnFromDiscard,
		awaitingFlip:     st.AwaitingFlip,

		discard: append([]card.Card(nil), st.Discard...),

		finisherID:     st.FinisherID,
		finalTurnDone:  map[string]bool{},
		initialFlipped: map[string]bool{},

		lastSeq: st.LastSeq,
	}
	for _, p := range st.Players {
		cp := *p
		cp.Cards = append([]card.Card(nil), p.Cards...)
		g.players = append(g.players, &cp)
	}
	if st.DrawnCard != nil {
		c := *st.DrawnCard
		g.drawnCard = &c
	}
	if st.DeckSeed != 0 {
		g.deck = card.RestoreDeck(st.DeckSeed, st.DeckReshuffles, st.DeckCards)
	}
	for _, id := range st.FinalTurnDone {
		g.finalTurnDone[id] = true
	}
	for _, id := range st.InitialFlipped {
		g.initialFlipped[id] = true
	}
	return g
}

func phaseFromString(s string) Phase {
	for p, name := range PhaseDictionary {
		if name == s {
			return p
		}
	}
	return PhaseWaiting
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
