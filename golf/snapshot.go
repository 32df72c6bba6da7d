package golf

import "golf-lite/card"

// Snapshot is a consistent read-only view of the game, taken under the
// lock. Cards are unmasked; per-viewer masking happens at the wire layer.
type Snapshot struct {
	ID       string
	RoomCode string

	Phase        Phase
	Round        int
	TotalRounds  int
	NumDecks     int
	InitialFlips int
	Options      Options

	Players    []PlayerSnapshot
	CurrentIdx int
	CurrentID  string

	DrawnCard        *card.Card
	DrawnFromDiscard bool
	AwaitingFlip     bool

	DiscardTop *card.Card
	DeckCount  int

	FinisherID string
	LastSeq    uint64
}

type PlayerSnapshot struct {
	ID             string
	Name           string
	IsCPU          bool
	ProfileID      string
	Cards          []card.Card
	RoundScore     int
	TotalScore     int
	RoundsWon      int
	InitialFlipped bool
}

func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := Snapshot{
		ID:           g.cfg.ID,
		RoomCode:     g.cfg.RoomCode,
		Phase:        g.phase,
		Round:        g.round,
		TotalRounds:  g.totalRounds,
		NumDecks:     g.numDecks,
		InitialFlips: g.initialFlips,
		Options:      g.opts,
		CurrentIdx:   g.currentIdx,

		DrawnFromDiscard: g.drawnFromDiscard,
		AwaitingFlip:     g.awaitingFlip,

		FinisherID: g.finisherID,
		LastSeq:    g.lastSeq,
	}
	if cur := g.currentPlayerLocked(); cur != nil {
		s.CurrentID = cur.ID
	}
	for _, p := range g.players {
		s.Players = append(s.Players, PlayerSnapshot{
			ID:             p.ID,
			Name:           p.Name,
			IsCPU:          p.IsCPU,
			ProfileID:      p.ProfileID,
			Cards:          append([]card.Card(nil), p.Cards...),
			RoundScore:     p.RoundScore,
			TotalScore:     p.TotalScore,
			RoundsWon:      p.RoundsWon,
			InitialFlipped: g.initialFlipped[p.ID],
		})
	}
	if g.drawnCard != nil {
		c := *g.drawnCard
		s.DrawnCard = &c
	}
	if len(g.discard) > 0 {
		c := g.discard[len(g.discard)-1]
		s.DiscardTop = &c
	}
	if g.deck != nil {
		s.DeckCount = g.deck.Len()
	}
	return s
}
