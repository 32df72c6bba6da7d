package codec

import (
	"golf-lite/card"
	"golf-lite/golf"
)

// CardView is a card as one particular viewer may see it. A hidden card
// serializes as {"face_up":false} with no suit or rank.
type CardView struct {
	Suit   string `json:"suit,omitempty"`
	Rank   string `json:"rank,omitempty"`
	FaceUp bool   `json:"face_up"`
}

// ViewCard reveals the card to the viewer regardless of orientation.
// Used for a player's own hand and for the drawn card.
func ViewCard(c card.Card) CardView {
	return CardView{Suit: string(c.Suit), Rank: string(c.Rank), FaceUp: c.FaceUp}
}

// MaskCard hides the identity of a face-down card, for opponents.
func MaskCard(c card.Card) CardView {
	if !c.FaceUp {
		return CardView{FaceUp: false}
	}
	return ViewCard(c)
}

type PlayerView struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	IsCPU      bool       `json:"is_cpu,omitempty"`
	Host       bool       `json:"host,omitempty"`
	Cards      []CardView `json:"cards"`
	RoundScore int        `json:"round_score"`
	TotalScore int        `json:"total_score"`
	RoundsWon  int        `json:"rounds_won"`
}

// GameStateMsg is the personalized full-state broadcast. DrawnCard is
// present only in the current player's copy.
type GameStateMsg struct {
	Type          string          `json:"type"`
	RoomCode      string          `json:"room_code"`
	Phase         string          `json:"phase"`
	Round         int             `json:"round"`
	TotalRounds   int             `json:"total_rounds"`
	InitialFlips  int             `json:"initial_flips"`
	CurrentPlayer string          `json:"current_player,omitempty"`
	FinisherID    string          `json:"finisher_id,omitempty"`
	HasDrawn      bool            `json:"has_drawn,omitempty"`
	DrawnCard     *CardView       `json:"drawn_card,omitempty"`
	AwaitingFlip  bool            `json:"awaiting_flip,omitempty"`
	DiscardTop    *CardView       `json:"discard_top,omitempty"`
	DeckCount     int             `json:"deck_count"`
	Players       []PlayerView    `json:"players"`
	Options       map[string]bool `json:"options,omitempty"`
}

// ProjectState renders the snapshot for one viewer: their own face-down
// cards are revealed to them, every other hidden card stays hidden.
func ProjectState(snap golf.Snapshot, viewerID, hostID string) GameStateMsg {
	msg := GameStateMsg{
		Type:          "game_state",
		RoomCode:      snap.RoomCode,
		Phase:         snap.Phase.String(),
		Round:         snap.Round,
		TotalRounds:   snap.TotalRounds,
		InitialFlips:  snap.InitialFlips,
		CurrentPlayer: snap.CurrentID,
		FinisherID:    snap.FinisherID,
		AwaitingFlip:  snap.AwaitingFlip,
		DeckCount:     snap.DeckCount,
		Options:       snap.Options.Flags(),
	}
	if snap.DiscardTop != nil {
		v := ViewCard(*snap.DiscardTop)
		msg.DiscardTop = &v
	}
	if snap.DrawnCard != nil {
		msg.HasDrawn = true
		if viewerID == snap.CurrentID {
			v := ViewCard(*snap.DrawnCard)
			v.FaceUp = true
			msg.DrawnCard = &v
		}
	}
	for _, p := range snap.Players {
		view := PlayerView{
			ID:         p.ID,
			Name:       p.Name,
			IsCPU:      p.IsCPU,
			Host:       p.ID == hostID,
			RoundScore: p.RoundScore,
			TotalScore: p.TotalScore,
			RoundsWon:  p.RoundsWon,
		}
		for _, c := range p.Cards {
			if p.ID == viewerID {
				view.Cards = append(view.Cards, ViewCard(c))
			} else {
				view.Cards = append(view.Cards, MaskCard(c))
			}
		}
		msg.Players = append(msg.Players, view)
	}
	return msg
}
