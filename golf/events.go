package golf

import (
	"encoding/json"
	"time"

	"golf-lite/card"
)

// Event type tags as stored in the log.
const (
	EventGameCreated   = "game_created"
	EventPlayerJoined  = "player_joined"
	EventPlayerLeft    = "player_left"
	EventGameStarted   = "game_started"
	EventRoundStarted  = "round_started"
	EventInitialFlip   = "initial_flip"
	EventCardDrawn     = "card_drawn"
	EventCardSwapped   = "card_swapped"
	EventCardDiscarded = "card_discarded"
	EventCardFlipped   = "card_flipped"
	EventFlipSkipped   = "flip_skipped"
	EventFlipAsAction  = "flip_as_action"
	EventKnockEarly    = "knock_early"
	EventRoundEnded    = "round_ended"
	EventGameEnded     = "game_ended"
)

// Event is one entry of a game's append-only history. Sequence starts at 1
// and is gap-free per game.
type Event struct {
	Type      string          `json:"type"`
	GameID    string          `json:"game_id"`
	Sequence  uint64          `json:"sequence"`
	PlayerID  string          `json:"player_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type GameCreatedData struct {
	RoomCode string `json:"room_code"`
	HostID   string `json:"host_id"`
}

type PlayerJoinedData struct {
	Name      string `json:"name"`
	IsCPU     bool   `json:"is_cpu,omitempty"`
	ProfileID string `json:"profile_id,omitempty"`
}

type GameStartedData struct {
	NumDecks     int      `json:"num_decks"`
	NumRounds    int      `json:"num_rounds"`
	InitialFlips int      `json:"initial_flips"`
	Options      Options  `json:"options"`
	PlayerIDs    []string `json:"player_ids"`
}

// RoundStartedData records everything needed to re-deal the round: the
// deck seed actually used plus the dealt hands and opening discard.
type RoundStartedData struct {
	Round    int                    `json:"round"`
	DeckSeed int64                  `json:"deck_seed"`
	Hands    map[string][]card.Card `json:"hands"`
	Discard  card.Card              `json:"discard"`
}

type InitialFlipData struct {
	Positions []int       `json:"positions"`
	Cards     []card.Card `json:"cards"`
}

type CardDrawnData struct {
	Source string `json:"source"`
}

type CardSwappedData struct {
	Position int       `json:"position"`
	NewCard  card.Card `json:"new_card"`
	OldCard  card.Card `json:"old_card"`
}

type CardDiscardedData struct {
	Card      card.Card `json:"card"`
	AwaitFlip bool      `json:"await_flip"`
}

type CardFlippedData struct {
	Position int       `json:"position"`
	Card     card.Card `json:"card"`
}

type FlipAsActionData struct {
	Position int       `json:"position"`
	Card     card.Card `json:"card"`
}

type KnockEarlyData struct {
	Revealed []int `json:"revealed"`
}

// RoundEndedData carries the full reveal and scoring of a round.
type RoundEndedData struct {
	Round       int                    `json:"round"`
	Hands       map[string][]card.Card `json:"hands"`
	HandScores  map[string]int         `json:"hand_scores"`
	RoundScores map[string]int         `json:"round_scores"`
	Totals      map[string]int         `json:"totals"`
	Winners     []string               `json:"winners"`
	FinisherID  string                 `json:"finisher_id,omitempty"`
}

type GameEndedData struct {
	Reason  string         `json:"reason"`
	Totals  map[string]int `json:"totals"`
	Winners []string       `json:"winners"`
}
