package golf

// Phase of a game's lifecycle. Transitions only move forward within a
// round; StartNextRound loops round_over back to playing.
type Phase byte

const (
	PhaseWaiting Phase = iota
	PhaseInitialFlip
	PhasePlaying
	PhaseFinalTurn
	PhaseRoundOver
	PhaseGameOver
)

var PhaseDictionary = map[Phase]string{
	PhaseWaiting:     "waiting",
	PhaseInitialFlip: "initial_flip",
	PhasePlaying:     "playing",
	PhaseFinalTurn:   "final_turn",
	PhaseRoundOver:   "round_over",
	PhaseGameOver:    "game_over",
}

func (p Phase) String() string {
	if s, ok := PhaseDictionary[p]; ok {
		return s
	}
	return "unknown"
}

const (
	HandSize   = 6
	MaxPlayers = 6
	MinPlayers = 2
)

// Draw sources.
const (
	SourceDeck    = "deck"
	SourceDiscard = "discard"
)

// Room status strings as stored in the cache layer.
const (
	StatusWaiting  = "waiting"
	StatusPlaying  = "playing"
	StatusFinished = "finished"
)

// StatusForPhase maps an engine phase to the room status the cache carries.
func StatusForPhase(p Phase) string {
	switch p {
	case PhaseWaiting:
		return StatusWaiting
	case PhaseRoundOver, PhaseGameOver:
		return StatusFinished
	default:
		return StatusPlaying
	}
}
