package golf

import "golf-lite/card"

// Player is a seat in the game. Cards has HandSize entries once a round is
// dealt; columns pair position i with i+3.
type Player struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	IsCPU      bool        `json:"is_cpu,omitempty"`
	ProfileID  string      `json:"profile_id,omitempty"`
	Cards      []card.Card `json:"cards"`
	RoundScore int         `json:"round_score"`
	TotalScore int         `json:"total_score"`
	RoundsWon  int         `json:"rounds_won"`
}

func (p *Player) allFaceUp() bool {
	if len(p.Cards) == 0 {
		return false
	}
	for _, c := range p.Cards {
		if !c.FaceUp {
			return false
		}
	}
	return true
}

func (p *Player) faceDownCount() int {
	n := 0
	for _, c := range p.Cards {
		if !c.FaceUp {
			n++
		}
	}
	return n
}
