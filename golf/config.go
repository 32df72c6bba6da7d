package golf

// Config identifies a game. Seed, when non-zero, fixes the first round's
// deck order for deterministic games.
type Config struct {
	ID       string
	RoomCode string
	HostID   string
	Seed     int64
}

// StartParams are the host's settings when the game starts. Normalize
// clamps them to legal ranges.
type StartParams struct {
	NumDecks     int
	NumRounds    int
	InitialFlips int
	Options      Options
}

func (p *StartParams) Normalize() {
	if p.NumDecks < 1 {
		p.NumDecks = 1
	}
	if p.NumDecks > 3 {
		p.NumDecks = 3
	}
	if p.NumRounds < 1 {
		p.NumRounds = 1
	}
	if p.NumRounds > 18 {
		p.NumRounds = 18
	}
	if p.InitialFlips < 0 {
		p.InitialFlips = 0
	}
	if p.InitialFlips > 2 {
		p.InitialFlips = 2
	}
}
