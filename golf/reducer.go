package golf

import (
	"encoding/json"
	"fmt"
)

// RebuiltGameState wraps a game reconstructed from its event history plus
// the last sequence applied. Events must arrive strictly in order; a gap
// fails fast rather than producing a silently wrong state.
type RebuiltGameState struct {
	Game     *Game
	Sequence uint64
}

func NewRebuiltGameState() *RebuiltGameState {
	return &RebuiltGameState{}
}

// ResumeRebuild wraps an already-live game so further events can be
// applied on top, for incremental catch-up.
func ResumeRebuild(g *Game) *RebuiltGameState {
	return &RebuiltGameState{Game: g, Sequence: g.LastSeq()}
}

// Apply folds one event into the state. The first event of a game must be
// game_created at sequence 1.
func (r *RebuiltGameState) Apply(ev Event) error {
	if ev.Sequence != r.Sequence+1 {
		return fmt.Errorf("sequence gap: have %d, got event %d", r.Sequence, ev.Sequence)
	}
	if r.Game == nil {
		if ev.Type != EventGameCreated {
			return fmt.Errorf("first event must be %s, got %s", EventGameCreated, ev.Type)
		}
		var data GameCreatedData
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			return fmt.Errorf("decode %s: %w", ev.Type, err)
		}
		r.Game = NewGame(Config{
			ID:       ev.GameID,
			RoomCode: data.RoomCode,
			HostID:   data.HostID,
		})
	} else if err := r.Game.apply(ev); err != nil {
		return err
	}
	r.Game.mu.Lock()
	r.Game.setSequenceLocked(ev.Sequence)
	r.Game.mu.Unlock()
	r.Sequence = ev.Sequence
	return nil
}

// RebuildState replays a full ordered event history from scratch.
func RebuildState(events []Event) (*RebuiltGameState, error) {
	r := NewRebuiltGameState()
	for _, ev := range events {
		if err := r.Apply(ev); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// apply mutates the game for one replayed event, running the exact code
// paths the live operations use so replay cannot drift from them.
func (g *Game) apply(ev Event) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	decode := func(v any) error {
		if err := json.Unmarshal(ev.Data, v); err != nil {
			return fmt.Errorf("decode %s seq %d: %w", ev.Type, ev.Sequence, err)
		}
		return nil
	}

	switch ev.Type {
	case EventGameCreated:
		return fmt.Errorf("duplicate %s at seq %d", EventGameCreated, ev.Sequence)

	case EventPlayerJoined:
		var data PlayerJoinedData
		if err := decode(&data); err != nil {
			return err
		}
		g.addPlayerLocked(ev.PlayerID, data.Name, data.IsCPU, data.ProfileID)

	case EventPlayerLeft:
		g.removePlayerLocked(ev.PlayerID)

	case EventGameStarted:
		var data GameStartedData
		if err := decode(&data); err != nil {
			return err
		}
		g.startLocked(StartParams{
			NumDecks:     data.NumDecks,
			NumRounds:    data.NumRounds,
			InitialFlips: data.InitialFlips,
			Options:      data.Options,
		})

	case EventRoundStarted:
		var data RoundStartedData
		if err := decode(&data); err != nil {
			return err
		}
		g.startRoundLocked(data.DeckSeed)

	case EventInitialFlip:
		var data InitialFlipData
		if err := decode(&data); err != nil {
			return err
		}
		p := g.playerLocked(ev.PlayerID)
		if p == nil {
			return fmt.Errorf("%s seq %d: unknown player %s", ev.Type, ev.Sequence, ev.PlayerID)
		}
		g.flipInitialLocked(p, data.Positions)

	case EventCardDrawn:
		var data CardDrawnData
		if err := decode(&data); err != nil {
			return err
		}
		g.drawLocked(data.Source)

	case EventCardSwapped:
		var data CardSwappedData
		if err := decode(&data); err != nil {
			return err
		}
		p := g.playerLocked(ev.PlayerID)
		if p == nil {
			return fmt.Errorf("%s seq %d: unknown player %s", ev.Type, ev.Sequence, ev.PlayerID)
		}
		g.swapLocked(p, data.Position)
		g.endTurnLocked(ev.PlayerID)

	case EventCardDiscarded:
		p := g.playerLocked(ev.PlayerID)
		if p == nil {
			return fmt.Errorf("%s seq %d: unknown player %s", ev.Type, ev.Sequence, ev.PlayerID)
		}
		data := g.discardDrawnLocked(p)
		if !data.AwaitFlip {
			g.endTurnLocked(ev.PlayerID)
		}

	case EventCardFlipped:
		var data CardFlippedData
		if err := decode(&data); err != nil {
			return err
		}
		p := g.playerLocked(ev.PlayerID)
		if p == nil {
			return fmt.Errorf("%s seq %d: unknown player %s", ev.Type, ev.Sequence, ev.PlayerID)
		}
		g.flipLocked(p, data.Position)
		g.endTurnLocked(ev.PlayerID)

	case EventFlipSkipped:
		g.awaitingFlip = false
		g.endTurnLocked(ev.PlayerID)

	case EventFlipAsAction:
		var data FlipAsActionData
		if err := decode(&data); err != nil {
			return err
		}
		p := g.playerLocked(ev.PlayerID)
		if p == nil {
			return fmt.Errorf("%s seq %d: unknown player %s", ev.Type, ev.Sequence, ev.PlayerID)
		}
		g.flipLocked(p, data.Position)
		g.endTurnLocked(ev.PlayerID)

	case EventKnockEarly:
		p := g.playerLocked(ev.PlayerID)
		if p == nil {
			return fmt.Errorf("%s seq %d: unknown player %s", ev.Type, ev.Sequence, ev.PlayerID)
		}
		g.knockLocked(p)
		g.endTurnLocked(ev.PlayerID)

	case EventRoundEnded:
		g.roundEndLocked()

	case EventGameEnded:
		var data GameEndedData
		if err := decode(&data); err != nil {
			return err
		}
		g.gameEndLocked(data.Reason)

	default:
		return fmt.Errorf("unknown event type %q at seq %d", ev.Type, ev.Sequence)
	}
	return nil
}
