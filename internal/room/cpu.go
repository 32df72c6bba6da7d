package room

import (
	"context"
	"log"
	"time"

	"golf-lite/golf"
	"golf-lite/golf/npc"
)

// CPU turns run on a short randomized delay so moves land at a human
// pace instead of instantly.
const (
	cpuThinkMin    = 250 * time.Millisecond
	cpuThinkSpread = 650 * time.Millisecond
)

func (m *Manager) thinkDelay() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cpuThinkMin + time.Duration(m.codeRng.Int63n(int64(cpuThinkSpread)))
}

// scheduleCPULocked queues a think goroutine for every CPU seat that
// must act right now. Duplicate schedules for a seat are coalesced.
func (m *Manager) scheduleCPULocked(r *Room) {
	if m.brain == nil || r.closed {
		return
	}
	if r.cpuBusy == nil {
		r.cpuBusy = map[string]bool{}
	}
	snap := r.game.Snapshot()
	switch snap.Phase {
	case golf.PhaseInitialFlip:
		for _, p := range snap.Players {
			if p.IsCPU && !p.InitialFlipped && !r.cpuBusy[p.ID] {
				r.cpuBusy[p.ID] = true
				go m.driveCPU(r, p.ID)
			}
		}
	case golf.PhasePlaying, golf.PhaseFinalTurn:
		cur := r.memberLocked(snap.CurrentID)
		if cur != nil && cur.IsCPU && !r.cpuBusy[cur.ID] {
			r.cpuBusy[cur.ID] = true
			go m.driveCPU(r, cur.ID)
		}
	}
}

// driveCPU performs one CPU decision. The room may have moved on during
// the think delay, so every precondition is re-checked under the lock
// before the brain is consulted.
func (m *Manager) driveCPU(r *Room, cpuID string) {
	time.Sleep(m.thinkDelay())

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cpuBusy, cpuID)
	if r.closed {
		return
	}
	mem := r.memberLocked(cpuID)
	if mem == nil || !mem.IsCPU {
		return
	}

	snap := r.game.Snapshot()
	var seat *golf.PlayerSnapshot
	for i := range snap.Players {
		if snap.Players[i].ID == cpuID {
			seat = &snap.Players[i]
			break
		}
	}
	if seat == nil {
		return
	}
	switch snap.Phase {
	case golf.PhaseInitialFlip:
		if seat.InitialFlipped {
			return
		}
	case golf.PhasePlaying, golf.PhaseFinalTurn:
		if snap.CurrentID != cpuID {
			return
		}
	default:
		return
	}

	profile, _ := m.profiles.Get(mem.ProfileID)
	view := npc.GameView{
		Phase:            snap.Phase,
		Hand:             seat.Cards,
		DiscardTop:       snap.DiscardTop,
		DrawnCard:        snap.DrawnCard,
		DrawnFromDiscard: snap.DrawnFromDiscard,
		AwaitingFlip:     snap.AwaitingFlip,
		InitialFlips:     snap.InitialFlips,
		Options:          snap.Options,
	}
	action := m.brain.Decide(view, profile)

	err := m.applyLocked(context.Background(), r, func(g *golf.Game) ([]golf.Event, error) {
		switch action.Type {
		case npc.ActionFlipInitial:
			return g.FlipInitial(cpuID, action.Positions)
		case npc.ActionDraw:
			return g.DrawCard(cpuID, action.Source)
		case npc.ActionSwap:
			return g.SwapCard(cpuID, action.Position)
		case npc.ActionDiscard:
			return g.DiscardDrawn(cpuID)
		case npc.ActionFlip:
			return g.FlipAndEndTurn(cpuID, action.Position)
		case npc.ActionSkipFlip:
			return g.SkipFlip(cpuID)
		case npc.ActionKnock:
			return g.KnockEarly(cpuID)
		default:
			return nil, golf.ErrInvalidState("cpu action " + action.Type)
		}
	})
	if err != nil {
		// No retry loop here: the next state change reschedules the seat.
		log.Printf("[Room %s] cpu %s action %s failed: %v", r.Code, cpuID, action.Type, err)
	}
}
