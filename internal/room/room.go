package room

import (
	"sync"
	"time"

	"golf-lite/golf"
)

// Sender delivers outbound messages to one connected player. The
// websocket layer implements it; tests use an in-memory recorder.
type Sender interface {
	SendJSON(v any)
}

// Member is one seat's room-level bookkeeping. Conn is nil for CPU
// seats and for humans currently disconnected.
type Member struct {
	ID        string
	Name      string
	IsCPU     bool
	ProfileID string
	JoinedAt  time.Time
	Conn      Sender
}

// Room binds a game to its members and its serialization lock. Every
// read-then-write against the game happens with mu held for the whole
// operation, which is what linearizes concurrent client messages.
type Room struct {
	Code   string
	GameID string

	mu         sync.Mutex
	hostID     string
	members    []*Member
	game       *golf.Game
	lastActive time.Time
	closed     bool
	cpuBusy    map[string]bool
}

func (r *Room) memberLocked(id string) *Member {
	for _, m := range r.members {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (r *Room) removeMemberLocked(id string) {
	for i, m := range r.members {
		if m.ID == id {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return
		}
	}
}

func (r *Room) humanCountLocked() int {
	n := 0
	for _, m := range r.members {
		if !m.IsCPU {
			n++
		}
	}
	return n
}

func (r *Room) memberIDsLocked() []string {
	out := make([]string, len(r.members))
	for i, m := range r.members {
		out[i] = m.ID
	}
	return out
}

// oldestHumanLocked is the host-reassignment rule: the earliest-joined
// human still in the room.
func (r *Room) oldestHumanLocked() *Member {
	for _, m := range r.members {
		if !m.IsCPU {
			return m
		}
	}
	return nil
}

// HostID returns the current host.
func (r *Room) HostID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

// IsIdleFor reports whether the room has seen no activity for d.
func (r *Room) IsIdleFor(d time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.IsIdleForLocked(d)
}

func (r *Room) IsIdleForLocked(d time.Duration) bool {
	return time.Since(r.lastActive) >= d
}

func (r *Room) broadcastLocked(msg any) {
	for _, m := range r.members {
		if m.Conn != nil {
			m.Conn.SendJSON(msg)
		}
	}
}

func (r *Room) sendToLocked(playerID string, msg any) {
	if m := r.memberLocked(playerID); m != nil && m.Conn != nil {
		m.Conn.SendJSON(msg)
	}
}
