package pubsub

import (
	"context"
	"sync"
)

// MemoryHub is the in-process transport. One hub stands in for the redis
// server; each simulated replica takes a Bus off it with its own server
// id, which is how the tests exercise cross-replica filtering.
type MemoryHub struct {
	mu      sync.Mutex
	nextSub int
	subs    map[int]*memorySub
}

type memorySub struct {
	serverID string
	fn       func(Notice)
}

func NewMemoryHub() *MemoryHub {
	return &MemoryHub{subs: map[int]*memorySub{}}
}

func (h *MemoryHub) publish(n Notice) {
	h.mu.Lock()
	targets := make([]*memorySub, 0, len(h.subs))
	for _, sub := range h.subs {
		if sub.serverID != n.ServerID {
			targets = append(targets, sub)
		}
	}
	h.mu.Unlock()
	for _, sub := range targets {
		sub.fn(n)
	}
}

func (h *MemoryHub) subscribe(serverID string, fn func(Notice)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextSub
	h.nextSub++
	h.subs[id] = &memorySub{serverID: serverID, fn: fn}
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

// Bus returns this replica's view of the hub.
func (h *MemoryHub) Bus(serverID string) Bus {
	return &memoryBus{hub: h, serverID: serverID}
}

type memoryBus struct {
	hub      *MemoryHub
	serverID string
}

func (b *memoryBus) Close() error { return nil }

func (b *memoryBus) Publish(ctx context.Context, room string, n Notice) error {
	n.Room = room
	n.ServerID = b.serverID
	b.hub.publish(n)
	return nil
}

func (b *memoryBus) Subscribe(fn func(Notice)) (func(), error) {
	return b.hub.subscribe(b.serverID, fn), nil
}
