package eventlog

import (
	"context"
	"sort"
	"sync"
	"time"

	"golf-lite/golf"
)

// MemoryStore is the event log for tests and throwaway runs. Same
// contract as the SQL backends, including sequence-conflict detection.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	events map[string]map[uint64]golf.Event
	meta   map[string]GameMeta
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		events: map[string]map[uint64]golf.Event{},
		meta:   map[string]GameMeta{},
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Append(ctx context.Context, ev golf.Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(ev)
}

func (s *MemoryStore) appendLocked(ev golf.Event) (int64, error) {
	game := s.events[ev.GameID]
	if game == nil {
		game = map[uint64]golf.Event{}
		s.events[ev.GameID] = game
	}
	if _, taken := game[ev.Sequence]; taken {
		return 0, ErrSequenceConflict
	}
	game[ev.Sequence] = ev
	id := s.nextID
	s.nextID++
	return id, nil
}

func (s *MemoryStore) AppendBatch(ctx context.Context, evs []golf.Event) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// All or nothing: check every slot before taking any.
	for _, ev := range evs {
		if _, taken := s.events[ev.GameID][ev.Sequence]; taken {
			return nil, ErrSequenceConflict
		}
	}
	ids := make([]int64, 0, len(evs))
	for _, ev := range evs {
		id, err := s.appendLocked(ev)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemoryStore) GetEvents(ctx context.Context, gameID string, fromSeq, toSeq uint64) ([]golf.Event, error) {
	if fromSeq == 0 {
		fromSeq = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []golf.Event
	for seq, ev := range s.events[gameID] {
		if seq < fromSeq || (toSeq > 0 && seq > toSeq) {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (s *MemoryStore) GetLatestSequence(ctx context.Context, gameID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	latest := int64(-1)
	for seq := range s.events[gameID] {
		if int64(seq) > latest {
			latest = int64(seq)
		}
	}
	return latest, nil
}

func (s *MemoryStore) StreamEvents(ctx context.Context, gameID string, fromSeq uint64) (<-chan golf.Event, <-chan error) {
	return streamPaged(ctx, s, gameID, fromSeq)
}

func (s *MemoryStore) UpsertGameMeta(ctx context.Context, meta GameMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := s.meta[meta.ID]; ok {
		meta.CreatedAt = existing.CreatedAt
	} else if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}
	meta.UpdatedAt = now
	s.meta[meta.ID] = meta
	return nil
}

func (s *MemoryStore) SetGameStatus(ctx context.Context, gameID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.meta[gameID]
	if !ok {
		return ErrNotFound
	}
	meta.Status = status
	meta.UpdatedAt = time.Now().UTC()
	s.meta[gameID] = meta
	return nil
}

func (s *MemoryStore) SetGameWinner(ctx context.Context, gameID, winnerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.meta[gameID]
	if !ok {
		return ErrNotFound
	}
	meta.WinnerID = winnerID
	meta.UpdatedAt = time.Now().UTC()
	s.meta[gameID] = meta
	return nil
}

func (s *MemoryStore) ListActiveGames(ctx context.Context) ([]GameMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []GameMeta
	for _, meta := range s.meta {
		if meta.Status == StatusActive {
			out = append(out, meta)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetGameMeta(ctx context.Context, gameID string) (GameMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.meta[gameID]
	if !ok {
		return GameMeta{}, ErrNotFound
	}
	return meta, nil
}
