package cache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const memoryCacheSize = 4096

// MemoryCache is the single-replica cache. TTL'd values live in
// expirable LRUs; the membership sets are plain maps guarded by one
// mutex so multi-key mutations are naturally atomic. The maps inherit
// the room record's TTL: readers drop entries whose record has expired.
type MemoryCache struct {
	mu         sync.Mutex
	rooms      *expirable.LRU[string, RoomRecord]
	games      *expirable.LRU[string, []byte]
	players    map[string]map[string]bool
	playerRoom map[string]string
	active     map[string]bool
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		rooms:      expirable.NewLRU[string, RoomRecord](memoryCacheSize, nil, ttl),
		games:      expirable.NewLRU[string, []byte](memoryCacheSize, nil, ttl),
		players:    map[string]map[string]bool{},
		playerRoom: map[string]string{},
		active:     map[string]bool{},
	}
}

func (c *MemoryCache) Close() error { return nil }

// sweepRoomLocked clears the membership entries of a room whose record
// has expired out of the LRU. Returns whether the room is still alive.
func (c *MemoryCache) sweepRoomLocked(code string) bool {
	if _, ok := c.rooms.Get(code); ok {
		return true
	}
	delete(c.active, code)
	for id := range c.players[code] {
		if c.playerRoom[id] == code {
			delete(c.playerRoom, id)
		}
	}
	delete(c.players, code)
	return false
}

func (c *MemoryCache) CreateRoom(code string, rec RoomRecord, playerIDs []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms.Add(code, rec)
	c.active[code] = true
	set := map[string]bool{}
	for _, id := range playerIDs {
		set[id] = true
		c.playerRoom[id] = code
	}
	c.players[code] = set
	return nil
}

func (c *MemoryCache) SetRoom(code string, rec RoomRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms.Add(code, rec)
	return nil
}

func (c *MemoryCache) GetRoom(code string) (RoomRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.rooms.Get(code)
	if !ok {
		return RoomRecord{}, ErrNotFound
	}
	return rec, nil
}

func (c *MemoryCache) DeleteRoom(code string, playerIDs []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms.Remove(code)
	delete(c.active, code)
	delete(c.players, code)
	for _, id := range playerIDs {
		if c.playerRoom[id] == code {
			delete(c.playerRoom, id)
		}
	}
	return nil
}

func (c *MemoryCache) AddPlayer(code, playerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	set := c.players[code]
	if set == nil {
		set = map[string]bool{}
		c.players[code] = set
	}
	set[playerID] = true
	c.playerRoom[playerID] = code
	return nil
}

func (c *MemoryCache) RemovePlayer(code, playerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.players[code], playerID)
	if c.playerRoom[playerID] == code {
		delete(c.playerRoom, playerID)
	}
	return nil
}

func (c *MemoryCache) RoomPlayers(code string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.sweepRoomLocked(code) {
		return nil, nil
	}
	var out []string
	for id := range c.players[code] {
		out = append(out, id)
	}
	return out, nil
}

func (c *MemoryCache) PlayerRoom(playerID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	code, ok := c.playerRoom[playerID]
	if !ok || !c.sweepRoomLocked(code) {
		return "", ErrNotFound
	}
	return code, nil
}

func (c *MemoryCache) ActiveRooms() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for code := range c.active {
		if c.sweepRoomLocked(code) {
			out = append(out, code)
		}
	}
	return out, nil
}

func (c *MemoryCache) SetGameState(gameID string, state []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.games.Add(gameID, state)
	return nil
}

func (c *MemoryCache) GetGameState(gameID string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.games.Get(gameID)
	if !ok {
		return nil, ErrNotFound
	}
	return state, nil
}

func (c *MemoryCache) DeleteGameState(gameID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.games.Remove(gameID)
	return nil
}

func (c *MemoryCache) Touch(code, gameID string, playerIDs []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Re-adding resets the entry's expiry.
	if rec, ok := c.rooms.Get(code); ok {
		c.rooms.Add(code, rec)
	}
	if gameID != "" {
		if state, ok := c.games.Get(gameID); ok {
			c.games.Add(gameID, state)
		}
	}
	return nil
}
