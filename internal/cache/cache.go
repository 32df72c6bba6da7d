package cache

import (
	"errors"
	"fmt"
	"os"
	"time"
)

var ErrNotFound = errors.New("not found")

// DefaultTTL is the idle lifetime of room and game records. Touch
// refreshes it on activity.
const DefaultTTL = 24 * time.Hour

// RoomRecord is the room:{code} value.
type RoomRecord struct {
	GameID    string    `json:"game_id"`
	HostID    string    `json:"host_id"`
	Status    string    `json:"status"`
	ServerID  string    `json:"server_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Cache is the ephemeral state store. It is never the source of truth:
// on loss, games are rebuilt from the event log. Multi-key operations
// (CreateRoom, DeleteRoom, membership changes) are atomic so observers
// never see partial rooms.
type Cache interface {
	Close() error

	CreateRoom(code string, rec RoomRecord, playerIDs []string) error
	SetRoom(code string, rec RoomRecord) error
	GetRoom(code string) (RoomRecord, error)
	DeleteRoom(code string, playerIDs []string) error

	AddPlayer(code, playerID string) error
	RemovePlayer(code, playerID string) error
	RoomPlayers(code string) ([]string, error)
	PlayerRoom(playerID string) (string, error)

	ActiveRooms() ([]string, error)

	SetGameState(gameID string, state []byte) error
	GetGameState(gameID string) ([]byte, error)
	DeleteGameState(gameID string) error

	// Touch refreshes the TTLs of everything belonging to a room.
	Touch(code, gameID string, playerIDs []string) error
}

// NewCacheFromEnv builds the cache selected by CACHE_DRIVER and returns
// it with the resolved mode string.
//
//	""/"memory"  in-process, single replica
//	"redis"      shared redis (CACHE_REDIS_ADDR, CACHE_REDIS_PASSWORD, CACHE_REDIS_DB)
func NewCacheFromEnv() (Cache, string, error) {
	driver := os.Getenv("CACHE_DRIVER")
	switch driver {
	case "", "memory":
		return NewMemoryCache(DefaultTTL), "memory", nil
	case "redis":
		addr := os.Getenv("CACHE_REDIS_ADDR")
		if addr == "" {
			addr = "localhost:6379"
		}
		c, err := NewRedisCache(addr, os.Getenv("CACHE_REDIS_PASSWORD"), envIntOrDefault("CACHE_REDIS_DB", 0))
		if err != nil {
			return nil, "", err
		}
		return c, "redis:" + addr, nil
	default:
		return nil, "", fmt.Errorf("unknown CACHE_DRIVER %q", driver)
	}
}

func envIntOrDefault(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	var n int
	if _, err := fmt.Sscanf(raw, "%d", &n); err != nil {
		return def
	}
	return n
}
