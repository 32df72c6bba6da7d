package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 5 * time.Second

// RedisCache is the shared cache for multi-replica deployments. All
// multi-key mutations go through TxPipelined so other replicas never
// observe a half-written room.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisCache{rdb: rdb, ttl: DefaultTTL}, nil
}

func (c *RedisCache) Close() error { return c.rdb.Close() }

func roomKey(code string) string      { return "room:" + code }
func playersKey(code string) string   { return "room:" + code + ":players" }
func gameKey(gameID string) string    { return "game:" + gameID }
func playerRoomKey(pid string) string { return "player:" + pid + ":room" }

const activeRoomsKey = "rooms:active"

func (c *RedisCache) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), redisOpTimeout)
}

func (c *RedisCache) CreateRoom(code string, rec RoomRecord, playerIDs []string) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode room record: %w", err)
	}
	ctx, cancel := c.ctx()
	defer cancel()
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, roomKey(code), raw, c.ttl)
		pipe.SAdd(ctx, activeRoomsKey, code)
		if len(playerIDs) > 0 {
			members := make([]any, len(playerIDs))
			for i, id := range playerIDs {
				members[i] = id
				pipe.Set(ctx, playerRoomKey(id), code, c.ttl)
			}
			pipe.SAdd(ctx, playersKey(code), members...)
			pipe.Expire(ctx, playersKey(code), c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

func (c *RedisCache) SetRoom(code string, rec RoomRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode room record: %w", err)
	}
	ctx, cancel := c.ctx()
	defer cancel()
	if err := c.rdb.Set(ctx, roomKey(code), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set room: %w", err)
	}
	return nil
}

func (c *RedisCache) GetRoom(code string) (RoomRecord, error) {
	ctx, cancel := c.ctx()
	defer cancel()
	raw, err := c.rdb.Get(ctx, roomKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return RoomRecord{}, ErrNotFound
	}
	if err != nil {
		return RoomRecord{}, fmt.Errorf("get room: %w", err)
	}
	var rec RoomRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return RoomRecord{}, fmt.Errorf("decode room record: %w", err)
	}
	return rec, nil
}

func (c *RedisCache) DeleteRoom(code string, playerIDs []string) error {
	ctx, cancel := c.ctx()
	defer cancel()
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, roomKey(code), playersKey(code))
		pipe.SRem(ctx, activeRoomsKey, code)
		for _, id := range playerIDs {
			pipe.Del(ctx, playerRoomKey(id))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	return nil
}

func (c *RedisCache) AddPlayer(code, playerID string) error {
	ctx, cancel := c.ctx()
	defer cancel()
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, playersKey(code), playerID)
		pipe.Expire(ctx, playersKey(code), c.ttl)
		pipe.Set(ctx, playerRoomKey(playerID), code, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("add player: %w", err)
	}
	return nil
}

func (c *RedisCache) RemovePlayer(code, playerID string) error {
	ctx, cancel := c.ctx()
	defer cancel()
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, playersKey(code), playerID)
		pipe.Del(ctx, playerRoomKey(playerID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove player: %w", err)
	}
	return nil
}

func (c *RedisCache) RoomPlayers(code string) ([]string, error) {
	ctx, cancel := c.ctx()
	defer cancel()
	members, err := c.rdb.SMembers(ctx, playersKey(code)).Result()
	if err != nil {
		return nil, fmt.Errorf("room players: %w", err)
	}
	return members, nil
}

func (c *RedisCache) PlayerRoom(playerID string) (string, error) {
	ctx, cancel := c.ctx()
	defer cancel()
	code, err := c.rdb.Get(ctx, playerRoomKey(playerID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("player room: %w", err)
	}
	return code, nil
}

func (c *RedisCache) ActiveRooms() ([]string, error) {
	ctx, cancel := c.ctx()
	defer cancel()
	codes, err := c.rdb.SMembers(ctx, activeRoomsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("active rooms: %w", err)
	}
	return codes, nil
}

func (c *RedisCache) SetGameState(gameID string, state []byte) error {
	ctx, cancel := c.ctx()
	defer cancel()
	if err := c.rdb.Set(ctx, gameKey(gameID), state, c.ttl).Err(); err != nil {
		return fmt.Errorf("set game state: %w", err)
	}
	return nil
}

func (c *RedisCache) GetGameState(gameID string) ([]byte, error) {
	ctx, cancel := c.ctx()
	defer cancel()
	raw, err := c.rdb.Get(ctx, gameKey(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get game state: %w", err)
	}
	return raw, nil
}

func (c *RedisCache) DeleteGameState(gameID string) error {
	ctx, cancel := c.ctx()
	defer cancel()
	if err := c.rdb.Del(ctx, gameKey(gameID)).Err(); err != nil {
		return fmt.Errorf("delete game state: %w", err)
	}
	return nil
}

func (c *RedisCache) Touch(code, gameID string, playerIDs []string) error {
	ctx, cancel := c.ctx()
	defer cancel()
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Expire(ctx, roomKey(code), c.ttl)
		pipe.Expire(ctx, playersKey(code), c.ttl)
		if gameID != "" {
			pipe.Expire(ctx, gameKey(gameID), c.ttl)
		}
		for _, id := range playerIDs {
			pipe.Expire(ctx, playerRoomKey(id), c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("touch room: %w", err)
	}
	return nil
}
