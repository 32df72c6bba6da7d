package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Notice types carried on the room channels.
const (
	NoticeStateUpdate  = "state_update"
	NoticePlayerJoined = "player_joined"
	NoticePlayerLeft   = "player_left"
	NoticeRoomClosed   = "room_closed"
	NoticeBroadcast    = "broadcast"
)

// Notice is one cross-replica message. ServerID identifies the publisher
// so subscribers can drop their own notices.
type Notice struct {
	Type     string          `json:"type"`
	Room     string          `json:"room"`
	ServerID string          `json:"server_id"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Bus fans notices out to every other replica. Delivery is best-effort;
// the bus never blocks game processing on a slow transport.
type Bus interface {
	Close() error
	Publish(ctx context.Context, room string, n Notice) error

	// Subscribe registers fn for every foreign notice on any room
	// channel. The returned cancel detaches the subscriber.
	Subscribe(fn func(Notice)) (cancel func(), err error)
}

// NewBusFromEnv builds the bus selected by PUBSUB_DRIVER and returns it
// with the resolved mode string.
//
//	""/"memory"  in-process hub, single replica
//	"redis"      redis pub/sub (PUBSUB_REDIS_ADDR, PUBSUB_REDIS_PASSWORD)
func NewBusFromEnv(serverID string) (Bus, string, error) {
	driver := os.Getenv("PUBSUB_DRIVER")
	switch driver {
	case "", "memory":
		return NewMemoryHub().Bus(serverID), "memory", nil
	case "redis":
		addr := os.Getenv("PUBSUB_REDIS_ADDR")
		if addr == "" {
			addr = "localhost:6379"
		}
		b, err := NewRedisBus(addr, os.Getenv("PUBSUB_REDIS_PASSWORD"), serverID)
		if err != nil {
			return nil, "", err
		}
		return b, "redis:" + addr, nil
	default:
		return nil, "", fmt.Errorf("unknown PUBSUB_DRIVER %q", driver)
	}
}
