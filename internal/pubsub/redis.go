package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix  = "room:"
	channelPattern = "room:*"

	resubscribeBase = time.Second
	resubscribeMax  = 30 * time.Second
)

// RedisBus carries notices over redis pub/sub, one channel per room. The
// listener loop re-subscribes with capped backoff on transport errors and
// never surfaces them to callers.
type RedisBus struct {
	rdb      *redis.Client
	serverID string

	mu      sync.Mutex
	nextSub int
	subs    map[int]func(Notice)

	stop   chan struct{}
	closed sync.Once
}

func NewRedisBus(addr, password, serverID string) (*RedisBus, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	b := &RedisBus{
		rdb:      rdb,
		serverID: serverID,
		subs:     map[int]func(Notice){},
		stop:     make(chan struct{}),
	}
	go b.listen()
	return b, nil
}

func (b *RedisBus) Close() error {
	b.closed.Do(func() { close(b.stop) })
	return b.rdb.Close()
}

func (b *RedisBus) Publish(ctx context.Context, room string, n Notice) error {
	n.Room = room
	n.ServerID = b.serverID
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notice: %w", err)
	}
	if err := b.rdb.Publish(ctx, channelPrefix+room, raw).Err(); err != nil {
		return fmt.Errorf("publish notice: %w", err)
	}
	return nil
}

func (b *RedisBus) Subscribe(fn func(Notice)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}, nil
}

// nextBackoff picks the retry delay after a failed subscription. A
// session that delivered messages resets the ladder; consecutive dead
// sessions double it up to the cap.
func nextBackoff(cur time.Duration, hadTraffic bool) time.Duration {
	if hadTraffic || cur < resubscribeBase {
		return resubscribeBase
	}
	cur *= 2
	if cur > resubscribeMax {
		cur = resubscribeMax
	}
	return cur
}

func (b *RedisBus) listen() {
	var backoff time.Duration
	for {
		select {
		case <-b.stop:
			return
		default:
		}

		ctx, cancel := context.WithCancel(context.Background())
		pubsub := b.rdb.PSubscribe(ctx, channelPattern)
		hadTraffic, err := b.receive(ctx, pubsub)
		pubsub.Close()
		cancel()
		if err == nil {
			return
		}

		backoff = nextBackoff(backoff, hadTraffic)
		log.Printf("[PubSub] listener error, resubscribing in %s: %v", backoff, err)
		select {
		case <-b.stop:
			return
		case <-time.After(backoff):
		}
	}
}

// receive pumps one subscription session. It reports whether any message
// arrived before the session died.
func (b *RedisBus) receive(ctx context.Context, pubsub *redis.PubSub) (bool, error) {
	hadTraffic := false
	for {
		select {
		case <-b.stop:
			return hadTraffic, nil
		default:
		}
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return hadTraffic, err
		}
		hadTraffic = true
		var n Notice
		if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
			log.Printf("[PubSub] dropping malformed notice on %s: %v", msg.Channel, err)
			continue
		}
		if n.ServerID == b.serverID {
			continue
		}
		b.mu.Lock()
		fns := make([]func(Notice), 0, len(b.subs))
		for _, fn := range b.subs {
			fns = append(fns, fn)
		}
		b.mu.Unlock()
		for _, fn := range fns {
			fn(n)
		}
	}
}
