package pubsub

import (
	"context"
	"encoding/json"
	"testing"
)

func TestHubDeliversToOtherReplicas(t *testing.T) {
	hub := NewMemoryHub()
	a := hub.Bus("replica-a")
	b := hub.Bus("replica-b")

	var gotA, gotB []Notice
	cancelA, err := a.Subscribe(func(n Notice) { gotA = append(gotA, n) })
	if err != nil {
		t.Fatalf("subscribe a: %v", err)
	}
	defer cancelA()
	cancelB, err := b.Subscribe(func(n Notice) { gotB = append(gotB, n) })
	if err != nil {
		t.Fatalf("subscribe b: %v", err)
	}
	defer cancelB()

	err = a.Publish(context.Background(), "ABCD", Notice{
		Type:    NoticeStateUpdate,
		Payload: json.RawMessage(`{"seq":9}`),
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	// Publishers never hear their own notices.
	if len(gotA) != 0 {
		t.Fatalf("replica-a received its own notice: %v", gotA)
	}
	if len(gotB) != 1 {
		t.Fatalf("replica-b notices = %v", gotB)
	}
	n := gotB[0]
	if n.Type != NoticeStateUpdate || n.Room != "ABCD" || n.ServerID != "replica-a" {
		t.Fatalf("notice = %+v", n)
	}
	if string(n.Payload) != `{"seq":9}` {
		t.Fatalf("payload = %s", n.Payload)
	}
}

func TestSubscribeCancel(t *testing.T) {
	hub := NewMemoryHub()
	a := hub.Bus("replica-a")
	b := hub.Bus("replica-b")

	count := 0
	cancel, err := b.Subscribe(func(Notice) { count++ })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := a.Publish(context.Background(), "R1", Notice{Type: NoticeBroadcast}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	cancel()
	if err := a.Publish(context.Background(), "R1", Notice{Type: NoticeBroadcast}); err != nil {
		t.Fatalf("publish after cancel: %v", err)
	}
	if count != 1 {
		t.Fatalf("delivered %d notices, want 1", count)
	}
}
