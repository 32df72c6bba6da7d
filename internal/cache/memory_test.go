package cache

import (
	"errors"
	"sort"
	"testing"
	"time"
)

func TestRoomLifecycle(t *testing.T) {
	c := NewMemoryCache(time.Minute)

	rec := RoomRecord{GameID: "g1", HostID: "p1", Status: "waiting", ServerID: "s1", CreatedAt: time.Now().UTC()}
	if err := c.CreateRoom("ABCD", rec, []string{"p1"}); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	got, err := c.GetRoom("ABCD")
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	if got.GameID != "g1" || got.HostID != "p1" {
		t.Fatalf("room record = %+v", got)
	}

	// A live room appears in the active index and in the player lookup.
	active, err := c.ActiveRooms()
	if err != nil || len(active) != 1 || active[0] != "ABCD" {
		t.Fatalf("active rooms = %v, %v", active, err)
	}
	code, err := c.PlayerRoom("p1")
	if err != nil || code != "ABCD" {
		t.Fatalf("PlayerRoom = %q, %v", code, err)
	}

	if err := c.AddPlayer("ABCD", "p2"); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	players, err := c.RoomPlayers("ABCD")
	if err != nil {
		t.Fatalf("RoomPlayers: %v", err)
	}
	sort.Strings(players)
	if len(players) != 2 || players[0] != "p1" || players[1] != "p2" {
		t.Fatalf("players = %v", players)
	}

	if err := c.RemovePlayer("ABCD", "p2"); err != nil {
		t.Fatalf("RemovePlayer: %v", err)
	}
	if _, err := c.PlayerRoom("p2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("removed player still mapped: %v", err)
	}

	// Teardown clears every key family at once.
	if err := c.DeleteRoom("ABCD", []string{"p1"}); err != nil {
		t.Fatalf("DeleteRoom: %v", err)
	}
	if _, err := c.GetRoom("ABCD"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted room readable: %v", err)
	}
	if active, _ := c.ActiveRooms(); len(active) != 0 {
		t.Fatalf("deleted room still active: %v", active)
	}
	if _, err := c.PlayerRoom("p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted room player still mapped")
	}
}

func TestGameState(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	if _, err := c.GetGameState("g1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing state err = %v", err)
	}
	if err := c.SetGameState("g1", []byte(`{"phase":"playing"}`)); err != nil {
		t.Fatalf("SetGameState: %v", err)
	}
	raw, err := c.GetGameState("g1")
	if err != nil || string(raw) != `{"phase":"playing"}` {
		t.Fatalf("GetGameState = %s, %v", raw, err)
	}
	if err := c.DeleteGameState("g1"); err != nil {
		t.Fatalf("DeleteGameState: %v", err)
	}
	if _, err := c.GetGameState("g1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted state readable")
	}
}

func TestTTLExpiry(t *testing.T) {
	c := NewMemoryCache(50 * time.Millisecond)
	if err := c.SetGameState("g1", []byte("x")); err != nil {
		t.Fatalf("SetGameState: %v", err)
	}
	time.Sleep(120 * time.Millisecond)
	if _, err := c.GetGameState("g1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("state survived its TTL")
	}
}

func TestMembershipExpiresWithRoom(t *testing.T) {
	c := NewMemoryCache(50 * time.Millisecond)
	rec := RoomRecord{GameID: "g1", HostID: "p1"}
	if err := c.CreateRoom("ABCD", rec, []string{"p1", "p2"}); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	time.Sleep(120 * time.Millisecond)

	// Once the record's TTL lapses the membership keys lapse with it.
	if _, err := c.GetRoom("ABCD"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("room survived its TTL: %v", err)
	}
	if active, _ := c.ActiveRooms(); len(active) != 0 {
		t.Fatalf("expired room still indexed: %v", active)
	}
	if players, _ := c.RoomPlayers("ABCD"); len(players) != 0 {
		t.Fatalf("expired room kept players: %v", players)
	}
	if _, err := c.PlayerRoom("p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired room kept reverse index")
	}

	// A new room on a recycled code starts clean.
	if err := c.CreateRoom("ABCD", rec, []string{"p3"}); err != nil {
		t.Fatalf("CreateRoom again: %v", err)
	}
	players, err := c.RoomPlayers("ABCD")
	if err != nil || len(players) != 1 || players[0] != "p3" {
		t.Fatalf("recycled room players = %v, %v", players, err)
	}
}

func TestPlayerRoomOverwrite(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	if err := c.CreateRoom("AAAA", RoomRecord{GameID: "g1"}, []string{"p1"}); err != nil {
		t.Fatalf("CreateRoom AAAA: %v", err)
	}
	if err := c.CreateRoom("BBBB", RoomRecord{GameID: "g2"}, []string{"p1"}); err != nil {
		t.Fatalf("CreateRoom BBBB: %v", err)
	}
	// Deleting the stale room must not clobber the newer mapping.
	if err := c.DeleteRoom("AAAA", []string{"p1"}); err != nil {
		t.Fatalf("DeleteRoom: %v", err)
	}
	code, err := c.PlayerRoom("p1")
	if err != nil || code != "BBBB" {
		t.Fatalf("PlayerRoom = %q, %v", code, err)
	}
}
