package room

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"golf-lite/golf"
	"golf-lite/golf/npc"
	"golf-lite/internal/cache"
	"golf-lite/internal/codec"
	"golf-lite/internal/eventlog"
	"golf-lite/internal/pubsub"
)

type fakeConn struct {
	mu   sync.Mutex
	msgs []any
}

func (c *fakeConn) SendJSON(v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, v)
}

func (c *fakeConn) countType(want string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.msgs {
		raw, err := json.Marshal(m)
		if err != nil {
			continue
		}
		var env codec.Envelope
		if json.Unmarshal(raw, &env) == nil && env.Type == want {
			n++
		}
	}
	return n
}

type testEnv struct {
	mgr   *Manager
	store eventlog.Store
	cache cache.Cache
	hub   *pubsub.MemoryHub
}

func newTestEnv(t *testing.T, brain npc.Decider) *testEnv {
	t.Helper()
	hub := pubsub.NewMemoryHub()
	env := &testEnv{
		store: eventlog.NewMemoryStore(),
		cache: cache.NewMemoryCache(time.Hour),
		hub:   hub,
	}
	env.mgr = NewManager(ManagerConfig{
		ServerID: "test-a",
		Store:    env.store,
		Cache:    env.cache,
		Bus:      hub.Bus("test-a"),
		Profiles: npc.NewRegistry(npc.DefaultProfiles()),
		Brain:    brain,
	})
	t.Cleanup(env.mgr.Stop)
	return env
}

func createRoom(t *testing.T, m *Manager, playerID, name string) (string, string, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	code, gameID, err := m.CreateRoom(context.Background(), playerID, name, conn)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return code, gameID, conn
}

func joinRoom(t *testing.T, m *Manager, playerID, name, code string) *fakeConn {
	t.Helper()
	conn := &fakeConn{}
	if err := m.JoinRoom(context.Background(), playerID, name, code, conn); err != nil {
		t.Fatalf("join room: %v", err)
	}
	return conn
}

func TestCreateAndJoinRoom(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	code, gameID, aConn := createRoom(t, env.mgr, "p-a", "Alice")
	if len(code) != roomCodeLen {
		t.Fatalf("room code = %q", code)
	}
	if aConn.countType("room_created") != 1 {
		t.Fatalf("creator never got room_created")
	}

	rec, err := env.cache.GetRoom(code)
	if err != nil {
		t.Fatalf("cache room: %v", err)
	}
	if rec.GameID != gameID || rec.HostID != "p-a" || rec.Status != golf.StatusWaiting {
		t.Fatalf("cache record = %+v", rec)
	}

	bConn := joinRoom(t, env.mgr, "p-b", "Bob", code)
	if bConn.countType("room_joined") != 1 {
		t.Fatalf("joiner never got room_joined")
	}
	if aConn.countType("player_joined") != 1 {
		t.Fatalf("host never heard about the join")
	}

	players, err := env.cache.RoomPlayers(code)
	if err != nil || len(players) != 2 {
		t.Fatalf("cache players = %v, %v", players, err)
	}

	if err := env.mgr.JoinRoom(ctx, "p-x", "Eve", "ZZZZ", &fakeConn{}); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("join unknown room: %v", err)
	}
}

func TestJoinReattachesExistingSeat(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	code, _, _ := createRoom(t, env.mgr, "p-a", "Alice")
	joinRoom(t, env.mgr, "p-b", "Bob", code)

	// Same player id joins again, as after a dropped websocket.
	reconn := &fakeConn{}
	if err := env.mgr.JoinRoom(ctx, "p-b", "Bob", code, reconn); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if reconn.countType("room_joined") != 1 {
		t.Fatalf("rejoin got no room_joined")
	}

	r := env.mgr.lookupRoom(code)
	r.mu.Lock()
	n := len(r.members)
	conn := r.memberLocked("p-b").Conn
	r.mu.Unlock()
	if n != 2 {
		t.Fatalf("reattach duplicated the seat: %d members", n)
	}
	if conn != reconn {
		t.Fatalf("reattach kept the old connection")
	}
}

func TestHostReassignmentChain(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	code, _, _ := createRoom(t, env.mgr, "p-a", "Alice")
	bConn := joinRoom(t, env.mgr, "p-b", "Bob", code)
	joinRoom(t, env.mgr, "p-c", "Cara", code)

	if err := env.mgr.Leave(ctx, "p-a"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	r := env.mgr.lookupRoom(code)
	if r == nil || r.HostID() != "p-b" {
		t.Fatalf("host after first leave = %v", r)
	}
	if bConn.countType("player_left") != 1 {
		t.Fatalf("remaining players not told about the leave")
	}
	rec, err := env.cache.GetRoom(code)
	if err != nil || rec.HostID != "p-b" {
		t.Fatalf("cache host = %+v, %v", rec, err)
	}

	if err := env.mgr.Leave(ctx, "p-b"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if got := env.mgr.lookupRoom(code).HostID(); got != "p-c" {
		t.Fatalf("host after second leave = %q", got)
	}

	// Last human out closes the room everywhere.
	if err := env.mgr.Leave(ctx, "p-c"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if env.mgr.lookupRoom(code) != nil {
		t.Fatalf("room survived its last human")
	}
	if _, err := env.cache.GetRoom(code); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("cache room after close: %v", err)
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	if err := env.mgr.Leave(ctx, "nobody"); err != nil {
		t.Fatalf("leave unknown player: %v", err)
	}
	createRoom(t, env.mgr, "p-a", "Alice")
	if err := env.mgr.Leave(ctx, "p-a"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if err := env.mgr.Leave(ctx, "p-a"); err != nil {
		t.Fatalf("second leave: %v", err)
	}
}

func TestCPUTokenLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	code, _, _ := createRoom(t, env.mgr, "p-a", "Alice")
	joinRoom(t, env.mgr, "p-b", "Bob", code)

	total := len(env.mgr.Profiles().All())
	if err := env.mgr.AddCPU(ctx, "p-a", ""); err != nil {
		t.Fatalf("add cpu: %v", err)
	}
	if err := env.mgr.AddCPU(ctx, "p-a", ""); err != nil {
		t.Fatalf("add second cpu: %v", err)
	}
	if free := len(env.mgr.Profiles().Available()); free != total-2 {
		t.Fatalf("available profiles = %d, want %d", free, total-2)
	}

	// Non-host cannot manage CPU seats.
	if err := env.mgr.AddCPU(ctx, "p-b", ""); !errors.Is(err, ErrNotHost) {
		t.Fatalf("non-host add cpu: %v", err)
	}

	// Tearing the room down returns every token.
	if err := env.mgr.Leave(ctx, "p-a"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if err := env.mgr.Leave(ctx, "p-b"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if free := len(env.mgr.Profiles().Available()); free != total {
		t.Fatalf("profiles leaked: %d available, want %d", free, total)
	}
}

func TestRemoveCPUFreesToken(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	code, _, _ := createRoom(t, env.mgr, "p-a", "Alice")
	if err := env.mgr.AddCPU(ctx, "p-a", "steady-eddie"); err != nil {
		t.Fatalf("add cpu: %v", err)
	}
	if err := env.mgr.AddCPU(ctx, "p-a", "steady-eddie"); !errors.Is(err, npc.ErrProfileBusy) {
		t.Fatalf("duplicate profile: %v", err)
	}

	r := env.mgr.lookupRoom(code)
	r.mu.Lock()
	var cpuID string
	for _, m := range r.members {
		if m.IsCPU {
			cpuID = m.ID
		}
	}
	r.mu.Unlock()

	if err := env.mgr.RemoveCPU(ctx, "p-a", cpuID); err != nil {
		t.Fatalf("remove cpu: %v", err)
	}
	if err := env.mgr.AddCPU(ctx, "p-a", "steady-eddie"); err != nil {
		t.Fatalf("profile not released: %v", err)
	}
}

func TestStartAndPlayThroughManager(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	code, gameID, aConn := createRoom(t, env.mgr, "p-a", "Alice")
	joinRoom(t, env.mgr, "p-b", "Bob", code)

	params := golf.StartParams{NumDecks: 1, NumRounds: 1, InitialFlips: 0}
	if err := env.mgr.StartGame(ctx, "p-b", params); !errors.Is(err, ErrNotHost) {
		t.Fatalf("non-host start: %v", err)
	}
	if err := env.mgr.StartGame(ctx, "p-a", params); err != nil {
		t.Fatalf("start: %v", err)
	}
	if aConn.countType("game_started") != 1 || aConn.countType("round_started") != 1 {
		t.Fatalf("start notifications missing")
	}

	meta, err := env.store.GetGameMeta(ctx, gameID)
	if err != nil || meta.Status != eventlog.StatusActive {
		t.Fatalf("game meta = %+v, %v", meta, err)
	}

	// With zero initial flips the first seat acts immediately.
	if err := env.mgr.Draw(ctx, "p-b", golf.SourceDeck); !errors.Is(err, golf.ErrNotYourTurn) {
		t.Fatalf("out-of-turn draw: %v", err)
	}
	if err := env.mgr.Draw(ctx, "p-a", golf.SourceDeck); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if aConn.countType("card_drawn") != 1 {
		t.Fatalf("drawing player never saw the card")
	}
	if err := env.mgr.Discard(ctx, "p-a"); err != nil {
		t.Fatalf("discard: %v", err)
	}

	// Every committed event is in the log and the cache tracks the head.
	seq, err := env.store.GetLatestSequence(ctx, gameID)
	if err != nil || seq < 7 {
		t.Fatalf("latest seq = %d, %v", seq, err)
	}
	raw, err := env.cache.GetGameState(gameID)
	if err != nil {
		t.Fatalf("cached state: %v", err)
	}
	var st golf.GameState
	if err := json.Unmarshal(raw, &st); err != nil {
		t.Fatalf("decode cached state: %v", err)
	}
	if st.LastSeq != uint64(seq) {
		t.Fatalf("cache behind log: %d vs %d", st.LastSeq, seq)
	}
	rec, err := env.cache.GetRoom(code)
	if err != nil || rec.Status != golf.StatusPlaying {
		t.Fatalf("room status = %+v, %v", rec, err)
	}
}

func TestCommitConflictRebuildsFromLog(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	code, gameID, _ := createRoom(t, env.mgr, "p-a", "Alice")
	joinRoom(t, env.mgr, "p-b", "Bob", code)
	if err := env.mgr.StartGame(ctx, "p-a", golf.StartParams{NumDecks: 1, NumRounds: 1, InitialFlips: 0}); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Another replica wins the race for the next sequence number.
	evs, err := env.store.GetEvents(ctx, gameID, 0, 0)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	rebuilt, err := golf.RebuildState(evs)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	foreign, err := rebuilt.Game.DrawCard("p-a", golf.SourceDeck)
	if err != nil {
		t.Fatalf("foreign draw: %v", err)
	}
	if _, err := env.store.AppendBatch(ctx, foreign); err != nil {
		t.Fatalf("foreign append: %v", err)
	}

	// The local replica's identical move must lose and resync.
	if err := env.mgr.Draw(ctx, "p-a", golf.SourceDeck); !errors.Is(err, eventlog.ErrSequenceConflict) {
		t.Fatalf("conflicting draw: %v", err)
	}
	r := env.mgr.lookupRoom(code)
	r.mu.Lock()
	seq := r.game.LastSeq()
	r.mu.Unlock()
	if seq != foreign[len(foreign)-1].Sequence {
		t.Fatalf("room not resynced: seq %d", seq)
	}

	// After the resync the drawn card is live and play continues.
	if err := env.mgr.Discard(ctx, "p-a"); err != nil {
		t.Fatalf("discard after resync: %v", err)
	}
}

func TestEndGameResetsRoom(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	code, gameID, aConn := createRoom(t, env.mgr, "p-a", "Alice")
	joinRoom(t, env.mgr, "p-b", "Bob", code)
	if err := env.mgr.StartGame(ctx, "p-a", golf.StartParams{NumDecks: 1, NumRounds: 3, InitialFlips: 0}); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := env.mgr.EndGame(ctx, "p-b"); !errors.Is(err, ErrNotHost) {
		t.Fatalf("non-host end: %v", err)
	}
	if err := env.mgr.EndGame(ctx, "p-a"); err != nil {
		t.Fatalf("end: %v", err)
	}
	if aConn.countType("game_ended") != 1 {
		t.Fatalf("players not told the game ended")
	}

	meta, err := env.store.GetGameMeta(ctx, gameID)
	if err != nil || meta.Status != eventlog.StatusCompleted {
		t.Fatalf("old game meta = %+v, %v", meta, err)
	}

	// The room is back in the lobby with a fresh game and the same seats.
	r := env.mgr.lookupRoom(code)
	r.mu.Lock()
	newID := r.GameID
	members := len(r.members)
	r.mu.Unlock()
	if newID == gameID {
		t.Fatalf("room kept the finished game")
	}
	if members != 2 {
		t.Fatalf("reset lost seats: %d", members)
	}
	rec, err := env.cache.GetRoom(code)
	if err != nil || rec.Status != golf.StatusWaiting || rec.GameID != newID {
		t.Fatalf("room record after reset = %+v, %v", rec, err)
	}

	// And the same group can go again.
	if err := env.mgr.StartGame(ctx, "p-a", golf.StartParams{NumDecks: 1, NumRounds: 1, InitialFlips: 0}); err != nil {
		t.Fatalf("restart: %v", err)
	}
}

func TestCancelDraw(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	code, _, aConn := createRoom(t, env.mgr, "p-a", "Alice")
	joinRoom(t, env.mgr, "p-b", "Bob", code)
	if err := env.mgr.StartGame(ctx, "p-a", golf.StartParams{NumDecks: 1, NumRounds: 1, InitialFlips: 0}); err != nil {
		t.Fatalf("start: %v", err)
	}

	before := aConn.countType("game_state")
	if err := env.mgr.CancelDraw(ctx, "p-a"); err != nil {
		t.Fatalf("cancel with nothing drawn: %v", err)
	}
	if aConn.countType("game_state") != before+1 {
		t.Fatalf("cancel did not refresh state")
	}

	if err := env.mgr.Draw(ctx, "p-a", golf.SourceDeck); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if err := env.mgr.CancelDraw(ctx, "p-a"); !errors.Is(err, ErrDrawPending) {
		t.Fatalf("cancel with card held: %v", err)
	}
}

func TestTeardownPublishesRoomClosed(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	var mu sync.Mutex
	var closedRooms []string
	peer := env.hub.Bus("test-b")
	stop, err := peer.Subscribe(func(n pubsub.Notice) {
		if n.Type == pubsub.NoticeRoomClosed {
			mu.Lock()
			closedRooms = append(closedRooms, n.Room)
			mu.Unlock()
		}
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer stop()

	code, _, _ := createRoom(t, env.mgr, "p-a", "Alice")
	if err := env.mgr.Leave(ctx, "p-a"); err != nil {
		t.Fatalf("leave: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(closedRooms) != 1 || closedRooms[0] != code {
		t.Fatalf("room_closed notices = %v", closedRooms)
	}
}

func TestCPUSeatsPlayTheirTurns(t *testing.T) {
	env := newTestEnv(t, npc.NewRuleBrain(7))
	ctx := context.Background()

	code, _, _ := createRoom(t, env.mgr, "p-a", "Alice")
	if err := env.mgr.AddCPU(ctx, "p-a", ""); err != nil {
		t.Fatalf("add cpu: %v", err)
	}
	if err := env.mgr.StartGame(ctx, "p-a", golf.StartParams{NumDecks: 1, NumRounds: 1, InitialFlips: 1}); err != nil {
		t.Fatalf("start: %v", err)
	}
	r := env.mgr.lookupRoom(code)

	// The CPU flips on its own; the human flips through the manager.
	if err := env.mgr.FlipInitial(ctx, "p-a", []int{0}); err != nil {
		t.Fatalf("flip initial: %v", err)
	}
	waitFor(t, 5*time.Second, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.game.Phase() != golf.PhaseInitialFlip
	})

	// Play the human's turns and let the CPU answer each one until the
	// round resolves or the turn comes back around.
	deadline := time.Now().Add(20 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		snap := r.game.Snapshot()
		r.mu.Unlock()
		if snap.Phase == golf.PhaseRoundOver || snap.Phase == golf.PhaseGameOver {
			return
		}
		if snap.CurrentID != "p-a" {
			time.Sleep(50 * time.Millisecond)
			continue
		}
		if snap.DrawnCard == nil {
			if err := env.mgr.Draw(ctx, "p-a", golf.SourceDeck); err != nil {
				t.Fatalf("draw: %v", err)
			}
			continue
		}
		pos := -1
		for i, c := range snap.Players[0].Cards {
			if !c.FaceUp {
				pos = i
				break
			}
		}
		if pos < 0 {
			t.Fatalf("no face-down card left yet round did not end")
		}
		if err := env.mgr.Swap(ctx, "p-a", pos); err != nil {
			t.Fatalf("swap: %v", err)
		}
	}
	t.Fatalf("round never resolved with a cpu opponent")
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}
