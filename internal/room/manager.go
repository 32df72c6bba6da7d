package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"golf-lite/golf"
	"golf-lite/golf/npc"
	"golf-lite/internal/cache"
	"golf-lite/internal/codec"
	"golf-lite/internal/eventlog"
	"golf-lite/internal/pubsub"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrNotInRoom    = errors.New("player is not in a room")
	ErrNotHost      = errors.New("only the host can do that")

	// ErrDrawPending rejects cancel_draw while a card is held: a drawn
	// card must be swapped or discarded, never taken back.
	ErrDrawPending = errors.New("a drawn card must be swapped or discarded")
)

const (
	roomCodeLen   = 4
	idleTimeout   = 30 * time.Minute
	sweepInterval = time.Minute
)

type ManagerConfig struct {
	ServerID string
	Store    eventlog.Store
	Cache    cache.Cache
	Bus      pubsub.Bus
	Profiles *npc.Registry
	Brain    npc.Decider
}

// Manager owns every room hosted by this replica. The manager mutex
// guards only the lookup maps; game work happens under each room's own
// lock. Lock order is room before manager, never the other way around.
type Manager struct {
	serverID string
	store    eventlog.Store
	cache    cache.Cache
	bus      pubsub.Bus
	profiles *npc.Registry
	brain    npc.Decider

	mu         sync.Mutex
	rooms      map[string]*Room
	playerRoom map[string]*Room
	codeRng    *rand.Rand

	stop        chan struct{}
	stopped     sync.Once
	unsubscribe func()
}

func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		serverID:   cfg.ServerID,
		store:      cfg.Store,
		cache:      cfg.Cache,
		bus:        cfg.Bus,
		profiles:   cfg.Profiles,
		brain:      cfg.Brain,
		rooms:      map[string]*Room{},
		playerRoom: map[string]*Room{},
		codeRng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		stop:       make(chan struct{}),
	}
}

// Start launches the idle sweeper and the cross-replica listener.
func (m *Manager) Start() {
	cancel, err := m.bus.Subscribe(m.handleNotice)
	if err != nil {
		log.Printf("[RoomManager] bus subscribe failed, running without cross-replica updates: %v", err)
	} else {
		m.unsubscribe = cancel
	}
	go m.sweepLoop()
}

func (m *Manager) Stop() {
	m.stopped.Do(func() { close(m.stop) })
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func (m *Manager) Profiles() *npc.Registry { return m.profiles }

// ----- lookup helpers -----

func (m *Manager) lookupRoom(code string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rooms[code]
}

func (m *Manager) roomOf(playerID string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playerRoom[playerID]
}

func (m *Manager) mapPlayer(playerID string, r *Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playerRoom[playerID] = r
}

func (m *Manager) unmapPlayer(playerID string, r *Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playerRoom[playerID] == r {
		delete(m.playerRoom, playerID)
	}
}

func (m *Manager) registerRoom(r *Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[r.Code] = r
}

func (m *Manager) dropRoom(r *Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rooms[r.Code] == r {
		delete(m.rooms, r.Code)
	}
}

func (m *Manager) newRoomCode() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		buf := make([]byte, roomCodeLen)
		for i := range buf {
			buf[i] = letters[m.codeRng.Intn(len(letters))]
		}
		code := string(buf)
		if m.rooms[code] != nil {
			continue
		}
		if _, err := m.cache.GetRoom(code); err == nil {
			continue
		}
		return code
	}
}

// ----- room lifecycle -----

// CreateRoom opens a room with the creator as host and returns its code
// and game id.
func (m *Manager) CreateRoom(ctx context.Context, playerID, name string, conn Sender) (string, string, error) {
	code := m.newRoomCode()
	gameID := uuid.NewString()

	game := golf.NewGame(golf.Config{ID: gameID, RoomCode: code, HostID: playerID})
	evs := []golf.Event{game.Created()}
	joined, err := game.AddPlayer(playerID, name, false, "")
	if err != nil {
		return "", "", err
	}
	evs = append(evs, joined...)
	if _, err := m.store.AppendBatch(ctx, evs); err != nil {
		return "", "", fmt.Errorf("persist room creation: %w", err)
	}

	now := time.Now().UTC()
	r := &Room{
		Code:       code,
		GameID:     gameID,
		hostID:     playerID,
		game:       game,
		lastActive: now,
		members: []*Member{{
			ID: playerID, Name: name, JoinedAt: now, Conn: conn,
		}},
	}
	m.registerRoom(r)
	m.mapPlayer(playerID, r)

	err = m.cache.CreateRoom(code, cache.RoomRecord{
		GameID:    gameID,
		HostID:    playerID,
		Status:    golf.StatusWaiting,
		ServerID:  m.serverID,
		CreatedAt: now,
	}, []string{playerID})
	if err != nil {
		log.Printf("[Room %s] cache create failed: %v", code, err)
	}
	m.syncGameCache(r.GameID, game)

	if conn != nil {
		conn.SendJSON(codec.RoomCreated(code, gameID, playerID))
	}
	r.mu.Lock()
	m.broadcastStateLocked(r)
	r.mu.Unlock()
	log.Printf("[Room %s] created by %s (game %s)", code, playerID, gameID)
	return code, gameID, nil
}

// JoinRoom seats playerID in the room, adopting the room from the cache
// or the event log when this replica does not hold it yet. A player id
// already seated reattaches its connection instead of joining twice.
func (m *Manager) JoinRoom(ctx context.Context, playerID, name, code string, conn Sender) error {
	r := m.lookupRoom(code)
	if r == nil {
		adopted, err := m.adoptRoom(ctx, code)
		if err != nil {
			return err
		}
		r = adopted
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomNotFound
	}

	if mem := r.memberLocked(playerID); mem != nil {
		mem.Conn = conn
		m.mapPlayer(playerID, r)
		r.sendToLocked(playerID, codec.RoomJoined(code, r.GameID, playerID, r.hostID))
		m.broadcastStateLocked(r)
		return nil
	}

	evs, err := r.game.AddPlayer(playerID, name, false, "")
	if err != nil {
		return err
	}
	if err := m.commitLocked(ctx, r, evs); err != nil {
		return err
	}
	r.members = append(r.members, &Member{
		ID: playerID, Name: name, JoinedAt: time.Now().UTC(), Conn: conn,
	})
	m.mapPlayer(playerID, r)
	if err := m.cache.AddPlayer(code, playerID); err != nil {
		log.Printf("[Room %s] cache add player failed: %v", code, err)
	}

	r.sendToLocked(playerID, codec.RoomJoined(code, r.GameID, playerID, r.hostID))
	r.broadcastLocked(codec.PlayerJoined(playerID, name, false))
	m.broadcastStateLocked(r)
	m.publishLocked(r, pubsub.NoticePlayerJoined, nil)
	return nil
}

// adoptRoom hydrates a room another replica created, preferring the
// cached state and falling back to an event-log rebuild.
func (m *Manager) adoptRoom(ctx context.Context, code string) (*Room, error) {
	rec, err := m.cache.GetRoom(code)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("adopt room: %w", err)
	}

	var game *golf.Game
	if raw, err := m.cache.GetGameState(rec.GameID); err == nil {
		var st golf.GameState
		if err := json.Unmarshal(raw, &st); err != nil {
			return nil, fmt.Errorf("adopt room: decode cached state: %w", err)
		}
		game = golf.RestoreGame(&st)
	} else {
		evs, err := m.store.GetEvents(ctx, rec.GameID, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("adopt room: read events: %w", err)
		}
		if len(evs) == 0 {
			return nil, ErrRoomNotFound
		}
		rebuilt, err := golf.RebuildState(evs)
		if err != nil {
			return nil, fmt.Errorf("adopt room: rebuild: %w", err)
		}
		game = rebuilt.Game
	}

	r := roomFromGame(code, rec.GameID, rec.HostID, game)
	m.registerRoom(r)
	log.Printf("[Room %s] adopted (game %s, seq %d)", code, rec.GameID, game.LastSeq())
	return r, nil
}

func roomFromGame(code, gameID, hostID string, game *golf.Game) *Room {
	now := time.Now().UTC()
	r := &Room{
		Code:       code,
		GameID:     gameID,
		hostID:     hostID,
		game:       game,
		lastActive: now,
	}
	for _, p := range game.Snapshot().Players {
		r.members = append(r.members, &Member{
			ID: p.ID, Name: p.Name, IsCPU: p.IsCPU, ProfileID: p.ProfileID, JoinedAt: now,
		})
	}
	return r
}

// Leave removes the player from their room. Unknown players are a
// no-op, so disconnect handlers can call it unconditionally.
func (m *Manager) Leave(ctx context.Context, playerID string) error {
	r := m.roomOf(playerID)
	if r == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	m.unmapPlayer(playerID, r)
	if r.closed || r.memberLocked(playerID) == nil {
		return nil
	}
	r.removeMemberLocked(playerID)

	if evs, err := r.game.RemovePlayer(playerID); err == nil {
		if err := m.commitLocked(ctx, r, evs); err != nil {
			log.Printf("[Room %s] leave commit failed: %v", r.Code, err)
		} else {
			m.afterCommitLocked(ctx, r, evs)
		}
	} else if !errors.Is(err, golf.ErrUnknownPlayer) {
		log.Printf("[Room %s] remove player %s: %v", r.Code, playerID, err)
	}
	if err := m.cache.RemovePlayer(r.Code, playerID); err != nil {
		log.Printf("[Room %s] cache remove player failed: %v", r.Code, err)
	}

	if r.humanCountLocked() == 0 {
		m.teardownLocked(ctx, r, "empty")
		return nil
	}

	newHost := ""
	if r.hostID == playerID {
		if next := r.oldestHumanLocked(); next != nil {
			r.hostID = next.ID
			newHost = next.ID
			log.Printf("[Room %s] host reassigned to %s", r.Code, newHost)
		}
	}
	r.broadcastLocked(codec.PlayerLeft(playerID, newHost))
	m.broadcastStateLocked(r)
	m.publishLocked(r, pubsub.NoticePlayerLeft, nil)
	m.scheduleCPULocked(r)
	return nil
}

// teardownLocked closes the room: CPU tokens go back to the registry,
// the cache entries disappear, and other replicas hear room_closed.
func (m *Manager) teardownLocked(ctx context.Context, r *Room, reason string) {
	r.closed = true
	for _, mem := range r.members {
		if mem.IsCPU && mem.ProfileID != "" {
			m.profiles.Release(mem.ProfileID)
		}
		m.unmapPlayer(mem.ID, r)
	}
	ids := r.memberIDsLocked()
	r.members = nil

	if err := m.cache.DeleteRoom(r.Code, ids); err != nil {
		log.Printf("[Room %s] cache delete failed: %v", r.Code, err)
	}
	if err := m.cache.DeleteGameState(r.GameID); err != nil {
		log.Printf("[Room %s] cache state delete failed: %v", r.Code, err)
	}
	if phase := r.game.Phase(); phase != golf.PhaseWaiting && phase != golf.PhaseGameOver {
		err := m.store.SetGameStatus(ctx, r.GameID, eventlog.StatusAbandoned)
		if err != nil && !errors.Is(err, eventlog.ErrNotFound) {
			log.Printf("[Room %s] mark abandoned failed: %v", r.Code, err)
		}
	}
	m.publishLocked(r, pubsub.NoticeRoomClosed, nil)
	m.dropRoom(r)
	log.Printf("[Room %s] closed (%s)", r.Code, reason)
}

// ----- CPU seats -----

// AddCPU seats a CPU opponent. Host only; the profile token comes from
// the shared registry.
func (m *Manager) AddCPU(ctx context.Context, playerID, profileID string) error {
	r := m.roomOf(playerID)
	if r == nil {
		return ErrNotInRoom
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomNotFound
	}
	if r.hostID != playerID {
		return ErrNotHost
	}

	profile, err := m.profiles.Acquire(profileID)
	if err != nil {
		return err
	}
	cpuID := "cpu-" + uuid.NewString()[:8]
	evs, err := r.game.AddPlayer(cpuID, profile.Name, true, profile.ID)
	if err != nil {
		m.profiles.Release(profile.ID)
		return err
	}
	if err := m.commitLocked(ctx, r, evs); err != nil {
		m.profiles.Release(profile.ID)
		return err
	}
	r.members = append(r.members, &Member{
		ID: cpuID, Name: profile.Name, IsCPU: true, ProfileID: profile.ID, JoinedAt: time.Now().UTC(),
	})
	if err := m.cache.AddPlayer(r.Code, cpuID); err != nil {
		log.Printf("[Room %s] cache add cpu failed: %v", r.Code, err)
	}
	r.broadcastLocked(codec.PlayerJoined(cpuID, profile.Name, true))
	m.broadcastStateLocked(r)
	return nil
}

// RemoveCPU unseats a CPU and frees its profile token. Host only.
func (m *Manager) RemoveCPU(ctx context.Context, playerID, cpuID string) error {
	r := m.roomOf(playerID)
	if r == nil {
		return ErrNotInRoom
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomNotFound
	}
	if r.hostID != playerID {
		return ErrNotHost
	}
	mem := r.memberLocked(cpuID)
	if mem == nil || !mem.IsCPU {
		return golf.ErrUnknownPlayer
	}

	evs, err := r.game.RemovePlayer(cpuID)
	if err != nil {
		return err
	}
	if err := m.commitLocked(ctx, r, evs); err != nil {
		return err
	}
	m.afterCommitLocked(ctx, r, evs)
	r.removeMemberLocked(cpuID)
	m.profiles.Release(mem.ProfileID)
	if err := m.cache.RemovePlayer(r.Code, cpuID); err != nil {
		log.Printf("[Room %s] cache remove cpu failed: %v", r.Code, err)
	}
	r.broadcastLocked(codec.PlayerLeft(cpuID, ""))
	m.broadcastStateLocked(r)
	return nil
}

// ----- game operations -----

// StartGame deals the first round. Host only.
func (m *Manager) StartGame(ctx context.Context, playerID string, params golf.StartParams) error {
	r := m.roomOf(playerID)
	if r == nil {
		return ErrNotInRoom
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomNotFound
	}
	if r.hostID != playerID {
		return ErrNotHost
	}

	evs, err := r.game.StartGame(playerID, params)
	if err != nil {
		return err
	}
	if err := m.commitLocked(ctx, r, evs); err != nil {
		return err
	}

	snap := r.game.Snapshot()
	meta := eventlog.GameMeta{
		ID:         r.GameID,
		RoomCode:   r.Code,
		Status:     eventlog.StatusActive,
		HostID:     r.hostID,
		PlayerIDs:  r.memberIDsLocked(),
		NumPlayers: len(r.members),
		NumRounds:  snap.TotalRounds,
		Options:    snap.Options.Flags(),
	}
	if err := m.store.UpsertGameMeta(ctx, meta); err != nil {
		log.Printf("[Room %s] meta upsert failed: %v", r.Code, err)
	}

	r.broadcastLocked(codec.GameStarted(r.GameID, snap.TotalRounds, snap.Options.Flags()))
	r.broadcastLocked(codec.RoundStarted(snap.Round))
	m.broadcastStateLocked(r)
	m.scheduleCPULocked(r)
	log.Printf("[Room %s] game started: %d players, %d rounds", r.Code, len(r.members), snap.TotalRounds)
	return nil
}

// act runs one engine operation under the room lock and fans out the
// result.
func (m *Manager) act(ctx context.Context, playerID string, fn func(g *golf.Game) ([]golf.Event, error)) error {
	r := m.roomOf(playerID)
	if r == nil {
		return ErrNotInRoom
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomNotFound
	}
	return m.applyLocked(ctx, r, fn)
}

func (m *Manager) applyLocked(ctx context.Context, r *Room, fn func(g *golf.Game) ([]golf.Event, error)) error {
	evs, err := fn(r.game)
	if err != nil {
		return err
	}
	if err := m.commitLocked(ctx, r, evs); err != nil {
		return err
	}
	m.afterCommitLocked(ctx, r, evs)
	m.broadcastStateLocked(r)
	m.scheduleCPULocked(r)
	return nil
}

func (m *Manager) FlipInitial(ctx context.Context, playerID string, positions []int) error {
	return m.act(ctx, playerID, func(g *golf.Game) ([]golf.Event, error) {
		return g.FlipInitial(playerID, positions)
	})
}

func (m *Manager) Draw(ctx context.Context, playerID, source string) error {
	return m.act(ctx, playerID, func(g *golf.Game) ([]golf.Event, error) {
		return g.DrawCard(playerID, source)
	})
}

func (m *Manager) Swap(ctx context.Context, playerID string, position int) error {
	return m.act(ctx, playerID, func(g *golf.Game) ([]golf.Event, error) {
		return g.SwapCard(playerID, position)
	})
}

func (m *Manager) Discard(ctx context.Context, playerID string) error {
	return m.act(ctx, playerID, func(g *golf.Game) ([]golf.Event, error) {
		return g.DiscardDrawn(playerID)
	})
}

func (m *Manager) FlipCard(ctx context.Context, playerID string, position int) error {
	return m.act(ctx, playerID, func(g *golf.Game) ([]golf.Event, error) {
		return g.FlipAndEndTurn(playerID, position)
	})
}

func (m *Manager) SkipFlip(ctx context.Context, playerID string) error {
	return m.act(ctx, playerID, func(g *golf.Game) ([]golf.Event, error) {
		return g.SkipFlip(playerID)
	})
}

func (m *Manager) FlipAsAction(ctx context.Context, playerID string, position int) error {
	return m.act(ctx, playerID, func(g *golf.Game) ([]golf.Event, error) {
		return g.FlipAsAction(playerID, position)
	})
}

func (m *Manager) KnockEarly(ctx context.Context, playerID string) error {
	return m.act(ctx, playerID, func(g *golf.Game) ([]golf.Event, error) {
		return g.KnockEarly(playerID)
	})
}

// NextRound advances a finished round. Host only.
func (m *Manager) NextRound(ctx context.Context, playerID string) error {
	r := m.roomOf(playerID)
	if r == nil {
		return ErrNotInRoom
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomNotFound
	}
	if r.hostID != playerID {
		return ErrNotHost
	}
	err := m.applyLocked(ctx, r, func(g *golf.Game) ([]golf.Event, error) {
		return g.StartNextRound(playerID)
	})
	if err != nil {
		return err
	}
	if snap := r.game.Snapshot(); snap.Phase != golf.PhaseGameOver {
		r.broadcastLocked(codec.RoundStarted(snap.Round))
	}
	return nil
}

// EndGame terminates the game early. Host only.
func (m *Manager) EndGame(ctx context.Context, playerID string) error {
	r := m.roomOf(playerID)
	if r == nil {
		return ErrNotInRoom
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomNotFound
	}
	if r.hostID != playerID {
		return ErrNotHost
	}
	return m.applyLocked(ctx, r, func(g *golf.Game) ([]golf.Event, error) {
		return g.EndGame(playerID, "host_ended")
	})
}

// CancelDraw dismisses a draw prompt. With no card drawn it just
// re-sends state; with one held it is an error, since the card must be
// played.
func (m *Manager) CancelDraw(ctx context.Context, playerID string) error {
	r := m.roomOf(playerID)
	if r == nil {
		return ErrNotInRoom
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomNotFound
	}
	snap := r.game.Snapshot()
	if snap.DrawnCard != nil && snap.CurrentID == playerID {
		return ErrDrawPending
	}
	r.sendToLocked(playerID, codec.ProjectState(snap, playerID, r.hostID))
	return nil
}

// ----- commit pipeline -----

// commitLocked persists the events, then refreshes the cache and tells
// other replicas. On any append failure the in-memory game is rebuilt
// from the log so a stale engine never survives a lost race.
func (m *Manager) commitLocked(ctx context.Context, r *Room, evs []golf.Event) error {
	if len(evs) == 0 {
		return nil
	}
	if _, err := m.store.AppendBatch(ctx, evs); err != nil {
		m.rebuildFromLogLocked(ctx, r)
		if errors.Is(err, eventlog.ErrSequenceConflict) {
			return err
		}
		return fmt.Errorf("append events: %w", err)
	}
	r.lastActive = time.Now()
	m.syncCacheLocked(r)
	m.publishLocked(r, pubsub.NoticeStateUpdate, nil)
	return nil
}

func (m *Manager) rebuildFromLogLocked(ctx context.Context, r *Room) {
	evs, err := m.store.GetEvents(ctx, r.GameID, 0, 0)
	if err != nil {
		log.Printf("[Room %s] rebuild read failed: %v", r.Code, err)
		return
	}
	rebuilt, err := golf.RebuildState(evs)
	if err != nil {
		log.Printf("[Room %s] rebuild failed: %v", r.Code, err)
		return
	}
	r.game = rebuilt.Game
	log.Printf("[Room %s] state rebuilt from log at seq %d", r.Code, rebuilt.Sequence)
}

func (m *Manager) syncCacheLocked(r *Room) {
	m.syncGameCache(r.GameID, r.game)
	rec := cache.RoomRecord{
		GameID:    r.GameID,
		HostID:    r.hostID,
		Status:    golf.StatusForPhase(r.game.Phase()),
		ServerID:  m.serverID,
		CreatedAt: r.lastActive,
	}
	if err := m.cache.SetRoom(r.Code, rec); err != nil {
		log.Printf("[Room %s] cache room sync failed: %v", r.Code, err)
	}
	if err := m.cache.Touch(r.Code, r.GameID, r.memberIDsLocked()); err != nil {
		log.Printf("[Room %s] cache touch failed: %v", r.Code, err)
	}
}

func (m *Manager) syncGameCache(gameID string, game *golf.Game) {
	raw, err := json.Marshal(game.ExportState())
	if err != nil {
		log.Printf("[RoomManager] encode game %s state: %v", gameID, err)
		return
	}
	if err := m.cache.SetGameState(gameID, raw); err != nil {
		log.Printf("[RoomManager] cache game %s state: %v", gameID, err)
	}
}

func (m *Manager) publishLocked(r *Room, noticeType string, payload json.RawMessage) {
	n := pubsub.Notice{Type: noticeType, Payload: payload}
	if err := m.bus.Publish(context.Background(), r.Code, n); err != nil {
		log.Printf("[Room %s] publish %s failed: %v", r.Code, noticeType, err)
	}
}

// afterCommitLocked turns committed events into their dedicated client
// notifications.
func (m *Manager) afterCommitLocked(ctx context.Context, r *Room, evs []golf.Event) {
	snap := r.game.Snapshot()
	gameEnded := false
	for _, ev := range evs {
		switch ev.Type {
		case golf.EventCardDrawn:
			if snap.DrawnCard != nil && snap.CurrentID == ev.PlayerID {
				var data golf.CardDrawnData
				if err := json.Unmarshal(ev.Data, &data); err == nil {
					view := codec.ViewCard(*snap.DrawnCard)
					view.FaceUp = true
					r.sendToLocked(ev.PlayerID, codec.CardDrawn(data.Source, &view))
				}
			}

		case golf.EventRoundEnded:
			var data golf.RoundEndedData
			if err := json.Unmarshal(ev.Data, &data); err != nil {
				continue
			}
			r.broadcastLocked(codec.RoundOverMsg{
				Type:        "round_over",
				Round:       data.Round,
				HandScores:  data.HandScores,
				RoundScores: data.RoundScores,
				Totals:      data.Totals,
				Winners:     data.Winners,
				FinisherID:  data.FinisherID,
			})

		case golf.EventGameEnded:
			var data golf.GameEndedData
			if err := json.Unmarshal(ev.Data, &data); err != nil {
				continue
			}
			err := m.store.SetGameStatus(ctx, r.GameID, eventlog.StatusCompleted)
			if err != nil && !errors.Is(err, eventlog.ErrNotFound) {
				log.Printf("[Room %s] mark completed failed: %v", r.Code, err)
			}
			if len(data.Winners) > 0 {
				if err := m.store.SetGameWinner(ctx, r.GameID, data.Winners[0]); err != nil && !errors.Is(err, eventlog.ErrNotFound) {
					log.Printf("[Room %s] set winner failed: %v", r.Code, err)
				}
			}
			if data.Reason == "completed" {
				r.broadcastLocked(codec.GameOverMsg{
					Type:    "game_over",
					Totals:  data.Totals,
					Winners: data.Winners,
				})
			} else {
				r.broadcastLocked(codec.GameEnded(data.Reason))
			}
			gameEnded = true
		}
	}
	if gameEnded {
		m.resetRoomLocked(ctx, r)
	}
}

// resetRoomLocked returns a finished room to the waiting phase with a
// fresh game, keeping every seat so the same group can play again.
func (m *Manager) resetRoomLocked(ctx context.Context, r *Room) {
	oldID := r.GameID
	gameID := uuid.NewString()
	game := golf.NewGame(golf.Config{ID: gameID, RoomCode: r.Code, HostID: r.hostID})
	evs := []golf.Event{game.Created()}
	for _, mem := range r.members {
		joined, err := game.AddPlayer(mem.ID, mem.Name, mem.IsCPU, mem.ProfileID)
		if err != nil {
			log.Printf("[Room %s] reset reseat %s: %v", r.Code, mem.ID, err)
			return
		}
		evs = append(evs, joined...)
	}
	if _, err := m.store.AppendBatch(ctx, evs); err != nil {
		log.Printf("[Room %s] reset persist failed: %v", r.Code, err)
		return
	}

	r.GameID = gameID
	r.game = game
	if err := m.cache.DeleteGameState(oldID); err != nil {
		log.Printf("[Room %s] drop old game state: %v", r.Code, err)
	}
	m.syncCacheLocked(r)
	log.Printf("[Room %s] reset for a new game (%s)", r.Code, gameID)
}

// broadcastStateLocked fans one snapshot out as per-viewer projections,
// plus the turn prompts for whoever must act.
func (m *Manager) broadcastStateLocked(r *Room) {
	snap := r.game.Snapshot()
	for _, mem := range r.members {
		if mem.Conn == nil {
			continue
		}
		mem.Conn.SendJSON(codec.ProjectState(snap, mem.ID, r.hostID))
		if mem.ID != snap.CurrentID {
			continue
		}
		if snap.Phase == golf.PhasePlaying || snap.Phase == golf.PhaseFinalTurn {
			if snap.AwaitingFlip {
				mem.Conn.SendJSON(codec.CanFlip())
			} else if snap.DrawnCard == nil {
				mem.Conn.SendJSON(codec.YourTurn())
			}
		}
	}
}

// ----- background loops -----

func (m *Manager) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
		}
		m.mu.Lock()
		candidates := make([]*Room, 0, len(m.rooms))
		for _, r := range m.rooms {
			candidates = append(candidates, r)
		}
		m.mu.Unlock()
		for _, r := range candidates {
			if !r.IsIdleFor(idleTimeout) {
				continue
			}
			r.mu.Lock()
			connected := false
			for _, mem := range r.members {
				if mem.Conn != nil {
					connected = true
					break
				}
			}
			if !r.closed && !connected && r.IsIdleForLocked(idleTimeout) {
				m.teardownLocked(context.Background(), r, "idle")
			}
			r.mu.Unlock()
		}
	}
}

// handleNotice reacts to another replica's publishes for rooms this
// replica also holds.
func (m *Manager) handleNotice(n pubsub.Notice) {
	r := m.lookupRoom(n.Room)
	if r == nil {
		return
	}
	switch n.Type {
	case pubsub.NoticeRoomClosed:
		r.mu.Lock()
		if !r.closed {
			r.closed = true
			for _, mem := range r.members {
				m.unmapPlayer(mem.ID, r)
			}
			r.members = nil
			m.dropRoom(r)
		}
		r.mu.Unlock()

	case pubsub.NoticeStateUpdate, pubsub.NoticePlayerJoined, pubsub.NoticePlayerLeft:
		r.mu.Lock()
		gameID := r.GameID
		r.mu.Unlock()
		raw, err := m.cache.GetGameState(gameID)
		if err != nil {
			return
		}
		var st golf.GameState
		if err := json.Unmarshal(raw, &st); err != nil {
			log.Printf("[Room %s] foreign state decode failed: %v", n.Room, err)
			return
		}
		r.mu.Lock()
		if !r.closed && r.GameID == gameID && st.LastSeq > r.game.LastSeq() {
			r.game = golf.RestoreGame(&st)
			m.broadcastStateLocked(r)
		}
		r.mu.Unlock()
	}
}
