// Package recovery repopulates the cache from the event log after a
// restart, so rooms survive a crashed or redeployed replica.
package recovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"golf-lite/golf"
	"golf-lite/internal/cache"
	"golf-lite/internal/eventlog"
)

// Run rebuilds every active game from its events and reinstates its
// room in the cache. Games whose log already ends are marked completed
// and swept instead. Returns the number of rooms restored.
func Run(ctx context.Context, store eventlog.Store, c cache.Cache, serverID string) (int, error) {
	metas, err := store.ListActiveGames(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active games: %w", err)
	}

	restored := 0
	for _, meta := range metas {
		game, err := rebuildGame(ctx, store, meta.ID)
		if err != nil {
			log.Printf("[Recovery] game %s skipped: %v", meta.ID, err)
			continue
		}

		if game.Phase() == golf.PhaseGameOver {
			// The log already finished; the status row just never
			// caught up.
			if err := store.SetGameStatus(ctx, meta.ID, eventlog.StatusCompleted); err != nil && !errors.Is(err, eventlog.ErrNotFound) {
				log.Printf("[Recovery] game %s mark completed: %v", meta.ID, err)
			}
			c.DeleteGameState(meta.ID)
			c.DeleteRoom(meta.RoomCode, meta.PlayerIDs)
			continue
		}

		if err := restoreRoom(c, meta, game, serverID); err != nil {
			log.Printf("[Recovery] game %s cache restore: %v", meta.ID, err)
			continue
		}
		restored++
		log.Printf("[Recovery] restored room %s (game %s, seq %d)", meta.RoomCode, meta.ID, game.LastSeq())
	}
	return restored, nil
}

func rebuildGame(ctx context.Context, store eventlog.Store, gameID string) (*golf.Game, error) {
	events, errs := store.StreamEvents(ctx, gameID, 0)
	rebuilt := golf.NewRebuiltGameState()
	for ev := range events {
		if err := rebuilt.Apply(ev); err != nil {
			return nil, fmt.Errorf("apply seq %d: %w", ev.Sequence, err)
		}
	}
	if err := <-errs; err != nil {
		return nil, fmt.Errorf("stream events: %w", err)
	}
	if rebuilt.Sequence == 0 {
		return nil, errors.New("no events")
	}
	return rebuilt.Game, nil
}

func restoreRoom(c cache.Cache, meta eventlog.GameMeta, game *golf.Game, serverID string) error {
	raw, err := json.Marshal(game.ExportState())
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := c.SetGameState(meta.ID, raw); err != nil {
		return fmt.Errorf("cache state: %w", err)
	}
	rec := cache.RoomRecord{
		GameID:    meta.ID,
		HostID:    meta.HostID,
		Status:    golf.StatusForPhase(game.Phase()),
		ServerID:  serverID,
		CreatedAt: meta.CreatedAt,
	}
	players := game.Snapshot().Players
	ids := make([]string, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	// CreateRoom writes the record, the player set, and the active-rooms
	// index in one atomic operation, the same way a live create does.
	if err := c.CreateRoom(meta.RoomCode, rec, ids); err != nil {
		return fmt.Errorf("cache room: %w", err)
	}
	return nil
}

// CatchUp replays any events appended after the game's current
// sequence, for a replica that held a stale in-memory copy. Returns the
// number of events applied.
func CatchUp(ctx context.Context, store eventlog.Store, game *golf.Game) (int, error) {
	rebuilt := golf.ResumeRebuild(game)
	events, err := store.GetEvents(ctx, game.ID(), rebuilt.Sequence+1, 0)
	if err != nil {
		return 0, fmt.Errorf("read events: %w", err)
	}
	for i, ev := range events {
		if err := rebuilt.Apply(ev); err != nil {
			return i, fmt.Errorf("apply seq %d: %w", ev.Sequence, err)
		}
	}
	return len(events), nil
}
