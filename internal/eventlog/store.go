package eventlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golf-lite/golf"
)

var (
	// ErrSequenceConflict is the optimistic-concurrency signal: another
	// writer already appended at this (game, sequence). The caller must
	// re-read state and retry or reject.
	ErrSequenceConflict = errors.New("event sequence conflict")

	ErrNotFound = errors.New("not found")
)

// Game statuses in the metadata table.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusAbandoned = "abandoned"
)

// GameMeta is the denormalized game row used for recovery listing and
// history queries. It is a derived view of the event log.
type GameMeta struct {
	ID         string
	RoomCode   string
	Status     string
	HostID     string
	PlayerIDs  []string
	NumPlayers int
	NumRounds  int
	Options    map[string]bool
	WinnerID   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Store is the append-only event log plus game metadata. Append and
// AppendBatch return ErrSequenceConflict when the (game_id, sequence)
// slot is already taken; AppendBatch is atomic.
type Store interface {
	Close() error

	Append(ctx context.Context, ev golf.Event) (int64, error)
	AppendBatch(ctx context.Context, evs []golf.Event) ([]int64, error)

	// GetEvents returns events ordered by sequence. fromSeq/toSeq of 0
	// mean unbounded on that side.
	GetEvents(ctx context.Context, gameID string, fromSeq, toSeq uint64) ([]golf.Event, error)

	// GetLatestSequence returns the highest sequence for the game, or -1
	// when the game has no events.
	GetLatestSequence(ctx context.Context, gameID string) (int64, error)

	// StreamEvents pages through a game's history without loading it all
	// at once. The event channel closes when the history is exhausted;
	// the error channel delivers at most one error.
	StreamEvents(ctx context.Context, gameID string, fromSeq uint64) (<-chan golf.Event, <-chan error)

	UpsertGameMeta(ctx context.Context, meta GameMeta) error
	SetGameStatus(ctx context.Context, gameID, status string) error
	SetGameWinner(ctx context.Context, gameID, winnerID string) error
	ListActiveGames(ctx context.Context) ([]GameMeta, error)
	GetGameMeta(ctx context.Context, gameID string) (GameMeta, error)
}

// streamPageSize is how many events each StreamEvents page fetches.
const streamPageSize = 256

// streamPaged implements StreamEvents on top of GetEvents for every
// backend.
func streamPaged(ctx context.Context, s Store, gameID string, fromSeq uint64) (<-chan golf.Event, <-chan error) {
	events := make(chan golf.Event)
	errs := make(chan error, 1)
	if fromSeq == 0 {
		fromSeq = 1
	}
	go func() {
		defer close(events)
		defer close(errs)
		next := fromSeq
		for {
			page, err := s.GetEvents(ctx, gameID, next, next+streamPageSize-1)
			if err != nil {
				errs <- err
				return
			}
			for _, ev := range page {
				select {
				case events <- ev:
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}
			if len(page) < streamPageSize {
				return
			}
			next += streamPageSize
		}
	}()
	return events, errs
}

// NewStoreFromEnv builds the store selected by EVENTLOG_DRIVER and
// returns it with the resolved mode string.
//
//	""/"local"/"sqlite"  local sqlite file (EVENTLOG_SQLITE_PATH)
//	"postgres"           shared postgres (EVENTLOG_POSTGRES_DSN)
//	"memory"             in-process, for tests and throwaway runs
func NewStoreFromEnv() (Store, string, error) {
	driver := os.Getenv("EVENTLOG_DRIVER")
	switch driver {
	case "", "local", "sqlite":
		path := os.Getenv("EVENTLOG_SQLITE_PATH")
		if path == "" {
			dir, err := os.UserConfigDir()
			if err != nil {
				return nil, "", fmt.Errorf("resolve sqlite path: %w", err)
			}
			path = filepath.Join(dir, "golf-lite", "golf_events.db")
		}
		store, err := NewSQLiteStore(path)
		if err != nil {
			return nil, "", err
		}
		return store, "sqlite:" + path, nil

	case "postgres":
		dsn := os.Getenv("EVENTLOG_POSTGRES_DSN")
		if dsn == "" {
			dsn = os.Getenv("DATABASE_URL")
		}
		if dsn == "" {
			return nil, "", errors.New("EVENTLOG_DRIVER=postgres needs EVENTLOG_POSTGRES_DSN or DATABASE_URL")
		}
		store, err := NewPostgresStore(dsn)
		if err != nil {
			return nil, "", err
		}
		return store, "postgres", nil

	case "memory":
		return NewMemoryStore(), "memory", nil

	default:
		return nil, "", fmt.Errorf("unknown EVENTLOG_DRIVER %q", driver)
	}
}
