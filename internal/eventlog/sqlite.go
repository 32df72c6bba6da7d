package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"golf-lite/golf"
)

// SQLiteStore keeps the event log in a local sqlite file. Suited to a
// single replica; multi-replica deployments use the postgres store.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps writers serialized and makes :memory: safe.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000`,
		`PRAGMA journal_mode = WAL`,
		`PRAGMA foreign_keys = ON`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite pragma: %w", err)
		}
	}
	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			game_id TEXT NOT NULL,
			sequence_num INTEGER NOT NULL,
			event_type TEXT NOT NULL,
			player_id TEXT,
			event_data TEXT,
			created_at_ms INTEGER NOT NULL,
			UNIQUE (game_id, sequence_num)
		)`,
		`CREATE TABLE IF NOT EXISTS games_v2 (
			id TEXT PRIMARY KEY,
			room_code TEXT NOT NULL,
			status TEXT NOT NULL,
			host_id TEXT,
			player_ids TEXT,
			num_players INTEGER NOT NULL DEFAULT 0,
			num_rounds INTEGER NOT NULL DEFAULT 0,
			options TEXT,
			winner_id TEXT,
			created_at_ms INTEGER NOT NULL,
			updated_at_ms INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_games_v2_status ON games_v2 (status)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("sqlite schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func isSQLiteUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *SQLiteStore) Append(ctx context.Context, ev golf.Event) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events (game_id, sequence_num, event_type, player_id, event_data, created_at_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ev.GameID, ev.Sequence, ev.Type, nullableString(ev.PlayerID),
		nullableString(string(ev.Data)), ev.Timestamp.UnixMilli())
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return 0, ErrSequenceConflict
		}
		return 0, fmt.Errorf("append event: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) AppendBatch(ctx context.Context, evs []golf.Event) ([]int64, error) {
	if len(evs) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin append batch: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(evs))
	for _, ev := range evs {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO events (game_id, sequence_num, event_type, player_id, event_data, created_at_ms)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			ev.GameID, ev.Sequence, ev.Type, nullableString(ev.PlayerID),
			nullableString(string(ev.Data)), ev.Timestamp.UnixMilli())
		if err != nil {
			if isSQLiteUniqueViolation(err) {
				return nil, ErrSequenceConflict
			}
			return nil, fmt.Errorf("append batch: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("append batch id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit append batch: %w", err)
	}
	return ids, nil
}

func (s *SQLiteStore) GetEvents(ctx context.Context, gameID string, fromSeq, toSeq uint64) ([]golf.Event, error) {
	if fromSeq == 0 {
		fromSeq = 1
	}
	query := `SELECT game_id, sequence_num, event_type, player_id, event_data, created_at_ms
		 FROM events WHERE game_id = ? AND sequence_num >= ?`
	args := []any{gameID, fromSeq}
	if toSeq > 0 {
		query += ` AND sequence_num <= ?`
		args = append(args, toSeq)
	}
	query += ` ORDER BY sequence_num ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *SQLiteStore) GetLatestSequence(ctx context.Context, gameID string) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(sequence_num) FROM events WHERE game_id = ?`, gameID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("latest sequence: %w", err)
	}
	if !seq.Valid {
		return -1, nil
	}
	return seq.Int64, nil
}

func (s *SQLiteStore) StreamEvents(ctx context.Context, gameID string, fromSeq uint64) (<-chan golf.Event, <-chan error) {
	return streamPaged(ctx, s, gameID, fromSeq)
}

func (s *SQLiteStore) UpsertGameMeta(ctx context.Context, meta GameMeta) error {
	players, options, err := encodeMetaJSON(meta)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	created := now
	if !meta.CreatedAt.IsZero() {
		created = meta.CreatedAt.UnixMilli()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO games_v2 (id, room_code, status, host_id, player_ids, num_players, num_rounds, options, winner_id, created_at_ms, updated_at_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			room_code = excluded.room_code,
			status = excluded.status,
			host_id = excluded.host_id,
			player_ids = excluded.player_ids,
			num_players = excluded.num_players,
			num_rounds = excluded.num_rounds,
			options = excluded.options,
			winner_id = excluded.winner_id,
			updated_at_ms = excluded.updated_at_ms`,
		meta.ID, meta.RoomCode, meta.Status, nullableString(meta.HostID),
		players, meta.NumPlayers, meta.NumRounds, options,
		nullableString(meta.WinnerID), created, now)
	if err != nil {
		return fmt.Errorf("upsert game meta: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SetGameStatus(ctx context.Context, gameID, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE games_v2 SET status = ?, updated_at_ms = ? WHERE id = ?`,
		status, time.Now().UnixMilli(), gameID)
	if err != nil {
		return fmt.Errorf("set game status: %w", err)
	}
	return requireRow(res)
}

func (s *SQLiteStore) SetGameWinner(ctx context.Context, gameID, winnerID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE games_v2 SET winner_id = ?, updated_at_ms = ? WHERE id = ?`,
		nullableString(winnerID), time.Now().UnixMilli(), gameID)
	if err != nil {
		return fmt.Errorf("set game winner: %w", err)
	}
	return requireRow(res)
}

func (s *SQLiteStore) ListActiveGames(ctx context.Context) ([]GameMeta, error) {
	rows, err := s.db.QueryContext(ctx, metaSelect+` WHERE status = ?`, StatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active games: %w", err)
	}
	defer rows.Close()

	var out []GameMeta
	for rows.Next() {
		meta, err := scanMeta(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, meta)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetGameMeta(ctx context.Context, gameID string) (GameMeta, error) {
	rows, err := s.db.QueryContext(ctx, metaSelect+` WHERE id = ?`, gameID)
	if err != nil {
		return GameMeta{}, fmt.Errorf("get game meta: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return GameMeta{}, err
		}
		return GameMeta{}, ErrNotFound
	}
	return scanMeta(rows)
}
