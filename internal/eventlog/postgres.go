package eventlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"golf-lite/golf"
)

// PostgresStore is the shared event log for multi-replica deployments.
// The (game_id, sequence_num) unique index is what arbitrates between
// replicas racing on the same game.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PostgresStore{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id BIGSERIAL PRIMARY KEY,
			game_id TEXT NOT NULL,
			sequence_num BIGINT NOT NULL,
			event_type TEXT NOT NULL,
			player_id TEXT,
			event_data TEXT,
			created_at_ms BIGINT NOT NULL,
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
			created_at_ms BIGINT NOT NULL,
			updated_at_ms BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_games_v2_status ON games_v2 (status)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("postgres schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func isPQUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (s *PostgresStore) Append(ctx context.Context, ev golf.Event) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO events (game_id, sequence_num, event_type, player_id, event_data, created_at_ms)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		ev.GameID, ev.Sequence, ev.Type, nullableString(ev.PlayerID),
		nullableString(string(ev.Data)), ev.Timestamp.UnixMilli()).Scan(&id)
	if err != nil {
		if isPQUniqueViolation(err) {
			return 0, ErrSequenceConflict
		}
		return 0, fmt.Errorf("append event: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) AppendBatch(ctx context.Context, evs []golf.Event) ([]int64, error) {
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
		var id int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO events (game_id, sequence_num, event_type, player_id, event_data, created_at_ms)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			ev.GameID, ev.Sequence, ev.Type, nullableString(ev.PlayerID),
			nullableString(string(ev.Data)), ev.Timestamp.UnixMilli()).Scan(&id)
		if err != nil {
			if isPQUniqueViolation(err) {
				return nil, ErrSequenceConflict
			}
			return nil, fmt.Errorf("append batch: %w", err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit append batch: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) GetEvents(ctx context.Context, gameID string, fromSeq, toSeq uint64) ([]golf.Event, error) {
	if fromSeq == 0 {
		fromSeq = 1
	}
	query := `SELECT game_id, sequence_num, event_type, player_id, event_data, created_at_ms
		 FROM events WHERE game_id = $1 AND sequence_num >= $2`
	args := []any{gameID, fromSeq}
	if toSeq > 0 {
		query += ` AND sequence_num <= $3`
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

func (s *PostgresStore) GetLatestSequence(ctx context.Context, gameID string) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(sequence_num) FROM events WHERE game_id = $1`, gameID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("latest sequence: %w", err)
	}
	if !seq.Valid {
		return -1, nil
	}
	return seq.Int64, nil
}

func (s *PostgresStore) StreamEvents(ctx context.Context, gameID string, fromSeq uint64) (<-chan golf.Event, <-chan error) {
	return streamPaged(ctx, s, gameID, fromSeq)
}

func (s *PostgresStore) UpsertGameMeta(ctx context.Context, meta GameMeta) error {
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
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
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

func (s *PostgresStore) SetGameStatus(ctx context.Context, gameID, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE games_v2 SET status = $1, updated_at_ms = $2 WHERE id = $3`,
		status, time.Now().UnixMilli(), gameID)
	if err != nil {
		return fmt.Errorf("set game status: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) SetGameWinner(ctx context.Context, gameID, winnerID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE games_v2 SET winner_id = $1, updated_at_ms = $2 WHERE id = $3`,
		nullableString(winnerID), time.Now().UnixMilli(), gameID)
	if err != nil {
		return fmt.Errorf("set game winner: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) ListActiveGames(ctx context.Context) ([]GameMeta, error) {
	rows, err := s.db.QueryContext(ctx, metaSelect+` WHERE status = $1`, StatusActive)
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

func (s *PostgresStore) GetGameMeta(ctx context.Context, gameID string) (GameMeta, error) {
	rows, err := s.db.QueryContext(ctx, metaSelect+` WHERE id = $1`, gameID)
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
