package eventlog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"golf-lite/golf"
)

// Helpers shared by the sqlite and postgres backends.

const metaSelect = `SELECT id, room_code, status, host_id, player_ids, num_players, num_rounds, options, winner_id, created_at_ms, updated_at_ms FROM games_v2`

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanEvents(rows *sql.Rows) ([]golf.Event, error) {
	var out []golf.Event
	for rows.Next() {
		var (
			ev        golf.Event
			playerID  sql.NullString
			data      sql.NullString
			createdMs int64
		)
		if err := rows.Scan(&ev.GameID, &ev.Sequence, &ev.Type, &playerID, &data, &createdMs); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.PlayerID = playerID.String
		if data.Valid {
			ev.Data = json.RawMessage(data.String)
		}
		ev.Timestamp = time.UnixMilli(createdMs).UTC()
		out = append(out, ev)
	}
	return out, rows.Err()
}

func scanMeta(rows *sql.Rows) (GameMeta, error) {
	var (
		meta      GameMeta
		hostID    sql.NullString
		players   sql.NullString
		options   sql.NullString
		winnerID  sql.NullString
		createdMs int64
		updatedMs int64
	)
	err := rows.Scan(&meta.ID, &meta.RoomCode, &meta.Status, &hostID, &players,
		&meta.NumPlayers, &meta.NumRounds, &options, &winnerID, &createdMs, &updatedMs)
	if err != nil {
		return GameMeta{}, fmt.Errorf("scan game meta: %w", err)
	}
	meta.HostID = hostID.String
	meta.WinnerID = winnerID.String
	if players.Valid && players.String != "" {
		if err := json.Unmarshal([]byte(players.String), &meta.PlayerIDs); err != nil {
			return GameMeta{}, fmt.Errorf("decode player ids: %w", err)
		}
	}
	if options.Valid && options.String != "" {
		if err := json.Unmarshal([]byte(options.String), &meta.Options); err != nil {
			return GameMeta{}, fmt.Errorf("decode options: %w", err)
		}
	}
	meta.CreatedAt = time.UnixMilli(createdMs).UTC()
	meta.UpdatedAt = time.UnixMilli(updatedMs).UTC()
	return meta, nil
}

func encodeMetaJSON(meta GameMeta) (players string, options string, err error) {
	p, err := json.Marshal(meta.PlayerIDs)
	if err != nil {
		return "", "", fmt.Errorf("encode player ids: %w", err)
	}
	o, err := json.Marshal(meta.Options)
	if err != nil {
		return "", "", fmt.Errorf("encode options: %w", err)
	}
	return string(p), string(o), nil
}
