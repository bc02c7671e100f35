package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/cheese-rooms/internal/domain"
)

// Repository stores finished games in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	r := &Repository{db: db}
	if err := r.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

const createResultsTable = `CREATE TABLE IF NOT EXISTS game_results (
	id              BIGSERIAL PRIMARY KEY,
	room_id         TEXT NOT NULL,
	game_type       TEXT NOT NULL,
	winner_identity TEXT NOT NULL DEFAULT '',
	reason          TEXT NOT NULL,
	players         JSONB NOT NULL,
	moves           JSONB NOT NULL,
	pgn             TEXT NOT NULL DEFAULT '',
	final_fen       TEXT NOT NULL DEFAULT '',
	started_at      TIMESTAMPTZ NOT NULL,
	ended_at        TIMESTAMPTZ NOT NULL,
	duration_ms     BIGINT NOT NULL,
	UNIQUE (room_id, started_at)
)`

func (r *Repository) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, createResultsTable)
	return err
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult upserts a finished game. A rematch in the same room is a new row
// because started_at differs.
func (r *Repository) SaveResult(ctx context.Context, rec *domain.GameRecord) error {
	if r == nil || r.db == nil || rec == nil {
		return nil
	}
	playersRaw, err := json.Marshal(rec.Players)
	if err != nil {
		return err
	}
	movesRaw, err := json.Marshal(rec.Moves)
	if err != nil {
		return err
	}
	duration := rec.Duration.Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO game_results (
        room_id, game_type, winner_identity, reason, players, moves,
        pgn, final_fen, started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
      ) ON CONFLICT (room_id, started_at) DO UPDATE SET
        game_type=EXCLUDED.game_type,
        winner_identity=EXCLUDED.winner_identity,
        reason=EXCLUDED.reason,
        players=EXCLUDED.players,
        moves=EXCLUDED.moves,
        pgn=EXCLUDED.pgn,
        final_fen=EXCLUDED.final_fen,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err = r.db.ExecContext(ctx, q,
		rec.RoomID, rec.GameType, rec.WinnerIdentity, rec.Reason,
		string(playersRaw), string(movesRaw),
		rec.PGN, rec.FinalFEN, rec.StartedAt, rec.EndedAt, duration,
	)
	return err
}

// RecentByIdentity lists the latest results an identity took part in.
func (r *Repository) RecentByIdentity(ctx context.Context, identity string, limit int) ([]domain.GameRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	filter, err := json.Marshal([]map[string]string{{"identity": identity}})
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, room_id, game_type, winner_identity, reason,
        players, moves, pgn, final_fen, started_at, ended_at, duration_ms
      FROM game_results WHERE players @> $1::jsonb ORDER BY ended_at DESC LIMIT $2`, string(filter), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.GameRecord
	for rows.Next() {
		var rec domain.GameRecord
		var playersRaw, movesRaw []byte
		var durationMs int64
		if err := rows.Scan(&rec.ID, &rec.RoomID, &rec.GameType, &rec.WinnerIdentity, &rec.Reason,
			&playersRaw, &movesRaw, &rec.PGN, &rec.FinalFEN, &rec.StartedAt, &rec.EndedAt, &durationMs); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(playersRaw, &rec.Players); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(movesRaw, &rec.Moves); err != nil {
			return nil, err
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}
