package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the single-node snapshot store.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one writer; modernc serializes anyway and this avoids SQLITE_BUSY under WAL
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS room_snapshots (
			id         TEXT PRIMARY KEY,
			game_type  TEXT NOT NULL,
			state_json TEXT NOT NULL,
			saved_at   INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS room_snapshot_players (
			snapshot_id TEXT NOT NULL REFERENCES room_snapshots(id) ON DELETE CASCADE,
			identity    TEXT NOT NULL,
			PRIMARY KEY (snapshot_id, identity)
		);
	`)
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Load(ctx context.Context, id string) (*Snapshot, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT state_json FROM room_snapshots WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", id, err)
	}
	return decode([]byte(raw))
}

func (s *SQLiteStore) Save(ctx context.Context, snap *Snapshot) error {
	raw, err := encode(snap)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO room_snapshots (id, game_type, state_json, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			game_type = excluded.game_type,
			state_json = excluded.state_json,
			saved_at = excluded.saved_at
	`, snap.ID, snap.GameType, string(raw), snap.SavedAt.Unix()); err != nil {
		return fmt.Errorf("save snapshot %s: %w", snap.ID, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM room_snapshot_players WHERE snapshot_id = ?", snap.ID); err != nil {
		return err
	}
	for identity := range snap.Players {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO room_snapshot_players (snapshot_id, identity) VALUES (?, ?)", snap.ID, identity); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM room_snapshot_players WHERE snapshot_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM room_snapshots WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", id, err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListByIdentity(ctx context.Context, identity string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT snapshot_id FROM room_snapshot_players WHERE identity = ? ORDER BY snapshot_id", identity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Prune removes snapshots saved before cutoff and returns how many went.
func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM room_snapshot_players WHERE snapshot_id IN
			(SELECT id FROM room_snapshots WHERE saved_at < ?)`, cutoff.Unix()); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM room_snapshots WHERE saved_at < ?", cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
