// Package persist implements the room persistence boundary: suspended-game
// snapshots (Redis, SQLite or in-process) and finished-game results (Postgres).
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/park285/cheese-rooms/internal/board"
)

var ErrNoID = errors.New("snapshot id required")

// PlayerData is the per-identity slice of a snapshot.
type PlayerData struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Index       int    `json:"index"`
	Symbol      string `json:"symbol,omitempty"`
	Score       int    `json:"score"`
	Captured    int    `json:"captured"`
	RemainingMs int64  `json:"remainingMs,omitempty"`
}

// Snapshot is a suspended game. CurrentTurnIdentity is always a persistent
// identity; session ids never reach storage.
type Snapshot struct {
	ID                  string                `json:"id"`
	GameType            string                `json:"gameType"`
	Width               int                   `json:"width"`
	Height              int                   `json:"height"`
	Cells               []board.Cell          `json:"cells"`
	TurnNumber          int                   `json:"turnNumber"`
	CurrentTurnIdentity string                `json:"currentTurnIdentity"`
	Players             map[string]PlayerData `json:"players"`
	Moves               []board.Entry         `json:"moves"`
	Extra               json.RawMessage       `json:"extra,omitempty"`
	StartedAt           time.Time             `json:"startedAt"`
	SavedAt             time.Time             `json:"savedAt"`
}

// Identities returns the player identities ordered by seat index.
func (s *Snapshot) Identities() []string {
	out := make([]string, len(s.Players))
	for id, p := range s.Players {
		if p.Index >= 0 && p.Index < len(out) {
			out[p.Index] = id
		}
	}
	return out
}

// Result is a finished game handed over once on room disposal.
type Result struct {
	RoomID         string
	GameType       string
	WinnerIdentity string
	Reason         string
	Players        []PlayerData
	Moves          []board.Entry
	StartedAt      time.Time
	EndedAt        time.Time
	Duration       time.Duration
}

// SnapshotStore persists suspended games keyed by room id.
type SnapshotStore interface {
	Load(ctx context.Context, id string) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	Delete(ctx context.Context, id string) error
	// ListByIdentity returns the ids of suspended games the identity plays in.
	ListByIdentity(ctx context.Context, identity string) ([]string, error)
}

func encode(snap *Snapshot) ([]byte, error) {
	if snap == nil || snap.ID == "" {
		return nil, ErrNoID
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now().UTC()
	}
	return json.Marshal(snap)
}

func decode(raw []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
