package domain

import "time"

// GameRecord is the immutable result row written once per finished game.
type GameRecord struct {
	ID             int64
	RoomID         string
	GameType       string
	WinnerIdentity string
	Reason         string
	Players        []PlayerRecord
	Moves          []string
	PGN            string
	FinalFEN       string
	StartedAt      time.Time
	EndedAt        time.Time
	Duration       time.Duration
}

type PlayerRecord struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName,omitempty"`
	Index       int    `json:"index"`
	Symbol      string `json:"symbol,omitempty"`
	Score       int    `json:"score"`
	Captured    int    `json:"captured"`
}

// Draw reports whether the game ended without a winner.
func (g GameRecord) Draw() bool { return g.WinnerIdentity == "" }
