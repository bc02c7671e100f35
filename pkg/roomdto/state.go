package roomdto

import "time"

// StateView is the copied-out authoritative room state sent on every mutation.
type StateView struct {
	RoomID              string       `json:"roomId"`
	GameType            string       `json:"gameType"`
	Version             uint64       `json:"version"`
	Phase               string       `json:"phase"`
	Countdown           int          `json:"countdown"`
	TurnNumber          int          `json:"turnNumber"`
	CurrentTurnPlayerID string       `json:"currentTurnPlayerId,omitempty"`
	CurrentTurnIdentity string       `json:"currentTurnIdentity,omitempty"`
	Width               int          `json:"width"`
	Height              int          `json:"height"`
	Cells               []int        `json:"cells"`
	Players             []PlayerView `json:"players"`
	Spectators          int          `json:"spectators"`
	WinnerID            string       `json:"winnerId,omitempty"`
	WinnerIdentity      string       `json:"winnerIdentity,omitempty"`
	WinReason           string       `json:"winReason,omitempty"`
	DrawOfferFrom       string       `json:"drawOfferFrom,omitempty"`
	RematchFrom         string       `json:"rematchFrom,omitempty"`
	LastMove            *MoveView    `json:"lastMove,omitempty"`
	MoveCount           int          `json:"moveCount"`
	StartedAt           *time.Time   `json:"startedAt,omitempty"`
}

type PlayerView struct {
	SessionID   string `json:"sessionId"`
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Index       int    `json:"index"`
	Connected   bool   `json:"connected"`
	Ready       bool   `json:"ready"`
	Symbol      string `json:"symbol,omitempty"`
	Score       int    `json:"score"`
	Captured    int    `json:"captured"`
	RemainingMs int64  `json:"remainingMs,omitempty"`
}

type MoveView struct {
	Player      string `json:"player"`
	PlayerIndex int    `json:"playerIndex"`
	FromRow     int    `json:"fromRow"`
	FromCol     int    `json:"fromCol"`
	ToRow       *int   `json:"toRow,omitempty"`
	ToCol       *int   `json:"toCol,omitempty"`
	Notation    string `json:"notation"`
}
