package roomdto

import (
	"encoding/json"
	"time"
)

// Inbound message types.
const (
	TypeReady         = "ready"
	TypeMove          = "move"
	TypeResign        = "resign"
	TypeOfferDraw     = "offer_draw"
	TypeAcceptDraw    = "accept_draw"
	TypeDeclineDraw   = "decline_draw"
	TypeRematch       = "rematch"
	TypeRematchAccept = "rematch_accept"
	// TypeLeave is an explicit leave; the transport turns it into a consented disconnect.
	TypeLeave         = "leave"
)

// Outbound message types.
const (
	TypeState          = "state"
	TypeError          = "error"
	TypeRematchRequest = "rematch_request"
	TypeDrawOffer      = "draw_offer"
	TypeJoined         = "joined"
)

// Envelope is the `{type, payload}` frame used in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals payload into an envelope of the given type.
func NewEnvelope(typ string, payload any) (Envelope, error) {
	if payload == nil {
		return Envelope{Type: typ}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: typ, Payload: raw}, nil
}

type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RematchRequest struct {
	From     string `json:"from"`
	Identity string `json:"identity"`
	Name     string `json:"name,omitempty"`
	Message  string `json:"message,omitempty"`
}

type DrawOffer struct {
	From     string `json:"from"`
	Identity string `json:"identity"`
	Message  string `json:"message,omitempty"`
}

// JoinRequest is the first frame a client sends after the socket opens.
type JoinRequest struct {
	Token     string `json:"token"`
	RoomID    string `json:"roomId,omitempty"`
	GameType  string `json:"gameType,omitempty"`
	RestoreID string `json:"restoreId,omitempty"`
	Spectator bool   `json:"spectator,omitempty"`
}

// Joined acknowledges a join with the session binding the server assigned.
type Joined struct {
	RoomID    string `json:"roomId"`
	SessionID string `json:"sessionId"`
	Identity  string `json:"identity"`
	GameType  string `json:"gameType"`
	Spectator bool   `json:"spectator,omitempty"`
}

// GameSummary is one finished game in an identity's history.
type GameSummary struct {
	RoomID         string          `json:"roomId"`
	GameType       string          `json:"gameType"`
	WinnerIdentity string          `json:"winnerIdentity,omitempty"`
	Reason         string          `json:"reason"`
	Players        []PlayerSummary `json:"players"`
	MoveCount      int             `json:"moveCount"`
	PGN            string          `json:"pgn,omitempty"`
	StartedAt      time.Time       `json:"startedAt"`
	EndedAt        time.Time       `json:"endedAt"`
	DurationMs     int64           `json:"durationMs"`
}

type PlayerSummary struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName,omitempty"`
	Score       int    `json:"score"`
	Captured    int    `json:"captured"`
}
