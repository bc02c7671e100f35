// Package room runs one actor goroutine per game room. Every message, timer
// callback and disposal step for a room executes on that goroutine, so room
// state needs no locks.
package room

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/park285/cheese-rooms/internal/metrics"
	"github.com/park285/cheese-rooms/internal/msgcat"
	"github.com/park285/cheese-rooms/internal/persist"
	"github.com/park285/cheese-rooms/pkg/roomdto"
)

type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhaseCountdown Phase = "countdown"
	PhasePlaying   Phase = "playing"
	PhaseFinished  Phase = "finished"
)

const (
	DefaultCountdown = 3
	DefaultGrace     = 30 * time.Second

	placeholderPrefix = "restored:"
)

var (
	ErrClosed     = errors.New("room closed")
	ErrNoRoomID   = errors.New("room id required")
	ErrBadSession = errors.New("session id and identity required")
)

// Profile is the verified account a session joins with.
type Profile struct {
	Identity    string
	DisplayName string
	AvatarURL   string
}

// Session is one live connection asking to join.
type Session struct {
	ID        string
	Profile   Profile
	Spectator bool
}

// Broadcaster delivers outbound envelopes to a single live session.
type Broadcaster interface {
	Send(sessionID string, env roomdto.Envelope)
}

// Evictor is implemented by broadcasters that can close a session whose
// seat was taken over by a newer one.
type Evictor interface {
	Evict(sessionID string)
}

type BroadcasterFunc func(sessionID string, env roomdto.Envelope)

func (f BroadcasterFunc) Send(sessionID string, env roomdto.Envelope) { f(sessionID, env) }

// Persistence is the store boundary a room awaits on create and on dispose.
// LoadGameState returns nil, nil on a miss.
type Persistence interface {
	LoadGameState(ctx context.Context, id string) (*persist.Snapshot, error)
	SaveGameState(ctx context.Context, snap *persist.Snapshot) error
	DeleteGameState(ctx context.Context, id string) error
	PersistGameResult(ctx context.Context, res *persist.Result) error
}

type nopPersistence struct{}

func (nopPersistence) LoadGameState(context.Context, string) (*persist.Snapshot, error) {
	return nil, nil
}
func (nopPersistence) SaveGameState(context.Context, *persist.Snapshot) error   { return nil }
func (nopPersistence) DeleteGameState(context.Context, string) error            { return nil }
func (nopPersistence) PersistGameResult(context.Context, *persist.Result) error { return nil }

// Options configures a room. Zero values fall back to the defaults above.
type Options struct {
	ID       string
	GameType string
	// RestoreID names a suspended snapshot to resume instead of a fresh game.
	RestoreID string

	Countdown int
	Tick      time.Duration
	Grace     time.Duration
	IOTimeout time.Duration

	Persistence Persistence
	Broadcaster Broadcaster
	Messages    *msgcat.Catalog
	Metrics     *metrics.Metrics

	// OnIdle runs on the room goroutine when the last live session is gone
	// and no reconnect window is open. It must not block on the room.
	OnIdle func(r *Room)
	Now    func() time.Time
}

func (o Options) withDefaults() Options {
	if o.ID == "" {
		o.ID = o.RestoreID
	}
	if o.Countdown <= 0 {
		o.Countdown = DefaultCountdown
	}
	if o.Tick <= 0 {
		o.Tick = time.Second
	}
	if o.Grace <= 0 {
		o.Grace = DefaultGrace
	}
	if o.IOTimeout <= 0 {
		o.IOTimeout = 5 * time.Second
	}
	if o.Persistence == nil {
		o.Persistence = nopPersistence{}
	}
	if o.Broadcaster == nil {
		o.Broadcaster = BroadcasterFunc(func(string, roomdto.Envelope) {})
	}
	if o.Messages == nil {
		o.Messages = msgcat.MustDefault()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// player is a seat: a persistent identity plus its current session binding.
type player struct {
	Profile
	sessionID   string
	index       int
	connected   bool
	ready       bool
	symbol      string
	score       int
	captured    int
	remainingMs int64

	grace    *time.Timer
	graceGen uint64
}

// isPlaceholder reports whether id stands in for a not-yet-rejoined player.
func isPlaceholder(id string) bool { return strings.HasPrefix(id, placeholderPrefix) }

func (p *player) view() roomdto.PlayerView {
	return roomdto.PlayerView{
		SessionID:   p.sessionID,
		Identity:    p.Identity,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
		Index:       p.index,
		Connected:   p.connected,
		Ready:       p.ready,
		Symbol:      p.symbol,
		Score:       p.score,
		Captured:    p.captured,
		RemainingMs: p.remainingMs,
	}
}

func (p *player) data() persist.PlayerData {
	return persist.PlayerData{
		Identity:    p.Identity,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
		Index:       p.index,
		Symbol:      p.symbol,
		Score:       p.score,
		Captured:    p.captured,
		RemainingMs: p.remainingMs,
	}
}
