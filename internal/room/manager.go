package room

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/park285/cheese-rooms/internal/obslog"
	"github.com/park285/cheese-rooms/internal/rules/catalog"
	"github.com/park285/cheese-rooms/pkg/roomdto"
)

// JoinTarget selects the room a session wants. An empty RoomID creates a new
// room with a generated code; RestoreID resumes a suspended game under its
// original id.
type JoinTarget struct {
	RoomID    string
	GameType  string
	RestoreID string
}

// Manager is the hub that owns every live room in the process.
type Manager struct {
	base    Options
	allowed func(gameType string) bool

	mu       sync.Mutex
	rooms    map[string]*Room
	creating singleflight.Group
}

// NewManager builds a hub; base supplies the shared collaborators for every
// room it creates. A nil allowed permits every registered game.
func NewManager(base Options, allowed func(gameType string) bool) *Manager {
	if allowed == nil {
		allowed = func(string) bool { return true }
	}
	return &Manager{base: base.withDefaults(), allowed: allowed, rooms: map[string]*Room{}}
}

// Join opens (or creates) the room described by target and binds s to it.
// A failed join leaves no room behind unless someone else is using it.
func (m *Manager) Join(ctx context.Context, target JoinTarget, s Session) (*Room, error) {
	for attempt := 0; attempt < 2; attempt++ {
		r, err := m.open(ctx, target)
		if err != nil {
			return nil, err
		}
		err = r.Join(ctx, s)
		if errors.Is(err, ErrClosed) {
			m.forget(r)
			continue
		}
		if err != nil {
			m.reap(r)
			return nil, err
		}
		return r, nil
	}
	return nil, roomdto.DomainError{Code: roomdto.CodeRoomClosed}
}

// open returns the live room for target or creates it. Creation for one id
// runs once at a time; other ids are not held up by a slow snapshot load.
func (m *Manager) open(ctx context.Context, target JoinTarget) (*Room, error) {
	id := strings.TrimSpace(target.RoomID)
	restoreID := strings.TrimSpace(target.RestoreID)
	if restoreID != "" {
		id = restoreID
	}
	if r := m.live(id); r != nil {
		return r, nil
	}
	if target.GameType != "" || restoreID == "" {
		key := catalog.Normalize(target.GameType)
		if _, err := catalog.New(key); err != nil || !m.allowed(key) {
			return nil, roomdto.DomainError{Code: roomdto.CodeUnknownGame, Detail: target.GameType}
		}
	}
	if id == "" {
		m.mu.Lock()
		id = m.freeCode()
		m.mu.Unlock()
	}

	ch := m.creating.DoChan(id, func() (any, error) {
		if r := m.live(id); r != nil {
			return r, nil
		}
		opts := m.base
		opts.ID = id
		opts.GameType = target.GameType
		opts.RestoreID = restoreID
		opts.OnIdle = m.onIdle
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opts.IOTimeout)
		defer cancel()
		r, err := New(lctx, opts)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.rooms[id] = r
		m.mu.Unlock()
		return r, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Room), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) live(id string) *Room {
	if id == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[id]; ok && !r.Closed() {
		return r
	}
	return nil
}

// freeCode picks a room code not in use. Called with m.mu held.
func (m *Manager) freeCode() string {
	for i := 0; i < 8; i++ {
		code, err := NewRoomCode()
		if err != nil {
			break
		}
		if _, taken := m.rooms[code]; !taken {
			return code
		}
	}
	return uuid.NewString()
}

// NewRoomCode returns `RM-` + 6 upper alnum.
func NewRoomCode() (string, error) {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}
	return fmt.Sprintf("RM-%s", string(b)), nil
}

func (m *Manager) onIdle(r *Room) { go m.reap(r) }

func (m *Manager) reap(r *Room) {
	ctx, cancel := context.WithTimeout(context.Background(), m.base.IOTimeout)
	defer cancel()
	disposed, err := r.DisposeIfIdle(ctx)
	if err != nil {
		obslog.L().Warn("room_reap_error", zap.String("room_id", r.ID()), zap.Error(err))
	}
	if disposed || r.Closed() {
		m.forget(r)
	}
}

func (m *Manager) forget(r *Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.rooms[r.ID()]; ok && cur == r {
		delete(m.rooms, r.ID())
	}
}

// Get returns the live room with id.
func (m *Manager) Get(id string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok || r.Closed() {
		return nil, false
	}
	return r, true
}

// Len is the number of live rooms.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

// Shutdown suspends every room, saving games still in progress.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.rooms = map[string]*Room{}
	m.mu.Unlock()

	var errs []error
	for _, r := range rooms {
		if err := r.Suspend(ctx); err != nil {
			errs = append(errs, fmt.Errorf("room %s: %w", r.ID(), err))
		}
	}
	obslog.L().Info("room_manager_shutdown", zap.Int("rooms", len(rooms)), zap.Int("errors", len(errs)))
	return errors.Join(errs...)
}
