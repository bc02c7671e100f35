package room

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/cheese-rooms/internal/persist"
	"github.com/park285/cheese-rooms/pkg/roomdto"
)

func newTestManager(t *testing.T, allowed func(string) bool) (*Manager, *persist.MemoryStore, *recorder) {
	t.Helper()
	store := persist.NewMemoryStore()
	rec := newRecorder()
	m := NewManager(Options{
		Countdown:   1,
		Tick:        time.Millisecond,
		Grace:       20 * time.Millisecond,
		Persistence: persist.NewAdapter(store, store, nil),
		Broadcaster: rec,
	}, allowed)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return m, store, rec
}

func TestManagerCreatesAndJoins(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	ctx := context.Background()

	r, err := m.Join(ctx, JoinTarget{GameType: "reversi"}, session("a1", "alice"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(r.ID(), "RM-"), r.ID())
	assert.Len(t, r.ID(), 9)

	same, err := m.Join(ctx, JoinTarget{RoomID: r.ID()}, session("b1", "bob"))
	require.NoError(t, err)
	assert.Same(t, r, same)
	waitPhase(t, r, PhasePlaying)

	_, err = m.Join(ctx, JoinTarget{RoomID: r.ID()}, session("c1", "carol"))
	var de roomdto.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, roomdto.CodeRoomFull, de.Code)

	got, ok := m.Get(r.ID())
	require.True(t, ok)
	assert.Same(t, r, got)
	assert.Equal(t, 1, m.Len())
}

func TestManagerRejectsDisallowedGame(t *testing.T) {
	m, _, _ := newTestManager(t, func(g string) bool { return g != "chess" })
	ctx := context.Background()

	for _, game := range []string{"chess", "go", ""} {
		_, err := m.Join(ctx, JoinTarget{GameType: game}, session("a1", "alice"))
		var de roomdto.DomainError
		require.ErrorAs(t, err, &de, game)
		assert.Equal(t, roomdto.CodeUnknownGame, de.Code)
	}
	assert.Zero(t, m.Len())
}

func TestManagerReapsEmptyRoom(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	ctx := context.Background()

	r, err := m.Join(ctx, JoinTarget{RoomID: "lobby", GameType: "tictactoe"}, session("a1", "alice"))
	require.NoError(t, err)
	r.Leave("a1", false)

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, time.Millisecond)
	assert.True(t, r.Closed())

	again, err := m.Join(ctx, JoinTarget{RoomID: "lobby", GameType: "tictactoe"}, session("a1", "alice"))
	require.NoError(t, err)
	assert.NotSame(t, r, again)
}

func TestManagerSuspendsAbandonedGameAndRestores(t *testing.T) {
	m, store, _ := newTestManager(t, nil)
	ctx := context.Background()

	r, err := m.Join(ctx, JoinTarget{RoomID: "g1", GameType: "connect4"}, session("a1", "alice"))
	require.NoError(t, err)
	_, err = m.Join(ctx, JoinTarget{RoomID: "g1"}, session("b1", "bob"))
	require.NoError(t, err)
	waitPhase(t, r, PhasePlaying)
	send(t, r, "a1", roomdto.TypeMove, map[string]int{"col": 0})

	r.Leave("a1", false)
	r.Leave("b1", false)
	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, time.Millisecond)

	ids, err := store.ListByIdentity(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"g1"}, ids)

	restored, err := m.Join(ctx, JoinTarget{RestoreID: "g1"}, session("b2", "bob"))
	require.NoError(t, err)
	st := restored.State()
	assert.Equal(t, string(PhasePlaying), st.Phase)
	assert.Equal(t, "b2", st.CurrentTurnPlayerID)
	assert.Equal(t, 1, st.MoveCount)
}

func suspendConnect4(t *testing.T, m *Manager, id string) {
	t.Helper()
	ctx := context.Background()
	r, err := m.Join(ctx, JoinTarget{RoomID: id, GameType: "connect4"}, session("a1", "alice"))
	require.NoError(t, err)
	_, err = m.Join(ctx, JoinTarget{RoomID: id}, session("b1", "bob"))
	require.NoError(t, err)
	waitPhase(t, r, PhasePlaying)
	send(t, r, "a1", roomdto.TypeMove, map[string]int{"col": 0})
	r.Leave("a1", true)
	r.Leave("b1", true)
	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, time.Millisecond)
}

func TestManagerDropsRestoredRoomForOutsider(t *testing.T) {
	m, store, _ := newTestManager(t, nil)
	ctx := context.Background()
	suspendConnect4(t, m, "g1")
	before, err := store.Load(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, before)

	_, err = m.Join(ctx, JoinTarget{RestoreID: "g1"}, session("c1", "carol"))
	var de roomdto.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, roomdto.CodeNotParticipant, de.Code)
	assert.Zero(t, m.Len())

	after, err := store.Load(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.True(t, before.SavedAt.Equal(after.SavedAt), "untouched snapshot rewritten")

	r, err := m.Join(ctx, JoinTarget{RestoreID: "g1"}, session("b2", "bob"))
	require.NoError(t, err)
	assert.Equal(t, "b2", r.State().CurrentTurnPlayerID)
}

func TestManagerDropsRoomWhenFirstJoinFails(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	_, err := m.Join(context.Background(), JoinTarget{RoomID: "x", GameType: "tictactoe"}, Session{ID: "s1"})
	require.ErrorIs(t, err, ErrBadSession)
	assert.Zero(t, m.Len())
}

// gatedPersistence holds LoadGameState for one id until release is closed.
type gatedPersistence struct {
	Persistence
	slowID  string
	release chan struct{}
	loads   atomic.Int32
}

func (g *gatedPersistence) LoadGameState(ctx context.Context, id string) (*persist.Snapshot, error) {
	if id == g.slowID {
		g.loads.Add(1)
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return g.Persistence.LoadGameState(ctx, id)
}

func TestManagerSlowRestoreDoesNotBlockOtherRooms(t *testing.T) {
	store := persist.NewMemoryStore()
	gate := &gatedPersistence{
		Persistence: persist.NewAdapter(store, store, nil),
		slowID:      "slow",
		release:     make(chan struct{}),
	}
	m := NewManager(Options{
		Countdown:   1,
		Tick:        time.Millisecond,
		Persistence: gate,
		Broadcaster: newRecorder(),
	}, nil)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	var wg sync.WaitGroup
	got := make([]*Room, 2)
	errs := make([]error, 2)
	for i, s := range []Session{session("a1", "alice"), session("b1", "bob")} {
		wg.Add(1)
		go func(i int, s Session) {
			defer wg.Done()
			got[i], errs[i] = m.Join(context.Background(), JoinTarget{RestoreID: "slow", GameType: "reversi"}, s)
		}(i, s)
	}
	require.Eventually(t, func() bool { return gate.loads.Load() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	fast, err := m.Join(ctx, JoinTarget{RoomID: "fast", GameType: "tictactoe"}, session("c1", "carol"))
	require.NoError(t, err)
	assert.Equal(t, "fast", fast.ID())

	close(gate.release)
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Same(t, got[0], got[1])
	assert.Equal(t, int32(1), gate.loads.Load())
	waitPhase(t, got[0], PhasePlaying)
}

func TestManagerShutdownSavesLiveGames(t *testing.T) {
	m, store, _ := newTestManager(t, nil)
	ctx := context.Background()

	r, err := m.Join(ctx, JoinTarget{RoomID: "g2", GameType: "gomoku"}, session("a1", "alice"))
	require.NoError(t, err)
	_, err = m.Join(ctx, JoinTarget{RoomID: "g2"}, session("b1", "bob"))
	require.NoError(t, err)
	waitPhase(t, r, PhasePlaying)

	require.NoError(t, m.Shutdown(ctx))
	assert.Zero(t, m.Len())
	snap, err := store.Load(ctx, "g2")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "alice", snap.CurrentTurnIdentity)
}

func TestNewRoomCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := NewRoomCode()
		require.NoError(t, err)
		require.Regexp(t, `^RM-[A-Z0-9]{6}$`, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 40)
}
