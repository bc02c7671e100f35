package room

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-rooms/internal/board"
	"github.com/park285/cheese-rooms/internal/obslog"
	"github.com/park285/cheese-rooms/internal/rules"
	"github.com/park285/cheese-rooms/internal/rules/catalog"
	"github.com/park285/cheese-rooms/pkg/roomdto"
)

// Room is a single game room. Exported methods are safe for concurrent use;
// they hand work to the room goroutine.
type Room struct {
	id   string
	opts Options
	log  *zap.Logger

	inbox    chan func()
	quit     chan struct{}
	stopping bool
	view     atomic.Pointer[roomdto.StateView]

	// Everything below is owned by the room goroutine.
	gameType    string
	engine      rules.Engine
	board       *board.Board
	moves       board.MoveLog
	phase       Phase
	roster      map[string]*player
	seats       []string
	spectators  map[string]Profile
	turn        int
	turnNumber  int
	countdown   int
	tick        *time.Timer
	tickGen     uint64
	winner      int
	reason      string
	drawFrom    int
	rematchFrom int
	startedAt   time.Time
	endedAt     time.Time
	restoredID  string
	reported    bool
	cold        bool
	version     uint64
}

// New creates a room and starts its goroutine. With a RestoreID the
// snapshot load is awaited before the room accepts anything; a miss or an
// unusable snapshot falls back to a fresh game of GameType.
func New(ctx context.Context, opts Options) (*Room, error) {
	opts = opts.withDefaults()
	if opts.ID == "" {
		return nil, ErrNoRoomID
	}
	r := &Room{
		id:          opts.ID,
		opts:        opts,
		log:         obslog.Room(opts.ID, opts.GameType),
		inbox:       make(chan func(), 64),
		quit:        make(chan struct{}),
		phase:       PhaseWaiting,
		roster:      map[string]*player{},
		spectators:  map[string]Profile{},
		winner:      -1,
		drawFrom:    -1,
		rematchFrom: -1,
	}

	restored := false
	if opts.RestoreID != "" {
		ok, err := r.restore(ctx, opts.RestoreID)
		if err != nil {
			r.log.Warn("room_restore_failed", zap.String("restore_id", opts.RestoreID), zap.Error(err))
		}
		restored = ok
	}
	if !restored {
		engine, err := catalog.New(opts.GameType)
		if err != nil {
			return nil, roomdto.DomainError{Code: roomdto.CodeUnknownGame, Detail: opts.GameType}
		}
		r.setup(engine)
	}
	r.log = obslog.Room(r.id, r.gameType)
	r.log.Info("room_create",
		zap.Bool("restored", restored),
		zap.String("phase", string(r.phase)),
	)
	r.opts.Metrics.RoomOpened()
	r.publish()
	go r.run()
	return r, nil
}

func (r *Room) setup(engine rules.Engine) {
	r.engine = engine
	r.gameType = engine.Key()
	w, h := engine.Dimensions()
	r.board = board.MustNew(w, h)
	engine.InitializeBoard(r.board)
}

func (r *Room) ID() string { return r.id }

// GameType is fixed at creation and safe to read from any goroutine.
func (r *Room) GameType() string { return r.State().GameType }

func (r *Room) run() {
	for fn := range r.inbox {
		fn()
		if r.stopping {
			close(r.quit)
			return
		}
	}
}

// post queues fn for the room goroutine; false once the room is closed.
func (r *Room) post(fn func()) bool {
	select {
	case <-r.quit:
		return false
	default:
	}
	select {
	case r.inbox <- fn:
		return true
	case <-r.quit:
		return false
	}
}

func (r *Room) call(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	if !r.post(func() { done <- fn() }) {
		return ErrClosed
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-r.quit:
		select {
		case err := <-done:
			return err
		default:
			return ErrClosed
		}
	}
}

// Closed reports whether the room has been disposed.
func (r *Room) Closed() bool {
	select {
	case <-r.quit:
		return true
	default:
		return false
	}
}

// State returns a copy of the latest published state.
func (r *Room) State() roomdto.StateView {
	v := *r.view.Load()
	v.Cells = append([]int(nil), v.Cells...)
	v.Players = append([]roomdto.PlayerView(nil), v.Players...)
	if v.LastMove != nil {
		lm := *v.LastMove
		v.LastMove = &lm
	}
	return v
}

// Join binds a session to the room. A known identity takes over its seat;
// a new identity takes a free seat while the room is still gathering.
func (r *Room) Join(ctx context.Context, s Session) error {
	if s.ID == "" || s.Profile.Identity == "" {
		return ErrBadSession
	}
	return r.call(ctx, func() error { return r.join(s) })
}

// Leave unbinds a session. consented marks an explicit leave, which gets no
// reconnect window.
func (r *Room) Leave(sessionID string, consented bool) {
	r.post(func() { r.leave(sessionID, consented) })
}

// Handle queues one inbound message from sessionID.
func (r *Room) Handle(sessionID string, env roomdto.Envelope) {
	received := time.Now()
	r.post(func() {
		r.dispatch(sessionID, env)
		r.opts.Metrics.ObserveMessage(time.Since(received))
	})
}

// Idle reports whether no live session is bound and no reconnect window is open.
func (r *Room) Idle(ctx context.Context) (bool, error) {
	var idle bool
	err := r.call(ctx, func() error {
		idle = r.idle()
		return nil
	})
	return idle, err
}

// Dispose tears the room down. A finished game is handed to
// PersistGameResult; a game in progress with nobody connected is saved as a
// snapshot so it can be restored later.
func (r *Room) Dispose(ctx context.Context) error {
	return r.shutdown(ctx, false)
}

// Suspend disconnects every player and disposes, so a game in progress is
// always saved.
func (r *Room) Suspend(ctx context.Context) error {
	return r.shutdown(ctx, true)
}

// DisposeIfIdle disposes only when Idle would report true, in one step.
func (r *Room) DisposeIfIdle(ctx context.Context) (bool, error) {
	disposed := false
	err := r.call(ctx, func() error {
		if !r.idle() {
			return nil
		}
		disposed = true
		return r.dispose(ctx)
	})
	if errors.Is(err, ErrClosed) {
		return false, nil
	}
	if disposed {
		r.awaitStop(ctx)
	}
	return disposed, err
}

func (r *Room) shutdown(ctx context.Context, suspend bool) error {
	err := r.call(ctx, func() error {
		if suspend {
			for _, p := range r.roster {
				if p.connected {
					p.connected = false
					r.opts.Metrics.SessionDisconnected()
				}
			}
		}
		return r.dispose(ctx)
	})
	if errors.Is(err, ErrClosed) {
		return nil
	}
	r.awaitStop(ctx)
	return err
}

func (r *Room) awaitStop(ctx context.Context) {
	select {
	case <-r.quit:
	case <-ctx.Done():
	}
}

func (r *Room) dispose(ctx context.Context) error {
	r.stopTick()
	for _, p := range r.roster {
		r.stopGrace(p)
	}
	var err error
	switch {
	case r.phase == PhaseFinished:
		r.reportResult(ctx)
	case r.phase == PhasePlaying && !r.anyConnected() && !r.unclaimed():
		err = r.saveSnapshot(ctx)
	}
	for _, p := range r.roster {
		if p.connected {
			r.opts.Metrics.SessionDisconnected()
		}
	}
	for range r.spectators {
		r.opts.Metrics.SessionDisconnected()
	}
	r.opts.Metrics.RoomClosed()
	r.log.Info("room_dispose",
		zap.String("phase", string(r.phase)),
		zap.Bool("cold", r.cold),
		zap.Int("moves", r.moves.Len()),
		zap.Error(err),
	)
	r.stopping = true
	return err
}

func (r *Room) join(s Session) error {
	if s.Spectator {
		if _, ok := r.spectators[s.ID]; !ok {
			r.opts.Metrics.SessionConnected()
		}
		r.spectators[s.ID] = s.Profile
		r.log.Info("room_join",
			zap.String("session_id", s.ID),
			zap.String("identity", s.Profile.Identity),
			zap.Bool("spectator", true),
		)
		r.publish()
		return nil
	}
	if p, ok := r.roster[s.Profile.Identity]; ok {
		r.rebind(p, s)
		r.maybeStart()
		r.publish()
		return nil
	}
	if r.restoredID != "" {
		return roomdto.DomainError{Code: roomdto.CodeNotParticipant}
	}
	if len(r.seats) >= 2 || r.phase != PhaseWaiting {
		return roomdto.DomainError{Code: roomdto.CodeRoomFull}
	}
	idx := len(r.seats)
	p := &player{
		Profile:   s.Profile,
		sessionID: s.ID,
		index:     idx,
		connected: true,
		symbol:    r.engine.Symbols()[idx],
	}
	r.roster[p.Identity] = p
	r.seats = append(r.seats, p.Identity)
	r.refreshScores()
	r.opts.Metrics.SessionConnected()
	r.log.Info("room_join",
		zap.String("session_id", s.ID),
		zap.String("identity", p.Identity),
		zap.Int("index", idx),
	)
	r.maybeStart()
	r.publish()
	return nil
}

func (r *Room) leave(sessionID string, consented bool) {
	if _, ok := r.spectators[sessionID]; ok {
		delete(r.spectators, sessionID)
		r.opts.Metrics.SessionDisconnected()
		r.publish()
		r.checkIdle()
		return
	}
	p := r.bySession(sessionID)
	if p == nil || !p.connected {
		return
	}
	r.opts.Metrics.SessionDisconnected()
	r.log.Info("room_leave",
		zap.String("session_id", sessionID),
		zap.String("identity", p.Identity),
		zap.String("phase", string(r.phase)),
		zap.Bool("consented", consented),
	)
	switch r.phase {
	case PhasePlaying:
		p.connected = false
		if !consented {
			r.startGrace(p)
		} else if !r.anyConnected() {
			r.flagCold()
		}
	case PhaseFinished:
		p.connected = false
		p.ready = false
		if r.rematchFrom == p.index {
			r.rematchFrom = -1
		}
	default:
		r.removePlayer(p)
	}
	r.publish()
	r.checkIdle()
}

func (r *Room) removePlayer(p *player) {
	r.stopGrace(p)
	delete(r.roster, p.Identity)
	seats := r.seats[:0]
	for _, id := range r.seats {
		if id != p.Identity {
			seats = append(seats, id)
		}
	}
	r.seats = seats
	symbols := r.engine.Symbols()
	for i, id := range r.seats {
		q := r.roster[id]
		q.index = i
		q.symbol = symbols[i]
		q.ready = false
	}
	if r.phase == PhaseCountdown {
		r.stopTick()
		r.countdown = 0
		r.setPhase(PhaseWaiting)
	}
}

func (r *Room) maybeStart() {
	if r.phase != PhaseWaiting || len(r.seats) < 2 {
		return
	}
	for _, id := range r.seats {
		if !r.roster[id].connected {
			return
		}
	}
	for _, id := range r.seats {
		r.roster[id].ready = true
	}
	r.startCountdown()
}

func (r *Room) startCountdown() {
	r.countdown = r.opts.Countdown
	r.setPhase(PhaseCountdown)
	r.scheduleTick()
}

func (r *Room) scheduleTick() {
	r.tickGen++
	gen := r.tickGen
	r.tick = time.AfterFunc(r.opts.Tick, func() {
		r.post(func() { r.onTick(gen) })
	})
}

func (r *Room) stopTick() {
	if r.tick != nil {
		r.tick.Stop()
		r.tick = nil
	}
	r.tickGen++
}

func (r *Room) onTick(gen uint64) {
	if gen != r.tickGen || r.phase != PhaseCountdown {
		return
	}
	r.countdown--
	if r.countdown > 0 {
		r.scheduleTick()
	} else {
		r.tick = nil
		r.startPlaying()
	}
	r.publish()
}

func (r *Room) startPlaying() {
	r.countdown = 0
	r.startedAt = r.opts.Now().UTC()
	r.turn = 0
	r.turnNumber = 1
	r.winner = -1
	r.reason = ""
	r.drawFrom = -1
	r.setPhase(PhasePlaying)
}

func (r *Room) setPhase(p Phase) {
	if r.phase == p {
		return
	}
	r.log.Info("room_phase", zap.String("from", string(r.phase)), zap.String("to", string(p)))
	r.phase = p
}

func (r *Room) seat(i int) *player {
	if i < 0 || i >= len(r.seats) {
		return nil
	}
	return r.roster[r.seats[i]]
}

func (r *Room) bySession(sessionID string) *player {
	for _, p := range r.roster {
		if p.sessionID == sessionID {
			return p
		}
	}
	return nil
}

func (r *Room) anyConnected() bool {
	for _, p := range r.roster {
		if p.connected {
			return true
		}
	}
	return false
}

func (r *Room) idle() bool {
	if len(r.spectators) > 0 || r.anyConnected() {
		return false
	}
	for _, p := range r.roster {
		if p.grace != nil {
			return false
		}
	}
	return true
}

// unclaimed reports a restored game no participant has bound to yet; its
// snapshot is still the stored one.
func (r *Room) unclaimed() bool {
	if r.restoredID == "" {
		return false
	}
	for _, p := range r.roster {
		if !isPlaceholder(p.sessionID) {
			return false
		}
	}
	return true
}

func (r *Room) checkIdle() {
	if r.opts.OnIdle != nil && r.idle() {
		r.opts.OnIdle(r)
	}
}

func (r *Room) liveSessions() []string {
	out := make([]string, 0, len(r.seats)+len(r.spectators))
	for _, id := range r.seats {
		if p := r.roster[id]; p.connected {
			out = append(out, p.sessionID)
		}
	}
	for sid := range r.spectators {
		out = append(out, sid)
	}
	return out
}

func (r *Room) refreshScores() {
	s, ok := r.engine.(rules.Scorer)
	if !ok {
		return
	}
	scores := s.Scores(r.board)
	for _, p := range r.roster {
		p.score = scores[p.index]
	}
}
