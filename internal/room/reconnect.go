package room

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-rooms/internal/board"
	"github.com/park285/cheese-rooms/internal/rules"
	"github.com/park285/cheese-rooms/internal/rules/catalog"
	"github.com/park285/cheese-rooms/pkg/roomdto"
)

// rebind moves a seat onto a new session. The move log keeps the session ids
// it was written with; only the roster and the turn pointer follow.
func (r *Room) rebind(p *player, s Session) {
	old := p.sessionID
	wasConnected := p.connected
	pending := r.stopGrace(p)

	p.sessionID = s.ID
	p.connected = true
	if s.Profile.DisplayName != "" {
		p.DisplayName = s.Profile.DisplayName
	}
	if s.Profile.AvatarURL != "" {
		p.AvatarURL = s.Profile.AvatarURL
	}
	r.cold = false

	outcome := "rejoined"
	switch {
	case pending:
		outcome = "resumed"
	case wasConnected:
		outcome = "replaced"
	case isPlaceholder(old):
		outcome = "restored"
	}
	if !wasConnected {
		r.opts.Metrics.SessionConnected()
	}
	r.opts.Metrics.Reconnect(outcome)
	if outcome == "replaced" {
		r.reject(old, codeErr(roomdto.CodeSessionReplaced))
		if ev, ok := r.opts.Broadcaster.(Evictor); ok {
			ev.Evict(old)
		}
	}
	r.log.Info("room_rejoin",
		zap.String("identity", p.Identity),
		zap.String("old_session", old),
		zap.String("session_id", s.ID),
		zap.String("outcome", outcome),
		zap.Bool("has_turn", r.phase == PhasePlaying && p.index == r.turn),
	)
}

func (r *Room) startGrace(p *player) {
	r.stopGrace(p)
	gen := p.graceGen
	identity := p.Identity
	p.grace = time.AfterFunc(r.opts.Grace, func() {
		r.post(func() { r.graceExpired(identity, gen) })
	})
	r.log.Info("reconnect_grace_start",
		zap.String("identity", identity),
		zap.Duration("grace", r.opts.Grace),
	)
}

// stopGrace cancels an open window and reports whether one was open.
func (r *Room) stopGrace(p *player) bool {
	p.graceGen++
	if p.grace == nil {
		return false
	}
	p.grace.Stop()
	p.grace = nil
	return true
}

// graceExpired keeps the seat with connected=false. When nobody is left the
// room is flagged for cold storage; disposal then saves the snapshot.
func (r *Room) graceExpired(identity string, gen uint64) {
	p := r.roster[identity]
	if p == nil || p.grace == nil || p.graceGen != gen {
		return
	}
	p.grace = nil
	if p.connected {
		return
	}
	r.opts.Metrics.Reconnect("expired")
	r.log.Info("reconnect_grace_expired", zap.String("identity", identity))
	if r.phase == PhasePlaying && !r.anyConnected() {
		r.flagCold()
	}
	r.publish()
	r.checkIdle()
}

func (r *Room) flagCold() {
	r.cold = true
	r.log.Info("room_cold_storage", zap.Int("moves", r.moves.Len()))
}

// restore loads a suspended game. It returns false, nil on a miss.
func (r *Room) restore(ctx context.Context, id string) (bool, error) {
	snap, err := r.opts.Persistence.LoadGameState(ctx, id)
	if err != nil {
		return false, fmt.Errorf("load snapshot %s: %w", id, err)
	}
	if snap == nil {
		return false, nil
	}
	engine, err := catalog.New(snap.GameType)
	if err != nil {
		return false, err
	}
	if r.opts.GameType != "" && catalog.Normalize(r.opts.GameType) != engine.Key() {
		return false, fmt.Errorf("snapshot %s is %s, not %s", id, engine.Key(), r.opts.GameType)
	}
	w, h := engine.Dimensions()
	if snap.Width != w || snap.Height != h {
		return false, fmt.Errorf("snapshot %s is %dx%d, %s needs %dx%d", id, snap.Width, snap.Height, engine.Key(), w, h)
	}
	b := board.MustNew(w, h)
	if err := b.Restore(w, h, snap.Cells); err != nil {
		return false, err
	}
	if err := engine.RestoreExtraState(snap.Extra); err != nil {
		return false, err
	}
	identities := snap.Identities()
	if len(identities) != 2 {
		return false, fmt.Errorf("snapshot %s has %d players", id, len(identities))
	}
	turn := 0
	for i, identity := range identities {
		if identity == "" {
			return false, fmt.Errorf("snapshot %s has a gap in player indices", id)
		}
		if identity == snap.CurrentTurnIdentity {
			turn = i
		}
	}
	if tk, ok := engine.(rules.TurnKeeper); ok {
		switch {
		case len(snap.Extra) == 0:
			tk.SetTurn(turn)
		case tk.Turn() != turn:
			return false, fmt.Errorf("snapshot %s: engine has seat %d to move, turn owner is seat %d", id, tk.Turn(), turn)
		}
	}

	r.engine = engine
	r.gameType = engine.Key()
	r.board = b
	r.moves.Restore(snap.Moves)
	symbols := engine.Symbols()
	for i, identity := range identities {
		pd := snap.Players[identity]
		p := &player{
			Profile:     Profile{Identity: identity, DisplayName: pd.DisplayName, AvatarURL: pd.AvatarURL},
			sessionID:   placeholderPrefix + identity,
			index:       i,
			ready:       true,
			symbol:      pd.Symbol,
			score:       pd.Score,
			captured:    pd.Captured,
			remainingMs: pd.RemainingMs,
		}
		if p.symbol == "" {
			p.symbol = symbols[i]
		}
		r.roster[identity] = p
		r.seats = append(r.seats, identity)
	}
	r.turn = turn
	r.turnNumber = snap.TurnNumber
	r.startedAt = snap.StartedAt
	r.restoredID = id
	r.phase = PhasePlaying
	r.log.Info("room_restore",
		zap.String("restore_id", id),
		zap.String("game_type", r.gameType),
		zap.Int("moves", len(snap.Moves)),
		zap.String("turn_identity", snap.CurrentTurnIdentity),
	)
	return true, nil
}
