package room

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/cheese-rooms/internal/persist"
	"github.com/park285/cheese-rooms/pkg/roomdto"
)

// publish bumps the version, stores a fresh view and sends it to every live
// session. Views are never mutated after they are stored.
func (r *Room) publish() {
	r.version++
	v := r.buildView()
	r.view.Store(&v)
	r.broadcast(roomdto.TypeState, v)
}

func (r *Room) buildView() roomdto.StateView {
	cells := r.board.Serialize()
	v := roomdto.StateView{
		RoomID:     r.id,
		GameType:   r.gameType,
		Version:    r.version,
		Phase:      string(r.phase),
		Countdown:  r.countdown,
		TurnNumber: r.turnNumber,
		Width:      r.board.Width(),
		Height:     r.board.Height(),
		Cells:      make([]int, len(cells)),
		Players:    make([]roomdto.PlayerView, 0, len(r.seats)),
		Spectators: len(r.spectators),
		WinReason:  r.reason,
		MoveCount:  r.moves.Len(),
	}
	for i, c := range cells {
		v.Cells[i] = c.Value
	}
	for _, id := range r.seats {
		v.Players = append(v.Players, r.roster[id].view())
	}
	if r.phase == PhasePlaying {
		if p := r.seat(r.turn); p != nil {
			v.CurrentTurnPlayerID = p.sessionID
			v.CurrentTurnIdentity = p.Identity
		}
	}
	if p := r.seat(r.winner); p != nil {
		v.WinnerID = p.sessionID
		v.WinnerIdentity = p.Identity
	}
	if p := r.seat(r.drawFrom); p != nil {
		v.DrawOfferFrom = p.sessionID
	}
	if p := r.seat(r.rematchFrom); p != nil {
		v.RematchFrom = p.sessionID
	}
	if e, ok := r.moves.Last(); ok {
		mv := &roomdto.MoveView{
			Player:      e.Player,
			PlayerIndex: e.PlayerIndex,
			FromRow:     e.From.Row,
			FromCol:     e.From.Col,
			Notation:    e.Notation,
		}
		if e.To != nil {
			row, col := e.To.Row, e.To.Col
			mv.ToRow, mv.ToCol = &row, &col
		}
		v.LastMove = mv
	}
	if !r.startedAt.IsZero() {
		t := r.startedAt
		v.StartedAt = &t
	}
	return v
}

func (r *Room) players() map[string]persist.PlayerData {
	out := make(map[string]persist.PlayerData, len(r.roster))
	for id, p := range r.roster {
		out[id] = p.data()
	}
	return out
}

// snapshot captures a game in progress. Session ids never reach it; the turn
// is recorded by identity.
func (r *Room) snapshot() (*persist.Snapshot, error) {
	extra, err := r.engine.SerializeExtraState()
	if err != nil {
		return nil, fmt.Errorf("serialize %s state: %w", r.gameType, err)
	}
	snap := &persist.Snapshot{
		ID:         r.id,
		GameType:   r.gameType,
		Width:      r.board.Width(),
		Height:     r.board.Height(),
		Cells:      r.board.Serialize(),
		TurnNumber: r.turnNumber,
		Players:    r.players(),
		Moves:      r.moves.Entries(),
		Extra:      extra,
		StartedAt:  r.startedAt,
	}
	if p := r.seat(r.turn); p != nil {
		snap.CurrentTurnIdentity = p.Identity
	}
	return snap, nil
}

func (r *Room) saveSnapshot(ctx context.Context) error {
	snap, err := r.snapshot()
	if err == nil {
		err = r.opts.Persistence.SaveGameState(ctx, snap)
	}
	if err != nil {
		r.log.Error("room_snapshot_save_error", zap.Error(err))
		return err
	}
	r.log.Info("room_snapshot_saved",
		zap.String("turn_identity", snap.CurrentTurnIdentity),
		zap.Int("moves", len(snap.Moves)),
	)
	return nil
}

func (r *Room) result() *persist.Result {
	res := &persist.Result{
		RoomID:    r.id,
		GameType:  r.gameType,
		Reason:    r.reason,
		Moves:     r.moves.Entries(),
		StartedAt: r.startedAt,
		EndedAt:   r.endedAt,
		Duration:  r.endedAt.Sub(r.startedAt),
	}
	if p := r.seat(r.winner); p != nil {
		res.WinnerIdentity = p.Identity
	}
	for _, id := range r.seats {
		res.Players = append(res.Players, r.roster[id].data())
	}
	return res
}

// reportResult hands a finished game over once. A restored game's snapshot
// is dropped afterwards so it cannot be resumed again.
func (r *Room) reportResult(ctx context.Context) {
	if r.phase != PhaseFinished || r.reported {
		return
	}
	r.reported = true
	if err := r.opts.Persistence.PersistGameResult(ctx, r.result()); err != nil {
		r.log.Error("room_result_save_error", zap.Error(err))
	}
	if r.restoredID == "" {
		return
	}
	if err := r.opts.Persistence.DeleteGameState(ctx, r.restoredID); err != nil {
		r.log.Warn("room_snapshot_delete_error", zap.String("restore_id", r.restoredID), zap.Error(err))
	}
	r.restoredID = ""
}
