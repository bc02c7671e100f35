package room

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-rooms/internal/board"
	"github.com/park285/cheese-rooms/internal/rules"
	"github.com/park285/cheese-rooms/pkg/roomdto"
)

func codeErr(code string) error { return roomdto.DomainError{Code: code} }

func (r *Room) dispatch(sessionID string, env roomdto.Envelope) {
	if _, ok := r.spectators[sessionID]; ok {
		r.reject(sessionID, codeErr(roomdto.CodeSpectatorAction))
		return
	}
	p := r.bySession(sessionID)
	if p == nil {
		r.reject(sessionID, codeErr(roomdto.CodeNotInRoom))
		return
	}
	var err error
	switch env.Type {
	case roomdto.TypeReady:
		err = r.onReady(p)
	case roomdto.TypeMove:
		err = r.onMove(p, env.Payload)
	case roomdto.TypeResign:
		err = r.onResign(p)
	case roomdto.TypeOfferDraw:
		err = r.onOfferDraw(p)
	case roomdto.TypeAcceptDraw:
		err = r.onAnswerDraw(p, true)
	case roomdto.TypeDeclineDraw:
		err = r.onAnswerDraw(p, false)
	case roomdto.TypeRematch:
		err = r.onRematch(p)
	case roomdto.TypeRematchAccept:
		err = r.onRematchAccept(p)
	default:
		err = roomdto.DomainError{Code: roomdto.CodeUnknownMessage, Detail: env.Type}
	}
	if err != nil {
		r.reject(sessionID, err)
	}
}

// reject answers one session with a rendered error; room state is untouched.
func (r *Room) reject(sessionID string, err error) {
	var de roomdto.DomainError
	if !errors.As(err, &de) {
		r.log.Error("room_handler_error", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	msg := de.Message
	if msg == "" {
		data := map[string]string{"Detail": de.Detail, "Type": de.Detail}
		msg = r.opts.Messages.Text("errors."+de.Code, data, de.Error())
	}
	r.send(sessionID, roomdto.TypeError, roomdto.ErrorMessage{Code: de.Code, Message: msg})
}

func (r *Room) send(sessionID, typ string, payload any) {
	env, err := roomdto.NewEnvelope(typ, payload)
	if err != nil {
		r.log.Error("room_encode_error", zap.String("type", typ), zap.Error(err))
		return
	}
	r.opts.Broadcaster.Send(sessionID, env)
}

func (r *Room) broadcast(typ string, payload any) {
	env, err := roomdto.NewEnvelope(typ, payload)
	if err != nil {
		r.log.Error("room_encode_error", zap.String("type", typ), zap.Error(err))
		return
	}
	for _, sid := range r.liveSessions() {
		r.opts.Broadcaster.Send(sid, env)
	}
}

func (r *Room) onReady(p *player) error {
	if r.phase == PhasePlaying || r.phase == PhaseFinished {
		return nil
	}
	p.ready = true
	if r.phase == PhaseWaiting && len(r.seats) == 2 {
		all := true
		for _, id := range r.seats {
			all = all && r.roster[id].ready
		}
		if all {
			r.startCountdown()
		}
	}
	r.publish()
	return nil
}

func (r *Room) onMove(p *player, payload json.RawMessage) error {
	if r.phase != PhasePlaying {
		return codeErr(roomdto.CodeGameNotInProgress)
	}
	if p.index != r.turn {
		return codeErr(roomdto.CodeNotYourTurn)
	}
	var m rules.Move
	if len(payload) == 0 || json.Unmarshal(payload, &m) != nil {
		return codeErr(roomdto.CodeBadPayload)
	}
	mover := rules.Mover{Index: p.index, Identity: p.Identity}
	if err := r.engine.ValidateMove(r.board, mover, m); err != nil {
		return illegal(err)
	}
	applied, err := r.engine.ApplyMove(r.board, mover, m)
	if err != nil {
		return illegal(err)
	}
	r.moves.Append(board.Entry{
		Player:      p.sessionID,
		Identity:    p.Identity,
		From:        applied.From,
		To:          applied.To,
		Notation:    applied.Notation,
		Timestamp:   r.opts.Now().UTC(),
		PlayerIndex: p.index,
	})
	p.captured += applied.Captured
	r.refreshScores()
	if r.drawFrom >= 0 && r.drawFrom != p.index {
		r.drawFrom = -1
	}
	r.opts.Metrics.MoveAccepted(r.gameType)
	r.log.Debug("room_move",
		zap.String("identity", p.Identity),
		zap.String("notation", applied.Notation),
		zap.Stringer("next", applied.Next),
	)

	if out := r.engine.CheckWinCondition(r.board, mover); out.Over {
		r.finish(out)
	} else if applied.Next == rules.NextPlayer {
		r.turn = rules.Opponent(r.turn)
		r.turnNumber++
	}
	r.publish()
	return nil
}

func illegal(err error) error {
	detail := strings.TrimPrefix(err.Error(), rules.ErrIllegal.Error()+": ")
	return roomdto.DomainError{Code: roomdto.CodeIllegalMove, Detail: detail}
}

func (r *Room) onResign(p *player) error {
	if r.phase != PhasePlaying {
		return codeErr(roomdto.CodeGameNotInProgress)
	}
	r.finish(rules.Win(rules.Opponent(p.index), rules.ReasonResignation))
	r.publish()
	return nil
}

func (r *Room) onOfferDraw(p *player) error {
	if r.phase != PhasePlaying {
		return codeErr(roomdto.CodeGameNotInProgress)
	}
	if r.drawFrom >= 0 {
		return codeErr(roomdto.CodeDrawAlreadyOffered)
	}
	r.drawFrom = p.index
	r.broadcast(roomdto.TypeDrawOffer, roomdto.DrawOffer{
		From:     p.sessionID,
		Identity: p.Identity,
		Message:  r.opts.Messages.Text("notices.draw_offer", map[string]string{"Name": p.name()}, ""),
	})
	r.publish()
	return nil
}

func (r *Room) onAnswerDraw(p *player, accept bool) error {
	if r.phase != PhasePlaying {
		return codeErr(roomdto.CodeGameNotInProgress)
	}
	if r.drawFrom < 0 {
		return codeErr(roomdto.CodeNoDrawOffer)
	}
	if r.drawFrom == p.index {
		return codeErr(roomdto.CodeOwnDrawOffer)
	}
	if accept {
		r.finish(rules.Draw(rules.ReasonDrawAgreed))
	} else {
		r.drawFrom = -1
	}
	r.publish()
	return nil
}

func (r *Room) onRematch(p *player) error {
	if r.phase != PhaseFinished {
		return codeErr(roomdto.CodeGameNotFinished)
	}
	if r.rematchFrom >= 0 && r.rematchFrom != p.index {
		r.startRematch()
		return nil
	}
	r.rematchFrom = p.index
	r.broadcast(roomdto.TypeRematchRequest, roomdto.RematchRequest{
		From:     p.sessionID,
		Identity: p.Identity,
		Name:     p.DisplayName,
		Message:  r.opts.Messages.Text("notices.rematch_request", map[string]string{"Name": p.name()}, ""),
	})
	r.publish()
	return nil
}

func (r *Room) onRematchAccept(p *player) error {
	if r.phase != PhaseFinished {
		return codeErr(roomdto.CodeGameNotFinished)
	}
	if r.rematchFrom < 0 {
		return codeErr(roomdto.CodeNoRematchRequest)
	}
	if r.rematchFrom == p.index {
		return codeErr(roomdto.CodeOwnRematchRequest)
	}
	r.startRematch()
	return nil
}

func (r *Room) finish(out rules.Outcome) {
	r.winner = out.Winner
	r.reason = out.Reason
	r.drawFrom = -1
	r.rematchFrom = -1
	r.endedAt = r.opts.Now().UTC()
	r.reported = false
	if _, ok := r.engine.(rules.Scorer); !ok {
		if w := r.seat(out.Winner); w != nil {
			w.score++
		}
	}
	r.setPhase(PhaseFinished)
	r.opts.Metrics.GameFinished(r.gameType, out.Reason)
	fields := []zap.Field{
		zap.String("reason", out.Reason),
		zap.Int("moves", r.moves.Len()),
		zap.Duration("duration", r.endedAt.Sub(r.startedAt)),
	}
	if w := r.seat(out.Winner); w != nil {
		fields = append(fields, zap.String("winner", w.Identity))
	}
	r.log.Info("room_finish", fields...)
}

// startRematch hands the finished game to persistence, then resets the board
// and swaps seats so the other player moves first.
func (r *Room) startRematch() {
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.IOTimeout)
	r.reportResult(ctx)
	cancel()

	r.engine.InitializeBoard(r.board)
	r.moves.Reset()
	if len(r.seats) == 2 {
		r.seats[0], r.seats[1] = r.seats[1], r.seats[0]
	}
	symbols := r.engine.Symbols()
	for i, id := range r.seats {
		p := r.roster[id]
		p.index = i
		p.symbol = symbols[i]
		p.score = 0
		p.captured = 0
		p.ready = false
		p.remainingMs = 0
	}
	r.refreshScores()
	r.winner = -1
	r.reason = ""
	r.drawFrom = -1
	r.rematchFrom = -1
	r.turn = 0
	r.turnNumber = 0
	r.startedAt = time.Time{}
	r.endedAt = time.Time{}
	r.setPhase(PhaseWaiting)
	r.log.Info("room_rematch", zap.Strings("seats", r.seats))
	r.maybeStart()
	r.publish()
}

func (p *player) name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Identity
}
