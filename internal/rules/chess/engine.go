// Package chess implements full-legality chess on the shared board.
//
// Cells hold signed piece codes: positive is white (seat 0), negative is
// black (seat 1); magnitude is pawn=1 through king=6. Row 0 is rank 8 and
// column 0 is file a, so e2 is (6,4).
package chess

import (
	"encoding/json"
	"fmt"

	"github.com/park285/cheese-rooms/internal/board"
	"github.com/park285/cheese-rooms/internal/rules"
)

const (
	Key = "chess"

	ReasonCheckmate            = "checkmate"
	ReasonStalemate            = "stalemate"
	ReasonFiftyMove            = "fifty_move_rule"
	ReasonInsufficientMaterial = "insufficient_material"
)

// extraState is the persisted side channel next to the board cells.
type extraState struct {
	Castling  Castling `json:"castling"`
	EnPassant string   `json:"enPassant,omitempty"`
	Halfmove  int      `json:"halfmove"`
	Fullmove  int      `json:"fullmove"`
	Moved     []string `json:"moved,omitempty"`
	Turn      int      `json:"turn"`
}

// Engine keeps castling rights, the en-passant target, move counters and
// per-cell moved flags; piece placement lives on the board.
type Engine struct {
	castling Castling
	ep       *board.Pos
	moved    [8][8]bool
	halfmove int
	fullmove int
	turn     int
}

func New() *Engine {
	e := &Engine{}
	e.reset()
	return e
}

func (e *Engine) reset() {
	start := startPosition()
	e.castling = start.castling
	e.ep = nil
	e.moved = [8][8]bool{}
	e.halfmove = 0
	e.fullmove = 1
	e.turn = 0
}

func (e *Engine) Key() string                     { return Key }
func (e *Engine) Dimensions() (width, height int) { return 8, 8 }
func (e *Engine) Symbols() [2]string              { return [2]string{"white", "black"} }

func seatColor(seat int) int {
	if seat == 0 {
		return 1
	}
	return -1
}

func (e *Engine) InitializeBoard(b *board.Board) {
	e.reset()
	start := startPosition()
	b.Reset()
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			if v := start.sq[r][c]; v != 0 {
				b.Put(r, c, v, "")
			}
		}
	}
}

func (e *Engine) load(b *board.Board) position {
	p := position{
		castling: e.castling,
		moved:    e.moved,
		halfmove: e.halfmove,
		fullmove: e.fullmove,
		side:     seatColor(e.turn),
	}
	if e.ep != nil {
		ep := *e.ep
		p.ep = &ep
	}
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			p.sq[r][c] = b.Value(r, c)
		}
	}
	return p
}

func (e *Engine) store(p position) {
	e.castling = p.castling
	e.ep = p.ep
	e.moved = p.moved
	e.halfmove = p.halfmove
	e.fullmove = p.fullmove
	if p.side > 0 {
		e.turn = 0
	} else {
		e.turn = 1
	}
}

// resolve matches the request against the legal move list.
func (e *Engine) resolve(p *position, mover rules.Mover, m rules.Move) (move, []move, error) {
	if mover.Index != e.turn {
		return move{}, nil, rules.Illegal("it is not seat %d's move", mover.Index)
	}
	from := m.From()
	to, ok := m.Dest()
	if !ok {
		return move{}, nil, rules.Illegal("destination required")
	}
	if !inside(from.Row, from.Col) || !inside(to.Row, to.Col) {
		return move{}, nil, rules.Illegal("square out of range")
	}
	color := seatColor(mover.Index)
	if colorOf(p.at(from)) != color {
		return move{}, nil, rules.Illegal("no own piece on %s", SquareName(from))
	}
	promo := 0
	if abs(p.at(from)) == Pawn && to.Row == homeRow(-color) {
		var err error
		if promo, err = parsePromotion(m.Extra); err != nil {
			return move{}, nil, rules.Illegal("%v", err)
		}
	}
	legal := p.legalMoves(color)
	for _, mv := range legal {
		if mv.from == from && mv.to == to && mv.promo == promo {
			return mv, legal, nil
		}
	}
	return move{}, nil, rules.Illegal("%s%s is not legal", SquareName(from), SquareName(to))
}

func (e *Engine) ValidateMove(b *board.Board, mover rules.Mover, m rules.Move) error {
	p := e.load(b)
	_, _, err := e.resolve(&p, mover, m)
	return err
}

func (e *Engine) ApplyMove(b *board.Board, mover rules.Mover, m rules.Move) (rules.Applied, error) {
	p := e.load(b)
	mv, legal, err := e.resolve(&p, mover, m)
	if err != nil {
		return rules.Applied{}, err
	}
	notation := p.san(mv, legal)
	captured := 0
	if p.at(mv.to) != 0 || mv.enPass {
		captured = 1
	}
	next := p.apply(mv)
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			if next.sq[r][c] == p.sq[r][c] {
				continue
			}
			if next.sq[r][c] == 0 {
				b.Clear(r, c)
			} else {
				b.Put(r, c, next.sq[r][c], mover.Identity)
			}
		}
	}
	e.store(next)
	to := mv.to
	return rules.Applied{Notation: notation, From: mv.from, To: &to, Captured: captured, Next: rules.NextPlayer}, nil
}

// CheckWinCondition evaluates the position for the side that now has to move.
func (e *Engine) CheckWinCondition(b *board.Board, mover rules.Mover) rules.Outcome {
	p := e.load(b)
	opp := -seatColor(mover.Index)
	if len(p.legalMoves(opp)) == 0 {
		if p.inCheck(opp) {
			return rules.Win(mover.Index, ReasonCheckmate)
		}
		return rules.Draw(ReasonStalemate)
	}
	if p.halfmove >= 100 {
		return rules.Draw(ReasonFiftyMove)
	}
	if p.insufficientMaterial() {
		return rules.Draw(ReasonInsufficientMaterial)
	}
	return rules.Continue()
}

// InCheck reports whether seat's king is attacked.
func (e *Engine) InCheck(b *board.Board, seat int) bool {
	p := e.load(b)
	return p.inCheck(seatColor(seat))
}

// LegalMoves lists every legal move for seat as two-square moves.
func (e *Engine) LegalMoves(b *board.Board, seat int) []rules.Move {
	p := e.load(b)
	var out []rules.Move
	for _, mv := range p.legalMoves(seatColor(seat)) {
		m := rules.To(mv.from.Row, mv.from.Col, mv.to.Row, mv.to.Col)
		if mv.promo != 0 {
			m.Extra = string(fenLetters[mv.promo])
		}
		out = append(out, m)
	}
	return out
}

// Turn is the seat to move.
func (e *Engine) Turn() int { return e.turn }

func (e *Engine) SetTurn(seat int) {
	if seat == 1 {
		e.turn = 1
		return
	}
	e.turn = 0
}

// FEN renders the current position.
func (e *Engine) FEN(b *board.Board) string {
	p := e.load(b)
	return p.fen()
}

func (e *Engine) SerializeExtraState() (json.RawMessage, error) {
	st := extraState{
		Castling: e.castling,
		Halfmove: e.halfmove,
		Fullmove: e.fullmove,
		Turn:     e.turn,
	}
	if e.ep != nil {
		st.EnPassant = SquareName(*e.ep)
	}
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			if e.moved[r][c] {
				st.Moved = append(st.Moved, SquareName(board.Pos{Row: r, Col: c}))
			}
		}
	}
	return json.Marshal(st)
}

func (e *Engine) RestoreExtraState(raw json.RawMessage) error {
	e.reset()
	if len(raw) == 0 {
		return nil
	}
	var st extraState
	if err := json.Unmarshal(raw, &st); err != nil {
		return fmt.Errorf("chess extra state: %w", err)
	}
	if st.Turn != 0 && st.Turn != 1 {
		return fmt.Errorf("chess extra state: bad turn %d", st.Turn)
	}
	e.castling = st.Castling
	e.halfmove = st.Halfmove
	e.fullmove = st.Fullmove
	if e.fullmove < 1 {
		e.fullmove = 1
	}
	e.turn = st.Turn
	if st.EnPassant != "" {
		ep, err := ParseSquare(st.EnPassant)
		if err != nil {
			return fmt.Errorf("chess extra state: %w", err)
		}
		e.ep = &ep
	}
	for _, name := range st.Moved {
		sq, err := ParseSquare(name)
		if err != nil {
			return fmt.Errorf("chess extra state: %w", err)
		}
		e.moved[sq.Row][sq.Col] = true
	}
	return nil
}
