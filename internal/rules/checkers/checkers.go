// Package checkers implements American checkers on an 8x8 board.
//
// Seat 0 starts on rows 5-7 and moves toward row 0; seat 1 starts on rows
// 0-2. Cell values: 1 man, 2 king, negated for seat 1. Captures are
// mandatory and a capturing piece keeps the turn while it can capture again.
package checkers

import (
	"encoding/json"
	"fmt"

	"github.com/park285/cheese-rooms/internal/board"
	"github.com/park285/cheese-rooms/internal/rules"
)

const (
	Key  = "checkers"
	Size = 8

	Man  = 1
	King = 2

	ReasonNoPieces = "no_pieces"
	ReasonNoMoves  = "no_moves"
)

// Chain is the mid-capture cursor. While Active, only the piece at
// (Row, Col) belonging to Seat may move, and it must capture.
type Chain struct {
	Active   bool   `json:"active"`
	Seat     int    `json:"seat"`
	Identity string `json:"identity,omitempty"`
	Row      int    `json:"row"`
	Col      int    `json:"col"`
}

type extraState struct {
	Chain *Chain `json:"multiJump,omitempty"`
}

type Engine struct {
	chain Chain
}

func New() *Engine { return &Engine{} }

func (e *Engine) Key() string                     { return Key }
func (e *Engine) Dimensions() (width, height int) { return Size, Size }
func (e *Engine) Symbols() [2]string              { return [2]string{"red", "black"} }

// Chain returns the current multi-jump cursor.
func (e *Engine) Chain() Chain { return e.chain }

func sign(seat int) int {
	if seat == 0 {
		return 1
	}
	return -1
}

func seatOf(v int) int {
	switch {
	case v > 0:
		return 0
	case v < 0:
		return 1
	default:
		return -1
	}
}

func dark(row, col int) bool { return (row+col)%2 == 1 }

func (e *Engine) InitializeBoard(b *board.Board) {
	b.Reset()
	e.chain = Chain{}
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if !dark(r, c) {
				continue
			}
			switch {
			case r <= 2:
				b.Put(r, c, -Man, "")
			case r >= 5:
				b.Put(r, c, Man, "")
			}
		}
	}
}

// forward is the row delta a man of seat moves in.
func forward(seat int) int {
	if seat == 0 {
		return -1
	}
	return 1
}

func stepDirs(v int) [][2]int {
	seat := seatOf(v)
	if v*sign(seat) == King {
		return [][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
	}
	f := forward(seat)
	return [][2]int{{f, -1}, {f, 1}}
}

type step struct {
	from, to board.Pos
	jumped   *board.Pos
}

func captures(b *board.Board, row, col int) []step {
	v := b.Value(row, col)
	seat := seatOf(v)
	if seat < 0 {
		return nil
	}
	var out []step
	for _, d := range stepDirs(v) {
		mr, mc := row+d[0], col+d[1]
		lr, lc := row+2*d[0], col+2*d[1]
		if !b.InBounds(lr, lc) || b.Value(lr, lc) != 0 {
			continue
		}
		if seatOf(b.Value(mr, mc)) != rules.Opponent(seat) {
			continue
		}
		mid := board.Pos{Row: mr, Col: mc}
		out = append(out, step{from: board.Pos{Row: row, Col: col}, to: board.Pos{Row: lr, Col: lc}, jumped: &mid})
	}
	return out
}

func slides(b *board.Board, row, col int) []step {
	v := b.Value(row, col)
	if v == 0 {
		return nil
	}
	var out []step
	for _, d := range stepDirs(v) {
		tr, tc := row+d[0], col+d[1]
		if b.InBounds(tr, tc) && b.Value(tr, tc) == 0 {
			out = append(out, step{from: board.Pos{Row: row, Col: col}, to: board.Pos{Row: tr, Col: tc}})
		}
	}
	return out
}

// HasCapture reports whether any piece of seat can jump.
func HasCapture(b *board.Board, seat int) bool {
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if seatOf(b.Value(r, c)) == seat && len(captures(b, r, c)) > 0 {
				return true
			}
		}
	}
	return false
}

// HasAnyMove reports whether seat has any legal move, capture or slide.
func HasAnyMove(b *board.Board, seat int) bool {
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if seatOf(b.Value(r, c)) != seat {
				continue
			}
			if len(captures(b, r, c)) > 0 || len(slides(b, r, c)) > 0 {
				return true
			}
		}
	}
	return false
}

func (e *Engine) resolve(b *board.Board, mover rules.Mover, m rules.Move) (step, error) {
	from := m.From()
	to, ok := m.Dest()
	if !ok {
		return step{}, rules.Illegal("destination required")
	}
	if !b.InBounds(from.Row, from.Col) || !b.InBounds(to.Row, to.Col) {
		return step{}, rules.Illegal("square out of range")
	}
	if seatOf(b.Value(from.Row, from.Col)) != mover.Index {
		return step{}, rules.Illegal("no own piece on %s", from)
	}
	if e.chain.Active {
		if e.chain.Seat != mover.Index {
			return step{}, rules.Illegal("opponent is mid-chain")
		}
		if from.Row != e.chain.Row || from.Col != e.chain.Col {
			return step{}, rules.Illegal("must continue capturing with the piece on (%d,%d)", e.chain.Row, e.chain.Col)
		}
	}
	for _, s := range captures(b, from.Row, from.Col) {
		if s.to == to {
			return s, nil
		}
	}
	if e.chain.Active {
		return step{}, rules.Illegal("chain continuation must be a capture")
	}
	if HasCapture(b, mover.Index) {
		return step{}, rules.Illegal("a capture is available and must be taken")
	}
	for _, s := range slides(b, from.Row, from.Col) {
		if s.to == to {
			return s, nil
		}
	}
	return step{}, rules.Illegal("%s to %s is not a legal move", from, to)
}

func (e *Engine) ValidateMove(b *board.Board, mover rules.Mover, m rules.Move) error {
	_, err := e.resolve(b, mover, m)
	return err
}

func (e *Engine) ApplyMove(b *board.Board, mover rules.Mover, m rules.Move) (rules.Applied, error) {
	s, err := e.resolve(b, mover, m)
	if err != nil {
		return rules.Applied{}, err
	}
	v := b.Value(s.from.Row, s.from.Col)
	b.Clear(s.from.Row, s.from.Col)
	promoted := false
	farRow := 0
	if mover.Index == 1 {
		farRow = Size - 1
	}
	if v*sign(mover.Index) == Man && s.to.Row == farRow {
		v = King * sign(mover.Index)
		promoted = true
	}
	b.Put(s.to.Row, s.to.Col, v, mover.Identity)

	to := s.to
	applied := rules.Applied{From: s.from, To: &to, Next: rules.NextPlayer}
	sep := "-"
	if s.jumped != nil {
		b.Clear(s.jumped.Row, s.jumped.Col)
		applied.Captured = 1
		sep = "x"
	}
	applied.Notation = fmt.Sprintf("%d%s%d", squareNumber(s.from), sep, squareNumber(s.to))

	e.chain = Chain{}
	if s.jumped != nil && !promoted && len(captures(b, s.to.Row, s.to.Col)) > 0 {
		e.chain = Chain{Active: true, Seat: mover.Index, Identity: mover.Identity, Row: s.to.Row, Col: s.to.Col}
		applied.Next = rules.SamePlayer
	}
	return applied, nil
}

// squareNumber is the standard 1-32 numbering, counted from seat 1's back rank.
func squareNumber(p board.Pos) int { return p.Row*4 + p.Col/2 + 1 }

func (e *Engine) CheckWinCondition(b *board.Board, mover rules.Mover) rules.Outcome {
	opp := rules.Opponent(mover.Index)
	if b.Count(func(c board.Cell) bool { return seatOf(c.Value) == opp }) == 0 {
		return rules.Win(mover.Index, ReasonNoPieces)
	}
	if e.chain.Active {
		return rules.Continue()
	}
	if !HasAnyMove(b, opp) {
		return rules.Win(mover.Index, ReasonNoMoves)
	}
	return rules.Continue()
}

func (e *Engine) SerializeExtraState() (json.RawMessage, error) {
	var st extraState
	if e.chain.Active {
		c := e.chain
		st.Chain = &c
	}
	return json.Marshal(st)
}

func (e *Engine) RestoreExtraState(raw json.RawMessage) error {
	e.chain = Chain{}
	if len(raw) == 0 {
		return nil
	}
	var st extraState
	if err := json.Unmarshal(raw, &st); err != nil {
		return fmt.Errorf("checkers extra state: %w", err)
	}
	if st.Chain != nil {
		e.chain = *st.Chain
	}
	return nil
}
