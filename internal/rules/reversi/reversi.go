// Package reversi implements Othello on an 8x8 board. Seat 0 plays black
// (value 1) and moves first; seat 1 plays white (value 2).
package reversi

import (
	"encoding/json"
	"fmt"

	"github.com/park285/cheese-rooms/internal/board"
	"github.com/park285/cheese-rooms/internal/rules"
)

const (
	Key  = "reversi"
	Size = 8

	ReasonMostPieces  = "most_pieces"
	ReasonEqualPieces = "equal_pieces"
)

var directions = [8][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}

type Engine struct{}

func New() *Engine { return &Engine{} }

func (e *Engine) Key() string                     { return Key }
func (e *Engine) Dimensions() (width, height int) { return Size, Size }
func (e *Engine) Symbols() [2]string              { return [2]string{"black", "white"} }

func mark(seat int) int { return seat + 1 }

func (e *Engine) InitializeBoard(b *board.Board) {
	b.Reset()
	b.Put(3, 3, mark(1), "")
	b.Put(3, 4, mark(0), "")
	b.Put(4, 3, mark(0), "")
	b.Put(4, 4, mark(1), "")
}

// flips returns every opponent disc that a placement at (row, col) would turn.
func flips(b *board.Board, seat, row, col int) []board.Pos {
	if !b.InBounds(row, col) || b.Value(row, col) != 0 {
		return nil
	}
	own, opp := mark(seat), mark(rules.Opponent(seat))
	var out []board.Pos
	for _, d := range directions {
		var run []board.Pos
		r, c := row+d[0], col+d[1]
		for b.InBounds(r, c) && b.Value(r, c) == opp {
			run = append(run, board.Pos{Row: r, Col: c})
			r += d[0]
			c += d[1]
		}
		if len(run) > 0 && b.InBounds(r, c) && b.Value(r, c) == own {
			out = append(out, run...)
		}
	}
	return out
}

// HasMove reports whether seat has any legal placement.
func HasMove(b *board.Board, seat int) bool {
	for r := 0; r < b.Height(); r++ {
		for c := 0; c < b.Width(); c++ {
			if len(flips(b, seat, r, c)) > 0 {
				return true
			}
		}
	}
	return false
}

func (e *Engine) ValidateMove(b *board.Board, mover rules.Mover, m rules.Move) error {
	if !b.InBounds(m.Row, m.Col) {
		return rules.Illegal("cell %d,%d out of range", m.Row, m.Col)
	}
	if b.Value(m.Row, m.Col) != 0 {
		return rules.Illegal("cell %d,%d is occupied", m.Row, m.Col)
	}
	if len(flips(b, mover.Index, m.Row, m.Col)) == 0 {
		return rules.Illegal("placement at %d,%d flanks no discs", m.Row, m.Col)
	}
	return nil
}

// ApplyMove places the disc and flips every flanked line. When the opponent
// has no reply and the mover still does, the mover keeps the turn.
func (e *Engine) ApplyMove(b *board.Board, mover rules.Mover, m rules.Move) (rules.Applied, error) {
	if err := e.ValidateMove(b, mover, m); err != nil {
		return rules.Applied{}, err
	}
	turned := flips(b, mover.Index, m.Row, m.Col)
	b.Put(m.Row, m.Col, mark(mover.Index), mover.Identity)
	for _, p := range turned {
		b.Put(p.Row, p.Col, mark(mover.Index), mover.Identity)
	}
	next := rules.NextPlayer
	if !HasMove(b, rules.Opponent(mover.Index)) && HasMove(b, mover.Index) {
		next = rules.SamePlayer
	}
	return rules.Applied{
		Notation: fmt.Sprintf("%c%d", 'a'+m.Col, m.Row+1),
		From:     m.From(),
		Captured: len(turned),
		Next:     next,
	}, nil
}

func (e *Engine) Scores(b *board.Board) [2]int {
	var s [2]int
	for seat := 0; seat < 2; seat++ {
		v := mark(seat)
		s[seat] = b.Count(func(c board.Cell) bool { return c.Value == v })
	}
	return s
}

// CheckWinCondition ends the game once neither side can place a disc.
func (e *Engine) CheckWinCondition(b *board.Board, mover rules.Mover) rules.Outcome {
	if HasMove(b, 0) || HasMove(b, 1) {
		return rules.Continue()
	}
	s := e.Scores(b)
	switch {
	case s[0] > s[1]:
		return rules.Win(0, ReasonMostPieces)
	case s[1] > s[0]:
		return rules.Win(1, ReasonMostPieces)
	default:
		return rules.Draw(ReasonEqualPieces)
	}
}

func (e *Engine) SerializeExtraState() (json.RawMessage, error) { return nil, nil }
func (e *Engine) RestoreExtraState(json.RawMessage) error       { return nil }
