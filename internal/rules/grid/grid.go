// Package grid implements the placement games that share one shape:
// tic-tac-toe, connect-four and gomoku. Seat i marks cells with value i+1.
package grid

import (
	"encoding/json"
	"fmt"

	"github.com/park285/cheese-rooms/internal/board"
	"github.com/park285/cheese-rooms/internal/rules"
)

const (
	KeyTicTacToe   = "tictactoe"
	KeyConnectFour = "connect4"
	KeyGomoku      = "gomoku"
)

// Config is the per-variant ruleset.
type Config struct {
	Key       string
	Width     int
	Height    int
	WinLength int
	// Gravity drops the piece to the lowest empty row of the chosen column.
	Gravity bool
	// ExactLength counts only lines of exactly WinLength (overlines do not win).
	ExactLength bool
	WinReason   string
	Symbols     [2]string
}

type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine { return &Engine{cfg: cfg} }

func NewTicTacToe() *Engine {
	return New(Config{Key: KeyTicTacToe, Width: 3, Height: 3, WinLength: 3, WinReason: "three_in_a_row", Symbols: [2]string{"X", "O"}})
}

func NewConnectFour() *Engine {
	return New(Config{Key: KeyConnectFour, Width: 7, Height: 6, WinLength: 4, Gravity: true, WinReason: "four_in_a_row", Symbols: [2]string{"red", "yellow"}})
}

func NewGomoku() *Engine {
	return New(Config{Key: KeyGomoku, Width: 15, Height: 15, WinLength: 5, ExactLength: true, WinReason: "five_in_a_row", Symbols: [2]string{"black", "white"}})
}

func (e *Engine) Key() string                     { return e.cfg.Key }
func (e *Engine) Dimensions() (width, height int) { return e.cfg.Width, e.cfg.Height }
func (e *Engine) Symbols() [2]string              { return e.cfg.Symbols }

func (e *Engine) InitializeBoard(b *board.Board) { b.Reset() }

func (e *Engine) ValidateMove(b *board.Board, mover rules.Mover, m rules.Move) error {
	_, err := e.target(b, mover, m)
	return err
}

// target resolves where the piece lands.
func (e *Engine) target(b *board.Board, mover rules.Mover, m rules.Move) (board.Pos, error) {
	if mover.Index != 0 && mover.Index != 1 {
		return board.Pos{}, rules.Illegal("unknown seat %d", mover.Index)
	}
	if e.cfg.Gravity {
		if m.Col < 0 || m.Col >= b.Width() {
			return board.Pos{}, rules.Illegal("column %d out of range", m.Col)
		}
		row := DropRow(b, m.Col)
		if row < 0 {
			return board.Pos{}, rules.Illegal("column %d is full", m.Col)
		}
		return board.Pos{Row: row, Col: m.Col}, nil
	}
	if !b.InBounds(m.Row, m.Col) {
		return board.Pos{}, rules.Illegal("cell %d,%d out of range", m.Row, m.Col)
	}
	if b.Value(m.Row, m.Col) != 0 {
		return board.Pos{}, rules.Illegal("cell %d,%d is occupied", m.Row, m.Col)
	}
	return board.Pos{Row: m.Row, Col: m.Col}, nil
}

func (e *Engine) ApplyMove(b *board.Board, mover rules.Mover, m rules.Move) (rules.Applied, error) {
	at, err := e.target(b, mover, m)
	if err != nil {
		return rules.Applied{}, err
	}
	b.Put(at.Row, at.Col, mover.Index+1, mover.Identity)
	return rules.Applied{
		Notation: fmt.Sprintf("%s %s", e.cfg.Symbols[mover.Index], CellName(b, at)),
		From:     at,
		Next:     rules.NextPlayer,
	}, nil
}

func (e *Engine) CheckWinCondition(b *board.Board, mover rules.Mover) rules.Outcome {
	mark := mover.Index + 1
	for r := 0; r < b.Height(); r++ {
		for c := 0; c < b.Width(); c++ {
			if b.Value(r, c) == mark && HasLine(b, r, c, e.cfg.WinLength, e.cfg.ExactLength) {
				return rules.Win(mover.Index, e.cfg.WinReason)
			}
		}
	}
	if b.Count(func(c board.Cell) bool { return c.Value == 0 }) == 0 {
		return rules.Draw(rules.ReasonBoardFull)
	}
	return rules.Continue()
}

// Placement games keep no state beyond the board.
func (e *Engine) SerializeExtraState() (json.RawMessage, error) { return nil, nil }
func (e *Engine) RestoreExtraState(json.RawMessage) error       { return nil }

// DropRow returns the lowest empty row in col, or -1 when the column is full.
func DropRow(b *board.Board, col int) int {
	for r := b.Height() - 1; r >= 0; r-- {
		if b.Value(r, col) == 0 {
			return r
		}
	}
	return -1
}

var axes = [4][2]int{{1, 0}, {0, 1}, {1, 1}, {1, -1}}

// HasLine reports whether the mark at (row, col) is part of a line of
// winLen; with exact set, a longer run does not count.
func HasLine(b *board.Board, row, col, winLen int, exact bool) bool {
	mark := b.Value(row, col)
	if mark == 0 {
		return false
	}
	for _, d := range axes {
		count := 1
		fr, fc := row+d[0], col+d[1]
		for b.InBounds(fr, fc) && b.Value(fr, fc) == mark {
			count++
			fr += d[0]
			fc += d[1]
		}
		br, bc := row-d[0], col-d[1]
		for b.InBounds(br, bc) && b.Value(br, bc) == mark {
			count++
			br -= d[0]
			bc -= d[1]
		}
		if exact {
			if count == winLen {
				return true
			}
			continue
		}
		if count >= winLen {
			return true
		}
	}
	return false
}

// CellName renders a cell as file letter + rank counted from the bottom row.
func CellName(b *board.Board, p board.Pos) string {
	return fmt.Sprintf("%c%d", 'a'+p.Col, b.Height()-p.Row)
}
