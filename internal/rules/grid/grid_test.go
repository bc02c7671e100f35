package grid

import (
	"errors"
	"testing"

	"github.com/park285/cheese-rooms/internal/board"
	"github.com/park285/cheese-rooms/internal/rules"
)

func newBoard(e *Engine) *board.Board {
	w, h := e.Dimensions()
	b := board.MustNew(w, h)
	e.InitializeBoard(b)
	return b
}

func play(t *testing.T, e *Engine, b *board.Board, seat int, m rules.Move) rules.Outcome {
	t.Helper()
	mover := rules.Mover{Index: seat, Identity: []string{"alice", "bob"}[seat]}
	if err := e.ValidateMove(b, mover, m); err != nil {
		t.Fatalf("ValidateMove(%+v): %v", m, err)
	}
	applied, err := e.ApplyMove(b, mover, m)
	if err != nil {
		t.Fatalf("ApplyMove(%+v): %v", m, err)
	}
	if applied.Next != rules.NextPlayer {
		t.Fatalf("placement games always pass the turn")
	}
	return e.CheckWinCondition(b, mover)
}

func TestTicTacToeTopRowWins(t *testing.T) {
	e := NewTicTacToe()
	b := newBoard(e)
	seq := []struct {
		seat     int
		row, col int
	}{{0, 0, 0}, {1, 1, 0}, {0, 0, 1}, {1, 1, 1}}
	for _, s := range seq {
		if out := play(t, e, b, s.seat, rules.At(s.row, s.col)); out.Over {
			t.Fatalf("game ended early: %+v", out)
		}
	}
	out := play(t, e, b, 0, rules.At(0, 2))
	if !out.Over || out.Winner != 0 || out.Reason != "three_in_a_row" {
		t.Fatalf("expected X to win on the top row, got %+v", out)
	}
	if b.Get(0, 2).Owner != "alice" {
		t.Fatalf("cell owner not recorded")
	}
}

func TestTicTacToeDrawOnFullBoard(t *testing.T) {
	e := NewTicTacToe()
	b := newBoard(e)
	// X O X / X O O / O X X
	seq := [][3]int{{0, 0, 0}, {1, 0, 1}, {0, 0, 2}, {1, 1, 1}, {0, 1, 0}, {1, 1, 2}, {0, 2, 1}, {1, 2, 0}}
	for _, s := range seq {
		if out := play(t, e, b, s[0], rules.At(s[1], s[2])); out.Over {
			t.Fatalf("game ended early: %+v", out)
		}
	}
	out := play(t, e, b, 0, rules.At(2, 2))
	if !out.IsDraw() || out.Reason != rules.ReasonBoardFull {
		t.Fatalf("expected a draw, got %+v", out)
	}
}

func TestTicTacToeRejectsOccupiedAndOutOfRange(t *testing.T) {
	e := NewTicTacToe()
	b := newBoard(e)
	play(t, e, b, 0, rules.At(1, 1))
	if err := e.ValidateMove(b, rules.Mover{Index: 1}, rules.At(1, 1)); !errors.Is(err, rules.ErrIllegal) {
		t.Fatalf("expected occupied cell rejection, got %v", err)
	}
	if err := e.ValidateMove(b, rules.Mover{Index: 1}, rules.At(3, 0)); !errors.Is(err, rules.ErrIllegal) {
		t.Fatalf("expected out-of-range rejection, got %v", err)
	}
}

func TestConnectFourGravityAndFullColumn(t *testing.T) {
	e := NewConnectFour()
	b := newBoard(e)
	for i := 0; i < 6; i++ {
		play(t, e, b, i%2, rules.Move{Col: 3})
	}
	if b.Value(5, 3) != 1 || b.Value(0, 3) != 2 {
		t.Fatalf("pieces did not stack from the bottom")
	}
	if err := e.ValidateMove(b, rules.Mover{Index: 0}, rules.Move{Col: 3}); !errors.Is(err, rules.ErrIllegal) {
		t.Fatalf("seventh drop must be rejected, got %v", err)
	}
	if _, err := e.ApplyMove(b, rules.Mover{Index: 0}, rules.Move{Col: 7}); err == nil {
		t.Fatalf("column 7 does not exist")
	}
}

func TestConnectFourDiagonal(t *testing.T) {
	e := NewConnectFour()
	b := newBoard(e)
	// build a rising diagonal for seat 0 from (5,0) to (2,3)
	moves := [][2]int{{0, 0}, {1, 1}, {0, 1}, {1, 2}, {0, 2}, {1, 3}, {0, 2}, {1, 3}, {0, 3}, {1, 6}}
	for _, mv := range moves {
		if out := play(t, e, b, mv[0], rules.Move{Col: mv[1]}); out.Over {
			t.Fatalf("game ended early: %+v", out)
		}
	}
	out := play(t, e, b, 0, rules.Move{Col: 3})
	if !out.Over || out.Winner != 0 || out.Reason != "four_in_a_row" {
		t.Fatalf("expected diagonal win, got %+v", out)
	}
}

func TestGomokuOverlineDoesNotWin(t *testing.T) {
	e := NewGomoku()
	b := newBoard(e)
	for _, c := range []int{0, 1, 2, 3, 5, 6} {
		b.Put(7, c, 1, "alice")
	}
	out := play(t, e, b, 0, rules.At(7, 4))
	if out.Over {
		t.Fatalf("six in a row must not win: %+v", out)
	}

	b.Reset()
	for _, c := range []int{0, 1, 2, 3} {
		b.Put(7, c, 1, "alice")
	}
	out = play(t, e, b, 0, rules.At(7, 4))
	if !out.Over || out.Reason != "five_in_a_row" {
		t.Fatalf("exactly five must win, got %+v", out)
	}
}

func TestNotationUsesSymbolAndCell(t *testing.T) {
	e := NewTicTacToe()
	b := newBoard(e)
	applied, err := e.ApplyMove(b, rules.Mover{Index: 1, Identity: "bob"}, rules.At(0, 0))
	if err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	if applied.Notation != "O a3" {
		t.Fatalf("unexpected notation %q", applied.Notation)
	}
}
