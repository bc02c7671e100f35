package reversi

import (
	"errors"
	"testing"

	"github.com/park285/cheese-rooms/internal/board"
	"github.com/park285/cheese-rooms/internal/rules"
)

func setup() (*Engine, *board.Board) {
	e := New()
	b := board.MustNew(Size, Size)
	e.InitializeBoard(b)
	return e, b
}

func TestInitialPosition(t *testing.T) {
	e, b := setup()
	if s := e.Scores(b); s != [2]int{2, 2} {
		t.Fatalf("unexpected opening scores %v", s)
	}
	if !HasMove(b, 0) || !HasMove(b, 1) {
		t.Fatalf("both sides must have openings")
	}
}

func TestPlacementWithoutFlankRejected(t *testing.T) {
	e, b := setup()
	err := e.ValidateMove(b, rules.Mover{Index: 0}, rules.At(0, 0))
	if !errors.Is(err, rules.ErrIllegal) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if err := e.ValidateMove(b, rules.Mover{Index: 0}, rules.At(3, 3)); err == nil {
		t.Fatalf("occupied cell accepted")
	}
}

func TestApplyFlipsFlankedDiscs(t *testing.T) {
	e, b := setup()
	// black at (2,3) flanks white (3,3) against black (4,3)
	applied, err := e.ApplyMove(b, rules.Mover{Index: 0, Identity: "alice"}, rules.At(2, 3))
	if err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	if applied.Captured != 1 || applied.Next != rules.NextPlayer {
		t.Fatalf("unexpected apply result %+v", applied)
	}
	if b.Value(3, 3) != 1 {
		t.Fatalf("disc was not flipped")
	}
	if s := e.Scores(b); s != [2]int{4, 1} {
		t.Fatalf("unexpected scores %v", s)
	}
	if out := e.CheckWinCondition(b, rules.Mover{Index: 0}); out.Over {
		t.Fatalf("game should continue")
	}
}

func TestOpponentWithoutMoveKeepsTurn(t *testing.T) {
	e, b := setup()
	b.Reset()
	b.Put(0, 0, 1, "")
	b.Put(0, 1, 2, "")
	b.Put(7, 0, 1, "")
	b.Put(7, 1, 2, "")
	b.Put(7, 2, 2, "")
	applied, err := e.ApplyMove(b, rules.Mover{Index: 0}, rules.At(0, 2))
	if err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	if HasMove(b, 1) {
		t.Fatalf("white should be blocked")
	}
	if applied.Next != rules.SamePlayer {
		t.Fatalf("black must move again while white passes")
	}
	if out := e.CheckWinCondition(b, rules.Mover{Index: 0}); out.Over {
		t.Fatalf("black still has (7,3), game must continue")
	}
}

func TestGameEndsWhenNobodyCanMove(t *testing.T) {
	e, b := setup()
	b.Reset()
	b.Put(0, 0, 1, "")
	b.Put(0, 1, 2, "")
	if _, err := e.ApplyMove(b, rules.Mover{Index: 0}, rules.At(0, 2)); err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	out := e.CheckWinCondition(b, rules.Mover{Index: 0})
	if !out.Over || out.Winner != 0 || out.Reason != ReasonMostPieces {
		t.Fatalf("expected black to win on pieces, got %+v", out)
	}
}
