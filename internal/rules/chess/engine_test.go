package chess

import (
	"encoding/json"
	"sort"
	"strings"
	"testing"

	nchess "github.com/corentings/chess/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/cheese-rooms/internal/board"
	"github.com/park285/cheese-rooms/internal/rules"
)

var seats = [2]rules.Mover{{Index: 0, Identity: "white"}, {Index: 1, Identity: "black"}}

func parseUCI(t *testing.T, s string) rules.Move {
	t.Helper()
	from, err := ParseSquare(s[:2])
	require.NoError(t, err)
	to, err := ParseSquare(s[2:4])
	require.NoError(t, err)
	m := rules.To(from.Row, from.Col, to.Row, to.Col)
	if len(s) == 5 {
		m.Extra = s[4:]
	}
	return m
}

func newGame() (*Engine, *board.Board) {
	e := New()
	b := board.MustNew(8, 8)
	e.InitializeBoard(b)
	return e, b
}

// playAll applies moves alternately from white and returns the outcome of the last one.
func playAll(t *testing.T, e *Engine, b *board.Board, moves ...string) (rules.Applied, rules.Outcome) {
	t.Helper()
	var applied rules.Applied
	var out rules.Outcome
	for i, s := range moves {
		mover := seats[i%2]
		m := parseUCI(t, s)
		require.NoError(t, e.ValidateMove(b, mover, m), "move %d %s", i, s)
		var err error
		applied, err = e.ApplyMove(b, mover, m)
		require.NoError(t, err, "move %d %s", i, s)
		out = e.CheckWinCondition(b, mover)
		if i < len(moves)-1 {
			require.False(t, out.Over, "game ended early at %s: %+v", s, out)
		}
	}
	return applied, out
}

// custom builds a position from square/value pairs with white (seat 0) or black to move.
func custom(t *testing.T, turn int, pieces map[string]int) (*Engine, *board.Board) {
	t.Helper()
	e := New()
	b := board.MustNew(8, 8)
	for name, v := range pieces {
		sq, err := ParseSquare(name)
		require.NoError(t, err)
		b.Put(sq.Row, sq.Col, v, "")
	}
	raw, err := json.Marshal(extraState{Fullmove: 40, Turn: turn})
	require.NoError(t, err)
	require.NoError(t, e.RestoreExtraState(raw))
	return e, b
}

func TestStartPositionFEN(t *testing.T) {
	e, b := newGame()
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", e.FEN(b))
	assert.Len(t, e.LegalMoves(b, 0), 20)
}

func TestFoolsMate(t *testing.T) {
	e, b := newGame()
	applied, out := playAll(t, e, b, "f2f3", "e7e5", "g2g4", "d8h4")
	assert.Equal(t, "Qh4#", applied.Notation)
	assert.True(t, out.Over)
	assert.Equal(t, 1, out.Winner)
	assert.Equal(t, ReasonCheckmate, out.Reason)
}

func TestEarlyQueenSortieContinues(t *testing.T) {
	e, b := newGame()
	applied, out := playAll(t, e, b, "e2e4", "e7e5", "d1h5")
	assert.Equal(t, "Qh5", applied.Notation)
	assert.False(t, out.Over)
	assert.False(t, e.InCheck(b, 1))
}

func TestRejectsWrongSideAndIllegalMoves(t *testing.T) {
	e, b := newGame()
	assert.ErrorIs(t, e.ValidateMove(b, seats[1], parseUCI(t, "e7e5")), rules.ErrIllegal, "black cannot move first")
	assert.ErrorIs(t, e.ValidateMove(b, seats[0], parseUCI(t, "e2e5")), rules.ErrIllegal)
	assert.ErrorIs(t, e.ValidateMove(b, seats[0], parseUCI(t, "e7e6")), rules.ErrIllegal, "cannot move opponent pawn")
	assert.ErrorIs(t, e.ValidateMove(b, seats[0], rules.At(6, 4)), rules.ErrIllegal, "destination required")
	assert.ErrorIs(t, e.ValidateMove(b, seats[0], parseUCI(t, "f1c4")), rules.ErrIllegal, "bishop is blocked")
}

func TestPinnedPieceCannotMove(t *testing.T) {
	e, b := custom(t, 0, map[string]int{
		"e1": King, "e2": Bishop, "e8": -Rook, "a8": -King,
	})
	assert.ErrorIs(t, e.ValidateMove(b, seats[0], parseUCI(t, "e2d3")), rules.ErrIllegal)
	assert.NoError(t, e.ValidateMove(b, seats[0], parseUCI(t, "e1d1")))
	assert.ErrorIs(t, e.ValidateMove(b, seats[0], parseUCI(t, "e2f3")), rules.ErrIllegal)
}

func TestKingsideCastling(t *testing.T) {
	e, b := newGame()
	applied, out := playAll(t, e, b, "e2e4", "e7e5", "g1f3", "b8c6", "f1c4", "g8f6", "e1g1")
	assert.False(t, out.Over)
	assert.Equal(t, "O-O", applied.Notation)
	assert.Equal(t, King, b.Value(7, 6))
	assert.Equal(t, Rook, b.Value(7, 5))
	assert.Equal(t, 0, b.Value(7, 7))
	assert.True(t, strings.Contains(e.FEN(b), " b kq "), e.FEN(b))
}

func TestCastlingBlockedThroughCheck(t *testing.T) {
	e, b := custom(t, 0, map[string]int{
		"e1": King, "h1": Rook, "a1": Rook, "f8": -Rook, "a8": -King,
	})
	e.castling = Castling{WhiteKing: true, WhiteQueen: true}
	assert.ErrorIs(t, e.ValidateMove(b, seats[0], parseUCI(t, "e1g1")), rules.ErrIllegal, "f1 is attacked")
	applied, err := e.ApplyMove(b, seats[0], parseUCI(t, "e1c1"))
	require.NoError(t, err)
	assert.Equal(t, "O-O-O", applied.Notation)
	assert.Equal(t, Rook, b.Value(7, 3))
}

func TestEnPassant(t *testing.T) {
	e, b := newGame()
	applied, _ := playAll(t, e, b, "e2e4", "a7a6", "e4e5", "d7d5", "e5d6")
	assert.Equal(t, "exd6", applied.Notation)
	assert.Equal(t, 1, applied.Captured)
	assert.Equal(t, 0, b.Value(3, 3), "captured pawn removed from d5")
	assert.Equal(t, Pawn, b.Value(2, 3))
}

func TestEnPassantExpiresAfterOneMove(t *testing.T) {
	e, b := newGame()
	playAll(t, e, b, "e2e4", "a7a6", "e4e5", "d7d5", "h2h3", "a6a5")
	assert.ErrorIs(t, e.ValidateMove(b, seats[0], parseUCI(t, "e5d6")), rules.ErrIllegal)
}

func TestPromotion(t *testing.T) {
	e, b := custom(t, 0, map[string]int{"a7": Pawn, "h1": King, "e5": -King})
	applied, err := e.ApplyMove(b, seats[0], parseUCI(t, "a7a8"))
	require.NoError(t, err)
	assert.Equal(t, "a8=Q", applied.Notation)
	assert.Equal(t, Queen, b.Value(0, 0))

	e, b = custom(t, 0, map[string]int{"a7": Pawn, "h1": King, "e5": -King})
	applied, err = e.ApplyMove(b, seats[0], parseUCI(t, "a7a8n"))
	require.NoError(t, err)
	assert.Equal(t, "a8=N", applied.Notation)
	assert.Equal(t, Knight, b.Value(0, 0))

	e, b = custom(t, 0, map[string]int{"a7": Pawn, "h1": King, "e5": -King})
	assert.ErrorIs(t, e.ValidateMove(b, seats[0], parseUCI(t, "a7a8k")), rules.ErrIllegal)
}

func TestStalemate(t *testing.T) {
	e, b := custom(t, 0, map[string]int{"a8": -King, "b6": King, "d7": Queen})
	_, err := e.ApplyMove(b, seats[0], parseUCI(t, "d7c7"))
	require.NoError(t, err)
	out := e.CheckWinCondition(b, seats[0])
	assert.Equal(t, rules.Draw(ReasonStalemate), out)
}

func TestInsufficientMaterial(t *testing.T) {
	e, b := custom(t, 0, map[string]int{"e1": King, "e2": -Queen, "e8": -King})
	applied, err := e.ApplyMove(b, seats[0], parseUCI(t, "e1e2"))
	require.NoError(t, err)
	assert.Equal(t, "Kxe2", applied.Notation)
	assert.Equal(t, rules.Draw(ReasonInsufficientMaterial), e.CheckWinCondition(b, seats[0]))

	p := position{}
	p.sq[7][2] = Bishop
	p.sq[0][5] = -Bishop
	p.sq[7][4] = King
	p.sq[0][4] = -King
	assert.True(t, p.insufficientMaterial(), "c1 and f8 bishops share a colour")
	p.sq[0][5] = 0
	p.sq[0][2] = -Bishop
	assert.False(t, p.insufficientMaterial())
}

func TestFiftyMoveRule(t *testing.T) {
	e, b := custom(t, 0, map[string]int{"e1": King, "b1": Knight, "e8": -King, "a8": -Rook})
	e.halfmove = 99
	_, err := e.ApplyMove(b, seats[0], parseUCI(t, "b1c3"))
	require.NoError(t, err)
	assert.Equal(t, rules.Draw(ReasonFiftyMove), e.CheckWinCondition(b, seats[0]))
}

func TestKnightDisambiguation(t *testing.T) {
	e, b := custom(t, 0, map[string]int{"b1": Knight, "f1": Knight, "h1": King, "h8": -King})
	applied, err := e.ApplyMove(b, seats[0], parseUCI(t, "b1d2"))
	require.NoError(t, err)
	assert.Equal(t, "Nbd2", applied.Notation)
}

func moveKeys(ms []rules.Move) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		to, _ := m.Dest()
		out = append(out, UCI(m.From(), to, m.Extra))
	}
	sort.Strings(out)
	return out
}

func TestExtraStateRoundTripPreservesLegalMoves(t *testing.T) {
	e, b := newGame()
	playAll(t, e, b, "e2e4", "a7a6", "e4e5", "h7h6", "e1e2", "f7f5")

	raw, err := e.SerializeExtraState()
	require.NoError(t, err)
	cells := b.Serialize()

	restoredBoard := board.MustNew(1, 1)
	require.NoError(t, restoredBoard.Restore(8, 8, cells))
	restored := New()
	require.NoError(t, restored.RestoreExtraState(raw))

	assert.Equal(t, e.FEN(b), restored.FEN(restoredBoard))
	assert.Equal(t, moveKeys(e.LegalMoves(b, 0)), moveKeys(restored.LegalMoves(restoredBoard, 0)))
	assert.NotContains(t, moveKeys(restored.LegalMoves(restoredBoard, 0)), "e1g1")
	assert.Contains(t, moveKeys(restored.LegalMoves(restoredBoard, 0)), "e5f6", "en passant survives the round trip")

	again, err := restored.SerializeExtraState()
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(again))
}

func TestLegalMoveCountsMatchReferenceLibrary(t *testing.T) {
	games := [][]string{
		{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5", "a7a6", "b5c6", "d7c6", "e1g1", "f7f6", "d2d4", "e5d4", "f3d4", "c6c5"},
		{"d2d4", "g8f6", "c2c4", "e7e6", "b1c3", "f8b4", "e2e3", "e8g8", "f1d3", "d7d5", "g1f3", "c7c5"},
		{"e2e4", "d7d5", "e4d5", "d8d5", "b1c3", "d5a5", "d2d4", "c7c6", "g1f3", "c8g4", "h2h3", "g4f3"},
	}
	for _, moves := range games {
		e, b := newGame()
		ref := nchess.NewGame()
		for i, s := range moves {
			mover := seats[i%2]
			_, err := e.ApplyMove(b, mover, parseUCI(t, s))
			require.NoError(t, err, s)
			require.NoError(t, ref.PushNotationMove(s, nchess.UCINotation{}, nil), s)

			next := 1 - mover.Index
			assert.Len(t, e.LegalMoves(b, next), len(ref.ValidMoves()), "after %s", s)
			ours := strings.Fields(e.FEN(b))
			theirs := strings.Fields(ref.FEN())
			assert.Equal(t, theirs[0], ours[0], "placement after %s", s)
			assert.Equal(t, theirs[1], ours[1], "side to move after %s", s)
			assert.Equal(t, theirs[2], ours[2], "castling rights after %s", s)
		}
	}
}
