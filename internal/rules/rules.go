// Package rules defines the contract every game variant implements. A room
// owns one Engine for the lifetime of a game; the engine mutates the room's
// board only inside ApplyMove and InitializeBoard.
package rules

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/park285/cheese-rooms/internal/board"
)

// ErrIllegal wraps every move rejection produced by an engine.
var ErrIllegal = errors.New("illegal move")

// Illegal formats a rejection that still matches errors.Is(err, ErrIllegal).
func Illegal(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIllegal, fmt.Sprintf(format, args...))
}

// Move is the decoded `move` payload. Placement games use only Row/Col;
// Connect-Four uses only Col; piece games also carry a destination.
type Move struct {
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	ToRow *int   `json:"toRow,omitempty"`
	ToCol *int   `json:"toCol,omitempty"`
	Extra string `json:"extra,omitempty"`
}

// To builds a two-square move.
func To(fromRow, fromCol, toRow, toCol int) Move {
	return Move{Row: fromRow, Col: fromCol, ToRow: &toRow, ToCol: &toCol}
}

// At builds a placement move.
func At(row, col int) Move { return Move{Row: row, Col: col} }

func (m Move) From() board.Pos { return board.Pos{Row: m.Row, Col: m.Col} }

// Dest returns the destination square when both coordinates were sent.
func (m Move) Dest() (board.Pos, bool) {
	if m.ToRow == nil || m.ToCol == nil {
		return board.Pos{}, false
	}
	return board.Pos{Row: *m.ToRow, Col: *m.ToCol}, true
}

// Mover identifies who is moving. Index is the seat (0 moves first).
type Mover struct {
	Index    int
	Identity string
}

// Opponent returns the other seat index.
func Opponent(index int) int { return 1 - index }

// TurnDecision tells the room what happens to the turn pointer after a move.
type TurnDecision int

const (
	NextPlayer TurnDecision = iota
	SamePlayer
)

func (d TurnDecision) String() string {
	if d == SamePlayer {
		return "same"
	}
	return "next"
}

// Applied describes an executed move.
// Captured counts opponent pieces removed or turned by the move.
type Applied struct {
	Notation string
	From     board.Pos
	To       *board.Pos
	Captured int
	Next     TurnDecision
}

// Outcome is the result of CheckWinCondition. Winner is a seat index, or -1 for a draw.
type Outcome struct {
	Over   bool
	Winner int
	Reason string
}

func Continue() Outcome                    { return Outcome{Winner: -1} }
func Win(index int, reason string) Outcome { return Outcome{Over: true, Winner: index, Reason: reason} }
func Draw(reason string) Outcome           { return Outcome{Over: true, Winner: -1, Reason: reason} }
func (o Outcome) IsDraw() bool             { return o.Over && o.Winner < 0 }

// Engine is implemented once per game variant.
type Engine interface {
	Key() string
	Dimensions() (width, height int)
	// Symbols returns the per-seat piece symbols shown to clients.
	Symbols() [2]string
	// InitializeBoard lays out the starting position and resets engine-side state.
	InitializeBoard(b *board.Board)
	ValidateMove(b *board.Board, mover Mover, m Move) error
	ApplyMove(b *board.Board, mover Mover, m Move) (Applied, error)
	// CheckWinCondition evaluates the position right after mover's move.
	CheckWinCondition(b *board.Board, mover Mover) Outcome
	SerializeExtraState() (json.RawMessage, error)
	RestoreExtraState(raw json.RawMessage) error
}

// Scorer is implemented by engines whose seats carry a live score.
type Scorer interface {
	Scores(b *board.Board) [2]int
}

// TurnKeeper is implemented by engines that track the side to move
// themselves. A restore with no extra state sets it from the room's turn.
type TurnKeeper interface {
	Turn() int
	SetTurn(seat int)
}

// Win reasons shared across engines.
const (
	ReasonResignation = "resignation"
	ReasonDrawAgreed  = "draw_agreed"
	ReasonBoardFull   = "board_full"
)
