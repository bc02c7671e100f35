package board

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfBounds   = errors.New("position out of bounds")
	ErrBadDimensions = errors.New("invalid board dimensions")
)

// Cell is one grid square. Value semantics belong to the rules engine
// (signed piece codes for chess, player marks for grid games); Owner is an
// optional tag, usually the persistent identity that placed the piece.
type Cell struct {
	Value int    `json:"v"`
	Owner string `json:"o,omitempty"`
}

// Pos addresses a cell; row 0 is the top row as rendered to clients.
type Pos struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p Pos) String() string { return fmt.Sprintf("(%d,%d)", p.Row, p.Col) }

// Board is a fixed width×height grid. len(cells) == width*height always holds.
type Board struct {
	width  int
	height int
	cells  []Cell
}

func New(width, height int) (*Board, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrBadDimensions, width, height)
	}
	return &Board{width: width, height: height, cells: make([]Cell, width*height)}, nil
}

// MustNew is New for compile-time constant dimensions.
func MustNew(width, height int) *Board {
	b, err := New(width, height)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Board) Width() int  { return b.width }
func (b *Board) Height() int { return b.height }

func (b *Board) InBounds(row, col int) bool {
	return row >= 0 && row < b.height && col >= 0 && col < b.width
}

func (b *Board) index(row, col int) int { return row*b.width + col }

// Get returns the cell at (row, col); out-of-range reads return the zero cell.
func (b *Board) Get(row, col int) Cell {
	if !b.InBounds(row, col) {
		return Cell{}
	}
	return b.cells[b.index(row, col)]
}

// Value is shorthand for Get(row, col).Value.
func (b *Board) Value(row, col int) int { return b.Get(row, col).Value }

func (b *Board) Set(row, col int, c Cell) error {
	if !b.InBounds(row, col) {
		return fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, row, col)
	}
	b.cells[b.index(row, col)] = c
	return nil
}

// Put stores a value with an owner tag and panics on out-of-range writes;
// rules engines only call it with validated coordinates.
func (b *Board) Put(row, col, value int, owner string) {
	if err := b.Set(row, col, Cell{Value: value, Owner: owner}); err != nil {
		panic(err)
	}
}

// Clear empties the cell at (row, col).
func (b *Board) Clear(row, col int) { b.Put(row, col, 0, "") }

// Reset empties every cell.
func (b *Board) Reset() {
	for i := range b.cells {
		b.cells[i] = Cell{}
	}
}

// Count returns how many cells satisfy pred.
func (b *Board) Count(pred func(Cell) bool) int {
	n := 0
	for _, c := range b.cells {
		if pred(c) {
			n++
		}
	}
	return n
}

// Clone returns an independent copy.
func (b *Board) Clone() *Board {
	out := &Board{width: b.width, height: b.height, cells: make([]Cell, len(b.cells))}
	copy(out.cells, b.cells)
	return out
}

// Serialize returns a row-major copy of the cells.
func (b *Board) Serialize() []Cell {
	out := make([]Cell, len(b.cells))
	copy(out, b.cells)
	return out
}

// Restore replaces dimensions and cells; it rejects a cell count that does
// not match width*height.
func (b *Board) Restore(width, height int, cells []Cell) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrBadDimensions, width, height)
	}
	if len(cells) != width*height {
		return fmt.Errorf("%w: %d cells for %dx%d", ErrBadDimensions, len(cells), width, height)
	}
	b.width, b.height = width, height
	b.cells = make([]Cell, len(cells))
	copy(b.cells, cells)
	return nil
}
