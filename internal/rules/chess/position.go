package chess

import "github.com/park285/cheese-rooms/internal/board"

// Piece magnitudes; white is positive, black negative.
const (
	Pawn   = 1
	Knight = 2
	Bishop = 3
	Rook   = 4
	Queen  = 5
	King   = 6
)

const (
	castleNone = iota
	castleKing
	castleQueen
)

// Castling holds the four castling rights.
type Castling struct {
	WhiteKing  bool `json:"K"`
	WhiteQueen bool `json:"Q"`
	BlackKing  bool `json:"k"`
	BlackQueen bool `json:"q"`
}

// position is a value type; apply returns a fresh copy.
type position struct {
	sq       [8][8]int
	moved    [8][8]bool
	castling Castling
	ep       *board.Pos
	halfmove int
	fullmove int
	// side is +1 for white to move, -1 for black.
	side int
}

type move struct {
	from, to board.Pos
	promo    int
	castle   int
	enPass   bool
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func colorOf(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func inside(r, c int) bool { return r >= 0 && r < 8 && c >= 0 && c < 8 }

func (p *position) at(sq board.Pos) int { return p.sq[sq.Row][sq.Col] }

func startPosition() position {
	var p position
	back := [8]int{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}
	for c := 0; c < 8; c++ {
		p.sq[0][c] = -back[c]
		p.sq[1][c] = -Pawn
		p.sq[6][c] = Pawn
		p.sq[7][c] = back[c]
	}
	p.castling = Castling{true, true, true, true}
	p.fullmove = 1
	p.side = 1
	return p
}

var (
	knightJumps = [8][2]int{{-2, -1}, {-2, 1}, {-1, -2}, {-1, 2}, {1, -2}, {1, 2}, {2, -1}, {2, 1}}
	kingSteps   = [8][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}
	rookDirs    = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	bishopDirs  = [4][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
)

// pawnDir is the row delta for a pawn of the given color.
func pawnDir(color int) int {
	if color > 0 {
		return -1
	}
	return 1
}

func homeRow(color int) int {
	if color > 0 {
		return 7
	}
	return 0
}

// attacked reports whether (r, c) is attacked by any piece of color by.
func (p *position) attacked(r, c, by int) bool {
	// pawns attack diagonally forward, so look one row behind the target
	pr := r - pawnDir(by)
	for _, dc := range [2]int{-1, 1} {
		if inside(pr, c+dc) && p.sq[pr][c+dc] == by*Pawn {
			return true
		}
	}
	for _, j := range knightJumps {
		if inside(r+j[0], c+j[1]) && p.sq[r+j[0]][c+j[1]] == by*Knight {
			return true
		}
	}
	for _, s := range kingSteps {
		if inside(r+s[0], c+s[1]) && p.sq[r+s[0]][c+s[1]] == by*King {
			return true
		}
	}
	slide := func(dirs [4][2]int, kinds ...int) bool {
		for _, d := range dirs {
			rr, cc := r+d[0], c+d[1]
			for inside(rr, cc) {
				v := p.sq[rr][cc]
				if v != 0 {
					for _, k := range kinds {
						if v == by*k {
							return true
						}
					}
					break
				}
				rr += d[0]
				cc += d[1]
			}
		}
		return false
	}
	return slide(rookDirs, Rook, Queen) || slide(bishopDirs, Bishop, Queen)
}

func (p *position) kingSquare(color int) (board.Pos, bool) {
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			if p.sq[r][c] == color*King {
				return board.Pos{Row: r, Col: c}, true
			}
		}
	}
	return board.Pos{}, false
}

func (p *position) inCheck(color int) bool {
	k, ok := p.kingSquare(color)
	return ok && p.attacked(k.Row, k.Col, -color)
}

func (p *position) pseudoMoves(color int) []move {
	var out []move
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			v := p.sq[r][c]
			if colorOf(v) != color {
				continue
			}
			from := board.Pos{Row: r, Col: c}
			switch abs(v) {
			case Pawn:
				out = p.pawnMoves(out, from, color)
			case Knight:
				out = p.stepMoves(out, from, color, knightJumps[:])
			case King:
				out = p.stepMoves(out, from, color, kingSteps[:])
				out = p.castleMoves(out, from, color)
			case Bishop:
				out = p.slideMoves(out, from, color, bishopDirs[:])
			case Rook:
				out = p.slideMoves(out, from, color, rookDirs[:])
			case Queen:
				out = p.slideMoves(out, from, color, bishopDirs[:])
				out = p.slideMoves(out, from, color, rookDirs[:])
			}
		}
	}
	return out
}

func (p *position) pawnMoves(out []move, from board.Pos, color int) []move {
	dir := pawnDir(color)
	lastRow := homeRow(-color)
	add := func(to board.Pos, ep bool) {
		if to.Row == lastRow {
			for _, promo := range [4]int{Queen, Rook, Bishop, Knight} {
				out = append(out, move{from: from, to: to, promo: promo})
			}
			return
		}
		out = append(out, move{from: from, to: to, enPass: ep})
	}
	r1 := from.Row + dir
	if inside(r1, from.Col) && p.sq[r1][from.Col] == 0 {
		add(board.Pos{Row: r1, Col: from.Col}, false)
		startRow := homeRow(color) + dir
		r2 := r1 + dir
		if from.Row == startRow && p.sq[r2][from.Col] == 0 {
			add(board.Pos{Row: r2, Col: from.Col}, false)
		}
	}
	for _, dc := range [2]int{-1, 1} {
		tc := from.Col + dc
		if !inside(r1, tc) {
			continue
		}
		if colorOf(p.sq[r1][tc]) == -color {
			add(board.Pos{Row: r1, Col: tc}, false)
		} else if p.ep != nil && p.ep.Row == r1 && p.ep.Col == tc {
			add(board.Pos{Row: r1, Col: tc}, true)
		}
	}
	return out
}

func (p *position) stepMoves(out []move, from board.Pos, color int, steps [][2]int) []move {
	for _, s := range steps {
		r, c := from.Row+s[0], from.Col+s[1]
		if inside(r, c) && colorOf(p.sq[r][c]) != color {
			out = append(out, move{from: from, to: board.Pos{Row: r, Col: c}})
		}
	}
	return out
}

func (p *position) slideMoves(out []move, from board.Pos, color int, dirs [][2]int) []move {
	for _, d := range dirs {
		r, c := from.Row+d[0], from.Col+d[1]
		for inside(r, c) {
			v := p.sq[r][c]
			if colorOf(v) == color {
				break
			}
			out = append(out, move{from: from, to: board.Pos{Row: r, Col: c}})
			if v != 0 {
				break
			}
			r += d[0]
			c += d[1]
		}
	}
	return out
}

func (p *position) castleMoves(out []move, from board.Pos, color int) []move {
	row := homeRow(color)
	if from.Row != row || from.Col != 4 || p.moved[row][4] || p.inCheck(color) {
		return out
	}
	kingSide, queenSide := p.castling.WhiteKing, p.castling.WhiteQueen
	if color < 0 {
		kingSide, queenSide = p.castling.BlackKing, p.castling.BlackQueen
	}
	rook := color * Rook
	if kingSide && p.sq[row][7] == rook && !p.moved[row][7] &&
		p.sq[row][5] == 0 && p.sq[row][6] == 0 &&
		!p.attacked(row, 5, -color) && !p.attacked(row, 6, -color) {
		out = append(out, move{from: from, to: board.Pos{Row: row, Col: 6}, castle: castleKing})
	}
	if queenSide && p.sq[row][0] == rook && !p.moved[row][0] &&
		p.sq[row][1] == 0 && p.sq[row][2] == 0 && p.sq[row][3] == 0 &&
		!p.attacked(row, 3, -color) && !p.attacked(row, 2, -color) {
		out = append(out, move{from: from, to: board.Pos{Row: row, Col: 2}, castle: castleQueen})
	}
	return out
}

// apply executes mv and returns the resulting position.
func (p position) apply(mv move) position {
	n := p
	piece := n.at(mv.from)
	color := colorOf(piece)
	captured := n.at(mv.to)

	n.sq[mv.from.Row][mv.from.Col] = 0
	n.moved[mv.from.Row][mv.from.Col] = false
	placed := piece
	if mv.promo != 0 {
		placed = color * mv.promo
	}
	n.sq[mv.to.Row][mv.to.Col] = placed
	n.moved[mv.to.Row][mv.to.Col] = true

	if mv.enPass {
		capRow := mv.to.Row - pawnDir(color)
		captured = n.sq[capRow][mv.to.Col]
		n.sq[capRow][mv.to.Col] = 0
		n.moved[capRow][mv.to.Col] = false
	}
	switch mv.castle {
	case castleKing:
		n.sq[mv.from.Row][5] = n.sq[mv.from.Row][7]
		n.sq[mv.from.Row][7] = 0
		n.moved[mv.from.Row][7] = false
		n.moved[mv.from.Row][5] = true
	case castleQueen:
		n.sq[mv.from.Row][3] = n.sq[mv.from.Row][0]
		n.sq[mv.from.Row][0] = 0
		n.moved[mv.from.Row][0] = false
		n.moved[mv.from.Row][3] = true
	}

	if abs(piece) == King {
		if color > 0 {
			n.castling.WhiteKing, n.castling.WhiteQueen = false, false
		} else {
			n.castling.BlackKing, n.castling.BlackQueen = false, false
		}
	}
	for _, sq := range [2]board.Pos{mv.from, mv.to} {
		switch sq {
		case board.Pos{Row: 7, Col: 7}:
			n.castling.WhiteKing = false
		case board.Pos{Row: 7, Col: 0}:
			n.castling.WhiteQueen = false
		case board.Pos{Row: 0, Col: 7}:
			n.castling.BlackKing = false
		case board.Pos{Row: 0, Col: 0}:
			n.castling.BlackQueen = false
		}
	}

	n.ep = nil
	if abs(piece) == Pawn && abs(mv.to.Row-mv.from.Row) == 2 {
		n.ep = &board.Pos{Row: (mv.from.Row + mv.to.Row) / 2, Col: mv.from.Col}
	}
	if abs(piece) == Pawn || captured != 0 {
		n.halfmove = 0
	} else {
		n.halfmove++
	}
	if color < 0 {
		n.fullmove++
	}
	n.side = -color
	return n
}

func (p *position) legalMoves(color int) []move {
	pseudo := p.pseudoMoves(color)
	out := pseudo[:0:0]
	for _, mv := range pseudo {
		next := p.apply(mv)
		if !next.inCheck(color) {
			out = append(out, mv)
		}
	}
	return out
}

// insufficientMaterial covers K v K, K+minor v K and bishops all on one colour.
func (p *position) insufficientMaterial() bool {
	var minors, knights int
	bishopColors := map[int]bool{}
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			switch abs(p.sq[r][c]) {
			case 0, King:
			case Knight:
				minors++
				knights++
			case Bishop:
				minors++
				bishopColors[(r+c)%2] = true
			default:
				return false
			}
		}
	}
	if minors <= 1 {
		return true
	}
	return knights == 0 && len(bishopColors) == 1
}
