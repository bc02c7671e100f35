package chess

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/park285/cheese-rooms/internal/board"
)

var pieceLetters = map[int]string{Knight: "N", Bishop: "B", Rook: "R", Queen: "Q", King: "K"}

// SquareName renders a board position in algebraic form ("e4").
func SquareName(p board.Pos) string {
	return string(rune('a'+p.Col)) + strconv.Itoa(8-p.Row)
}

// ParseSquare is the inverse of SquareName.
func ParseSquare(s string) (board.Pos, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return board.Pos{}, fmt.Errorf("bad square %q", s)
	}
	return board.Pos{Row: 8 - int(s[1]-'0'), Col: int(s[0] - 'a')}, nil
}

// UCI renders a from/to pair plus optional promotion letter.
func UCI(from, to board.Pos, promo string) string {
	return SquareName(from) + SquareName(to) + strings.ToLower(promo)
}

func parsePromotion(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "q", "queen":
		return Queen, nil
	case "r", "rook":
		return Rook, nil
	case "b", "bishop":
		return Bishop, nil
	case "n", "knight":
		return Knight, nil
	}
	return 0, fmt.Errorf("unknown promotion piece %q", s)
}

// san renders mv in standard algebraic notation; p is the position before the move.
func (p *position) san(mv move, legal []move) string {
	var sb strings.Builder
	piece := abs(p.at(mv.from))
	switch mv.castle {
	case castleKing:
		sb.WriteString("O-O")
	case castleQueen:
		sb.WriteString("O-O-O")
	default:
		capture := p.at(mv.to) != 0 || mv.enPass
		if piece == Pawn {
			if capture {
				sb.WriteByte(byte('a' + mv.from.Col))
			}
		} else {
			sb.WriteString(pieceLetters[piece])
			sb.WriteString(disambiguate(p, mv, legal))
		}
		if capture {
			sb.WriteByte('x')
		}
		sb.WriteString(SquareName(mv.to))
		if mv.promo != 0 {
			sb.WriteByte('=')
			sb.WriteString(pieceLetters[mv.promo])
		}
	}
	next := p.apply(mv)
	color := colorOf(p.at(mv.from))
	if next.inCheck(-color) {
		if len(next.legalMoves(-color)) == 0 {
			sb.WriteByte('#')
		} else {
			sb.WriteByte('+')
		}
	}
	return sb.String()
}

func disambiguate(p *position, mv move, legal []move) string {
	piece := p.at(mv.from)
	var sameFile, sameRank, others bool
	for _, o := range legal {
		if o.to != mv.to || o.from == mv.from || p.at(o.from) != piece {
			continue
		}
		others = true
		if o.from.Col == mv.from.Col {
			sameFile = true
		}
		if o.from.Row == mv.from.Row {
			sameRank = true
		}
	}
	switch {
	case !others:
		return ""
	case !sameFile:
		return string(rune('a' + mv.from.Col))
	case !sameRank:
		return strconv.Itoa(8 - mv.from.Row)
	default:
		return SquareName(mv.from)
	}
}

var fenLetters = map[int]byte{Pawn: 'p', Knight: 'n', Bishop: 'b', Rook: 'r', Queen: 'q', King: 'k'}

func (p *position) fen() string {
	var sb strings.Builder
	for r := 0; r < 8; r++ {
		empty := 0
		for c := 0; c < 8; c++ {
			v := p.sq[r][c]
			if v == 0 {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			ch := fenLetters[abs(v)]
			if v > 0 {
				ch -= 'a' - 'A'
			}
			sb.WriteByte(ch)
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if r < 7 {
			sb.WriteByte('/')
		}
	}
	side := "w"
	if p.side < 0 {
		side = "b"
	}
	rights := ""
	if p.castling.WhiteKing {
		rights += "K"
	}
	if p.castling.WhiteQueen {
		rights += "Q"
	}
	if p.castling.BlackKing {
		rights += "k"
	}
	if p.castling.BlackQueen {
		rights += "q"
	}
	if rights == "" {
		rights = "-"
	}
	ep := "-"
	if p.ep != nil {
		ep = SquareName(*p.ep)
	}
	return fmt.Sprintf("%s %s %s %s %d %d", sb.String(), side, rights, ep, p.halfmove, p.fullmove)
}
