package persist

import (
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/cheese-rooms/internal/board"
	"github.com/park285/cheese-rooms/internal/domain"
	"github.com/park285/cheese-rooms/internal/rules/chess"
)

// mapResultToPGN converts a winner seat (-1 for draw) into a PGN result token.
func mapResultToPGN(winnerIndex int, over bool) string {
	if !over {
		return "*"
	}
	switch winnerIndex {
	case 0:
		return "1-0"
	case 1:
		return "0-1"
	default:
		return "1/2-1/2"
	}
}

// entryUCI derives UCI from a logged chess move; the promotion piece is
// read from the SAN suffix ("e8=Q").
func entryUCI(e board.Entry) (string, error) {
	if e.To == nil {
		return "", fmt.Errorf("move %q has no destination", e.Notation)
	}
	promo := ""
	if i := strings.IndexByte(e.Notation, '='); i >= 0 && i+1 < len(e.Notation) {
		promo = strings.ToLower(e.Notation[i+1 : i+2])
	}
	return chess.UCI(e.From, *e.To, promo), nil
}

// replayChess rebuilds a logged chess game with the reference library and
// returns the final FEN. Any divergence is an error.
func replayChess(moves []board.Entry) (string, error) {
	game := nchess.NewGame()
	for i, e := range moves {
		uci, err := entryUCI(e)
		if err != nil {
			return "", err
		}
		if err := game.PushNotationMove(uci, nchess.UCINotation{}, nil); err != nil {
			return "", fmt.Errorf("replay move %d %s: %w", i+1, uci, err)
		}
	}
	return game.FEN(), nil
}

func buildPGN(rec *domain.GameRecord, pgnResult string) string {
	if rec == nil {
		return ""
	}
	var white, black string
	for _, p := range rec.Players {
		name := p.DisplayName
		if name == "" {
			name = p.Identity
		}
		if p.Index == 0 {
			white = name
		} else {
			black = name
		}
	}
	var b strings.Builder
	date := rec.EndedAt
	if date.IsZero() {
		date = time.Now()
	}
	b.WriteString("[Event \"Room game\"]\n")
	b.WriteString(fmt.Sprintf("[Site \"%s\"]\n", sanitizePGN(rec.RoomID)))
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(white)))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(black)))
	if strings.TrimSpace(rec.Reason) != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(rec.Reason)))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", pgnResult))

	for i := 0; i < len(rec.Moves); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s", i/2+1, strings.TrimSpace(rec.Moves[i])))
		if i+1 < len(rec.Moves) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(rec.Moves[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(pgnResult)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
