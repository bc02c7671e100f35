// Package catalog maps game keys to rules engine constructors.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/park285/cheese-rooms/internal/rules"
	"github.com/park285/cheese-rooms/internal/rules/checkers"
	"github.com/park285/cheese-rooms/internal/rules/chess"
	"github.com/park285/cheese-rooms/internal/rules/grid"
	"github.com/park285/cheese-rooms/internal/rules/reversi"
)

var factories = map[string]func() rules.Engine{
	chess.Key:           func() rules.Engine { return chess.New() },
	checkers.Key:        func() rules.Engine { return checkers.New() },
	reversi.Key:         func() rules.Engine { return reversi.New() },
	grid.KeyTicTacToe:   func() rules.Engine { return grid.NewTicTacToe() },
	grid.KeyConnectFour: func() rules.Engine { return grid.NewConnectFour() },
	grid.KeyGomoku:      func() rules.Engine { return grid.NewGomoku() },
}

var aliases = map[string]string{
	"connect-four": grid.KeyConnectFour,
	"connectfour":  grid.KeyConnectFour,
	"tic-tac-toe":  grid.KeyTicTacToe,
	"othello":      reversi.Key,
	"draughts":     checkers.Key,
}

// Normalize resolves aliases and case; unknown keys come back unchanged.
func Normalize(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if canonical, ok := aliases[k]; ok {
		return canonical
	}
	return k
}

// New returns a fresh engine for key.
func New(key string) (rules.Engine, error) {
	f, ok := factories[Normalize(key)]
	if !ok {
		return nil, fmt.Errorf("unknown game type %q", key)
	}
	return f(), nil
}

// Keys lists the canonical game keys in sorted order.
func Keys() []string {
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
