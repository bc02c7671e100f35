package catalog

import (
	"testing"

	"github.com/park285/cheese-rooms/internal/board"
)

func TestEveryEngineInitializes(t *testing.T) {
	for _, key := range Keys() {
		e, err := New(key)
		if err != nil {
			t.Fatalf("New(%q): %v", key, err)
		}
		if e.Key() != key {
			t.Fatalf("engine key %q registered as %q", e.Key(), key)
		}
		w, h := e.Dimensions()
		b := board.MustNew(w, h)
		e.InitializeBoard(b)
		if _, err := e.SerializeExtraState(); err != nil {
			t.Fatalf("%s: SerializeExtraState: %v", key, err)
		}
	}
	if len(Keys()) != 6 {
		t.Fatalf("expected 6 games, got %v", Keys())
	}
}

func TestAliases(t *testing.T) {
	e, err := New(" Connect-Four ")
	if err != nil || e.Key() != "connect4" {
		t.Fatalf("alias not resolved: %v", err)
	}
	if _, err := New("go"); err == nil {
		t.Fatalf("unknown game accepted")
	}
}
