package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedCatalogRenders(t *testing.T) {
	c := MustDefault()
	got, err := c.Render("errors.illegal_move", map[string]any{"Detail": "no piece on e3"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "Illegal move: no piece on e3" {
		t.Fatalf("unexpected render: %q", got)
	}
}

func TestTextFallsBack(t *testing.T) {
	c := MustDefault()
	if got := c.Text("errors.does_not_exist", nil, "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	// missing template data also falls back
	if got := c.Text("errors.unknown_message", map[string]any{}, "fb"); got != "fb" {
		t.Fatalf("expected fallback on missing key, got %q", got)
	}
	var nilCat *Catalog
	if got := nilCat.Text("errors.room_full", nil, "x"); got != "x" {
		t.Fatalf("nil catalog should fall back, got %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("errors:\n  room_full: \"No seats left.\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New("en", dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("errors.room_full", nil, ""); got != "No seats left." {
		t.Fatalf("override not applied: %q", got)
	}
	if !c.Has("errors.not_your_turn") {
		t.Fatalf("embedded keys should survive overrides")
	}
}

func TestOverrideDirDuplicateKeys(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("errors:\n  room_full: \"x\"\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if _, err := New("en", dir); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestUnknownLocaleUsesDefault(t *testing.T) {
	c, err := New("xx", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !c.Has("errors.room_full") {
		t.Fatalf("default locale keys missing")
	}
}
