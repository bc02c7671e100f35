package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("SNAPSHOT_STORE", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SnapshotStore != "memory" {
		t.Fatalf("expected memory store, got %q", cfg.SnapshotStore)
	}
	if cfg.Countdown != 3 || cfg.ReconnectGrace != 30*time.Second {
		t.Fatalf("unexpected timing defaults: countdown=%d grace=%s", cfg.Countdown, cfg.ReconnectGrace)
	}
}

func TestLoadRedisInferred(t *testing.T) {
	t.Setenv("SNAPSHOT_STORE", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("RECONNECT_GRACE_SEC", "5")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SnapshotStore != "redis" {
		t.Fatalf("expected redis store, got %q", cfg.SnapshotStore)
	}
	if cfg.ReconnectGrace != 5*time.Second {
		t.Fatalf("grace not parsed: %s", cfg.ReconnectGrace)
	}
}

func TestLoadRejectsSQLiteWithoutPath(t *testing.T) {
	t.Setenv("SNAPSHOT_STORE", "sqlite")
	t.Setenv("SQLITE_PATH", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for sqlite store without path")
	}
}

func TestGameAllowed(t *testing.T) {
	cfg := &AppConfig{AllowedGames: []string{"chess", "reversi"}}
	if !cfg.GameAllowed("Chess") {
		t.Fatalf("chess should be allowed")
	}
	if cfg.GameAllowed("gomoku") {
		t.Fatalf("gomoku should not be allowed")
	}
	if !(&AppConfig{}).GameAllowed("gomoku") {
		t.Fatalf("empty allow-list should permit everything")
	}
}

func TestLoadLists(t *testing.T) {
	t.Setenv("SNAPSHOT_STORE", "memory")
	t.Setenv("ALLOWED_GAMES", " Chess, ,gomoku")
	t.Setenv("ALLOWED_ORIGINS", "play.example.com, *.Example.org")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.AllowedGames) != 2 || cfg.AllowedGames[0] != "chess" || cfg.AllowedGames[1] != "gomoku" {
		t.Fatalf("allowed games: %v", cfg.AllowedGames)
	}
	if len(cfg.OriginPatterns) != 2 || cfg.OriginPatterns[1] != "*.Example.org" {
		t.Fatalf("origins: %v", cfg.OriginPatterns)
	}
}
