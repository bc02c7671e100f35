package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	ListenAddr  string
	MetricsAddr string

	RedisURL    string
	DatabaseURL string
	SQLitePath  string

	// SnapshotStore selects where suspended rooms are kept: redis, sqlite or memory.
	SnapshotStore string
	SnapshotTTL   time.Duration

	AuthURL        string
	AuthTimeout    time.Duration
	AuthServiceKey string

	Countdown      int
	ReconnectGrace time.Duration

	Locale         string
	MessagesDir    string
	AllowedGames   []string
	OriginPatterns []string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:     ":8080",
		SnapshotTTL:    7 * 24 * time.Hour,
		AuthTimeout:    3 * time.Second,
		Countdown:      3,
		ReconnectGrace: 30 * time.Second,
		Locale:         "en",
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	cfg.MetricsAddr = strings.TrimSpace(os.Getenv("METRICS_ADDR"))

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.SQLitePath = strings.TrimSpace(os.Getenv("SQLITE_PATH"))
	cfg.AuthURL = strings.TrimSpace(os.Getenv("AUTH_URL"))
	cfg.AuthServiceKey = strings.TrimSpace(os.Getenv("AUTH_SERVICE_KEY"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))
	if v := strings.TrimSpace(os.Getenv("LOCALE")); v != "" {
		cfg.Locale = v
	}

	cfg.SnapshotStore = strings.ToLower(strings.TrimSpace(os.Getenv("SNAPSHOT_STORE")))
	if cfg.SnapshotStore == "" {
		switch {
		case cfg.RedisURL != "":
			cfg.SnapshotStore = "redis"
		case cfg.SQLitePath != "":
			cfg.SnapshotStore = "sqlite"
		default:
			cfg.SnapshotStore = "memory"
		}
	}

	if v := strings.TrimSpace(os.Getenv("SNAPSHOT_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SnapshotTTL = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("AUTH_TIMEOUT_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AuthTimeout = time.Duration(n) * time.Millisecond
		}
	}
	if v := strings.TrimSpace(os.Getenv("COUNTDOWN_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Countdown = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("RECONNECT_GRACE_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.ReconnectGrace = time.Duration(n) * time.Second
		}
	}

	cfg.AllowedGames = splitList(os.Getenv("ALLOWED_GAMES"), true)
	cfg.OriginPatterns = splitList(os.Getenv("ALLOWED_ORIGINS"), false)

	switch cfg.SnapshotStore {
	case "redis":
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required for SNAPSHOT_STORE=redis")
		}
	case "sqlite":
		if cfg.SQLitePath == "" {
			return nil, errors.New("SQLITE_PATH is required for SNAPSHOT_STORE=sqlite")
		}
	case "memory":
	default:
		return nil, errors.New("SNAPSHOT_STORE must be one of redis, sqlite, memory")
	}

	return cfg, nil
}

// GameAllowed reports whether the game key may be hosted; an empty allow-list permits all.
func (c *AppConfig) GameAllowed(key string) bool {
	if c == nil || len(c.AllowedGames) == 0 {
		return true
	}
	key = strings.ToLower(strings.TrimSpace(key))
	for _, g := range c.AllowedGames {
		if g == key {
			return true
		}
	}
	return false
}

func splitList(v string, lower bool) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		s := strings.TrimSpace(p)
		if lower {
			s = strings.ToLower(s)
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
