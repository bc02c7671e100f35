package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-rooms/internal/auth"
	appcfg "github.com/park285/cheese-rooms/internal/config"
	"github.com/park285/cheese-rooms/internal/gateway"
	"github.com/park285/cheese-rooms/internal/metrics"
	"github.com/park285/cheese-rooms/internal/msgcat"
	"github.com/park285/cheese-rooms/internal/obslog"
	"github.com/park285/cheese-rooms/internal/persist"
	"github.com/park285/cheese-rooms/internal/room"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	msgs, err := msgcat.New(cfg.Locale, cfg.MessagesDir)
	if err != nil {
		logger.Fatal("messages_load_error", zap.Error(err))
	}
	m := metrics.New("roomd")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snaps, closeSnaps, err := openSnapshotStore(ctx, cfg)
	if err != nil {
		logger.Fatal("snapshot_store_error", zap.String("store", cfg.SnapshotStore), zap.Error(err))
	}
	defer closeSnaps()

	var results persist.ResultSink
	var history gateway.HistoryLister
	if cfg.DatabaseURL != "" {
		repo, err := persist.NewRepository(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("result_repo_error", zap.Error(err))
		}
		defer func() { _ = repo.Close() }()
		results = repo
		history = repo
	}
	adapter := persist.NewAdapter(snaps, results, m)

	hub := gateway.NewHub()
	rooms := room.NewManager(room.Options{
		Countdown:   cfg.Countdown,
		Grace:       cfg.ReconnectGrace,
		Persistence: adapter,
		Broadcaster: hub,
		Messages:    msgs,
		Metrics:     m,
	}, cfg.GameAllowed)

	srv := gateway.NewServer(gateway.Config{
		Hub:            hub,
		Rooms:          rooms,
		Verifier:       newVerifier(cfg),
		Suspended:      adapter,
		History:        history,
		Messages:       msgs,
		Metrics:        m,
		OriginPatterns: cfg.OriginPatterns,
	})

	servers := []*http.Server{{Addr: cfg.ListenAddr, Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}}
	if cfg.MetricsAddr != "" {
		servers = append(servers, &http.Server{Addr: cfg.MetricsAddr, Handler: m.Handler(), ReadHeaderTimeout: 10 * time.Second})
	}
	errCh := make(chan error, len(servers))
	for _, hs := range servers {
		go func(hs *http.Server) {
			logger.Info("http_listen", zap.String("addr", hs.Addr))
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(hs)
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown_signal")
	case err := <-errCh:
		logger.Error("http_serve_error", zap.Error(err))
	}

	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	for _, hs := range servers {
		_ = hs.Shutdown(sctx)
	}
	if err := rooms.Shutdown(sctx); err != nil {
		logger.Warn("room_shutdown_error", zap.Error(err))
	}
	logger.Info("shutdown_complete", zap.Int("sockets", hub.Len()))
}

func newVerifier(cfg *appcfg.AppConfig) auth.Verifier {
	if cfg.AuthURL == "" {
		obslog.L().Warn("auth_static", zap.String("hint", "AUTH_URL not set; tokens are trusted as identities"))
		return auth.StaticVerifier{}
	}
	headers := func() map[string]string {
		h := map[string]string{}
		if cfg.AuthServiceKey != "" {
			h["X-Service-Key"] = cfg.AuthServiceKey
		}
		return h
	}
	return auth.NewHTTPVerifier(cfg.AuthURL,
		auth.WithHeaderProvider(headers),
		auth.WithTimeout(cfg.AuthTimeout),
		auth.WithRetry(2),
	)
}

// openSnapshotStore returns the configured store and its cleanup.
func openSnapshotStore(ctx context.Context, cfg *appcfg.AppConfig) (persist.SnapshotStore, func(), error) {
	switch cfg.SnapshotStore {
	case "redis":
		rdb, err := persist.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return persist.NewRedisStore(rdb, cfg.SnapshotTTL), func() { _ = rdb.Close() }, nil
	case "sqlite":
		st, err := persist.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		pctx, cancel := context.WithCancel(ctx)
		go pruneLoop(pctx, st, cfg.SnapshotTTL)
		return st, func() {
			cancel()
			_ = st.Close()
		}, nil
	default:
		return persist.NewMemoryStore(), func() {}, nil
	}
}

// pruneLoop drops sqlite snapshots older than ttl; redis expires its own keys.
func pruneLoop(ctx context.Context, st *persist.SQLiteStore, ttl time.Duration) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		n, err := st.Prune(ctx, time.Now().Add(-ttl))
		if err != nil {
			obslog.L().Warn("snapshot_prune_error", zap.Error(err))
		} else if n > 0 {
			obslog.L().Info("snapshot_prune", zap.Int64("removed", n))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
