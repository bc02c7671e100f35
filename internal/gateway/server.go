package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-rooms/internal/auth"
	"github.com/park285/cheese-rooms/internal/domain"
	"github.com/park285/cheese-rooms/internal/metrics"
	"github.com/park285/cheese-rooms/internal/msgcat"
	"github.com/park285/cheese-rooms/internal/obslog"
	"github.com/park285/cheese-rooms/internal/room"
	"github.com/park285/cheese-rooms/pkg/roomdto"
)

// SuspendedLister lists suspended games an identity can restore.
type SuspendedLister interface {
	SuspendedFor(ctx context.Context, identity string) ([]string, error)
}

// HistoryLister returns the finished games an identity played, newest first.
type HistoryLister interface {
	RecentByIdentity(ctx context.Context, identity string, limit int) ([]domain.GameRecord, error)
}

type Config struct {
	Hub       *Hub
	Rooms     *room.Manager
	Verifier  auth.Verifier
	Suspended SuspendedLister
	History   HistoryLister
	Messages  *msgcat.Catalog
	Metrics   *metrics.Metrics

	OriginPatterns []string
	JoinTimeout    time.Duration
	WriteTimeout   time.Duration
}

type Server struct {
	cfg Config
	log *zap.Logger
}

func NewServer(cfg Config) *Server {
	if cfg.Hub == nil {
		cfg.Hub = NewHub()
	}
	if cfg.Verifier == nil {
		cfg.Verifier = auth.StaticVerifier{}
	}
	if cfg.Messages == nil {
		cfg.Messages = msgcat.MustDefault()
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &Server{cfg: cfg, log: obslog.L().Named("gateway")}
}

// Handler serves /ws, /suspended, /history, /healthz and, with metrics
// configured, /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/suspended", s.serveSuspended)
	mux.HandleFunc("/history", s.serveHistory)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.cfg.Metrics != nil {
		mux.Handle("/metrics", s.cfg.Metrics.Handler())
	}
	return mux
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  s.cfg.OriginPatterns,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		s.log.Debug("gateway_accept_error", zap.Error(err))
		return
	}
	ctx := r.Context()

	jctx, cancel := context.WithTimeout(ctx, s.cfg.JoinTimeout)
	var req roomdto.JoinRequest
	err = wsjson.Read(jctx, ws, &req)
	cancel()
	if err != nil {
		s.fail(ctx, ws, roomdto.DomainError{Code: roomdto.CodeBadPayload}, websocket.StatusPolicyViolation)
		return
	}

	ident, err := s.cfg.Verifier.Verify(ctx, req.Token)
	if err != nil {
		s.log.Info("gateway_auth_rejected", zap.Error(err))
		s.fail(ctx, ws, roomdto.DomainError{Code: roomdto.CodeUnauthorized}, websocket.StatusPolicyViolation)
		return
	}

	c := newConn(uuid.NewString(), ws)
	s.cfg.Hub.add(c)
	defer s.cfg.Hub.remove(c)
	go c.writeLoop(ctx, s.cfg.WriteTimeout)

	rm, err := s.cfg.Rooms.Join(ctx, room.JoinTarget{
		RoomID:    req.RoomID,
		GameType:  req.GameType,
		RestoreID: req.RestoreID,
	}, room.Session{
		ID:        c.id,
		Profile:   room.Profile{Identity: ident.Identity, DisplayName: ident.DisplayName, AvatarURL: ident.AvatarURL},
		Spectator: req.Spectator,
	})
	if err != nil {
		c.stop()
		s.fail(ctx, ws, err, websocket.StatusPolicyViolation)
		return
	}
	s.log.Info("gateway_accept",
		zap.String("session_id", c.id),
		zap.String("identity", ident.Identity),
		zap.String("room_id", rm.ID()),
		zap.Bool("spectator", req.Spectator),
	)
	if env, err := roomdto.NewEnvelope(roomdto.TypeJoined, roomdto.Joined{
		RoomID:    rm.ID(),
		SessionID: c.id,
		Identity:  ident.Identity,
		GameType:  rm.GameType(),
		Spectator: req.Spectator,
	}); err == nil {
		s.cfg.Hub.Send(c.id, env)
	}

	consented := s.readLoop(ctx, ws, c, rm)
	rm.Leave(c.id, consented)
	s.log.Info("gateway_close", zap.String("session_id", c.id), zap.Bool("consented", consented))
	if consented {
		_ = ws.Close(websocket.StatusNormalClosure, "bye")
	} else {
		_ = ws.CloseNow()
	}
}

// readLoop forwards frames until the socket ends. It reports true for a
// normal closure or an explicit leave frame.
func (s *Server) readLoop(ctx context.Context, ws *websocket.Conn, c *conn, rm *room.Room) bool {
	for {
		var env roomdto.Envelope
		if err := wsjson.Read(ctx, ws, &env); err != nil {
			return websocket.CloseStatus(err) == websocket.StatusNormalClosure
		}
		if env.Type == roomdto.TypeLeave {
			return true
		}
		rm.Handle(c.id, env)
	}
}

// fail writes one error frame and closes the socket.
func (s *Server) fail(ctx context.Context, ws *websocket.Conn, err error, code websocket.StatusCode) {
	var de roomdto.DomainError
	if !errors.As(err, &de) {
		s.log.Warn("gateway_join_error", zap.Error(err))
		de = roomdto.DomainError{Code: roomdto.CodeRoomClosed}
	}
	msg := s.cfg.Messages.Text("errors."+de.Code, map[string]string{"Detail": de.Detail, "Type": de.Detail}, de.Error())
	if env, eerr := roomdto.NewEnvelope(roomdto.TypeError, roomdto.ErrorMessage{Code: de.Code, Message: msg}); eerr == nil {
		wctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
		_ = wsjson.Write(wctx, ws, env)
		cancel()
	}
	_ = ws.Close(code, de.Code)
}

type suspendedResponse struct {
	Identity string   `json:"identity"`
	Rooms    []string `json:"rooms"`
}

func (s *Server) serveSuspended(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Suspended == nil {
		http.Error(w, "snapshots disabled", http.StatusNotFound)
		return
	}
	ident, ok := s.identify(w, r)
	if !ok {
		return
	}
	ids, err := s.cfg.Suspended.SuspendedFor(r.Context(), ident.Identity)
	if err != nil {
		s.log.Error("gateway_suspended_error", zap.String("identity", ident.Identity), zap.Error(err))
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(suspendedResponse{Identity: ident.Identity, Rooms: ids})
}

// identify verifies the bearer token (or ?token) and writes 401 on failure.
func (s *Server) identify(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	ident, err := s.cfg.Verifier.Verify(r.Context(), token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return auth.Identity{}, false
	}
	return ident, true
}

type historyResponse struct {
	Identity string                `json:"identity"`
	Games    []roomdto.GameSummary `json:"games"`
}

func (s *Server) serveHistory(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		http.Error(w, "history disabled", http.StatusNotFound)
		return
	}
	ident, ok := s.identify(w, r)
	if !ok {
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	recs, err := s.cfg.History.RecentByIdentity(r.Context(), ident.Identity, limit)
	if err != nil {
		s.log.Error("gateway_history_error", zap.String("identity", ident.Identity), zap.Error(err))
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}
	games := make([]roomdto.GameSummary, 0, len(recs))
	for _, rec := range recs {
		games = append(games, summarize(rec))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(historyResponse{Identity: ident.Identity, Games: games})
}

func summarize(rec domain.GameRecord) roomdto.GameSummary {
	players := make([]roomdto.PlayerSummary, 0, len(rec.Players))
	for _, p := range rec.Players {
		players = append(players, roomdto.PlayerSummary{Identity: p.Identity, DisplayName: p.DisplayName, Score: p.Score, Captured: p.Captured})
	}
	return roomdto.GameSummary{
		RoomID:         rec.RoomID,
		GameType:       rec.GameType,
		WinnerIdentity: rec.WinnerIdentity,
		Reason:         rec.Reason,
		Players:        players,
		MoveCount:      len(rec.Moves),
		PGN:            rec.PGN,
		StartedAt:      rec.StartedAt,
		EndedAt:        rec.EndedAt,
		DurationMs:     rec.Duration.Milliseconds(),
	}
}
