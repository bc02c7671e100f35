// Package gateway binds websocket sessions to rooms.
package gateway

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-rooms/internal/obslog"
	"github.com/park285/cheese-rooms/pkg/roomdto"
)

const outboxSize = 64

// Hub maps session ids to live sockets and implements room.Broadcaster and
// room.Evictor.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*conn
}

func NewHub() *Hub { return &Hub{conns: map[string]*conn{}} }

// Send queues env for sessionID. Unknown sessions are ignored and a full
// outbox drops the frame; every state frame carries the whole view.
func (h *Hub) Send(sessionID string, env roomdto.Envelope) {
	h.mu.RLock()
	c := h.conns[sessionID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	select {
	case c.out <- env:
	default:
		obslog.L().Warn("gateway_outbox_full", zap.String("session_id", sessionID), zap.String("type", env.Type))
	}
}

// Len is the number of registered sockets.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Evict unregisters sessionID and closes its socket once the frames already
// queued for it are written.
func (h *Hub) Evict(sessionID string) {
	h.mu.Lock()
	c := h.conns[sessionID]
	delete(h.conns, sessionID)
	h.mu.Unlock()
	if c == nil {
		return
	}
	obslog.L().Info("gateway_evict", zap.String("session_id", sessionID))
	c.evictOnce.Do(func() { close(c.evicted) })
}

func (h *Hub) add(c *conn) {
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	if cur, ok := h.conns[c.id]; ok && cur == c {
		delete(h.conns, c.id)
	}
	h.mu.Unlock()
	c.stop()
}

type conn struct {
	id        string
	ws        *websocket.Conn
	out       chan roomdto.Envelope
	done      chan struct{}
	evicted   chan struct{}
	stopOnce  sync.Once
	evictOnce sync.Once
}

func newConn(id string, ws *websocket.Conn) *conn {
	return &conn{
		id:      id,
		ws:      ws,
		out:     make(chan roomdto.Envelope, outboxSize),
		done:    make(chan struct{}),
		evicted: make(chan struct{}),
	}
}

func (c *conn) stop() { c.stopOnce.Do(func() { close(c.done) }) }

func (c *conn) writeLoop(ctx context.Context, timeout time.Duration) {
	for {
		select {
		case env := <-c.out:
			if !c.write(ctx, env, timeout) {
				return
			}
		case <-c.evicted:
			for {
				select {
				case env := <-c.out:
					if !c.write(ctx, env, timeout) {
						return
					}
					continue
				default:
				}
				break
			}
			_ = c.ws.Close(websocket.StatusPolicyViolation, roomdto.CodeSessionReplaced)
			return
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *conn) write(ctx context.Context, env roomdto.Envelope, timeout time.Duration) bool {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := wsjson.Write(wctx, c.ws, env); err != nil {
		obslog.L().Debug("gateway_write_error", zap.String("session_id", c.id), zap.Error(err))
		return false
	}
	return true
}
