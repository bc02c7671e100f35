package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the room server collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	ActiveRooms    prometheus.Gauge
	LiveSessions   prometheus.Gauge
	Moves          *prometheus.CounterVec
	GamesFinished  *prometheus.CounterVec
	Reconnects     *prometheus.CounterVec
	Snapshots      *prometheus.CounterVec
	MessageLatency prometheus.Histogram
}

func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_active",
			Help:      "Number of live rooms",
		}),
		LiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_live",
			Help:      "Number of connected sessions, players and spectators",
		}),
		Moves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_total",
			Help:      "Accepted moves by game type",
		}, []string{"game"}),
		GamesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Finished games by game type and reason",
		}, []string{"game", "reason"}),
		Reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_total",
			Help:      "Grace windows by outcome (resumed, expired)",
		}, []string{"outcome"}),
		Snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Snapshot store operations (load_hit, load_miss, save, delete, error)",
		}, []string{"op"}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Room message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
	m.registry.MustRegister(
		m.ActiveRooms,
		m.LiveSessions,
		m.Moves,
		m.GamesFinished,
		m.Reconnects,
		m.Snapshots,
		m.MessageLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RoomOpened() {
	if m != nil {
		m.ActiveRooms.Inc()
	}
}

func (m *Metrics) RoomClosed() {
	if m != nil {
		m.ActiveRooms.Dec()
	}
}

func (m *Metrics) SessionConnected() {
	if m != nil {
		m.LiveSessions.Inc()
	}
}

func (m *Metrics) SessionDisconnected() {
	if m != nil {
		m.LiveSessions.Dec()
	}
}

func (m *Metrics) MoveAccepted(game string) {
	if m != nil {
		m.Moves.WithLabelValues(game).Inc()
	}
}

func (m *Metrics) GameFinished(game, reason string) {
	if m != nil {
		m.GamesFinished.WithLabelValues(game, reason).Inc()
	}
}

func (m *Metrics) Reconnect(outcome string) {
	if m != nil {
		m.Reconnects.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Snapshot(op string) {
	if m != nil {
		m.Snapshots.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) ObserveMessage(d time.Duration) {
	if m != nil {
		m.MessageLatency.Observe(d.Seconds())
	}
}
