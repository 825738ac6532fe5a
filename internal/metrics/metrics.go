package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatzilla_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatzilla_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatzilla_messages_sent_total",
			Help: "Total messages persisted",
		},
	)

	ReadReceipts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatzilla_read_receipts_total",
			Help: "Total messages marked read",
		},
	)

	PushFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatzilla_push_failures_total",
			Help: "Best-effort realtime pushes that failed",
		},
		[]string{"event"},
	)

	SignalsRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatzilla_signals_relayed_total",
			Help: "Call signaling messages relayed",
		},
		[]string{"kind"}, // "offer", "answer", "ice", "end"
	)

	// Realtime metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatzilla_ws_connections",
			Help: "Currently open websocket connections",
		},
	)

	OnlineUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatzilla_online_users",
			Help: "Users with at least one live connection",
		},
	)

	PresenceTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatzilla_presence_transitions_total",
			Help: "Online/offline presence transitions",
		},
		[]string{"direction"}, // "online" or "offline"
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatzilla_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)
)
