// Package metrics exposes Prometheus collectors for the chat gateway.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps the Prometheus collectors used by the gateway.
type Metrics struct {
	ConnectionsActive prometheus.Gauge
	MessagesTotal     prometheus.Counter
	BroadcastsTotal   prometheus.Counter
	HandshakeErrors   prometheus.Counter
	EvictionsTotal    prometheus.Counter
	UnreadNotices     prometheus.Counter
}

// New creates the gateway metrics collectors.
func New() *Metrics {
	return &Metrics{
		ConnectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "kuttalk_ws_connections_active",
			Help: "Number of live WebSocket connections",
		}),
		MessagesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kuttalk_chat_messages_total",
			Help: "Total chat messages persisted and fanned out",
		}),
		BroadcastsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kuttalk_ws_broadcast_frames_total",
			Help: "Total frames written by the broadcast pipeline",
		}),
		HandshakeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kuttalk_ws_handshake_errors_total",
			Help: "Total failed WebSocket upgrade attempts",
		}),
		EvictionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kuttalk_ws_evictions_total",
			Help: "Total clients evicted by the keep-alive timer",
		}),
		UnreadNotices: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kuttalk_chat_unread_notices_total",
			Help: "Total per-recipient unread envelopes sent",
		}),
	}
}

// Handler returns an HTTP handler exposing the Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
