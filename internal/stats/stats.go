package stats

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type StatsProvider interface {
	ConnectionOpened()
	ConnectionClosed()
	EventReceived(event string)
	EventDelivered(event string)
	MessageStored(kind string)
}

// Stats exposes realtime counters on a prometheus registry.
type Stats struct {
	registry          *prometheus.Registry
	activeConnections prometheus.Gauge
	eventsReceived    *prometheus.CounterVec
	eventsDelivered   *prometheus.CounterVec
	messagesStored    *prometheus.CounterVec
}

func NewStats() *Stats {
	s := &Stats{
		registry: prometheus.NewRegistry(),
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dmchat_ws_active_connections",
			Help: "Number of active websocket connections.",
		}),
		eventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dmchat_ws_events_received_total",
			Help: "Total number of inbound websocket events by type.",
		}, []string{"event"}),
		eventsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dmchat_ws_events_delivered_total",
			Help: "Total number of events delivered to connections by type.",
		}, []string{"event"}),
		messagesStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dmchat_messages_stored_total",
			Help: "Total number of messages persisted by kind.",
		}, []string{"kind"}),
	}

	s.registry.MustRegister(
		s.activeConnections,
		s.eventsReceived,
		s.eventsDelivered,
		s.messagesStored,
	)

	return s
}

// Handler serves the registry in prometheus exposition format.
func (s *Stats) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

func (s *Stats) ConnectionOpened() {
	s.activeConnections.Inc()
}

func (s *Stats) ConnectionClosed() {
	s.activeConnections.Dec()
}

func (s *Stats) EventReceived(event string) {
	s.eventsReceived.WithLabelValues(event).Inc()
}

func (s *Stats) EventDelivered(event string) {
	s.eventsDelivered.WithLabelValues(event).Inc()
}

func (s *Stats) MessageStored(kind string) {
	s.messagesStored.WithLabelValues(kind).Inc()
}
