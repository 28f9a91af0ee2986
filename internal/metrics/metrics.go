package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the daemon's collectors on a private registry. All methods
// are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	socketEvents      *prometheus.CounterVec
	duplicatesDropped prometheus.Counter
	fetchDuration     prometheus.Histogram
	fetchErrors       prometheus.Counter
	uploads           *prometheus.CounterVec
	connected         prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		socketEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gchat_socket_events_total",
				Help: "Socket events sent and received, by direction and event name.",
			},
			[]string{"direction", "event"},
		),
		duplicatesDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "gchat_duplicate_messages_dropped_total",
			Help: "Messages ignored because their id was already in the room.",
		}),
		fetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gchat_history_fetch_duration_seconds",
			Help:    "Latency of older-history page fetches.",
			Buckets: prometheus.DefBuckets,
		}),
		fetchErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "gchat_history_fetch_errors_total",
			Help: "Older-history page fetches that failed.",
		}),
		uploads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gchat_media_uploads_total",
				Help: "Media uploads by kind and result.",
			},
			[]string{"kind", "result"},
		),
		connected: f.NewGauge(prometheus.GaugeOpts{
			Name: "gchat_socket_connected",
			Help: "1 while the platform socket is connected.",
		}),
	}
}

// SocketEvent counts one socket frame. direction is "in" or "out".
func (m *Metrics) SocketEvent(direction, event string) {
	if m == nil {
		return
	}
	m.socketEvents.WithLabelValues(direction, event).Inc()
}

// DuplicatesDropped counts messages dropped by id de-duplication.
func (m *Metrics) DuplicatesDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.duplicatesDropped.Add(float64(n))
}

// ObserveFetch records one history page fetch.
func (m *Metrics) ObserveFetch(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.fetchDuration.Observe(d.Seconds())
	if err != nil {
		m.fetchErrors.Inc()
	}
}

// Upload counts one finished upload attempt.
func (m *Metrics) Upload(kind, result string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(kind, result).Inc()
}

// SetConnected flips the connection gauge.
func (m *Metrics) SetConnected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.connected.Set(1)
		return
	}
	m.connected.Set(0)
}

// Registry exposes the underlying registry (for tests and custom exporters).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
