package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cruciblehq/compd/internal/metadata"
	"github.com/cruciblehq/compd/internal/protocol"
)

// Namespace of every metric the server exports.
const metricsNamespace = "compd"

// Prometheus metrics of one server.
type Metrics struct {
	connections *prometheus.CounterVec // Finished connections by completion reason.
	responses   *prometheus.CounterVec // Responses written by type.
	inflight    prometheus.Gauge       // Connections being served.
	state       prometheus.Gauge       // Current dispatcher state.
	gcHints     prometheus.Counter     // Collections requested while idle.
}

// Creates the server metrics and registers them with reg.
//
// A nil reg creates unregistered metrics. Registering twice with the same
// registry panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		connections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "connections_total",
			Help:      "Connections served, by completion reason.",
		}, []string{"reason"}),

		responses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "responses_total",
			Help:      "Responses written to clients, by type.",
		}, []string{"type"}),

		inflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "inflight_connections",
			Help:      "Connections currently being served.",
		}),

		state: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "server_state",
			Help:      "Dispatcher state: 0 running, 1 shutting down, 2 completed.",
		}),

		gcHints: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "gc_hints_total",
			Help:      "Garbage collections requested while idle.",
		}),
	}
}

// Exports the counters of cache through reg.
func RegisterCacheMetrics(reg prometheus.Registerer, cache *metadata.Cache) {
	factory := promauto.With(reg)

	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "metadata_cache",
		Name:      "hits_total",
		Help:      "Metadata lookups served from the cache.",
	}, func() float64 { return float64(cache.Stats().Hits) })

	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "metadata_cache",
		Name:      "misses_total",
		Help:      "Metadata lookups that parsed the file.",
	}, func() float64 { return float64(cache.Stats().Misses) })

	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "metadata_cache",
		Name:      "evictions_total",
		Help:      "Metadata entries evicted to make room.",
	}, func() float64 { return float64(cache.Stats().Evictions) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "metadata_cache",
		Name:      "entries",
		Help:      "Metadata entries currently cached.",
	}, func() float64 { return float64(cache.Stats().Entries) })
}

func (m *Metrics) completed(reason CompletionReason) {
	m.connections.WithLabelValues(reason.String()).Inc()
}

func (m *Metrics) responded(t protocol.ResponseType) {
	m.responses.WithLabelValues(t.String()).Inc()
}

func (m *Metrics) setInflight(n int) {
	m.inflight.Set(float64(n))
}

func (m *Metrics) setState(s State) {
	m.state.Set(float64(s))
}

func (m *Metrics) gcHinted() {
	m.gcHints.Inc()
}
