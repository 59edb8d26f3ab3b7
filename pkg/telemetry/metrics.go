package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors exported by the telemetry bus.
// It is instance-scoped rather than registered against the global
// prometheus registry, so a test can construct and discard as many
// Metrics as it needs without a double-registration panic.
type Metrics struct {
	registry *prometheus.Registry

	CallsTotal         *prometheus.CounterVec
	CallLatencySeconds *prometheus.HistogramVec
	EscalationsTotal   *prometheus.CounterVec
	AutoCompactTotal   *prometheus.CounterVec
	RetriesTotal       *prometheus.CounterVec

	listenerMu sync.Mutex
	unregister func()
}

// NewMetrics creates a fresh registry and registers every collector.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		CallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentctl_calls_total",
				Help: "Total number of model calls by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),
		CallLatencySeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentctl_call_latency_seconds",
				Help:    "Call latency in seconds by provider and model",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "model"},
		),
		EscalationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentctl_escalations_total",
				Help: "Total number of non-retriable escalations by error category",
			},
			[]string{"category"},
		),
		AutoCompactTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentctl_auto_compact_decisions_total",
				Help: "Total number of auto-compact decisions by reason",
			},
			[]string{"reason", "should_compact"},
		),
		RetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentctl_retries_total",
				Help: "Total number of retry attempts by provider and model",
			},
			[]string{"provider", "model"},
		),
	}

	m.registry.MustRegister(m.CallsTotal)
	m.registry.MustRegister(m.CallLatencySeconds)
	m.registry.MustRegister(m.EscalationsTotal)
	m.registry.MustRegister(m.AutoCompactTotal)
	m.registry.MustRegister(m.RetriesTotal)

	return m
}

// ObserveCall records one completed call's outcome and latency.
func (m *Metrics) ObserveCall(provider, model string, status Status, latencySeconds float64) {
	m.CallsTotal.WithLabelValues(provider, model, string(status)).Inc()
	m.CallLatencySeconds.WithLabelValues(provider, model).Observe(latencySeconds)
}

// ObserveEscalation records one non-retriable escalation.
func (m *Metrics) ObserveEscalation(category string) {
	m.EscalationsTotal.WithLabelValues(category).Inc()
}

// ObserveAutoCompactDecision records one auto-compact guard decision.
func (m *Metrics) ObserveAutoCompactDecision(reason string, shouldCompact bool) {
	m.AutoCompactTotal.WithLabelValues(reason, boolLabel(shouldCompact)).Inc()
}

// ObserveRetry records one retry attempt.
func (m *Metrics) ObserveRetry(provider, model string) {
	m.RetriesTotal.WithLabelValues(provider, model).Inc()
}

// Start registers a listener on bus that turns every completed-call event
// into an ObserveCall. Calling Start again while already started is a
// no-op: only one listener is ever registered per Metrics.
func (m *Metrics) Start(bus *Bus) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	if m.unregister != nil {
		return
	}
	m.unregister = bus.Register(func(e Event) {
		m.ObserveCall(e.Provider, e.Model, e.Status, float64(e.LatencyMs)/1000)
	})
}

// Stop unregisters the listener added by Start. Calling Stop when not
// started, or calling it twice, is a no-op.
func (m *Metrics) Stop() {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	if m.unregister == nil {
		return
	}
	m.unregister()
	m.unregister = nil
}

// Handler returns an HTTP handler serving this instance's metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
