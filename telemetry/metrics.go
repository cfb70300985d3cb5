package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chatwidget"

// Send outcomes
const (
	OutcomeOK                = "ok"
	OutcomeEmpty             = "empty"
	OutcomeMissingCredential = "missing_credential"
	OutcomeFailure           = "failure"
)

// Probe results
const (
	ProbeValid   = "valid"
	ProbeInvalid = "invalid"
	ProbeStale   = "stale"
)

// Metrics holds the service collectors on a private registry. All methods
// are safe on a nil receiver so callers can run without metrics.
type Metrics struct {
	registry   *prometheus.Registry
	sends      *prometheus.CounterVec
	probes     *prometheus.CounterVec
	completion prometheus.Histogram
	sessions   prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with runtime collectors
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		sends: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sends_total",
			Help:      "Messages submitted to the dispatcher, by outcome.",
		}, []string{"outcome"}),
		probes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Credential probes, by result. Stale results were superseded before they landed.",
		}, []string{"result"}),
		completion: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_seconds",
			Help:      "Latency of completion requests to the provider.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		}),
		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Widget page sessions currently held in memory.",
		}),
	}
}

// ObserveSend counts one dispatcher outcome
func (m *Metrics) ObserveSend(outcome string) {
	if m == nil {
		return
	}
	m.sends.WithLabelValues(outcome).Inc()
}

// ObserveProbe counts one probe result
func (m *Metrics) ObserveProbe(result string) {
	if m == nil {
		return
	}
	m.probes.WithLabelValues(result).Inc()
}

// ObserveCompletion records provider latency
func (m *Metrics) ObserveCompletion(d time.Duration) {
	if m == nil {
		return
	}
	m.completion.Observe(d.Seconds())
}

// SetSessions updates the active session gauge
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
