package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Message outcomes used as the "outcome" label
const (
	OutcomeAccepted    = "accepted"
	OutcomeOutOfRange  = "out_of_range"
	OutcomeNonPosition = "non_position"
	OutcomeMalformed   = "malformed"
	OutcomeServerError = "server_error"
)

var collectorStates = []string{"idle", "connecting", "subscribed", "collecting", "closed", "failed"}

// Metrics collects run metrics on a private registry
type Metrics struct {
	registry *prometheus.Registry

	messages       *prometheus.CounterVec
	reconnects     prometheus.Counter
	vessels        prometheus.Gauge
	collectorState *prometheus.GaugeVec
	presence       *prometheus.CounterVec
	presenceLat    prometheus.Histogram
	httpRequests   *prometheus.CounterVec

	startTime time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vessel_proximity_messages_total",
			Help: "Inbound AIS stream messages by processing outcome.",
		}, []string{"outcome"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vessel_proximity_reconnects_total",
			Help: "Reconnect attempts made to the AIS stream.",
		}),
		vessels: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vessel_proximity_tracked_vessels",
			Help: "Distinct vessels currently within the radius.",
		}),
		collectorState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vessel_proximity_collector_state",
			Help: "Current live collector state (1 for the active state).",
		}, []string{"state"}),
		presence: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vessel_proximity_presence_lookups_total",
			Help: "Presence lookups by resulting status.",
		}, []string{"status"}),
		presenceLat: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vessel_proximity_presence_latency_seconds",
			Help:    "Latency of presence lookup requests.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vessel_proximity_http_requests_total",
			Help: "Status endpoint requests by result.",
		}, []string{"result"}),
		startTime: time.Now(),
	}

	m.registry.MustRegister(
		m.messages,
		m.reconnects,
		m.vessels,
		m.collectorState,
		m.presence,
		m.presenceLat,
		m.httpRequests,
		collectors.NewGoCollector(),
	)

	m.SetCollectorState("idle")
	return m
}

func (m *Metrics) IncrementMessages(outcome string) {
	m.messages.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementReconnects() {
	m.reconnects.Inc()
}

func (m *Metrics) SetTrackedVessels(n int) {
	m.vessels.Set(float64(n))
}

// SetCollectorState marks state as the active collector state
func (m *Metrics) SetCollectorState(state string) {
	for _, s := range collectorStates {
		v := 0.0
		if s == state {
			v = 1
		}
		m.collectorState.WithLabelValues(s).Set(v)
	}
}

func (m *Metrics) RecordPresenceLookup(status string, latency time.Duration) {
	m.presence.WithLabelValues(status).Inc()
	m.presenceLat.Observe(latency.Seconds())
}

func (m *Metrics) IncrementHTTPRequests() {
	m.httpRequests.WithLabelValues("ok").Inc()
}

func (m *Metrics) IncrementHTTPErrors() {
	m.httpRequests.WithLabelValues("error").Inc()
}

func (m *Metrics) GetUptime() time.Duration {
	return time.Since(m.startTime)
}

// Registry exposes the underlying registry for tests and custom handlers
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
