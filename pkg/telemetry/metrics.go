// Package telemetry exposes Prometheus metrics for the serving core. The
// admin server publishes them on /metrics; nothing here sits on the request
// hot path beyond counter updates.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors for one server instance. Construct with New
// against a registry; tests use their own registry to avoid duplicate
// registration.
type Metrics struct {
	ConnectionsAccepted prometheus.Counter
	ConnectionsInFlight prometheus.Gauge
	RequestsTotal       *prometheus.CounterVec // by status class: 2xx/3xx/4xx/5xx
	RequestDuration     prometheus.Histogram
	ParseFailures       prometheus.Counter
	ApplicationFailures prometheus.Counter
	WorkerExits         *prometheus.CounterVec // by reason: shutdown/crash
	WorkerRestarts      prometheus.Counter
}

// New registers the gateway collectors on reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ConnectionsAccepted: f.NewCounter(prometheus.CounterOpts{
			Name: "gatewayd_connections_accepted_total",
			Help: "Connections accepted across all workers.",
		}),
		ConnectionsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "gatewayd_connections_in_flight",
			Help: "Connections currently being handled.",
		}),
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gatewayd_requests_total",
			Help: "Completed request/response exchanges by status class.",
		}, []string{"class"}),
		RequestDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gatewayd_request_duration_seconds",
			Help:    "Latency from accept to response written.",
			Buckets: prometheus.DefBuckets,
		}),
		ParseFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "gatewayd_parse_failures_total",
			Help: "Requests rejected by the parser.",
		}),
		ApplicationFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "gatewayd_application_failures_total",
			Help: "Application invocations that errored or panicked.",
		}),
		WorkerExits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gatewayd_worker_exits_total",
			Help: "Worker accept loops that exited, by reason.",
		}, []string{"reason"}),
		WorkerRestarts: f.NewCounter(prometheus.CounterOpts{
			Name: "gatewayd_worker_restarts_total",
			Help: "Workers respawned after an unexpected exit.",
		}),
	}
}

// ObserveRequest records one completed exchange.
func (m *Metrics) ObserveRequest(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(statusClass(status)).Inc()
	m.RequestDuration.Observe(d.Seconds())
}

func statusClass(status string) string {
	if len(status) == 0 {
		return "unknown"
	}
	switch status[0] {
	case '1', '2', '3', '4', '5':
		return string(status[0]) + "xx"
	}
	return "unknown"
}
