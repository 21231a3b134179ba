package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the admission-level Prometheus metrics.
type Metrics struct {
	AdmissionDecisions *prometheus.CounterVec
	RequestsCreated    prometheus.Counter
	RequestsProcessed  *prometheus.CounterVec
	StoreLatency       *prometheus.HistogramVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AdmissionDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_admission_decisions_total",
			Help: "Admission decisions by reason",
		}, []string{"reason"}),
		RequestsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_admission_requests_created_total",
			Help: "Pending admission requests created",
		}),
		RequestsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_admission_requests_processed_total",
			Help: "Admission requests approved or rejected",
		}, []string{"action"}),
		StoreLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gatekeeper_store_operation_duration_seconds",
			Help:    "Latency of config store transactions",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementDecision(reason string) {
	m.AdmissionDecisions.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementRequestsCreated() {
	m.RequestsCreated.Inc()
}

func (m *Metrics) IncrementRequestsProcessed(action string) {
	m.RequestsProcessed.WithLabelValues(action).Inc()
}

func (m *Metrics) ObserveStoreLatency(operation string, start time.Time) {
	m.StoreLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
