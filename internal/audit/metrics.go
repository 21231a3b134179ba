package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RecordedTotal *prometheus.CounterVec
	FailedTotal   *prometheus.CounterVec
	DroppedTotal  prometheus.Counter
	SinkErrors    *prometheus.CounterVec
}

// NewMetrics registers the security event log metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RecordedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_security_events_recorded_total",
			Help: "Security events persisted by kind",
		}, []string{"kind"}),
		FailedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_security_events_failed_total",
			Help: "Security events that could not be persisted after retries",
		}, []string{"kind"}),
		DroppedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_security_events_dropped_total",
			Help: "Security events dropped because the async buffer was full",
		}),
		SinkErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_security_event_sink_errors_total",
			Help: "Fan-out sink publish failures by sink",
		}, []string{"sink"}),
	}
}
