package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"gatekeeper/internal/ratelimit/models"
)

type Metrics struct {
	ChecksTotal      *prometheus.CounterVec
	DenialsTotal     *prometheus.CounterVec
	StoreErrorsTotal prometheus.Counter
}

// New registers the rate limiter metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ChecksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_ratelimit_checks_total",
			Help: "Total number of rate limit checks by class",
		}, []string{"class"}),
		DenialsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_ratelimit_denials_total",
			Help: "Total number of calls refused by the rate limiter by class",
		}, []string{"class"}),
		StoreErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_ratelimit_store_errors_total",
			Help: "Total number of bucket store failures",
		}),
	}
}

func (m *Metrics) RecordCheck(class models.LimitClass) {
	m.ChecksTotal.WithLabelValues(string(class)).Inc()
}

func (m *Metrics) RecordDenial(class models.LimitClass) {
	m.DenialsTotal.WithLabelValues(string(class)).Inc()
}

func (m *Metrics) RecordStoreError() {
	m.StoreErrorsTotal.Inc()
}
