package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts requests per route and observes end-to-end latency. A nil
// *Metrics is valid and records nothing, which keeps tests quiet.
type Metrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enxaneta_requests_total",
			Help: "Questions processed, labelled by route.",
		}, []string{"route"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enxaneta_errors_total",
			Help: "Failures mapped to a friendly message, labelled by stage.",
		}, []string{"stage"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "enxaneta_request_duration_seconds",
			Help:    "End-to-end question latency.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
}

func (m *Metrics) observeRequest(route string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route).Inc()
	m.duration.Observe(seconds)
}

func (m *Metrics) observeError(stage string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(stage).Inc()
}
