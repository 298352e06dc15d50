package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the patient store client metrics
type Metrics struct {
	StoreRequests *prometheus.CounterVec
	StoreLatency  *prometheus.HistogramVec
	BreakerState  *prometheus.GaugeVec
}

// New creates the metrics and registers them on reg. A nil reg uses a private
// registry so repeated construction in tests never collides.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		StoreRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "requests_total",
			Help:      "Total number of patient store requests by operation and outcome",
		}, []string{"operation", "outcome"}),
		StoreLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "request_duration_seconds",
			Help:      "Duration of patient store requests",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		BreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "breaker_open",
			Help:      "1 while the store circuit breaker is open",
		}, []string{"name"}),
	}
}

// Observe records one finished store request.
func (m *Metrics) Observe(operation, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.StoreRequests.WithLabelValues(operation, outcome).Inc()
	m.StoreLatency.WithLabelValues(operation).Observe(took.Seconds())
}

func (m *Metrics) SetBreakerOpen(name string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.BreakerState.WithLabelValues(name).Set(v)
}
