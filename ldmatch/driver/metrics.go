package driver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts what the driver produces
type Metrics struct {
	Bindings *prometheus.CounterVec
	Faults   *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the driver metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Bindings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ldmatch_bindings_total",
			Help: "The total number of bindings delivered to match actions.",
		}, []string{"match"}),

		Faults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ldmatch_faults_total",
			Help: "The total number of enumeration faults observed.",
		}, []string{"match"}),

		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ldmatch_match_duration_seconds",
			Help:    "Time spent compiling and enumerating one match registration.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"match"}),
	}
}
