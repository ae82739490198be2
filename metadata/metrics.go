package metadata

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records retrieval outcomes. A nil *Metrics records nothing.
type Metrics struct {
	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	stagedBytes   prometheus.Counter
	stateTotal    *prometheus.CounterVec
}

// NewMetrics registers the retrieval metrics with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		fetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "odata_metadata_fetch_total",
				Help: "Total number of metadata retrieval attempts by result and dialect",
			},
			[]string{"result", "dialect", "credential"},
		),
		fetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "odata_metadata_fetch_duration_seconds",
				Help:    "Duration of metadata retrieval attempts in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 100},
			},
			[]string{"result"},
		),
		stagedBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "odata_metadata_staged_bytes_total",
				Help: "Bytes written to staged metadata documents",
			},
		),
		stateTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "odata_metadata_state_transitions_total",
				Help: "Retrieval state machine transitions by target state",
			},
			[]string{"state"},
		),
	}
}

func (m *Metrics) observeAttempt(result string, version Version, credentialKind string, d time.Duration) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(result, version.String(), credentialKind).Inc()
	m.fetchDuration.WithLabelValues(result).Observe(d.Seconds())
}

func (m *Metrics) observeStaged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.stagedBytes.Add(float64(n))
}

func (m *Metrics) observeState(s State) {
	if m == nil {
		return
	}
	m.stateTotal.WithLabelValues(s.String()).Inc()
}
