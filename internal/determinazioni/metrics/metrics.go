package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks determinazione lifecycle activity.
type Metrics struct {
	Created           prometheus.Counter
	Transitions       *prometheus.CounterVec
	NumberingRetries  prometheus.Counter
	NumberingFailures prometheus.Counter
	CreateDuration    prometheus.Histogram
}

// New registers the lifecycle metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Created: factory.NewCounter(prometheus.CounterOpts{
			Name: "atti_determinazioni_created_total",
			Help: "Total number of determinazioni created",
		}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "atti_determinazioni_transitions_total",
			Help: "Status transitions applied, by source and target status",
		}, []string{"from", "to"}),
		NumberingRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "atti_numbering_retries_total",
			Help: "Creation attempts retried after a numero collision",
		}),
		NumberingFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "atti_numbering_exhausted_total",
			Help: "Creations rejected after exhausting numbering retries",
		}),
		CreateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "atti_determinazioni_create_duration_seconds",
			Help:    "Duration of Create operations including numbering",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncCreated() {
	if m != nil {
		m.Created.Inc()
	}
}

func (m *Metrics) IncTransition(from, to string) {
	if m != nil {
		m.Transitions.WithLabelValues(from, to).Inc()
	}
}

func (m *Metrics) IncNumberingRetry() {
	if m != nil {
		m.NumberingRetries.Inc()
	}
}

func (m *Metrics) IncNumberingExhausted() {
	if m != nil {
		m.NumberingFailures.Inc()
	}
}

// ObserveCreate records the duration of a Create call started at start.
func (m *Metrics) ObserveCreate(start time.Time) {
	if m != nil {
		m.CreateDuration.Observe(time.Since(start).Seconds())
	}
}
