package observability

import (
	"context"

	"github.com/aretw0/resist/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors fed by the engine hooks.
type Metrics struct {
	started  *prometheus.CounterVec
	ended    *prometheus.CounterVec
	rejected prometheus.Counter
	duration *prometheus.HistogramVec
	active   prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		started: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resist_attempts_started_total",
				Help: "Total number of escape attempts started",
			},
			[]string{"contest"},
		),
		ended: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resist_attempts_ended_total",
				Help: "Total number of escape attempts ended",
			},
			[]string{"outcome", "release"},
		),
		rejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "resist_attempts_rejected_total",
				Help: "Total number of escape attempts refused because removal was blocked",
			},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "resist_attempt_duration_seconds",
				Help:    "Time between the start and the end of escape attempts",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"outcome"},
		),
		active: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "resist_attempts_active",
				Help: "Number of escape attempts in flight",
			},
		),
	}

	for _, c := range []prometheus.Collector{m.started, m.ended, m.rejected, m.duration, m.active} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnAttemptStart: func(ctx context.Context, e *domain.AttemptEvent) {
			m.started.WithLabelValues(string(e.Contest)).Inc()
			m.active.Inc()
		},
		OnAttemptEnd: func(ctx context.Context, e *domain.AttemptEvent) {
			m.ended.WithLabelValues(string(e.Outcome), string(e.Release)).Inc()
			m.duration.WithLabelValues(string(e.Outcome)).Observe(e.Duration.Seconds())
			m.active.Dec()
		},
		OnRejected: func(ctx context.Context, e *domain.RejectionEvent) {
			m.rejected.Inc()
		},
	}
}
