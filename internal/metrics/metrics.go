// Package metrics exposes canvas activity as Prometheus metrics, fed by
// domain.LifecycleHooks.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/intheflow/pkg/domain"
)

const namespace = "intheflow"

// Metrics holds the collectors. Each instance owns its registry.
type Metrics struct {
	registry    *prometheus.Registry
	history     *prometheus.CounterVec
	gestures    *prometheus.CounterVec
	generations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	orphans     prometheus.Counter
}

// New creates the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		history: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_events_total",
			Help:      "History stack movements by type (record, amend, undo, redo).",
		}, []string{"type"}),
		gestures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gestures_total",
			Help:      "Completed interaction gestures by kind.",
		}, []string{"gesture"}),
		generations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Finished content generations by node kind and outcome.",
		}, []string{"kind", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Duration of content generations.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"kind"}),
		orphans: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_orphans_total",
			Help:      "Generation results discarded because their node was removed.",
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnHistory: func(_ context.Context, e *domain.HistoryEvent) {
			m.history.WithLabelValues(string(e.Type)).Inc()
		},
		OnGesture: func(_ context.Context, e *domain.GestureEvent) {
			if e.Type == domain.EventGestureEnd {
				m.gestures.WithLabelValues(e.Gesture).Inc()
			}
		},
		OnGeneration: func(_ context.Context, e *domain.GenerationEvent) {
			if e.Type != domain.EventGenerationEnd {
				return
			}
			outcome := "success"
			switch {
			case e.Orphaned:
				outcome = "orphaned"
				m.orphans.Inc()
			case e.IsError:
				outcome = "error"
			}
			m.generations.WithLabelValues(string(e.Kind), outcome).Inc()
			m.duration.WithLabelValues(string(e.Kind)).Observe(e.Duration.Seconds())
		},
	}
}
