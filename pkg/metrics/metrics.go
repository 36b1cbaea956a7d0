// Package metrics exposes Prometheus instrumentation for the twin engine
// and its HTTP surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the collectors for one engine instance. A fresh registry
// per instance keeps parallel engines (and tests) from colliding.
type Metrics struct {
	Registry *prometheus.Registry

	SimulationsTotal   *prometheus.CounterVec
	SimulationSeconds  prometheus.Histogram
	FailedNodes        prometheus.Histogram
	CascadeProbability prometheus.Histogram
	PlansGenerated     prometheus.Counter
	PlansNotApplicable prometheus.Counter
	ActionsExecuted    prometheus.Counter
	FeedTicks          prometheus.Counter
}

// New creates the collector set on its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		SimulationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gridtwin",
			Name:      "cascade_simulations_total",
			Help:      "Cascade simulations run, by disaster type and outcome.",
		}, []string{"disaster_type", "outcome"}),
		SimulationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gridtwin",
			Name:      "cascade_simulation_duration_seconds",
			Help:      "Wall-clock duration of cascade simulations.",
			Buckets:   prometheus.DefBuckets,
		}),
		FailedNodes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gridtwin",
			Name:      "cascade_failed_nodes",
			Help:      "Failed node count per simulation.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}),
		CascadeProbability: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gridtwin",
			Name:      "cascade_failure_probability",
			Help:      "Cascading-failure probability per simulation.",
			Buckets:   []float64{0, 0.1, 0.2, 0.3, 0.5, 0.7, 0.9, 1},
		}),
		PlansGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "gridtwin",
			Name:      "stabilization_plans_generated_total",
			Help:      "Stabilization plans generated.",
		}),
		PlansNotApplicable: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "gridtwin",
			Name:      "stabilization_plans_not_applicable_total",
			Help:      "Plan requests below the stabilization threshold.",
		}),
		ActionsExecuted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "gridtwin",
			Name:      "stabilization_actions_executed_total",
			Help:      "Stabilization actions executed (simulated).",
		}),
		FeedTicks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "gridtwin",
			Name:      "hazard_feed_ticks_total",
			Help:      "Hazard feed monitor evaluations.",
		}),
	}
}
