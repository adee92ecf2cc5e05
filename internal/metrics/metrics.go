package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the monitor itself: cycle throughput, what the
// detectors found, and what the policy decided.
type Metrics struct {
	CyclesTotal   prometheus.Counter
	CycleFailures prometheus.Counter
	CycleDuration prometheus.Histogram

	AlertsTotal     *prometheus.CounterVec
	DriftedFeatures prometheus.Gauge
	ConceptDrift    prometheus.Gauge
	DegradationMin  prometheus.Gauge
	SchemaWarnings  prometheus.Counter

	RetrainDecisions *prometheus.CounterVec
}

// New creates and registers all metrics on reg. Tests pass a private
// prometheus.NewRegistry to avoid double registration across instances.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "dw_cycles_total",
			Help: "Total number of monitoring cycles started",
		}),
		CycleFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "dw_cycle_failures_total",
			Help: "Number of monitoring cycles aborted before alert emission",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dw_cycle_duration_seconds",
			Help:    "Wall time of one full monitoring cycle",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		AlertsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dw_alerts_total",
				Help: "Alerts raised, by severity and category",
			},
			[]string{"severity", "category"},
		),
		DriftedFeatures: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dw_drifted_features",
			Help: "Number of features flagged as drifted in the last cycle",
		}),
		ConceptDrift: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dw_concept_drift",
			Help: "1 when the last cycle detected concept drift, else 0",
		}),
		DegradationMin: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dw_degradation_ratio_min",
			Help: "Worst production/baseline metric ratio from the last cycle",
		}),
		SchemaWarnings: factory.NewCounter(prometheus.CounterOpts{
			Name: "dw_schema_warnings_total",
			Help: "Data-quality warnings emitted (missing features, short samples)",
		}),
		RetrainDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dw_retrain_decisions_total",
				Help: "Retraining decisions, by outcome",
			},
			[]string{"should_retrain"},
		),
	}
}
