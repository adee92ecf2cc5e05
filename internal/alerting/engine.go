package alerting

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/driftlab/driftwatch/internal/api"
	"github.com/driftlab/driftwatch/internal/config"
	"github.com/driftlab/driftwatch/internal/perf"
)

// Engine converts one cycle's verdicts and performance record into alerts.
// Evaluation is rule-by-rule and independent: one cycle may raise several
// alerts, and a cycle with everything inside thresholds raises none. The
// engine never touches the alert log; persisting its output is the
// pipeline's commit step.
type Engine struct {
	logger *zap.Logger
}

func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// alertIDSpace namespaces name-based alert IDs.
var alertIDSpace = uuid.MustParse("3f2c8a4e-1d5b-4c7a-9e6f-2b8d4a0c1e53")

// alertID derives the alert ID from the cycle timestamp, category and
// source, so re-evaluating identical inputs produces byte-identical alerts.
// At most one alert per (category, source) exists within a cycle.
func alertID(now time.Time, category api.Category, source string) string {
	name := now.UTC().Format(time.RFC3339Nano) + "/" + string(category) + "/" + source
	return uuid.NewSHA1(alertIDSpace, []byte(name)).String()
}

// Evaluate applies the alerting rules. All returned alerts share the same
// generation timestamp. Data-drift alerts keep the verdict order (ascending
// p-value), so the most significant drift is always first in the cycle's
// alert block.
func (e *Engine) Evaluate(
	dataVerdicts []api.DriftVerdict,
	conceptVerdict *api.DriftVerdict,
	record *api.PerformanceRecord,
	baseline api.PerformanceRecord,
	cfg config.Config,
	now time.Time,
) []api.Alert {
	alerts := make([]api.Alert, 0, len(dataVerdicts)+2)

	for _, v := range dataVerdicts {
		if !v.Drifted {
			continue
		}
		severity := api.SeverityWarning
		// An order of magnitude below the significance level signals
		// strong drift.
		if v.PValue < cfg.PValueThreshold/10 {
			severity = api.SeverityCritical
		}
		alerts = append(alerts, api.Alert{
			ID:        alertID(now, api.CategoryDataDrift, v.Feature),
			Timestamp: now,
			Severity:  severity,
			Category:  api.CategoryDataDrift,
			Source:    v.Feature,
			Message: fmt.Sprintf("data drift detected in feature %q (KS=%.4f, p=%.6g)",
				v.Feature, v.Statistic, v.PValue),
		})
	}

	if conceptVerdict != nil && conceptVerdict.Drifted {
		severity := api.SeverityWarning
		if math.Abs(conceptVerdict.MeanShift) > cfg.MeanShiftThreshold {
			severity = api.SeverityCritical
		}
		alerts = append(alerts, api.Alert{
			ID:        alertID(now, api.CategoryConceptDrift, api.ConceptFeature),
			Timestamp: now,
			Severity:  severity,
			Category:  api.CategoryConceptDrift,
			Source:    api.ConceptFeature,
			Message: fmt.Sprintf("concept drift detected in prediction distribution (KS=%.4f, p=%.6g, mean shift %+.4f)",
				conceptVerdict.Statistic, conceptVerdict.PValue, conceptVerdict.MeanShift),
		})
	}

	if record != nil {
		deg := perf.DegradationRatio(*record, baseline)
		criticalBelow := cfg.DegradationThreshold - cfg.CriticalDegradationDelta
		switch {
		case deg.Min == api.MetricUndefined:
			e.logger.Warn("degradation signal undefined, skipping performance rules")
		case deg.Min < criticalBelow:
			alerts = append(alerts, degradationAlert(api.SeverityCritical, deg, criticalBelow, now))
		case deg.Min < cfg.DegradationThreshold:
			alerts = append(alerts, degradationAlert(api.SeverityWarning, deg, cfg.DegradationThreshold, now))
		}
	}

	return alerts
}

func degradationAlert(severity api.Severity, deg perf.Degradation, threshold float64, now time.Time) api.Alert {
	return api.Alert{
		ID:        alertID(now, api.CategoryPerformance, deg.WorstMetric),
		Timestamp: now,
		Severity:  severity,
		Category:  api.CategoryPerformance,
		Source:    deg.WorstMetric,
		Message: fmt.Sprintf("performance degradation: %s at %.3f of baseline (threshold %.2f)",
			deg.WorstMetric, deg.Min, threshold),
	}
}
