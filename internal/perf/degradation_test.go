package perf

import (
	"math"
	"testing"

	"github.com/driftlab/driftwatch/internal/api"
)

func record(acc, prec, rec, auc float64) api.PerformanceRecord {
	return api.PerformanceRecord{Accuracy: acc, Precision: prec, Recall: rec, RocAUC: auc}
}

func TestDegradationRatio_MatchingBaseline(t *testing.T) {
	baseline := record(0.9, 0.85, 0.8, 0.92)

	deg := DegradationRatio(baseline, baseline)
	for name, ratio := range map[string]float64{
		MetricAccuracy:  deg.Accuracy,
		MetricPrecision: deg.Precision,
		MetricRecall:    deg.Recall,
		MetricRocAUC:    deg.RocAUC,
	} {
		if ratio != 1.0 {
			t.Errorf("%s: got ratio %g, want exactly 1.0", name, ratio)
		}
	}
	if deg.Min != 1.0 {
		t.Errorf("Min: got %g, want 1.0", deg.Min)
	}
}

func TestDegradationRatio_WorstMetricWins(t *testing.T) {
	baseline := record(0.9, 0.85, 0.8, 0.92)
	production := record(0.88, 0.84, 0.4, 0.91)

	deg := DegradationRatio(production, baseline)
	if deg.WorstMetric != MetricRecall {
		t.Errorf("WorstMetric: got %q, want %q", deg.WorstMetric, MetricRecall)
	}
	want := 0.4 / 0.8
	if math.Abs(deg.Min-want) > 1e-12 {
		t.Errorf("Min: got %g, want %g", deg.Min, want)
	}
}

func TestDegradationRatio_UndefinedExcluded(t *testing.T) {
	baseline := record(0.9, 0.85, 0.8, api.MetricUndefined)
	production := record(0.81, 0.85, 0.8, 0.9)

	deg := DegradationRatio(production, baseline)
	if deg.RocAUC != api.MetricUndefined {
		t.Errorf("ROC-AUC ratio over undefined baseline: got %g, want MetricUndefined", deg.RocAUC)
	}
	if deg.WorstMetric != MetricAccuracy {
		t.Errorf("WorstMetric: got %q, want %q", deg.WorstMetric, MetricAccuracy)
	}
}

func TestDegradationRatio_ZeroBaseline(t *testing.T) {
	baseline := record(0, 0, 0, api.MetricUndefined)
	production := record(0.5, 0.5, 0.5, api.MetricUndefined)

	deg := DegradationRatio(production, baseline)
	if deg.Min != api.MetricUndefined {
		t.Errorf("Expected undefined overall signal, got %g", deg.Min)
	}
	if deg.WorstMetric != "" {
		t.Errorf("Expected empty WorstMetric, got %q", deg.WorstMetric)
	}
}
