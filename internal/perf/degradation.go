package perf

import "github.com/driftlab/driftwatch/internal/api"

// Metric names used in degradation reports and alert sources.
const (
	MetricAccuracy  = "accuracy"
	MetricPrecision = "precision"
	MetricRecall    = "recall"
	MetricRocAUC    = "roc_auc"
)

// Degradation holds production/baseline ratios per metric. A ratio is
// api.MetricUndefined when either side is undefined or the baseline value
// is zero; such metrics are excluded from the overall signal.
type Degradation struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	RocAUC    float64 `json:"roc_auc"`

	// Min is the worst defined ratio; it drives alerting. WorstMetric
	// names the metric behind it. Min is api.MetricUndefined when no
	// metric was comparable.
	Min         float64 `json:"min"`
	WorstMetric string  `json:"worst_metric"`
}

// DegradationRatio compares a production record against the baseline
// reference. Ratios are clamped non-negative; a ratio of exactly 1.0 means
// the metric matches baseline.
func DegradationRatio(record, baseline api.PerformanceRecord) Degradation {
	deg := Degradation{
		Accuracy:  ratio(record.Accuracy, baseline.Accuracy),
		Precision: ratio(record.Precision, baseline.Precision),
		Recall:    ratio(record.Recall, baseline.Recall),
		RocAUC:    ratio(record.RocAUC, baseline.RocAUC),
		Min:       api.MetricUndefined,
	}

	for _, m := range []struct {
		name  string
		value float64
	}{
		{MetricAccuracy, deg.Accuracy},
		{MetricPrecision, deg.Precision},
		{MetricRecall, deg.Recall},
		{MetricRocAUC, deg.RocAUC},
	} {
		if m.value == api.MetricUndefined {
			continue
		}
		if deg.Min == api.MetricUndefined || m.value < deg.Min {
			deg.Min = m.value
			deg.WorstMetric = m.name
		}
	}

	return deg
}

func ratio(production, baseline float64) float64 {
	if production == api.MetricUndefined || baseline == api.MetricUndefined || baseline <= 0 {
		return api.MetricUndefined
	}
	r := production / baseline
	if r < 0 {
		r = 0
	}
	return r
}
