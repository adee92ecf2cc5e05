package api

import (
	"fmt"
	"math"
	"time"
)

// Severity classifies how urgent an alert is.
type Severity string

const (
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Category identifies which monitored condition raised an alert.
type Category string

const (
	CategoryDataDrift    Category = "DATA_DRIFT"
	CategoryConceptDrift Category = "CONCEPT_DRIFT"
	CategoryPerformance  Category = "PERFORMANCE_DEGRADATION"
)

// ConceptFeature is the reserved feature name carried by the single
// prediction-level drift verdict of a monitoring cycle.
const ConceptFeature = "concept"

// MetricUndefined marks a metric that could not be computed (e.g. ROC-AUC
// over a single-class batch). It sits outside the legal [0,1] metric range
// so consumers can always distinguish it from a real value.
const MetricUndefined = -1.0

// FeatureDistribution is an immutable reference sample for one feature,
// captured at model-freeze time.
type FeatureDistribution struct {
	Feature string    `json:"feature"`
	Values  []float64 `json:"values"`
}

// DriftVerdict is the outcome of one two-sample distribution test.
// Feature is either an input feature name or ConceptFeature.
type DriftVerdict struct {
	Feature     string    `json:"feature"`
	Statistic   float64   `json:"ks_statistic"`
	PValue      float64   `json:"p_value"`
	Drifted     bool      `json:"is_drifted"`
	BaselineN   int       `json:"baseline_n"`
	ProductionN int       `json:"production_n"`
	// MeanShift is a diagnostic attached to concept verdicts only:
	// mean(production probs) - mean(baseline probs). Not part of the
	// drift decision.
	MeanShift float64   `json:"mean_shift,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PerformanceRecord holds binary-classification metrics for one labeled
// batch. All metrics are in [0,1], or MetricUndefined when the batch was
// degenerate for that metric.
type PerformanceRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	Accuracy    float64   `json:"accuracy"`
	Precision   float64   `json:"precision"`
	Recall      float64   `json:"recall"`
	RocAUC      float64   `json:"roc_auc"`
	SampleCount int       `json:"sample_count"`
}

// Alert is an immutable, append-only record of one threshold breach.
// Source names the feature or metric that triggered it.
type Alert struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Severity  Severity  `json:"severity"`
	Category  Category  `json:"category"`
	Message   string    `json:"message"`
	Source    string    `json:"source"`
}

// RetrainDecision records one retraining-policy evaluation. Decisions are
// append-only history and never mutated.
type RetrainDecision struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	ShouldRetrain bool      `json:"should_retrain"`
	AlertIDs      []string  `json:"alert_ids,omitempty"`
	Reason        string    `json:"reason"`
	CriticalCount int       `json:"critical_count"`
}

// SchemaWarning is a data-quality diagnostic emitted when a feature could
// not be tested (missing on one side, or too few observations). It is
// deliberately a distinct type from Alert: schema problems are reported,
// not alerted on.
type SchemaWarning struct {
	Feature string `json:"feature"`
	Reason  string `json:"reason"`
}

func (w SchemaWarning) String() string {
	return fmt.Sprintf("feature %q: %s", w.Feature, w.Reason)
}

// ProductionBatch is one cycle's worth of production traffic: feature
// samples plus labeled model outputs. Shape is validated once at the
// ingestion boundary; the detectors assume a valid batch.
type ProductionBatch struct {
	Features      map[string][]float64 `json:"features"`
	Labels        []int                `json:"labels"`
	Predictions   []int                `json:"predictions"`
	Probabilities []float64            `json:"probabilities"`
	CapturedAt    time.Time            `json:"captured_at"`
}

// Validate checks structural integrity of the batch. A failure here aborts
// the whole monitoring cycle before any alert is emitted.
func (b *ProductionBatch) Validate() error {
	if len(b.Labels) == 0 {
		return fmt.Errorf("batch has no labels")
	}
	if len(b.Predictions) != len(b.Labels) {
		return fmt.Errorf("predictions length %d does not match labels length %d",
			len(b.Predictions), len(b.Labels))
	}
	if len(b.Probabilities) != len(b.Labels) {
		return fmt.Errorf("probabilities length %d does not match labels length %d",
			len(b.Probabilities), len(b.Labels))
	}
	for i, y := range b.Labels {
		if y != 0 && y != 1 {
			return fmt.Errorf("label at index %d is %d, want 0 or 1", i, y)
		}
	}
	for i, y := range b.Predictions {
		if y != 0 && y != 1 {
			return fmt.Errorf("prediction at index %d is %d, want 0 or 1", i, y)
		}
	}
	for i, p := range b.Probabilities {
		// The negated range form catches NaN, which every ordered
		// comparison rejects.
		if !(p >= 0 && p <= 1) {
			return fmt.Errorf("probability at index %d is %g, want [0,1]", i, p)
		}
	}
	for name, values := range b.Features {
		for i, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("feature %q has non-finite value %g at index %d", name, v, i)
			}
		}
	}
	return nil
}
