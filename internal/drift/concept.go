package drift

import (
	"time"

	"go.uber.org/zap"

	"github.com/driftlab/driftwatch/internal/api"
)

// ConceptDetector watches the model's output behavior: it compares the
// distribution of predicted positive-class probabilities between baseline
// and production with the same KS machinery used for feature drift.
type ConceptDetector struct {
	logger *zap.Logger
}

func NewConceptDetector(logger *zap.Logger) *ConceptDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConceptDetector{logger: logger}
}

// Detect produces exactly one verdict per run, tagged api.ConceptFeature.
// The verdict carries mean(production) - mean(baseline) as an auxiliary
// shift-magnitude diagnostic; the drift decision itself is the KS p-value
// against significance. An InsufficientDataError is returned when either
// probability sample is too small for a valid test.
func (d *ConceptDetector) Detect(baselineProbs, productionProbs []float64, significance float64) (api.DriftVerdict, error) {
	stat, pValue, err := TwoSampleKS(baselineProbs, productionProbs)
	if err != nil {
		if e, ok := err.(*InsufficientDataError); ok {
			e.Feature = api.ConceptFeature
		}
		d.logger.Warn("concept drift test skipped", zap.Error(err))
		return api.DriftVerdict{}, err
	}

	return api.DriftVerdict{
		Feature:     api.ConceptFeature,
		Statistic:   stat,
		PValue:      pValue,
		Drifted:     pValue < significance,
		BaselineN:   len(baselineProbs),
		ProductionN: len(productionProbs),
		MeanShift:   mean(productionProbs) - mean(baselineProbs),
		Timestamp:   time.Now().UTC(),
	}, nil
}
