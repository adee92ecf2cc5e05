package drift

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/driftlab/driftwatch/internal/api"
	"github.com/driftlab/driftwatch/internal/cache"
)

// DataDetector compares per-feature production samples against baseline
// reference distributions. It is safe for concurrent use; the only mutable
// state is the sorted-baseline cache.
type DataDetector struct {
	logger         *zap.Logger
	sortedBaseline *cache.TTLCache[string, []float64]
}

// NewDataDetector creates a data drift detector. Baseline samples are
// immutable once captured, so their sorted form is memoized across cycles;
// call ResetCache after a baseline refresh.
func NewDataDetector(logger *zap.Logger) *DataDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c, err := cache.New[string, []float64](1024, time.Hour)
	if err != nil {
		// Only reachable with a non-positive size constant.
		panic(fmt.Sprintf("drift: sorted-baseline cache: %v", err))
	}
	return &DataDetector{logger: logger, sortedBaseline: c}
}

// Detect runs a two-sample KS test for every feature present on both sides
// and returns one verdict per tested feature, ordered by ascending p-value
// (most significant drift first) with ties broken by feature name. Features
// missing from either side, or with fewer than MinSamples observations,
// yield a SchemaWarning instead of a verdict. All verdicts of one run share
// the same timestamp.
func (d *DataDetector) Detect(
	baseline map[string]api.FeatureDistribution,
	production map[string][]float64,
	significance float64,
) ([]api.DriftVerdict, []api.SchemaWarning) {
	now := time.Now().UTC()

	verdicts := make([]api.DriftVerdict, 0, len(baseline))
	var warnings []api.SchemaWarning

	for _, name := range sortedKeys(baseline) {
		ref := baseline[name]
		prod, ok := production[name]
		if !ok {
			warnings = append(warnings, api.SchemaWarning{
				Feature: name,
				Reason:  "present in baseline but missing from production batch",
			})
			d.logger.Warn("feature missing from production batch", zap.String("feature", name))
			continue
		}

		stat, pValue, err := d.test(name, ref.Values, prod)
		if err != nil {
			var insufficient *InsufficientDataError
			if errors.As(err, &insufficient) {
				warnings = append(warnings, api.SchemaWarning{
					Feature: name,
					Reason:  insufficient.Error(),
				})
				d.logger.Warn("skipping feature", zap.String("feature", name), zap.Error(err))
				continue
			}
			// NaN rejection and any other test failure degrade to a
			// data-quality warning; the feature is skipped, not alerted on.
			warnings = append(warnings, api.SchemaWarning{Feature: name, Reason: err.Error()})
			d.logger.Warn("skipping feature", zap.String("feature", name), zap.Error(err))
			continue
		}

		verdicts = append(verdicts, api.DriftVerdict{
			Feature:     name,
			Statistic:   stat,
			PValue:      pValue,
			Drifted:     pValue < significance,
			BaselineN:   len(ref.Values),
			ProductionN: len(prod),
			Timestamp:   now,
		})
	}

	for _, name := range sortedKeys(production) {
		if _, ok := baseline[name]; !ok {
			warnings = append(warnings, api.SchemaWarning{
				Feature: name,
				Reason:  "present in production batch but missing from baseline",
			})
			d.logger.Warn("feature missing from baseline", zap.String("feature", name))
		}
	}

	// Ordering is load-bearing: downstream alerting reads the most
	// significant drift first.
	sort.SliceStable(verdicts, func(i, j int) bool {
		if verdicts[i].PValue != verdicts[j].PValue {
			return verdicts[i].PValue < verdicts[j].PValue
		}
		return verdicts[i].Feature < verdicts[j].Feature
	})

	return verdicts, warnings
}

// ResetCache drops memoized sorted baselines. Must be called whenever the
// baseline snapshot is replaced.
func (d *DataDetector) ResetCache() {
	d.sortedBaseline.Purge()
}

func (d *DataDetector) test(feature string, baseline, production []float64) (float64, float64, error) {
	if len(baseline) < MinSamples || len(production) < MinSamples {
		return 0, 1, &InsufficientDataError{
			Feature:     feature,
			BaselineN:   len(baseline),
			ProductionN: len(production),
		}
	}
	if i := nanIndex(baseline); i >= 0 {
		return 0, 1, fmt.Errorf("feature %q: baseline sample has NaN at index %d", feature, i)
	}
	if i := nanIndex(production); i >= 0 {
		return 0, 1, fmt.Errorf("feature %q: production sample has NaN at index %d", feature, i)
	}

	sortedBase, ok := d.sortedBaseline.Get(feature)
	if !ok || len(sortedBase) != len(baseline) {
		sortedBase = make([]float64, len(baseline))
		copy(sortedBase, baseline)
		sort.Float64s(sortedBase)
		d.sortedBaseline.Set(feature, sortedBase)
	}

	sortedProd := make([]float64, len(production))
	copy(sortedProd, production)
	sort.Float64s(sortedProd)

	stat := ksStatisticSorted(sortedBase, sortedProd)
	return stat, ksPValue(stat, len(sortedBase), len(sortedProd)), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
