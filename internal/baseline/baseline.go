package baseline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/driftlab/driftwatch/internal/api"
	"github.com/driftlab/driftwatch/internal/drift"
	"github.com/driftlab/driftwatch/internal/perf"
)

// Baseline holds the reference artifacts captured at model-freeze time:
// per-feature distributions, the prediction-probability distribution, and
// the reference performance record. It is read-only after load; a refresh
// replaces the whole snapshot.
type Baseline struct {
	Features      map[string]api.FeatureDistribution `json:"features"`
	Probabilities []float64                          `json:"probabilities"`
	Performance   api.PerformanceRecord              `json:"performance"`
	CapturedAt    time.Time                          `json:"captured_at"`
}

// Capture builds a baseline snapshot from a labeled reference batch. The
// model itself is trained elsewhere; capture only freezes what the monitors
// compare against.
func Capture(features map[string][]float64, labels, predictions []int, probabilities []float64, now time.Time) (*Baseline, error) {
	record, err := perf.Compute(labels, predictions, probabilities, now)
	if err != nil {
		return nil, fmt.Errorf("failed to compute reference performance: %w", err)
	}

	b := &Baseline{
		Features:      make(map[string]api.FeatureDistribution, len(features)),
		Probabilities: append([]float64(nil), probabilities...),
		Performance:   record,
		CapturedAt:    now,
	}
	for name, values := range features {
		b.Features[name] = api.FeatureDistribution{
			Feature: name,
			Values:  append([]float64(nil), values...),
		}
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Load reads a baseline snapshot from a JSON file.
func Load(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline: %w", err)
	}

	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal baseline %s: %w", path, err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Save writes the snapshot as indented JSON.
func (b *Baseline) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create baseline directory: %w", err)
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the snapshot is usable as a reference: at least one
// testable feature distribution, a testable probability sample, and
// reference metrics inside their legal range.
func (b *Baseline) Validate() error {
	if len(b.Features) == 0 {
		return fmt.Errorf("baseline has no feature distributions")
	}
	testable := 0
	for name, dist := range b.Features {
		if dist.Feature != "" && dist.Feature != name {
			return fmt.Errorf("baseline feature %q has mismatched name %q", name, dist.Feature)
		}
		if len(dist.Values) >= drift.MinSamples {
			testable++
		}
	}
	if testable == 0 {
		return fmt.Errorf("no baseline feature has enough observations for a valid test")
	}
	if len(b.Probabilities) < drift.MinSamples {
		return fmt.Errorf("baseline probability sample too small: %d", len(b.Probabilities))
	}

	for _, m := range []struct {
		name  string
		value float64
	}{
		{"accuracy", b.Performance.Accuracy},
		{"precision", b.Performance.Precision},
		{"recall", b.Performance.Recall},
		{"roc_auc", b.Performance.RocAUC},
	} {
		if m.value == api.MetricUndefined {
			continue
		}
		if m.value < 0 || m.value > 1 {
			return fmt.Errorf("baseline %s %g outside [0,1]", m.name, m.value)
		}
	}
	return nil
}
