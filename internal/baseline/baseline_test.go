package baseline

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftlab/driftwatch/internal/api"
)

func referenceSample(n int, mean, sd float64) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		q := (float64(i) + 0.5) / float64(n)
		out[i] = mean + sd*math.Sqrt2*math.Erfinv(2*q-1)
	}
	return out
}

func labeledReference(n int) (features map[string][]float64, labels, predictions []int, probabilities []float64) {
	features = map[string][]float64{
		"age":    referenceSample(n, 40, 5),
		"income": referenceSample(n, 50000, 8000),
	}
	labels = make([]int, n)
	predictions = make([]int, n)
	probabilities = make([]float64, n)
	for i := 0; i < n; i++ {
		labels[i] = i % 2
		predictions[i] = i % 2
		if labels[i] == 1 {
			probabilities[i] = 0.8
		} else {
			probabilities[i] = 0.2
		}
	}
	return features, labels, predictions, probabilities
}

func TestCapture(t *testing.T) {
	features, labels, predictions, probabilities := labeledReference(100)
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	base, err := Capture(features, labels, predictions, probabilities, now)
	require.NoError(t, err)

	assert.Len(t, base.Features, 2)
	assert.Equal(t, "age", base.Features["age"].Feature)
	assert.Len(t, base.Probabilities, 100)
	assert.True(t, base.CapturedAt.Equal(now))

	// Predictions match labels exactly, so the reference metrics are perfect.
	assert.Equal(t, 1.0, base.Performance.Accuracy)
	assert.Equal(t, 1.0, base.Performance.Precision)
	assert.Equal(t, 1.0, base.Performance.Recall)
	assert.Equal(t, 1.0, base.Performance.RocAUC)
}

func TestCapture_CopiesInputs(t *testing.T) {
	features, labels, predictions, probabilities := labeledReference(50)

	base, err := Capture(features, labels, predictions, probabilities, time.Now())
	require.NoError(t, err)

	features["age"][0] = -999
	probabilities[0] = 0

	assert.NotEqual(t, -999.0, base.Features["age"].Values[0],
		"captured feature values must be independent of the caller's slice")
}

func TestSaveLoadRoundtrip(t *testing.T) {
	features, labels, predictions, probabilities := labeledReference(60)
	base, err := Capture(features, labels, predictions, probabilities, time.Now().UTC())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "baseline.json")
	require.NoError(t, base.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Len(t, loaded.Features, len(base.Features))
	assert.Equal(t, base.Performance.Accuracy, loaded.Performance.Accuracy)
	assert.Equal(t, base.Probabilities, loaded.Probabilities)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	features, labels, predictions, probabilities := labeledReference(50)
	valid, err := Capture(features, labels, predictions, probabilities, time.Now())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Baseline)
	}{
		{"no features", func(b *Baseline) { b.Features = nil }},
		{"no testable feature", func(b *Baseline) {
			b.Features = map[string]api.FeatureDistribution{
				"age": {Feature: "age", Values: []float64{1}},
			}
		}},
		{"probability sample too small", func(b *Baseline) { b.Probabilities = []float64{0.5} }},
		{"metric outside range", func(b *Baseline) { b.Performance.Accuracy = 1.5 }},
		{"mismatched feature name", func(b *Baseline) {
			b.Features["age"] = api.FeatureDistribution{Feature: "income", Values: b.Features["age"].Values}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broken := *valid
			broken.Features = make(map[string]api.FeatureDistribution, len(valid.Features))
			for k, v := range valid.Features {
				broken.Features[k] = v
			}
			tt.mutate(&broken)
			assert.Error(t, broken.Validate())
		})
	}

	// MetricUndefined is legal in a reference record.
	undef := *valid
	undef.Performance.RocAUC = api.MetricUndefined
	assert.NoError(t, undef.Validate())
}
