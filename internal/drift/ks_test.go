package drift

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"
)

// normalQuantiles returns n evenly spaced quantiles of N(mean, sd). Using
// quantiles instead of random draws keeps the expected test outcomes exact.
func normalQuantiles(n int, mean, sd float64) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		q := (float64(i) + 0.5) / float64(n)
		out[i] = mean + sd*math.Sqrt2*math.Erfinv(2*q-1)
	}
	return out
}

func TestTwoSampleKS_IdenticalSamples(t *testing.T) {
	sample := normalQuantiles(100, 0, 1)

	stat, pValue, err := TwoSampleKS(sample, sample)
	if err != nil {
		t.Fatalf("TwoSampleKS failed: %v", err)
	}
	if stat != 0 {
		t.Errorf("Expected statistic 0 for identical samples, got %g", stat)
	}
	if pValue != 1.0 {
		t.Errorf("Expected p-value 1.0 for identical samples, got %g", pValue)
	}
}

func TestTwoSampleKS_SeparatedSamples(t *testing.T) {
	baseline := normalQuantiles(150, 40, 5)
	production := normalQuantiles(150, 60, 5)

	stat, pValue, err := TwoSampleKS(baseline, production)
	if err != nil {
		t.Fatalf("TwoSampleKS failed: %v", err)
	}
	if stat < 0.9 {
		t.Errorf("Expected statistic > 0.9 for well-separated samples, got %g", stat)
	}
	if pValue > 1e-6 {
		t.Errorf("Expected p-value < 1e-6 for well-separated samples, got %g", pValue)
	}
}

func TestTwoSampleKS_InsufficientData(t *testing.T) {
	_, _, err := TwoSampleKS([]float64{1.0}, []float64{1.0, 2.0, 3.0})
	if err == nil {
		t.Fatal("Expected error for single-observation baseline")
	}

	var insufficient *InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected InsufficientDataError, got %T", err)
	}
	if insufficient.BaselineN != 1 || insufficient.ProductionN != 3 {
		t.Errorf("Expected counts (1, 3), got (%d, %d)",
			insufficient.BaselineN, insufficient.ProductionN)
	}
}

func TestTwoSampleKS_RejectsNaN(t *testing.T) {
	// A NaN must be rejected up front: sorting leaves it in an arbitrary
	// position and the merge walk could not step past it.
	clean := []float64{1, 2, 3}

	done := make(chan struct{})
	var baseErr, prodErr error
	go func() {
		defer close(done)
		_, _, baseErr = TwoSampleKS([]float64{math.NaN(), 1, 2}, clean)
		_, _, prodErr = TwoSampleKS(clean, []float64{1, math.NaN(), 2})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("TwoSampleKS did not terminate on NaN input")
	}
	if baseErr == nil {
		t.Error("Expected error for NaN in baseline sample")
	}
	if prodErr == nil {
		t.Error("Expected error for NaN in production sample")
	}

	var insufficient *InsufficientDataError
	if errors.As(baseErr, &insufficient) {
		t.Errorf("NaN rejection must not be reported as insufficient data: %v", baseErr)
	}
}

func TestTwoSampleKS_DoesNotMutateInputs(t *testing.T) {
	baseline := []float64{3, 1, 2}
	production := []float64{5, 4, 6}

	if _, _, err := TwoSampleKS(baseline, production); err != nil {
		t.Fatalf("TwoSampleKS failed: %v", err)
	}

	if baseline[0] != 3 || baseline[1] != 1 || baseline[2] != 2 {
		t.Errorf("Baseline mutated: %v", baseline)
	}
	if production[0] != 5 || production[1] != 4 || production[2] != 6 {
		t.Errorf("Production mutated: %v", production)
	}
}

func TestKSStatistic_HandComputed(t *testing.T) {
	tests := []struct {
		name string
		s1   []float64
		s2   []float64
		want float64
	}{
		{name: "equal", s1: []float64{1, 2, 3, 4}, s2: []float64{1, 2, 3, 4}, want: 0},
		{name: "disjoint", s1: []float64{1, 2, 3, 4}, s2: []float64{5, 6, 7, 8}, want: 1},
		{name: "ties", s1: []float64{1, 1, 2, 2}, s2: []float64{1, 2, 2, 2}, want: 0.25},
		{name: "uneven lengths", s1: []float64{0, 0.5, 1.0}, s2: []float64{0.25, 0.75}, want: 1.0 / 3.0},
	}

	for _, tt := range tests {
		got := ksStatisticSorted(tt.s1, tt.s2)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("%s: got D=%g, want %g", tt.name, got, tt.want)
		}
	}
}

func TestKSPValue_Monotone(t *testing.T) {
	if p := ksPValue(0, 100, 100); p != 1.0 {
		t.Errorf("Expected p=1 at D=0, got %g", p)
	}

	prev := 2.0
	for _, d := range []float64{0.05, 0.1, 0.2, 0.4, 0.8} {
		p := ksPValue(d, 100, 100)
		if p < 0 || p > 1 {
			t.Errorf("p-value %g at D=%g outside [0,1]", p, d)
		}
		if p >= prev {
			t.Errorf("p-value not decreasing: p(%g)=%g >= %g", d, p, prev)
		}
		prev = p
	}
}

// With significance 0.05 the test should reject a true null roughly 5% of
// the time. 100 seeded trials keep the outcome reproducible; 15 rejections
// is far beyond any plausible binomial fluctuation.
func TestTwoSampleKS_FalsePositiveRate(t *testing.T) {
	const trials = 100
	rejections := 0

	for seed := int64(0); seed < trials; seed++ {
		rng := rand.New(rand.NewSource(seed))

		baseline := make([]float64, 100)
		production := make([]float64, 100)
		for i := range baseline {
			baseline[i] = rng.NormFloat64()
			production[i] = rng.NormFloat64()
		}

		_, pValue, err := TwoSampleKS(baseline, production)
		if err != nil {
			t.Fatalf("seed %d: TwoSampleKS failed: %v", seed, err)
		}
		if pValue < 0.05 {
			rejections++
		}
	}

	if rejections > 15 {
		t.Errorf("False positive rate too high: %d/%d rejections at alpha=0.05", rejections, trials)
	}
}

func TestMean(t *testing.T) {
	if got := mean(nil); got != 0 {
		t.Errorf("Expected mean of empty sample to be 0, got %g", got)
	}
	if got := mean([]float64{1, 2, 3, 4}); got != 2.5 {
		t.Errorf("Expected 2.5, got %g", got)
	}
}
