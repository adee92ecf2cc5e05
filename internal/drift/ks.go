package drift

import (
	"fmt"
	"math"
	"sort"
)

// MinSamples is the smallest per-side sample size for a valid two-sample
// test. Below it the empirical CDF carries no usable signal.
const MinSamples = 2

// TwoSampleKS runs a two-sample Kolmogorov-Smirnov test between a baseline
// and a production sample. It returns the KS statistic
// D = max |F_base(x) - F_prod(x)| and an asymptotic p-value for the null
// hypothesis that both samples come from the same distribution.
func TwoSampleKS(baseline, production []float64) (statistic, pValue float64, err error) {
	if len(baseline) < MinSamples || len(production) < MinSamples {
		return 0, 1, &InsufficientDataError{BaselineN: len(baseline), ProductionN: len(production)}
	}
	if i := nanIndex(baseline); i >= 0 {
		return 0, 1, fmt.Errorf("baseline sample has NaN at index %d", i)
	}
	if i := nanIndex(production); i >= 0 {
		return 0, 1, fmt.Errorf("production sample has NaN at index %d", i)
	}

	b := make([]float64, len(baseline))
	p := make([]float64, len(production))
	copy(b, baseline)
	copy(p, production)
	sort.Float64s(b)
	sort.Float64s(p)

	statistic = ksStatisticSorted(b, p)
	pValue = ksPValue(statistic, len(b), len(p))
	return statistic, pValue, nil
}

// ksStatisticSorted computes D over two already-sorted samples with a
// single merge walk. Tied values advance both pointers past the full run
// before the CDF gap is measured, so ties never inflate D.
func ksStatisticSorted(s1, s2 []float64) float64 {
	n1, n2 := float64(len(s1)), float64(len(s2))

	i, j := 0, 0
	maxD := 0.0
	for i < len(s1) && j < len(s2) {
		v := math.Min(s1[i], s2[j])
		for i < len(s1) && s1[i] == v {
			i++
		}
		for j < len(s2) && s2[j] == v {
			j++
		}
		diff := math.Abs(float64(i)/n1 - float64(j)/n2)
		if diff > maxD {
			maxD = diff
		}
	}
	// Once one sample is exhausted the gap only shrinks toward the tail,
	// except for the step left by the unfinished sample.
	if i < len(s1) {
		if diff := math.Abs(float64(i)/n1 - 1.0); diff > maxD {
			maxD = diff
		}
	}
	if j < len(s2) {
		if diff := math.Abs(1.0 - float64(j)/n2); diff > maxD {
			maxD = diff
		}
	}

	return maxD
}

// ksPValue converts a KS statistic into an asymptotic p-value via the
// Kolmogorov distribution, using the small-sample correction
// lambda = (sqrt(ne) + 0.12 + 0.11/sqrt(ne)) * D over the effective sample
// size ne = n1*n2/(n1+n2).
func ksPValue(d float64, n1, n2 int) float64 {
	if d <= 0 {
		return 1.0
	}

	ne := float64(n1) * float64(n2) / float64(n1+n2)
	sqrtNe := math.Sqrt(ne)
	lambda := (sqrtNe + 0.12 + 0.11/sqrtNe) * d

	// P(D > d) = 2 * sum_{k>=1} (-1)^{k-1} exp(-2 k^2 lambda^2).
	// The series alternates and converges fast; stop once terms vanish.
	sum := 0.0
	sign := 1.0
	for k := 1; k <= 100; k++ {
		term := sign * math.Exp(-2*float64(k*k)*lambda*lambda)
		sum += term
		if math.Abs(term) < 1e-12 {
			break
		}
		sign = -sign
	}

	p := 2 * sum
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p
}

// nanIndex returns the index of the first NaN in sample, or -1. NaN must be
// rejected before sorting: sort.Float64s leaves NaN anywhere in the slice,
// and every comparison in the merge walk is false against it, so neither
// pointer would ever advance.
func nanIndex(sample []float64) int {
	for i, v := range sample {
		if math.IsNaN(v) {
			return i
		}
	}
	return -1
}

func mean(sample []float64) float64 {
	if len(sample) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range sample {
		total += v
	}
	return total / float64(len(sample))
}
