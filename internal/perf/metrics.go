package perf

import (
	"fmt"
	"sort"
	"time"

	"github.com/driftlab/driftwatch/internal/api"
)

// Compute derives binary-classification metrics for one labeled production
// batch. Zero-division cases (no positive predictions, no positive actuals)
// resolve to 0 for precision/recall; a single-class batch makes ROC-AUC
// undefined and yields api.MetricUndefined instead of an error.
func Compute(labels, predictions []int, probabilities []float64, now time.Time) (api.PerformanceRecord, error) {
	n := len(labels)
	if n == 0 {
		return api.PerformanceRecord{}, fmt.Errorf("cannot compute metrics over empty batch")
	}
	if len(predictions) != n || len(probabilities) != n {
		return api.PerformanceRecord{}, fmt.Errorf(
			"length mismatch: labels=%d predictions=%d probabilities=%d",
			n, len(predictions), len(probabilities))
	}

	var tp, tn, fp, fn int
	for i := 0; i < n; i++ {
		switch {
		case labels[i] == 1 && predictions[i] == 1:
			tp++
		case labels[i] == 0 && predictions[i] == 0:
			tn++
		case labels[i] == 0 && predictions[i] == 1:
			fp++
		default:
			fn++
		}
	}

	record := api.PerformanceRecord{
		Timestamp:   now,
		Accuracy:    float64(tp+tn) / float64(n),
		RocAUC:      rocAUC(labels, probabilities),
		SampleCount: n,
	}
	if tp+fp > 0 {
		record.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		record.Recall = float64(tp) / float64(tp+fn)
	}

	return record, nil
}

// rocAUC computes the area under the ROC curve by ranking probability
// scores (Mann-Whitney formulation), with average ranks over ties. Returns
// api.MetricUndefined when the batch contains only one class.
func rocAUC(labels []int, probabilities []float64) float64 {
	n := len(labels)

	var nPos, nNeg int
	for _, y := range labels {
		if y == 1 {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return api.MetricUndefined
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return probabilities[idx[a]] < probabilities[idx[b]]
	})

	// Average ranks across runs of tied scores.
	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && probabilities[idx[j]] == probabilities[idx[i]] {
			j++
		}
		avg := float64(i+j+1) / 2.0 // ranks are 1-based: positions i+1..j
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}

	sumPos := 0.0
	for i, y := range labels {
		if y == 1 {
			sumPos += ranks[i]
		}
	}

	return (sumPos - float64(nPos)*float64(nPos+1)/2.0) / (float64(nPos) * float64(nNeg))
}
