package perf

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/driftlab/driftwatch/internal/api"
	"github.com/driftlab/driftwatch/internal/store"
)

// Monitor tracks production performance against an immutable baseline
// reference. Metric computation is pure; the append-only history write
// happens at the cycle commit point, never inside the analysis stages.
type Monitor struct {
	logger   *zap.Logger
	baseline api.PerformanceRecord
	history  store.Log[api.PerformanceRecord]
}

// NewMonitor creates a performance monitor. The baseline record is the
// single reference captured at model-freeze time.
func NewMonitor(baseline api.PerformanceRecord, history store.Log[api.PerformanceRecord], logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{logger: logger, baseline: baseline, history: history}
}

// Baseline returns the immutable reference record.
func (m *Monitor) Baseline() api.PerformanceRecord {
	return m.baseline
}

// Measure computes metrics for one labeled batch without touching the
// history. Safe to run concurrently with the drift detectors.
func (m *Monitor) Measure(labels, predictions []int, probabilities []float64, now time.Time) (api.PerformanceRecord, error) {
	record, err := Compute(labels, predictions, probabilities, now)
	if err != nil {
		return api.PerformanceRecord{}, err
	}
	if record.RocAUC == api.MetricUndefined {
		m.logger.Warn("ROC-AUC undefined for batch (single-class labels)",
			zap.Int("sample_count", record.SampleCount))
	}
	return record, nil
}

// Degradation compares a record against the baseline; the Min ratio is the
// overall degradation signal consumed by the alert engine.
func (m *Monitor) Degradation(record api.PerformanceRecord) Degradation {
	return DegradationRatio(record, m.baseline)
}

// Commit appends a measured record to the performance history. History is
// ordered by timestamp and append-only: records are never reordered or
// deleted.
func (m *Monitor) Commit(ctx context.Context, record api.PerformanceRecord) error {
	if err := m.history.Append(ctx, record); err != nil {
		return fmt.Errorf("failed to append performance record: %w", err)
	}
	return nil
}

// History returns all production records in append order.
func (m *Monitor) History(ctx context.Context) ([]api.PerformanceRecord, error) {
	return m.history.List(ctx)
}

// Latest returns the most recent production record, or ok=false when no
// monitoring run has completed yet.
func (m *Monitor) Latest(ctx context.Context) (api.PerformanceRecord, bool, error) {
	records, err := m.history.List(ctx)
	if err != nil || len(records) == 0 {
		return api.PerformanceRecord{}, false, err
	}
	return records[len(records)-1], true, nil
}
