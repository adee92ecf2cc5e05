package perf

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/driftlab/driftwatch/internal/api"
	"github.com/driftlab/driftwatch/internal/store"
)

func TestMonitor_MeasureCommitLatest(t *testing.T) {
	history, err := store.NewMemoryLog[api.PerformanceRecord]("")
	if err != nil {
		t.Fatalf("NewMemoryLog failed: %v", err)
	}

	baseline := record(0.9, 0.85, 0.8, 0.92)
	m := NewMonitor(baseline, history, zaptest.NewLogger(t))

	if got := m.Baseline(); got != baseline {
		t.Errorf("Baseline: got %+v, want %+v", got, baseline)
	}

	ctx := context.Background()
	if _, ok, err := m.Latest(ctx); err != nil || ok {
		t.Fatalf("Latest before any commit: ok=%v err=%v, want ok=false", ok, err)
	}

	labels := []int{1, 1, 0, 0}
	predictions := []int{1, 0, 0, 0}
	probabilities := []float64{0.9, 0.4, 0.3, 0.2}

	measured, err := m.Measure(labels, predictions, probabilities, time.Now().UTC())
	if err != nil {
		t.Fatalf("Measure failed: %v", err)
	}
	if measured.Accuracy != 0.75 {
		t.Errorf("Accuracy: got %g, want 0.75", measured.Accuracy)
	}

	// Measure alone must not touch the history.
	if records, _ := m.History(ctx); len(records) != 0 {
		t.Fatalf("Measure wrote %d records to history", len(records))
	}

	if err := m.Commit(ctx, measured); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	latest, ok, err := m.Latest(ctx)
	if err != nil || !ok {
		t.Fatalf("Latest after commit: ok=%v err=%v", ok, err)
	}
	if latest != measured {
		t.Errorf("Latest: got %+v, want %+v", latest, measured)
	}

	deg := m.Degradation(measured)
	if deg.Min == api.MetricUndefined {
		t.Error("Expected a defined degradation signal")
	}
}

func TestMonitor_HistoryKeepsAppendOrder(t *testing.T) {
	history, err := store.NewMemoryLog[api.PerformanceRecord]("")
	if err != nil {
		t.Fatalf("NewMemoryLog failed: %v", err)
	}
	m := NewMonitor(record(0.9, 0.9, 0.9, 0.9), history, nil)

	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		r := record(0.8, 0.8, 0.8, 0.8)
		r.Timestamp = base.Add(time.Duration(i) * time.Hour)
		if err := m.Commit(ctx, r); err != nil {
			t.Fatalf("Commit %d failed: %v", i, err)
		}
	}

	records, err := m.History(ctx)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	for i := 1; i < len(records); i++ {
		if records[i].Timestamp.Before(records[i-1].Timestamp) {
			t.Errorf("History out of append order at index %d", i)
		}
	}
}
