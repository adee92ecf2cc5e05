package retrain

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/driftlab/driftwatch/internal/api"
	"github.com/driftlab/driftwatch/internal/config"
)

func alertAt(ts time.Time, severity api.Severity, category api.Category, id string) api.Alert {
	return api.Alert{ID: id, Timestamp: ts, Severity: severity, Category: category}
}

func TestDecide_ThresholdReached(t *testing.T) {
	c := NewController(zaptest.NewLogger(t))
	cfg := config.DefaultConfig() // threshold 1, lookback 24h
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	log := []api.Alert{
		alertAt(now.Add(-2*time.Hour), api.SeverityCritical, api.CategoryDataDrift, "a1"),
	}

	decision := c.Decide(log, now, cfg)
	if !decision.ShouldRetrain {
		t.Error("Expected retraining with 1 critical alert at threshold 1")
	}
	if decision.CriticalCount != 1 {
		t.Errorf("CriticalCount: got %d, want 1", decision.CriticalCount)
	}
	if len(decision.AlertIDs) != 1 || decision.AlertIDs[0] != "a1" {
		t.Errorf("AlertIDs: got %v, want [a1]", decision.AlertIDs)
	}
	if !strings.Contains(decision.Reason, "DATA_DRIFT=1") {
		t.Errorf("Reason missing category breakdown: %q", decision.Reason)
	}
}

func TestDecide_BelowThreshold(t *testing.T) {
	c := NewController(nil)
	cfg := config.DefaultConfig()
	cfg.CriticalAlertThreshold = 3
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	log := []api.Alert{
		alertAt(now.Add(-1*time.Hour), api.SeverityCritical, api.CategoryDataDrift, "a1"),
		alertAt(now.Add(-2*time.Hour), api.SeverityCritical, api.CategoryPerformance, "a2"),
	}

	decision := c.Decide(log, now, cfg)
	if decision.ShouldRetrain {
		t.Error("Expected no retraining with 2 critical alerts at threshold 3")
	}
	if decision.CriticalCount != 2 {
		t.Errorf("CriticalCount: got %d, want 2", decision.CriticalCount)
	}
	if !strings.Contains(decision.Reason, "below threshold 3") {
		t.Errorf("Reason: %q", decision.Reason)
	}
}

func TestDecide_LookbackWindow(t *testing.T) {
	c := NewController(nil)
	cfg := config.DefaultConfig() // lookback 24h
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		age  time.Duration
		want bool
	}{
		{name: "23h old counts", age: 23 * time.Hour, want: true},
		{name: "exactly 24h old counts (inclusive boundary)", age: 24 * time.Hour, want: true},
		{name: "25h old is outside the window", age: 25 * time.Hour, want: false},
	}

	for _, tt := range tests {
		log := []api.Alert{
			alertAt(now.Add(-tt.age), api.SeverityCritical, api.CategoryConceptDrift, "a1"),
		}
		decision := c.Decide(log, now, cfg)
		if decision.ShouldRetrain != tt.want {
			t.Errorf("%s: ShouldRetrain=%v, want %v", tt.name, decision.ShouldRetrain, tt.want)
		}
	}
}

func TestDecide_IgnoresWarningsAndFutureAlerts(t *testing.T) {
	c := NewController(nil)
	cfg := config.DefaultConfig()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	log := []api.Alert{
		alertAt(now.Add(-1*time.Hour), api.SeverityWarning, api.CategoryDataDrift, "w1"),
		alertAt(now.Add(1*time.Hour), api.SeverityCritical, api.CategoryDataDrift, "f1"),
	}

	decision := c.Decide(log, now, cfg)
	if decision.ShouldRetrain {
		t.Error("Warnings and future-dated alerts must not trigger retraining")
	}
	if decision.CriticalCount != 0 {
		t.Errorf("CriticalCount: got %d, want 0", decision.CriticalCount)
	}
}

func TestDecide_Deterministic(t *testing.T) {
	c := NewController(nil)
	cfg := config.DefaultConfig()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	log := []api.Alert{
		alertAt(now.Add(-3*time.Hour), api.SeverityCritical, api.CategoryDataDrift, "a1"),
		alertAt(now.Add(-2*time.Hour), api.SeverityCritical, api.CategoryConceptDrift, "a2"),
	}

	first := c.Decide(log, now, cfg)
	second := c.Decide(log, now, cfg)

	// Everything except the generated decision ID must be reproducible.
	if first.ShouldRetrain != second.ShouldRetrain ||
		first.CriticalCount != second.CriticalCount ||
		first.Reason != second.Reason {
		t.Errorf("Decision not deterministic: %+v vs %+v", first, second)
	}
	if first.ID == second.ID {
		t.Error("Decision IDs must be unique per evaluation")
	}
}
