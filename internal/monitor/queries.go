package monitor

import (
	"context"

	"github.com/driftlab/driftwatch/internal/api"
)

// The query surface backs read-only consumers (CLI views, serving layers).
// Log-backed queries return append order: oldest first, newest last.

// GetAlerts returns the full alert log, newest-last.
func (p *Pipeline) GetAlerts(ctx context.Context) ([]api.Alert, error) {
	return p.st.Alerts.List(ctx)
}

// GetBaselineMetrics returns the immutable reference performance record.
func (p *Pipeline) GetBaselineMetrics() api.PerformanceRecord {
	p.baseMu.RLock()
	defer p.baseMu.RUnlock()
	return p.base.Performance
}

// GetLatestMetrics returns the most recent production performance record;
// ok is false before the first completed cycle.
func (p *Pipeline) GetLatestMetrics(ctx context.Context) (api.PerformanceRecord, bool, error) {
	p.baseMu.RLock()
	perfMon := p.perfMon
	p.baseMu.RUnlock()
	return perfMon.Latest(ctx)
}

// GetPerformanceHistory returns all production performance records in
// append order.
func (p *Pipeline) GetPerformanceHistory(ctx context.Context) ([]api.PerformanceRecord, error) {
	return p.st.Performance.List(ctx)
}

// GetDataDriftReport returns the last cycle's per-feature verdicts, ordered
// by ascending p-value.
func (p *Pipeline) GetDataDriftReport() []api.DriftVerdict {
	p.reportMu.RLock()
	defer p.reportMu.RUnlock()
	out := make([]api.DriftVerdict, len(p.lastData))
	copy(out, p.lastData)
	return out
}

// GetConceptDriftReport returns the last cycle's concept verdict; ok is
// false when no cycle has run or the probability sample was too small.
func (p *Pipeline) GetConceptDriftReport() (api.DriftVerdict, bool) {
	p.reportMu.RLock()
	defer p.reportMu.RUnlock()
	if p.lastConcept == nil {
		return api.DriftVerdict{}, false
	}
	return *p.lastConcept, true
}

// GetSchemaWarnings returns the last cycle's data-quality diagnostics.
func (p *Pipeline) GetSchemaWarnings() []api.SchemaWarning {
	p.reportMu.RLock()
	defer p.reportMu.RUnlock()
	out := make([]api.SchemaWarning, len(p.lastWarnings))
	copy(out, p.lastWarnings)
	return out
}

// GetRetrainingStatus returns the most recent retraining decision; ok is
// false before the first completed cycle. The decision log survives
// restarts, so a cold pipeline falls back to the persisted history.
func (p *Pipeline) GetRetrainingStatus(ctx context.Context) (api.RetrainDecision, bool, error) {
	p.reportMu.RLock()
	last := p.lastDecision
	p.reportMu.RUnlock()
	if last != nil {
		return *last, true, nil
	}

	decisions, err := p.st.Decisions.List(ctx)
	if err != nil || len(decisions) == 0 {
		return api.RetrainDecision{}, false, err
	}
	return decisions[len(decisions)-1], true, nil
}
