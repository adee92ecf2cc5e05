package retrain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/driftlab/driftwatch/internal/api"
	"github.com/driftlab/driftwatch/internal/config"
)

// Controller applies the retraining policy over recent alerts. Decide is a
// pure function of the alert log and the clock it is handed: given the same
// log and timestamp it always produces the same decision, which keeps the
// policy fully reproducible.
type Controller struct {
	logger *zap.Logger
}

func NewController(logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{logger: logger}
}

// Decide scopes alertLog to [now - lookback, now] (both bounds inclusive),
// counts CRITICAL alerts, and triggers retraining when the count reaches
// the configured threshold. The reason string enumerates contributing
// categories for auditability.
func (c *Controller) Decide(alertLog []api.Alert, now time.Time, cfg config.Config) api.RetrainDecision {
	cutoff := now.Add(-time.Duration(cfg.LookbackHours) * time.Hour)

	var contributing []api.Alert
	for _, a := range alertLog {
		if a.Severity != api.SeverityCritical {
			continue
		}
		if a.Timestamp.Before(cutoff) || a.Timestamp.After(now) {
			continue
		}
		contributing = append(contributing, a)
	}

	decision := api.RetrainDecision{
		ID:            uuid.NewString(),
		Timestamp:     now,
		CriticalCount: len(contributing),
		ShouldRetrain: len(contributing) >= cfg.CriticalAlertThreshold,
	}
	for _, a := range contributing {
		decision.AlertIDs = append(decision.AlertIDs, a.ID)
	}
	decision.Reason = reason(decision, contributing, cfg)

	c.logger.Info("retraining decision",
		zap.Bool("should_retrain", decision.ShouldRetrain),
		zap.Int("critical_count", decision.CriticalCount),
		zap.Int("lookback_hours", cfg.LookbackHours))

	return decision
}

func reason(decision api.RetrainDecision, contributing []api.Alert, cfg config.Config) string {
	if !decision.ShouldRetrain {
		return fmt.Sprintf("%d critical alert(s) within %dh lookback, below threshold %d",
			decision.CriticalCount, cfg.LookbackHours, cfg.CriticalAlertThreshold)
	}

	counts := make(map[api.Category]int)
	for _, a := range contributing {
		counts[a.Category]++
	}
	categories := make([]string, 0, len(counts))
	for cat := range counts {
		categories = append(categories, string(cat))
	}
	sort.Strings(categories)

	parts := make([]string, 0, len(categories))
	for _, cat := range categories {
		parts = append(parts, fmt.Sprintf("%s=%d", cat, counts[api.Category(cat)]))
	}

	return fmt.Sprintf("%d critical alert(s) within %dh lookback (%s), threshold %d reached",
		decision.CriticalCount, cfg.LookbackHours, strings.Join(parts, ", "), cfg.CriticalAlertThreshold)
}
