package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/driftlab/driftwatch/internal/alerting"
	"github.com/driftlab/driftwatch/internal/api"
	"github.com/driftlab/driftwatch/internal/baseline"
	"github.com/driftlab/driftwatch/internal/config"
	"github.com/driftlab/driftwatch/internal/drift"
	"github.com/driftlab/driftwatch/internal/metrics"
	"github.com/driftlab/driftwatch/internal/perf"
	"github.com/driftlab/driftwatch/internal/retrain"
	"github.com/driftlab/driftwatch/internal/store"
)

// Pipeline wires the analysis stages into one monitoring cycle. The three
// detection stages run concurrently over read-only inputs; alerting and the
// retraining decision run strictly after the join. RunCycle is serialized:
// the append-only logs require a single writer to preserve ordering.
type Pipeline struct {
	cfg        config.Config
	logger     *zap.Logger
	tracer     trace.Tracer
	met        *metrics.Metrics
	st         *store.Store
	data       *drift.DataDetector
	concept    *drift.ConceptDetector
	engine     *alerting.Engine
	controller *retrain.Controller

	cycleMu sync.Mutex

	// baseline snapshot and everything derived from it
	baseMu  sync.RWMutex
	base    *baseline.Baseline
	perfMon *perf.Monitor

	// last-cycle reports backing the query surface
	reportMu     sync.RWMutex
	lastData     []api.DriftVerdict
	lastConcept  *api.DriftVerdict
	lastWarnings []api.SchemaWarning
	lastDecision *api.RetrainDecision
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger injects a structured logger (default: no-op).
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.met = m }
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// New builds a pipeline over a baseline snapshot and a record store.
// Configuration and baseline problems are fatal here: a cycle never runs
// against an invalid setup.
func New(cfg config.Config, base *baseline.Baseline, st *store.Store, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if base == nil {
		return nil, fmt.Errorf("baseline is required")
	}
	if err := base.Validate(); err != nil {
		return nil, fmt.Errorf("invalid baseline: %w", err)
	}
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}

	p := &Pipeline{
		cfg:    cfg,
		logger: zap.NewNop(),
		tracer: otel.Tracer("driftwatch/monitor"),
		st:     st,
		base:   base,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.data = drift.NewDataDetector(p.logger.Named("data-drift"))
	p.concept = drift.NewConceptDetector(p.logger.Named("concept-drift"))
	p.engine = alerting.NewEngine(p.logger.Named("alerting"))
	p.controller = retrain.NewController(p.logger.Named("retrain"))
	p.perfMon = perf.NewMonitor(base.Performance, st.Performance, p.logger.Named("performance"))

	return p, nil
}

// CycleResult is everything one completed monitoring cycle produced.
type CycleResult struct {
	DataVerdicts   []api.DriftVerdict
	ConceptVerdict *api.DriftVerdict
	Warnings       []api.SchemaWarning
	Performance    api.PerformanceRecord
	Degradation    perf.Degradation
	Alerts         []api.Alert
	Decision       api.RetrainDecision
}

// RunCycle executes one full monitoring cycle over a production batch.
// The cycle is atomic: on any stage failure nothing is appended to the
// logs and the error names the failed stage.
func (p *Pipeline) RunCycle(ctx context.Context, batch api.ProductionBatch) (*CycleResult, error) {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	start := time.Now()
	now := start.UTC()

	if p.met != nil {
		p.met.CyclesTotal.Inc()
	}

	ctx, span := p.tracer.Start(ctx, "monitor.cycle")
	defer span.End()

	result, err := p.runCycle(ctx, batch, now)
	if err != nil {
		if p.met != nil {
			p.met.CycleFailures.Inc()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Error("monitoring cycle failed", zap.Error(err))
		return nil, err
	}

	elapsed := time.Since(start)
	p.observe(result, elapsed)
	span.SetAttributes(
		attribute.Int("alerts", len(result.Alerts)),
		attribute.Bool("should_retrain", result.Decision.ShouldRetrain),
	)

	if len(result.Alerts) == 0 {
		p.logger.Info("monitoring cycle clear: all conditions within thresholds",
			zap.Duration("elapsed", elapsed))
	} else {
		p.logger.Info("monitoring cycle raised alerts",
			zap.Int("alerts", len(result.Alerts)),
			zap.Bool("should_retrain", result.Decision.ShouldRetrain),
			zap.Duration("elapsed", elapsed))
	}

	return result, nil
}

func (p *Pipeline) runCycle(ctx context.Context, batch api.ProductionBatch, now time.Time) (*CycleResult, error) {
	// COLLECT: shape is checked once at the ingestion boundary; the
	// detectors assume a structurally valid batch.
	if err := batch.Validate(); err != nil {
		return nil, &CycleError{Stage: StageCollect, Err: err}
	}

	p.baseMu.RLock()
	base := p.base
	perfMon := p.perfMon
	p.baseMu.RUnlock()

	var (
		result     CycleResult
		conceptErr error
		concept    api.DriftVerdict
	)

	// The three detection stages share no mutable state and join before
	// any alert is considered.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, span := p.tracer.Start(gctx, "monitor.data_drift")
		defer span.End()
		result.DataVerdicts, result.Warnings = p.data.Detect(base.Features, batch.Features, p.cfg.PValueThreshold)
		return nil
	})
	g.Go(func() error {
		_, span := p.tracer.Start(gctx, "monitor.concept_drift")
		defer span.End()
		concept, conceptErr = p.concept.Detect(base.Probabilities, batch.Probabilities, p.cfg.PValueThreshold)
		return nil
	})
	g.Go(func() error {
		_, span := p.tracer.Start(gctx, "monitor.performance")
		defer span.End()
		record, err := perfMon.Measure(batch.Labels, batch.Predictions, batch.Probabilities, now)
		if err != nil {
			return err
		}
		result.Performance = record
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, &CycleError{Stage: StagePerformance, Err: err}
	}

	if conceptErr == nil {
		result.ConceptVerdict = &concept
	} else {
		// A too-small probability sample degrades to a data-quality
		// warning rather than aborting the cycle.
		result.Warnings = append(result.Warnings, api.SchemaWarning{
			Feature: api.ConceptFeature,
			Reason:  conceptErr.Error(),
		})
	}
	result.Degradation = perfMon.Degradation(result.Performance)

	// RAISE_ALERTS: evaluation is pure; persistence happens only in the
	// commit block below.
	result.Alerts = p.engine.Evaluate(
		result.DataVerdicts, result.ConceptVerdict,
		&result.Performance, base.Performance, p.cfg, now)

	// DECIDE_RETRAIN over the persisted log plus this cycle's in-memory
	// alerts, so the cycle's full output is known before the first append.
	alertLog, err := p.st.Alerts.List(ctx)
	if err != nil {
		return nil, &CycleError{Stage: StageDecide, Err: err}
	}
	alertLog = append(alertLog, result.Alerts...)
	result.Decision = p.controller.Decide(alertLog, now, p.cfg)

	// Commit. The alert log lands first: a torn commit retried wholesale
	// can duplicate an alert block, but never leaves a performance record
	// or decision without the alerts of its cycle.
	if err := p.st.Alerts.Append(ctx, result.Alerts...); err != nil {
		return nil, &CycleError{Stage: StageAlerts, Err: err}
	}
	if err := perfMon.Commit(ctx, result.Performance); err != nil {
		return nil, &CycleError{Stage: StagePerformance, Err: err}
	}
	if err := p.st.Decisions.Append(ctx, result.Decision); err != nil {
		return nil, &CycleError{Stage: StageDecide, Err: err}
	}

	p.reportMu.Lock()
	p.lastData = result.DataVerdicts
	p.lastConcept = result.ConceptVerdict
	p.lastWarnings = result.Warnings
	decision := result.Decision
	p.lastDecision = &decision
	p.reportMu.Unlock()

	return &result, nil
}

func (p *Pipeline) observe(result *CycleResult, elapsed time.Duration) {
	if p.met == nil {
		return
	}

	p.met.CycleDuration.Observe(elapsed.Seconds())

	drifted := 0
	for _, v := range result.DataVerdicts {
		if v.Drifted {
			drifted++
		}
	}
	p.met.DriftedFeatures.Set(float64(drifted))

	conceptDrift := 0.0
	if result.ConceptVerdict != nil && result.ConceptVerdict.Drifted {
		conceptDrift = 1.0
	}
	p.met.ConceptDrift.Set(conceptDrift)

	if result.Degradation.Min != api.MetricUndefined {
		p.met.DegradationMin.Set(result.Degradation.Min)
	}
	p.met.SchemaWarnings.Add(float64(len(result.Warnings)))

	for _, a := range result.Alerts {
		p.met.AlertsTotal.WithLabelValues(string(a.Severity), string(a.Category)).Inc()
	}
	p.met.RetrainDecisions.WithLabelValues(fmt.Sprintf("%t", result.Decision.ShouldRetrain)).Inc()
}

// RefreshBaseline replaces the baseline snapshot and resets everything
// derived from it. It blocks until any in-flight cycle completes: a cycle
// still running against the old snapshot would otherwise repopulate the
// sorted-baseline cache after the purge.
func (p *Pipeline) RefreshBaseline(base *baseline.Baseline) error {
	if base == nil {
		return fmt.Errorf("baseline is required")
	}
	if err := base.Validate(); err != nil {
		return fmt.Errorf("invalid baseline: %w", err)
	}

	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	p.baseMu.Lock()
	p.base = base
	p.perfMon = perf.NewMonitor(base.Performance, p.st.Performance, p.logger.Named("performance"))
	p.baseMu.Unlock()

	p.data.ResetCache()
	p.logger.Info("baseline refreshed", zap.Time("captured_at", base.CapturedAt))
	return nil
}
