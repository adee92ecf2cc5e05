package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/driftlab/driftwatch/internal/baseline"
	"github.com/driftlab/driftwatch/internal/config"
	"github.com/driftlab/driftwatch/internal/metrics"
	"github.com/driftlab/driftwatch/internal/monitor"
	"github.com/driftlab/driftwatch/internal/source"
	"github.com/driftlab/driftwatch/internal/store"
	"github.com/driftlab/driftwatch/pkg/otel"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(getEnv("DW_CONFIG", ""), logger)
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	// Setup result store
	backend := getEnv("DW_STORE_BACKEND", "memory")
	var st *store.Store

	switch backend {
	case "memory":
		st, err = store.NewMemoryStore(getEnv("DW_SNAPSHOT_DIR", ""))
	case "file":
		st, err = store.NewFileStore(getEnv("DW_DATA_DIR", "data/store"))
	case "redis":
		addr := getEnv("DW_REDIS_ADDR", "localhost:6379")
		db := getEnvInt("DW_REDIS_DB", 0)
		st, err = store.NewRedisStore(addr, getEnv("DW_REDIS_PASSWORD", ""), db)
	case "postgres":
		connStr := getEnv("DW_POSTGRES_CONN", "")
		st, err = store.NewPostgresStore(context.Background(), connStr)
	default:
		logger.Fatal("unknown DW_STORE_BACKEND", zap.String("backend", backend))
	}
	if err != nil {
		logger.Fatal("failed to create store", zap.String("backend", backend), zap.Error(err))
	}

	// Load reference baseline
	baselinePath := getEnv("DW_BASELINE", "data/baseline.json")
	base, err := baseline.Load(baselinePath)
	if err != nil {
		logger.Fatal("failed to load baseline", zap.String("path", baselinePath), zap.Error(err))
	}

	// Setup tracing (optional)
	var tp *sdktrace.TracerProvider
	if endpoint := getEnv("DW_OTEL_ENDPOINT", ""); endpoint != "" {
		otelCfg := otel.DefaultConfig("driftwatch-monitord")
		otelCfg.CollectorEndpoint = endpoint
		tp, err = otel.InitTracer(context.Background(), otelCfg)
		if err != nil {
			logger.Fatal("failed to init tracer", zap.Error(err))
		}
	}

	// Setup metrics
	m := metrics.New(prometheus.DefaultRegisterer)

	pipeline, err := monitor.New(cfg, base, st,
		monitor.WithLogger(logger),
		monitor.WithMetrics(m),
	)
	if err != nil {
		logger.Fatal("failed to build pipeline", zap.Error(err))
	}

	// Batch spool directory
	spoolDir := getEnv("DW_SPOOL_DIR", "data/spool")
	src, err := source.NewDirectorySource(spoolDir, logger)
	if err != nil {
		logger.Fatal("failed to watch spool directory", zap.String("dir", spoolDir), zap.Error(err))
	}

	// Rate limiter caps how fast spooled batches are drained
	cycleRate := getEnvInt("DW_CYCLE_RATE", 10)
	limiter := rate.NewLimiter(rate.Limit(cycleRate), cycleRate*2)

	// Observability endpoints
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", handleHealth)

	port := getEnv("DW_PORT", "9090")
	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("metrics endpoint listening", zap.String("port", port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// SIGHUP swaps in a freshly captured baseline without a restart.
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	go func() {
		for range reload {
			fresh, err := baseline.Load(baselinePath)
			if err != nil {
				logger.Error("baseline reload failed", zap.String("path", baselinePath), zap.Error(err))
				continue
			}
			if err := pipeline.RefreshBaseline(fresh); err != nil {
				logger.Error("baseline refresh rejected", zap.Error(err))
				continue
			}
			logger.Info("baseline reloaded", zap.String("path", baselinePath))
		}
	}()

	logger.Info("monitor started",
		zap.String("store_backend", backend),
		zap.String("spool_dir", spoolDir),
		zap.Float64("p_value_threshold", cfg.PValueThreshold),
		zap.Float64("degradation_threshold", cfg.DegradationThreshold),
	)

	batches := src.Batches(ctx)

loop:
	for {
		select {
		case <-shutdown:
			break loop
		case batch, ok := <-batches:
			if !ok {
				break loop
			}
			if err := limiter.Wait(ctx); err != nil {
				break loop
			}
			result, err := pipeline.RunCycle(ctx, batch)
			if err != nil {
				logger.Error("monitoring cycle failed", zap.Error(err))
				continue
			}
			logger.Info("monitoring cycle complete",
				zap.Int("alerts", len(result.Alerts)),
				zap.Int("schema_warnings", len(result.Warnings)),
				zap.Bool("should_retrain", result.Decision.ShouldRetrain),
			)
		}
	}

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", zap.Error(err))
	}
	if err := src.Close(); err != nil {
		logger.Warn("error closing batch source", zap.Error(err))
	}
	if err := st.Close(); err != nil {
		logger.Warn("error closing store", zap.Error(err))
	}
	if err := otel.Shutdown(shutdownCtx, tp); err != nil {
		logger.Warn("error flushing traces", zap.Error(err))
	}

	logger.Info("monitor stopped")
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
