package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/driftlab/driftwatch/internal/api"
	"github.com/driftlab/driftwatch/internal/baseline"
	"github.com/driftlab/driftwatch/internal/config"
	"github.com/driftlab/driftwatch/internal/monitor"
	"github.com/driftlab/driftwatch/internal/source"
	"github.com/driftlab/driftwatch/internal/store"
)

var (
	// Global flags
	configFile string
	dataDir    string
	verbose    bool

	// Command flags
	baselinePath string
	batchPath    string
	inputPath    string
	outPath      string
	severityStr  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "driftwatch",
		Short: "Model monitoring pipeline: drift detection, performance tracking, retraining decisions",
		Long: `Offline driver for the model monitoring pipeline.
Runs monitoring cycles over spooled production batches, captures reference
baselines, and inspects the persisted alert and decision history.`,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Monitor config file (YAML/JSON)")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "data/store", "Result store directory")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(captureCmd())
	rootCmd.AddCommand(alertsCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(historyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// runCmd runs one full monitoring cycle over a single batch file.
func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one monitoring cycle over a production batch",
		Long: `Loads the reference baseline, runs drift detection and performance
monitoring over one production batch file, appends results to the store, and
prints the cycle report.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			logger := newLogger()

			cfg, err := config.Load(configFile, logger)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			base, err := baseline.Load(baselinePath)
			if err != nil {
				return fmt.Errorf("failed to load baseline: %w", err)
			}

			st, err := store.NewFileStore(dataDir)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			pipeline, err := monitor.New(cfg, base, st, monitor.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("failed to build pipeline: %w", err)
			}

			batch, err := source.ReadBatchFile(batchPath)
			if err != nil {
				return fmt.Errorf("failed to read batch: %w", err)
			}

			result, err := pipeline.RunCycle(ctx, *batch)
			if err != nil {
				return fmt.Errorf("cycle failed: %w", err)
			}

			printCycleReport(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&baselinePath, "baseline", "data/baseline.json", "Baseline snapshot file")
	cmd.Flags().StringVar(&batchPath, "batch", "", "Production batch file (JSON)")
	cmd.MarkFlagRequired("batch")

	return cmd
}

// captureCmd freezes a reference baseline from a labeled batch.
func captureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture a reference baseline from a labeled batch",
		Long: `Reads a labeled reference batch (same JSON shape as a production batch)
and freezes its feature distributions, probability sample, and performance
metrics as the monitoring baseline.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := source.ReadBatchFile(inputPath)
			if err != nil {
				return fmt.Errorf("failed to read reference batch: %w", err)
			}

			features := make(map[string][]float64, len(batch.Features))
			for name, values := range batch.Features {
				features[name] = values
			}

			base, err := baseline.Capture(features, batch.Labels, batch.Predictions,
				batch.Probabilities, time.Now().UTC())
			if err != nil {
				return fmt.Errorf("capture failed: %w", err)
			}

			if err := base.Save(outPath); err != nil {
				return fmt.Errorf("failed to save baseline: %w", err)
			}

			fmt.Printf("=== Baseline Captured ===\n")
			fmt.Printf("Features: %d\n", len(base.Features))
			fmt.Printf("Samples: %d\n", base.Performance.SampleCount)
			printRecord("Reference performance", base.Performance)
			fmt.Printf("\nSaved to %s\n", outPath)

			return nil
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "Labeled reference batch file (JSON)")
	cmd.Flags().StringVar(&outPath, "out", "data/baseline.json", "Output baseline file")
	cmd.MarkFlagRequired("input")

	return cmd
}

// alertsCmd lists the persisted alert history.
func alertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List the alert history (oldest first)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			st, err := store.NewFileStore(dataDir)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			alerts, err := st.Alerts.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list alerts: %w", err)
			}

			shown := 0
			for _, a := range alerts {
				if severityStr != "" && string(a.Severity) != severityStr {
					continue
				}
				fmt.Printf("%s  %-8s  %-23s  %s\n",
					a.Timestamp.Format(time.RFC3339), a.Severity, a.Category, a.Message)
				shown++
			}
			fmt.Printf("\n%d alerts (%d total)\n", shown, len(alerts))

			return nil
		},
	}

	cmd.Flags().StringVar(&severityStr, "severity", "", "Filter by severity (WARNING or CRITICAL)")

	return cmd
}

// statusCmd shows the most recent retraining decision and performance.
func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the latest retraining decision and production performance",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			st, err := store.NewFileStore(dataDir)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			fmt.Printf("=== Monitoring Status ===\n")

			decisions, err := st.Decisions.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list decisions: %w", err)
			}
			if len(decisions) == 0 {
				fmt.Printf("No retraining decisions recorded (no cycle has run)\n")
			} else {
				d := decisions[len(decisions)-1]
				fmt.Printf("Last decision: %s\n", d.Timestamp.Format(time.RFC3339))
				fmt.Printf("Should retrain: %v\n", d.ShouldRetrain)
				fmt.Printf("Critical alerts in window: %d\n", d.CriticalCount)
				fmt.Printf("Reason: %s\n", d.Reason)
			}

			records, err := st.Performance.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list performance history: %w", err)
			}
			if len(records) > 0 {
				fmt.Printf("\n")
				printRecord("Latest production performance", records[len(records)-1])
			}

			return nil
		},
	}
}

// historyCmd prints the production performance history.
func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show production performance history (oldest first)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			st, err := store.NewFileStore(dataDir)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			records, err := st.Performance.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list performance history: %w", err)
			}

			fmt.Printf("%-25s %9s %9s %9s %9s %8s\n",
				"TIMESTAMP", "ACCURACY", "PRECISION", "RECALL", "ROC-AUC", "SAMPLES")
			for _, r := range records {
				fmt.Printf("%-25s %9s %9s %9s %9s %8d\n",
					r.Timestamp.Format(time.RFC3339),
					formatMetric(r.Accuracy), formatMetric(r.Precision),
					formatMetric(r.Recall), formatMetric(r.RocAUC), r.SampleCount)
			}
			fmt.Printf("\n%d records\n", len(records))

			return nil
		},
	}
}

func printCycleReport(result *monitor.CycleResult) {
	fmt.Printf("=== Monitoring Cycle Report ===\n\n")

	fmt.Printf("Data drift (ascending p-value):\n")
	for _, v := range result.DataVerdicts {
		marker := " "
		if v.Drifted {
			marker = "*"
		}
		fmt.Printf("  %s %-20s KS=%.4f p=%.6f (n=%d vs %d)\n",
			marker, v.Feature, v.Statistic, v.PValue, v.BaselineN, v.ProductionN)
	}

	if result.ConceptVerdict != nil {
		v := result.ConceptVerdict
		fmt.Printf("\nConcept drift: drifted=%v KS=%.4f p=%.6f mean shift=%+.4f\n",
			v.Drifted, v.Statistic, v.PValue, v.MeanShift)
	}

	fmt.Printf("\n")
	printRecord("Production performance", result.Performance)
	fmt.Printf("Worst degradation: %s (ratio %.4f)\n",
		result.Degradation.WorstMetric, result.Degradation.Min)

	if len(result.Warnings) > 0 {
		fmt.Printf("\nSchema warnings:\n")
		for _, w := range result.Warnings {
			fmt.Printf("  - %s\n", w)
		}
	}

	fmt.Printf("\nAlerts raised: %d\n", len(result.Alerts))
	for _, a := range result.Alerts {
		fmt.Printf("  [%s] %s: %s\n", a.Severity, a.Category, a.Message)
	}

	fmt.Printf("\nRetraining: should_retrain=%v (%s)\n",
		result.Decision.ShouldRetrain, result.Decision.Reason)
}

func printRecord(title string, r api.PerformanceRecord) {
	fmt.Printf("%s:\n", title)
	fmt.Printf("  accuracy=%s precision=%s recall=%s roc_auc=%s\n",
		formatMetric(r.Accuracy), formatMetric(r.Precision),
		formatMetric(r.Recall), formatMetric(r.RocAUC))
}

func formatMetric(v float64) string {
	if v == api.MetricUndefined {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}
