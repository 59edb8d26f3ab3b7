package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fenwick-run/agentctl/internal/config"
	"github.com/fenwick-run/agentctl/pkg/telemetry"
)

var telemetryCmd = &cobra.Command{
	Use:   "telemetry",
	Short: "Inspect the durable telemetry store",
}

var telemetryScoreboardCmd = &cobra.Command{
	Use:   "scoreboard",
	Short: "Print the routing scoreboard over the configured lookback window",
	RunE:  runTelemetryScoreboard,
}

var telemetryRegressionsCmd = &cobra.Command{
	Use:   "regressions",
	Short: "Detect latency and failure-rate regressions against a baseline window",
	RunE:  runTelemetryRegressions,
}

func init() {
	rootCmd.AddCommand(telemetryCmd)
	telemetryCmd.AddCommand(telemetryScoreboardCmd)
	telemetryCmd.AddCommand(telemetryRegressionsCmd)
}

func loadConfig() (*config.Config, error) {
	return config.NewLoader(cfgFile).Load()
}

func runTelemetryScoreboard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := telemetry.OpenStore(cfg.Stores.TelemetryDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	rows, err := store.BuildRoutingScoreboard(time.Now().UnixMilli(), cfg.Telemetry.RegressionCurrentHrs)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		fmt.Println("no telemetry recorded in the lookback window")
		return nil
	}

	for _, row := range rows {
		fmt.Printf("%-12s %-12s calls=%-6d failRate=%.2f%% p50=%.0fms p95=%.0fms p99=%.0fms\n",
			row.ModelID, row.Role, row.CallCount, row.FailureRate*100, row.P50LatencyMs, row.P95LatencyMs, row.P99LatencyMs)
	}
	return nil
}

func runTelemetryRegressions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := telemetry.OpenStore(cfg.Stores.TelemetryDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	thresholds := telemetry.RegressionThresholds{
		LatencyP95Ms:       cfg.Telemetry.LatencyP95ThresholdMs,
		FailureRatePercent: cfg.Telemetry.FailureRateThreshold,
	}

	regressions, err := store.DetectRegressions(
		time.Now().UnixMilli(),
		cfg.Telemetry.RegressionBaselineHrs,
		cfg.Telemetry.RegressionCurrentHrs,
		thresholds,
	)
	if err != nil {
		return err
	}

	if len(regressions) == 0 {
		fmt.Println("no regressions detected")
		return nil
	}

	for _, r := range regressions {
		fmt.Printf("[%s] %s/%s latencyΔ=%.0fms failRateΔ=%.2fpp\n", r.Severity, r.ModelID, r.Role, r.LatencyChangeMs, r.FailRateChangePP)
	}
	return nil
}
