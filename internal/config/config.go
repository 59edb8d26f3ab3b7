package config

import (
	"encoding/json"
	"fmt"
)

// Config is the top-level configuration surface for the orchestrator
// core. It is deliberately narrow: no channel, webhook, or Telegram
// sections, since those remain out-of-scope external collaborators.
type Config struct {
	DataDir   string          `json:"data_dir" mapstructure:"data_dir"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
	Context   ContextConfig   `json:"context" mapstructure:"context"`
	Compact   CompactConfig   `json:"compact" mapstructure:"compact"`
	Telemetry TelemetryConfig `json:"telemetry" mapstructure:"telemetry"`
	Stores    StoresConfig    `json:"stores" mapstructure:"stores"`
}

// LoggingConfig configures the zerolog-based logging sink.
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// ContextConfig holds the context window size and budget ratio overrides
// consumed by the Context Budgeter.
type ContextConfig struct {
	WindowTokens   int                `json:"window_tokens" mapstructure:"window_tokens"`
	BudgetRatios   map[string]float64 `json:"budget_ratios" mapstructure:"budget_ratios"`
	MinRecentTurns int                `json:"min_recent_turns" mapstructure:"min_recent_turns"`
}

// CompactConfig holds the Session Auto-Compact Guard defaults.
type CompactConfig struct {
	Enabled               bool    `json:"enabled" mapstructure:"enabled"`
	ThresholdContextRatio float64 `json:"threshold_context_ratio" mapstructure:"threshold_context_ratio"`
	MinIntervalMs         int64   `json:"min_interval_ms" mapstructure:"min_interval_ms"`
}

// TelemetryConfig holds the durable Telemetry Store's retention policy
// and regression-detection thresholds.
type TelemetryConfig struct {
	RetentionDays         int     `json:"retention_days" mapstructure:"retention_days"`
	CleanupCronExpr       string  `json:"cleanup_cron_expr" mapstructure:"cleanup_cron_expr"`
	RegressionBaselineHrs int     `json:"regression_baseline_hours" mapstructure:"regression_baseline_hours"`
	RegressionCurrentHrs  int     `json:"regression_current_hours" mapstructure:"regression_current_hours"`
	LatencyP95ThresholdMs float64 `json:"latency_p95_threshold_ms" mapstructure:"latency_p95_threshold_ms"`
	FailureRateThreshold  float64 `json:"failure_rate_threshold_percent" mapstructure:"failure_rate_threshold_percent"`
}

// StoresConfig holds the on-disk paths for the lock-serialized JSON
// stores and telemetry database.
type StoresConfig struct {
	SessionStorePath string `json:"session_store_path" mapstructure:"session_store_path"`
	AuthStorePath    string `json:"auth_store_path" mapstructure:"auth_store_path"`
	TelemetryDBPath  string `json:"telemetry_db_path" mapstructure:"telemetry_db_path"`
}

// DefaultConfig returns a Config with conservative defaults for every
// section. Store paths are left empty; the Loader fills them relative
// to DataDir.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		Context: ContextConfig{
			WindowTokens: 200000,
			BudgetRatios: map[string]float64{
				"system_prompt":  0.20,
				"hot_state":      0.00,
				"history":        0.50,
				"tool_results":   0.15,
				"output_reserve": 0.15,
			},
			MinRecentTurns: 4,
		},
		Compact: CompactConfig{
			Enabled:               false,
			ThresholdContextRatio: 0.5,
			MinIntervalMs:         600000,
		},
		Telemetry: TelemetryConfig{
			RetentionDays:         30,
			CleanupCronExpr:       "0 3 * * *",
			RegressionBaselineHrs: 168,
			RegressionCurrentHrs:  24,
			LatencyP95ThresholdMs: 50,
			FailureRateThreshold:  10,
		},
	}
}

// String returns a JSON representation of the config, for diagnostics.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks internal consistency of the loaded configuration.
func (c *Config) Validate() error {
	if c.Context.WindowTokens <= 0 {
		return fmt.Errorf("context.window_tokens must be positive")
	}
	if c.Context.MinRecentTurns < 0 {
		return fmt.Errorf("context.min_recent_turns must be non-negative")
	}

	var ratioSum float64
	for name, ratio := range c.Context.BudgetRatios {
		if ratio < 0 {
			return fmt.Errorf("context.budget_ratios[%s] must be non-negative", name)
		}
		ratioSum += ratio
	}
	if ratioSum > 1.0+1e-9 {
		return fmt.Errorf("context.budget_ratios sum to %.4f, must not exceed 1.0", ratioSum)
	}

	if c.Compact.ThresholdContextRatio < 0 || c.Compact.ThresholdContextRatio > 1 {
		return fmt.Errorf("compact.threshold_context_ratio must be within [0,1]")
	}
	if c.Compact.MinIntervalMs < 0 {
		return fmt.Errorf("compact.min_interval_ms must be non-negative")
	}

	if c.Telemetry.RetentionDays <= 0 {
		return fmt.Errorf("telemetry.retention_days must be positive")
	}

	return nil
}
