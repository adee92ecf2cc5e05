package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Load reads configuration from an optional YAML file and DW_* environment
// overrides, on top of DefaultConfig. A missing file falls back to defaults;
// an invalid value is fatal.
func Load(path string, logger *zap.Logger) (Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	v := viper.New()
	v.SetEnvPrefix("DW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("p_value_threshold", defaults.PValueThreshold)
	v.SetDefault("degradation_threshold", defaults.DegradationThreshold)
	v.SetDefault("critical_degradation_delta", defaults.CriticalDegradationDelta)
	v.SetDefault("mean_shift_threshold", defaults.MeanShiftThreshold)
	v.SetDefault("critical_alert_threshold", defaults.CriticalAlertThreshold)
	v.SetDefault("lookback_hours", defaults.LookbackHours)

	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			logger.Warn("config file not found, using defaults", zap.String("path", path))
		} else {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("failed to read config file: %w", err)
			}
			logger.Info("configuration loaded", zap.String("file", v.ConfigFileUsed()))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
