package config

import "fmt"

// Config carries every threshold the pipeline reads. It is passed by value
// into each stage; there is no ambient or global configuration state.
type Config struct {
	// PValueThreshold is the significance level for the two-sample KS test.
	// A verdict is drifted when p < PValueThreshold; it escalates to
	// CRITICAL when p < PValueThreshold/10.
	PValueThreshold float64 `json:"p_value_threshold" mapstructure:"p_value_threshold"`

	// DegradationThreshold is the minimum acceptable production/baseline
	// metric ratio before a WARNING is raised.
	DegradationThreshold float64 `json:"degradation_threshold" mapstructure:"degradation_threshold"`

	// CriticalDegradationDelta widens the WARNING band: the ratio is
	// CRITICAL below DegradationThreshold - CriticalDegradationDelta.
	CriticalDegradationDelta float64 `json:"critical_degradation_delta" mapstructure:"critical_degradation_delta"`

	// MeanShiftThreshold escalates a concept-drift WARNING to CRITICAL
	// when the absolute prediction mean shift exceeds it.
	MeanShiftThreshold float64 `json:"mean_shift_threshold" mapstructure:"mean_shift_threshold"`

	// CriticalAlertThreshold is the number of CRITICAL alerts inside the
	// lookback window that triggers retraining.
	CriticalAlertThreshold int `json:"critical_alert_threshold" mapstructure:"critical_alert_threshold"`

	// LookbackHours is the trailing window (boundary inclusive) scoped by
	// the retraining controller.
	LookbackHours int `json:"lookback_hours" mapstructure:"lookback_hours"`
}

// DefaultConfig returns the documented production defaults.
func DefaultConfig() Config {
	return Config{
		PValueThreshold:          0.05,
		DegradationThreshold:     0.90,
		CriticalDegradationDelta: 0.10,
		MeanShiftThreshold:       0.10,
		CriticalAlertThreshold:   1,
		LookbackHours:            24,
	}
}

// ValidationError reports a configuration field outside its legal range.
// Configuration errors are fatal at startup: a cycle never runs with an
// invalid Config.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// Validate checks all thresholds. The first violation is returned.
func (c Config) Validate() error {
	if c.PValueThreshold <= 0 || c.PValueThreshold >= 1 {
		return &ValidationError{"p_value_threshold", fmt.Sprintf("must be in (0,1), got %g", c.PValueThreshold)}
	}
	if c.DegradationThreshold <= 0 || c.DegradationThreshold > 1 {
		return &ValidationError{"degradation_threshold", fmt.Sprintf("must be in (0,1], got %g", c.DegradationThreshold)}
	}
	if c.CriticalDegradationDelta < 0 || c.CriticalDegradationDelta >= c.DegradationThreshold {
		return &ValidationError{"critical_degradation_delta",
			fmt.Sprintf("must be in [0, degradation_threshold), got %g", c.CriticalDegradationDelta)}
	}
	if c.MeanShiftThreshold < 0 || c.MeanShiftThreshold > 1 {
		return &ValidationError{"mean_shift_threshold", fmt.Sprintf("must be in [0,1], got %g", c.MeanShiftThreshold)}
	}
	if c.CriticalAlertThreshold < 1 {
		return &ValidationError{"critical_alert_threshold", fmt.Sprintf("must be >= 1, got %d", c.CriticalAlertThreshold)}
	}
	if c.LookbackHours < 1 {
		return &ValidationError{"lookback_hours", fmt.Sprintf("must be >= 1, got %d", c.LookbackHours)}
	}
	return nil
}
