package drift

import "fmt"

// InsufficientDataError marks a sample pair too small for a valid KS test.
// It is a recoverable, stage-local condition: the feature is skipped with a
// diagnostic instead of aborting the cycle.
type InsufficientDataError struct {
	Feature     string
	BaselineN   int
	ProductionN int
}

func (e *InsufficientDataError) Error() string {
	if e.Feature != "" {
		return fmt.Sprintf("insufficient data for feature %q: baseline=%d production=%d (need >= %d each)",
			e.Feature, e.BaselineN, e.ProductionN, MinSamples)
	}
	return fmt.Sprintf("insufficient data: baseline=%d production=%d (need >= %d each)",
		e.BaselineN, e.ProductionN, MinSamples)
}
