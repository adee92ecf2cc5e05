package monitor

import "fmt"

// Stage names one step of the monitoring cycle state machine:
// COLLECT -> DETECT_DATA_DRIFT / DETECT_CONCEPT_DRIFT / MEASURE_PERFORMANCE
// -> RAISE_ALERTS -> DECIDE_RETRAIN -> DONE.
type Stage string

const (
	StageCollect      Stage = "COLLECT"
	StageDataDrift    Stage = "DETECT_DATA_DRIFT"
	StageConceptDrift Stage = "DETECT_CONCEPT_DRIFT"
	StagePerformance  Stage = "MEASURE_PERFORMANCE"
	StageAlerts       Stage = "RAISE_ALERTS"
	StageDecide       Stage = "DECIDE_RETRAIN"
)

// CycleError reports which stage aborted a monitoring cycle. A failed
// cycle emits nothing: no partial alert set, no performance record, no
// decision. The caller may retry the whole cycle on its next tick.
type CycleError struct {
	Stage Stage
	Err   error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("monitoring cycle aborted at %s: %v", e.Stage, e.Err)
}

func (e *CycleError) Unwrap() error {
	return e.Err
}
