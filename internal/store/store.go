package store

import (
	"context"

	"github.com/driftlab/driftwatch/internal/api"
)

// Log is an append-only, ordered record log. One Append call is atomic:
// either every record lands, in order, or none do. Records are never
// mutated or removed. Callers must serialize appends per log (single-writer
// discipline) to preserve ordering.
type Log[T any] interface {
	Append(ctx context.Context, records ...T) error
	List(ctx context.Context) ([]T, error)
}

// Store bundles the three persistent logs of a monitoring deployment:
// the alert log, the performance history, and the retraining decision
// history. The core pipeline depends only on the Log interfaces, never on
// a concrete backend.
type Store struct {
	Alerts      Log[api.Alert]
	Performance Log[api.PerformanceRecord]
	Decisions   Log[api.RetrainDecision]

	closeFn func() error
}

// Close releases backend resources (file handles, connection pools).
func (s *Store) Close() error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}
