package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/driftlab/driftwatch/internal/api"
)

// MemoryLog is an in-memory append-only log with an optional JSON snapshot
// file. The snapshot is written synchronously under the write lock, so the
// on-disk order always matches the append order.
type MemoryLog[T any] struct {
	mu       sync.RWMutex
	records  []T
	snapshot string
}

// NewMemoryLog creates a memory log. When snapshotPath is non-empty, an
// existing snapshot is loaded and every append rewrites it.
func NewMemoryLog[T any](snapshotPath string) (*MemoryLog[T], error) {
	ml := &MemoryLog[T]{snapshot: snapshotPath}
	if snapshotPath != "" {
		if err := ml.loadSnapshot(); err != nil {
			return nil, err
		}
	}
	return ml, nil
}

func (m *MemoryLog[T]) Append(ctx context.Context, records ...T) error {
	if len(records) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, records...)
	if m.snapshot != "" {
		if err := m.saveSnapshot(); err != nil {
			// Roll back so a failed persist never leaves memory and
			// disk disagreeing about what was emitted.
			m.records = m.records[:len(m.records)-len(records)]
			return err
		}
	}
	return nil
}

func (m *MemoryLog[T]) List(ctx context.Context) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]T, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *MemoryLog[T]) loadSnapshot() error {
	data, err := os.ReadFile(m.snapshot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal(data, &m.records); err != nil {
		return fmt.Errorf("failed to unmarshal snapshot %s: %w", m.snapshot, err)
	}
	return nil
}

func (m *MemoryLog[T]) saveSnapshot() error {
	data, err := json.MarshalIndent(m.records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.snapshot, data, 0600)
}

// NewMemoryStore builds a Store over in-memory logs. When dir is non-empty
// each log keeps a JSON snapshot under it (alerts.json, performance.json,
// decisions.json).
func NewMemoryStore(dir string) (*Store, error) {
	var alertPath, perfPath, decisionPath string
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
		}
		alertPath = filepath.Join(dir, "alerts.json")
		perfPath = filepath.Join(dir, "performance.json")
		decisionPath = filepath.Join(dir, "decisions.json")
	}

	alerts, err := NewMemoryLog[api.Alert](alertPath)
	if err != nil {
		return nil, err
	}
	perf, err := NewMemoryLog[api.PerformanceRecord](perfPath)
	if err != nil {
		return nil, err
	}
	decisions, err := NewMemoryLog[api.RetrainDecision](decisionPath)
	if err != nil {
		return nil, err
	}

	return &Store{Alerts: alerts, Performance: perf, Decisions: decisions}, nil
}
