package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/driftlab/driftwatch/internal/api"
)

// FileLog is a JSON-lines append-only log: one record per line, written
// with a single fsynced write per Append so a batch of records lands
// atomically with respect to crashes between Appends.
type FileLog[T any] struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// NewFileLog opens or creates a JSON-lines log at path.
func NewFileLog[T any](path string) (*FileLog[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &FileLog[T]{file: file, path: path}, nil
}

func (f *FileLog[T]) Append(ctx context.Context, records ...T) error {
	if len(records) == 0 {
		return nil
	}

	var buf strings.Builder
	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.file.WriteString(buf.String()); err != nil {
		return fmt.Errorf("failed to write log entry: %w", err)
	}
	if err := f.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync log: %w", err)
	}
	return nil
}

func (f *FileLog[T]) List(ctx context.Context) ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var records []T
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r T
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("corrupt log line in %s: %w", f.path, err)
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Close flushes and closes the underlying file.
func (f *FileLog[T]) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.file.Sync(); err != nil {
		return err
	}
	return f.file.Close()
}

// NewFileStore builds a Store over JSON-lines logs under dir
// (alerts.jsonl, performance.jsonl, decisions.jsonl).
func NewFileStore(dir string) (*Store, error) {
	alerts, err := NewFileLog[api.Alert](filepath.Join(dir, "alerts.jsonl"))
	if err != nil {
		return nil, err
	}
	perf, err := NewFileLog[api.PerformanceRecord](filepath.Join(dir, "performance.jsonl"))
	if err != nil {
		alerts.Close()
		return nil, err
	}
	decisions, err := NewFileLog[api.RetrainDecision](filepath.Join(dir, "decisions.jsonl"))
	if err != nil {
		alerts.Close()
		perf.Close()
		return nil, err
	}

	return &Store{
		Alerts:      alerts,
		Performance: perf,
		Decisions:   decisions,
		closeFn: func() error {
			var firstErr error
			for _, c := range []interface{ Close() error }{alerts, perf, decisions} {
				if err := c.Close(); err != nil && firstErr == nil {
					firstErr = err
				}
			}
			return firstErr
		},
	}, nil
}
