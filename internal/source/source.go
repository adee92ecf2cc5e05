package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/driftlab/driftwatch/internal/api"
)

// ReadBatchFile decodes one production batch from a JSON file.
func ReadBatchFile(path string) (*api.ProductionBatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	var batch api.ProductionBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("failed to unmarshal batch %s: %w", path, err)
	}
	return &batch, nil
}

// DirectorySource delivers production batches dropped into a spool
// directory as *.json files. Files already present at startup are delivered
// first in name order; new files are picked up via fsnotify. Each file is
// delivered at most once per process; a file that does not yet parse (still
// being written) is skipped and retried on its next write event.
type DirectorySource struct {
	dir     string
	logger  *zap.Logger
	watcher *fsnotify.Watcher

	mu   sync.Mutex
	seen map[string]bool
}

func NewDirectorySource(dir string, logger *zap.Logger) (*DirectorySource, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &DirectorySource{
		dir:     dir,
		logger:  logger,
		watcher: watcher,
		seen:    make(map[string]bool),
	}, nil
}

// Batches returns a channel of incoming batches. The channel closes when
// ctx is cancelled or the source is closed. Malformed files are logged and
// skipped; they never abort the stream.
func (s *DirectorySource) Batches(ctx context.Context) <-chan api.ProductionBatch {
	out := make(chan api.ProductionBatch)

	go func() {
		defer close(out)

		// Drain anything already spooled before watching for more.
		for _, path := range s.pending() {
			if !s.deliver(ctx, path, out) {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-s.watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
					continue
				}
				if !s.deliver(ctx, event.Name, out) {
					return
				}
			case err, ok := <-s.watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("spool watcher error", zap.Error(err))
			}
		}
	}()

	return out
}

// Close stops the watcher; a running Batches goroutine drains and exits.
func (s *DirectorySource) Close() error {
	return s.watcher.Close()
}

func (s *DirectorySource) pending() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("failed to scan spool directory", zap.Error(err))
		return nil
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, e.Name()))
	}
	sort.Strings(paths)
	return paths
}

// deliver reads, marks and sends one spooled file. A file is marked seen
// only once it parses, so a file observed mid-write is retried on its next
// write event instead of being lost. Returns false when the stream should
// stop.
func (s *DirectorySource) deliver(ctx context.Context, path string, out chan<- api.ProductionBatch) bool {
	if !strings.HasSuffix(path, ".json") {
		return true
	}

	s.mu.Lock()
	seen := s.seen[path]
	s.mu.Unlock()
	if seen {
		return true
	}

	batch, err := ReadBatchFile(path)
	if err != nil {
		s.logger.Warn("skipping malformed batch file", zap.String("path", path), zap.Error(err))
		return true
	}

	s.mu.Lock()
	s.seen[path] = true
	s.mu.Unlock()

	s.logger.Info("batch spooled", zap.String("path", path), zap.Int("samples", len(batch.Labels)))
	select {
	case out <- *batch:
		return true
	case <-ctx.Done():
		return false
	}
}
