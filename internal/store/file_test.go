package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftlab/driftwatch/internal/api"
)

func TestFileLog_AppendListRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.jsonl")
	ctx := context.Background()

	log, err := NewFileLog[api.Alert](path)
	require.NoError(t, err)

	records, err := log.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, log.Append(ctx, api.Alert{ID: "a1", Severity: api.SeverityWarning}))
	require.NoError(t, log.Append(ctx,
		api.Alert{ID: "a2", Severity: api.SeverityCritical},
		api.Alert{ID: "a3", Severity: api.SeverityWarning},
	))

	records, err = log.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "a1", records[0].ID)
	assert.Equal(t, "a3", records[2].ID)

	require.NoError(t, log.Close())
}

func TestFileLog_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.jsonl")
	ctx := context.Background()

	log, err := NewFileLog[api.RetrainDecision](path)
	require.NoError(t, err)
	require.NoError(t, log.Append(ctx, api.RetrainDecision{ID: "d1", ShouldRetrain: true, CriticalCount: 2}))
	require.NoError(t, log.Close())

	reopened, err := NewFileLog[api.RetrainDecision](path)
	require.NoError(t, err)
	defer reopened.Close()

	require.NoError(t, reopened.Append(ctx, api.RetrainDecision{ID: "d2"}))

	records, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "d1", records[0].ID)
	assert.True(t, records[0].ShouldRetrain)
	assert.Equal(t, "d2", records[1].ID)
}

func TestFileLog_CorruptLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{not json\n"), 0644))

	log, err := NewFileLog[api.Alert](path)
	require.NoError(t, err)
	defer log.Close()

	_, err = log.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt log line")
}

func TestNewFileStore(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	st, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, st.Alerts.Append(ctx, api.Alert{ID: "a1"}))
	require.NoError(t, st.Performance.Append(ctx, api.PerformanceRecord{SampleCount: 50}))
	require.NoError(t, st.Decisions.Append(ctx, api.RetrainDecision{ID: "d1"}))
	require.NoError(t, st.Close())

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	perf, err := reopened.Performance.List(ctx)
	require.NoError(t, err)
	require.Len(t, perf, 1)
	assert.Equal(t, 50, perf[0].SampleCount)
}
