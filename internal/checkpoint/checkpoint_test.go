package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	return NewStore(dir, hclog.NewNullLogger()), dir
}

func TestInitializeAndLoad(t *testing.T) {
	store, _ := newTestStore(t)
	started := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	require.NoError(t, store.Initialize("audit-123", "full", started))

	cp, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, "audit-123", cp.AuditID)
	assert.Equal(t, "full", cp.Mode)
	assert.Equal(t, started, cp.StartedAt)
	assert.Empty(t, cp.CompletedStages)
	assert.Empty(t, cp.Stages)
}

func TestLoadMissingCheckpoint(t *testing.T) {
	store, _ := newTestStore(t)
	cp, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, cp)
}

func TestStageLifecycle(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Initialize("audit-123", "full", time.Now()))

	require.NoError(t, store.StartStage("preflight"))
	cp, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "preflight", cp.CurrentStage)
	assert.Equal(t, "running", cp.Stages["preflight"].Status)

	require.NoError(t, store.CompleteStage("preflight", map[string]string{"artifact": "stages/preflight.json"}))
	cp, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"preflight"}, cp.CompletedStages)
	assert.Equal(t, "completed", cp.Stages["preflight"].Status)
	assert.Equal(t, "stages/preflight.json", cp.Stages["preflight"].Outputs["artifact"])

	// Completing twice is idempotent.
	require.NoError(t, store.CompleteStage("preflight", nil))
	cp, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"preflight"}, cp.CompletedStages)

	require.NoError(t, store.StartStage("code-scan"))
	require.NoError(t, store.FailStage("code-scan", "analyzer crashed"))
	cp, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "failed", cp.Stages["code-scan"].Status)
	assert.Equal(t, "analyzer crashed", cp.Stages["code-scan"].Error)
	assert.NotContains(t, cp.CompletedStages, "code-scan")
}

func TestUpdateWithoutInitializeFails(t *testing.T) {
	store, _ := newTestStore(t)
	err := store.StartStage("preflight")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}

func TestControlFlags(t *testing.T) {
	store, dir := newTestStore(t)

	assert.False(t, store.CheckStopFlag())
	assert.False(t, store.CheckPauseFlag())
	assert.False(t, store.CheckContinueFlag())

	require.NoError(t, os.WriteFile(filepath.Join(dir, StopFlagFile), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, PauseFlagFile), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ContinueFlagFile), nil, 0644))

	assert.True(t, store.CheckStopFlag())
	assert.True(t, store.CheckPauseFlag())
	assert.True(t, store.CheckContinueFlag())

	store.ClearFlags()
	assert.False(t, store.CheckStopFlag())
	assert.False(t, store.CheckPauseFlag())
	assert.False(t, store.CheckContinueFlag())
}

func TestDetermineResumePoint(t *testing.T) {
	order := []string{"preflight", "code-scan", "aggregate", "report"}

	assert.Nil(t, DetermineResumePoint(nil, order))
	assert.Nil(t, DetermineResumePoint(&Checkpoint{}, order))

	cp := &Checkpoint{CompletedStages: []string{"preflight", "code-scan"}}
	point := DetermineResumePoint(cp, order)
	require.NotNil(t, point)
	assert.Equal(t, "aggregate", point.Stage)
	assert.Equal(t, []string{"preflight", "code-scan"}, point.CompletedStages)

	cp = &Checkpoint{CompletedStages: order}
	assert.Nil(t, DetermineResumePoint(cp, order), "fully completed audit has nothing to resume")
}
