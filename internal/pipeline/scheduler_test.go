package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeControl struct {
	mu        sync.Mutex
	stopFn    func() bool
	pauseFn   func() bool
	contFn    func() bool
	started   []string
	completed []string
	failed    []string
}

func (f *fakeControl) StartStage(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, name)
	return nil
}

func (f *fakeControl) CompleteStage(name string, outputs map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, name)
	return nil
}

func (f *fakeControl) FailStage(name, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, name)
	return nil
}

func (f *fakeControl) CheckStopFlag() bool {
	if f.stopFn != nil {
		return f.stopFn()
	}
	return false
}

func (f *fakeControl) CheckPauseFlag() bool {
	if f.pauseFn != nil {
		return f.pauseFn()
	}
	return false
}

func (f *fakeControl) CheckContinueFlag() bool {
	if f.contFn != nil {
		return f.contFn()
	}
	return false
}

type fakeProgress struct {
	mu      sync.Mutex
	skipped []string
}

func (f *fakeProgress) UpdateStatus(status string) error            { return nil }
func (f *fakeProgress) StartStageProgress(name string) error        { return nil }
func (f *fakeProgress) CompleteStageProgress(name string, n int) error { return nil }
func (f *fakeProgress) FailStageProgress(name, errMsg string) error { return nil }

func (f *fakeProgress) SkipStageProgress(name, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.skipped = append(f.skipped, name)
	return nil
}

// executorRecorder builds executors that record execution order.
type executorRecorder struct {
	mu       sync.Mutex
	executed []Stage
}

func (r *executorRecorder) ok(stage Stage) StageFunc {
	return func(ctx context.Context) (StageOutput, error) {
		r.mu.Lock()
		r.executed = append(r.executed, stage)
		r.mu.Unlock()
		return StageOutput{FindingCount: 1}, nil
	}
}

func (r *executorRecorder) fail(stage Stage, err error) StageFunc {
	return func(ctx context.Context) (StageOutput, error) {
		r.mu.Lock()
		r.executed = append(r.executed, stage)
		r.mu.Unlock()
		return StageOutput{}, err
	}
}

func (r *executorRecorder) list() []Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Stage(nil), r.executed...)
}

func allOK(r *executorRecorder, stages []Stage) map[Stage]StageFunc {
	executors := map[Stage]StageFunc{}
	for _, stage := range stages {
		executors[stage] = r.ok(stage)
	}
	return executors
}

func testLogger() hclog.Logger {
	return hclog.NewNullLogger()
}

func TestRunCodeOnlyModeSubset(t *testing.T) {
	rec := &executorRecorder{}
	executors := allOK(rec, StagesForMode(ModeFull))

	s := NewScheduler(testLogger(), &fakeControl{}, &fakeProgress{}, executors, Options{})
	results, status, err := s.Run(context.Background(), ModeCodeOnly)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, status)
	require.Len(t, results, 4)
	assert.Equal(t, []Stage{StagePreflight, StageCodeScan, StageAggregate, StageReport}, rec.list())
	for _, result := range results {
		assert.Equal(t, OutcomeCompleted, result.Outcome)
	}
}

func TestRunUnknownModeIsFatal(t *testing.T) {
	s := NewScheduler(testLogger(), &fakeControl{}, &fakeProgress{}, nil, Options{})
	_, status, err := s.Run(context.Background(), Mode("turbo"))
	require.Error(t, err)
	assert.Equal(t, StatusFailed, status)
}

func TestFailureIsolation(t *testing.T) {
	rec := &executorRecorder{}
	executors := allOK(rec, StagesForMode(ModeCodeOnly))
	executors[StageCodeScan] = rec.fail(StageCodeScan, errors.New("analyzer plugin crashed"))

	control := &fakeControl{}
	progress := &fakeProgress{}
	s := NewScheduler(testLogger(), control, progress, executors, Options{})
	results, status, err := s.Run(context.Background(), ModeCodeOnly)
	require.NoError(t, err, "stage failure must never propagate out of the run loop")

	assert.Equal(t, StatusFailed, status)

	byStage := map[Stage]StageResult{}
	for _, result := range results {
		byStage[result.Stage] = result
	}
	assert.Equal(t, OutcomeCompleted, byStage[StagePreflight].Outcome)
	assert.Equal(t, OutcomeFailed, byStage[StageCodeScan].Outcome)
	assert.Contains(t, byStage[StageCodeScan].Error, "analyzer plugin crashed")
	assert.Equal(t, OutcomeSkipped, byStage[StageAggregate].Outcome)
	assert.Equal(t, OutcomeSkipped, byStage[StageReport].Outcome)

	// Dependent stages never executed.
	assert.Equal(t, []Stage{StagePreflight, StageCodeScan}, rec.list())
	assert.ElementsMatch(t, []string{"aggregate", "report"}, progress.skipped)

	snapshot := s.State()
	assert.Equal(t, 1, snapshot.ErrorsRecovered)
}

func TestDependencyInvariant(t *testing.T) {
	// No stage executes unless all its effective dependencies completed first.
	rec := &executorRecorder{}
	executors := allOK(rec, StagesForMode(ModeFull))

	s := NewScheduler(testLogger(), &fakeControl{}, &fakeProgress{}, executors, Options{})
	_, status, err := s.Run(context.Background(), ModeFull)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, status)

	seen := map[Stage]int{}
	for i, stage := range rec.list() {
		seen[stage] = i
	}
	plan := StagesForMode(ModeFull)
	for _, stage := range plan {
		for _, dep := range EffectiveDependencies(stage, plan) {
			assert.Less(t, seen[dep], seen[stage], "%s must run before %s", dep, stage)
		}
	}
}

func TestIdempotentResume(t *testing.T) {
	rec := &executorRecorder{}
	executors := allOK(rec, StagesForMode(ModeCodeOnly))

	s := NewScheduler(testLogger(), &fakeControl{}, &fakeProgress{}, executors, Options{})
	s.SeedCompleted([]Stage{StagePreflight, StageCodeScan})

	results, status, err := s.Run(context.Background(), ModeCodeOnly)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status)

	// Seeded stages are never re-executed and produce no new results.
	assert.Equal(t, []Stage{StageAggregate, StageReport}, rec.list())
	require.Len(t, results, 2)

	snapshot := s.State()
	completed := map[Stage]bool{}
	for _, stage := range snapshot.CompletedStages {
		completed[stage] = true
	}
	for _, stage := range []Stage{StagePreflight, StageCodeScan, StageAggregate, StageReport} {
		assert.True(t, completed[stage], "expected %s in completed set", stage)
	}
}

func TestParallelPairRunsConcurrently(t *testing.T) {
	rec := &executorRecorder{}
	executors := allOK(rec, StagesForMode(ModeFull))

	// Both members of the test/responsive group block until the other has
	// started. Without parallel dispatch the second member never starts and
	// the timeout turns the deadlock into a test failure.
	ready := make(chan struct{}, 2)
	bothStarted := make(chan struct{})
	go func() {
		<-ready
		<-ready
		close(bothStarted)
	}()
	rendezvous := func(ctx context.Context) (StageOutput, error) {
		ready <- struct{}{}
		select {
		case <-bothStarted:
			return StageOutput{}, nil
		case <-time.After(5 * time.Second):
			return StageOutput{}, errors.New("parallel partner never started")
		}
	}
	executors[StageTest] = rendezvous
	executors[StageResponsive] = rendezvous

	s := NewScheduler(testLogger(), &fakeControl{}, &fakeProgress{}, executors, Options{Parallel: true})
	results, status, err := s.Run(context.Background(), ModeFull)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status)
	assert.Len(t, results, len(StagesForMode(ModeFull)))
}

func TestSequentialWhenParallelDisabled(t *testing.T) {
	rec := &executorRecorder{}
	executors := allOK(rec, StagesForMode(ModeFull))

	var mu sync.Mutex
	active, maxActive := 0, 0
	for stage := range executors {
		stage := stage
		executors[stage] = func(ctx context.Context) (StageOutput, error) {
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			return StageOutput{}, nil
		}
	}

	s := NewScheduler(testLogger(), &fakeControl{}, &fakeProgress{}, executors, Options{Parallel: false})
	_, status, err := s.Run(context.Background(), ModeFull)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status)
	assert.Equal(t, 1, maxActive, "no two stages may overlap with parallelism disabled")
}

func TestStopFlagHaltsBetweenStages(t *testing.T) {
	rec := &executorRecorder{}
	executors := allOK(rec, StagesForMode(ModeCodeOnly))

	var mu sync.Mutex
	stagesRun := 0
	for stage := range executors {
		stage := stage
		inner := executors[stage]
		executors[stage] = func(ctx context.Context) (StageOutput, error) {
			mu.Lock()
			stagesRun++
			mu.Unlock()
			return inner(ctx)
		}
	}

	control := &fakeControl{}
	control.stopFn = func() bool {
		mu.Lock()
		defer mu.Unlock()
		return stagesRun >= 2
	}

	s := NewScheduler(testLogger(), control, &fakeProgress{}, executors, Options{})
	results, status, err := s.Run(context.Background(), ModeCodeOnly)
	require.NoError(t, err)

	assert.Equal(t, StatusStopped, status)
	assert.Len(t, results, 2, "results recorded before the stop are preserved")

	snapshot := s.State()
	assert.True(t, snapshot.StopRequested)
}

func TestPauseHaltsUnlessContinueObserved(t *testing.T) {
	rec := &executorRecorder{}
	executors := allOK(rec, StagesForMode(ModeCodeOnly))

	control := &fakeControl{pauseFn: func() bool { return true }}
	s := NewScheduler(testLogger(), control, &fakeProgress{}, executors, Options{})
	results, status, err := s.Run(context.Background(), ModeCodeOnly)
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, status)
	assert.Empty(t, results)

	// With a continue signal the pause is ignored.
	control = &fakeControl{pauseFn: func() bool { return true }, contFn: func() bool { return true }}
	s = NewScheduler(testLogger(), control, &fakeProgress{}, allOK(&executorRecorder{}, StagesForMode(ModeCodeOnly)), Options{})
	results, status, err = s.Run(context.Background(), ModeCodeOnly)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status)
	assert.Len(t, results, 4)
}

func TestComputeRunStatus(t *testing.T) {
	failed := []StageResult{{Stage: StageCodeScan, Outcome: OutcomeFailed}}
	completedOnly := []StageResult{{Stage: StagePreflight, Outcome: OutcomeCompleted}}

	assert.Equal(t, StatusFailed, ComputeRunStatus(failed, true, false))
	assert.Equal(t, StatusStopped, ComputeRunStatus(completedOnly, true, false))
	assert.Equal(t, StatusPaused, ComputeRunStatus(completedOnly, false, true))
	assert.Equal(t, StatusCompleted, ComputeRunStatus(completedOnly, false, false))
}

func TestMissingExecutorIsStageFailure(t *testing.T) {
	s := NewScheduler(testLogger(), &fakeControl{}, &fakeProgress{}, map[Stage]StageFunc{}, Options{})
	results, status, err := s.Run(context.Background(), ModeCodeOnly)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, status)
	require.NotEmpty(t, results)
	assert.Equal(t, OutcomeFailed, results[0].Outcome)
	assert.Contains(t, results[0].Error, "no executor registered")
}
