package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// ControlStore is the checkpoint collaborator surface the scheduler drives.
// Flags are polled at stage boundaries only; an in-flight stage always runs
// to completion or its own timeout.
type ControlStore interface {
	StartStage(name string) error
	CompleteStage(name string, outputs map[string]string) error
	FailStage(name, errMsg string) error
	CheckStopFlag() bool
	CheckPauseFlag() bool
	CheckContinueFlag() bool
}

// ProgressStore is the progress collaborator surface the scheduler drives.
type ProgressStore interface {
	UpdateStatus(status string) error
	StartStageProgress(name string) error
	CompleteStageProgress(name string, findingCount int) error
	FailStageProgress(name, errMsg string) error
	SkipStageProgress(name, reason string) error
}

// StageFunc executes one stage's analysis logic. Failure is a value, not a
// panic: the scheduler converts a returned error into a failed StageResult
// and keeps going.
type StageFunc func(ctx context.Context) (StageOutput, error)

// Options tune one scheduler instance.
type Options struct {
	Parallel     bool
	StageTimeout time.Duration
	StartedAt    time.Time
}

// Scheduler drives the stage loop for one audit run. It is the sole writer
// of the run state.
type Scheduler struct {
	logger    hclog.Logger
	control   ControlStore
	progress  ProgressStore
	executors map[Stage]StageFunc
	opts      Options
	state     *runState
}

// NewScheduler wires a scheduler for one run.
func NewScheduler(logger hclog.Logger, control ControlStore, progress ProgressStore, executors map[Stage]StageFunc, opts Options) *Scheduler {
	startedAt := opts.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}
	return &Scheduler{
		logger:    logger,
		control:   control,
		progress:  progress,
		executors: executors,
		opts:      opts,
		state:     newRunState(startedAt),
	}
}

// SeedCompleted marks stages as durably completed before the loop starts.
// Used on resume: the checkpoint's completed set is authoritative and seeded
// stages are never re-executed.
func (s *Scheduler) SeedCompleted(stages []Stage) {
	s.state.seedCompleted(stages)
}

// AddBrowserRestarts bumps the recovery counter on behalf of stage executors.
func (s *Scheduler) AddBrowserRestarts(n int) {
	s.state.addBrowserRestarts(n)
}

// State returns a read-only snapshot of the run state.
func (s *Scheduler) State() Snapshot {
	return s.state.snapshot()
}

// Run iterates the mode's stage plan in declared order. Stage failures are
// isolated: they are recorded and the loop moves on, so one broken stage
// degrades output completeness instead of crashing the pipeline.
func (s *Scheduler) Run(ctx context.Context, mode Mode) ([]StageResult, RunStatus, error) {
	plan := StagesForMode(mode)
	if plan == nil {
		return nil, StatusFailed, fmt.Errorf("unknown run mode %q", mode)
	}

	inPlan := make(map[Stage]bool, len(plan))
	for _, stage := range plan {
		inPlan[stage] = true
	}
	attempted := make(map[Stage]bool, len(plan))

	for _, stage := range plan {
		if attempted[stage] {
			continue
		}

		if s.control.CheckStopFlag() {
			s.logger.Info("stop requested, halting run", "before_stage", stage)
			s.state.markStopped()
			break
		}
		if s.control.CheckPauseFlag() && !s.control.CheckContinueFlag() {
			s.logger.Info("pause requested, halting run", "before_stage", stage)
			s.state.markPaused()
			break
		}

		if unmet := s.unmetDependencies(stage, plan); len(unmet) > 0 {
			// Skip-once semantics: the plan is topologically ordered, so an
			// unmet prerequisite here means it failed or was skipped earlier.
			// The stage is not re-queued.
			reason := fmt.Sprintf("dependencies not met: %s", joinStages(unmet))
			s.logger.Warn("skipping stage", "stage", stage, "reason", reason)
			s.state.recordResult(StageResult{Stage: stage, Outcome: OutcomeSkipped, Error: reason})
			s.progress.SkipStageProgress(string(stage), reason)
			attempted[stage] = true
			continue
		}

		if s.state.isCompleted(stage) {
			s.logger.Debug("stage already completed, skipping", "stage", stage)
			attempted[stage] = true
			continue
		}

		partner, runPair := s.eligiblePartner(stage, plan, inPlan, attempted)
		if runPair {
			s.logger.Info("executing parallel stage pair", "stage", stage, "partner", partner)
			s.state.setCurrent(stage, partner)
			var wg sync.WaitGroup
			wg.Add(2)
			for _, member := range []Stage{stage, partner} {
				member := member
				go func() {
					defer wg.Done()
					s.executeStage(ctx, member)
				}()
			}
			wg.Wait()
			attempted[stage] = true
			attempted[partner] = true
		} else {
			s.state.setCurrent(stage)
			s.executeStage(ctx, stage)
			attempted[stage] = true
		}
		s.state.setCurrent()
	}

	snapshot := s.state.snapshot()
	status := ComputeRunStatus(snapshot.Results, snapshot.StopRequested, snapshot.Paused)
	return snapshot.Results, status, nil
}

// unmetDependencies returns the effective prerequisites of stage that are
// not in the completed set.
func (s *Scheduler) unmetDependencies(stage Stage, plan []Stage) []Stage {
	var unmet []Stage
	for _, dep := range EffectiveDependencies(stage, plan) {
		if !s.state.isCompleted(dep) {
			unmet = append(unmet, dep)
		}
	}
	return unmet
}

// eligiblePartner applies the concurrency tie-break: the other member of the
// stage's parallel group runs alongside it when parallelism is enabled, the
// partner is in the plan, not yet attempted or completed, and its own
// prerequisites are satisfied.
func (s *Scheduler) eligiblePartner(stage Stage, plan []Stage, inPlan, attempted map[Stage]bool) (Stage, bool) {
	if !s.opts.Parallel {
		return "", false
	}
	partner, ok := ParallelPartner(stage)
	if !ok || !inPlan[partner] || attempted[partner] || s.state.isCompleted(partner) {
		return "", false
	}
	if len(s.unmetDependencies(partner, plan)) > 0 {
		return "", false
	}
	return partner, true
}

// executeStage wraps one stage execution: timing, persistence and error
// capture. A returned error becomes a failed result and bumps the recovered
// error counter; it never aborts the run.
func (s *Scheduler) executeStage(ctx context.Context, stage Stage) {
	name := string(stage)
	s.control.StartStage(name)
	s.progress.StartStageProgress(name)
	s.logger.Info("stage starting", "stage", stage)

	start := time.Now()
	output, err := s.runExecutor(ctx, stage)
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("stage failed", "stage", stage, "error", err, "duration", duration)
		s.state.recordResult(StageResult{
			Stage:    stage,
			Outcome:  OutcomeFailed,
			Duration: duration,
			Error:    err.Error(),
		})
		s.control.FailStage(name, err.Error())
		s.progress.FailStageProgress(name, err.Error())
		return
	}

	s.logger.Info("stage completed", "stage", stage, "findings", output.FindingCount, "duration", duration)
	s.state.recordResult(StageResult{
		Stage:        stage,
		Outcome:      OutcomeCompleted,
		FindingCount: output.FindingCount,
		Duration:     duration,
		ArtifactPath: output.ArtifactPath,
	})
	outputs := map[string]string{}
	if output.ArtifactPath != "" {
		outputs["artifact"] = output.ArtifactPath
	}
	s.control.CompleteStage(name, outputs)
	s.progress.CompleteStageProgress(name, output.FindingCount)
}

func (s *Scheduler) runExecutor(ctx context.Context, stage Stage) (StageOutput, error) {
	fn, ok := s.executors[stage]
	if !ok {
		return StageOutput{}, fmt.Errorf("no executor registered for stage %q", stage)
	}

	if s.opts.StageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.StageTimeout)
		defer cancel()
	}
	return fn(ctx)
}

// ComputeRunStatus derives the terminal status from the result list alone:
// failed beats stopped beats paused beats completed.
func ComputeRunStatus(results []StageResult, stopped, paused bool) RunStatus {
	for _, result := range results {
		if result.Outcome == OutcomeFailed {
			return StatusFailed
		}
	}
	if stopped {
		return StatusStopped
	}
	if paused {
		return StatusPaused
	}
	return StatusCompleted
}

func joinStages(stages []Stage) string {
	return strings.Join(StageNames(stages), ", ")
}
