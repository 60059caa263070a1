package pipeline

import (
	"sync"
	"time"
)

// Outcome is the terminal state of a single stage execution.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// RunStatus is the terminal state of a whole run, derivable from its results.
type RunStatus string

const (
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusStopped   RunStatus = "stopped"
	StatusPaused    RunStatus = "paused"
)

// StageResult is immutable once produced and appended to the run state.
type StageResult struct {
	Stage        Stage         `json:"stage"`
	Outcome      Outcome       `json:"outcome"`
	FindingCount int           `json:"finding_count"`
	Duration     time.Duration `json:"duration"`
	ArtifactPath string        `json:"artifact_path,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// StageOutput is what a stage executor hands back on success.
type StageOutput struct {
	FindingCount int
	ArtifactPath string
}

// runState is the single-writer aggregate record of one audit run. Only the
// scheduler mutates it; callers get copies via Snapshot.
type runState struct {
	mu sync.Mutex

	startedAt       time.Time
	currentStages   []Stage
	completed       []Stage
	completedSet    map[Stage]bool
	skipped         []Stage
	results         []StageResult
	paused          bool
	stopRequested   bool
	browserRestarts int
	errorsRecovered int
}

// Snapshot is a read-only copy of the run state exposed to callers.
type Snapshot struct {
	StartedAt       time.Time     `json:"started_at"`
	CurrentStages   []Stage       `json:"current_stages,omitempty"`
	CompletedStages []Stage       `json:"completed_stages"`
	SkippedStages   []Stage       `json:"skipped_stages,omitempty"`
	Results         []StageResult `json:"results"`
	Paused          bool          `json:"paused"`
	StopRequested   bool          `json:"stop_requested"`
	BrowserRestarts int           `json:"browser_restarts"`
	ErrorsRecovered int           `json:"errors_recovered"`
}

func newRunState(startedAt time.Time) *runState {
	return &runState{
		startedAt:    startedAt,
		completedSet: map[Stage]bool{},
	}
}

// seedCompleted marks stages completed from a checkpoint without appending
// results; resumed stages already have durable records.
func (s *runState) seedCompleted(stages []Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stage := range stages {
		if !s.completedSet[stage] {
			s.completedSet[stage] = true
			s.completed = append(s.completed, stage)
		}
	}
}

func (s *runState) isCompleted(stage Stage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completedSet[stage]
}

func (s *runState) setCurrent(stages ...Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentStages = stages
}

// recordResult appends a result and, for completions, marks the stage
// completed as one atomic step. Parallel completions may land in either
// relative order but each lands whole.
func (s *runState) recordResult(result StageResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = append(s.results, result)
	switch result.Outcome {
	case OutcomeCompleted:
		if !s.completedSet[result.Stage] {
			s.completedSet[result.Stage] = true
			s.completed = append(s.completed, result.Stage)
		}
	case OutcomeSkipped:
		s.skipped = append(s.skipped, result.Stage)
	case OutcomeFailed:
		s.errorsRecovered++
	}
}

func (s *runState) markStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopRequested = true
}

func (s *runState) markPaused() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

func (s *runState) addBrowserRestarts(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.browserRestarts += n
}

func (s *runState) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		StartedAt:       s.startedAt,
		CurrentStages:   append([]Stage(nil), s.currentStages...),
		CompletedStages: append([]Stage(nil), s.completed...),
		SkippedStages:   append([]Stage(nil), s.skipped...),
		Results:         append([]StageResult(nil), s.results...),
		Paused:          s.paused,
		StopRequested:   s.stopRequested,
		BrowserRestarts: s.browserRestarts,
		ErrorsRecovered: s.errorsRecovered,
	}
}
