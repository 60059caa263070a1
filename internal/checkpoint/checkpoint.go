// Package checkpoint persists which stages of an audit have completed so a
// run can resume after a crash or a user-requested stop. State lives in a
// single checkpoint.json inside the audit directory; stop/pause/continue are
// plain flag files polled at stage boundaries.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/webaudit/webaudit/pkg/shared/files"
)

const schemaVersion = "1.0"

// Flag file names recognized inside an audit directory.
const (
	StopFlagFile     = "STOP"
	PauseFlagFile    = "PAUSE"
	ContinueFlagFile = "CONTINUE"
)

// StageRecord tracks one stage's lifecycle inside the checkpoint.
type StageRecord struct {
	Status      string            `json:"status"` // running | completed | failed
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at,omitempty"`
	Outputs     map[string]string `json:"outputs,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// Checkpoint is the durable record of an audit run's progress.
type Checkpoint struct {
	SchemaVersion   string                 `json:"schema_version"`
	AuditID         string                 `json:"audit_id"`
	Mode            string                 `json:"mode"`
	StartedAt       time.Time              `json:"started_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
	CurrentStage    string                 `json:"current_stage,omitempty"`
	CompletedStages []string               `json:"completed_stages"`
	Stages          map[string]StageRecord `json:"stages"`
}

// ResumePoint is the computed restart position for an interrupted audit.
type ResumePoint struct {
	Stage           string
	CompletedStages []string
}

// Store reads and writes the checkpoint for one audit directory.
type Store struct {
	mu     sync.Mutex
	dir    string
	logger hclog.Logger
}

// NewStore binds a store to an audit directory.
func NewStore(dir string, logger hclog.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

func (s *Store) path() string {
	return filepath.Join(s.dir, "checkpoint.json")
}

// Initialize writes a fresh checkpoint for a new audit run.
func (s *Store) Initialize(auditID, mode string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := &Checkpoint{
		SchemaVersion:   schemaVersion,
		AuditID:         auditID,
		Mode:            mode,
		StartedAt:       startedAt.UTC(),
		UpdatedAt:       startedAt.UTC(),
		CompletedStages: []string{},
		Stages:          map[string]StageRecord{},
	}
	return s.write(cp)
}

// Load reads the checkpoint. A missing file yields (nil, nil).
func (s *Store) Load() (*Checkpoint, error) {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint: %w", err)
	}
	return &cp, nil
}

// StartStage records that a stage began executing.
func (s *Store) StartStage(name string) error {
	return s.update(func(cp *Checkpoint) {
		cp.CurrentStage = name
		cp.Stages[name] = StageRecord{
			Status:    "running",
			StartedAt: time.Now().UTC(),
		}
	})
}

// CompleteStage records a durable stage completion with its output references.
// Once written, a resumed run will never re-execute the stage.
func (s *Store) CompleteStage(name string, outputs map[string]string) error {
	return s.update(func(cp *Checkpoint) {
		record := cp.Stages[name]
		record.Status = "completed"
		record.CompletedAt = time.Now().UTC()
		record.Outputs = outputs
		cp.Stages[name] = record

		for _, done := range cp.CompletedStages {
			if done == name {
				return
			}
		}
		cp.CompletedStages = append(cp.CompletedStages, name)
	})
}

// FailStage records a stage failure with the error message preserved verbatim.
func (s *Store) FailStage(name, errMsg string) error {
	return s.update(func(cp *Checkpoint) {
		record := cp.Stages[name]
		record.Status = "failed"
		record.CompletedAt = time.Now().UTC()
		record.Error = errMsg
		cp.Stages[name] = record
	})
}

// CheckStopFlag reports whether a stop has been requested for this audit.
func (s *Store) CheckStopFlag() bool {
	return s.flagExists(StopFlagFile)
}

// CheckPauseFlag reports whether a pause has been requested.
func (s *Store) CheckPauseFlag() bool {
	return s.flagExists(PauseFlagFile)
}

// CheckContinueFlag reports whether a paused audit was told to continue.
func (s *Store) CheckContinueFlag() bool {
	return s.flagExists(ContinueFlagFile)
}

// ClearFlags removes all control flag files, typically at the start of a resume.
func (s *Store) ClearFlags() {
	for _, flag := range []string{StopFlagFile, PauseFlagFile, ContinueFlagFile} {
		if err := os.Remove(filepath.Join(s.dir, flag)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove control flag", "flag", flag, "error", err)
		}
	}
}

func (s *Store) flagExists(name string) bool {
	_, err := os.Stat(filepath.Join(s.dir, name))
	return err == nil
}

// DetermineResumePoint returns the first stage in order that has not durably
// completed, together with the authoritative completed set. A nil return
// means there is nothing to resume.
func DetermineResumePoint(cp *Checkpoint, order []string) *ResumePoint {
	if cp == nil || len(cp.CompletedStages) == 0 {
		return nil
	}

	completed := make(map[string]bool, len(cp.CompletedStages))
	for _, name := range cp.CompletedStages {
		completed[name] = true
	}

	for _, name := range order {
		if !completed[name] {
			return &ResumePoint{Stage: name, CompletedStages: cp.CompletedStages}
		}
	}
	return nil
}

// update applies fn to the current checkpoint and writes it back atomically.
func (s *Store) update(fn func(cp *Checkpoint)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp, err := s.Load()
	if err != nil {
		return err
	}
	if cp == nil {
		return fmt.Errorf("checkpoint not initialized in %q", s.dir)
	}

	fn(cp)
	cp.UpdatedAt = time.Now().UTC()
	return s.write(cp)
}

func (s *Store) write(cp *Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	if err := files.WriteFileAtomic(s.path(), data); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}
