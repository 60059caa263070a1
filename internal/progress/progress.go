// Package progress maintains the human-facing progress.json of an audit run:
// overall status, per-stage progress and aggregate metrics.
package progress

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

// StageProgress tracks one stage for display purposes.
type StageProgress struct {
	Status       string    `json:"status"` // running | completed | failed | skipped
	StartedAt    time.Time `json:"started_at,omitempty"`
	CompletedAt  time.Time `json:"completed_at,omitempty"`
	FindingCount int       `json:"finding_count"`
	Error        string    `json:"error,omitempty"`
}

// Metrics are run-wide counters surfaced to callers.
type Metrics struct {
	TotalFindings   int `json:"total_findings"`
	PagesVisited    int `json:"pages_visited"`
	FormsTested     int `json:"forms_tested"`
	BrowserRestarts int `json:"browser_restarts"`
	ErrorsRecovered int `json:"errors_recovered"`
}

// MetricsUpdate carries a partial metrics change; nil fields are untouched.
type MetricsUpdate struct {
	TotalFindings   *int
	PagesVisited    *int
	FormsTested     *int
	BrowserRestarts *int
	ErrorsRecovered *int
}

// Progress is the persisted progress record.
type Progress struct {
	SchemaVersion string                   `json:"schema_version"`
	AuditID       string                   `json:"audit_id"`
	Status        string                   `json:"status"` // running | paused | stopped | completed | failed
	UpdatedAt     time.Time                `json:"updated_at"`
	Stages        map[string]StageProgress `json:"stages"`
	Metrics       Metrics                  `json:"metrics"`
}

// Store reads and writes progress.json for one audit directory.
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
	return filepath.Join(s.dir, "progress.json")
}

// Initialize writes a fresh progress record.
func (s *Store) Initialize(auditID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(&Progress{
		SchemaVersion: schemaVersion,
		AuditID:       auditID,
		Status:        "running",
		UpdatedAt:     time.Now().UTC(),
		Stages:        map[string]StageProgress{},
	})
}

// Load reads the progress record. A missing file yields (nil, nil).
func (s *Store) Load() (*Progress, error) {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read progress: %w", err)
	}

	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse progress: %w", err)
	}
	return &p, nil
}

// UpdateStatus sets the overall run status.
func (s *Store) UpdateStatus(status string) error {
	return s.update(func(p *Progress) {
		p.Status = status
	})
}

// StartStageProgress marks a stage as running.
func (s *Store) StartStageProgress(name string) error {
	return s.update(func(p *Progress) {
		p.Stages[name] = StageProgress{Status: "running", StartedAt: time.Now().UTC()}
	})
}

// CompleteStageProgress marks a stage completed with its finding count.
func (s *Store) CompleteStageProgress(name string, findingCount int) error {
	return s.update(func(p *Progress) {
		sp := p.Stages[name]
		sp.Status = "completed"
		sp.CompletedAt = time.Now().UTC()
		sp.FindingCount = findingCount
		p.Stages[name] = sp
	})
}

// FailStageProgress marks a stage failed.
func (s *Store) FailStageProgress(name, errMsg string) error {
	return s.update(func(p *Progress) {
		sp := p.Stages[name]
		sp.Status = "failed"
		sp.CompletedAt = time.Now().UTC()
		sp.Error = errMsg
		p.Stages[name] = sp
	})
}

// SkipStageProgress marks a stage skipped.
func (s *Store) SkipStageProgress(name, reason string) error {
	return s.update(func(p *Progress) {
		p.Stages[name] = StageProgress{Status: "skipped", Error: reason}
	})
}

// UpdateMetrics applies a partial metrics update.
func (s *Store) UpdateMetrics(update MetricsUpdate) error {
	return s.update(func(p *Progress) {
		if update.TotalFindings != nil {
			p.Metrics.TotalFindings = *update.TotalFindings
		}
		if update.PagesVisited != nil {
			p.Metrics.PagesVisited = *update.PagesVisited
		}
		if update.FormsTested != nil {
			p.Metrics.FormsTested = *update.FormsTested
		}
		if update.BrowserRestarts != nil {
			p.Metrics.BrowserRestarts = *update.BrowserRestarts
		}
		if update.ErrorsRecovered != nil {
			p.Metrics.ErrorsRecovered = *update.ErrorsRecovered
		}
	})
}

func (s *Store) update(fn func(p *Progress)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.Load()
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("progress not initialized in %q", s.dir)
	}

	fn(p)
	p.UpdatedAt = time.Now().UTC()
	return s.write(p)
}

func (s *Store) write(p *Progress) error {
	data, err := json.MarshalIndent(p, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}
	if err := files.WriteFileAtomic(s.path(), data); err != nil {
		return fmt.Errorf("failed to write progress: %w", err)
	}
	return nil
}
