// Package audit assembles one audit run: it creates the audit directory,
// wires the checkpoint, progress and findings stores to the stage scheduler
// and exposes run and resume entry points to the CLI.
package audit

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/webaudit/webaudit/internal/browser"
	"github.com/webaudit/webaudit/internal/checkpoint"
	"github.com/webaudit/webaudit/internal/findings"
	"github.com/webaudit/webaudit/internal/generate"
	"github.com/webaudit/webaudit/internal/pipeline"
	"github.com/webaudit/webaudit/internal/progress"
	"github.com/webaudit/webaudit/pkg/shared/config"
	"github.com/webaudit/webaudit/pkg/shared/files"
	"github.com/webaudit/webaudit/pkg/shared/httpclient"
)

// RunConfig carries the per-run parameters collected from the CLI.
type RunConfig struct {
	BaseURL      string
	CodebasePath string
	PRDPath      string
	InputsDir    string
	OutputDir    string
	BaselineDir  string
	Mode         pipeline.Mode
	Parallel     bool
	Analyzers    []string
	StageTimeout time.Duration
}

// Result summarizes a finished (or halted) audit run.
type Result struct {
	AuditID string                 `json:"audit_id"`
	Dir     string                 `json:"dir"`
	Status  pipeline.RunStatus     `json:"status"`
	Results []pipeline.StageResult `json:"results"`
}

// Auditor owns the collaborators of a single audit run.
type Auditor struct {
	cfg    *config.Config
	logger hclog.Logger
	runCfg RunConfig

	auditID string
	dir     string

	checkpoints *checkpoint.Store
	progressSt  *progress.Store
	store       *findings.Store
	generator   *generate.Generator
	prober      *browser.Prober
	sched       *pipeline.Scheduler
}

// New creates the audit directory tree and wires the run's collaborators.
func New(cfg *config.Config, logger hclog.Logger, runCfg RunConfig) (*Auditor, error) {
	if !pipeline.ValidMode(runCfg.Mode) {
		return nil, fmt.Errorf("unknown run mode %q", runCfg.Mode)
	}

	auditID := fmt.Sprintf("audit-%s", uuid.NewString())
	outputDir := runCfg.OutputDir
	if outputDir == "" {
		outputDir = config.GetWebauditAuditsHome(cfg)
	}
	dir := filepath.Join(outputDir, auditID)

	return newAuditor(cfg, logger, runCfg, auditID, dir)
}

// Open binds an Auditor to an existing audit directory for resume.
func Open(cfg *config.Config, logger hclog.Logger, runCfg RunConfig, dir string) (*Auditor, error) {
	return newAuditor(cfg, logger, runCfg, filepath.Base(dir), dir)
}

func newAuditor(cfg *config.Config, logger hclog.Logger, runCfg RunConfig, auditID, dir string) (*Auditor, error) {
	if err := files.CreateFolderIfNotExists(dir); err != nil {
		return nil, fmt.Errorf("failed to create audit directory %q: %w", dir, err)
	}

	store, err := findings.NewStore(filepath.Join(dir, "findings"))
	if err != nil {
		return nil, err
	}

	client := httpclient.InitializeRestyClient(logger, cfg)
	factory := findings.NewFactory()
	return &Auditor{
		cfg:         cfg,
		logger:      logger,
		runCfg:      runCfg,
		auditID:     auditID,
		dir:         dir,
		checkpoints: checkpoint.NewStore(dir, logger),
		progressSt:  progress.NewStore(dir, logger),
		store:       store,
		generator:   generate.New(factory),
		prober:      browser.NewProber(client, logger),
	}, nil
}

// Dir returns the audit directory.
func (a *Auditor) Dir() string {
	return a.dir
}

// AuditID returns the run identifier, which doubles as the directory name.
func (a *Auditor) AuditID() string {
	return a.auditID
}

// Run executes a fresh audit from the first stage.
func (a *Auditor) Run(ctx context.Context) (*Result, error) {
	startedAt := time.Now().UTC()
	if err := a.checkpoints.Initialize(a.auditID, string(a.runCfg.Mode), startedAt); err != nil {
		return nil, err
	}
	if err := a.progressSt.Initialize(a.auditID); err != nil {
		return nil, err
	}
	return a.execute(ctx, nil, startedAt)
}

// Resume continues an interrupted audit from its checkpoint. Durably
// completed stages are never re-executed.
func (a *Auditor) Resume(ctx context.Context) (*Result, error) {
	cp, err := a.checkpoints.Load()
	if err != nil {
		return nil, err
	}
	if cp == nil {
		return nil, fmt.Errorf("no checkpoint found in %q; nothing to resume", a.dir)
	}

	mode := pipeline.Mode(cp.Mode)
	if !pipeline.ValidMode(mode) {
		return nil, fmt.Errorf("checkpoint has unknown mode %q", cp.Mode)
	}
	a.runCfg.Mode = mode

	// Stages completed before the interruption already persisted findings;
	// the resumed run must mint IDs after them, never over them.
	persisted, err := a.store.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted findings: %w", err)
	}
	a.generator.Factory().SeedAfter(persisted)

	a.checkpoints.ClearFlags()
	if err := a.progressSt.UpdateStatus("running"); err != nil {
		return nil, err
	}

	var seed []pipeline.Stage
	if point := checkpoint.DetermineResumePoint(cp, pipeline.StageNames(pipeline.StagesForMode(mode))); point != nil {
		for _, name := range point.CompletedStages {
			seed = append(seed, pipeline.Stage(name))
		}
		a.logger.Info("resuming audit", "audit_id", a.auditID, "next_stage", point.Stage, "completed", len(seed))
	} else if len(cp.CompletedStages) > 0 {
		return nil, fmt.Errorf("audit %q already completed every stage", a.auditID)
	}

	return a.execute(ctx, seed, cp.StartedAt)
}

func (a *Auditor) execute(ctx context.Context, seed []pipeline.Stage, startedAt time.Time) (*Result, error) {
	scheduler := pipeline.NewScheduler(a.logger, a.checkpoints, a.progressSt, a.executors(), pipeline.Options{
		Parallel:     a.runCfg.Parallel,
		StageTimeout: a.runCfg.StageTimeout,
		StartedAt:    startedAt,
	})
	if len(seed) > 0 {
		scheduler.SeedCompleted(seed)
	}
	a.sched = scheduler

	results, status, err := scheduler.Run(ctx, a.runCfg.Mode)
	if err != nil {
		return nil, err
	}

	if err := a.progressSt.UpdateStatus(string(status)); err != nil {
		a.logger.Warn("failed to persist final status", "error", err)
	}
	a.updateFinalMetrics(scheduler.State())

	return &Result{
		AuditID: a.auditID,
		Dir:     a.dir,
		Status:  status,
		Results: results,
	}, nil
}

func (a *Auditor) updateFinalMetrics(snapshot pipeline.Snapshot) {
	all, err := a.store.LoadAll()
	if err != nil {
		a.logger.Warn("failed to count findings for metrics", "error", err)
		return
	}
	total := len(all)
	update := progress.MetricsUpdate{
		TotalFindings:   &total,
		BrowserRestarts: &snapshot.BrowserRestarts,
		ErrorsRecovered: &snapshot.ErrorsRecovered,
	}
	if err := a.progressSt.UpdateMetrics(update); err != nil {
		a.logger.Warn("failed to persist metrics", "error", err)
	}
}
