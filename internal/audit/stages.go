package audit

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/webaudit/webaudit/internal/codescan"
	"github.com/webaudit/webaudit/internal/findings"
	"github.com/webaudit/webaudit/internal/pipeline"
	"github.com/webaudit/webaudit/internal/progress"
	"github.com/webaudit/webaudit/pkg/shared/artifacts"
)

// executors builds the stage table wired to this run's collaborators.
func (a *Auditor) executors() map[pipeline.Stage]pipeline.StageFunc {
	return map[pipeline.Stage]pipeline.StageFunc{
		pipeline.StagePreflight:  a.runPreflight,
		pipeline.StageCodeScan:   a.runCodeScan,
		pipeline.StageExplore:    a.runExplore,
		pipeline.StageTest:       a.runTest,
		pipeline.StageResponsive: a.runResponsive,
		pipeline.StageAggregate:  a.runAggregate,
		pipeline.StageVerify:     a.runVerify,
		pipeline.StageCompare:    a.runCompare,
		pipeline.StageReport:     a.runReport,
	}
}

func (a *Auditor) stagesDir() string {
	return filepath.Join(a.dir, "stages")
}

// runPreflight checks the target is reachable before any analysis spends time
// on it. An unreachable target fails the stage with the transport error kept
// verbatim, which in turn skips every dependent stage.
func (a *Auditor) runPreflight(ctx context.Context) (pipeline.StageOutput, error) {
	probe, err := a.prober.Probe(a.runCfg.BaseURL)
	if err != nil {
		return pipeline.StageOutput{}, err
	}

	payload := struct {
		TargetURL  string `json:"target_url"`
		StatusCode int    `json:"status_code"`
		LatencyMS  int64  `json:"latency_ms"`
		Codebase   string `json:"codebase_path,omitempty"`
	}{
		TargetURL:  a.runCfg.BaseURL,
		StatusCode: probe.StatusCode,
		LatencyMS:  probe.Latency.Milliseconds(),
		Codebase:   a.runCfg.CodebasePath,
	}
	path, err := artifacts.SaveStageArtifact(a.stagesDir(), a.logger, string(pipeline.StagePreflight), payload)
	if err != nil {
		return pipeline.StageOutput{}, err
	}
	return pipeline.StageOutput{ArtifactPath: path}, nil
}

// runCodeScan launches the analyzer plugins over the codebase and persists
// their normalized findings. The stage fails only when every analyzer failed.
func (a *Auditor) runCodeScan(ctx context.Context) (pipeline.StageOutput, error) {
	analyzers := a.runCfg.Analyzers
	if len(analyzers) == 0 {
		analyzers = a.cfg.Audit.Analyzers
	}

	runner := codescan.New(analyzers, "", nil, len(analyzers), a.logger)
	requests, err := runner.PrepareRequests(a.runCfg.CodebasePath, filepath.Join(a.dir, "raw"))
	if err != nil {
		return pipeline.StageOutput{}, err
	}

	results := runner.RunAnalyzers(a.cfg, requests)

	failed := 0
	for _, result := range results {
		if result.Status != "OK" {
			failed++
		}
	}
	if len(results) > 0 && failed == len(results) {
		return pipeline.StageOutput{}, fmt.Errorf("all %d analyzers failed", failed)
	}

	normalized := runner.Normalize(a.generator.Factory(), results)
	for _, record := range normalized {
		if err := a.store.Save(record); err != nil {
			return pipeline.StageOutput{}, err
		}
	}

	payload := struct {
		Analyzers []string                  `json:"analyzers"`
		Launches  []codescan.AnalyzerResult `json:"launches"`
		Findings  int                       `json:"findings"`
	}{Analyzers: analyzers, Launches: results, Findings: len(normalized)}

	path, err := artifacts.SaveStageArtifact(a.stagesDir(), a.logger, string(pipeline.StageCodeScan), payload)
	if err != nil {
		return pipeline.StageOutput{}, err
	}
	return pipeline.StageOutput{FindingCount: len(normalized), ArtifactPath: path}, nil
}

// runExplore turns the explored pages and their diagnostics into findings.
func (a *Auditor) runExplore(ctx context.Context) (pipeline.StageOutput, error) {
	inputs, err := LoadInputs(a.runCfg.InputsDir)
	if err != nil {
		return pipeline.StageOutput{}, err
	}

	var produced []findings.Finding
	for _, page := range inputs.Pages {
		records, err := a.generator.FromPage(page)
		if err != nil {
			return pipeline.StageOutput{}, err
		}
		produced = append(produced, records...)
	}
	diagRecords, err := a.generator.FromDiagnostics(inputs.Diagnostics)
	if err != nil {
		return pipeline.StageOutput{}, err
	}
	produced = append(produced, diagRecords...)

	if err := a.saveAll(produced); err != nil {
		return pipeline.StageOutput{}, err
	}

	pages := len(inputs.Pages)
	if err := a.progressSt.UpdateMetrics(progress.MetricsUpdate{PagesVisited: &pages}); err != nil {
		a.logger.Warn("failed to update page metrics", "error", err)
	}

	payload := struct {
		PagesVisited int `json:"pages_visited"`
		Diagnostics  int `json:"diagnostics"`
		Findings     int `json:"findings"`
	}{PagesVisited: pages, Diagnostics: len(inputs.Diagnostics), Findings: len(produced)}

	path, err := artifacts.SaveStageArtifact(a.stagesDir(), a.logger, string(pipeline.StageExplore), payload)
	if err != nil {
		return pipeline.StageOutput{}, err
	}
	return pipeline.StageOutput{FindingCount: len(produced), ArtifactPath: path}, nil
}

// runTest evaluates the recorded form and control interactions.
func (a *Auditor) runTest(ctx context.Context) (pipeline.StageOutput, error) {
	inputs, err := LoadInputs(a.runCfg.InputsDir)
	if err != nil {
		return pipeline.StageOutput{}, err
	}

	var produced []findings.Finding
	for _, interaction := range inputs.Interactions {
		records, err := a.generator.FromInteraction(interaction)
		if err != nil {
			return pipeline.StageOutput{}, err
		}
		produced = append(produced, records...)
	}

	if err := a.saveAll(produced); err != nil {
		return pipeline.StageOutput{}, err
	}

	forms := len(inputs.Interactions)
	if err := a.progressSt.UpdateMetrics(progress.MetricsUpdate{FormsTested: &forms}); err != nil {
		a.logger.Warn("failed to update form metrics", "error", err)
	}

	payload := struct {
		Interactions int `json:"interactions"`
		Findings     int `json:"findings"`
	}{Interactions: forms, Findings: len(produced)}

	path, err := artifacts.SaveStageArtifact(a.stagesDir(), a.logger, string(pipeline.StageTest), payload)
	if err != nil {
		return pipeline.StageOutput{}, err
	}
	return pipeline.StageOutput{FindingCount: len(produced), ArtifactPath: path}, nil
}

// runResponsive passes the viewport sub-analyzer results through.
func (a *Auditor) runResponsive(ctx context.Context) (pipeline.StageOutput, error) {
	inputs, err := LoadInputs(a.runCfg.InputsDir)
	if err != nil {
		return pipeline.StageOutput{}, err
	}

	produced, err := a.generator.FromViewports(inputs.Viewports)
	if err != nil {
		return pipeline.StageOutput{}, err
	}
	endpointRecords, err := a.generator.FromEndpoints(inputs.Endpoints)
	if err != nil {
		return pipeline.StageOutput{}, err
	}
	produced = append(produced, endpointRecords...)

	if err := a.saveAll(produced); err != nil {
		return pipeline.StageOutput{}, err
	}

	payload := struct {
		Viewports int `json:"viewports"`
		Endpoints int `json:"endpoints"`
		Findings  int `json:"findings"`
	}{Viewports: len(inputs.Viewports), Endpoints: len(inputs.Endpoints), Findings: len(produced)}

	path, err := artifacts.SaveStageArtifact(a.stagesDir(), a.logger, string(pipeline.StageResponsive), payload)
	if err != nil {
		return pipeline.StageOutput{}, err
	}
	return pipeline.StageOutput{FindingCount: len(produced), ArtifactPath: path}, nil
}

func (a *Auditor) saveAll(records []findings.Finding) error {
	for _, record := range records {
		if err := a.store.Save(record); err != nil {
			return err
		}
	}
	return nil
}
