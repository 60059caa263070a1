// Package report renders the terminal output of an audit run: a JSON summary
// of findings and stage outcomes plus a SARIF 2.1.0 export of the finding list.
package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/webaudit/webaudit/internal/findings"
	"github.com/webaudit/webaudit/internal/pipeline"
	"github.com/webaudit/webaudit/pkg/shared/files"
)

const summarySchemaVersion = "1.0"

// StageSummary is one stage's outcome as shown in the report.
type StageSummary struct {
	Stage        string `json:"stage"`
	Outcome      string `json:"outcome"`
	FindingCount int    `json:"finding_count"`
	DurationMS   int64  `json:"duration_ms"`
	Error        string `json:"error,omitempty"`
}

// Summary is the machine-readable run report written as report.json.
type Summary struct {
	SchemaVersion string         `json:"schema_version"`
	AuditID       string         `json:"audit_id"`
	Mode          string         `json:"mode"`
	Status        string         `json:"status"`
	GeneratedAt   time.Time      `json:"generated_at"`
	TotalFindings int            `json:"total_findings"`
	BySeverity    map[string]int `json:"by_severity"`
	ByType        map[string]int `json:"by_type"`
	Verification  map[string]int `json:"verification"`
	Stages        []StageSummary `json:"stages"`
}

// Writer renders reports into one audit's report directory.
type Writer struct {
	dir    string
	logger hclog.Logger
}

// NewWriter creates the report directory below the audit directory.
func NewWriter(auditDir string, logger hclog.Logger) (*Writer, error) {
	dir := filepath.Join(auditDir, "report")
	if err := files.CreateFolderIfNotExists(dir); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	return &Writer{dir: dir, logger: logger}, nil
}

// Dir returns the report directory path.
func (w *Writer) Dir() string {
	return w.dir
}

// Generate writes report.json and findings.sarif and returns the summary.
func (w *Writer) Generate(auditID string, mode pipeline.Mode, status pipeline.RunStatus, results []pipeline.StageResult, records []findings.Finding) (*Summary, error) {
	summary := BuildSummary(auditID, mode, status, results, records)

	data, err := json.MarshalIndent(summary, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report summary: %w", err)
	}
	summaryPath := filepath.Join(w.dir, "report.json")
	if err := files.WriteFileAtomic(summaryPath, data); err != nil {
		return nil, fmt.Errorf("failed to write report summary: %w", err)
	}
	w.logger.Info("report summary written", "path", summaryPath, "findings", summary.TotalFindings)

	sarifPath := filepath.Join(w.dir, "findings.sarif")
	if err := WriteSarif(sarifPath, records); err != nil {
		return nil, fmt.Errorf("failed to write SARIF export: %w", err)
	}
	w.logger.Info("SARIF export written", "path", sarifPath)

	if err := w.WriteHTML(summary, records); err != nil {
		return nil, err
	}

	return summary, nil
}

// BuildSummary aggregates findings and stage results into a Summary.
func BuildSummary(auditID string, mode pipeline.Mode, status pipeline.RunStatus, results []pipeline.StageResult, records []findings.Finding) *Summary {
	summary := &Summary{
		SchemaVersion: summarySchemaVersion,
		AuditID:       auditID,
		Mode:          string(mode),
		Status:        string(status),
		GeneratedAt:   time.Now().UTC(),
		TotalFindings: len(records),
		BySeverity:    map[string]int{},
		ByType:        map[string]int{},
		Verification:  map[string]int{},
	}

	for _, record := range records {
		summary.BySeverity[string(record.Severity)]++
		summary.ByType[string(record.Type)]++
		summary.Verification[record.VerificationStatus]++
	}

	for _, result := range results {
		summary.Stages = append(summary.Stages, StageSummary{
			Stage:        string(result.Stage),
			Outcome:      string(result.Outcome),
			FindingCount: result.FindingCount,
			DurationMS:   result.Duration.Milliseconds(),
			Error:        result.Error,
		})
	}

	return summary
}

// WriteSarif exports the finding list as a single-run SARIF 2.1.0 report.
// Rules are keyed by dedup hash so identical findings across audits map to
// the same rule.
func WriteSarif(path string, records []findings.Finding) error {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return fmt.Errorf("failed to create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI("webaudit", "https://github.com/webaudit/webaudit")

	seenRules := map[string]bool{}
	for _, record := range records {
		ruleID := record.DedupHash
		if !seenRules[ruleID] {
			seenRules[ruleID] = true
			run.AddRule(ruleID).
				WithName(record.Title).
				WithDescription(record.Title).
				WithProperties(map[string]interface{}{
					"type":     string(record.Type),
					"severity": string(record.Severity),
				})
		}

		message := record.Description
		if message == "" {
			message = record.Title
		}
		result := run.CreateResultForRule(ruleID).
			WithLevel(sarifLevel(record.Severity)).
			WithMessage(sarif.NewTextMessage(message))

		if record.Location.File != "" || record.Location.URL != "" {
			uri := record.Location.File
			if uri == "" {
				uri = record.Location.URL
			}
			physical := sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewSimpleArtifactLocation(uri))
			if record.Location.Line > 0 {
				physical = physical.WithRegion(sarif.NewSimpleRegion(record.Location.Line, record.Location.Line))
			}
			result.AddLocation(sarif.NewLocationWithPhysicalLocation(physical))
		}
	}

	report.AddRun(run)

	buf, err := json.MarshalIndent(report, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal SARIF report: %w", err)
	}
	return files.WriteFileAtomic(path, buf)
}

// sarifLevel maps P0..P4 onto the SARIF level scale.
func sarifLevel(severity findings.Severity) string {
	switch severity {
	case findings.SeverityP0, findings.SeverityP1:
		return "error"
	case findings.SeverityP2:
		return "warning"
	case findings.SeverityP3:
		return "note"
	default:
		return "none"
	}
}
