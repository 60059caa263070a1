// Package codescan drives the static code analyzer plugins for the code-scan
// stage and normalizes their raw output into canonical findings.
package codescan

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/webaudit/webaudit/internal/findings"
	"github.com/webaudit/webaudit/pkg/shared"
	"github.com/webaudit/webaudit/pkg/shared/config"
	"github.com/webaudit/webaudit/pkg/shared/errors"
	"github.com/webaudit/webaudit/pkg/shared/files"
)

// Runner represents the configuration and behavior of one code-scan stage.
type Runner struct {
	analyzers      []string     // Names of the analyzer plugins to run
	configPath     string       // Path to the configuration file for the analyzers
	additionalArgs []string     // Additional arguments for the analyzers
	concurrentJobs int          // Number of concurrent analyzer jobs to run
	logger         hclog.Logger // Logger for logging messages and errors
}

// AnalyzerResult is the outcome of a single analyzer plugin launch.
type AnalyzerResult struct {
	Analyzer string                 `json:"analyzer"`
	Findings []shared.RawFinding    `json:"findings"`
	Status   string                 `json:"status"`
	Message  string                 `json:"message,omitempty"`
	Request  shared.AnalyzerRequest `json:"request"`
}

// New creates a new Runner instance with the provided configuration.
func New(analyzers []string, configPath string, additionalArgs []string, concurrentJobs int, logger hclog.Logger) *Runner {
	if concurrentJobs < 1 {
		concurrentJobs = 1
	}
	return &Runner{
		analyzers:      analyzers,
		configPath:     configPath,
		additionalArgs: additionalArgs,
		concurrentJobs: concurrentJobs,
		logger:         logger,
	}
}

// PrepareRequests builds one analysis request per configured analyzer,
// creating the raw-results folder below the audit directory.
func (r *Runner) PrepareRequests(codebasePath, resultsFolder string) ([]shared.AnalyzerRequest, error) {
	if err := files.CreateFolderIfNotExists(resultsFolder); err != nil {
		return nil, fmt.Errorf("failed to create results folder %q: %w", resultsFolder, err)
	}

	requests := make([]shared.AnalyzerRequest, 0, len(r.analyzers))
	for _, analyzer := range r.analyzers {
		requests = append(requests, shared.AnalyzerRequest{
			CodebasePath:   codebasePath,
			ResultsPath:    filepath.Join(resultsFolder, fmt.Sprintf("%s-raw.json", analyzer)),
			ConfigPath:     r.configPath,
			AdditionalArgs: r.additionalArgs,
		})
	}
	return requests, nil
}

// runAnalyzer executes one analyzer plugin over RPC.
func (r *Runner) runAnalyzer(cfg *config.Config, analyzer string, request shared.AnalyzerRequest) (shared.AnalyzerResponse, error) {
	var result shared.AnalyzerResponse

	err := shared.WithPlugin(cfg, "plugin-analyzer", shared.PluginTypeAnalyzer, analyzer, func(raw interface{}) error {
		plugin, ok := raw.(shared.Analyzer)
		if !ok {
			return errors.NewNotImplementedError("Analyze", analyzer)
		}
		var err error
		result, err = plugin.Analyze(request)
		if err != nil {
			r.logger.Error("analyzer plugin failed", "analyzer", analyzer)
			return fmt.Errorf("analyzer plugin %q failed: %w", analyzer, err)
		}
		return nil
	})

	return result, err
}

// RunAnalyzers launches the configured analyzers concurrently and returns one
// result per analyzer. A failed analyzer yields a FAILED entry; it does not
// abort the others.
func (r *Runner) RunAnalyzers(cfg *config.Config, requests []shared.AnalyzerRequest) []AnalyzerResult {
	r.logger.Info("code analysis starting", "analyzers", len(r.analyzers), "goroutines", r.concurrentJobs)

	resultsChannel := make(chan AnalyzerResult, len(requests))
	values := make([]interface{}, len(requests))
	for i := range requests {
		values[i] = i
	}

	shared.ForEveryWithBoundedGoroutines(r.concurrentJobs, values, func(i int, value interface{}) {
		analyzer := r.analyzers[i]
		request := requests[i]
		r.logger.Info("goroutine started", "#", i+1, "analyzer", analyzer)

		response, err := r.runAnalyzer(cfg, analyzer, request)
		if err != nil {
			resultsChannel <- AnalyzerResult{Analyzer: analyzer, Request: request, Status: "FAILED", Message: err.Error()}
		} else {
			resultsChannel <- AnalyzerResult{Analyzer: analyzer, Request: request, Findings: response.Findings, Status: "OK"}
		}
	})

	close(resultsChannel)
	var results []AnalyzerResult
	for result := range resultsChannel {
		results = append(results, result)
	}
	return results
}

// Normalize converts the raw output of every successful analyzer launch into
// canonical findings through the factory. Raw records that fail schema
// validation are logged and dropped rather than poisoning the run.
func (r *Runner) Normalize(factory *findings.Factory, results []AnalyzerResult) []findings.Finding {
	var normalized []findings.Finding
	for _, result := range results {
		if result.Status != "OK" {
			continue
		}
		for _, raw := range result.Findings {
			record, err := normalizeRaw(factory, result.Analyzer, raw)
			if err != nil {
				r.logger.Warn("dropping invalid analyzer finding", "analyzer", result.Analyzer, "rule", raw.RuleID, "error", err)
				continue
			}
			normalized = append(normalized, record)
		}
	}
	return normalized
}

// normalizeRaw maps one analyzer-native record onto the canonical schema.
func normalizeRaw(factory *findings.Factory, analyzer string, raw shared.RawFinding) (findings.Finding, error) {
	title := strings.TrimSpace(raw.Title)
	if title == "" {
		title = raw.RuleID
	}

	return factory.Create(findings.Finding{
		Type:        findings.ClassifyCategory(raw.Category),
		Severity:    MapSeverity(raw.Severity),
		Title:       title,
		Description: raw.Description,
		Source:      "code-scan",
		Confidence:  0.7,
		Location: findings.Location{
			File: raw.FilePath,
			Line: raw.Line,
		},
		Reproduction: fmt.Sprintf("Run the %s analyzer against the codebase and inspect rule %s at %s:%d.", analyzer, raw.RuleID, raw.FilePath, raw.Line),
	})
}

// MapSeverity translates analyzer-native severity labels into the P0..P4 scale.
// Unknown labels land on P2, the same default the schema applies elsewhere.
func MapSeverity(severity string) findings.Severity {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "critical", "blocker":
		return findings.SeverityP0
	case "high", "error":
		return findings.SeverityP1
	case "medium", "moderate", "warning":
		return findings.SeverityP2
	case "low", "minor":
		return findings.SeverityP3
	case "info", "note", "informational":
		return findings.SeverityP4
	default:
		return findings.SeverityP2
	}
}
