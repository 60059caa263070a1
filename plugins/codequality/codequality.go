package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	"github.com/webaudit/webaudit/pkg/shared"
	"github.com/webaudit/webaudit/pkg/shared/config"
)

// Metadata of the plugin
var (
	Version       = "unknown"
	GolangVersion = "unknown"
	BuildTime     = "unknown"
)

// rule is one line-oriented heuristic check.
type rule struct {
	ID       string
	Category string
	Severity string
	Title    string
	Pattern  *regexp.Regexp
}

var rules = []rule{
	{
		ID:       "hardcoded-secret",
		Category: "security",
		Severity: "high",
		Title:    "Possible hardcoded credential",
		Pattern:  regexp.MustCompile(`(?i)(password|passwd|secret|api[_-]?key|token)\s*[:=]\s*["'][^"']{6,}["']`),
	},
	{
		ID:       "sql-string-concat",
		Category: "security",
		Severity: "high",
		Title:    "SQL built by string concatenation",
		Pattern:  regexp.MustCompile(`(?i)(select|insert|update|delete)\s.*["']\s*\+`),
	},
	{
		ID:       "eval-usage",
		Category: "security",
		Severity: "medium",
		Title:    "Use of eval",
		Pattern:  regexp.MustCompile(`\beval\s*\(`),
	},
	{
		ID:       "debug-print",
		Category: "code quality",
		Severity: "low",
		Title:    "Debug print left in code",
		Pattern:  regexp.MustCompile(`\b(console\.log|fmt\.Println|print\s*\(\s*["']DEBUG)`),
	},
	{
		ID:       "todo-marker",
		Category: "code quality",
		Severity: "info",
		Title:    "Unresolved TODO or FIXME",
		Pattern:  regexp.MustCompile(`\b(TODO|FIXME|XXX)\b`),
	},
}

// sourceExtensions limits scanning to common web application source files.
var sourceExtensions = map[string]bool{
	".go": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".py": true, ".rb": true, ".php": true, ".java": true, ".html": true,
	".vue": true, ".svelte": true,
}

// AnalyzerCodeQuality represents the built-in heuristic analyzer with its
// configuration and logger.
type AnalyzerCodeQuality struct {
	logger       hclog.Logger
	globalConfig *config.Config
}

// newAnalyzerCodeQuality creates a new instance of AnalyzerCodeQuality.
func newAnalyzerCodeQuality(logger hclog.Logger) *AnalyzerCodeQuality {
	return &AnalyzerCodeQuality{
		logger: logger,
	}
}

// Setup initializes the global configuration for the analyzer instance.
func (g *AnalyzerCodeQuality) Setup(configData config.Config) (bool, error) {
	g.globalConfig = &configData
	return true, nil
}

// Analyze walks the codebase, applies the heuristic rules line by line and
// writes the raw findings to the results path.
func (g *AnalyzerCodeQuality) Analyze(args shared.AnalyzerRequest) (shared.AnalyzerResponse, error) {
	var result shared.AnalyzerResponse
	g.logger.Info("analysis is starting", "codebase", args.CodebasePath)
	g.logger.Debug("debug info", "args", args)

	if err := g.validateAnalyze(&args); err != nil {
		g.logger.Error("validation failed for analyze operation", "error", err)
		return result, err
	}

	var findings []shared.RawFinding
	err := filepath.Walk(args.CodebasePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			name := info.Name()
			if name == ".git" || name == "node_modules" || name == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		if !sourceExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		fileFindings, err := g.analyzeFile(path, args.CodebasePath)
		if err != nil {
			g.logger.Warn("failed to analyze file", "path", path, "error", err)
			return nil
		}
		findings = append(findings, fileFindings...)
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("codebase walk failed: %w", err)
	}

	if args.ResultsPath != "" {
		if err := g.writeResults(args.ResultsPath, findings); err != nil {
			return result, err
		}
		result.ResultsPath = args.ResultsPath
	}

	result.Findings = findings
	g.logger.Info("analysis finished", "codebase", args.CodebasePath, "findings", len(findings))
	return result, nil
}

// analyzeFile applies every rule to each line of one source file.
func (g *AnalyzerCodeQuality) analyzeFile(path, root string) ([]shared.RawFinding, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	relPath, err := filepath.Rel(root, path)
	if err != nil {
		relPath = path
	}

	var findings []shared.RawFinding
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		for _, r := range rules {
			if r.Pattern.MatchString(line) {
				findings = append(findings, shared.RawFinding{
					RuleID:      r.ID,
					Category:    r.Category,
					Severity:    r.Severity,
					Title:       r.Title,
					Description: fmt.Sprintf("Line %d of %s matches the %s rule: %s", lineNo, relPath, r.ID, strings.TrimSpace(line)),
					FilePath:    relPath,
					Line:        lineNo,
				})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return findings, nil
}

// writeResults saves the raw findings next to the audit's other stage output.
func (g *AnalyzerCodeQuality) writeResults(path string, findings []shared.RawFinding) error {
	data, err := json.MarshalIndent(findings, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal raw findings: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write raw findings: %w", err)
	}
	g.logger.Info("result saved", "path", path)
	return nil
}

func main() {
	logger := hclog.New(&hclog.LoggerOptions{
		Level:      hclog.Trace,
		Output:     os.Stderr,
		JSONFormat: true,
	})

	analyzerInstance := newAnalyzerCodeQuality(logger)

	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: shared.HandshakeConfig,
		Plugins: map[string]plugin.Plugin{
			shared.PluginTypeAnalyzer: &shared.AnalyzerPlugin{Impl: analyzerInstance},
		},
		Logger: logger,
	})
}
