package run

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/webaudit/webaudit/internal/audit"
	"github.com/webaudit/webaudit/internal/pipeline"
	"github.com/webaudit/webaudit/pkg/shared/config"
	"github.com/webaudit/webaudit/pkg/shared/errors"
	"github.com/webaudit/webaudit/pkg/shared/logger"
)

// RunOptions holds the arguments for the run command.
type RunOptions struct {
	URL          string
	Codebase     string
	PRD          string
	Inputs       string
	Baseline     string
	Mode         string
	Output       string
	Analyzers    []string
	NoParallel   bool
	StageTimeout time.Duration
}

var (
	AppConfig       *config.Config
	runOptions      RunOptions
	exampleRunUsage = `  # Running a full audit against a deployed application and its codebase
  webaudit run --url https://app.example.com --codebase /path/to/app

  # Running only the static code analysis stages
  webaudit run --url https://app.example.com --codebase /path/to/app --mode code-only

  # Running a quick audit with browser-backend output and a PRD for gap analysis
  webaudit run --url https://app.example.com --codebase /path/to/app --mode quick --inputs /path/to/browser_output --prd /path/to/prd.md

  # Running sequentially with a custom audit output directory
  webaudit run --url https://app.example.com --codebase /path/to/app --no-parallel --output /path/to/audits`
)

// RunCmd represents the run command.
var RunCmd = &cobra.Command{
	Use:                   "run --url URL --codebase PATH [--prd PATH] [--inputs PATH] [--mode MODE] [--no-parallel] [--output DIR]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleRunUsage,
	Short:                 "Run a staged audit of a web application",
	RunE:                  runRunCommand,
}

// NewRunCmd exposes the command for registration on the root.
func NewRunCmd() *cobra.Command {
	return RunCmd
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// runRunCommand executes the run command.
func runRunCommand(cmd *cobra.Command, args []string) error {
	log := logger.NewLogger(AppConfig, "core-run")

	if err := validateRunArgs(&runOptions); err != nil {
		log.Error("invalid run arguments", "error", err)
		return err
	}

	auditor, err := audit.New(AppConfig, log, audit.RunConfig{
		BaseURL:      runOptions.URL,
		CodebasePath: runOptions.Codebase,
		PRDPath:      runOptions.PRD,
		InputsDir:    runOptions.Inputs,
		BaselineDir:  runOptions.Baseline,
		OutputDir:    runOptions.Output,
		Mode:         pipeline.Mode(runOptions.Mode),
		Parallel:     !runOptions.NoParallel,
		Analyzers:    runOptions.Analyzers,
		StageTimeout: stageTimeout(),
	})
	if err != nil {
		log.Error("failed to prepare audit", "error", err)
		return err
	}

	log.Info("audit starting", "audit_id", auditor.AuditID(), "mode", runOptions.Mode, "dir", auditor.Dir())
	result, err := auditor.Run(cmd.Context())
	if err != nil {
		log.Error("audit run failed", "error", err)
		return err
	}

	printResult(result)
	if result.Status == pipeline.StatusFailed {
		return errors.NewCommandError(fmt.Errorf("audit %s finished with status %s", result.AuditID, result.Status), 2)
	}
	return nil
}

func stageTimeout() time.Duration {
	if runOptions.StageTimeout > 0 {
		return runOptions.StageTimeout
	}
	return AppConfig.Audit.StageTimeout
}

func printResult(result *audit.Result) {
	fmt.Printf("Audit: %s\n", result.AuditID)
	fmt.Printf("Directory: %s\n", result.Dir)
	fmt.Printf("Status: %s\n", result.Status)
	fmt.Println("Stages:")
	for _, stage := range result.Results {
		line := fmt.Sprintf("  %-12s %s", stage.Stage, stage.Outcome)
		if stage.Outcome == pipeline.OutcomeCompleted {
			line += fmt.Sprintf(" (%d findings)", stage.FindingCount)
		}
		if stage.Error != "" {
			line += fmt.Sprintf(" - %s", stage.Error)
		}
		fmt.Println(line)
	}
}

// Initialize flags for the run command.
func init() {
	RunCmd.Flags().StringVarP(&runOptions.URL, "url", "u", "", "Base URL of the deployed application to audit.")
	RunCmd.Flags().StringVarP(&runOptions.Codebase, "codebase", "b", "", "Path to the application's codebase for static analysis.")
	RunCmd.Flags().StringVar(&runOptions.PRD, "prd", "", "Path to the product requirements document for gap analysis.")
	RunCmd.Flags().StringVar(&runOptions.Inputs, "inputs", "", "Path to the browser backend's structured output directory.")
	RunCmd.Flags().StringVar(&runOptions.Baseline, "baseline", "", "Path to a previous audit directory; matched findings inherit its review decisions.")
	RunCmd.Flags().StringVarP(&runOptions.Mode, "mode", "m", "full", "Audit mode: full, quick or code-only.")
	RunCmd.Flags().StringVarP(&runOptions.Output, "output", "o", "", "Directory where the audit directory will be created.")
	RunCmd.Flags().StringSliceVar(&runOptions.Analyzers, "analyzer", nil, "Analyzer plugin to run in the code-scan stage; repeatable.")
	RunCmd.Flags().BoolVar(&runOptions.NoParallel, "no-parallel", false, "Disable parallel execution of independent stages.")
	RunCmd.Flags().DurationVar(&runOptions.StageTimeout, "stage-timeout", 0, "Per-stage timeout; defaults to the configured audit stage_timeout.")
}
