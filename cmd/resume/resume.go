package resume

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/webaudit/webaudit/internal/audit"
	"github.com/webaudit/webaudit/internal/pipeline"
	"github.com/webaudit/webaudit/pkg/shared/config"
	"github.com/webaudit/webaudit/pkg/shared/errors"
	"github.com/webaudit/webaudit/pkg/shared/logger"
)

var (
	AppConfig *config.Config

	exampleResumeUsage = `  # Resuming an interrupted audit from its directory
  webaudit resume ~/.webaudit/audits/audit-4f1c9b2e

  # Resuming with the browser backend's output for the remaining stages
  webaudit resume --inputs /path/to/browser_output ~/.webaudit/audits/audit-4f1c9b2e`

	resumeOptions struct {
		URL      string
		Codebase string
		PRD      string
		Inputs   string
	}
)

// ResumeCmd represents the resume command.
var ResumeCmd = &cobra.Command{
	Use:                   "resume AUDIT_DIR",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleResumeUsage,
	Short:                 "Resume an interrupted audit from its checkpoint",
	Args:                  cobra.ExactArgs(1),
	RunE:                  runResumeCommand,
}

// NewResumeCmd exposes the command for registration on the root.
func NewResumeCmd() *cobra.Command {
	return ResumeCmd
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// runResumeCommand executes the resume command.
func runResumeCommand(cmd *cobra.Command, args []string) error {
	log := logger.NewLogger(AppConfig, "core-resume")

	auditDir := args[0]
	if _, err := os.Stat(auditDir); err != nil {
		return fmt.Errorf("audit directory is not accessible: %w", err)
	}

	auditor, err := audit.Open(AppConfig, log, audit.RunConfig{
		BaseURL:      resumeOptions.URL,
		CodebasePath: resumeOptions.Codebase,
		PRDPath:      resumeOptions.PRD,
		InputsDir:    resumeOptions.Inputs,
		Parallel:     true,
		StageTimeout: AppConfig.Audit.StageTimeout,
	}, auditDir)
	if err != nil {
		log.Error("failed to open audit", "error", err)
		return err
	}

	result, err := auditor.Resume(cmd.Context())
	if err != nil {
		log.Error("audit resume failed", "error", err)
		return err
	}

	fmt.Printf("Audit: %s\n", result.AuditID)
	fmt.Printf("Status: %s\n", result.Status)
	for _, stage := range result.Results {
		fmt.Printf("  %-12s %s\n", stage.Stage, stage.Outcome)
	}
	if result.Status == pipeline.StatusFailed {
		return errors.NewCommandError(fmt.Errorf("audit %s finished with status %s", result.AuditID, result.Status), 2)
	}
	return nil
}

// Initialize flags for the resume command.
func init() {
	ResumeCmd.Flags().StringVarP(&resumeOptions.URL, "url", "u", "", "Base URL of the application; required when remaining stages probe the target.")
	ResumeCmd.Flags().StringVarP(&resumeOptions.Codebase, "codebase", "b", "", "Path to the codebase; required when the code-scan stage has not completed.")
	ResumeCmd.Flags().StringVar(&resumeOptions.PRD, "prd", "", "Path to the product requirements document for gap analysis.")
	ResumeCmd.Flags().StringVar(&resumeOptions.Inputs, "inputs", "", "Path to the browser backend's structured output directory.")
}
