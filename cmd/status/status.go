package status

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/webaudit/webaudit/internal/checkpoint"
	"github.com/webaudit/webaudit/internal/progress"
)

var exampleStatusUsage = `  # Showing the state of an audit
  webaudit status ~/.webaudit/audits/audit-4f1c9b2e`

// StatusCmd represents the status command.
var StatusCmd = &cobra.Command{
	Use:                   "status AUDIT_DIR",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleStatusUsage,
	Short:                 "Print the checkpoint and progress of an audit",
	Args:                  cobra.ExactArgs(1),
	RunE:                  runStatusCommand,
}

// NewStatusCmd exposes the command for registration on the root.
func NewStatusCmd() *cobra.Command {
	return StatusCmd
}

// runStatusCommand executes the status command.
func runStatusCommand(cmd *cobra.Command, args []string) error {
	auditDir := args[0]
	logger := hclog.NewNullLogger()

	cp, err := checkpoint.NewStore(auditDir, logger).Load()
	if err != nil {
		return err
	}
	if cp == nil {
		return fmt.Errorf("no checkpoint found in %q", auditDir)
	}

	fmt.Printf("Audit: %s\n", cp.AuditID)
	fmt.Printf("Mode: %s\n", cp.Mode)
	fmt.Printf("Started: %s\n", cp.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Updated: %s\n", cp.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
	if cp.CurrentStage != "" {
		fmt.Printf("Current stage: %s\n", cp.CurrentStage)
	}
	fmt.Printf("Completed stages: %d\n", len(cp.CompletedStages))

	p, err := progress.NewStore(auditDir, logger).Load()
	if err != nil {
		return err
	}
	if p != nil {
		fmt.Printf("Status: %s\n", p.Status)
		fmt.Println("Stages:")
		names := make([]string, 0, len(p.Stages))
		for name := range p.Stages {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sp := p.Stages[name]
			line := fmt.Sprintf("  %-12s %s", name, sp.Status)
			if sp.Status == "completed" {
				line += fmt.Sprintf(" (%d findings)", sp.FindingCount)
			}
			if sp.Error != "" {
				line += fmt.Sprintf(" - %s", sp.Error)
			}
			fmt.Println(line)
		}
		fmt.Printf("Findings: %d\n", p.Metrics.TotalFindings)
		fmt.Printf("Pages visited: %d\n", p.Metrics.PagesVisited)
		fmt.Printf("Forms tested: %d\n", p.Metrics.FormsTested)
	}

	return nil
}
