package cmd

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/webaudit/webaudit/cmd/resume"
	"github.com/webaudit/webaudit/cmd/run"
	"github.com/webaudit/webaudit/cmd/status"
	"github.com/webaudit/webaudit/cmd/version"
	"github.com/webaudit/webaudit/pkg/shared/config"
	"github.com/webaudit/webaudit/pkg/shared/errors"
)

var (
	cfgFile   string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "webaudit [command]",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Webaudit audits a running web application together with its codebase.",
		Long: `Webaudit drives a staged audit of a web application: a reachability
	preflight, static code analysis through analyzer plugins, exploration and
	interaction analysis of the running application, finding aggregation,
	verification and reporting. Runs are checkpointed and resumable.
	`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.AddCommand(run.NewRunCmd())
	rootCmd.AddCommand(resume.NewResumeCmd())
	rootCmd.AddCommand(status.NewStatusCmd())
	rootCmd.AddCommand(version.NewVersionCmd())
}

func Execute() int {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		var cmdErr *errors.CommandError
		if stderrors.As(err, &cmdErr) {
			return cmdErr.ExitCode
		}
		return 1
	}
	return 0
}

func initConfig() {
	var err error

	if cfgFile == "" {
		cfgFile = "config.yml"
	}
	AppConfig, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Printf("initializing config file function is crashed - %v \n", err)
		os.Exit(1)
	}
	if err := config.ValidateConfig(AppConfig); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	run.Init(AppConfig)
	resume.Init(AppConfig)
	version.Init(AppConfig)
}
