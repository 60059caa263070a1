package run

import (
	"fmt"
	"net/url"
	"os"

	"github.com/webaudit/webaudit/internal/pipeline"
)

// validateRunArgs validates the arguments provided to the run command.
func validateRunArgs(options *RunOptions) error {
	if options.URL == "" {
		return fmt.Errorf("the 'url' flag must be specified")
	}
	parsed, err := url.Parse(options.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("the 'url' flag must be an absolute URL: %q", options.URL)
	}

	if !pipeline.ValidMode(pipeline.Mode(options.Mode)) {
		return fmt.Errorf("unknown mode %q; expected full, quick or code-only", options.Mode)
	}

	if options.Codebase == "" {
		return fmt.Errorf("the 'codebase' flag must be specified")
	}
	if _, err := os.Stat(options.Codebase); os.IsNotExist(err) {
		return fmt.Errorf("the codebase path does not exist: %v", options.Codebase)
	}

	if options.PRD != "" {
		if _, err := os.Stat(options.PRD); os.IsNotExist(err) {
			return fmt.Errorf("the PRD path does not exist: %v", options.PRD)
		}
	}
	if options.Inputs != "" {
		if _, err := os.Stat(options.Inputs); os.IsNotExist(err) {
			return fmt.Errorf("the inputs path does not exist: %v", options.Inputs)
		}
	}
	if options.Baseline != "" {
		if _, err := os.Stat(options.Baseline); os.IsNotExist(err) {
			return fmt.Errorf("the baseline audit directory does not exist: %v", options.Baseline)
		}
	}

	return nil
}
