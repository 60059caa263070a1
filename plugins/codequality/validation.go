package main

import (
	"fmt"
	"os"

	"github.com/webaudit/webaudit/pkg/shared"
)

// validateAnalyze checks the request before any filesystem work starts.
func (g *AnalyzerCodeQuality) validateAnalyze(args *shared.AnalyzerRequest) error {
	if args.CodebasePath == "" {
		return fmt.Errorf("codebase path must be specified")
	}
	info, err := os.Stat(args.CodebasePath)
	if err != nil {
		return fmt.Errorf("codebase path is not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("codebase path is not a directory: %s", args.CodebasePath)
	}
	return nil
}
