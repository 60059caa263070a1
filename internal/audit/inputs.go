package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/webaudit/webaudit/internal/browser"
)

// Inputs bundles the structured browser-backend output the analysis stages
// consume. Each slice may be empty; an absent input file is not an error.
type Inputs struct {
	Pages        []browser.PageData
	Diagnostics  []browser.DiagnosticReport
	Interactions []browser.InteractionResult
	Viewports    []browser.ViewportResult
	Endpoints    []browser.EndpointResult
}

// Input file names expected inside the inputs directory.
const (
	pagesFile        = "pages.json"
	diagnosticsFile  = "diagnostics.json"
	interactionsFile = "interactions.json"
	viewportsFile    = "viewports.json"
	endpointsFile    = "endpoints.json"
)

// LoadInputs reads the browser-backend output files from dir. Missing files
// yield empty slices; malformed files are errors.
func LoadInputs(dir string) (*Inputs, error) {
	inputs := &Inputs{}
	if dir == "" {
		return inputs, nil
	}

	if err := loadInputFile(filepath.Join(dir, pagesFile), &inputs.Pages); err != nil {
		return nil, err
	}
	if err := loadInputFile(filepath.Join(dir, diagnosticsFile), &inputs.Diagnostics); err != nil {
		return nil, err
	}
	if err := loadInputFile(filepath.Join(dir, interactionsFile), &inputs.Interactions); err != nil {
		return nil, err
	}
	if err := loadInputFile(filepath.Join(dir, viewportsFile), &inputs.Viewports); err != nil {
		return nil, err
	}
	if err := loadInputFile(filepath.Join(dir, endpointsFile), &inputs.Endpoints); err != nil {
		return nil, err
	}
	return inputs, nil
}

func loadInputFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read input file %q: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse input file %q: %w", path, err)
	}
	return nil
}
