package generate

import (
	"github.com/webaudit/webaudit/internal/browser"
	"github.com/webaudit/webaudit/internal/findings"
)

// FromInteraction converts one interaction attempt into at most one finding.
// No observed error means no finding. An error backed by console errors or a
// 5xx network failure is P1; an error with no corroborating signal is P2.
func (g *Generator) FromInteraction(result browser.InteractionResult) ([]findings.Finding, error) {
	if !result.ErrorObserved {
		return nil, nil
	}

	severity := findings.SeverityP2
	if len(result.ConsoleErrors) > 0 || hasServerFailure(result.NetworkFailures) {
		severity = findings.SeverityP1
	}

	requests := make([]findings.NetworkRequest, 0, len(result.NetworkFailures))
	for _, failure := range result.NetworkFailures {
		requests = append(requests, findings.NetworkRequest{
			Method: failure.Method,
			URL:    failure.URL,
			Status: failure.Status,
		})
	}

	title := "Interaction failed: " + result.Description
	record, err := g.factory.Create(findings.Finding{
		Type:        findings.TypeFunctionality,
		Severity:    severity,
		Title:       title,
		Description: result.ErrorMessage,
		Source:      "interaction",
		Location:    findings.Location{URL: result.PageURL, Selector: result.Selector},
		Evidence: findings.Evidence{
			Screenshots:     append([]string{}, result.Screenshots...),
			ConsoleMessages: result.ConsoleErrors,
			NetworkRequests: requests,
		},
		Reproduction: reproduction(
			"Navigate to %s, %s, observe the error", result.PageURL, result.Description),
	})
	if err != nil {
		return nil, err
	}
	return []findings.Finding{record}, nil
}

func hasServerFailure(failures []browser.NetworkFailure) bool {
	for _, failure := range failures {
		if failure.Status >= 500 {
			return true
		}
	}
	return false
}
