package generate

import (
	"github.com/webaudit/webaudit/internal/browser"
	"github.com/webaudit/webaudit/internal/findings"
)

// FromViewports converts responsive sub-analyzer results, taking severities verbatim.
func (g *Generator) FromViewports(results []browser.ViewportResult) ([]findings.Finding, error) {
	var out []findings.Finding

	for _, result := range results {
		record, err := g.factory.Create(findings.Finding{
			Type:        findings.TypeUI,
			Severity:    findings.Severity(result.Severity),
			Title:       result.Issue,
			Description: "Layout issue observed at viewport " + result.Viewport + ".",
			Source:      "responsive",
			Location:    findings.Location{URL: result.PageURL, Selector: result.Selector},
			Evidence: findings.Evidence{
				Screenshots: append([]string{}, result.Screenshots...),
			},
			Reproduction: reproduction(
				"Resize the viewport to %s, navigate to %s, observe the layout issue",
				result.Viewport, result.PageURL),
		})
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}

	return out, nil
}

// FromEndpoints converts api-smoke probe results, taking severities verbatim.
func (g *Generator) FromEndpoints(results []browser.EndpointResult) ([]findings.Finding, error) {
	var out []findings.Finding

	for _, result := range results {
		record, err := g.factory.Create(findings.Finding{
			Type:        findings.TypeFunctionality,
			Severity:    findings.Severity(result.Severity),
			Title:       result.Issue,
			Source:      "api-smoke",
			Location:    findings.Location{URL: result.URL},
			Evidence: findings.Evidence{
				NetworkRequests: []findings.NetworkRequest{
					{Method: result.Method, URL: result.URL, Status: result.Status},
				},
				PageExcerpt: truncate(result.Body, 300),
			},
			Reproduction: reproduction(
				"Send %s %s, observe status %d", result.Method, result.URL, result.Status),
		})
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}

	return out, nil
}
