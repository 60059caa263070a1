package generate

import (
	"github.com/webaudit/webaudit/internal/browser"
	"github.com/webaudit/webaudit/internal/findings"
)

// diagnosticSeverity applies the fixed category table. The second return is
// false when no finding should be emitted for the report.
func diagnosticSeverity(report browser.DiagnosticReport) (findings.Severity, bool) {
	if report.Severity == "info" {
		return "", false
	}

	switch report.Category {
	case browser.DiagRenderError:
		return findings.SeverityP0, true
	case browser.DiagJSError, browser.DiagAPIFailure:
		if report.Severity == "error" {
			return findings.SeverityP1, true
		}
		return findings.SeverityP2, true
	case browser.DiagLoadingStuck, browser.DiagAuthFailure:
		return findings.SeverityP1, true
	case browser.DiagMissingResource, browser.DiagCORSError, browser.DiagWebsocketError:
		return findings.SeverityP2, true
	case browser.DiagSlowRequest, browser.DiagMixedContent:
		return findings.SeverityP3, true
	default:
		// Unknown categories are tolerated, not guessed at.
		return "", false
	}
}

// diagnosticType maps categories onto the finding taxonomy.
func diagnosticType(category string) findings.Type {
	switch category {
	case browser.DiagAuthFailure, browser.DiagMixedContent, browser.DiagCORSError:
		return findings.TypeSecurity
	case browser.DiagSlowRequest, browser.DiagLoadingStuck:
		return findings.TypePerformance
	default:
		return findings.TypeFunctionality
	}
}

// FromDiagnostics converts diagnosed page problems into findings, one per
// report that the category table maps to a severity.
func (g *Generator) FromDiagnostics(reports []browser.DiagnosticReport) ([]findings.Finding, error) {
	var out []findings.Finding

	for _, report := range reports {
		severity, ok := diagnosticSeverity(report)
		if !ok {
			continue
		}

		record, err := g.factory.Create(findings.Finding{
			Type:        diagnosticType(report.Category),
			Severity:    severity,
			Title:       report.Message,
			Description: report.Detail,
			Source:      "diagnostics",
			Location:    findings.Location{URL: report.URL},
			Evidence: findings.Evidence{
				Screenshots: append([]string{}, report.Screenshots...),
				PageExcerpt: report.Detail,
			},
			Reproduction: reproduction(
				"Navigate to %s, observe %s (%s)", report.URL, report.Category, report.Severity),
		})
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}

	return out, nil
}
