package generate

import (
	"regexp"
	"strings"

	"github.com/webaudit/webaudit/internal/browser"
	"github.com/webaudit/webaudit/internal/findings"
)

var loadingPattern = regexp.MustCompile(`(?i)\b(loading|please\s+wait)\b`)

// FromPage evaluates one explored page against the exploration rules:
// a server error is P0, a page stuck on a loading message is P1 and a page
// with no forms, at most one link and under 100 characters of visible text
// is a P2 suspected-blank page. At most one finding is emitted per page.
func (g *Generator) FromPage(page browser.PageData) ([]findings.Finding, error) {
	text := strings.TrimSpace(page.VisibleText)

	var partial findings.Finding
	switch {
	case page.StatusCode >= 500:
		partial = findings.Finding{
			Type:        findings.TypeFunctionality,
			Severity:    findings.SeverityP0,
			Title:       "Server error on " + page.URL,
			Description: "The page returned a server error status code.",
			Reproduction: reproduction(
				"Navigate to %s, observe status code %d", page.URL, page.StatusCode),
		}
	case loadingPattern.MatchString(text):
		partial = findings.Finding{
			Type:        findings.TypeFunctionality,
			Severity:    findings.SeverityP1,
			Title:       "Page stuck in loading state at " + page.URL,
			Description: "The page text still shows a loading indicator after navigation settled.",
			Reproduction: reproduction(
				"Navigate to %s, wait for network idle, observe the loading message never clears", page.URL),
		}
	case page.FormCount == 0 && page.LinkCount <= 1 && len(text) < 100:
		partial = findings.Finding{
			Type:        findings.TypeUI,
			Severity:    findings.SeverityP2,
			Title:       "Page appears blank or empty at " + page.URL,
			Description: "The page rendered with no forms, at most one link and almost no visible text.",
			Reproduction: reproduction(
				"Navigate to %s, observe the page renders without meaningful content", page.URL),
		}
	default:
		return nil, nil
	}

	partial.Source = "exploration"
	partial.Location = findings.Location{URL: page.URL}
	partial.Evidence = findings.Evidence{
		Screenshots:     append([]string{}, page.Screenshots...),
		ConsoleMessages: page.ConsoleErrors,
		PageExcerpt:     truncate(text, 300),
	}

	record, err := g.factory.Create(partial)
	if err != nil {
		return nil, err
	}
	return []findings.Finding{record}, nil
}
