package findings

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// LegacyFinding is the minimal pre-schema record produced by earlier audits.
type LegacyFinding struct {
	Category        string `json:"category"`
	Issue           string `json:"issue"`
	CodeEvidence    string `json:"code_evidence,omitempty"`
	BrowserEvidence string `json:"browser_evidence,omitempty"`
	Fix             string `json:"fix,omitempty"`
}

var fileLineRe = regexp.MustCompile(`([\w./\\-]+\.\w+):(\d+)`)

// UpgradeLegacy maps a legacy record onto the canonical schema. The category
// string is classified into the fixed type taxonomy by keyword matching and
// the first file:line code reference becomes the location.
func (f *Factory) UpgradeLegacy(old LegacyFinding) (Finding, error) {
	title := strings.TrimSpace(old.Issue)
	if title == "" {
		title = strings.TrimSpace(old.Category)
	}

	description := strings.TrimSpace(old.CodeEvidence)
	if old.Fix != "" {
		if description != "" {
			description += "\n\n"
		}
		description += fmt.Sprintf("Suggested fix: %s", old.Fix)
	}

	record := Finding{
		Type:        ClassifyCategory(old.Category),
		Severity:    SeverityP2,
		Title:       title,
		Description: description,
		Source:      "legacy",
		Evidence: Evidence{
			PageExcerpt: old.BrowserEvidence,
		},
	}

	if match := fileLineRe.FindStringSubmatch(old.CodeEvidence); match != nil {
		record.Location.File = match[1]
		if line, err := strconv.Atoi(match[2]); err == nil {
			record.Location.Line = line
		}
	}

	return f.Create(record)
}

// ClassifyCategory maps a free-form legacy category string into the fixed taxonomy.
func ClassifyCategory(category string) Type {
	c := strings.ToLower(category)
	switch {
	case strings.Contains(c, "security"):
		return TypeSecurity
	case strings.Contains(c, "ui"), strings.Contains(c, "visual"), strings.Contains(c, "responsive"):
		return TypeUI
	case strings.Contains(c, "performance"), strings.Contains(c, "perf"):
		return TypePerformance
	case strings.Contains(c, "accessibility"), strings.Contains(c, "a11y"):
		return TypeAccessibility
	case strings.Contains(c, "data"), strings.Contains(c, "integrity"):
		return TypeDataIntegrity
	case strings.Contains(c, "prd"), strings.Contains(c, "compliance"), strings.Contains(c, "gap"):
		return TypePRDGap
	case strings.Contains(c, "quality"), strings.Contains(c, "code"):
		return TypeQuality
	default:
		return TypeFunctionality
	}
}
