package audit

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/webaudit/webaudit/internal/findings"
	"github.com/webaudit/webaudit/internal/pipeline"
	"github.com/webaudit/webaudit/pkg/shared/artifacts"
)

// requirementLineRe matches bulleted or numbered requirement lines in a PRD.
var requirementLineRe = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+(.{8,})$`)

// stopwords excluded when deriving requirement keywords.
var stopwords = map[string]bool{
	"able": true, "allow": true, "must": true, "shall": true, "should": true,
	"support": true, "system": true, "that": true, "the": true, "user": true,
	"users": true, "when": true, "will": true, "with": true, "have": true,
	"page": true, "this": true, "application": true,
}

// runCompare checks the PRD's requirements against the explored pages and
// emits a prd-gap finding for every requirement with no trace in the
// application. Without a PRD the stage completes with nothing to do.
func (a *Auditor) runCompare(ctx context.Context) (pipeline.StageOutput, error) {
	payload := struct {
		PRDPath      string   `json:"prd_path,omitempty"`
		Requirements int      `json:"requirements"`
		Gaps         []string `json:"gaps,omitempty"`
	}{PRDPath: a.runCfg.PRDPath}

	if a.runCfg.PRDPath == "" {
		path, err := artifacts.SaveStageArtifact(a.stagesDir(), a.logger, string(pipeline.StageCompare), payload)
		if err != nil {
			return pipeline.StageOutput{}, err
		}
		return pipeline.StageOutput{ArtifactPath: path}, nil
	}

	prd, err := os.ReadFile(a.runCfg.PRDPath)
	if err != nil {
		return pipeline.StageOutput{}, fmt.Errorf("failed to read PRD %q: %w", a.runCfg.PRDPath, err)
	}
	requirements := ExtractRequirements(string(prd))
	payload.Requirements = len(requirements)

	inputs, err := LoadInputs(a.runCfg.InputsDir)
	if err != nil {
		return pipeline.StageOutput{}, err
	}
	corpus := pageCorpus(inputs)

	var produced []findings.Finding
	for _, requirement := range requirements {
		if RequirementCovered(requirement, corpus) {
			continue
		}

		record, err := a.generator.Factory().Create(findings.Finding{
			Type:         findings.TypePRDGap,
			Severity:     findings.SeverityP2,
			Title:        fmt.Sprintf("Requirement not implemented: %s", requirement),
			Description:  fmt.Sprintf("The PRD requirement %q has no visible trace on any explored page.", requirement),
			Source:       "compare",
			Confidence:   0.4,
			Reproduction: fmt.Sprintf("Search the explored pages for terms from the requirement %q.", requirement),
		})
		if err != nil {
			return pipeline.StageOutput{}, err
		}
		produced = append(produced, record)
		payload.Gaps = append(payload.Gaps, requirement)
	}

	if err := a.saveAll(produced); err != nil {
		return pipeline.StageOutput{}, err
	}

	path, err := artifacts.SaveStageArtifact(a.stagesDir(), a.logger, string(pipeline.StageCompare), payload)
	if err != nil {
		return pipeline.StageOutput{}, err
	}
	return pipeline.StageOutput{FindingCount: len(produced), ArtifactPath: path}, nil
}

// ExtractRequirements pulls the bulleted and numbered requirement lines out
// of a PRD document.
func ExtractRequirements(prd string) []string {
	var requirements []string
	for _, line := range strings.Split(prd, "\n") {
		if match := requirementLineRe.FindStringSubmatch(line); match != nil {
			requirements = append(requirements, strings.TrimSpace(match[1]))
		}
	}
	return requirements
}

// RequirementCovered reports whether any keyword of the requirement appears
// in the page corpus.
func RequirementCovered(requirement, corpus string) bool {
	keywords := requirementKeywords(requirement)
	if len(keywords) == 0 {
		return true
	}
	for _, keyword := range keywords {
		if strings.Contains(corpus, keyword) {
			return true
		}
	}
	return false
}

// requirementKeywords derives the content words of a requirement line.
func requirementKeywords(requirement string) []string {
	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(requirement)) {
		word = strings.Trim(word, ".,;:!?()[]\"'`")
		if len(word) < 4 || stopwords[word] {
			continue
		}
		keywords = append(keywords, word)
	}
	return keywords
}

// pageCorpus concatenates the searchable text of every explored page.
func pageCorpus(inputs *Inputs) string {
	var b strings.Builder
	for _, page := range inputs.Pages {
		b.WriteString(strings.ToLower(page.Title))
		b.WriteString("\n")
		b.WriteString(strings.ToLower(page.VisibleText))
		b.WriteString("\n")
		b.WriteString(strings.ToLower(page.URL))
		b.WriteString("\n")
	}
	return b.String()
}
