package audit

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/webaudit/webaudit/internal/findings"
	"github.com/webaudit/webaudit/internal/pipeline"
	"github.com/webaudit/webaudit/internal/report"
	"github.com/webaudit/webaudit/pkg/shared/artifacts"
)

// DedupGroup records one cluster of findings sharing a dedup hash.
type DedupGroup struct {
	DedupHash      string   `json:"dedup_hash"`
	Representative string   `json:"representative"`
	DuplicateIDs   []string `json:"duplicate_ids,omitempty"`
}

// runAggregate clusters all stored findings by dedup hash. The highest
// confidence member represents each cluster; ties go to the lowest ID so the
// result is stable across runs. Duplicates stay on disk but are recorded in
// the artifact so the report can exclude them. When a baseline audit is set,
// the review decisions of matched baseline findings are carried onto the
// current findings.
func (a *Auditor) runAggregate(ctx context.Context) (pipeline.StageOutput, error) {
	all, err := a.store.LoadAll()
	if err != nil {
		return pipeline.StageOutput{}, err
	}

	groups := GroupByHash(all)
	duplicates := 0
	for _, group := range groups {
		duplicates += len(group.DuplicateIDs)
	}

	carried, resolved, err := a.applyBaseline(all)
	if err != nil {
		return pipeline.StageOutput{}, err
	}

	payload := struct {
		TotalFindings  int          `json:"total_findings"`
		UniqueFindings int          `json:"unique_findings"`
		Duplicates     int          `json:"duplicates"`
		Groups         []DedupGroup `json:"groups"`
		CarriedReviews int          `json:"carried_reviews,omitempty"`
		Resolved       int          `json:"resolved,omitempty"`
	}{TotalFindings: len(all), UniqueFindings: len(groups), Duplicates: duplicates, Groups: groups, CarriedReviews: carried, Resolved: resolved}

	path, err := artifacts.SaveStageArtifact(a.stagesDir(), a.logger, string(pipeline.StageAggregate), payload)
	if err != nil {
		return pipeline.StageOutput{}, err
	}
	return pipeline.StageOutput{FindingCount: len(groups), ArtifactPath: path}, nil
}

// applyBaseline correlates the current findings against those of the baseline
// audit and writes the inherited review decisions back to the store. It
// returns how many reviews were carried and how many baseline findings no
// longer appear. Without a baseline it does nothing.
func (a *Auditor) applyBaseline(all []findings.Finding) (carried, resolved int, err error) {
	if a.runCfg.BaselineDir == "" {
		return 0, 0, nil
	}

	baselineStore, err := findings.NewStore(filepath.Join(a.runCfg.BaselineDir, "findings"))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open baseline audit %q: %w", a.runCfg.BaselineDir, err)
	}
	baseline, err := baselineStore.LoadAll()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load baseline findings: %w", err)
	}

	correlator := findings.NewCorrelator(all, baseline)
	correlator.Process()

	for _, annotation := range correlator.CarryAnnotations() {
		decision := annotation.ReviewDecision
		falsePositive := annotation.IsFalsePositive
		if err := a.store.Annotate(annotation.ID, findings.Annotation{
			ReviewDecision:  &decision,
			IsFalsePositive: &falsePositive,
		}); err != nil {
			return 0, 0, err
		}
		carried++
	}

	resolved = len(correlator.UnmatchedBaseline())
	a.logger.Info("baseline correlation applied",
		"baseline", a.runCfg.BaselineDir, "carried_reviews", carried, "resolved", resolved)
	return carried, resolved, nil
}

// GroupByHash clusters findings by dedup hash, electing the highest
// confidence member (lowest ID on ties) as representative.
func GroupByHash(all []findings.Finding) []DedupGroup {
	byHash := map[string][]findings.Finding{}
	for _, record := range all {
		byHash[record.DedupHash] = append(byHash[record.DedupHash], record)
	}

	var groups []DedupGroup
	for hash, members := range byHash {
		sort.Slice(members, func(i, j int) bool {
			if members[i].Confidence != members[j].Confidence {
				return members[i].Confidence > members[j].Confidence
			}
			return members[i].ID < members[j].ID
		})

		group := DedupGroup{DedupHash: hash, Representative: members[0].ID}
		for _, dup := range members[1:] {
			group.DuplicateIDs = append(group.DuplicateIDs, dup.ID)
		}
		groups = append(groups, group)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Representative < groups[j].Representative })
	return groups
}

// runVerify re-probes each finding that points at a URL and records whether
// the problem still reproduces. Findings without a URL are marked skipped.
func (a *Auditor) runVerify(ctx context.Context) (pipeline.StageOutput, error) {
	all, err := a.store.LoadAll()
	if err != nil {
		return pipeline.StageOutput{}, err
	}

	confirmed, unreproducible, skipped := 0, 0, 0
	for _, record := range all {
		if record.VerificationStatus != findings.VerificationUnverified {
			continue
		}

		status := findings.VerificationSkipped
		if record.Location.URL != "" {
			probe, probeErr := a.prober.Probe(record.Location.URL)
			switch {
			case probeErr != nil:
				// The page itself is gone or unreachable; the finding cannot
				// be re-observed.
				status = findings.VerificationUnreproducible
			case probe.StatusCode >= 400:
				status = findings.VerificationConfirmed
			default:
				status = verdictForHealthyPage(record)
			}
		}

		switch status {
		case findings.VerificationConfirmed:
			confirmed++
		case findings.VerificationUnreproducible:
			unreproducible++
		default:
			skipped++
		}

		if err := a.store.Annotate(record.ID, findings.Annotation{VerificationStatus: &status}); err != nil {
			return pipeline.StageOutput{}, err
		}
	}

	payload := struct {
		Confirmed      int `json:"confirmed"`
		Unreproducible int `json:"unreproducible"`
		Skipped        int `json:"skipped"`
	}{Confirmed: confirmed, Unreproducible: unreproducible, Skipped: skipped}

	path, err := artifacts.SaveStageArtifact(a.stagesDir(), a.logger, string(pipeline.StageVerify), payload)
	if err != nil {
		return pipeline.StageOutput{}, err
	}
	return pipeline.StageOutput{ArtifactPath: path}, nil
}

// verdictForHealthyPage decides what a 2xx/3xx re-probe means for a finding.
// Server-error findings are retired; anything observed client-side (layout,
// console errors, content) cannot be re-checked over plain HTTP.
func verdictForHealthyPage(record findings.Finding) string {
	if record.Type == findings.TypeFunctionality && record.Severity == findings.SeverityP0 {
		return findings.VerificationUnreproducible
	}
	return findings.VerificationSkipped
}

// runReport renders report.json and the SARIF export from everything the run
// produced so far.
func (a *Auditor) runReport(ctx context.Context) (pipeline.StageOutput, error) {
	all, err := a.store.LoadAll()
	if err != nil {
		return pipeline.StageOutput{}, err
	}

	writer, err := report.NewWriter(a.dir, a.logger)
	if err != nil {
		return pipeline.StageOutput{}, err
	}

	snapshot := a.sched.State()
	status := pipeline.ComputeRunStatus(snapshot.Results, snapshot.StopRequested, snapshot.Paused)
	if _, err := writer.Generate(a.auditID, a.runCfg.Mode, status, snapshot.Results, all); err != nil {
		return pipeline.StageOutput{}, err
	}

	return pipeline.StageOutput{
		FindingCount: len(all),
		ArtifactPath: writer.Dir(),
	}, nil
}
