package findings

// Match groups a single baseline finding with the current-run findings that
// were correlated to it. A current finding may appear in multiple Match
// entries if it correlates to multiple baseline findings.
type Match struct {
	Baseline Finding
	Current  []Finding
}

// Correlator relates the findings of the current run to those of a previous
// (baseline) audit so review decisions carry forward and resolved findings
// can be reported. Use NewCorrelator and call Process; after processing,
// Matches, UnmatchedCurrent and UnmatchedBaseline expose the results.
type Correlator struct {
	Current  []Finding
	Baseline []Finding

	baselineToCurrent map[int][]int
	currentToBaseline map[int][]int

	processed bool
}

// NewCorrelator constructs a Correlator over the two finding sets. The
// correlator is inert until Process is called.
func NewCorrelator(current, baseline []Finding) *Correlator {
	return &Correlator{
		Current:  current,
		Baseline: baseline,
	}
}

// Process correlates every baseline finding with the current findings using
// four ordered stages. Once a finding has matched in an earlier stage it is
// excluded from later stages; multiple matches within one stage are allowed.
// The stages are:
// 1) equal dedup hash
// 2) type + title + location file + line
// 3) type + title + location file
// 4) type + title + location URL
// Process is idempotent.
func (c *Correlator) Process() {
	if c.processed {
		return
	}
	c.baselineToCurrent = make(map[int][]int)
	c.currentToBaseline = make(map[int][]int)

	matchedBaseline := make(map[int]bool)
	matchedCurrent := make(map[int]bool)

	for stage := 1; stage <= 4; stage++ {
		matchedBaselineThis := make(map[int]bool)
		matchedCurrentThis := make(map[int]bool)

		for bi, baseline := range c.Baseline {
			if matchedBaseline[bi] {
				continue
			}
			for ci, current := range c.Current {
				if matchedCurrent[ci] {
					continue
				}

				if matchStage(baseline, current, stage) {
					c.baselineToCurrent[bi] = append(c.baselineToCurrent[bi], ci)
					c.currentToBaseline[ci] = append(c.currentToBaseline[ci], bi)
					matchedBaselineThis[bi] = true
					matchedCurrentThis[ci] = true
				}
			}
		}

		for bi := range matchedBaselineThis {
			matchedBaseline[bi] = true
		}
		for ci := range matchedCurrentThis {
			matchedCurrent[ci] = true
		}
	}

	c.processed = true
}

// matchStage applies one stage's matching rule. Type and title must be
// present and equal for every stage except the exact-hash one.
func matchStage(a, b Finding, stage int) bool {
	if stage == 1 {
		return a.DedupHash != "" && a.DedupHash == b.DedupHash
	}

	if a.Type == "" || a.Title == "" || a.Type != b.Type || a.Title != b.Title {
		return false
	}

	switch stage {
	case 2:
		return a.Location.File != "" && a.Location.File == b.Location.File && a.Location.Line == b.Location.Line
	case 3:
		return a.Location.File != "" && a.Location.File == b.Location.File
	case 4:
		return a.Location.URL != "" && a.Location.URL == b.Location.URL
	default:
		return false
	}
}

// Matches returns one entry per baseline finding that correlated to at least
// one current finding.
func (c *Correlator) Matches() []Match {
	if !c.processed {
		c.Process()
	}

	var out []Match
	for bi, baseline := range c.Baseline {
		indices := c.baselineToCurrent[bi]
		if len(indices) == 0 {
			continue
		}
		match := Match{Baseline: baseline}
		for _, ci := range indices {
			match.Current = append(match.Current, c.Current[ci])
		}
		out = append(out, match)
	}
	return out
}

// UnmatchedCurrent returns the current findings with no baseline counterpart:
// the genuinely new findings of this run.
func (c *Correlator) UnmatchedCurrent() []Finding {
	if !c.processed {
		c.Process()
	}

	var out []Finding
	for ci, current := range c.Current {
		if len(c.currentToBaseline[ci]) == 0 {
			out = append(out, current)
		}
	}
	return out
}

// UnmatchedBaseline returns the baseline findings that no current finding
// matched: findings that appear to be resolved.
func (c *Correlator) UnmatchedBaseline() []Finding {
	if !c.processed {
		c.Process()
	}

	var out []Finding
	for bi, baseline := range c.Baseline {
		if len(c.baselineToCurrent[bi]) == 0 {
			out = append(out, baseline)
		}
	}
	return out
}

// CarriedAnnotation is a review decision inherited from a baseline finding.
type CarriedAnnotation struct {
	ID              string
	ReviewDecision  string
	IsFalsePositive bool
}

// CarryAnnotations lifts the human review state of matched baseline findings
// onto their current counterparts. Only baseline findings that were actually
// reviewed contribute; a pending decision carries nothing.
func (c *Correlator) CarryAnnotations() []CarriedAnnotation {
	var out []CarriedAnnotation
	for _, match := range c.Matches() {
		if match.Baseline.ReviewDecision == ReviewPending {
			continue
		}
		for _, current := range match.Current {
			out = append(out, CarriedAnnotation{
				ID:              current.ID,
				ReviewDecision:  match.Baseline.ReviewDecision,
				IsFalsePositive: match.Baseline.IsFalsePositive,
			})
		}
	}
	return out
}
