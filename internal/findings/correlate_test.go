package findings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corrFinding(id, hash, ftype, title, file string, line int, url string) Finding {
	return Finding{
		ID:        id,
		DedupHash: hash,
		Type:      Type(ftype),
		Title:     title,
		Location:  Location{File: file, Line: line, URL: url},
	}
}

func TestCorrelatorMatchesByDedupHash(t *testing.T) {
	current := []Finding{corrFinding("F-001", "hash-a", "security", "SQL injection", "db.go", 10, "")}
	baseline := []Finding{corrFinding("F-007", "hash-a", "security", "SQL injection", "db.go", 42, "")}

	c := NewCorrelator(current, baseline)
	c.Process()

	matches := c.Matches()
	require.Len(t, matches, 1)
	assert.Equal(t, "F-007", matches[0].Baseline.ID)
	require.Len(t, matches[0].Current, 1)
	assert.Equal(t, "F-001", matches[0].Current[0].ID)
	assert.Empty(t, c.UnmatchedCurrent())
	assert.Empty(t, c.UnmatchedBaseline())
}

func TestCorrelatorFallsBackThroughStages(t *testing.T) {
	// Hashes differ, so the match has to come from type+title+file even
	// though the finding moved to another line.
	current := []Finding{corrFinding("F-001", "hash-new", "quality", "Console error on load", "app.js", 90, "")}
	baseline := []Finding{corrFinding("F-002", "hash-old", "quality", "Console error on load", "app.js", 15, "")}

	c := NewCorrelator(current, baseline)
	c.Process()

	require.Len(t, c.Matches(), 1)
	assert.Empty(t, c.UnmatchedCurrent())
}

func TestCorrelatorMatchesByURLWhenNoFile(t *testing.T) {
	current := []Finding{corrFinding("F-001", "h1", "ui", "Broken layout", "", 0, "https://app.example.com/checkout")}
	baseline := []Finding{corrFinding("F-003", "h2", "ui", "Broken layout", "", 0, "https://app.example.com/checkout")}

	c := NewCorrelator(current, baseline)
	c.Process()

	require.Len(t, c.Matches(), 1)
}

func TestCorrelatorSeparatesNewAndResolved(t *testing.T) {
	current := []Finding{
		corrFinding("F-001", "shared", "security", "Old issue", "a.go", 1, ""),
		corrFinding("F-002", "fresh", "quality", "Brand new issue", "b.go", 2, ""),
	}
	baseline := []Finding{
		corrFinding("F-010", "shared", "security", "Old issue", "a.go", 1, ""),
		corrFinding("F-011", "gone", "ui", "Fixed issue", "c.go", 3, ""),
	}

	c := NewCorrelator(current, baseline)
	c.Process()

	require.Len(t, c.Matches(), 1)

	fresh := c.UnmatchedCurrent()
	require.Len(t, fresh, 1)
	assert.Equal(t, "F-002", fresh[0].ID)

	resolved := c.UnmatchedBaseline()
	require.Len(t, resolved, 1)
	assert.Equal(t, "F-011", resolved[0].ID)
}

func TestCorrelatorEarlierStageWinsOverLater(t *testing.T) {
	// The hash match must claim the baseline finding before the weaker
	// file-only stage can pair it with the moved copy.
	current := []Finding{
		corrFinding("F-001", "exact", "security", "Hardcoded secret", "cfg.go", 5, ""),
		corrFinding("F-002", "other", "security", "Hardcoded secret", "cfg.go", 99, ""),
	}
	baseline := []Finding{corrFinding("F-010", "exact", "security", "Hardcoded secret", "cfg.go", 5, "")}

	c := NewCorrelator(current, baseline)
	c.Process()

	matches := c.Matches()
	require.Len(t, matches, 1)
	require.Len(t, matches[0].Current, 1)
	assert.Equal(t, "F-001", matches[0].Current[0].ID)

	fresh := c.UnmatchedCurrent()
	require.Len(t, fresh, 1)
	assert.Equal(t, "F-002", fresh[0].ID)
}

func TestCorrelatorProcessIsIdempotent(t *testing.T) {
	current := []Finding{corrFinding("F-001", "h", "security", "Issue", "a.go", 1, "")}
	baseline := []Finding{corrFinding("F-002", "h", "security", "Issue", "a.go", 1, "")}

	c := NewCorrelator(current, baseline)
	c.Process()
	c.Process()

	matches := c.Matches()
	require.Len(t, matches, 1)
	assert.Len(t, matches[0].Current, 1)
}

func TestCarryAnnotationsSkipsPendingReviews(t *testing.T) {
	current := []Finding{
		corrFinding("F-001", "reviewed", "security", "Reviewed issue", "a.go", 1, ""),
		corrFinding("F-002", "pending", "quality", "Unreviewed issue", "b.go", 2, ""),
	}
	rejected := corrFinding("F-010", "reviewed", "security", "Reviewed issue", "a.go", 1, "")
	rejected.ReviewDecision = ReviewRejected
	rejected.IsFalsePositive = true
	pending := corrFinding("F-011", "pending", "quality", "Unreviewed issue", "b.go", 2, "")
	pending.ReviewDecision = ReviewPending

	c := NewCorrelator(current, []Finding{rejected, pending})

	carried := c.CarryAnnotations()
	require.Len(t, carried, 1)
	assert.Equal(t, "F-001", carried[0].ID)
	assert.Equal(t, ReviewRejected, carried[0].ReviewDecision)
	assert.True(t, carried[0].IsFalsePositive)
}
