package findings

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPartial() Finding {
	return Finding{
		Type:     TypeFunctionality,
		Severity: SeverityP1,
		Title:    "Checkout button does nothing",
		Source:   "exploration",
		Location: Location{URL: "https://app.example.com/checkout"},
	}
}

func TestFactoryIDSequence(t *testing.T) {
	factory := NewFactory()

	for i := 1; i <= 12; i++ {
		record, err := factory.Create(validPartial())
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("F-%03d", i), record.ID)
	}

	factory.Reset()
	record, err := factory.Create(validPartial())
	require.NoError(t, err)
	assert.Equal(t, "F-001", record.ID, "reset must restart the counter")
}

func TestCreateFillsDefaults(t *testing.T) {
	factory := NewFactory()
	record, err := factory.Create(validPartial())
	require.NoError(t, err)

	assert.Equal(t, 0.5, record.Confidence)
	assert.Equal(t, VerificationUnverified, record.VerificationStatus)
	assert.Equal(t, ReviewPending, record.ReviewDecision)
	assert.False(t, record.IsFalsePositive)
	assert.NotNil(t, record.Evidence.Screenshots)
	assert.NotEmpty(t, record.DedupHash)
	assert.Equal(t, SchemaVersion, record.SchemaVersion)
	assert.False(t, record.CreatedAt.IsZero())
	assert.False(t, record.UpdatedAt.IsZero())
}

func TestCreateReportsEveryViolation(t *testing.T) {
	factory := NewFactory()
	_, err := factory.Create(Finding{
		Type:       Type("bogus"),
		Severity:   Severity("P9"),
		Title:      "   ",
		Confidence: 3,
	})
	require.Error(t, err)

	schemaErr, ok := err.(*SchemaValidationError)
	require.True(t, ok, "expected a structured SchemaValidationError, got %T", err)

	fields := make(map[string]bool)
	for _, v := range schemaErr.Violations {
		fields[v.Field] = true
	}
	for _, want := range []string{"type", "severity", "title", "confidence"} {
		assert.True(t, fields[want], "missing violation for %q in %v", want, schemaErr.Violations)
	}
	assert.True(t, strings.Contains(schemaErr.Error(), "severity"))
}

func TestDedupHashIgnoresNonIdentityFields(t *testing.T) {
	base := validPartial()

	other := base
	other.Confidence = 0.9
	other.Evidence = Evidence{Screenshots: []string{"a.png"}, PageExcerpt: "different"}
	other.Description = "totally different description"

	assert.Equal(t, ComputeDedupHash(base), ComputeDedupHash(other))
}

func TestDedupHashNormalizesTitle(t *testing.T) {
	base := validPartial()
	other := base
	other.Title = "  CHECKOUT Button Does Nothing "

	assert.Equal(t, ComputeDedupHash(base), ComputeDedupHash(other))
}

func TestDedupHashDiffersOnIdentityFields(t *testing.T) {
	base := validPartial()

	byTitle := base
	byTitle.Title = "Checkout button crashes"
	assert.NotEqual(t, ComputeDedupHash(base), ComputeDedupHash(byTitle))

	bySeverity := base
	bySeverity.Severity = SeverityP3
	assert.NotEqual(t, ComputeDedupHash(base), ComputeDedupHash(bySeverity))

	byType := base
	byType.Type = TypeUI
	assert.NotEqual(t, ComputeDedupHash(base), ComputeDedupHash(byType))

	byLocation := base
	byLocation.Location.URL = "https://app.example.com/cart"
	assert.NotEqual(t, ComputeDedupHash(base), ComputeDedupHash(byLocation))
}

func TestValidateStoredRecord(t *testing.T) {
	factory := NewFactory()
	record, err := factory.Create(validPartial())
	require.NoError(t, err)

	result := Validate(record)
	assert.True(t, result.Valid)
	require.NotNil(t, result.Record)

	record.Severity = "P7"
	result = Validate(record)
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors)
}

func TestSeedAfterAdvancesPastPersistedIDs(t *testing.T) {
	factory := NewFactory()
	factory.SeedAfter([]Finding{
		{ID: "F-001"},
		{ID: "F-003"},
		{ID: "F-002"},
	})

	record, err := factory.Create(validPartial())
	require.NoError(t, err)
	assert.Equal(t, "F-004", record.ID, "seeding must skip every persisted ID")

	factory.SeedAfter([]Finding{{ID: "F-002"}})
	record, err = factory.Create(validPartial())
	require.NoError(t, err)
	assert.Equal(t, "F-005", record.ID, "seeding never moves the counter backwards")

	fresh := NewFactory()
	fresh.SeedAfter(nil)
	record, err = fresh.Create(validPartial())
	require.NoError(t, err)
	assert.Equal(t, "F-001", record.ID)

	odd := NewFactory()
	odd.SeedAfter([]Finding{{ID: "legacy-7"}, {ID: ""}})
	record, err = odd.Create(validPartial())
	require.NoError(t, err)
	assert.Equal(t, "F-001", record.ID, "non-sequence IDs do not advance the counter")
}

func TestCreateFloorsZeroConfidence(t *testing.T) {
	factory := NewFactory()

	zero := validPartial()
	zero.Confidence = 0
	record, err := factory.Create(zero)
	require.NoError(t, err)
	assert.Equal(t, 0.5, record.Confidence, "zero means unset and takes the default")

	low := validPartial()
	low.Confidence = 0.01
	record, err = factory.Create(low)
	require.NoError(t, err)
	assert.Equal(t, 0.01, record.Confidence, "a small positive value is the lowest expressible confidence")
}
