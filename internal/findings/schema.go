package findings

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

// FieldViolation describes one failed constraint during schema validation.
type FieldViolation struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
}

// SchemaValidationError reports every violated field constraint, so producers
// can be corrected deterministically rather than guessing from a generic failure.
type SchemaValidationError struct {
	Violations []FieldViolation
}

func (e *SchemaValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Constraint))
	}
	return fmt.Sprintf("finding schema validation failed: %s", strings.Join(parts, "; "))
}

// ValidationResult is the outcome of re-validating a stored record.
type ValidationResult struct {
	Valid  bool
	Record *Finding
	Errors []FieldViolation
}

// Factory mints canonical findings for exactly one audit run. The ID counter
// is instance state: constructing a fresh Factory per run (or calling Reset)
// is what keeps IDs unique across runs.
type Factory struct {
	mu      sync.Mutex
	counter int
	now     func() time.Time
}

// NewFactory returns a Factory with its ID counter at zero.
func NewFactory() *Factory {
	return &Factory{now: time.Now}
}

// Reset returns the ID counter to zero for a new run.
func (f *Factory) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counter = 0
}

// SeedAfter advances the ID counter past every given record, so a factory
// reattached to an existing store never re-mints a persisted ID. Records
// whose IDs do not follow the F-xxx sequence are ignored, and the counter
// never moves backwards.
func (f *Factory) SeedAfter(records []Finding) {
	highest := 0
	for _, record := range records {
		var n int
		if _, err := fmt.Sscanf(record.ID, "F-%d", &n); err == nil && n > highest {
			highest = n
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if highest > f.counter {
		f.counter = highest
	}
}

// NextID returns the next monotonic finding ID (F-001, F-002, ...).
func (f *Factory) NextID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counter++
	return fmt.Sprintf("F-%03d", f.counter)
}

// Create fills every omitted field with its documented default, computes the
// dedup hash when absent, stamps timestamps and validates the result. It
// either yields a fully populated, schema-valid record or fails with a
// SchemaValidationError; a partially initialized finding never escapes.
func (f *Factory) Create(partial Finding) (Finding, error) {
	record := partial

	if record.ID == "" {
		record.ID = f.NextID()
	}
	if record.Source == "" {
		record.Source = "unknown"
	}
	// A zero Confidence is indistinguishable from an omitted one and takes
	// the 0.5 default; the lowest expressible confidence is a small positive
	// value.
	if record.Confidence == 0 {
		record.Confidence = 0.5
	}
	if record.VerificationStatus == "" {
		record.VerificationStatus = VerificationUnverified
	}
	if record.ReviewDecision == "" {
		record.ReviewDecision = ReviewPending
	}
	if record.Evidence.Screenshots == nil {
		record.Evidence.Screenshots = []string{}
	}
	if record.SchemaVersion == "" {
		record.SchemaVersion = SchemaVersion
	}
	if record.DedupHash == "" {
		record.DedupHash = ComputeDedupHash(record)
	}

	now := f.now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	if violations := validate(&record); len(violations) > 0 {
		return Finding{}, &SchemaValidationError{Violations: violations}
	}
	return record, nil
}

// Validate re-validates a record loaded from storage.
func Validate(record Finding) ValidationResult {
	violations := validate(&record)
	if len(violations) > 0 {
		return ValidationResult{Valid: false, Errors: violations}
	}
	return ValidationResult{Valid: true, Record: &record}
}

// validate collects every violated constraint instead of stopping at the first.
func validate(record *Finding) []FieldViolation {
	var violations []FieldViolation

	if record.ID == "" {
		violations = append(violations, FieldViolation{Field: "id", Constraint: "must not be empty"})
	}
	if !validTypes[record.Type] {
		violations = append(violations, FieldViolation{Field: "type", Constraint: fmt.Sprintf("%q is not in the finding taxonomy", record.Type)})
	}
	if !validSeverities[record.Severity] {
		violations = append(violations, FieldViolation{Field: "severity", Constraint: fmt.Sprintf("%q is not one of P0..P4", record.Severity)})
	}
	if strings.TrimSpace(record.Title) == "" {
		violations = append(violations, FieldViolation{Field: "title", Constraint: "must not be empty"})
	}
	if record.Confidence < 0 || record.Confidence > 1 {
		violations = append(violations, FieldViolation{Field: "confidence", Constraint: fmt.Sprintf("%v is outside [0, 1]", record.Confidence)})
	}
	if !validVerificationStatuses[record.VerificationStatus] {
		violations = append(violations, FieldViolation{Field: "verification_status", Constraint: fmt.Sprintf("%q is not a known status", record.VerificationStatus)})
	}
	if !validReviewDecisions[record.ReviewDecision] {
		violations = append(violations, FieldViolation{Field: "review_decision", Constraint: fmt.Sprintf("%q is not a known decision", record.ReviewDecision)})
	}
	if record.DedupHash == "" {
		violations = append(violations, FieldViolation{Field: "dedup_hash", Constraint: "must not be empty"})
	}

	return violations
}

// ComputeDedupHash derives the content-addressed identity of a finding from
// its identity fields only. Findings differing in confidence, evidence or
// timestamps hash identically.
func ComputeDedupHash(record Finding) string {
	identity := strings.Join([]string{
		string(record.Type),
		string(record.Severity),
		strings.ToLower(strings.TrimSpace(record.Title)),
		record.Location.URL,
		record.Location.File,
	}, "|")

	sum := sha256.Sum256([]byte(identity))
	return hex.EncodeToString(sum[:])
}
