package findings

import (
	"time"
)

// SchemaVersion is stamped on every finding record written by this build.
const SchemaVersion = "1.0"

// Severity is the ranked urgency of a finding, P0 most urgent.
type Severity string

const (
	SeverityP0 Severity = "P0"
	SeverityP1 Severity = "P1"
	SeverityP2 Severity = "P2"
	SeverityP3 Severity = "P3"
	SeverityP4 Severity = "P4"
)

// Type is the fixed finding taxonomy.
type Type string

const (
	TypeSecurity      Type = "security"
	TypeFunctionality Type = "functionality"
	TypeUI            Type = "ui"
	TypeQuality       Type = "quality"
	TypePerformance   Type = "performance"
	TypeAccessibility Type = "accessibility"
	TypePRDGap        Type = "prd-gap"
	TypeDataIntegrity Type = "data-integrity"
)

// Verification statuses settable by the verify stage.
const (
	VerificationUnverified     = "unverified"
	VerificationConfirmed      = "confirmed"
	VerificationUnreproducible = "unreproducible"
	VerificationSkipped        = "skipped"
)

// Review decisions settable by the review path.
const (
	ReviewPending  = "pending"
	ReviewAccepted = "accepted"
	ReviewRejected = "rejected"
)

// Location points at where the issue was observed.
type Location struct {
	URL      string `json:"url,omitempty"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Selector string `json:"selector,omitempty"`
}

// NetworkRequest is a summarized request captured as evidence.
type NetworkRequest struct {
	Method string `json:"method"`
	URL    string `json:"url"`
	Status int    `json:"status"`
}

// Evidence bundles the raw material backing a finding.
type Evidence struct {
	Screenshots     []string         `json:"screenshots"`
	ConsoleMessages []string         `json:"console_messages,omitempty"`
	NetworkRequests []NetworkRequest `json:"network_requests,omitempty"`
	PageExcerpt     string           `json:"page_excerpt,omitempty"`
}

// Finding is the canonical unit of audit output. Once written to the store
// only VerificationStatus, ReviewDecision, IsFalsePositive and UpdatedAt may
// change.
type Finding struct {
	ID                 string    `json:"id"`
	Type               Type      `json:"type"`
	Severity           Severity  `json:"severity"`
	Title              string    `json:"title"`
	Description        string    `json:"description,omitempty"`
	Source             string    `json:"source"`
	Confidence         float64   `json:"confidence"` // in (0, 1]; zero means unset and is floored to 0.5 by the factory
	Location           Location  `json:"location"`
	Evidence           Evidence  `json:"evidence"`
	Reproduction       string    `json:"reproduction,omitempty"`
	DedupHash          string    `json:"dedup_hash"`
	VerificationStatus string    `json:"verification_status"`
	ReviewDecision     string    `json:"review_decision"`
	IsFalsePositive    bool      `json:"is_false_positive"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	SchemaVersion      string    `json:"schema_version"`
}

// validTypes is the closed taxonomy accepted by validation.
var validTypes = map[Type]bool{
	TypeSecurity:      true,
	TypeFunctionality: true,
	TypeUI:            true,
	TypeQuality:       true,
	TypePerformance:   true,
	TypeAccessibility: true,
	TypePRDGap:        true,
	TypeDataIntegrity: true,
}

var validSeverities = map[Severity]bool{
	SeverityP0: true,
	SeverityP1: true,
	SeverityP2: true,
	SeverityP3: true,
	SeverityP4: true,
}

var validVerificationStatuses = map[string]bool{
	VerificationUnverified:     true,
	VerificationConfirmed:      true,
	VerificationUnreproducible: true,
	VerificationSkipped:        true,
}

var validReviewDecisions = map[string]bool{
	ReviewPending:  true,
	ReviewAccepted: true,
	ReviewRejected: true,
}
