package models

import (
	"fmt"
	"time"
)

// Verdict is an evaluator's decision on one version.
type Verdict string

const (
	VerdictPending                  Verdict = "PENDING"
	VerdictApproved                 Verdict = "APPROVED"
	VerdictApprovedWithObservations Verdict = "APPROVED_WITH_OBSERVATIONS"
	VerdictRevise                   Verdict = "REVISE"
	VerdictRejected                 Verdict = "REJECTED"
)

// ParseVerdict validates raw against the known verdicts.
func ParseVerdict(raw string) (Verdict, error) {
	v := Verdict(raw)
	switch v {
	case VerdictPending, VerdictApproved, VerdictApprovedWithObservations, VerdictRevise, VerdictRejected:
		return v, nil
	}
	return "", fmt.Errorf("unknown verdict %q", raw)
}

// Terminal reports whether v is a decision an evaluator can record.
func (v Verdict) Terminal() bool {
	switch v {
	case VerdictApproved, VerdictApprovedWithObservations, VerdictRevise, VerdictRejected:
		return true
	}
	return false
}

// Approving reports whether v counts towards approval.
func (v Verdict) Approving() bool {
	return v == VerdictApproved || v == VerdictApprovedWithObservations
}

// Review is an evaluator's verdict slot for a specific version.
type Review struct {
	ID            string     `db:"id" json:"id"`
	AssignmentID  string     `db:"assignment_id" json:"assignment_id"`
	VersionID     string     `db:"version_id" json:"version_id"`
	VersionNumber int        `db:"version_number" json:"version_number"`
	Verdict       Verdict    `db:"verdict" json:"verdict"`
	Observations  *string    `db:"observations" json:"observations,omitempty"`
	VerdictAt     *time.Time `db:"verdict_at" json:"verdict_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// LatestVerdict is the most recent review of one assignment, used for aggregation. The review
// columns are nil when the assignment has no review yet.
type LatestVerdict struct {
	AssignmentID  string   `db:"assignment_id" json:"assignment_id"`
	EvaluatorID   string   `db:"evaluator_id" json:"evaluator_id"`
	ReviewID      *string  `db:"review_id" json:"review_id,omitempty"`
	VersionID     *string  `db:"version_id" json:"version_id,omitempty"`
	VersionNumber *int     `db:"version_number" json:"version_number,omitempty"`
	Verdict       *Verdict `db:"verdict" json:"verdict,omitempty"`
}

// Is reports whether the latest verdict exists and equals v.
func (l LatestVerdict) Is(v Verdict) bool {
	return l.Verdict != nil && *l.Verdict == v
}
