package models

import "time"

// TopicStatus is the derived review state of a topic.
type TopicStatus string

const (
	TopicStatusPreliminary TopicStatus = "PRELIMINARY"
	TopicStatusInReview    TopicStatus = "EN_REVISION"
	TopicStatusRevise      TopicStatus = "REVISE"
	TopicStatusRejected    TopicStatus = "REJECTED"
	TopicStatusApproved    TopicStatus = "APPROVED"
)

// Valid reports whether s is a known status.
func (s TopicStatus) Valid() bool {
	switch s {
	case TopicStatusPreliminary, TopicStatusInReview, TopicStatusRevise, TopicStatusRejected, TopicStatusApproved:
		return true
	}
	return false
}

// Topic is a thesis topic proposed for a student.
type Topic struct {
	ID         string      `db:"id" json:"id"`
	Title      string      `db:"title" json:"title"`
	StudentID  string      `db:"student_id" json:"student_id"`
	Status     TopicStatus `db:"status" json:"status"`
	ApprovedAt *time.Time  `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updated_at"`
}

// TopicFilter narrows topic listings.
type TopicFilter struct {
	StudentID   string
	EvaluatorID string
	Status      TopicStatus
	Search      string
	Page        int
	PageSize    int
}

// TopicDetail is a topic with its version history and evaluator panel.
type TopicDetail struct {
	Topic
	Versions    []TopicVersion     `json:"versions"`
	Assignments []AssignmentDetail `json:"assignments"`
}
