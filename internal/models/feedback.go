package models

import "time"

// FeedbackComment is a free-text note an evaluator leaves on an assignment.
type FeedbackComment struct {
	ID           string    `db:"id" json:"id"`
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	AuthorID     string    `db:"author_id" json:"author_id"`
	Body         string    `db:"body" json:"body"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// FeedbackFile is an annotated document an evaluator attaches to an assignment.
type FeedbackFile struct {
	ID           string    `db:"id" json:"id"`
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	AuthorID     string    `db:"author_id" json:"author_id"`
	DocumentRef  string    `db:"document_ref" json:"document_ref"`
	Description  *string   `db:"description" json:"description,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// AssignmentFeedback groups everything an evaluator attached to an assignment, newest first.
type AssignmentFeedback struct {
	Comments []FeedbackComment `json:"comments"`
	Files    []FeedbackFile    `json:"files"`
}
