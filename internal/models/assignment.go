package models

import "time"

// EvaluatorsPerTopic is the fixed size of a review panel.
const EvaluatorsPerTopic = 3

// Assignment binds one evaluator to one topic.
type Assignment struct {
	ID          string    `db:"id" json:"id"`
	TopicID     string    `db:"topic_id" json:"topic_id"`
	EvaluatorID string    `db:"evaluator_id" json:"evaluator_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// AssignmentDetail adds the evaluator's most recent review.
type AssignmentDetail struct {
	Assignment
	LatestReview *Review `json:"latest_review,omitempty"`
}
