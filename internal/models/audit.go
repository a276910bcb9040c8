package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Audit actions recorded for workflow mutations.
const (
	AuditActionTopicCreate      = "TOPIC_CREATE"
	AuditActionTopicUpdate      = "TOPIC_UPDATE"
	AuditActionTopicDelete      = "TOPIC_DELETE"
	AuditActionEvaluatorsAssign = "EVALUATORS_ASSIGN"
	AuditActionVersionSubmit    = "VERSION_SUBMIT"
	AuditActionVerdictRecord    = "VERDICT_RECORD"
	AuditActionFeedbackComment  = "FEEDBACK_COMMENT"
	AuditActionFeedbackFile     = "FEEDBACK_FILE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string         `db:"id" json:"id"`
	UserID     *string        `db:"user_id" json:"user_id,omitempty"`
	Action     string         `db:"action" json:"action"`
	Resource   string         `db:"resource" json:"resource"`
	ResourceID *string        `db:"resource_id" json:"resource_id,omitempty"`
	NewValues  types.JSONText `db:"new_values" json:"new_values,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}
