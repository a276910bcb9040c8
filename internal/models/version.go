package models

import "time"

// TopicVersion is one submitted document revision. Numbers start at 1 and never repeat per topic.
type TopicVersion struct {
	ID             string    `db:"id" json:"id"`
	TopicID        string    `db:"topic_id" json:"topic_id"`
	VersionNumber  int       `db:"version_number" json:"version_number"`
	DocumentRef    string    `db:"document_ref" json:"document_ref"`
	StudentComment *string   `db:"student_comment" json:"student_comment,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
