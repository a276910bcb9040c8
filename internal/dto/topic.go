package dto

// CreateTopicRequest registers a topic for a student together with its first document.
type CreateTopicRequest struct {
	Title     string `json:"title" form:"title" validate:"required,max=500"`
	StudentID string `json:"studentId" form:"student_id" validate:"required"`
}

// UpdateTopicRequest edits a topic that has not entered review.
type UpdateTopicRequest struct {
	Title string `json:"title" validate:"required,max=500"`
}

// TopicQuery holds list filters bound from the query string.
type TopicQuery struct {
	Status    string `form:"status" validate:"omitempty,oneof=PRELIMINARY EN_REVISION REVISE REJECTED APPROVED"`
	StudentID string `form:"student_id"`
	Search    string `form:"search" validate:"omitempty,max=200"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
}
