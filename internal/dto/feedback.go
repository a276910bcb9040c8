package dto

// AddCommentRequest attaches a comment to an assignment.
type AddCommentRequest struct {
	Body string `json:"body" validate:"required,max=5000"`
}
