package dto

// SubmitVersionRequest accompanies a new document version. AssignmentID, when set, reopens only
// that evaluator's review.
type SubmitVersionRequest struct {
	Comment      string `form:"comment" validate:"omitempty,max=2000"`
	AssignmentID string `form:"assignment_id"`
}
