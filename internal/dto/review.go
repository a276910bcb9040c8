package dto

// RecordVerdictRequest is an evaluator's decision on the version under review.
type RecordVerdictRequest struct {
	Verdict      string `json:"verdict" validate:"required,oneof=APPROVED APPROVED_WITH_OBSERVATIONS REVISE REJECTED"`
	Observations string `json:"observations" validate:"omitempty,max=5000"`
}
