package dto

// AssignEvaluatorsRequest names the three Tribunal members who will review a topic.
type AssignEvaluatorsRequest struct {
	EvaluatorIDs []string `json:"evaluatorIds" validate:"len=3,unique,dive,required"`
}
