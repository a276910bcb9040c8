package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/thesis-review-api/internal/dto"
	"github.com/noah-isme/thesis-review-api/internal/models"
	"github.com/noah-isme/thesis-review-api/pkg/response"
)

type assignmentService interface {
	AssignEvaluators(ctx context.Context, actor models.Actor, topicID string, req dto.AssignEvaluatorsRequest) ([]models.AssignmentDetail, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.AssignmentDetail, error)
	ListByTopic(ctx context.Context, actor models.Actor, topicID string) ([]models.AssignmentDetail, error)
	ListByEvaluator(ctx context.Context, actor models.Actor, evaluatorID string) ([]models.AssignmentDetail, error)
}

// AssignmentHandler exposes evaluator panel endpoints.
type AssignmentHandler struct {
	service assignmentService
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(service assignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: service}
}

// Assign godoc
// @Summary Assign the three evaluators of a topic
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Topic ID"
// @Param payload body dto.AssignEvaluatorsRequest true "Evaluator IDs"
// @Success 201 {object} response.Envelope
// @Router /topics/{id}/assignments [post]
func (h *AssignmentHandler) Assign(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.AssignEvaluatorsRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}
	assignments, err := h.service.AssignEvaluators(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignments)
}

// ListByTopic godoc
// @Summary List the evaluator panel of a topic
// @Tags Assignments
// @Produce json
// @Param id path string true "Topic ID"
// @Success 200 {object} response.Envelope
// @Router /topics/{id}/assignments [get]
func (h *AssignmentHandler) ListByTopic(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	assignments, err := h.service.ListByTopic(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, assignments)
}

// ListByEvaluator godoc
// @Summary List the assignments of an evaluator
// @Tags Assignments
// @Produce json
// @Param id path string true "Evaluator user ID"
// @Success 200 {object} response.Envelope
// @Router /evaluators/{id}/assignments [get]
func (h *AssignmentHandler) ListByEvaluator(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	assignments, err := h.service.ListByEvaluator(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, assignments)
}

// Get godoc
// @Summary Get an assignment with its latest review
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	assignment, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, assignment)
}
