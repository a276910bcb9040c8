package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/thesis-review-api/internal/dto"
	"github.com/noah-isme/thesis-review-api/internal/models"
	"github.com/noah-isme/thesis-review-api/internal/service"
	"github.com/noah-isme/thesis-review-api/pkg/response"
)

type reviewService interface {
	RecordVerdict(ctx context.Context, actor models.Actor, reviewID string, req dto.RecordVerdictRequest) (*service.VerdictResult, error)
	RecordVerdictForAssignment(ctx context.Context, actor models.Actor, assignmentID string, req dto.RecordVerdictRequest) (*service.VerdictResult, error)
	Get(ctx context.Context, actor models.Actor, reviewID string) (*models.Review, error)
	Latest(ctx context.Context, actor models.Actor, assignmentID string) (*models.Review, error)
	ListByAssignment(ctx context.Context, actor models.Actor, assignmentID string) ([]models.Review, error)
}

// ReviewHandler exposes verdict endpoints.
type ReviewHandler struct {
	service reviewService
}

// NewReviewHandler constructs the handler.
func NewReviewHandler(service reviewService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// RecordVerdict godoc
// @Summary Record the verdict of a pending review
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Review ID"
// @Param payload body dto.RecordVerdictRequest true "Verdict"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reviews/{id}/verdict [put]
func (h *ReviewHandler) RecordVerdict(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.RecordVerdictRequest
	if !bindJSON(c, &req, "invalid verdict payload") {
		return
	}
	result, err := h.service.RecordVerdict(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// RecordAssignmentVerdict godoc
// @Summary Record the verdict on the latest review of an assignment
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body dto.RecordVerdictRequest true "Verdict"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments/{id}/verdict [put]
func (h *ReviewHandler) RecordAssignmentVerdict(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.RecordVerdictRequest
	if !bindJSON(c, &req, "invalid verdict payload") {
		return
	}
	result, err := h.service.RecordVerdictForAssignment(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Get godoc
// @Summary Get a review
// @Tags Reviews
// @Produce json
// @Param id path string true "Review ID"
// @Success 200 {object} response.Envelope
// @Router /reviews/{id} [get]
func (h *ReviewHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	review, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, review)
}

// Latest godoc
// @Summary Get the latest review of an assignment
// @Tags Reviews
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/reviews/latest [get]
func (h *ReviewHandler) Latest(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	review, err := h.service.Latest(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, review)
}

// ListByAssignment godoc
// @Summary List the review history of an assignment
// @Tags Reviews
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/reviews [get]
func (h *ReviewHandler) ListByAssignment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	reviews, err := h.service.ListByAssignment(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, reviews)
}
