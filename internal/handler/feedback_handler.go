package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/thesis-review-api/internal/dto"
	"github.com/noah-isme/thesis-review-api/internal/models"
	"github.com/noah-isme/thesis-review-api/pkg/response"
)

type feedbackService interface {
	AddComment(ctx context.Context, actor models.Actor, assignmentID string, req dto.AddCommentRequest) (*models.FeedbackComment, error)
	AddFile(ctx context.Context, actor models.Actor, assignmentID, description string, upload dto.DocumentUpload) (*models.FeedbackFile, error)
	List(ctx context.Context, actor models.Actor, assignmentID string) (*models.AssignmentFeedback, error)
}

// FeedbackHandler exposes evaluator feedback endpoints.
type FeedbackHandler struct {
	service feedbackService
}

// NewFeedbackHandler constructs the handler.
func NewFeedbackHandler(service feedbackService) *FeedbackHandler {
	return &FeedbackHandler{service: service}
}

// AddComment godoc
// @Summary Comment on an assignment
// @Tags Feedback
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body dto.AddCommentRequest true "Comment"
// @Success 201 {object} response.Envelope
// @Router /assignments/{id}/feedback/comments [post]
func (h *FeedbackHandler) AddComment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.AddCommentRequest
	if !bindJSON(c, &req, "invalid comment payload") {
		return
	}
	comment, err := h.service.AddComment(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}

// AddFile godoc
// @Summary Attach an annotated document to an assignment
// @Tags Feedback
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Assignment ID"
// @Param document formData file true "Annotated document"
// @Param description formData string false "Description"
// @Success 201 {object} response.Envelope
// @Router /assignments/{id}/feedback/files [post]
func (h *FeedbackHandler) AddFile(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	upload, file, err := documentFromForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	created, err := h.service.AddFile(c.Request.Context(), actor, c.Param("id"), c.PostForm("description"), upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// List godoc
// @Summary List the feedback of an assignment
// @Tags Feedback
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/feedback [get]
func (h *FeedbackHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	feedback, err := h.service.List(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, feedback)
}
