package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/thesis-review-api/internal/dto"
	"github.com/noah-isme/thesis-review-api/internal/models"
	"github.com/noah-isme/thesis-review-api/internal/service"
	appErrors "github.com/noah-isme/thesis-review-api/pkg/errors"
	"github.com/noah-isme/thesis-review-api/pkg/response"
)

type versionService interface {
	Submit(ctx context.Context, actor models.Actor, topicID string, req dto.SubmitVersionRequest, upload dto.DocumentUpload) (*service.Submission, error)
	DownloadURL(ctx context.Context, actor models.Actor, versionID string) (*dto.DownloadURLResponse, error)
}

// VersionHandler exposes document version endpoints.
type VersionHandler struct {
	service versionService
}

// NewVersionHandler constructs the handler.
func NewVersionHandler(service versionService) *VersionHandler {
	return &VersionHandler{service: service}
}

// Submit godoc
// @Summary Submit a new document version
// @Tags Versions
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Topic ID"
// @Param document formData file true "Revised document"
// @Param comment formData string false "Note for the evaluators"
// @Param assignment_id formData string false "Reopen only this assignment"
// @Success 201 {object} response.Envelope
// @Router /topics/{id}/versions [post]
func (h *VersionHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.SubmitVersionRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid version payload"))
		return
	}
	upload, file, err := documentFromForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	submission, err := h.service.Submit(c.Request.Context(), actor, c.Param("id"), req, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}

// DownloadURL godoc
// @Summary Issue a signed download link for a version document
// @Tags Versions
// @Produce json
// @Param id path string true "Version ID"
// @Success 200 {object} response.Envelope
// @Router /versions/{id}/download-url [get]
func (h *VersionHandler) DownloadURL(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	link, err := h.service.DownloadURL(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, link)
}
