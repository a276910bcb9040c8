package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/thesis-review-api/internal/dto"
	"github.com/noah-isme/thesis-review-api/internal/models"
	appErrors "github.com/noah-isme/thesis-review-api/pkg/errors"
	"github.com/noah-isme/thesis-review-api/pkg/response"
)

type topicService interface {
	Create(ctx context.Context, actor models.Actor, req dto.CreateTopicRequest, upload dto.DocumentUpload) (*models.TopicDetail, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.TopicDetail, error)
	List(ctx context.Context, actor models.Actor, query dto.TopicQuery) ([]models.Topic, *models.Pagination, error)
	Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateTopicRequest) (*models.Topic, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
	ListVersions(ctx context.Context, actor models.Actor, topicID string) ([]models.TopicVersion, error)
}

// TopicHandler exposes topic endpoints.
type TopicHandler struct {
	service topicService
}

// NewTopicHandler constructs the handler.
func NewTopicHandler(service topicService) *TopicHandler {
	return &TopicHandler{service: service}
}

// List godoc
// @Summary List topics visible to the caller
// @Tags Topics
// @Produce json
// @Param status query string false "Status filter"
// @Param student_id query string false "Student filter (coordinators only)"
// @Param search query string false "Title search"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /topics [get]
func (h *TopicHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.TopicQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	topics, pagination, err := h.service.List(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, topics, pagination)
}

// Create godoc
// @Summary Register a topic with its first document
// @Tags Topics
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param student_id formData string true "Owning student"
// @Param document formData file true "Topic document"
// @Success 201 {object} response.Envelope
// @Router /topics [post]
func (h *TopicHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateTopicRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid topic payload"))
		return
	}
	upload, file, err := documentFromForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	detail, err := h.service.Create(c.Request.Context(), actor, req, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Get godoc
// @Summary Get a topic with versions and evaluator panel
// @Tags Topics
// @Produce json
// @Param id path string true "Topic ID"
// @Success 200 {object} response.Envelope
// @Router /topics/{id} [get]
func (h *TopicHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	detail, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

// Update godoc
// @Summary Update a PRELIMINARY topic
// @Tags Topics
// @Accept json
// @Produce json
// @Param id path string true "Topic ID"
// @Param payload body dto.UpdateTopicRequest true "Topic payload"
// @Success 200 {object} response.Envelope
// @Router /topics/{id} [put]
func (h *TopicHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.UpdateTopicRequest
	if !bindJSON(c, &req, "invalid topic payload") {
		return
	}
	topic, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, topic)
}

// Delete godoc
// @Summary Delete a PRELIMINARY topic
// @Tags Topics
// @Param id path string true "Topic ID"
// @Success 204
// @Router /topics/{id} [delete]
func (h *TopicHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListVersions godoc
// @Summary List the document versions of a topic
// @Tags Versions
// @Produce json
// @Param id path string true "Topic ID"
// @Success 200 {object} response.Envelope
// @Router /topics/{id}/versions [get]
func (h *TopicHandler) ListVersions(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	versions, err := h.service.ListVersions(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, versions)
}
