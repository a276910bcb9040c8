package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/thesis-review-api/internal/middleware"
	"github.com/noah-isme/thesis-review-api/internal/models"
)

// Handlers groups the handlers mounted by RegisterRoutes.
type Handlers struct {
	Topics      *TopicHandler
	Assignments *AssignmentHandler
	Versions    *VersionHandler
	Reviews     *ReviewHandler
	Feedback    *FeedbackHandler
	Documents   *DocumentHandler
	Metrics     *MetricsHandler
}

// RegisterRoutes mounts the probes at the root and the review API under prefix. auth guards every
// API route except the signed download.
func RegisterRoutes(r *gin.Engine, prefix string, auth gin.HandlerFunc, h Handlers) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)
	api.GET("/files/download", h.Documents.Download)

	coordinators := middleware.RequireRoles(models.RoleDirector, models.RoleSecretario)
	tribunal := middleware.RequireRoles(models.RoleTribunal)
	students := middleware.RequireRoles(models.RoleEstudiante)

	secured := api.Group("", auth)

	topics := secured.Group("/topics")
	topics.GET("", h.Topics.List)
	topics.POST("", coordinators, h.Topics.Create)
	topics.GET("/:id", h.Topics.Get)
	topics.PUT("/:id", coordinators, h.Topics.Update)
	topics.DELETE("/:id", coordinators, h.Topics.Delete)
	topics.GET("/:id/versions", h.Topics.ListVersions)
	topics.POST("/:id/versions", students, h.Versions.Submit)
	topics.GET("/:id/assignments", h.Assignments.ListByTopic)
	topics.POST("/:id/assignments", coordinators, h.Assignments.Assign)

	secured.GET("/evaluators/:id/assignments",
		middleware.RequireSelfOrRoles("id", models.RoleDirector, models.RoleSecretario),
		h.Assignments.ListByEvaluator)

	assignments := secured.Group("/assignments/:id")
	assignments.GET("", h.Assignments.Get)
	assignments.GET("/reviews", h.Reviews.ListByAssignment)
	assignments.GET("/reviews/latest", h.Reviews.Latest)
	assignments.PUT("/verdict", tribunal, h.Reviews.RecordAssignmentVerdict)
	assignments.GET("/feedback", h.Feedback.List)
	assignments.POST("/feedback/comments", tribunal, h.Feedback.AddComment)
	assignments.POST("/feedback/files", tribunal, h.Feedback.AddFile)

	secured.GET("/reviews/:id", h.Reviews.Get)
	secured.PUT("/reviews/:id/verdict", tribunal, h.Reviews.RecordVerdict)

	secured.GET("/versions/:id/download-url", h.Versions.DownloadURL)
}
