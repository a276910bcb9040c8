package handler

import (
	"mime/multipart"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/thesis-review-api/internal/dto"
	"github.com/noah-isme/thesis-review-api/internal/middleware"
	"github.com/noah-isme/thesis-review-api/internal/models"
	appErrors "github.com/noah-isme/thesis-review-api/pkg/errors"
	"github.com/noah-isme/thesis-review-api/pkg/response"
)

// documentField is the multipart field carrying uploaded documents.
const documentField = "document"

// actorFromContext returns the authenticated caller, writing 401 when the route is unprotected.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Actor{}, false
	}
	return claims.Actor(), true
}

// documentFromForm opens the uploaded document. The caller must close the returned file.
func documentFromForm(c *gin.Context) (dto.DocumentUpload, multipart.File, error) {
	header, err := c.FormFile(documentField)
	if err != nil {
		return dto.DocumentUpload{}, nil, appErrors.Clone(appErrors.ErrValidation, "document is required")
	}
	file, err := header.Open()
	if err != nil {
		return dto.DocumentUpload{}, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open document")
	}
	return dto.DocumentUpload{Filename: header.Filename, Size: header.Size, Content: file}, file, nil
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message))
		return false
	}
	return true
}
