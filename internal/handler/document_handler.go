package handler

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/thesis-review-api/pkg/errors"
	"github.com/noah-isme/thesis-review-api/pkg/response"
)

type documentOpener interface {
	Open(token string) (*os.File, string, error)
}

// DocumentHandler serves documents behind signed links.
type DocumentHandler struct {
	documents documentOpener
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(documents documentOpener) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// Download godoc
// @Summary Download a document through a signed link
// @Tags Documents
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /files/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, ref, err := h.documents.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Storage(err, "failed to read document"))
		return
	}
	detected, err := mimetype.DetectReader(file)
	if err != nil {
		response.Error(c, appErrors.Storage(err, "failed to read document"))
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		response.Error(c, appErrors.Storage(err, "failed to read document"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(ref)))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), detected.String(), file, nil)
}
