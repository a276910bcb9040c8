package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/thesis-review-api/internal/models"
	appErrors "github.com/noah-isme/thesis-review-api/pkg/errors"
)

func TestTopicHandlerListReturnsPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &topicServiceMock{
		listResp: []models.Topic{{ID: "topic-1", Status: models.TopicStatusRevise}},
		listPage: &models.Pagination{Page: 2, PageSize: 5, TotalCount: 6},
	}
	handler := NewTopicHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/topics?status=REVISE&page=2&page_size=5", nil)
	withActor(c, "director-1", models.RoleDirector)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "REVISE", mockSvc.lastQuery.Status)
	assert.Equal(t, 2, mockSvc.lastQuery.Page)
	assert.Equal(t, models.Actor{ID: "director-1", Role: models.RoleDirector}, mockSvc.lastActor)

	var body struct {
		Data       []models.Topic     `json:"data"`
		Pagination *models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, 6, body.Pagination.TotalCount)
}

func TestTopicHandlerRequiresAuthenticatedCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &topicServiceMock{}
	handler := NewTopicHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/topics", nil)

	handler.List(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, mockSvc.called)
}

func TestTopicHandlerCreateMultipart(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &topicServiceMock{createResp: &models.TopicDetail{Topic: models.Topic{ID: "topic-1"}}}
	handler := NewTopicHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartRequest(t, http.MethodPost, "/topics", map[string]string{
		"title":      "Redes de sensores",
		"student_id": "student-1",
	}, []byte("%PDF-1.4\n"))
	withActor(c, "secretary-1", models.RoleSecretario)

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Redes de sensores", mockSvc.createReq.Title)
	assert.Equal(t, "student-1", mockSvc.createReq.StudentID)
	assert.Equal(t, "tesis.pdf", mockSvc.createUpload.Filename)
	assert.Equal(t, int64(9), mockSvc.createUpload.Size)
}

func TestTopicHandlerCreateWithoutDocument(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &topicServiceMock{}
	handler := NewTopicHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartRequest(t, http.MethodPost, "/topics", map[string]string{"title": "x", "student_id": "s"}, nil)
	withActor(c, "director-1", models.RoleDirector)

	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.called)
}

func TestTopicHandlerGetMapsServiceErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", appErrors.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"forbidden", appErrors.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewTopicHandler(&topicServiceMock{getErr: tc.err})

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request, _ = http.NewRequest(http.MethodGet, "/topics/topic-1", nil)
			c.Params = gin.Params{{Key: "id", Value: "topic-1"}}
			withActor(c, "student-2", models.RoleEstudiante)

			handler.Get(c)
			require.Equal(t, tc.status, w.Code)
			var body struct {
				Error appErrors.Error `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Error.Code)
		})
	}
}

func TestTopicHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &topicServiceMock{}
	handler := NewTopicHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodDelete, "/topics/topic-9", nil)
	c.Params = gin.Params{{Key: "id", Value: "topic-9"}}
	withActor(c, "director-1", models.RoleDirector)

	handler.Delete(c)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "topic-9", mockSvc.deleted)
}
