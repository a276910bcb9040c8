package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/thesis-review-api/internal/middleware"
	"github.com/noah-isme/thesis-review-api/internal/models"
	"github.com/noah-isme/thesis-review-api/internal/service"
	appErrors "github.com/noah-isme/thesis-review-api/pkg/errors"
	"github.com/noah-isme/thesis-review-api/pkg/response"
)

type routeMocks struct {
	topics      *topicServiceMock
	assignments *assignmentServiceMock
	versions    *versionServiceMock
	reviews     *reviewServiceMock
	feedback    *feedbackServiceMock
}

// headerAuth trusts X-User and X-Role so routing can be exercised without minting tokens.
func headerAuth(c *gin.Context) {
	role, err := models.ParseRole(c.GetHeader("X-Role"))
	if err != nil || c.GetHeader("X-User") == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: c.GetHeader("X-User"), Role: role})
	c.Next()
}

func newTestRouter() (*gin.Engine, *routeMocks) {
	gin.SetMode(gin.TestMode)
	m := &routeMocks{
		topics:      &topicServiceMock{},
		assignments: &assignmentServiceMock{},
		versions:    &versionServiceMock{},
		reviews:     &reviewServiceMock{verdictResp: &service.VerdictResult{}},
		feedback:    &feedbackServiceMock{},
	}
	r := gin.New()
	RegisterRoutes(r, "/api/v1", headerAuth, Handlers{
		Topics:      NewTopicHandler(m.topics),
		Assignments: NewAssignmentHandler(m.assignments),
		Versions:    NewVersionHandler(m.versions),
		Reviews:     NewReviewHandler(m.reviews),
		Feedback:    NewFeedbackHandler(m.feedback),
		Documents:   NewDocumentHandler(&documentOpenerMock{err: appErrors.ErrUnauthorized}),
		Metrics:     NewMetricsHandler(service.NewMetricsService(), nil),
	})
	return r, m
}

func serve(r *gin.Engine, method, target, user string, role string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-User", user)
		req.Header.Set("X-Role", role)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutesRoleEnforcement(t *testing.T) {
	cases := []struct {
		name   string
		method string
		target string
		role   string
		body   string
		status int
	}{
		{"student cannot create topics", http.MethodPost, "/api/v1/topics", "ESTUDIANTE", "", http.StatusForbidden},
		{"tribunal cannot delete topics", http.MethodDelete, "/api/v1/topics/t-1", "TRIBUNAL", "", http.StatusForbidden},
		{"secretary deletes topics", http.MethodDelete, "/api/v1/topics/t-1", "SECRETARIO", "", http.StatusNoContent},
		{"coordinator cannot record verdicts", http.MethodPut, "/api/v1/reviews/r-1/verdict", "DIRECTOR", `{"verdict":"APPROVED"}`, http.StatusForbidden},
		{"tribunal records verdicts", http.MethodPut, "/api/v1/reviews/r-1/verdict", "TRIBUNAL", `{"verdict":"APPROVED"}`, http.StatusOK},
		{"student cannot assign evaluators", http.MethodPost, "/api/v1/topics/t-1/assignments", "ESTUDIANTE", `{"evaluatorIds":["a","b","c"]}`, http.StatusForbidden},
		{"tribunal cannot submit versions", http.MethodPost, "/api/v1/topics/t-1/versions", "TRIBUNAL", "", http.StatusForbidden},
		{"student cannot comment", http.MethodPost, "/api/v1/assignments/a-1/feedback/comments", "ESTUDIANTE", `{"body":"x"}`, http.StatusForbidden},
		{"everyone reads topics", http.MethodGet, "/api/v1/topics", "ESTUDIANTE", "", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, _ := newTestRouter()
			w := serve(r, tc.method, tc.target, "user-1", tc.role, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}
}

func TestRoutesRequireAuthentication(t *testing.T) {
	r, m := newTestRouter()

	w := serve(r, http.MethodGet, "/api/v1/topics", "", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, m.topics.called)

	w = serve(r, http.MethodGet, "/api/v1/files/download?token=forged", "", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code, "signed downloads are judged by their token")

	w = serve(r, http.MethodGet, "/health", "", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutesEvaluatorAssignmentsSelfOrCoordinator(t *testing.T) {
	r, m := newTestRouter()

	w := serve(r, http.MethodGet, "/api/v1/evaluators/tribunal-2/assignments", "tribunal-1", "TRIBUNAL", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, m.assignments.called)

	w = serve(r, http.MethodGet, "/api/v1/evaluators/tribunal-1/assignments", "tribunal-1", "TRIBUNAL", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tribunal-1", m.assignments.lastEvaluator)

	w = serve(r, http.MethodGet, "/api/v1/evaluators/tribunal-2/assignments", "director-1", "DIRECTOR", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutesAssignmentReviewPaths(t *testing.T) {
	r, m := newTestRouter()

	w := serve(r, http.MethodGet, "/api/v1/assignments/a-7/reviews/latest", "student-1", "ESTUDIANTE", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a-7", m.reviews.lastAssignmentID)

	w = serve(r, http.MethodPut, "/api/v1/assignments/a-8/verdict", "tribunal-1", "TRIBUNAL", `{"verdict":"REJECTED"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a-8", m.reviews.lastAssignmentID)
	assert.Equal(t, "REJECTED", m.reviews.lastReq.Verdict)
}
