package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/thesis-review-api/internal/dto"
	"github.com/noah-isme/thesis-review-api/internal/middleware"
	"github.com/noah-isme/thesis-review-api/internal/models"
	"github.com/noah-isme/thesis-review-api/internal/service"
)

type topicServiceMock struct {
	createReq    dto.CreateTopicRequest
	createUpload dto.DocumentUpload
	createResp   *models.TopicDetail
	createErr    error
	getResp      *models.TopicDetail
	getErr       error
	lastQuery    dto.TopicQuery
	listResp     []models.Topic
	listPage     *models.Pagination
	listErr      error
	lastActor    models.Actor
	deleted      string
	called       bool
}

func (m *topicServiceMock) Create(ctx context.Context, actor models.Actor, req dto.CreateTopicRequest, upload dto.DocumentUpload) (*models.TopicDetail, error) {
	m.called = true
	m.lastActor = actor
	m.createReq = req
	m.createUpload = upload
	return m.createResp, m.createErr
}

func (m *topicServiceMock) Get(ctx context.Context, actor models.Actor, id string) (*models.TopicDetail, error) {
	m.called = true
	m.lastActor = actor
	return m.getResp, m.getErr
}

func (m *topicServiceMock) List(ctx context.Context, actor models.Actor, query dto.TopicQuery) ([]models.Topic, *models.Pagination, error) {
	m.called = true
	m.lastActor = actor
	m.lastQuery = query
	return m.listResp, m.listPage, m.listErr
}

func (m *topicServiceMock) Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateTopicRequest) (*models.Topic, error) {
	m.called = true
	return &models.Topic{ID: id, Title: req.Title}, nil
}

func (m *topicServiceMock) Delete(ctx context.Context, actor models.Actor, id string) error {
	m.called = true
	m.deleted = id
	return nil
}

func (m *topicServiceMock) ListVersions(ctx context.Context, actor models.Actor, topicID string) ([]models.TopicVersion, error) {
	m.called = true
	return []models.TopicVersion{{TopicID: topicID, VersionNumber: 1}}, nil
}

type assignmentServiceMock struct {
	lastEvaluator string
	assignReq     dto.AssignEvaluatorsRequest
	called        bool
}

func (m *assignmentServiceMock) AssignEvaluators(ctx context.Context, actor models.Actor, topicID string, req dto.AssignEvaluatorsRequest) ([]models.AssignmentDetail, error) {
	m.called = true
	m.assignReq = req
	return []models.AssignmentDetail{}, nil
}

func (m *assignmentServiceMock) Get(ctx context.Context, actor models.Actor, id string) (*models.AssignmentDetail, error) {
	m.called = true
	return &models.AssignmentDetail{}, nil
}

func (m *assignmentServiceMock) ListByTopic(ctx context.Context, actor models.Actor, topicID string) ([]models.AssignmentDetail, error) {
	m.called = true
	return nil, nil
}

func (m *assignmentServiceMock) ListByEvaluator(ctx context.Context, actor models.Actor, evaluatorID string) ([]models.AssignmentDetail, error) {
	m.called = true
	m.lastEvaluator = evaluatorID
	return nil, nil
}

type versionServiceMock struct {
	submitReq    dto.SubmitVersionRequest
	submitUpload []byte
	submitResp   *service.Submission
	submitErr    error
	called       bool
}

func (m *versionServiceMock) Submit(ctx context.Context, actor models.Actor, topicID string, req dto.SubmitVersionRequest, upload dto.DocumentUpload) (*service.Submission, error) {
	m.called = true
	m.submitReq = req
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(upload.Content); err != nil {
		return nil, err
	}
	m.submitUpload = buf.Bytes()
	return m.submitResp, m.submitErr
}

func (m *versionServiceMock) DownloadURL(ctx context.Context, actor models.Actor, versionID string) (*dto.DownloadURLResponse, error) {
	m.called = true
	return &dto.DownloadURLResponse{URL: "/api/v1/files/download?token=t", Token: "t"}, nil
}

type reviewServiceMock struct {
	lastReviewID     string
	lastAssignmentID string
	lastReq          dto.RecordVerdictRequest
	verdictResp      *service.VerdictResult
	verdictErr       error
	called           bool
}

func (m *reviewServiceMock) RecordVerdict(ctx context.Context, actor models.Actor, reviewID string, req dto.RecordVerdictRequest) (*service.VerdictResult, error) {
	m.called = true
	m.lastReviewID = reviewID
	m.lastReq = req
	return m.verdictResp, m.verdictErr
}

func (m *reviewServiceMock) RecordVerdictForAssignment(ctx context.Context, actor models.Actor, assignmentID string, req dto.RecordVerdictRequest) (*service.VerdictResult, error) {
	m.called = true
	m.lastAssignmentID = assignmentID
	m.lastReq = req
	return m.verdictResp, m.verdictErr
}

func (m *reviewServiceMock) Get(ctx context.Context, actor models.Actor, reviewID string) (*models.Review, error) {
	m.called = true
	m.lastReviewID = reviewID
	return &models.Review{ID: reviewID}, nil
}

func (m *reviewServiceMock) Latest(ctx context.Context, actor models.Actor, assignmentID string) (*models.Review, error) {
	m.called = true
	m.lastAssignmentID = assignmentID
	return &models.Review{AssignmentID: assignmentID}, nil
}

func (m *reviewServiceMock) ListByAssignment(ctx context.Context, actor models.Actor, assignmentID string) ([]models.Review, error) {
	m.called = true
	m.lastAssignmentID = assignmentID
	return nil, nil
}

type feedbackServiceMock struct {
	description string
	comment     dto.AddCommentRequest
	called      bool
}

func (m *feedbackServiceMock) AddComment(ctx context.Context, actor models.Actor, assignmentID string, req dto.AddCommentRequest) (*models.FeedbackComment, error) {
	m.called = true
	m.comment = req
	return &models.FeedbackComment{AssignmentID: assignmentID, AuthorID: actor.ID, Body: req.Body}, nil
}

func (m *feedbackServiceMock) AddFile(ctx context.Context, actor models.Actor, assignmentID, description string, upload dto.DocumentUpload) (*models.FeedbackFile, error) {
	m.called = true
	m.description = description
	return &models.FeedbackFile{}, nil
}

func (m *feedbackServiceMock) List(ctx context.Context, actor models.Actor, assignmentID string) (*models.AssignmentFeedback, error) {
	m.called = true
	return &models.AssignmentFeedback{}, nil
}

type documentOpenerMock struct {
	path string
	ref  string
	err  error
}

func (m *documentOpenerMock) Open(token string) (*os.File, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	f, err := os.Open(m.path)
	return f, m.ref, err
}

func withActor(c *gin.Context, id string, role models.Role) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: id, Role: role})
}

// multipartRequest builds a multipart body with fields and, when content is non-nil, a document part.
func multipartRequest(t *testing.T, method, target string, fields map[string]string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if content != nil {
		part, err := writer.CreateFormFile(documentField, "tesis.pdf")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(method, target, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
