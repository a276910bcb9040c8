package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/thesis-review-api/internal/dto"
	"github.com/noah-isme/thesis-review-api/internal/models"
	appErrors "github.com/noah-isme/thesis-review-api/pkg/errors"
)

const documentKindFeedback = "feedback"

// FeedbackStore persists evaluator feedback.
type FeedbackStore interface {
	CreateComment(ctx context.Context, comment *models.FeedbackComment) error
	CreateFile(ctx context.Context, file *models.FeedbackFile) error
	ListByAssignment(ctx context.Context, assignmentID string) (*models.AssignmentFeedback, error)
}

// FeedbackService lets evaluators attach comments and annotated files to their assignments.
type FeedbackService struct {
	topics      TopicStore
	assignments AssignmentStore
	feedback    FeedbackStore
	documents   DocumentStore
	audit       *AuditService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewFeedbackService constructs a FeedbackService.
func NewFeedbackService(topics TopicStore, assignments AssignmentStore, feedback FeedbackStore, documents DocumentStore, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *FeedbackService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackService{
		topics:      topics,
		assignments: assignments,
		feedback:    feedback,
		documents:   documents,
		audit:       audit,
		validator:   validate,
		logger:      logger,
	}
}

// AddComment stores a comment from the assignment's evaluator.
func (s *FeedbackService) AddComment(ctx context.Context, actor models.Actor, assignmentID string, req dto.AddCommentRequest) (*models.FeedbackComment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid comment payload")
	}
	if _, err := s.requireEvaluator(ctx, actor, assignmentID); err != nil {
		return nil, err
	}

	comment := &models.FeedbackComment{AssignmentID: assignmentID, AuthorID: actor.ID, Body: req.Body}
	if err := s.feedback.CreateComment(ctx, comment); err != nil {
		return nil, storeError(err, "assignment not found", "failed to save comment")
	}
	s.audit.Record(ctx, actor, models.AuditActionFeedbackComment, "assignment", assignmentID, map[string]string{"comment_id": comment.ID})
	return comment, nil
}

// AddFile stores an annotated document from the assignment's evaluator.
func (s *FeedbackService) AddFile(ctx context.Context, actor models.Actor, assignmentID, description string, upload dto.DocumentUpload) (*models.FeedbackFile, error) {
	if len(description) > 2000 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "description is too long")
	}
	if _, err := s.requireEvaluator(ctx, actor, assignmentID); err != nil {
		return nil, err
	}

	ref, err := s.documents.Store(ctx, documentKindFeedback, assignmentID, upload)
	if err != nil {
		return nil, err
	}
	file := &models.FeedbackFile{AssignmentID: assignmentID, AuthorID: actor.ID, DocumentRef: ref, Description: optionalString(description)}
	if err := s.feedback.CreateFile(ctx, file); err != nil {
		s.documents.Discard(ctx, ref)
		return nil, storeError(err, "assignment not found", "failed to save feedback file")
	}
	s.audit.Record(ctx, actor, models.AuditActionFeedbackFile, "assignment", assignmentID, map[string]string{"file_id": file.ID})
	return file, nil
}

// List returns the feedback of an assignment. The owning student, the evaluator and coordinators may read it.
func (s *FeedbackService) List(ctx context.Context, actor models.Actor, assignmentID string) (*models.AssignmentFeedback, error) {
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, storeError(err, "assignment not found", "failed to load assignment")
	}
	if actor.Role != models.RoleTribunal || assignment.EvaluatorID != actor.ID {
		topic, err := s.topics.FindByID(ctx, assignment.TopicID)
		if err != nil {
			return nil, storeError(err, "topic not found", "failed to load topic")
		}
		if err := authorizeTopicRead(ctx, s.assignments, actor, topic); err != nil {
			return nil, err
		}
	}
	feedback, err := s.feedback.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load feedback")
	}
	return feedback, nil
}

func (s *FeedbackService) requireEvaluator(ctx context.Context, actor models.Actor, assignmentID string) (*models.Assignment, error) {
	if actor.Role != models.RoleTribunal {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the assigned evaluator may leave feedback")
	}
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, storeError(err, "assignment not found", "failed to load assignment")
	}
	if assignment.EvaluatorID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another evaluator")
	}
	return assignment, nil
}
