package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/thesis-review-api/internal/dto"
	"github.com/noah-isme/thesis-review-api/internal/models"
	appErrors "github.com/noah-isme/thesis-review-api/pkg/errors"
)

// VerdictResult is a recorded review together with the topic status it produced.
type VerdictResult struct {
	Review     models.Review      `json:"review"`
	Status     models.TopicStatus `json:"status"`
	ApprovedAt *time.Time         `json:"approved_at,omitempty"`
}

// ReviewService records evaluator verdicts and serves review history.
type ReviewService struct {
	tx          TxRunner
	topics      TopicStore
	assignments AssignmentStore
	reviews     ReviewStore
	aggregation *AggregationEngine
	cache       *CacheService
	audit       *AuditService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewReviewService constructs a ReviewService.
func NewReviewService(tx TxRunner, topics TopicStore, assignments AssignmentStore, reviews ReviewStore, aggregation *AggregationEngine, cache *CacheService, audit *AuditService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ReviewService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{
		tx:          tx,
		topics:      topics,
		assignments: assignments,
		reviews:     reviews,
		aggregation: aggregation,
		cache:       cache,
		audit:       audit,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// RecordVerdict resolves a PENDING review and recomputes the topic status in the same transaction.
// A review that is no longer PENDING fails with VERDICT_ALREADY_ISSUED and is left unchanged.
func (s *ReviewService) RecordVerdict(ctx context.Context, actor models.Actor, reviewID string, req dto.RecordVerdictRequest) (*VerdictResult, error) {
	if actor.Role != models.RoleTribunal {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the assigned evaluator may record a verdict")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid verdict payload")
	}
	verdict, err := models.ParseVerdict(req.Verdict)
	if err != nil || !verdict.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "verdict must be APPROVED, APPROVED_WITH_OBSERVATIONS, REVISE or REJECTED")
	}
	observations := optionalString(req.Observations)

	var (
		result  *VerdictResult
		topicID string
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		review, err := s.reviews.FindByID(ctx, reviewID)
		if err != nil {
			return storeError(err, "review not found", "failed to load review")
		}
		assignment, err := s.assignments.FindByID(ctx, review.AssignmentID)
		if err != nil {
			return storeError(err, "assignment not found", "failed to load assignment")
		}
		if assignment.EvaluatorID != actor.ID {
			return appErrors.Clone(appErrors.ErrForbidden, "review belongs to another evaluator")
		}
		topicID = assignment.TopicID

		if _, err := s.topics.LockByID(ctx, topicID); err != nil {
			return storeError(err, "topic not found", "failed to lock topic")
		}
		if err := s.reviews.RecordVerdict(ctx, reviewID, verdict, observations, s.now().UTC()); err != nil {
			return storeError(err, "review not found", "failed to record verdict")
		}
		recomputed, err := s.aggregation.Recompute(ctx, topicID)
		if err != nil {
			return err
		}
		updated, err := s.reviews.FindByID(ctx, reviewID)
		if err != nil {
			return storeError(err, "review not found", "failed to reload review")
		}
		result = &VerdictResult{Review: *updated, Status: recomputed.Status, ApprovedAt: recomputed.ApprovedAt}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordVerdict(verdict)
	s.cache.Invalidate(ctx, topicCacheKey(topicID))
	s.audit.Record(ctx, actor, models.AuditActionVerdictRecord, "review", reviewID, map[string]string{
		"verdict":      string(verdict),
		"topic_id":     topicID,
		"topic_status": string(result.Status),
	})
	s.logger.Info("verdict recorded",
		zap.String("review_id", reviewID),
		zap.String("verdict", string(verdict)),
		zap.String("topic_status", string(result.Status)))
	return result, nil
}

// RecordVerdictForAssignment records a verdict on the latest review of an assignment.
func (s *ReviewService) RecordVerdictForAssignment(ctx context.Context, actor models.Actor, assignmentID string, req dto.RecordVerdictRequest) (*VerdictResult, error) {
	if actor.Role != models.RoleTribunal {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the assigned evaluator may record a verdict")
	}
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, storeError(err, "assignment not found", "failed to load assignment")
	}
	if assignment.EvaluatorID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another evaluator")
	}
	latest, err := s.reviews.LatestByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, storeError(err, "assignment has no review", "failed to load latest review")
	}
	return s.RecordVerdict(ctx, actor, latest.ID, req)
}

// Get returns one review.
func (s *ReviewService) Get(ctx context.Context, actor models.Actor, reviewID string) (*models.Review, error) {
	review, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return nil, storeError(err, "review not found", "failed to load review")
	}
	if err := s.authorize(ctx, actor, review.AssignmentID); err != nil {
		return nil, err
	}
	return review, nil
}

// Latest returns the most recent review of an assignment.
func (s *ReviewService) Latest(ctx context.Context, actor models.Actor, assignmentID string) (*models.Review, error) {
	if err := s.authorize(ctx, actor, assignmentID); err != nil {
		return nil, err
	}
	review, err := s.reviews.LatestByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, storeError(err, "assignment has no review", "failed to load latest review")
	}
	return review, nil
}

// ListByAssignment returns the review history of an assignment, newest first.
func (s *ReviewService) ListByAssignment(ctx context.Context, actor models.Actor, assignmentID string) ([]models.Review, error) {
	if err := s.authorize(ctx, actor, assignmentID); err != nil {
		return nil, err
	}
	reviews, err := s.reviews.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load reviews")
	}
	return reviews, nil
}

func (s *ReviewService) authorize(ctx context.Context, actor models.Actor, assignmentID string) error {
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return storeError(err, "assignment not found", "failed to load assignment")
	}
	if actor.Role == models.RoleTribunal && assignment.EvaluatorID == actor.ID {
		return nil
	}
	topic, err := s.topics.FindByID(ctx, assignment.TopicID)
	if err != nil {
		return storeError(err, "topic not found", "failed to load topic")
	}
	return authorizeTopicRead(ctx, s.assignments, actor, topic)
}
