package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/thesis-review-api/internal/dto"
	"github.com/noah-isme/thesis-review-api/internal/models"
	appErrors "github.com/noah-isme/thesis-review-api/pkg/errors"
)

// AssignmentService seats the three-member review panel of a topic and answers panel queries.
type AssignmentService struct {
	tx          TxRunner
	topics      TopicStore
	versions    VersionStore
	assignments AssignmentStore
	reviews     ReviewStore
	users       UserDirectory
	aggregation *AggregationEngine
	cache       *CacheService
	audit       *AuditService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssignmentService constructs an AssignmentService. users may be nil.
func NewAssignmentService(tx TxRunner, topics TopicStore, versions VersionStore, assignments AssignmentStore, reviews ReviewStore, users UserDirectory, aggregation *AggregationEngine, cache *CacheService, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		tx:          tx,
		topics:      topics,
		versions:    versions,
		assignments: assignments,
		reviews:     reviews,
		users:       users,
		aggregation: aggregation,
		cache:       cache,
		audit:       audit,
		validator:   validate,
		logger:      logger,
	}
}

// AssignEvaluators creates the three assignments of a PRELIMINARY topic, opens a PENDING review on
// version 1 for each and moves the topic to EN_REVISION, all in one transaction.
func (s *AssignmentService) AssignEvaluators(ctx context.Context, actor models.Actor, topicID string, req dto.AssignEvaluatorsRequest) ([]models.AssignmentDetail, error) {
	if err := requireCoordinator(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, fmt.Sprintf("exactly %d distinct evaluators are required", models.EvaluatorsPerTopic))
	}
	if err := s.ensureEvaluators(ctx, req.EvaluatorIDs); err != nil {
		return nil, err
	}

	var details []models.AssignmentDetail
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		topic, err := s.topics.LockByID(ctx, topicID)
		if err != nil {
			return storeError(err, "topic not found", "failed to load topic")
		}
		if topic.Status != models.TopicStatusPreliminary {
			return appErrors.Clone(appErrors.ErrValidation, "evaluators can only be assigned to a PRELIMINARY topic")
		}
		seated, err := s.assignments.CountByTopic(ctx, topicID)
		if err != nil {
			return appErrors.Internal(err, "failed to count assignments")
		}
		if seated != 0 {
			return appErrors.Clone(appErrors.ErrConflict, "topic already has evaluators")
		}
		first, err := s.versions.FindByNumber(ctx, topicID, 1)
		if err != nil {
			return storeError(err, "topic has no initial version", "failed to load initial version")
		}

		panel := make([]models.Assignment, 0, len(req.EvaluatorIDs))
		for _, evaluatorID := range req.EvaluatorIDs {
			panel = append(panel, models.Assignment{TopicID: topicID, EvaluatorID: evaluatorID})
		}
		if err := s.assignments.CreateBatch(ctx, panel); err != nil {
			return storeError(err, "topic not found", "failed to create assignments")
		}

		details = make([]models.AssignmentDetail, 0, len(panel))
		for _, assignment := range panel {
			review := &models.Review{AssignmentID: assignment.ID, VersionID: first.ID, VersionNumber: first.VersionNumber}
			if err := s.reviews.CreatePending(ctx, review); err != nil {
				return storeError(err, "assignment not found", "failed to open review")
			}
			details = append(details, models.AssignmentDetail{Assignment: assignment, LatestReview: review})
		}

		_, err = s.aggregation.Recompute(ctx, topicID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, topicCacheKey(topicID))
	s.audit.Record(ctx, actor, models.AuditActionEvaluatorsAssign, "topic", topicID, map[string][]string{"evaluator_ids": req.EvaluatorIDs})
	s.logger.Info("evaluators assigned", zap.String("topic_id", topicID), zap.Strings("evaluator_ids", req.EvaluatorIDs))
	return details, nil
}

func (s *AssignmentService) ensureEvaluators(ctx context.Context, ids []string) error {
	if s.users == nil {
		return nil
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return appErrors.Internal(err, "failed to load evaluators")
	}
	eligible := make(map[string]bool, len(users))
	for _, u := range users {
		eligible[u.ID] = u.Active && u.Role == models.RoleTribunal
	}
	for _, id := range ids {
		if !eligible[id] {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("evaluator %s is not an active tribunal member", id))
		}
	}
	return nil
}

// Get returns an assignment with its latest review.
func (s *AssignmentService) Get(ctx context.Context, actor models.Actor, id string) (*models.AssignmentDetail, error) {
	assignment, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "assignment not found", "failed to load assignment")
	}
	if err := s.authorizeAssignmentRead(ctx, actor, assignment); err != nil {
		return nil, err
	}
	details, err := withLatestReviews(ctx, s.reviews, []models.Assignment{*assignment})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// authorizeAssignmentRead lets the assignment's evaluator through directly and defers to the topic
// visibility rules otherwise.
func (s *AssignmentService) authorizeAssignmentRead(ctx context.Context, actor models.Actor, assignment *models.Assignment) error {
	if actor.Role == models.RoleTribunal && assignment.EvaluatorID == actor.ID {
		return nil
	}
	topic, err := s.topics.FindByID(ctx, assignment.TopicID)
	if err != nil {
		return storeError(err, "topic not found", "failed to load topic")
	}
	return authorizeTopicRead(ctx, s.assignments, actor, topic)
}

// ListByTopic returns the panel of a topic with each member's latest review.
func (s *AssignmentService) ListByTopic(ctx context.Context, actor models.Actor, topicID string) ([]models.AssignmentDetail, error) {
	topic, err := s.topics.FindByID(ctx, topicID)
	if err != nil {
		return nil, storeError(err, "topic not found", "failed to load topic")
	}
	if err := authorizeTopicRead(ctx, s.assignments, actor, topic); err != nil {
		return nil, err
	}
	panel, err := s.assignments.ListByTopic(ctx, topicID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load assignments")
	}
	return withLatestReviews(ctx, s.reviews, panel)
}

// ListByEvaluator returns every assignment of an evaluator. Tribunal members may only list their own.
func (s *AssignmentService) ListByEvaluator(ctx context.Context, actor models.Actor, evaluatorID string) ([]models.AssignmentDetail, error) {
	switch {
	case actor.Role.IsCoordinator():
	case actor.Role == models.RoleTribunal && actor.ID == evaluatorID:
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignments of another evaluator are not visible")
	}
	assignments, err := s.assignments.ListByEvaluator(ctx, evaluatorID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load assignments")
	}
	return withLatestReviews(ctx, s.reviews, assignments)
}
