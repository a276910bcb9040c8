package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/thesis-review-api/internal/dto"
	"github.com/noah-isme/thesis-review-api/internal/models"
	appErrors "github.com/noah-isme/thesis-review-api/pkg/errors"
)

const documentKindTopic = "topics"

// TopicService creates, reads and edits topics. Edits are allowed only before evaluators are assigned.
type TopicService struct {
	tx          TxRunner
	topics      TopicStore
	versions    VersionStore
	assignments AssignmentStore
	reviews     ReviewStore
	users       UserDirectory
	documents   DocumentStore
	cache       *CacheService
	audit       *AuditService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewTopicService constructs a TopicService. users may be nil when no account mirror is available.
func NewTopicService(tx TxRunner, topics TopicStore, versions VersionStore, assignments AssignmentStore, reviews ReviewStore, users UserDirectory, documents DocumentStore, cache *CacheService, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *TopicService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TopicService{
		tx:          tx,
		topics:      topics,
		versions:    versions,
		assignments: assignments,
		reviews:     reviews,
		users:       users,
		documents:   documents,
		cache:       cache,
		audit:       audit,
		validator:   validate,
		logger:      logger,
	}
}

// Create registers a topic in PRELIMINARY status together with version 1 of its document.
func (s *TopicService) Create(ctx context.Context, actor models.Actor, req dto.CreateTopicRequest, upload dto.DocumentUpload) (*models.TopicDetail, error) {
	if err := requireCoordinator(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid topic payload")
	}
	if err := s.ensureStudent(ctx, req.StudentID); err != nil {
		return nil, err
	}

	topic := &models.Topic{ID: uuid.NewString(), Title: req.Title, StudentID: req.StudentID, Status: models.TopicStatusPreliminary}
	ref, err := s.documents.Store(ctx, documentKindTopic, topic.ID, upload)
	if err != nil {
		return nil, err
	}

	version := &models.TopicVersion{TopicID: topic.ID, DocumentRef: ref}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.topics.Create(ctx, topic); err != nil {
			return storeError(err, "topic not found", "failed to create topic")
		}
		if err := s.versions.CreateInitial(ctx, version); err != nil {
			return storeError(err, "topic not found", "failed to create initial version")
		}
		return nil
	})
	if err != nil {
		s.documents.Discard(ctx, ref)
		return nil, err
	}

	s.audit.Record(ctx, actor, models.AuditActionTopicCreate, "topic", topic.ID, map[string]string{"title": topic.Title, "student_id": topic.StudentID})
	s.logger.Info("topic created", zap.String("topic_id", topic.ID), zap.String("student_id", topic.StudentID))
	return &models.TopicDetail{Topic: *topic, Versions: []models.TopicVersion{*version}, Assignments: []models.AssignmentDetail{}}, nil
}

func (s *TopicService) ensureStudent(ctx context.Context, studentID string) error {
	if s.users == nil {
		return nil
	}
	user, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "student not found")
		}
		return appErrors.Internal(err, "failed to load student")
	}
	if user.Role != models.RoleEstudiante || !user.Active {
		return appErrors.Clone(appErrors.ErrValidation, "topic owner must be an active student")
	}
	return nil
}

// Get returns a topic with its versions and the latest review of every assignment.
func (s *TopicService) Get(ctx context.Context, actor models.Actor, id string) (*models.TopicDetail, error) {
	var detail models.TopicDetail
	cached := s.cache.Get(ctx, topicCacheKey(id), &detail)

	topic, err := s.topics.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "topic not found", "failed to load topic")
	}
	// Every workflow write stamps updated_at, so an entry filled by a read that raced a commit
	// no longer matches the row.
	if cached && sameRevision(&detail.Topic, topic) {
		if err := authorizeDetailRead(actor, &detail); err != nil {
			return nil, err
		}
		return &detail, nil
	}
	if cached {
		s.cache.Invalidate(ctx, topicCacheKey(id))
	}
	versions, err := s.versions.ListByTopic(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load versions")
	}
	panel, err := s.assignments.ListByTopic(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load assignments")
	}
	details, err := withLatestReviews(ctx, s.reviews, panel)
	if err != nil {
		return nil, err
	}

	detail = models.TopicDetail{Topic: *topic, Versions: versions, Assignments: details}
	if err := authorizeDetailRead(actor, &detail); err != nil {
		return nil, err
	}
	s.cache.Set(ctx, topicCacheKey(id), detail)
	return &detail, nil
}

func sameRevision(cached, current *models.Topic) bool {
	if cached.Status != current.Status || !cached.UpdatedAt.Equal(current.UpdatedAt) {
		return false
	}
	if cached.ApprovedAt == nil || current.ApprovedAt == nil {
		return cached.ApprovedAt == nil && current.ApprovedAt == nil
	}
	return cached.ApprovedAt.Equal(*current.ApprovedAt)
}

func authorizeDetailRead(actor models.Actor, detail *models.TopicDetail) error {
	switch actor.Role {
	case models.RoleDirector, models.RoleSecretario:
		return nil
	case models.RoleEstudiante:
		if detail.StudentID == actor.ID {
			return nil
		}
	case models.RoleTribunal:
		for _, a := range detail.Assignments {
			if a.EvaluatorID == actor.ID {
				return nil
			}
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "topic is not visible to the caller")
}

// List returns a page of topics. Students see their own topics and evaluators the topics they review.
func (s *TopicService) List(ctx context.Context, actor models.Actor, query dto.TopicQuery) ([]models.Topic, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, validationError(err, "invalid topic filter")
	}
	filter := models.TopicFilter{
		StudentID: query.StudentID,
		Status:    models.TopicStatus(query.Status),
		Search:    query.Search,
		Page:      query.Page,
		PageSize:  query.PageSize,
	}
	switch actor.Role {
	case models.RoleEstudiante:
		filter.StudentID = actor.ID
	case models.RoleTribunal:
		filter.EvaluatorID = actor.ID
	case models.RoleDirector, models.RoleSecretario:
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "unknown role")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	topics, total, err := s.topics.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list topics")
	}
	if topics == nil {
		topics = []models.Topic{}
	}
	return topics, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Update changes the title of a PRELIMINARY topic.
func (s *TopicService) Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateTopicRequest) (*models.Topic, error) {
	if err := requireCoordinator(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid topic payload")
	}

	var updated *models.Topic
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		topic, err := s.lockPreliminary(ctx, id)
		if err != nil {
			return err
		}
		if err := s.topics.UpdateTitle(ctx, id, req.Title); err != nil {
			return storeError(err, "topic not found", "failed to update topic")
		}
		topic.Title = req.Title
		updated = topic
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, topicCacheKey(id))
	s.audit.Record(ctx, actor, models.AuditActionTopicUpdate, "topic", id, map[string]string{"title": req.Title})
	return updated, nil
}

// Delete removes a PRELIMINARY topic with its versions and schedules their documents for cleanup.
func (s *TopicService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if err := requireCoordinator(actor); err != nil {
		return err
	}

	var refs []string
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.lockPreliminary(ctx, id); err != nil {
			return err
		}
		versions, err := s.versions.ListByTopic(ctx, id)
		if err != nil {
			return appErrors.Internal(err, "failed to load versions")
		}
		for _, v := range versions {
			refs = append(refs, v.DocumentRef)
		}
		if err := s.topics.Delete(ctx, id); err != nil {
			return storeError(err, "topic not found", "failed to delete topic")
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, ref := range refs {
		s.documents.Discard(ctx, ref)
	}
	s.cache.Invalidate(ctx, topicCacheKey(id))
	s.audit.Record(ctx, actor, models.AuditActionTopicDelete, "topic", id, nil)
	s.logger.Info("topic deleted", zap.String("topic_id", id))
	return nil
}

func (s *TopicService) lockPreliminary(ctx context.Context, id string) (*models.Topic, error) {
	topic, err := s.topics.LockByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "topic not found", "failed to load topic")
	}
	if topic.Status != models.TopicStatusPreliminary {
		return nil, appErrors.Clone(appErrors.ErrValidation, "topic can only be changed while PRELIMINARY")
	}
	return topic, nil
}

// ListVersions returns the versions of a topic in ascending order.
func (s *TopicService) ListVersions(ctx context.Context, actor models.Actor, topicID string) ([]models.TopicVersion, error) {
	topic, err := s.topics.FindByID(ctx, topicID)
	if err != nil {
		return nil, storeError(err, "topic not found", "failed to load topic")
	}
	if err := authorizeTopicRead(ctx, s.assignments, actor, topic); err != nil {
		return nil, err
	}
	versions, err := s.versions.ListByTopic(ctx, topicID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load versions")
	}
	return versions, nil
}
