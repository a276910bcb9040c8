package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/thesis-review-api/internal/dto"
	"github.com/noah-isme/thesis-review-api/internal/models"
	appErrors "github.com/noah-isme/thesis-review-api/pkg/errors"
)

// Submission is the outcome of a new version: the version itself, the reviews it reopened and the
// resulting topic status.
type Submission struct {
	Version models.TopicVersion `json:"version"`
	Reviews []models.Review     `json:"reviews"`
	Status  models.TopicStatus  `json:"status"`
}

// VersionService accepts follow-up document versions from the owning student.
type VersionService struct {
	tx          TxRunner
	topics      TopicStore
	versions    VersionStore
	assignments AssignmentStore
	reviews     ReviewStore
	documents   DocumentStore
	aggregation *AggregationEngine
	cache       *CacheService
	audit       *AuditService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewVersionService constructs a VersionService.
func NewVersionService(tx TxRunner, topics TopicStore, versions VersionStore, assignments AssignmentStore, reviews ReviewStore, documents DocumentStore, aggregation *AggregationEngine, cache *CacheService, audit *AuditService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *VersionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VersionService{
		tx:          tx,
		topics:      topics,
		versions:    versions,
		assignments: assignments,
		reviews:     reviews,
		documents:   documents,
		aggregation: aggregation,
		cache:       cache,
		audit:       audit,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// Submit stores a new document version and reopens review for the evaluators that asked for changes,
// or only for req.AssignmentID when it is set. Evaluators whose latest verdict approves keep it.
func (s *VersionService) Submit(ctx context.Context, actor models.Actor, topicID string, req dto.SubmitVersionRequest, upload dto.DocumentUpload) (*Submission, error) {
	if actor.Role != models.RoleEstudiante {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owning student may submit versions")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid version payload")
	}
	topic, err := s.topics.FindByID(ctx, topicID)
	if err != nil {
		return nil, storeError(err, "topic not found", "failed to load topic")
	}
	if err := checkSubmitter(actor, topic); err != nil {
		return nil, err
	}

	ref, err := s.documents.Store(ctx, documentKindTopic, topicID, upload)
	if err != nil {
		return nil, err
	}

	var result *Submission
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		topic, err := s.topics.LockByID(ctx, topicID)
		if err != nil {
			return storeError(err, "topic not found", "failed to load topic")
		}
		if err := checkSubmitter(actor, topic); err != nil {
			return err
		}
		latest, err := s.reviews.LatestByTopic(ctx, topicID)
		if err != nil {
			return appErrors.Internal(err, "failed to load latest reviews")
		}
		targets, err := reopenTargets(latest, req.AssignmentID)
		if err != nil {
			return err
		}

		version := &models.TopicVersion{TopicID: topicID, DocumentRef: ref, StudentComment: optionalString(req.Comment)}
		if err := s.versions.CreateNext(ctx, version); err != nil {
			return storeError(err, "topic not found", "failed to create version")
		}

		reopened := make([]models.Review, 0, len(targets))
		for _, assignmentID := range targets {
			review := &models.Review{AssignmentID: assignmentID, VersionID: version.ID, VersionNumber: version.VersionNumber}
			if err := s.reviews.CreatePending(ctx, review); err != nil {
				return storeError(err, "assignment not found", "failed to open review")
			}
			reopened = append(reopened, *review)
		}

		recomputed, err := s.aggregation.Recompute(ctx, topicID)
		if err != nil {
			return err
		}
		result = &Submission{Version: *version, Reviews: reopened, Status: recomputed.Status}
		return nil
	})
	if err != nil {
		s.documents.Discard(ctx, ref)
		return nil, err
	}

	s.metrics.RecordVersionSubmitted()
	s.cache.Invalidate(ctx, topicCacheKey(topicID))
	s.audit.Record(ctx, actor, models.AuditActionVersionSubmit, "topic", topicID, map[string]interface{}{
		"version_id":     result.Version.ID,
		"version_number": result.Version.VersionNumber,
		"reopened":       len(result.Reviews),
	})
	s.logger.Info("version submitted",
		zap.String("topic_id", topicID),
		zap.Int("version_number", result.Version.VersionNumber),
		zap.Int("reopened", len(result.Reviews)))
	return result, nil
}

func checkSubmitter(actor models.Actor, topic *models.Topic) error {
	if topic.StudentID != actor.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the owning student may submit versions")
	}
	if topic.Status == models.TopicStatusPreliminary {
		return appErrors.Clone(appErrors.ErrValidation, "topic has no evaluators yet")
	}
	return nil
}

// reopenTargets picks the assignments that get a PENDING review on the new version. An explicit
// assignment may be reopened whatever its resolved verdict was; otherwise every REVISE or REJECTED
// assignment is reopened.
func reopenTargets(latest []models.LatestVerdict, assignmentID string) ([]string, error) {
	if len(latest) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "topic has no evaluators yet")
	}

	if assignmentID != "" {
		for _, l := range latest {
			if l.AssignmentID != assignmentID {
				continue
			}
			if l.Verdict == nil || l.Is(models.VerdictPending) {
				return nil, appErrors.Clone(appErrors.ErrPendingReview, "evaluator has not resolved the current review")
			}
			return []string{assignmentID}, nil
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found for this topic")
	}

	var targets []string
	pending := false
	for _, l := range latest {
		switch {
		case l.Verdict == nil || l.Is(models.VerdictPending):
			pending = true
		case l.Is(models.VerdictRevise), l.Is(models.VerdictRejected):
			targets = append(targets, l.AssignmentID)
		}
	}
	if len(targets) > 0 {
		return targets, nil
	}
	if pending {
		return nil, appErrors.Clone(appErrors.ErrPendingReview, "evaluators have not resolved the current version")
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, "no evaluator requested changes")
}

// DownloadURL issues a signed link to a version's document for anyone who may read the topic.
func (s *VersionService) DownloadURL(ctx context.Context, actor models.Actor, versionID string) (*dto.DownloadURLResponse, error) {
	version, err := s.versions.FindByID(ctx, versionID)
	if err != nil {
		return nil, storeError(err, "version not found", "failed to load version")
	}
	topic, err := s.topics.FindByID(ctx, version.TopicID)
	if err != nil {
		return nil, storeError(err, "topic not found", "failed to load topic")
	}
	if err := authorizeTopicRead(ctx, s.assignments, actor, topic); err != nil {
		return nil, err
	}
	return s.documents.SignDownload(actor.ID, version.DocumentRef)
}
