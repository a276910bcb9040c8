package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/noah-isme/thesis-review-api/internal/dto"
	"github.com/noah-isme/thesis-review-api/internal/models"
	"github.com/noah-isme/thesis-review-api/internal/repository"
	appErrors "github.com/noah-isme/thesis-review-api/pkg/errors"
)

// TxRunner runs fn inside one database transaction carried by ctx.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TopicStore persists topics.
type TopicStore interface {
	Create(ctx context.Context, topic *models.Topic) error
	FindByID(ctx context.Context, id string) (*models.Topic, error)
	LockByID(ctx context.Context, id string) (*models.Topic, error)
	List(ctx context.Context, filter models.TopicFilter) ([]models.Topic, int, error)
	UpdateTitle(ctx context.Context, id, title string) error
	UpdateStatus(ctx context.Context, id string, status models.TopicStatus, at time.Time) (*time.Time, error)
	Delete(ctx context.Context, id string) error
}

// VersionStore persists the numbered versions of a topic.
type VersionStore interface {
	CreateInitial(ctx context.Context, version *models.TopicVersion) error
	CreateNext(ctx context.Context, version *models.TopicVersion) error
	FindByID(ctx context.Context, id string) (*models.TopicVersion, error)
	FindByNumber(ctx context.Context, topicID string, number int) (*models.TopicVersion, error)
	ListByTopic(ctx context.Context, topicID string) ([]models.TopicVersion, error)
}

// AssignmentStore persists evaluator assignments.
type AssignmentStore interface {
	CreateBatch(ctx context.Context, assignments []models.Assignment) error
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	ListByTopic(ctx context.Context, topicID string) ([]models.Assignment, error)
	ListByEvaluator(ctx context.Context, evaluatorID string) ([]models.Assignment, error)
	CountByTopic(ctx context.Context, topicID string) (int, error)
}

// ReviewStore persists reviews and answers latest-verdict queries.
type ReviewStore interface {
	CreatePending(ctx context.Context, review *models.Review) error
	RecordVerdict(ctx context.Context, id string, verdict models.Verdict, observations *string, at time.Time) error
	FindByID(ctx context.Context, id string) (*models.Review, error)
	LatestByAssignment(ctx context.Context, assignmentID string) (*models.Review, error)
	ListByAssignment(ctx context.Context, assignmentID string) ([]models.Review, error)
	LatestByTopic(ctx context.Context, topicID string) ([]models.LatestVerdict, error)
}

// UserDirectory resolves accounts known to the identity provider.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

// DocumentStore keeps uploaded documents and hands back opaque references.
type DocumentStore interface {
	Store(ctx context.Context, kind, ownerID string, upload dto.DocumentUpload) (string, error)
	Discard(ctx context.Context, ref string)
	SignDownload(ownerID, ref string) (*dto.DownloadURLResponse, error)
}

// storeError maps repository failures onto the API error taxonomy.
func storeError(err error, notFound, failure string) error {
	var appErr *appErrors.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	case errors.Is(err, repository.ErrVerdictAlreadyIssued):
		return appErrors.Clone(appErrors.ErrVerdictIssued, "verdict already issued for this review")
	case errors.Is(err, repository.ErrPendingReviewOpen):
		return appErrors.Clone(appErrors.ErrPendingReview, "evaluator has not resolved the current review")
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Clone(appErrors.ErrConflict, "record already exists")
	}
	return appErrors.Internal(err, failure)
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func requireCoordinator(actor models.Actor) error {
	if !actor.Role.IsCoordinator() {
		return appErrors.Clone(appErrors.ErrForbidden, "only the director or secretary may perform this action")
	}
	return nil
}

// authorizeTopicRead allows coordinators, the owning student and the topic's evaluators.
func authorizeTopicRead(ctx context.Context, assignments AssignmentStore, actor models.Actor, topic *models.Topic) error {
	switch actor.Role {
	case models.RoleDirector, models.RoleSecretario:
		return nil
	case models.RoleEstudiante:
		if topic.StudentID == actor.ID {
			return nil
		}
	case models.RoleTribunal:
		panel, err := assignments.ListByTopic(ctx, topic.ID)
		if err != nil {
			return storeError(err, "topic not found", "failed to load assignments")
		}
		if evaluatorOf(panel, actor.ID) != nil {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "topic is not visible to the caller")
}

func evaluatorOf(panel []models.Assignment, evaluatorID string) *models.Assignment {
	for i := range panel {
		if panel[i].EvaluatorID == evaluatorID {
			return &panel[i]
		}
	}
	return nil
}

// withLatestReviews pairs each assignment with its most recent review.
func withLatestReviews(ctx context.Context, reviews ReviewStore, assignments []models.Assignment) ([]models.AssignmentDetail, error) {
	details := make([]models.AssignmentDetail, 0, len(assignments))
	for _, assignment := range assignments {
		detail := models.AssignmentDetail{Assignment: assignment}
		latest, err := reviews.LatestByAssignment(ctx, assignment.ID)
		switch {
		case err == nil:
			detail.LatestReview = latest
		case !errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Internal(err, "failed to load latest review")
		}
		details = append(details, detail)
	}
	return details, nil
}

func topicCacheKey(id string) string {
	return "topic:" + id
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
