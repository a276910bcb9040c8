package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/thesis-review-api/internal/models"
	"github.com/noah-isme/thesis-review-api/pkg/database"
)

const reviewSelect = `SELECT r.id, r.assignment_id, r.version_id, v.version_number, r.verdict, r.observations, r.verdict_at, r.created_at
    FROM reviews r JOIN topic_versions v ON v.id = r.version_id`

// ReviewRepository stores evaluator reviews, one per assignment and version.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new ReviewRepository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// CreatePending opens a PENDING review for the assignment on the given version. It returns
// ErrPendingReviewOpen when the assignment already has a PENDING review, whether detected by the
// insert guard or by the partial unique index under a concurrent insert.
func (r *ReviewRepository) CreatePending(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	review.Verdict = models.VerdictPending
	review.Observations = nil
	review.VerdictAt = nil

	const query = `INSERT INTO reviews (id, assignment_id, version_id, verdict, created_at)
        SELECT $1::varchar, $2::varchar, $3::varchar, 'PENDING', $4::timestamptz
        WHERE NOT EXISTS (SELECT 1 FROM reviews WHERE assignment_id = $2 AND verdict = 'PENDING')`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, review.ID, review.AssignmentID, review.VersionID, review.CreatedAt)
	if err != nil {
		switch {
		case isPendingReviewViolation(err):
			return ErrPendingReviewOpen
		case isUniqueViolation(err):
			return ErrDuplicate
		}
		return fmt.Errorf("create pending review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create pending review rows affected: %w", err)
	}
	if n == 0 {
		return ErrPendingReviewOpen
	}
	return nil
}

// RecordVerdict sets the verdict of a PENDING review. The update is guarded on the PENDING state so
// exactly one of two concurrent callers wins; the loser gets ErrVerdictAlreadyIssued and the row is
// left as the winner wrote it.
func (r *ReviewRepository) RecordVerdict(ctx context.Context, id string, verdict models.Verdict, observations *string, at time.Time) error {
	const query = `UPDATE reviews SET verdict = $2, observations = $3, verdict_at = $4 WHERE id = $1 AND verdict = 'PENDING'`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, verdict, observations, at)
	if err != nil {
		return fmt.Errorf("record verdict: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record verdict rows affected: %w", err)
	}
	if n == 0 {
		return ErrVerdictAlreadyIssued
	}
	return nil
}

// FindByID returns a review with the number of the version it covers.
func (r *ReviewRepository) FindByID(ctx context.Context, id string) (*models.Review, error) {
	return r.get(ctx, reviewSelect+` WHERE r.id = $1`, "find review", id)
}

// LatestByAssignment returns the review on the newest version for an assignment.
func (r *ReviewRepository) LatestByAssignment(ctx context.Context, assignmentID string) (*models.Review, error) {
	query := reviewSelect + ` WHERE r.assignment_id = $1 ORDER BY v.version_number DESC, r.created_at DESC LIMIT 1`
	return r.get(ctx, query, "find latest review", assignmentID)
}

func (r *ReviewRepository) get(ctx context.Context, query, op, arg string) (*models.Review, error) {
	var review models.Review
	if err := database.Conn(ctx, r.db).GetContext(ctx, &review, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &review, nil
}

// ListByAssignment returns the review history of an assignment, newest first.
func (r *ReviewRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]models.Review, error) {
	query := reviewSelect + ` WHERE r.assignment_id = $1 ORDER BY v.version_number DESC, r.created_at DESC`
	reviews := make([]models.Review, 0)
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &reviews, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

// LatestByTopic returns one row per assignment of the topic with that assignment's latest review,
// or nil review columns when it has none.
func (r *ReviewRepository) LatestByTopic(ctx context.Context, topicID string) ([]models.LatestVerdict, error) {
	const query = `SELECT a.id AS assignment_id, a.evaluator_id, lr.id AS review_id, lr.version_id, lr.version_number, lr.verdict
        FROM assignments a
        LEFT JOIN LATERAL (
            SELECT r.id, r.version_id, v.version_number, r.verdict
            FROM reviews r JOIN topic_versions v ON v.id = r.version_id
            WHERE r.assignment_id = a.id
            ORDER BY v.version_number DESC, r.created_at DESC
            LIMIT 1
        ) lr ON TRUE
        WHERE a.topic_id = $1
        ORDER BY a.created_at ASC, a.id ASC`
	latest := make([]models.LatestVerdict, 0)
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &latest, query, topicID); err != nil {
		return nil, fmt.Errorf("latest reviews by topic: %w", err)
	}
	return latest, nil
}
