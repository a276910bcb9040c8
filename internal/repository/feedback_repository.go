package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/thesis-review-api/internal/models"
	"github.com/noah-isme/thesis-review-api/pkg/database"
)

// FeedbackRepository stores evaluator comments and annotated files per assignment.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository creates a new FeedbackRepository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// CreateComment inserts a feedback comment.
func (r *FeedbackRepository) CreateComment(ctx context.Context, comment *models.FeedbackComment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO feedback_comments (id, assignment_id, author_id, body, created_at) VALUES (:id, :assignment_id, :author_id, :body, :created_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, comment); err != nil {
		return fmt.Errorf("create feedback comment: %w", err)
	}
	return nil
}

// CreateFile inserts a feedback file reference.
func (r *FeedbackRepository) CreateFile(ctx context.Context, file *models.FeedbackFile) error {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO feedback_files (id, assignment_id, author_id, document_ref, description, created_at) VALUES (:id, :assignment_id, :author_id, :document_ref, :description, :created_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, file); err != nil {
		return fmt.Errorf("create feedback file: %w", err)
	}
	return nil
}

// ListByAssignment returns the comments and files of an assignment, newest first.
func (r *FeedbackRepository) ListByAssignment(ctx context.Context, assignmentID string) (*models.AssignmentFeedback, error) {
	conn := database.Conn(ctx, r.db)
	feedback := &models.AssignmentFeedback{
		Comments: make([]models.FeedbackComment, 0),
		Files:    make([]models.FeedbackFile, 0),
	}
	const comments = `SELECT id, assignment_id, author_id, body, created_at FROM feedback_comments WHERE assignment_id = $1 ORDER BY created_at DESC`
	if err := conn.SelectContext(ctx, &feedback.Comments, comments, assignmentID); err != nil {
		return nil, fmt.Errorf("list feedback comments: %w", err)
	}
	const files = `SELECT id, assignment_id, author_id, document_ref, description, created_at FROM feedback_files WHERE assignment_id = $1 ORDER BY created_at DESC`
	if err := conn.SelectContext(ctx, &feedback.Files, files, assignmentID); err != nil {
		return nil, fmt.Errorf("list feedback files: %w", err)
	}
	return feedback, nil
}
