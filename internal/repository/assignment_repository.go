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

const assignmentColumns = `id, topic_id, evaluator_id, created_at`

// AssignmentRepository stores evaluator assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository creates a new AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// CreateBatch inserts assignments in order. It must run inside a transaction so a failure on any
// row leaves the topic without assignments.
func (r *AssignmentRepository) CreateBatch(ctx context.Context, assignments []models.Assignment) error {
	now := time.Now().UTC()
	conn := database.Conn(ctx, r.db)
	const query = `INSERT INTO assignments (id, topic_id, evaluator_id, created_at) VALUES (:id, :topic_id, :evaluator_id, :created_at)`
	for i := range assignments {
		a := &assignments[i]
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if a.CreatedAt.IsZero() {
			// strictly increasing so listing order matches request order
			a.CreatedAt = now.Add(time.Duration(i) * time.Microsecond)
		}
		if _, err := conn.NamedExecContext(ctx, query, a); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("create assignment: %w", err)
		}
	}
	return nil
}

// FindByID returns an assignment by identifier.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`
	var assignment models.Assignment
	if err := database.Conn(ctx, r.db).GetContext(ctx, &assignment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	return &assignment, nil
}

// ListByTopic returns the panel of a topic in assignment order.
func (r *AssignmentRepository) ListByTopic(ctx context.Context, topicID string) ([]models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE topic_id = $1 ORDER BY created_at ASC, id ASC`
	return r.list(ctx, query, "list assignments by topic", topicID)
}

// ListByEvaluator returns every assignment of an evaluator, newest first.
func (r *AssignmentRepository) ListByEvaluator(ctx context.Context, evaluatorID string) ([]models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE evaluator_id = $1 ORDER BY created_at DESC, id ASC`
	return r.list(ctx, query, "list assignments by evaluator", evaluatorID)
}

func (r *AssignmentRepository) list(ctx context.Context, query, op, arg string) ([]models.Assignment, error) {
	assignments := make([]models.Assignment, 0)
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &assignments, query, arg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return assignments, nil
}

// CountByTopic returns how many evaluators are assigned to a topic.
func (r *AssignmentRepository) CountByTopic(ctx context.Context, topicID string) (int, error) {
	var count int
	if err := database.Conn(ctx, r.db).GetContext(ctx, &count, `SELECT COUNT(*) FROM assignments WHERE topic_id = $1`, topicID); err != nil {
		return 0, fmt.Errorf("count assignments: %w", err)
	}
	return count, nil
}
