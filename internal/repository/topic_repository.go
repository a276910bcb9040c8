package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/thesis-review-api/internal/models"
	"github.com/noah-isme/thesis-review-api/pkg/database"
)

const topicColumns = `id, title, student_id, status, approved_at, created_at, updated_at`

// TopicRepository persists thesis topics.
type TopicRepository struct {
	db *sqlx.DB
}

// NewTopicRepository creates a new TopicRepository.
func NewTopicRepository(db *sqlx.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

// Create inserts a topic in PRELIMINARY status unless another status is set.
func (r *TopicRepository) Create(ctx context.Context, topic *models.Topic) error {
	if topic.ID == "" {
		topic.ID = uuid.NewString()
	}
	if topic.Status == "" {
		topic.Status = models.TopicStatusPreliminary
	}
	now := time.Now().UTC()
	if topic.CreatedAt.IsZero() {
		topic.CreatedAt = now
	}
	topic.UpdatedAt = now

	const query = `INSERT INTO topics (id, title, student_id, status, approved_at, created_at, updated_at) VALUES (:id, :title, :student_id, :status, :approved_at, :created_at, :updated_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, topic); err != nil {
		return fmt.Errorf("create topic: %w", err)
	}
	return nil
}

// FindByID returns a topic by identifier.
func (r *TopicRepository) FindByID(ctx context.Context, id string) (*models.Topic, error) {
	query := `SELECT ` + topicColumns + ` FROM topics WHERE id = $1`
	return r.get(ctx, query, id, "find topic")
}

// LockByID reads a topic and holds its row lock until the surrounding transaction ends. Every
// workflow write takes this lock first so writes to the same topic are serialised.
func (r *TopicRepository) LockByID(ctx context.Context, id string) (*models.Topic, error) {
	query := `SELECT ` + topicColumns + ` FROM topics WHERE id = $1 FOR UPDATE`
	return r.get(ctx, query, id, "lock topic")
}

func (r *TopicRepository) get(ctx context.Context, query, id, op string) (*models.Topic, error) {
	var topic models.Topic
	if err := database.Conn(ctx, r.db).GetContext(ctx, &topic, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &topic, nil
}

// List returns topics matching filter, newest first, with the total count.
func (r *TopicRepository) List(ctx context.Context, filter models.TopicFilter) ([]models.Topic, int, error) {
	baseQuery := `FROM topics WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.EvaluatorID != "" {
		conditions = append(conditions, fmt.Sprintf("id IN (SELECT topic_id FROM assignments WHERE evaluator_id = $%d)", len(args)+1))
		args = append(args, filter.EvaluatorID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(title) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC, id LIMIT %d OFFSET %d", topicColumns, baseQuery, pageSize, (page-1)*pageSize)

	conn := database.Conn(ctx, r.db)
	var topics []models.Topic
	if err := conn.SelectContext(ctx, &topics, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list topics: %w", err)
	}

	var total int
	if err := conn.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count topics: %w", err)
	}
	return topics, total, nil
}

// UpdateTitle changes the title of a topic.
func (r *TopicRepository) UpdateTitle(ctx context.Context, id, title string) error {
	const query = `UPDATE topics SET title = $2, updated_at = $3 WHERE id = $1`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, title, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update topic title: %w", err)
	}
	return requireRow(res, "update topic title")
}

// UpdateStatus writes a recomputed status. approved_at is stamped the first time the topic is
// approved and is never overwritten afterwards. The stored approved_at is returned.
func (r *TopicRepository) UpdateStatus(ctx context.Context, id string, status models.TopicStatus, at time.Time) (*time.Time, error) {
	const query = `UPDATE topics
        SET status = $2,
            updated_at = $3,
            approved_at = CASE WHEN $4 THEN COALESCE(approved_at, $3) ELSE approved_at END
        WHERE id = $1
        RETURNING approved_at`
	var approvedAt *time.Time
	err := database.Conn(ctx, r.db).QueryRowxContext(ctx, query, id, status, at, status == models.TopicStatusApproved).Scan(&approvedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update topic status: %w", err)
	}
	return approvedAt, nil
}

// Delete removes a topic; versions, assignments and reviews cascade.
func (r *TopicRepository) Delete(ctx context.Context, id string) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM topics WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete topic: %w", err)
	}
	return requireRow(res, "delete topic")
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
