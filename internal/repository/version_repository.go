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

const versionColumns = `id, topic_id, version_number, document_ref, student_comment, created_at`

// VersionRepository stores the numbered document history of each topic.
type VersionRepository struct {
	db *sqlx.DB
}

// NewVersionRepository creates a new VersionRepository.
func NewVersionRepository(db *sqlx.DB) *VersionRepository {
	return &VersionRepository{db: db}
}

// CreateInitial inserts version 1 of a topic. A second call for the same topic fails with ErrDuplicate.
func (r *VersionRepository) CreateInitial(ctx context.Context, version *models.TopicVersion) error {
	prepareVersion(version)
	version.VersionNumber = 1

	const query = `INSERT INTO topic_versions (id, topic_id, version_number, document_ref, student_comment, created_at) VALUES (:id, :topic_id, :version_number, :document_ref, :student_comment, :created_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, version); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create initial version: %w", err)
	}
	return nil
}

// CreateNext inserts the version numbered one above the topic's current maximum and fills in the
// assigned number. Callers hold the topic lock, and the (topic_id, version_number) unique key
// rejects any concurrent writer that slipped past it.
func (r *VersionRepository) CreateNext(ctx context.Context, version *models.TopicVersion) error {
	prepareVersion(version)

	const query = `INSERT INTO topic_versions (id, topic_id, version_number, document_ref, student_comment, created_at)
        SELECT $1::varchar, $2::varchar, COALESCE(MAX(version_number), 0) + 1, $3::text, $4::text, $5::timestamptz FROM topic_versions WHERE topic_id = $2
        RETURNING version_number`
	err := database.Conn(ctx, r.db).
		QueryRowxContext(ctx, query, version.ID, version.TopicID, version.DocumentRef, version.StudentComment, version.CreatedAt).
		Scan(&version.VersionNumber)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create next version: %w", err)
	}
	return nil
}

// FindByID returns a version by identifier.
func (r *VersionRepository) FindByID(ctx context.Context, id string) (*models.TopicVersion, error) {
	return r.get(ctx, `SELECT `+versionColumns+` FROM topic_versions WHERE id = $1`, "find version", id)
}

// FindByNumber returns a topic's version with the given number.
func (r *VersionRepository) FindByNumber(ctx context.Context, topicID string, number int) (*models.TopicVersion, error) {
	return r.get(ctx, `SELECT `+versionColumns+` FROM topic_versions WHERE topic_id = $1 AND version_number = $2`, "find version by number", topicID, number)
}

func (r *VersionRepository) get(ctx context.Context, query, op string, args ...interface{}) (*models.TopicVersion, error) {
	var version models.TopicVersion
	if err := database.Conn(ctx, r.db).GetContext(ctx, &version, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &version, nil
}

// ListByTopic returns all versions of a topic ordered by number.
func (r *VersionRepository) ListByTopic(ctx context.Context, topicID string) ([]models.TopicVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM topic_versions WHERE topic_id = $1 ORDER BY version_number ASC`
	versions := make([]models.TopicVersion, 0)
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &versions, query, topicID); err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return versions, nil
}

func prepareVersion(version *models.TopicVersion) {
	if version.ID == "" {
		version.ID = uuid.NewString()
	}
	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now().UTC()
	}
}
