package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/thesis-review-api/internal/models"
)

func TestVersionCreateInitialIsNumberOne(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewVersionRepository(db)

	mock.ExpectExec("INSERT INTO topic_versions").WillReturnResult(sqlmock.NewResult(1, 1))

	version := &models.TopicVersion{TopicID: "t1", DocumentRef: "topics/t1/a.pdf", VersionNumber: 7}
	require.NoError(t, repo.CreateInitial(context.Background(), version))
	assert.Equal(t, 1, version.VersionNumber)
	assert.NotEmpty(t, version.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVersionCreateInitialDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewVersionRepository(db)

	mock.ExpectExec("INSERT INTO topic_versions").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.CreateInitial(context.Background(), &models.TopicVersion{TopicID: "t1", DocumentRef: "x"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestVersionCreateNextUsesMaxPlusOne(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewVersionRepository(db)

	comment := "fixed chapter 2"
	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(MAX(version_number), 0) + 1")).
		WithArgs(sqlmock.AnyArg(), "t1", "topics/t1/b.pdf", &comment, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"version_number"}).AddRow(3))

	version := &models.TopicVersion{TopicID: "t1", DocumentRef: "topics/t1/b.pdf", StudentComment: &comment}
	require.NoError(t, repo.CreateNext(context.Background(), version))
	assert.Equal(t, 3, version.VersionNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVersionListByTopicAscending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewVersionRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "topic_id", "version_number", "document_ref", "student_comment", "created_at"}).
		AddRow("v1", "t1", 1, "a.pdf", nil, now).
		AddRow("v2", "t1", 2, "b.pdf", "second", now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM topic_versions WHERE topic_id = $1 ORDER BY version_number ASC")).WithArgs("t1").WillReturnRows(rows)

	versions, err := repo.ListByTopic(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Nil(t, versions[0].StudentComment)
	require.NotNil(t, versions[1].StudentComment)
	assert.Equal(t, "second", *versions[1].StudentComment)
}
