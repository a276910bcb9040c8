package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrVerdictAlreadyIssued is returned when the guarded verdict update matched no PENDING row.
	ErrVerdictAlreadyIssued = errors.New("verdict already issued")
	// ErrPendingReviewOpen is returned when an assignment already has a PENDING review.
	ErrPendingReviewOpen = errors.New("pending review already open")
	// ErrDuplicate wraps unique constraint violations.
	ErrDuplicate = errors.New("duplicate record")
)

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a Postgres unique constraint violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

// pendingReviewIndex names the partial unique index guarding one PENDING review per assignment.
const pendingReviewIndex = "uq_reviews_one_pending"

func isPendingReviewViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation && pqErr.Constraint == pendingReviewIndex
}
