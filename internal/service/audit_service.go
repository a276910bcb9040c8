package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/thesis-review-api/internal/models"
)

// AuditStore appends audit records.
type AuditStore interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// AuditService records workflow mutations after they commit. Recording is best effort: a failure is
// logged and never undoes or fails the mutation.
type AuditService struct {
	repo   AuditStore
	logger *zap.Logger
}

// NewAuditService constructs an AuditService.
func NewAuditService(repo AuditStore, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// Record writes one audit entry. values is encoded as JSON.
func (s *AuditService) Record(ctx context.Context, actor models.Actor, action, resource, resourceID string, values interface{}) {
	if s == nil || s.repo == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     optionalString(actor.ID),
		Action:     action,
		Resource:   resource,
		ResourceID: optionalString(resourceID),
	}
	if values != nil {
		payload, err := json.Marshal(values)
		if err != nil {
			s.logger.Warn("audit payload encoding failed", zap.String("action", action), zap.Error(err))
		} else {
			entry.NewValues = payload
		}
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Warn("audit log write failed",
			zap.String("action", action),
			zap.String("resource_id", resourceID),
			zap.Error(err))
	}
}
