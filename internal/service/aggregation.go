package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/thesis-review-api/internal/models"
)

// Aggregate derives a topic status from the latest verdict of every assignment. Rules apply in
// order: an assignment without a resolved review keeps the topic EN_REVISION, then any rejection
// wins, then any revision request, then unanimous approval. The result does not depend on the
// order of latest.
func Aggregate(latest []models.LatestVerdict) models.TopicStatus {
	if len(latest) == 0 {
		return models.TopicStatusInReview
	}

	var rejected, revise bool
	approvals := 0
	for _, l := range latest {
		if l.Verdict == nil {
			return models.TopicStatusInReview
		}
		switch v := *l.Verdict; {
		case v == models.VerdictPending:
			return models.TopicStatusInReview
		case v == models.VerdictRejected:
			rejected = true
		case v == models.VerdictRevise:
			revise = true
		case v.Approving():
			approvals++
		}
	}

	switch {
	case rejected:
		return models.TopicStatusRejected
	case revise:
		return models.TopicStatusRevise
	case approvals == len(latest):
		return models.TopicStatusApproved
	}
	return models.TopicStatusInReview
}

// Recomputation describes one aggregation write.
type Recomputation struct {
	TopicID    string             `json:"topic_id"`
	Previous   models.TopicStatus `json:"previous_status"`
	Status     models.TopicStatus `json:"status"`
	ApprovedAt *time.Time         `json:"approved_at,omitempty"`
}

// Changed reports whether the status moved.
func (r *Recomputation) Changed() bool {
	return r != nil && r.Previous != r.Status
}

// AggregationEngine writes the derived status of a topic.
type AggregationEngine struct {
	tx      TxRunner
	topics  TopicStore
	reviews ReviewStore
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewAggregationEngine constructs an AggregationEngine.
func NewAggregationEngine(tx TxRunner, topics TopicStore, reviews ReviewStore, metrics *MetricsService, logger *zap.Logger) *AggregationEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AggregationEngine{tx: tx, topics: topics, reviews: reviews, metrics: metrics, logger: logger, now: time.Now}
}

// Recompute re-reads every latest review of the topic and stores the aggregated status. It joins
// the caller's transaction when ctx carries one, so the status commits together with the write
// that triggered it. A topic without assignments keeps its PRELIMINARY status.
func (e *AggregationEngine) Recompute(ctx context.Context, topicID string) (*Recomputation, error) {
	var result *Recomputation
	err := e.tx.WithinTx(ctx, func(ctx context.Context) error {
		topic, err := e.topics.LockByID(ctx, topicID)
		if err != nil {
			return storeError(err, "topic not found", "failed to lock topic")
		}
		latest, err := e.reviews.LatestByTopic(ctx, topicID)
		if err != nil {
			return storeError(err, "topic not found", "failed to load latest reviews")
		}

		result = &Recomputation{TopicID: topicID, Previous: topic.Status, Status: topic.Status, ApprovedAt: topic.ApprovedAt}
		if len(latest) == 0 && topic.Status == models.TopicStatusPreliminary {
			return nil
		}

		result.Status = Aggregate(latest)
		approvedAt, err := e.topics.UpdateStatus(ctx, topicID, result.Status, e.now().UTC())
		if err != nil {
			return storeError(err, "topic not found", "failed to update topic status")
		}
		result.ApprovedAt = approvedAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.metrics.RecordStatusRecomputed(result.Status)
	e.logger.Info("topic status recomputed",
		zap.String("topic_id", topicID),
		zap.String("previous", string(result.Previous)),
		zap.String("status", string(result.Status)))
	return result, nil
}
