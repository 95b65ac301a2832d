package workers

import (
	"context"

	"github.com/benvon/trip-planner/internal/models"
	"github.com/benvon/trip-planner/internal/queue"
	"go.uber.org/zap"
)

// QueueRecorder hands completed chat turns to the learning worker through
// the job queue so recording never blocks the chat path.
type QueueRecorder struct {
	jobQueue queue.JobQueue
	logger   *zap.Logger
}

// NewQueueRecorder creates a recorder that enqueues interaction jobs
func NewQueueRecorder(jobQueue queue.JobQueue, logger *zap.Logger) *QueueRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueRecorder{jobQueue: jobQueue, logger: logger}
}

// RecordTurn enqueues one completed turn. Enqueue failures are logged and
// dropped; a lost training point must not fail the conversation.
func (r *QueueRecorder) RecordTurn(ctx context.Context, point models.TrainingDataPoint) {
	job, err := queue.NewJob(queue.JobTypeInteractionRecord, point.SessionID, point)
	if err != nil {
		r.logger.Error("failed_to_build_interaction_job",
			zap.String("session_id", point.SessionID),
			zap.Error(err),
		)
		return
	}
	if err := r.jobQueue.Enqueue(ctx, job); err != nil {
		r.logger.Error("failed_to_enqueue_interaction_job",
			zap.String("session_id", point.SessionID),
			zap.String("message_id", point.MessageID),
			zap.Error(err),
		)
		return
	}
	r.logger.Debug("enqueued_interaction_job",
		zap.String("session_id", point.SessionID),
		zap.String("message_id", point.MessageID),
	)
}
