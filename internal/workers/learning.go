package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/benvon/trip-planner/internal/models"
	"github.com/benvon/trip-planner/internal/queue"
	"github.com/benvon/trip-planner/internal/services/learning"
)

// LearningProcessor consumes learning jobs: recorded chat turns, user and
// route feedback, and session-end merges.
type LearningProcessor struct {
	engine   *learning.Engine
	tracker  *learning.SessionTracker
	jobQueue queue.JobQueue // For re-enqueueing jobs with delays
}

// NewLearningProcessor creates a new learning processor
func NewLearningProcessor(engine *learning.Engine, tracker *learning.SessionTracker, jobQueue queue.JobQueue) *LearningProcessor {
	return &LearningProcessor{
		engine:   engine,
		tracker:  tracker,
		jobQueue: jobQueue,
	}
}

// ProcessInteractionJob records one completed chat turn
func (p *LearningProcessor) ProcessInteractionJob(ctx context.Context, job *queue.Job) error {
	var point models.TrainingDataPoint
	if err := job.DecodePayload(&point); err != nil {
		return fmt.Errorf("failed to decode interaction payload: %w", err)
	}
	if point.SessionID == "" {
		point.SessionID = job.SessionID
	}

	stored := p.engine.RecordInteraction(ctx, point)
	log.Printf("Recorded interaction %s for session %s (message %s)", stored.ID, stored.SessionID, stored.MessageID)
	return nil
}

// ProcessUserFeedbackJob applies an explicit message rating
func (p *LearningProcessor) ProcessUserFeedbackJob(ctx context.Context, job *queue.Job) error {
	var fb models.UserFeedback
	if err := job.DecodePayload(&fb); err != nil {
		return fmt.Errorf("failed to decode feedback payload: %w", err)
	}
	if fb.MessageID == "" {
		return fmt.Errorf("message_id is required for feedback job")
	}
	if fb.Rating < 1 || fb.Rating > 5 {
		return fmt.Errorf("rating %d out of range", fb.Rating)
	}

	p.engine.RecordFeedback(ctx, fb)
	log.Printf("Applied feedback for message %s (rating %d)", fb.MessageID, fb.Rating)
	return nil
}

// ProcessRouteFeedbackJob applies a route accept/reject signal
func (p *LearningProcessor) ProcessRouteFeedbackJob(ctx context.Context, job *queue.Job) error {
	var fb models.RouteFeedback
	if err := job.DecodePayload(&fb); err != nil {
		return fmt.Errorf("failed to decode route feedback payload: %w", err)
	}
	if fb.RouteID == "" {
		return fmt.Errorf("route_id is required for route feedback job")
	}

	p.engine.RecordRouteFeedback(ctx, fb)
	log.Printf("Applied route feedback for route %s (accepted=%v)", fb.RouteID, fb.Accepted)
	return nil
}

// ProcessSessionEndJob folds a session's interaction patterns into the
// global table
func (p *LearningProcessor) ProcessSessionEndJob(ctx context.Context, job *queue.Job) error {
	if job.SessionID == "" {
		return fmt.Errorf("session_id is required for session end job")
	}
	if p.tracker != nil {
		p.tracker.MergeSession(ctx, job.SessionID)
	}
	log.Printf("Merged session %s into global patterns", job.SessionID)
	return nil
}

// ProcessJob processes a job based on its type
func (p *LearningProcessor) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	// Check if job should be processed now (respect NotBefore)
	if !job.ShouldProcess() {
		log.Printf("Job %s not ready yet (NotBefore: %v), skipping", job.ID, job.NotBefore)
		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack job for later processing: %v", ackErr)
		}
		return nil
	}

	var err error
	switch job.Type {
	case queue.JobTypeInteractionRecord:
		err = p.ProcessInteractionJob(ctx, job)
	case queue.JobTypeUserFeedback:
		err = p.ProcessUserFeedbackJob(ctx, job)
	case queue.JobTypeRouteFeedback:
		err = p.ProcessRouteFeedbackJob(ctx, job)
	case queue.JobTypeSessionEnd:
		err = p.ProcessSessionEndJob(ctx, job)
	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			log.Printf("Failed to nack unknown job type: %v", nackErr)
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	if err != nil {
		return p.handleJobError(ctx, msg, job, err)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job: %w", ackErr)
	}
	return nil
}

// handleJobError retries transient failures and dead-letters the rest
func (p *LearningProcessor) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	if job.CanRetry() && p.jobQueue != nil {
		// Re-enqueue with a short delay instead of hot-looping on the
		// same message; the delayed exchange handles NotBefore
		notBefore := time.Now().Add(retryDelay(job.RetryCount))
		delayedJob := &queue.Job{
			ID:         job.ID,
			Type:       job.Type,
			SessionID:  job.SessionID,
			Payload:    job.Payload,
			NotBefore:  &notBefore,
			NotAfter:   job.NotAfter,
			Metadata:   job.Metadata,
			CreatedAt:  job.CreatedAt,
			RetryCount: job.RetryCount + 1,
			MaxRetries: job.MaxRetries,
		}

		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack job before re-enqueue: %v", ackErr)
		}

		if enqueueErr := p.jobQueue.Enqueue(ctx, delayedJob); enqueueErr != nil {
			log.Printf("Failed to re-enqueue job %s with delay: %v", job.ID, enqueueErr)
			return fmt.Errorf("failed to re-enqueue: %w", enqueueErr)
		}
		log.Printf("%s job %s failed (attempt %d/%d): %v, re-enqueued for %v",
			job.Type, job.ID, job.RetryCount+1, job.MaxRetries, err, notBefore)
		return nil
	}

	if job.CanRetry() {
		job.IncrementRetry()
		log.Printf("%s job %s failed (attempt %d/%d): %v, will retry", job.Type, job.ID, job.RetryCount, job.MaxRetries, err)
		if nackErr := msg.Nack(true); nackErr != nil {
			log.Printf("Failed to nack job: %v", nackErr)
		}
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	// Max retries exceeded, send to DLQ
	log.Printf("%s job %s failed after %d retries: %v, sending to DLQ", job.Type, job.ID, job.MaxRetries, err)
	if nackErr := msg.Nack(false); nackErr != nil {
		log.Printf("Failed to nack job to DLQ: %v", nackErr)
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}

// retryDelay backs off linearly per attempt
func retryDelay(retryCount int) time.Duration {
	return time.Duration(retryCount+1) * 5 * time.Second
}
