package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeInteractionRecord carries one completed chat turn for learning capture
	JobTypeInteractionRecord JobType = "interaction_record"
	// JobTypeUserFeedback carries an explicit message rating
	JobTypeUserFeedback JobType = "user_feedback"
	// JobTypeRouteFeedback carries a route accept/reject signal
	JobTypeRouteFeedback JobType = "route_feedback"
	// JobTypeSessionEnd folds a session's interaction patterns into the global table
	JobTypeSessionEnd JobType = "session_end"
)

// Job represents a job in the queue. Payload holds the type-specific body
// (a training data point, a feedback record) as raw JSON.
type Job struct {
	ID         uuid.UUID       `json:"id"`
	Type       JobType         `json:"type"`
	SessionID  string          `json:"session_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	NotBefore  *time.Time      `json:"not_before,omitempty"` // Earliest time to process job (nil = immediate)
	NotAfter   *time.Time      `json:"not_after,omitempty"`  // Latest time to process job (nil = no expiration)
	Metadata   map[string]any  `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`
}

// NewJob creates a new job; payload is marshaled into the job body
func NewJob(jobType JobType, sessionID string, payload any) (*Job, error) {
	job := &Job{
		ID:         uuid.New(),
		Type:       jobType,
		SessionID:  sessionID,
		Metadata:   make(map[string]any),
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: 3,
	}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		job.Payload = body
	}
	return job, nil
}

// DecodePayload unmarshals the job body into v
func (j *Job) DecodePayload(v any) error {
	return json.Unmarshal(j.Payload, v)
}

// ShouldProcess checks if the job should be processed now
func (j *Job) ShouldProcess() bool {
	now := time.Now()

	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}
	if j.NotAfter != nil && now.After(*j.NotAfter) {
		return false
	}
	return true
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}
	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
