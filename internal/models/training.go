package models

import (
	"time"
)

// FeedbackType categorizes an explicit user rating
type FeedbackType string

const (
	FeedbackTypeHelpful    FeedbackType = "helpful"
	FeedbackTypeIrrelevant FeedbackType = "irrelevant"
	FeedbackTypeIncorrect  FeedbackType = "incorrect"
	FeedbackTypeOther      FeedbackType = "other"
)

// IsValid reports whether t is a known feedback type
func (t FeedbackType) IsValid() bool {
	switch t {
	case FeedbackTypeHelpful, FeedbackTypeIrrelevant, FeedbackTypeIncorrect, FeedbackTypeOther:
		return true
	default:
		return false
	}
}

// UserFeedback is an explicit 1-5 rating on one AI message.
// Immutable once stored.
type UserFeedback struct {
	MessageID    string       `json:"message_id" validate:"required"`
	Rating       int          `json:"rating" validate:"required,min=1,max=5"`
	FeedbackType FeedbackType `json:"feedback_type,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
}

// RouteFeedback is an accept/reject signal on a generated route
type RouteFeedback struct {
	RouteID     string            `json:"route_id" validate:"required"`
	Accepted    bool              `json:"accepted"`
	Reason      string            `json:"reason,omitempty"`
	Preferences TravelPreferences `json:"preferences"`
	Timestamp   time.Time         `json:"timestamp"`
}

// TrainingInput is the request side of a recorded turn
type TrainingInput struct {
	Preferences TravelPreferences   `json:"preferences"`
	Context     ConversationContext `json:"context"`
	Message     string              `json:"message"`
}

// TrainingOutput is the response side of a recorded turn
type TrainingOutput struct {
	Response     string          `json:"response"`
	Route        *GeneratedRoute `json:"route,omitempty"`
	QuickActions []QuickAction   `json:"quick_actions,omitempty"`
}

// TrainingDataPoint is one recorded conversational turn used for similarity
// retrieval and weight updates. QualityScore stays within [0,1]; the
// feedback list is append-only.
type TrainingDataPoint struct {
	ID           string         `json:"id"`
	SessionID    string         `json:"session_id"`
	MessageID    string         `json:"message_id,omitempty"`
	Input        TrainingInput  `json:"input"`
	Output       TrainingOutput `json:"output"`
	Feedback     []UserFeedback `json:"feedback,omitempty"`
	QualityScore float64        `json:"quality_score"`
	InitialScore float64        `json:"initial_score"`
	Timestamp    time.Time      `json:"timestamp"`
	ModelVersion string         `json:"model_version,omitempty"`
}

// PatternWeight bounds. Weights are scalar multipliers per preference-pattern
// key, clamped to these bounds on every update.
const (
	PatternWeightMin     = 0.3
	PatternWeightMax     = 2.0
	PatternWeightDefault = 1.0
)

// InteractionPattern aggregates usage stats for one action type within a
// session; frequency is monotonically non-decreasing until an explicit reset.
type InteractionPattern struct {
	Action    string        `json:"action"`
	Frequency int           `json:"frequency"`
	TimeSpent time.Duration `json:"time_spent"`
	Success   bool          `json:"success"`
}
