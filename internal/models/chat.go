package models

import (
	"time"
)

// Phase represents a stage of the trip-planning dialogue
type Phase string

const (
	PhaseWelcome               Phase = "welcome"
	PhasePreferencesCollection Phase = "preferences_collection"
	PhaseRouteGeneration       Phase = "route_generation"
	PhaseRouteRefinement       Phase = "route_refinement"
	PhaseFinalization          Phase = "finalization"
	PhaseCompleted             Phase = "completed"
)

// AllPhases lists every dialogue phase in conversational order
var AllPhases = []Phase{
	PhaseWelcome,
	PhasePreferencesCollection,
	PhaseRouteGeneration,
	PhaseRouteRefinement,
	PhaseFinalization,
	PhaseCompleted,
}

// IsValid reports whether p is a known dialogue phase
func (p Phase) IsValid() bool {
	switch p {
	case PhaseWelcome, PhasePreferencesCollection, PhaseRouteGeneration,
		PhaseRouteRefinement, PhaseFinalization, PhaseCompleted:
		return true
	default:
		return false
	}
}

// Budget represents the money constraints attached to a conversation
type Budget struct {
	Total    float64 `json:"total,omitempty"`
	Daily    float64 `json:"daily,omitempty"`
	Currency string  `json:"currency,omitempty"`
}

// ConversationContext represents the per-session trip and dialogue state.
// The caller owns persistence of the context; the orchestrator mutates it
// every turn (phase, last activity, summary).
type ConversationContext struct {
	Destination  string    `json:"destination,omitempty"`
	HomeBase     string    `json:"home_base,omitempty"`
	StartDate    time.Time `json:"start_date,omitempty"`
	EndDate      time.Time `json:"end_date,omitempty"`
	Budget       *Budget   `json:"budget,omitempty"`
	CurrentPhase Phase     `json:"current_phase"`
	LastActivity time.Time `json:"last_activity"`
	Summary      string    `json:"summary,omitempty"`
}

// TripLengthDays returns the trip length in whole days, 0 when dates are unset
func (c *ConversationContext) TripLengthDays() int {
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return 0
	}
	days := int(c.EndDate.Sub(c.StartDate).Hours()/24) + 1
	if days < 0 {
		return 0
	}
	return days
}

// ChatMessage represents a single turn in a conversation
type ChatMessage struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// QuickAction represents a suggested follow-up the UI can render as a button
type QuickAction struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Action string `json:"action"`
}

// ChatRequest is one conversational turn submitted by the caller
type ChatRequest struct {
	Message        string              `json:"message" validate:"required"`
	SessionID      string              `json:"session_id" validate:"required"`
	Context        ConversationContext `json:"context"`
	Preferences    TravelPreferences   `json:"preferences"`
	MessageHistory []ChatMessage       `json:"message_history,omitempty"`
}

// ChatResponseBody is the AI-generated portion of a turn's result.
// MessageID identifies the turn so later feedback can target it exactly.
type ChatResponseBody struct {
	MessageID        string          `json:"message_id"`
	Message          string          `json:"message"`
	Route            *GeneratedRoute `json:"route,omitempty"`
	QuickActions     []QuickAction   `json:"quick_actions"`
	Phase            Phase           `json:"phase"`
	Confidence       float64         `json:"confidence"`
	ProcessingTimeMs int64           `json:"processing_time_ms"`
	ModelUsed        string          `json:"model_used"`
}

// ChatSession carries the updated context the caller must persist
type ChatSession struct {
	Context ConversationContext `json:"context"`
}

// ChatResponse is the full result of one conversational turn
type ChatResponse struct {
	Response ChatResponseBody `json:"response"`
	Session  ChatSession      `json:"session"`
}
