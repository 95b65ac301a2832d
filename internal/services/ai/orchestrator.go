package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benvon/trip-planner/internal/models"
	"github.com/benvon/trip-planner/internal/services/learning"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InitialQualityScore is assigned to a turn before any feedback arrives
const InitialQualityScore = 0.5

// TurnRecorder receives each completed turn for learning. Implementations
// must not block the chat path; failures are the implementation's problem.
type TurnRecorder interface {
	RecordTurn(ctx context.Context, point models.TrainingDataPoint)
}

// EngineRecorder records turns directly into the learning engine
type EngineRecorder struct {
	Engine *learning.Engine
}

func (r *EngineRecorder) RecordTurn(ctx context.Context, point models.TrainingDataPoint) {
	r.Engine.RecordInteraction(ctx, point)
}

// Orchestrator runs one conversational turn end to end: phase transition,
// prompt composition, model invocation, context mutation and learning
// capture. Turns for the same session are serialized; different sessions
// proceed concurrently.
type Orchestrator struct {
	gateway  *Gateway
	composer *PromptComposer
	phases   *PhaseManager
	recorder TurnRecorder
	tracker  *learning.SessionTracker
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*sync.Mutex
}

// NewOrchestrator creates an orchestrator. recorder and tracker may be
// nil; the chat path then runs without learning capture.
func NewOrchestrator(gateway *Gateway, composer *PromptComposer, phases *PhaseManager, recorder TurnRecorder, tracker *learning.SessionTracker, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		gateway:  gateway,
		composer: composer,
		phases:   phases,
		recorder: recorder,
		tracker:  tracker,
		logger:   logger,
		sessions: make(map[string]*sync.Mutex),
	}
}

// HandleTurn processes a single chat turn. It always produces a response:
// live-path failures degrade to the fallback bank inside the gateway.
func (o *Orchestrator) HandleTurn(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	lock := o.sessionLock(req.SessionID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	ctx = context.WithValue(ctx, SessionIDContextKey(), req.SessionID)

	current := req.Context.CurrentPhase
	if !current.IsValid() {
		current = models.PhaseWelcome
	}
	phase := o.phases.NextPhase(current, req.Message)

	if o.tracker != nil {
		o.tracker.ObservePreferences(req.SessionID, req.Preferences)
	}

	prompt := o.composer.Compose(req, phase)

	result, genErr := o.gateway.Generate(ctx, prompt, phase)
	if result == nil {
		// The fallback bank failed to load; nothing sensible to return.
		return nil, genErr
	}
	if genErr != nil {
		o.logger.Info("chat_degraded",
			zap.String("session_id", req.SessionID),
			zap.String("phase", string(phase)),
			zap.String("model_used", result.ModelUsed),
			zap.Error(genErr),
		)
	}

	quickActions := result.QuickActions
	if len(quickActions) == 0 {
		quickActions = o.gateway.QuickActions(phase)
	}

	session := o.nextContext(req, phase)

	messageID := uuid.New().String()
	elapsed := time.Since(start)

	response := &models.ChatResponse{
		Response: models.ChatResponseBody{
			MessageID:        messageID,
			Message:          result.Text,
			Route:            result.Route,
			QuickActions:     quickActions,
			Phase:            phase,
			Confidence:       result.Confidence,
			ProcessingTimeMs: elapsed.Milliseconds(),
			ModelUsed:        result.ModelUsed,
		},
		Session: models.ChatSession{Context: session},
	}

	if o.tracker != nil {
		o.tracker.Record(req.SessionID, "chat_turn:"+string(phase), elapsed, genErr == nil)
	}
	if o.recorder != nil {
		o.recorder.RecordTurn(ctx, models.TrainingDataPoint{
			SessionID: req.SessionID,
			MessageID: messageID,
			Input: models.TrainingInput{
				Message:     req.Message,
				Context:     session,
				Preferences: req.Preferences,
			},
			Output: models.TrainingOutput{
				Response:     result.Text,
				Route:        result.Route,
				QuickActions: quickActions,
			},
			QualityScore: InitialQualityScore,
			Timestamp:    start,
			ModelVersion: result.ModelUsed,
		})
	}

	o.logger.Info("chat_turn",
		zap.String("session_id", req.SessionID),
		zap.String("phase_before", string(current)),
		zap.String("phase_after", string(phase)),
		zap.String("model_used", result.ModelUsed),
		zap.Float64("confidence", result.Confidence),
		zap.Int64("processing_time_ms", elapsed.Milliseconds()),
	)

	return response, nil
}

// EndSession folds the session's interaction patterns into the global
// table and releases the session lock entry.
func (o *Orchestrator) EndSession(ctx context.Context, sessionID string) {
	if o.tracker != nil {
		o.tracker.MergeSession(ctx, sessionID)
	}
	o.mu.Lock()
	delete(o.sessions, sessionID)
	o.mu.Unlock()
}

// nextContext derives the updated conversation context for the turn
func (o *Orchestrator) nextContext(req *models.ChatRequest, phase models.Phase) models.ConversationContext {
	next := req.Context
	next.CurrentPhase = phase
	next.LastActivity = time.Now()
	turns := len(req.MessageHistory) + 1

	if next.Destination == "" {
		if dest := ExtractDestination(req.Message); dest != "" {
			next.Destination = dest
		}
	}

	if o.phases.classifier.Classify(req.Message).Has(SignalNewTrip) {
		next = models.ConversationContext{
			CurrentPhase: phase,
			LastActivity: next.LastActivity,
		}
		if dest := ExtractDestination(req.Message); dest != "" {
			next.Destination = dest
		}
		turns = 1
	}

	next.Summary = summarizeContext(next, turns)
	return next
}

// summarizeContext keeps a compact rolling summary of the session so the
// prompt stays grounded once older turns fall out of the history window.
func summarizeContext(ctxt models.ConversationContext, turns int) string {
	var parts []string
	if ctxt.Destination != "" {
		parts = append(parts, "planning a trip to "+ctxt.Destination)
	}
	if ctxt.Budget != nil && ctxt.Budget.Total > 0 {
		budget := fmt.Sprintf("total budget %.0f", ctxt.Budget.Total)
		if ctxt.Budget.Currency != "" {
			budget += " " + ctxt.Budget.Currency
		}
		parts = append(parts, budget)
	}
	parts = append(parts,
		"currently in the "+string(ctxt.CurrentPhase)+" phase",
		fmt.Sprintf("%d turns so far", turns),
	)
	return strings.Join(parts, "; ")
}

func (o *Orchestrator) sessionLock(sessionID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.sessions[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		o.sessions[sessionID] = lock
	}
	return lock
}
