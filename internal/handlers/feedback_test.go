package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/benvon/trip-planner/internal/database"
	"github.com/benvon/trip-planner/internal/models"
	"github.com/benvon/trip-planner/internal/queue"
	"github.com/benvon/trip-planner/internal/services/ai"
	"github.com/benvon/trip-planner/internal/services/learning"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type recordingQueue struct {
	jobs []*queue.Job
	fail bool
}

func (q *recordingQueue) Enqueue(_ context.Context, job *queue.Job) error {
	if q.fail {
		return context.DeadlineExceeded
	}
	q.jobs = append(q.jobs, job)
	return nil
}
func (q *recordingQueue) Dequeue(context.Context) (*queue.Message, error) { return nil, nil }
func (q *recordingQueue) Consume(context.Context, int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, nil
}
func (q *recordingQueue) Close() error                      { return nil }
func (q *recordingQueue) HealthCheck(context.Context) error { return nil }

func newTestEngine(t *testing.T) *learning.Engine {
	t.Helper()
	kv := database.NewMemoryKV()
	logger := zap.NewNop()
	store := learning.NewInteractionStore(kv, 0, logger)
	weights := learning.NewWeightStore(kv, logger)
	return learning.NewEngine(store, weights, kv, logger, learning.Options{})
}

func newFeedbackRouter(t *testing.T, q queue.JobQueue) (*mux.Router, *learning.Engine) {
	t.Helper()
	engine := newTestEngine(t)
	r := mux.NewRouter()
	NewFeedbackHandler(q, engine, nil, nil).RegisterRoutes(r)
	return r, engine
}

func TestFeedbackHandler_EnqueuesRating(t *testing.T) {
	t.Parallel()

	q := &recordingQueue{}
	router, _ := newFeedbackRouter(t, q)

	rec := postJSON(t, router, "/feedback", models.UserFeedback{MessageID: "m1", Rating: 4})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if len(q.jobs) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(q.jobs))
	}
	if q.jobs[0].Type != queue.JobTypeUserFeedback {
		t.Errorf("job type = %q", q.jobs[0].Type)
	}

	var fb models.UserFeedback
	if err := q.jobs[0].DecodePayload(&fb); err != nil {
		t.Fatal(err)
	}
	if fb.MessageID != "m1" || fb.Rating != 4 {
		t.Errorf("payload = %+v", fb)
	}
	if fb.Timestamp.IsZero() {
		t.Error("timestamp not defaulted")
	}
}

func TestFeedbackHandler_RatingValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body any
	}{
		{"missing message id", models.UserFeedback{Rating: 3}},
		{"rating too low", map[string]any{"message_id": "m1", "rating": 0}},
		{"rating too high", map[string]any{"message_id": "m1", "rating": 6}},
		{"unknown feedback type", map[string]any{"message_id": "m1", "rating": 3, "feedback_type": "bogus"}},
	}

	router, _ := newFeedbackRouter(t, &recordingQueue{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := postJSON(t, router, "/feedback", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestFeedbackHandler_FallsBackToInlineOnEnqueueFailure(t *testing.T) {
	t.Parallel()

	router, _ := newFeedbackRouter(t, &recordingQueue{fail: true})
	rec := postJSON(t, router, "/feedback", models.UserFeedback{MessageID: "m1", Rating: 5})
	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202 despite enqueue failure", rec.Code)
	}
}

func TestFeedbackHandler_NoQueueAppliesInline(t *testing.T) {
	t.Parallel()

	router, _ := newFeedbackRouter(t, nil)
	rec := postJSON(t, router, "/feedback", models.UserFeedback{MessageID: "m1", Rating: 2})
	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rec.Code)
	}
}

func TestFeedbackHandler_RouteFeedback(t *testing.T) {
	t.Parallel()

	q := &recordingQueue{}
	router, _ := newFeedbackRouter(t, q)

	rec := postJSON(t, router, "/feedback/route", models.RouteFeedback{RouteID: "r1", Accepted: true})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if len(q.jobs) != 1 || q.jobs[0].Type != queue.JobTypeRouteFeedback {
		t.Fatalf("jobs = %+v", q.jobs)
	}

	rec = postJSON(t, router, "/feedback/route", models.RouteFeedback{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing route_id: status = %d, want 400", rec.Code)
	}
}

// A rating that quotes the message_id from a chat response must land on
// that turn, not on whichever turn happens to be most recent.
func TestFeedbackHandler_TargetsMessageIDFromChatResponse(t *testing.T) {
	t.Parallel()

	kv := database.NewMemoryKV()
	logger := zap.NewNop()
	store := learning.NewInteractionStore(kv, 0, logger)
	weights := learning.NewWeightStore(kv, logger)
	engine := learning.NewEngine(store, weights, kv, logger, learning.Options{})

	fallback, err := ai.NewFallbackBankProvider()
	if err != nil {
		t.Fatalf("NewFallbackBankProvider() error: %v", err)
	}
	gateway := ai.NewGateway(nil, fallback, ai.GatewayConfig{}, nil)
	orchestrator := ai.NewOrchestrator(
		gateway,
		ai.NewPromptComposer(nil, nil),
		ai.NewPhaseManager(nil),
		&ai.EngineRecorder{Engine: engine},
		nil,
		nil,
	)

	router := mux.NewRouter()
	NewChatHandler(orchestrator, nil, nil).RegisterRoutes(router)
	NewFeedbackHandler(nil, engine, nil, nil).RegisterRoutes(router)

	sendChat := func(message string) string {
		rec := postJSON(t, router, "/chat", models.ChatRequest{Message: message, SessionID: "s1"})
		if rec.Code != http.StatusOK {
			t.Fatalf("chat status = %d, body %s", rec.Code, rec.Body.String())
		}
		var envelope struct {
			Data models.ChatResponse `json:"data"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
			t.Fatalf("decode chat response: %v", err)
		}
		if envelope.Data.Response.MessageID == "" {
			t.Fatal("chat response carries no message_id")
		}
		return envelope.Data.Response.MessageID
	}

	firstID := sendChat("Ich möchte nach Barcelona")
	sendChat("eher im Juni")

	rec := postJSON(t, router, "/feedback", models.UserFeedback{MessageID: firstID, Rating: 5})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("feedback status = %d, want 202", rec.Code)
	}

	points := store.All()
	if len(points) != 2 {
		t.Fatalf("recorded %d turns, want 2", len(points))
	}
	if points[0].MessageID != firstID {
		t.Fatalf("oldest recorded turn has ID %q, want %q", points[0].MessageID, firstID)
	}
	if len(points[0].Feedback) != 1 {
		t.Errorf("feedback entries on targeted turn = %d, want 1", len(points[0].Feedback))
	}
	if len(points[1].Feedback) != 0 {
		t.Errorf("feedback landed on the most recent turn instead of the quoted one")
	}
	if points[0].QualityScore <= points[0].InitialScore {
		t.Errorf("quality score %v did not improve over initial %v",
			points[0].QualityScore, points[0].InitialScore)
	}
}
