package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/trip-planner/internal/database"
	"github.com/benvon/trip-planner/internal/services/learning"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func TestLearningHandler_GetWeights(t *testing.T) {
	t.Parallel()

	kv := database.NewMemoryKV()
	logger := zap.NewNop()
	store := learning.NewInteractionStore(kv, 0, logger)
	weights := learning.NewWeightStore(kv, logger)
	engine := learning.NewEngine(store, weights, kv, logger, learning.Options{})
	tracker := learning.NewSessionTracker(kv, logger)

	weights.Adjust(t.Context(), "culture|active|high", 0.05)

	r := mux.NewRouter()
	NewLearningHandler(engine, tracker).RegisterRoutes(r)

	req := httptest.NewRequest("GET", "/learning/weights", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var envelope struct {
		Data struct {
			Weights map[string]float64 `json:"weights"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatal(err)
	}
	if got := envelope.Data.Weights["culture|active|high"]; got != 1.05 {
		t.Errorf("weight = %v, want 1.05", got)
	}

	req = httptest.NewRequest("GET", "/learning/patterns", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("patterns status = %d, want 200", rec.Code)
	}
}
