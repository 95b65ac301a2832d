package handlers

import (
	"net/http"

	"github.com/benvon/trip-planner/internal/services/learning"
	"github.com/gorilla/mux"
)

// LearningHandler exposes read-only views of the learning state
type LearningHandler struct {
	engine  *learning.Engine
	tracker *learning.SessionTracker
}

// NewLearningHandler creates a new learning handler
func NewLearningHandler(engine *learning.Engine, tracker *learning.SessionTracker) *LearningHandler {
	return &LearningHandler{engine: engine, tracker: tracker}
}

// RegisterRoutes registers learning routes
func (h *LearningHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/learning/weights", h.GetWeights).Methods("GET")
	r.HandleFunc("/learning/patterns", h.GetPatterns).Methods("GET")
}

// GetWeights returns the current pattern weights
func (h *LearningHandler) GetWeights(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"weights": h.engine.Weights()})
}

// GetPatterns returns the global interaction pattern table
func (h *LearningHandler) GetPatterns(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"patterns": h.tracker.GlobalPatterns()})
}
