package handlers

import (
	"net/http"
	"time"

	"github.com/benvon/trip-planner/internal/models"
	"github.com/benvon/trip-planner/internal/queue"
	"github.com/benvon/trip-planner/internal/request"
	"github.com/benvon/trip-planner/internal/services/learning"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// FeedbackHandler accepts message ratings and route accept/reject signals.
// With a job queue configured the learning work happens asynchronously in
// the worker; without one it is applied inline.
type FeedbackHandler struct {
	jobQueue queue.JobQueue
	engine   *learning.Engine
	validate *validator.Validate
	logger   *zap.Logger
}

// NewFeedbackHandler creates a new feedback handler. jobQueue may be nil.
func NewFeedbackHandler(jobQueue queue.JobQueue, engine *learning.Engine, validate *validator.Validate, logger *zap.Logger) *FeedbackHandler {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackHandler{
		jobQueue: jobQueue,
		engine:   engine,
		validate: validate,
		logger:   logger,
	}
}

// RegisterRoutes registers feedback routes
func (h *FeedbackHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/feedback", h.SubmitFeedback).Methods("POST")
	r.HandleFunc("/feedback/route", h.SubmitRouteFeedback).Methods("POST")
}

// SubmitFeedback accepts a 1-5 rating for one AI message
func (h *FeedbackHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var fb models.UserFeedback
	if err := request.DecodeJSON(r, &fb); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	if err := h.validate.Struct(&fb); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "message_id and a rating between 1 and 5 are required")
		return
	}
	if fb.FeedbackType != "" && !fb.FeedbackType.IsValid() {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "unknown feedback type")
		return
	}
	if fb.Timestamp.IsZero() {
		fb.Timestamp = time.Now()
	}

	if h.jobQueue != nil {
		job, err := queue.NewJob(queue.JobTypeUserFeedback, "", fb)
		if err == nil {
			err = h.jobQueue.Enqueue(r.Context(), job)
		}
		if err != nil {
			h.logger.Warn("feedback_enqueue_failed", zap.Error(err))
			h.engine.RecordFeedback(r.Context(), fb)
		}
	} else {
		h.engine.RecordFeedback(r.Context(), fb)
	}

	respondJSON(w, http.StatusAccepted, map[string]any{"message_id": fb.MessageID})
}

// SubmitRouteFeedback accepts a route accept/reject signal
func (h *FeedbackHandler) SubmitRouteFeedback(w http.ResponseWriter, r *http.Request) {
	var fb models.RouteFeedback
	if err := request.DecodeJSON(r, &fb); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	if err := h.validate.Struct(&fb); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "route_id is required")
		return
	}
	if fb.Timestamp.IsZero() {
		fb.Timestamp = time.Now()
	}

	if h.jobQueue != nil {
		job, err := queue.NewJob(queue.JobTypeRouteFeedback, "", fb)
		if err == nil {
			err = h.jobQueue.Enqueue(r.Context(), job)
		}
		if err != nil {
			h.logger.Warn("route_feedback_enqueue_failed", zap.Error(err))
			h.engine.RecordRouteFeedback(r.Context(), fb)
		}
	} else {
		h.engine.RecordRouteFeedback(r.Context(), fb)
	}

	respondJSON(w, http.StatusAccepted, map[string]any{"route_id": fb.RouteID})
}
