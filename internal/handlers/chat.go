package handlers

import (
	"net/http"

	"github.com/benvon/trip-planner/internal/models"
	"github.com/benvon/trip-planner/internal/request"
	"github.com/benvon/trip-planner/internal/services/ai"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ChatHandler handles conversational trip-planning requests
type ChatHandler struct {
	orchestrator *ai.Orchestrator
	validate     *validator.Validate
	logger       *zap.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(orchestrator *ai.Orchestrator, validate *validator.Validate, logger *zap.Logger) *ChatHandler {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{
		orchestrator: orchestrator,
		validate:     validate,
		logger:       logger,
	}
}

// RegisterRoutes registers chat routes
func (h *ChatHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/chat", h.SendMessage).Methods("POST")
	r.HandleFunc("/chat/session/end", h.EndSession).Methods("POST")
}

// SendMessage runs one conversational turn
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "message and session_id are required")
		return
	}
	if req.Context.CurrentPhase != "" && !req.Context.CurrentPhase.IsValid() {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "unknown phase")
		return
	}

	resp, err := h.orchestrator.HandleTurn(r.Context(), &req)
	if err != nil {
		h.logger.Error("chat_turn_failed",
			zap.String("session_id", req.SessionID),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to process message")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// EndSessionRequest identifies the session to close
type EndSessionRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

// EndSession closes a session and folds its interaction patterns into the
// global table
func (h *ChatHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	var req EndSessionRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "session_id is required")
		return
	}

	h.orchestrator.EndSession(r.Context(), req.SessionID)
	respondJSON(w, http.StatusOK, map[string]any{"session_id": req.SessionID, "ended": true})
}
