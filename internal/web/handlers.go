package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/adapters/state"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/logging"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/service"
)

// Handler carries the API endpoint implementations.
type Handler struct {
	coordinator *service.Coordinator
	store       state.Store
	logger      *logging.Logger
}

// NewHandler creates the API handler set.
func NewHandler(coordinator *service.Coordinator, store state.Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{coordinator: coordinator, store: store, logger: logger}
}

// turnRequest is the POST /turns body.
type turnRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// PostTurn runs one conversation turn.
func (h *Handler) PostTurn(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "")
		return
	}

	result, err := h.coordinator.Process(r.Context(), projectID, req.UserID, req.Message)
	if err != nil {
		status := http.StatusInternalServerError
		code := ""
		var domErr *core.DomainError
		if errors.As(err, &domErr) {
			code = domErr.Code
			switch domErr.Category {
			case core.ErrCatValidation:
				status = http.StatusBadRequest
			case core.ErrCatNotFound:
				status = http.StatusNotFound
			case core.ErrCatPersistence:
				status = http.StatusServiceUnavailable
			}
		}
		h.logger.Error("turn failed", "project_id", projectID, "error", err)
		writeError(w, status, err.Error(), code)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetProject returns a project's current state.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	stateNow, err := h.store.Fetch(r.Context(), projectID)
	if err != nil {
		h.logger.Error("state fetch failed", "project_id", projectID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load project state", "")
		return
	}
	writeJSON(w, http.StatusOK, stateNow)
}

// GetActivity returns a project's recent audit trail.
func (h *Handler) GetActivity(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	limit := queryInt(r, "limit", 100)

	activity, err := h.store.ListActivity(r.Context(), projectID, limit)
	if err != nil {
		h.logger.Error("activity query failed", "project_id", projectID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load activity", "")
		return
	}
	if activity == nil {
		activity = []core.ActivityEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity": activity})
}

// GetMessages returns a project's chat history.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	limit := queryInt(r, "limit", 200)

	msgs, err := h.store.ListMessages(r.Context(), projectID, limit)
	if err != nil {
		h.logger.Error("message query failed", "project_id", projectID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load messages", "")
		return
	}
	if msgs == nil {
		msgs = []core.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
