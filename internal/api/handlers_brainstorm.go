package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/meetsync/meetsync/server/internal/api/respond"
	"github.com/meetsync/meetsync/server/internal/services"
)

// defaultSessionDuration applies when a create request carries no
// duration.
const defaultSessionDuration = 5 * time.Minute

// BrainstormHandler is a thin HTTP transport over the BrainstormService.
type BrainstormHandler struct {
	svc *services.BrainstormService
}

func NewBrainstormHandler(svc *services.BrainstormService) *BrainstormHandler {
	return &BrainstormHandler{svc: svc}
}

// CreateSession POST /api/brainstormings
func (h *BrainstormHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MeetingID string `json:"meetingId"`
		Topic     string `json:"topic"`
		Duration  int    `json:"duration"` // seconds
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if req.MeetingID == "" || req.Topic == "" {
		respond.WriteBadRequest(w, "meetingId and topic are required")
		return
	}
	duration := defaultSessionDuration
	if req.Duration > 0 {
		duration = time.Duration(req.Duration) * time.Second
	}

	session, err := h.svc.CreateSession(r.Context(), req.MeetingID, req.Topic, duration)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, session)
}

// AddIdea POST /api/brainstormings/{meetingId}/ideas
func (h *BrainstormHandler) AddIdea(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Idea   string  `json:"idea"`
		UserID *string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if req.Idea == "" {
		respond.WriteBadRequest(w, "idea is required")
		return
	}

	item, err := h.svc.AddIdea(r.Context(), mux.Vars(r)["meetingId"], req.UserID, req.Idea)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, item)
}

// ActiveSession GET /api/brainstormings/{meetingId}/active
func (h *BrainstormHandler) ActiveSession(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Active(r.Context(), mux.Vars(r)["meetingId"])
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// CompleteSession GET /api/brainstormings/{meetingId}/complete
//
// Responds with the session and its ideas immediately; when the session
// has no summary yet and at least one idea, summarization starts in the
// background and the result arrives over the websocket.
func (h *BrainstormHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Complete(r.Context(), mux.Vars(r)["meetingId"])
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}
