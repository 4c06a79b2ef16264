// Package api is the HTTP transport for the meeting service.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/meetsync/meetsync/server/internal/api/respond"
	"github.com/meetsync/meetsync/server/internal/model"
	"github.com/meetsync/meetsync/server/internal/services"
	"github.com/meetsync/meetsync/server/internal/store"
)

// MeetingHandler is a thin HTTP transport over the MeetingService.
type MeetingHandler struct {
	svc *services.MeetingService
}

func NewMeetingHandler(svc *services.MeetingService) *MeetingHandler {
	return &MeetingHandler{svc: svc}
}

type agendaItemRequest struct {
	Time  *string `json:"time"`
	Title string  `json:"title"`
	Owner *string `json:"owner"`
	Note  *string `json:"note"`
}

func toAgenda(items []agendaItemRequest) []model.AgendaItem {
	out := make([]model.AgendaItem, len(items))
	for i, it := range items {
		out[i] = model.AgendaItem{OrderIndex: i, Time: it.Time, Title: it.Title, Owner: it.Owner, Note: it.Note}
	}
	return out
}

// CreateMeeting POST /api/meetings
func (h *MeetingHandler) CreateMeeting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InviteCode  string              `json:"inviteCode"`
		Title       string              `json:"title"`
		Date        *time.Time          `json:"date"`
		Description *string             `json:"description"`
		Summary     *string             `json:"summary"`
		ExpiresAt   *time.Time          `json:"expiresAt"`
		UserID      *string             `json:"userId"`
		Agenda      []agendaItemRequest `json:"agenda"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if req.InviteCode == "" || req.Title == "" {
		respond.WriteBadRequest(w, "inviteCode and title are required")
		return
	}

	snap, err := h.svc.Create(r.Context(), store.CreateMeetingRequest{
		InviteCode:  req.InviteCode,
		Title:       req.Title,
		Date:        req.Date,
		Description: req.Description,
		Summary:     req.Summary,
		ExpiresAt:   req.ExpiresAt,
		HostUserID:  req.UserID,
		Agenda:      toAgenda(req.Agenda),
	})
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, snap)
}

// ListMeetings GET /api/meetings
func (h *MeetingHandler) ListMeetings(w http.ResponseWriter, r *http.Request) {
	meetings, err := h.svc.List(r.Context())
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, meetings)
}

// GetMeeting GET /api/meetings/{id}
func (h *MeetingHandler) GetMeeting(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, snap)
}

// UpdateMeeting PATCH /api/meetings/{id}
//
// Absent fields keep their stored values; a present agenda replaces the
// stored agenda wholesale.
func (h *MeetingHandler) UpdateMeeting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InviteCode  *string              `json:"inviteCode"`
		Title       *string              `json:"title"`
		Date        *time.Time           `json:"date"`
		Description *string              `json:"description"`
		Summary     *string              `json:"summary"`
		ExpiresAt   *time.Time           `json:"expiresAt"`
		Status      *string              `json:"status"`
		Agenda      *[]agendaItemRequest `json:"agenda"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if req.InviteCode != nil && *req.InviteCode == "" {
		respond.WriteBadRequest(w, "inviteCode cannot be empty")
		return
	}
	if req.Title != nil && *req.Title == "" {
		respond.WriteBadRequest(w, "title cannot be empty")
		return
	}
	if req.Status != nil && *req.Status != model.StatusActive && *req.Status != model.StatusExpired {
		respond.WriteBadRequest(w, "status must be active or expired")
		return
	}

	update := store.UpdateMeetingRequest{
		ID:          mux.Vars(r)["id"],
		InviteCode:  req.InviteCode,
		Title:       req.Title,
		Date:        req.Date,
		Description: req.Description,
		Summary:     req.Summary,
		ExpiresAt:   req.ExpiresAt,
		Status:      req.Status,
	}
	if req.Agenda != nil {
		agenda := toAgenda(*req.Agenda)
		update.Agenda = &agenda
	}

	snap, err := h.svc.Update(r.Context(), update)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, snap)
}

// DeleteMeeting DELETE /api/meetings/{id}
func (h *MeetingHandler) DeleteMeeting(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
