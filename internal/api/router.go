package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/meetsync/meetsync/server/internal/api/recovery"
	"github.com/meetsync/meetsync/server/internal/health"
	"github.com/meetsync/meetsync/server/internal/services"
	"github.com/meetsync/meetsync/server/internal/ws"
)

// NewRouter wires all HTTP routes onto a gorilla/mux router.
func NewRouter(meetings *services.MeetingService, brainstorms *services.BrainstormService, hub *ws.Hub, healthSvc *health.Service) *mux.Router {
	router := mux.NewRouter()

	// Global middlewares
	router.Use(recovery.Middleware)

	meetingHandler := NewMeetingHandler(meetings)
	brainstormHandler := NewBrainstormHandler(brainstorms)
	healthHandler := NewHealthHandler(healthSvc)

	router.HandleFunc("/health", healthHandler.CheckHealth).Methods("GET")

	// Meeting endpoints
	router.HandleFunc("/api/meetings", meetingHandler.ListMeetings).Methods("GET")
	router.HandleFunc("/api/meetings", meetingHandler.CreateMeeting).Methods("POST")
	router.HandleFunc("/api/meetings/{id}", meetingHandler.GetMeeting).Methods("GET")
	router.HandleFunc("/api/meetings/{id}", meetingHandler.UpdateMeeting).Methods("PATCH")
	router.HandleFunc("/api/meetings/{id}", meetingHandler.DeleteMeeting).Methods("DELETE")

	// Brainstorm endpoints
	router.HandleFunc("/api/brainstormings", brainstormHandler.CreateSession).Methods("POST")
	router.HandleFunc("/api/brainstormings/{meetingId}/ideas", brainstormHandler.AddIdea).Methods("POST")
	router.HandleFunc("/api/brainstormings/{meetingId}/active", brainstormHandler.ActiveSession).Methods("GET")
	router.HandleFunc("/api/brainstormings/{meetingId}/complete", brainstormHandler.CompleteSession).Methods("GET")

	// Realtime endpoint
	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, w, r)
	}).Methods("GET")

	return router
}
