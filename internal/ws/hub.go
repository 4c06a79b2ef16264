// Package ws provides the realtime fan-out layer. Clients join
// per-meeting rooms over a websocket; the hub relays collaborative
// edits between room members and pushes server-side events (snapshot
// updates, brainstorm results) into the room.
package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Server-pushed event names.
const (
	EventMeetingData       = "meeting-data"
	EventMeetingUpdated    = "meeting-updated"
	EventTimerSync         = "timer-sync"
	EventBrainstormUpdated = "brainstorm-ideas-updated"
	EventSnapshotUpdated   = "snapshot-updated"
	EventAgendaReplaced    = "agenda-replaced"
	EventMeetingDeleted    = "meeting-deleted"
	EventBrainstormCreated = "brainstorm-created"
	EventIdeaCreated       = "idea-created"
	EventAnalysisCompleted = "ai-analysis-completed"
)

// Envelope is the wire frame for every server-to-client message.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RoomForMeeting returns the room name clients of a meeting share.
func RoomForMeeting(meetingID string) string { return "meeting-" + meetingID }

// CacheBridge is the slice of the snapshot cache the hub needs for
// join-time catch-up and for persisting collaborative edits.
type CacheBridge interface {
	GetRaw(ctx context.Context, meetingID string) (json.RawMessage, bool)
	PutRaw(ctx context.Context, meetingID string, raw json.RawMessage)
	PutBrainstormRaw(ctx context.Context, meetingID string, raw json.RawMessage)
}

// broadcastMsg pairs a room with the frame to deliver. skip, when set,
// excludes the originating client so editors do not echo to themselves.
type broadcastMsg struct {
	room string
	data []byte
	skip *Client
}

// Hub maintains the set of active clients and fans messages out to
// room members.
type Hub struct {
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMsg

	// timers holds the latest timer state per meeting so late joiners
	// start in sync.
	timers map[string]json.RawMessage

	cache CacheBridge
	log   zerolog.Logger
	mu    sync.RWMutex
}

// NewHub creates a Hub. Run must be started in a goroutine before
// clients connect.
func NewHub(cache CacheBridge, log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMsg, 256),
		timers:     make(map[string]json.RawMessage),
		cache:      cache,
		log:        log.With().Str("component", "ws-hub").Logger(),
	}
}

// Run pumps the hub's event loop until ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.closeSend()
				delete(h.clients, client)
			}
			h.rooms = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// drop removes a client from the hub and every room. Callers hold h.mu.
// Rooms are scrubbed even for a client already dropped: the read pump
// can re-join a room after the hub has let go of the client.
func (h *Hub) drop(client *Client) {
	for room := range client.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	client.closeSend()
}

func (h *Hub) deliver(msg broadcastMsg) {
	h.mu.RLock()
	members := h.rooms[msg.room]
	targets := make([]*Client, 0, len(members))
	for client := range members {
		if client == msg.skip {
			continue
		}
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		if !client.trySend(msg.data) {
			// Send buffer full; the client has stalled, drop it.
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()
		}
	}
}

// Publish fans an event out to every member of a meeting's room.
func (h *Hub) Publish(meetingID, event string, payload interface{}) {
	h.publishExcept(meetingID, event, payload, nil)
}

func (h *Hub) publishExcept(meetingID, event string, payload interface{}, skip *Client) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("marshal ws payload")
		return
	}
	frame, err := json.Marshal(Envelope{Event: event, Payload: raw})
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("marshal ws envelope")
		return
	}
	h.broadcast <- broadcastMsg{room: RoomForMeeting(meetingID), data: frame, skip: skip}
}

// join subscribes a client to a meeting's room and pushes catch-up
// state (cached snapshot, then timer position) to that client only.
func (h *Hub) join(ctx context.Context, client *Client, meetingID string) {
	room := RoomForMeeting(meetingID)

	h.mu.Lock()
	client.rooms[room] = true
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
	timer := h.timers[meetingID]
	h.mu.Unlock()

	if raw, ok := h.cache.GetRaw(ctx, meetingID); ok {
		client.sendEvent(EventMeetingData, raw)
	}
	if timer != nil {
		client.sendEvent(EventTimerSync, timer)
	}
}

func (h *Hub) leave(client *Client, meetingID string) {
	room := RoomForMeeting(meetingID)

	h.mu.Lock()
	defer h.mu.Unlock()
	delete(client.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// syncMeetingData caches a collaborative edit and relays it to the
// rest of the room.
func (h *Hub) syncMeetingData(ctx context.Context, sender *Client, meetingID string, content json.RawMessage) {
	h.cache.PutRaw(ctx, meetingID, content)
	h.publishExcept(meetingID, EventMeetingUpdated, content, sender)
}

// syncTimer records the meeting's timer position and relays it to the
// rest of the room.
func (h *Hub) syncTimer(sender *Client, meetingID string, state json.RawMessage) {
	h.mu.Lock()
	h.timers[meetingID] = state
	h.mu.Unlock()
	h.publishExcept(meetingID, EventTimerSync, state, sender)
}

// syncBrainstorm caches the room's working idea list and relays it.
func (h *Hub) syncBrainstorm(ctx context.Context, sender *Client, meetingID string, ideas json.RawMessage) {
	h.cache.PutBrainstormRaw(ctx, meetingID, ideas)
	h.publishExcept(meetingID, EventBrainstormUpdated, ideas, sender)
}
