package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // browser extension clients send no stable origin
	},
}

// clientAction represents a JSON message sent by a websocket client.
type clientAction struct {
	Action    string          `json:"action"`
	MeetingID string          `json:"meetingId"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Client represents a single websocket connection and its room
// memberships.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	rooms map[string]bool

	// mu orders trySend against closeSend: the hub closes send from its
	// loop while the read pump pushes catch-up frames from its own
	// goroutine.
	mu     sync.Mutex
	closed bool
}

// trySend queues a frame for this client. It reports false when the
// client is closed or its buffer is full.
func (c *Client) trySend(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// closeSend closes the send channel exactly once.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// sendEvent queues a single frame for this client only.
func (c *Client) sendEvent(event string, payload json.RawMessage) {
	frame, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		c.hub.log.Error().Err(err).Str("event", event).Msg("marshal ws envelope")
		return
	}
	c.trySend(frame)
}

// readPump pumps actions from the websocket connection into the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug().Err(err).Msg("ws unexpected close")
			}
			break
		}

		var action clientAction
		if err := json.Unmarshal(message, &action); err != nil {
			c.hub.log.Debug().Err(err).Msg("ws invalid client message")
			continue
		}
		if action.MeetingID == "" {
			continue
		}

		reqCtx := context.Background()
		switch action.Action {
		case "join-meeting":
			c.hub.join(reqCtx, c, action.MeetingID)
		case "leave-meeting":
			c.hub.leave(c, action.MeetingID)
		case "sync-meeting-data":
			c.hub.syncMeetingData(reqCtx, c, action.MeetingID, action.Payload)
		case "sync-timer":
			c.hub.syncTimer(c, action.MeetingID, action.Payload)
		case "sync-brainstorm":
			c.hub.syncBrainstorm(reqCtx, c, action.MeetingID, action.Payload)
		default:
			c.hub.log.Debug().Str("action", action.Action).Msg("ws unknown action")
		}
	}
}

// writePump pumps frames from the hub to the websocket connection.
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}

	// Channel closed; write a close message.
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// ServeWS handles websocket upgrade requests and registers the new
// client with the hub.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Error().Err(err).Msg("ws upgrade")
		return
	}

	client := &Client{
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, 256),
		rooms: make(map[string]bool),
	}

	hub.register <- client

	go client.writePump()
	go client.readPump()
}
