package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeBridge implements CacheBridge over maps.
type fakeBridge struct {
	meetings    map[string]json.RawMessage
	brainstorms map[string]json.RawMessage
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{meetings: map[string]json.RawMessage{}, brainstorms: map[string]json.RawMessage{}}
}

func (f *fakeBridge) GetRaw(ctx context.Context, id string) (json.RawMessage, bool) {
	raw, ok := f.meetings[id]
	return raw, ok
}
func (f *fakeBridge) PutRaw(ctx context.Context, id string, raw json.RawMessage) {
	f.meetings[id] = raw
}
func (f *fakeBridge) PutBrainstormRaw(ctx context.Context, id string, raw json.RawMessage) {
	f.brainstorms[id] = raw
}

func startHub(t *testing.T, bridge CacheBridge) *Hub {
	t.Helper()
	h := NewHub(bridge, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	return h
}

func connect(t *testing.T, h *Hub) *Client {
	t.Helper()
	c := &Client{hub: h, send: make(chan []byte, 16), rooms: make(map[string]bool)}
	h.register <- c
	return c
}

func recvEvent(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case frame := <-c.send:
		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("bad frame %q: %v", frame, err)
		}
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return Envelope{}
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case frame := <-c.send:
		t.Fatalf("unexpected frame %q", frame)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishReachesOnlyRoomMembers(t *testing.T) {
	h := startHub(t, newFakeBridge())
	ctx := context.Background()

	a := connect(t, h)
	b := connect(t, h)
	outsider := connect(t, h)

	h.join(ctx, a, "m1")
	h.join(ctx, b, "m1")
	h.join(ctx, outsider, "m2")

	h.Publish("m1", EventSnapshotUpdated, map[string]string{"id": "m1"})

	for _, c := range []*Client{a, b} {
		env := recvEvent(t, c)
		if env.Event != EventSnapshotUpdated {
			t.Fatalf("want %s, got %s", EventSnapshotUpdated, env.Event)
		}
	}
	assertSilent(t, outsider)
}

func TestJoinPushesCachedSnapshotToJoinerOnly(t *testing.T) {
	bridge := newFakeBridge()
	bridge.meetings["m1"] = json.RawMessage(`{"id":"m1","title":"standup"}`)
	h := startHub(t, bridge)
	ctx := context.Background()

	first := connect(t, h)
	h.join(ctx, first, "m1")
	env := recvEvent(t, first)
	if env.Event != EventMeetingData {
		t.Fatalf("want %s, got %s", EventMeetingData, env.Event)
	}
	if string(env.Payload) != `{"id":"m1","title":"standup"}` {
		t.Fatalf("payload %s", env.Payload)
	}

	second := connect(t, h)
	h.join(ctx, second, "m1")
	recvEvent(t, second)
	// The earlier member must not receive the joiner's catch-up push.
	assertSilent(t, first)
}

func TestJoinWithoutCachedSnapshotIsSilent(t *testing.T) {
	h := startHub(t, newFakeBridge())
	c := connect(t, h)
	h.join(context.Background(), c, "m1")
	assertSilent(t, c)
}

func TestSyncMeetingDataCachesAndExcludesSender(t *testing.T) {
	bridge := newFakeBridge()
	h := startHub(t, bridge)
	ctx := context.Background()

	sender := connect(t, h)
	peer := connect(t, h)
	h.join(ctx, sender, "m1")
	h.join(ctx, peer, "m1")

	content := json.RawMessage(`{"title":"edited"}`)
	h.syncMeetingData(ctx, sender, "m1", content)

	env := recvEvent(t, peer)
	if env.Event != EventMeetingUpdated {
		t.Fatalf("want %s, got %s", EventMeetingUpdated, env.Event)
	}
	assertSilent(t, sender)
	if string(bridge.meetings["m1"]) != string(content) {
		t.Fatalf("edit not cached: %s", bridge.meetings["m1"])
	}
}

func TestTimerStateReachesLateJoiner(t *testing.T) {
	h := startHub(t, newFakeBridge())
	ctx := context.Background()

	sender := connect(t, h)
	h.join(ctx, sender, "m1")
	state := json.RawMessage(`{"currentIndex":2,"timeLeft":90,"isRunning":true}`)
	h.syncTimer(sender, "m1", state)

	late := connect(t, h)
	h.join(ctx, late, "m1")
	env := recvEvent(t, late)
	if env.Event != EventTimerSync {
		t.Fatalf("want %s, got %s", EventTimerSync, env.Event)
	}
	if string(env.Payload) != string(state) {
		t.Fatalf("payload %s", env.Payload)
	}
}

func TestJoinAfterStalledDropDoesNotPanic(t *testing.T) {
	bridge := newFakeBridge()
	bridge.meetings["m1"] = json.RawMessage(`{"id":"m1"}`)
	bridge.meetings["m2"] = json.RawMessage(`{"id":"m2"}`)
	h := startHub(t, bridge)
	ctx := context.Background()

	c := &Client{hub: h, send: make(chan []byte, 1), rooms: make(map[string]bool)}
	h.register <- c
	h.join(ctx, c, "m1") // catch-up fills the single-slot buffer

	// Delivery finds the buffer full, drops c and closes its channel.
	h.Publish("m1", EventSnapshotUpdated, map[string]string{"id": "m1"})
	deadline := time.Now().Add(2 * time.Second)
	for {
		h.mu.RLock()
		_, present := h.clients[c]
		h.mu.RUnlock()
		if !present {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("stalled client never dropped")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// A join from the read pump after the hub closed the channel must
	// not send on it.
	h.join(ctx, c, "m2")

	if env := recvEvent(t, c); env.Event != EventMeetingData {
		t.Fatalf("want the buffered catch-up frame, got %s", env.Event)
	}
	select {
	case frame, ok := <-c.send:
		if ok {
			t.Fatalf("dropped client got frame %q", frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send channel never closed")
	}
}

func TestLeaveStopsDelivery(t *testing.T) {
	h := startHub(t, newFakeBridge())
	ctx := context.Background()

	c := connect(t, h)
	h.join(ctx, c, "m1")
	h.leave(c, "m1")

	h.Publish("m1", EventSnapshotUpdated, map[string]string{"id": "m1"})
	assertSilent(t, c)
}
