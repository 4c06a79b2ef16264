package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/meetsync/meetsync/server/internal/model"
	"github.com/meetsync/meetsync/server/internal/ws"
)

type fakeSummarizer struct {
	summary string
	err     error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, topic string, ideas []string) (string, error) {
	return f.summary, f.err
}

type fakeBrainstorms struct {
	mu        sync.Mutex
	summaries map[string]string
	failWith  error
}

func (f *fakeBrainstorms) CreateSession(context.Context, string, string, time.Duration) (*model.BrainstormSession, error) {
	panic("unused")
}
func (f *fakeBrainstorms) LatestSession(context.Context, string) (*model.BrainstormSession, error) {
	panic("unused")
}
func (f *fakeBrainstorms) AddIdea(context.Context, *model.IdeaItem) (*model.IdeaItem, error) {
	panic("unused")
}
func (f *fakeBrainstorms) IdeasForSession(context.Context, string) ([]*model.IdeaItem, error) {
	panic("unused")
}
func (f *fakeBrainstorms) BeginAnalysis(context.Context, string) (bool, error) { panic("unused") }
func (f *fakeBrainstorms) CompleteAnalysis(_ context.Context, sessionID, summary string) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.summaries == nil {
		f.summaries = map[string]string{}
	}
	f.summaries[sessionID] = summary
	return nil
}

func (f *fakeBrainstorms) summaryFor(sessionID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.summaries[sessionID]
	return s, ok
}

type fakeHub struct {
	mu     sync.Mutex
	events []model.AnalysisResult
}

func (f *fakeHub) Publish(meetingID, event string, payload interface{}) {
	if event != ws.EventAnalysisCompleted {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, payload.(model.AnalysisResult))
}

func (f *fakeHub) waitForEvent(t *testing.T) model.AnalysisResult {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		if len(f.events) > 0 {
			ev := f.events[0]
			f.mu.Unlock()
			return ev
		}
		f.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no analysis event published")
	return model.AnalysisResult{}
}

func startRunner(t *testing.T, sum Summarizer, bs *fakeBrainstorms, hub *fakeHub) *Runner {
	t.Helper()
	r := NewRunner(sum, bs, hub, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go r.Run(ctx)
	return r
}

func TestSuccessfulJobPersistsThenNotifies(t *testing.T) {
	bs := &fakeBrainstorms{}
	hub := &fakeHub{}
	r := startRunner(t, &fakeSummarizer{summary: "grouped and summarized"}, bs, hub)

	r.Submit(Job{MeetingID: "m1", SessionID: "s1", Topic: "q3 goals", Ideas: []string{"a", "b"}})

	ev := hub.waitForEvent(t)
	if !ev.Success || ev.SessionID != "s1" || ev.Summary == nil || *ev.Summary != "grouped and summarized" {
		t.Fatalf("event %+v", ev)
	}
	if got, ok := bs.summaryFor("s1"); !ok || got != "grouped and summarized" {
		t.Fatalf("summary not persisted, got %q ok=%v", got, ok)
	}
}

func TestFailedJobNotifiesWithoutPersisting(t *testing.T) {
	bs := &fakeBrainstorms{}
	hub := &fakeHub{}
	r := startRunner(t, &fakeSummarizer{err: errors.New("model unavailable")}, bs, hub)

	r.Submit(Job{MeetingID: "m1", SessionID: "s1", Topic: "q3 goals", Ideas: []string{"a"}})

	ev := hub.waitForEvent(t)
	if ev.Success || ev.Error == nil || *ev.Error != "model unavailable" {
		t.Fatalf("event %+v", ev)
	}
	if _, ok := bs.summaryFor("s1"); ok {
		t.Fatal("failed job must not persist a summary")
	}
}

func TestPersistFailureSuppressesNotification(t *testing.T) {
	bs := &fakeBrainstorms{failWith: errors.New("store down")}
	hub := &fakeHub{}
	r := startRunner(t, &fakeSummarizer{summary: "ok"}, bs, hub)

	r.Submit(Job{MeetingID: "m1", SessionID: "s1", Topic: "t", Ideas: []string{"a"}})

	time.Sleep(100 * time.Millisecond)
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if len(hub.events) != 0 {
		t.Fatalf("unexpected events %+v", hub.events)
	}
}
