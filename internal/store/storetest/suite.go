package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/meetsync/meetsync/server/internal/model"
	"github.com/meetsync/meetsync/server/internal/store"
)

func strptr(s string) *string { return &s }

// Run exercises a compliance suite against a store.Store implementation.
// Implementations should provide a clean, isolated store from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	invite := "abc-" + uuid.New().String()[:8]

	// Create with agenda
	snap, err := s.Meetings().Create(ctx, store.CreateMeetingRequest{
		InviteCode: invite,
		Title:      "weekly sync",
		Agenda: []model.AgendaItem{
			{Title: "intro", Time: strptr("09:00")},
			{Title: "updates"},
			{Title: "wrap-up"},
		},
	})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}
	if snap.Version != 1 || snap.Status != model.StatusActive {
		t.Fatalf("fresh snapshot: version=%d status=%s", snap.Version, snap.Status)
	}
	if len(snap.Agenda) != 3 || snap.Agenda[0].OrderIndex != 0 || snap.Agenda[2].OrderIndex != 2 {
		t.Fatalf("agenda ordering: %+v", snap.Agenda)
	}

	// Duplicate invite code conflicts and carries the existing id
	_, err = s.Meetings().Create(ctx, store.CreateMeetingRequest{InviteCode: invite, Title: "dup"})
	if !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	var conflict *model.ConflictError
	if !errors.As(err, &conflict) || conflict.ExistingID != snap.ID {
		t.Fatalf("conflict should carry existing id: %v", err)
	}

	// Partial update: title only, agenda untouched
	up, err := s.Meetings().Update(ctx, store.UpdateMeetingRequest{ID: snap.ID, Title: strptr("renamed")})
	if err != nil {
		t.Fatalf("UpdateMeeting: %v", err)
	}
	if up.Title != "renamed" || up.Version != 2 || len(up.Agenda) != 3 {
		t.Fatalf("partial update: title=%q version=%d agenda=%d", up.Title, up.Version, len(up.Agenda))
	}
	if up.InviteCode == nil || *up.InviteCode != invite {
		t.Fatalf("untouched invite code changed: %v", up.InviteCode)
	}

	// Agenda replacement is wholesale
	newAgenda := []model.AgendaItem{{Title: "only item"}}
	up, err = s.Meetings().Update(ctx, store.UpdateMeetingRequest{ID: snap.ID, Agenda: &newAgenda})
	if err != nil {
		t.Fatalf("UpdateMeeting agenda: %v", err)
	}
	if len(up.Agenda) != 1 || up.Agenda[0].Title != "only item" || up.Version != 3 {
		t.Fatalf("agenda replace: %+v version=%d", up.Agenda, up.Version)
	}

	// GetWithAgenda agrees with the update result
	got, err := s.Meetings().GetWithAgenda(ctx, snap.ID)
	if err != nil || got.Version != up.Version || len(got.Agenda) != 1 {
		t.Fatalf("GetWithAgenda: got=%+v err=%v", got, err)
	}

	if lst, err := s.Meetings().List(ctx); err != nil || len(lst) == 0 {
		t.Fatalf("ListMeetings: n=%d err=%v", len(lst), err)
	}

	// Brainstorm session lifecycle
	sess, err := s.Brainstorms().CreateSession(ctx, snap.ID, "q3 ideas", 5*time.Minute)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sess.AISummary != nil {
		t.Fatalf("new session should have absent summary")
	}
	if _, err := s.Brainstorms().CreateSession(ctx, snap.ID, "again", time.Minute); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("second active session should conflict, got %v", err)
	}

	for _, text := range []string{"a", "b"} {
		if _, err := s.Brainstorms().AddIdea(ctx, &model.IdeaItem{SessionID: sess.ID, MeetingID: snap.ID, Idea: text}); err != nil {
			t.Fatalf("AddIdea %q: %v", text, err)
		}
	}
	ideas, err := s.Brainstorms().IdeasForSession(ctx, sess.ID)
	if err != nil || len(ideas) != 2 || ideas[0].Idea != "a" {
		t.Fatalf("IdeasForSession: n=%d err=%v", len(ideas), err)
	}

	// Single-flight gate: exactly one winner, then done state blocks re-entry
	won, err := s.Brainstorms().BeginAnalysis(ctx, sess.ID)
	if err != nil || !won {
		t.Fatalf("first BeginAnalysis: won=%v err=%v", won, err)
	}
	won, err = s.Brainstorms().BeginAnalysis(ctx, sess.ID)
	if err != nil || won {
		t.Fatalf("second BeginAnalysis should lose: won=%v err=%v", won, err)
	}
	if latest, err := s.Brainstorms().LatestSession(ctx, snap.ID); err != nil || !latest.Processing() {
		t.Fatalf("sentinel not visible: %+v err=%v", latest, err)
	}
	if err := s.Brainstorms().CompleteAnalysis(ctx, sess.ID, "## summary"); err != nil {
		t.Fatalf("CompleteAnalysis: %v", err)
	}
	if latest, err := s.Brainstorms().LatestSession(ctx, snap.ID); err != nil || latest.AISummary == nil || *latest.AISummary != "## summary" {
		t.Fatalf("summary not persisted: %+v err=%v", latest, err)
	}
	if won, err := s.Brainstorms().BeginAnalysis(ctx, sess.ID); err != nil || won {
		t.Fatalf("done session admitted a new job: won=%v err=%v", won, err)
	}

	// Gate under contention: concurrent attempts, exactly one admission
	m2, err := s.Meetings().Create(ctx, store.CreateMeetingRequest{
		InviteCode: "con-" + uuid.New().String()[:8],
		Title:      "contended",
	})
	if err != nil {
		t.Fatalf("CreateMeeting: %v", err)
	}
	sess2, err := s.Brainstorms().CreateSession(ctx, m2.ID, "parallel", 5*time.Minute)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	type attempt struct {
		won bool
		err error
	}
	results := make(chan attempt, 2)
	for i := 0; i < 2; i++ {
		go func() {
			won, err := s.Brainstorms().BeginAnalysis(ctx, sess2.ID)
			results <- attempt{won, err}
		}()
	}
	winners := 0
	for i := 0; i < 2; i++ {
		r := <-results
		if r.err != nil {
			t.Fatalf("concurrent BeginAnalysis: %v", r.err)
		}
		if r.won {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("gate admitted %d of 2 concurrent attempts", winners)
	}

	// Audit batches replay without duplicating rows
	now := time.Now().UTC().Truncate(time.Millisecond)
	batch := []model.SyncTask{
		{MeetingID: snap.ID, Operation: model.SyncCreate, Timestamp: now},
		{MeetingID: snap.ID, Operation: model.SyncUpdate, Timestamp: now.Add(time.Second)},
	}
	if err := s.Audits().RecordBatch(ctx, batch); err != nil {
		t.Fatalf("RecordBatch: %v", err)
	}
	if err := s.Audits().RecordBatch(ctx, batch); err != nil {
		t.Fatalf("RecordBatch replay: %v", err)
	}

	// Delete cascades and subsequent reads are not-found
	if err := s.Meetings().Delete(ctx, snap.ID); err != nil {
		t.Fatalf("DeleteMeeting: %v", err)
	}
	if _, err := s.Meetings().GetWithAgenda(ctx, snap.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := s.Meetings().Delete(ctx, snap.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("double delete should be not found, got %v", err)
	}
}
