// Package services orchestrates the meeting and brainstorm use cases on
// top of the store, the snapshot cache, the sync queue and the realtime
// hub. The store is the source of truth; cache and queue effects are
// applied only after a successful store write.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/meetsync/meetsync/server/internal/model"
	"github.com/meetsync/meetsync/server/internal/store"
	"github.com/meetsync/meetsync/server/internal/ws"
)

// SnapshotCache is the cache surface the services need.
type SnapshotCache interface {
	Get(ctx context.Context, meetingID string) (*model.MeetingSnapshot, bool)
	Put(ctx context.Context, snap *model.MeetingSnapshot)
	Invalidate(ctx context.Context, meetingID string)
}

// SyncEnqueuer appends an audit task to the sync queue.
type SyncEnqueuer interface {
	Enqueue(ctx context.Context, task model.SyncTask)
}

// Publisher fans an event out to a meeting's room.
type Publisher interface {
	Publish(meetingID, event string, payload interface{})
}

// MeetingService orchestrates meeting CRUD with write-through caching.
type MeetingService struct {
	store store.Store
	cache SnapshotCache
	queue SyncEnqueuer
	hub   Publisher
	log   zerolog.Logger
}

func NewMeetingService(s store.Store, cache SnapshotCache, queue SyncEnqueuer, hub Publisher, log zerolog.Logger) *MeetingService {
	return &MeetingService{store: s, cache: cache, queue: queue, hub: hub, log: log}
}

// Create persists a new meeting, warms the cache, notifies the room and
// enqueues the audit task.
func (s *MeetingService) Create(ctx context.Context, req store.CreateMeetingRequest) (*model.MeetingSnapshot, error) {
	snap, err := s.store.Meetings().Create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.cache.Put(ctx, snap)
	s.hub.Publish(snap.ID, ws.EventSnapshotUpdated, snap)
	s.queue.Enqueue(ctx, model.SyncTask{MeetingID: snap.ID, Operation: model.SyncCreate, Data: snap, Timestamp: time.Now().UTC()})
	return snap, nil
}

// Get serves a meeting cache-first, falling back to the store and
// repopulating the cache on a miss.
func (s *MeetingService) Get(ctx context.Context, meetingID string) (*model.MeetingSnapshot, error) {
	if snap, ok := s.cache.Get(ctx, meetingID); ok {
		return snap, nil
	}
	snap, err := s.store.Meetings().GetWithAgenda(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	s.cache.Put(ctx, snap)
	return snap, nil
}

// List returns all meetings, newest first. Always served from the store.
func (s *MeetingService) List(ctx context.Context) ([]*model.MeetingSnapshot, error) {
	return s.store.Meetings().List(ctx)
}

// Update applies a partial update, refreshes the cache and notifies the
// room. A non-nil agenda in the request replaces the agenda wholesale.
func (s *MeetingService) Update(ctx context.Context, req store.UpdateMeetingRequest) (*model.MeetingSnapshot, error) {
	snap, err := s.store.Meetings().Update(ctx, req)
	if err != nil {
		return nil, err
	}
	s.cache.Put(ctx, snap)
	s.hub.Publish(snap.ID, ws.EventSnapshotUpdated, snap)
	if req.Agenda != nil {
		s.hub.Publish(snap.ID, ws.EventAgendaReplaced, snap.Agenda)
	}
	s.queue.Enqueue(ctx, model.SyncTask{MeetingID: snap.ID, Operation: model.SyncUpdate, Data: snap, Timestamp: time.Now().UTC()})
	return snap, nil
}

// Delete removes a meeting, drops its cache entries and notifies the
// room.
func (s *MeetingService) Delete(ctx context.Context, meetingID string) error {
	if err := s.store.Meetings().Delete(ctx, meetingID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, meetingID)
	s.hub.Publish(meetingID, ws.EventMeetingDeleted, map[string]string{"meetingId": meetingID})
	s.queue.Enqueue(ctx, model.SyncTask{MeetingID: meetingID, Operation: model.SyncDelete, Timestamp: time.Now().UTC()})
	return nil
}
