package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/meetsync/meetsync/server/internal/analysis"
	"github.com/meetsync/meetsync/server/internal/model"
	"github.com/meetsync/meetsync/server/internal/store"
	"github.com/meetsync/meetsync/server/internal/ws"
)

// AnalysisSubmitter accepts a summarization job for background
// execution.
type AnalysisSubmitter interface {
	Submit(job analysis.Job)
}

// SessionWithIdeas pairs a session with its collected ideas.
type SessionWithIdeas struct {
	Session *model.BrainstormSession `json:"session"`
	Ideas   []*model.IdeaItem        `json:"ideas"`
}

// BrainstormService orchestrates brainstorm sessions, idea collection
// and the single-flight AI summarization.
type BrainstormService struct {
	store  store.Store
	hub    Publisher
	runner AnalysisSubmitter
	log    zerolog.Logger
}

func NewBrainstormService(s store.Store, hub Publisher, runner AnalysisSubmitter, log zerolog.Logger) *BrainstormService {
	return &BrainstormService{store: s, hub: hub, runner: runner, log: log}
}

// CreateSession starts a brainstorm for a meeting and notifies the
// room. Conflicts with a still-active session surface unchanged.
func (s *BrainstormService) CreateSession(ctx context.Context, meetingID, topic string, duration time.Duration) (*model.BrainstormSession, error) {
	session, err := s.store.Brainstorms().CreateSession(ctx, meetingID, topic, duration)
	if err != nil {
		return nil, err
	}
	s.hub.Publish(meetingID, ws.EventBrainstormCreated, session)
	return session, nil
}

// AddIdea appends an idea to the meeting's current session. Ideas are
// accepted only while the session is live.
func (s *BrainstormService) AddIdea(ctx context.Context, meetingID string, userID *string, idea string) (*model.IdeaItem, error) {
	session, err := s.store.Brainstorms().LatestSession(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if !session.Active(time.Now()) {
		return nil, fmt.Errorf("session %s has ended: %w", session.ID, model.ErrConflict)
	}
	item, err := s.store.Brainstorms().AddIdea(ctx, &model.IdeaItem{
		SessionID: session.ID,
		MeetingID: meetingID,
		UserID:    userID,
		Idea:      idea,
	})
	if err != nil {
		return nil, err
	}
	s.hub.Publish(meetingID, ws.EventIdeaCreated, item)
	return item, nil
}

// Active returns the meeting's live session with its ideas, or
// model.ErrNotFound when no session is live.
func (s *BrainstormService) Active(ctx context.Context, meetingID string) (*SessionWithIdeas, error) {
	session, err := s.store.Brainstorms().LatestSession(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if !session.Active(time.Now()) {
		return nil, fmt.Errorf("no live session for meeting %s: %w", meetingID, model.ErrNotFound)
	}
	ideas, err := s.store.Brainstorms().IdeasForSession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	return &SessionWithIdeas{Session: session, Ideas: ideas}, nil
}

// Complete returns the latest session with its ideas and, when the
// session has ideas and no summary yet, kicks off summarization in the
// background. The processing gate lives in the store, so concurrent
// calls start at most one job; callers never wait for the result.
func (s *BrainstormService) Complete(ctx context.Context, meetingID string) (*SessionWithIdeas, error) {
	session, err := s.store.Brainstorms().LatestSession(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	ideas, err := s.store.Brainstorms().IdeasForSession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	out := &SessionWithIdeas{Session: session, Ideas: ideas}

	if session.AISummary != nil || len(ideas) == 0 {
		return out, nil
	}

	won, err := s.store.Brainstorms().BeginAnalysis(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if !won {
		return out, nil
	}

	// The gate just wrote the sentinel; the winner's response carries it.
	sentinel := model.AIProcessingSentinel
	session.AISummary = &sentinel

	texts := make([]string, len(ideas))
	for i, it := range ideas {
		texts[i] = it.Idea
	}
	s.runner.Submit(analysis.Job{
		MeetingID: meetingID,
		SessionID: session.ID,
		Topic:     session.Topic,
		Ideas:     texts,
	})
	s.log.Info().Str("session_id", session.ID).Int("ideas", len(texts)).Msg("analysis started")
	return out, nil
}
