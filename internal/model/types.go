package model

import "time"

// Meeting status values.
const (
	StatusActive  = "active"
	StatusExpired = "expired"
)

// AIProcessingSentinel is the in-band marker stored in a brainstorm
// session's summary field while an analysis job is in flight.
const AIProcessingSentinel = "__AI_PROCESSING__"

// MeetingSnapshot is the denormalized, read-optimized projection of a
// meeting and its ordered agenda. It is the unit cached and broadcast.
type MeetingSnapshot struct {
	ID          string       `json:"id"`
	InviteCode  *string      `json:"inviteCode,omitempty"`
	Title       string       `json:"title"`
	Date        *time.Time   `json:"date,omitempty"`
	Description *string      `json:"description,omitempty"`
	Summary     *string      `json:"summary,omitempty"`
	Status      string       `json:"status"`
	ExpiresAt   *time.Time   `json:"expiresAt,omitempty"`
	Version     int          `json:"version"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	Agenda      []AgendaItem `json:"agenda"`
}

// AgendaItem is one ordered entry of a meeting agenda. The full agenda
// list is always replaced atomically; OrderIndex is contiguous from 0.
type AgendaItem struct {
	ID         int64   `json:"id"`
	OrderIndex int     `json:"orderIndex"`
	Time       *string `json:"time,omitempty"`
	Title      string  `json:"title"`
	Owner      *string `json:"owner,omitempty"`
	Note       *string `json:"note,omitempty"`
}

// SyncOp is the operation tag carried by a queued sync task.
type SyncOp string

const (
	SyncCreate SyncOp = "create"
	SyncUpdate SyncOp = "update"
	SyncDelete SyncOp = "delete"
)

// SyncTask is one queued side-effect record. Tasks are processed FIFO
// in batches and stay on the queue until the batch commits.
type SyncTask struct {
	MeetingID string      `json:"meetingId"`
	Operation SyncOp      `json:"operation"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// BrainstormSession groups ideas under a topic for one meeting. At most
// one non-expired session exists per meeting. AISummary is nil until an
// analysis finishes; while a job is in flight it holds
// AIProcessingSentinel.
type BrainstormSession struct {
	ID        string    `json:"id"`
	MeetingID string    `json:"meetingId"`
	Topic     string    `json:"topic"`
	AISummary *string   `json:"aiSummary,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Processing reports whether an analysis job is believed in flight.
func (s *BrainstormSession) Processing() bool {
	return s.AISummary != nil && *s.AISummary == AIProcessingSentinel
}

// Active reports whether the session window is still open at t.
func (s *BrainstormSession) Active(t time.Time) bool {
	return s.ExpiresAt.After(t)
}

// IdeaItem is a single brainstorm idea, owned by exactly one session.
type IdeaItem struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"sessionId"`
	MeetingID string    `json:"meetingId"`
	UserID    *string   `json:"userId,omitempty"`
	Idea      string    `json:"idea"`
	CreatedAt time.Time `json:"createdAt"`
}

// AnalysisResult is the completion message produced by an analysis job.
type AnalysisResult struct {
	Success   bool    `json:"success"`
	MeetingID string  `json:"meetingId"`
	SessionID string  `json:"sessionId"`
	Summary   *string `json:"summary"`
	Error     *string `json:"error"`
}
