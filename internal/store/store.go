package store

import (
	"context"
	"time"

	"github.com/meetsync/meetsync/server/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ (e.g., postgres).
type Store interface {
	Meetings() Meetings
	Brainstorms() Brainstorms
	Audits() Audits
}

// CreateMeetingRequest carries the fields for a new meeting. The agenda
// is inserted with contiguous order indices in slice order.
type CreateMeetingRequest struct {
	InviteCode  string
	Title       string
	Date        *time.Time
	Description *string
	Summary     *string
	ExpiresAt   *time.Time
	HostUserID  *string
	Agenda      []model.AgendaItem
}

// UpdateMeetingRequest is a partial update: nil fields keep their prior
// values. A non-nil Agenda replaces the whole agenda list, even when
// empty; nil leaves it untouched.
type UpdateMeetingRequest struct {
	ID          string
	InviteCode  *string
	Title       *string
	Date        *time.Time
	Description *string
	Summary     *string
	ExpiresAt   *time.Time
	Status      *string
	Agenda      *[]model.AgendaItem
}

type Meetings interface {
	// Create rejects with *model.ConflictError when an unexpired active
	// meeting already holds the invite code.
	Create(ctx context.Context, req CreateMeetingRequest) (*model.MeetingSnapshot, error)
	// Update applies supplied fields, increments version and bumps
	// updated_at. Last write wins; no expected-version precondition.
	Update(ctx context.Context, req UpdateMeetingRequest) (*model.MeetingSnapshot, error)
	// Delete removes the meeting and cascades to agenda and participant rows.
	Delete(ctx context.Context, id string) error
	// GetWithAgenda returns the snapshot with its ordered agenda in one read.
	GetWithAgenda(ctx context.Context, id string) (*model.MeetingSnapshot, error)
	List(ctx context.Context) ([]*model.MeetingSnapshot, error)
}

type Brainstorms interface {
	// CreateSession starts a new session for the meeting. It fails with
	// model.ErrConflict while a non-expired session exists and purges an
	// expired predecessor together with its ideas first.
	CreateSession(ctx context.Context, meetingID, topic string, duration time.Duration) (*model.BrainstormSession, error)
	// LatestSession returns the most recent session regardless of expiry.
	LatestSession(ctx context.Context, meetingID string) (*model.BrainstormSession, error)
	AddIdea(ctx context.Context, idea *model.IdeaItem) (*model.IdeaItem, error)
	IdeasForSession(ctx context.Context, sessionID string) ([]*model.IdeaItem, error)
	// BeginAnalysis atomically moves the session summary from absent to
	// the processing sentinel. It reports true only for the caller that
	// won the transition; a session already processing or done yields false.
	BeginAnalysis(ctx context.Context, sessionID string) (bool, error)
	// CompleteAnalysis replaces the processing sentinel with the final text.
	CompleteAnalysis(ctx context.Context, sessionID, summary string) error
}

type Audits interface {
	// RecordBatch persists the batch in one transaction. Records are
	// keyed so that replaying an already-committed batch is a no-op.
	RecordBatch(ctx context.Context, tasks []model.SyncTask) error
}
