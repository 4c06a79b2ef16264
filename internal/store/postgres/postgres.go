package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/meetsync/meetsync/server/internal/model"
	"github.com/meetsync/meetsync/server/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB constructs a native Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Meetings() store.Meetings       { return &meetings{db: s.db} }
func (s *pgStore) Brainstorms() store.Brainstorms { return &brainstorms{db: s.db} }
func (s *pgStore) Audits() store.Audits           { return &audits{db: s.db} }

// HealthPing implements health.HealthPinger for the Postgres-backed store.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const snapshotColumns = `
        m.id,
        m.invite_code,
        m.title,
        m.date,
        m.description,
        m.summary,
        m.status,
        m.expires_at,
        m.created_at,
        m.updated_at,
        m.version,
        a.id          AS agenda_id,
        a.order_index,
        a.time,
        a.title       AS agenda_title,
        a.owner,
        a.note`

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// fetchSnapshots runs a joined meetings/agenda query and folds the rows
// into snapshots, one per meeting, agenda ordered by order_index.
func fetchSnapshots(ctx context.Context, q querier, where string, args ...any) ([]*model.MeetingSnapshot, error) {
	query := `SELECT` + snapshotColumns + `
        FROM meetings m
        LEFT JOIN agenda_items a ON a.meeting_id = m.id ` + where
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	byID := map[string]*model.MeetingSnapshot{}
	var out []*model.MeetingSnapshot
	for rows.Next() {
		var (
			id                         string
			inviteCode, desc, summary  *string
			title, status              string
			date, expiresAt            *time.Time
			createdAt, updatedAt       time.Time
			version                    int
			agendaID                   *int64
			orderIndex                 *int
			agendaTime, agendaTitle    *string
			agendaOwner, agendaNote    *string
		)
		if err := rows.Scan(&id, &inviteCode, &title, &date, &desc, &summary, &status, &expiresAt,
			&createdAt, &updatedAt, &version,
			&agendaID, &orderIndex, &agendaTime, &agendaTitle, &agendaOwner, &agendaNote); err != nil {
			return nil, err
		}
		snap, ok := byID[id]
		if !ok {
			snap = &model.MeetingSnapshot{
				ID:          id,
				InviteCode:  inviteCode,
				Title:       title,
				Date:        date,
				Description: desc,
				Summary:     summary,
				Status:      status,
				ExpiresAt:   expiresAt,
				Version:     version,
				CreatedAt:   createdAt,
				UpdatedAt:   updatedAt,
				Agenda:      []model.AgendaItem{},
			}
			byID[id] = snap
			out = append(out, snap)
		}
		if agendaID != nil {
			item := model.AgendaItem{ID: *agendaID, Time: agendaTime, Owner: agendaOwner, Note: agendaNote}
			if orderIndex != nil {
				item.OrderIndex = *orderIndex
			}
			if agendaTitle != nil {
				item.Title = *agendaTitle
			}
			snap.Agenda = append(snap.Agenda, item)
		}
	}
	return out, rows.Err()
}

// --- Meetings ---

type meetings struct{ db *sql.DB }

func (m *meetings) Create(ctx context.Context, req store.CreateMeetingRequest) (*model.MeetingSnapshot, error) {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// Flip stale rows holding this invite code before the conflict check.
	if _, err := tx.ExecContext(ctx, `
        UPDATE meetings SET status = 'expired'
        WHERE invite_code = $1
          AND status = 'active'
          AND expires_at IS NOT NULL
          AND expires_at <= NOW()
    `, req.InviteCode); err != nil {
		return nil, err
	}

	var existingID string
	err = tx.QueryRowContext(ctx, `
        SELECT id FROM meetings
        WHERE invite_code = $1
          AND status = 'active'
          AND (expires_at IS NULL OR expires_at > NOW())
        LIMIT 1
    `, req.InviteCode).Scan(&existingID)
	if err == nil {
		return nil, &model.ConflictError{ExistingID: existingID}
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	var meetingID string
	if err := tx.QueryRowContext(ctx, `
        INSERT INTO meetings (invite_code, title, date, description, summary, expires_at, status)
        VALUES ($1,$2,$3,$4,$5,$6,'active')
        RETURNING id
    `, req.InviteCode, req.Title, req.Date, req.Description, req.Summary, req.ExpiresAt).Scan(&meetingID); err != nil {
		return nil, err
	}

	if req.HostUserID != nil {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO meeting_participants (meeting_id, user_id, role) VALUES ($1,$2,'host')
        `, meetingID, *req.HostUserID); err != nil {
			return nil, err
		}
	}

	if err := insertAgenda(ctx, tx, meetingID, req.Agenda); err != nil {
		return nil, err
	}

	snaps, err := fetchSnapshots(ctx, tx, `WHERE m.id = $1 ORDER BY a.order_index ASC`, meetingID)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, model.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return snaps[0], nil
}

func (m *meetings) Update(ctx context.Context, req store.UpdateMeetingRequest) (*model.MeetingSnapshot, error) {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var cur struct {
		inviteCode, description, summary *string
		title, status                    string
		date, expiresAt                  *time.Time
	}
	err = tx.QueryRowContext(ctx, `
        SELECT invite_code, title, date, description, summary, expires_at, status
        FROM meetings WHERE id = $1 FOR UPDATE
    `, req.ID).Scan(&cur.inviteCode, &cur.title, &cur.date, &cur.description, &cur.summary, &cur.expiresAt, &cur.status)
	if err == sql.ErrNoRows {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	inviteCode := cur.inviteCode
	if req.InviteCode != nil {
		inviteCode = req.InviteCode
	}
	title := cur.title
	if req.Title != nil {
		title = *req.Title
	}
	date := cur.date
	if req.Date != nil {
		date = req.Date
	}
	description := cur.description
	if req.Description != nil {
		description = req.Description
	}
	summary := cur.summary
	if req.Summary != nil {
		summary = req.Summary
	}
	expiresAt := cur.expiresAt
	if req.ExpiresAt != nil {
		expiresAt = req.ExpiresAt
	}
	status := cur.status
	if req.Status != nil {
		status = *req.Status
	}
	// An elapsed expiry always forces the expired status.
	if expiresAt != nil && !expiresAt.After(time.Now()) {
		status = model.StatusExpired
	}

	// Invite code moves must not collide with another live meeting.
	if inviteCode != nil {
		var conflictID string
		err = tx.QueryRowContext(ctx, `
            SELECT id FROM meetings
            WHERE invite_code = $1
              AND id <> $2
              AND status = 'active'
              AND (expires_at IS NULL OR expires_at > NOW())
            LIMIT 1
        `, *inviteCode, req.ID).Scan(&conflictID)
		if err == nil {
			return nil, &model.ConflictError{ExistingID: conflictID}
		}
		if err != sql.ErrNoRows {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, `
        UPDATE meetings
        SET invite_code = $2,
            title       = $3,
            date        = $4,
            description = $5,
            summary     = $6,
            expires_at  = $7,
            status      = $8,
            updated_at  = NOW(),
            version     = version + 1
        WHERE id = $1
    `, req.ID, inviteCode, title, date, description, summary, expiresAt, status); err != nil {
		return nil, err
	}

	if req.Agenda != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM agenda_items WHERE meeting_id = $1`, req.ID); err != nil {
			return nil, err
		}
		if err := insertAgenda(ctx, tx, req.ID, *req.Agenda); err != nil {
			return nil, err
		}
	}

	snaps, err := fetchSnapshots(ctx, tx, `WHERE m.id = $1 ORDER BY a.order_index ASC`, req.ID)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, model.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return snaps[0], nil
}

func (m *meetings) Delete(ctx context.Context, id string) error {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Children first; the FK cascade would also cover these, but explicit
	// deletes keep the transaction's write set obvious.
	if _, err := tx.ExecContext(ctx, `DELETE FROM agenda_items WHERE meeting_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM meeting_participants WHERE meeting_id = $1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return tx.Commit()
}

func (m *meetings) GetWithAgenda(ctx context.Context, id string) (*model.MeetingSnapshot, error) {
	snaps, err := fetchSnapshots(ctx, m.db, `WHERE m.id = $1 ORDER BY a.order_index ASC`, id)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, model.ErrNotFound
	}
	return snaps[0], nil
}

func (m *meetings) List(ctx context.Context) ([]*model.MeetingSnapshot, error) {
	return fetchSnapshots(ctx, m.db, `ORDER BY m.created_at DESC, a.order_index ASC`)
}

func insertAgenda(ctx context.Context, tx *sql.Tx, meetingID string, agenda []model.AgendaItem) error {
	for i, item := range agenda {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO agenda_items (meeting_id, order_index, time, title, owner, note)
            VALUES ($1,$2,$3,$4,$5,$6)
        `, meetingID, i, item.Time, item.Title, item.Owner, item.Note); err != nil {
			return err
		}
	}
	return nil
}

// --- Brainstorms ---

type brainstorms struct{ db *sql.DB }

func (b *brainstorms) CreateSession(ctx context.Context, meetingID, topic string, duration time.Duration) (*model.BrainstormSession, error) {
	tx, err := b.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var prevID string
	var prevExpires time.Time
	err = tx.QueryRowContext(ctx, `
        SELECT id, expires_at FROM brainstormings
        WHERE meeting_id = $1
        ORDER BY created_at DESC LIMIT 1
    `, meetingID).Scan(&prevID, &prevExpires)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if err == nil {
		if prevExpires.After(time.Now()) {
			return nil, fmt.Errorf("meeting %s already has an active brainstorm session: %w", meetingID, model.ErrConflict)
		}
		// Expired predecessor: purge it with its ideas before starting over.
		if _, err := tx.ExecContext(ctx, `DELETE FROM brainstorming_items WHERE session_id = $1`, prevID); err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM brainstormings WHERE meeting_id = $1`, meetingID); err != nil {
			return nil, err
		}
	}

	id := uuid.New().String()
	var createdAt, expiresAt time.Time
	if err := tx.QueryRowContext(ctx, `
        INSERT INTO brainstormings (id, meeting_id, topic, expires_at)
        VALUES ($1,$2,$3, NOW() + ($4 || ' seconds')::interval)
        RETURNING created_at, expires_at
    `, id, meetingID, topic, int(duration.Seconds())).Scan(&createdAt, &expiresAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &model.BrainstormSession{
		ID:        id,
		MeetingID: meetingID,
		Topic:     topic,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}, nil
}

func (b *brainstorms) LatestSession(ctx context.Context, meetingID string) (*model.BrainstormSession, error) {
	var s model.BrainstormSession
	s.MeetingID = meetingID
	err := b.db.QueryRowContext(ctx, `
        SELECT id, topic, ai_summary, created_at, expires_at
        FROM brainstormings WHERE meeting_id = $1
        ORDER BY created_at DESC LIMIT 1
    `, meetingID).Scan(&s.ID, &s.Topic, &s.AISummary, &s.CreatedAt, &s.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (b *brainstorms) AddIdea(ctx context.Context, idea *model.IdeaItem) (*model.IdeaItem, error) {
	out := *idea
	err := b.db.QueryRowContext(ctx, `
        INSERT INTO brainstorming_items (session_id, meeting_id, user_id, idea)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at
    `, idea.SessionID, idea.MeetingID, idea.UserID, idea.Idea).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *brainstorms) IdeasForSession(ctx context.Context, sessionID string) ([]*model.IdeaItem, error) {
	rows, err := b.db.QueryContext(ctx, `
        SELECT id, session_id, meeting_id, user_id, idea, created_at
        FROM brainstorming_items WHERE session_id = $1
        ORDER BY created_at ASC
    `, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.IdeaItem
	for rows.Next() {
		var it model.IdeaItem
		if err := rows.Scan(&it.ID, &it.SessionID, &it.MeetingID, &it.UserID, &it.Idea, &it.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &it)
	}
	return out, rows.Err()
}

// BeginAnalysis is the single-flight gate: one conditional update, and
// only the caller that flips NULL -> sentinel is admitted.
func (b *brainstorms) BeginAnalysis(ctx context.Context, sessionID string) (bool, error) {
	res, err := b.db.ExecContext(ctx, `
        UPDATE brainstormings SET ai_summary = $2
        WHERE id = $1 AND ai_summary IS NULL
    `, sessionID, model.AIProcessingSentinel)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (b *brainstorms) CompleteAnalysis(ctx context.Context, sessionID, summary string) error {
	res, err := b.db.ExecContext(ctx, `
        UPDATE brainstormings SET ai_summary = $2 WHERE id = $1
    `, sessionID, summary)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// --- Audits ---

type audits struct{ db *sql.DB }

func (a *audits) RecordBatch(ctx context.Context, tasks []model.SyncTask) error {
	if len(tasks) == 0 {
		return nil
	}
	tx, err := a.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, t := range tasks {
		// ON CONFLICT DO NOTHING keeps reprocessed batches idempotent.
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO sync_audit (meeting_id, operation, enqueued_at)
            VALUES ($1,$2,$3)
            ON CONFLICT (meeting_id, operation, enqueued_at) DO NOTHING
        `, t.MeetingID, string(t.Operation), t.Timestamp); err != nil {
			return err
		}
	}
	return tx.Commit()
}
