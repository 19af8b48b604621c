package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/oauth2"

	"interview-scheduler/internal/db"
)

const pgExclusionViolation = "23P01"

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgPool is the part of *pgxpool.Pool the store uses.
type pgPool interface {
	dbtx
	db.Beginner
}

type PgStore struct {
	*pgQueries
	pool pgPool
}

func NewPgStore(database *db.DB) *PgStore {
	return newPgStore(database.Pool())
}

func newPgStore(pool pgPool) *PgStore {
	return &PgStore{pgQueries: &pgQueries{q: pool}, pool: pool}
}

func (s *PgStore) WithTx(ctx context.Context, fn func(Stores) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgQueries{q: tx})
	})
}

type pgQueries struct {
	q dbtx
}

func (p *pgQueries) Availability() AvailabilityStore   { return p }
func (p *pgQueries) Bookings() BookingRepository       { return p }
func (p *pgQueries) Invitations() InvitationStore      { return p }
func (p *pgQueries) Applications() ApplicationStore    { return p }
func (p *pgQueries) CalendarTokens() CalendarTokenStore { return p }

const windowColumns = `id, recruiter_id, day_of_week, start_time, end_time, is_active, created_at, updated_at`

func (p *pgQueries) ListWindows(ctx context.Context, recruiterID string) ([]AvailabilityWindow, error) {
	q := `SELECT ` + windowColumns + ` FROM availability_windows
	      WHERE recruiter_id=$1 ORDER BY day_of_week, start_time`
	var out []AvailabilityWindow
	if err := pgxscan.Select(ctx, p.q, &out, q, recruiterID); err != nil {
		return nil, fmt.Errorf("listing availability windows: %w", err)
	}
	return out, nil
}

func (p *pgQueries) ListActiveWindowsForDay(ctx context.Context, recruiterID string, dayOfWeek int) ([]AvailabilityWindow, error) {
	q := `SELECT ` + windowColumns + ` FROM availability_windows
	      WHERE recruiter_id=$1 AND day_of_week=$2 AND is_active
	      ORDER BY start_time`
	var out []AvailabilityWindow
	if err := pgxscan.Select(ctx, p.q, &out, q, recruiterID, dayOfWeek); err != nil {
		return nil, fmt.Errorf("listing windows for day: %w", err)
	}
	return out, nil
}

func (p *pgQueries) CreateWindow(ctx context.Context, w *AvailabilityWindow) error {
	q := `INSERT INTO availability_windows
	      (id, recruiter_id, day_of_week, start_time, end_time, is_active, created_at, updated_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := p.q.Exec(ctx, q, w.ID, w.RecruiterID, w.DayOfWeek, w.StartTime, w.EndTime,
		w.IsActive, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting availability window: %w", err)
	}
	return nil
}

func (p *pgQueries) DeleteWindow(ctx context.Context, recruiterID, id string) error {
	res, err := p.q.Exec(ctx, `DELETE FROM availability_windows WHERE id=$1 AND recruiter_id=$2`, id, recruiterID)
	if err != nil {
		return fmt.Errorf("deleting availability window: %w", err)
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const bookingColumns = `id, application_id, recruiter_id, candidate_profile_id, interview_type,
	scheduled_date, duration, status, meeting_link, notes, created_at, deleted_at`

func (p *pgQueries) ListRecruiterBookings(ctx context.Context, recruiterID string, from, to time.Time) ([]Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM interview_bookings
	      WHERE recruiter_id=$1 AND status='scheduled' AND deleted_at IS NULL
	        AND scheduled_date < $3 AND ends_at > $2
	      ORDER BY scheduled_date`
	var out []Booking
	if err := pgxscan.Select(ctx, p.q, &out, q, recruiterID, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("listing recruiter bookings: %w", err)
	}
	return out, nil
}

// LockParticipants takes transaction-scoped advisory locks in sorted key order so two
// transactions locking the same pair can never deadlock.
func (p *pgQueries) LockParticipants(ctx context.Context, recruiterID, candidateProfileID string) error {
	keys := []string{"recruiter:" + recruiterID, "candidate:" + candidateProfileID}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := p.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, k); err != nil {
			return fmt.Errorf("locking %s: %w", k, err)
		}
	}
	return nil
}

func (p *pgQueries) RecruiterHasOverlap(ctx context.Context, recruiterID string, iv Interval) (bool, error) {
	return p.hasOverlap(ctx, "recruiter_id", recruiterID, iv)
}

func (p *pgQueries) CandidateHasOverlap(ctx context.Context, candidateProfileID string, iv Interval) (bool, error) {
	return p.hasOverlap(ctx, "candidate_profile_id", candidateProfileID, iv)
}

func (p *pgQueries) hasOverlap(ctx context.Context, column, id string, iv Interval) (bool, error) {
	q := `SELECT EXISTS (
	        SELECT 1 FROM interview_bookings
	        WHERE ` + column + `=$1 AND status='scheduled' AND deleted_at IS NULL
	          AND scheduled_date < $3 AND ends_at > $2)`
	var exists bool
	if err := p.q.QueryRow(ctx, q, id, iv.Start.UTC(), iv.End.UTC()).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking %s overlap: %w", column, err)
	}
	return exists, nil
}

func (p *pgQueries) InsertBooking(ctx context.Context, b *Booking) error {
	iv := b.Interval()
	q := `INSERT INTO interview_bookings
	      (id, application_id, recruiter_id, candidate_profile_id, interview_type,
	       scheduled_date, duration, ends_at, status, meeting_link, notes, created_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := p.q.Exec(ctx, q, b.ID, b.ApplicationID, b.RecruiterID, b.CandidateProfileID,
		string(b.InterviewType), iv.Start.UTC(), b.Duration, iv.End.UTC(), string(b.Status),
		b.MeetingLink, b.Notes, b.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation {
			if pgErr.ConstraintName == "interview_bookings_candidate_no_overlap" {
				return &ConflictError{Party: PartyCandidate}
			}
			return &ConflictError{Party: PartyRecruiter}
		}
		return fmt.Errorf("inserting booking: %w", err)
	}
	return nil
}

const invitationColumns = `id, recruiter_id, profile_id, job_post_id, interview_type, duration,
	date_time_slots, meeting_link, notes, status, confirmed_date, created_at, expires_at`

func (p *pgQueries) CreateInvitation(ctx context.Context, inv *Invitation) error {
	slots, err := json.Marshal(inv.DateTimeSlots)
	if err != nil {
		return fmt.Errorf("encoding date_time_slots: %w", err)
	}
	q := `INSERT INTO interview_invitations
	      (id, recruiter_id, profile_id, job_post_id, interview_type, duration,
	       date_time_slots, meeting_link, notes, status, created_at, expires_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err = p.q.Exec(ctx, q, inv.ID, inv.RecruiterID, inv.CandidateProfileID, inv.JobPostID,
		string(inv.InterviewType), inv.Duration, slots, inv.MeetingLink, inv.Notes,
		string(inv.Status), inv.CreatedAt, inv.ExpiresAt)
	if err != nil {
		return fmt.Errorf("inserting invitation: %w", err)
	}
	return nil
}

func (p *pgQueries) GetInvitation(ctx context.Context, id string) (*Invitation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var inv Invitation
	q := `SELECT ` + invitationColumns + ` FROM interview_invitations WHERE id=$1`
	if err := pgxscan.Get(ctx, p.q, &inv, q, id); err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading invitation: %w", err)
	}
	return &inv, nil
}

func (p *pgQueries) MarkScheduled(ctx context.Context, id string, confirmedAt time.Time) (bool, error) {
	res, err := p.q.Exec(ctx,
		`UPDATE interview_invitations SET status='scheduled', confirmed_date=$2
		 WHERE id=$1 AND status='pending'`, id, confirmedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("marking invitation scheduled: %w", err)
	}
	return res.RowsAffected() == 1, nil
}

func (p *pgQueries) MarkExpired(ctx context.Context, id string) (bool, error) {
	res, err := p.q.Exec(ctx,
		`UPDATE interview_invitations SET status='expired' WHERE id=$1 AND status='pending'`, id)
	if err != nil {
		return false, fmt.Errorf("marking invitation expired: %w", err)
	}
	return res.RowsAffected() == 1, nil
}

func (p *pgQueries) ListPendingInvitations(ctx context.Context) ([]Invitation, error) {
	q := `SELECT ` + invitationColumns + ` FROM interview_invitations
	      WHERE status='pending' ORDER BY created_at`
	var out []Invitation
	if err := pgxscan.Select(ctx, p.q, &out, q); err != nil {
		return nil, fmt.Errorf("listing pending invitations: %w", err)
	}
	return out, nil
}

func (p *pgQueries) FindApplication(ctx context.Context, profileID, jobPostID string) (*Application, error) {
	var a Application
	q := `SELECT id, profile_id, job_post_id, status FROM job_applications
	      WHERE profile_id=$1 AND job_post_id=$2`
	if err := pgxscan.Get(ctx, p.q, &a, q, profileID, jobPostID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading application: %w", err)
	}
	return &a, nil
}

func (p *pgQueries) UpdateApplicationStatus(ctx context.Context, id, status string) error {
	res, err := p.q.Exec(ctx,
		`UPDATE job_applications SET status=$2, updated_at=now() WHERE id=$1`, id, status)
	if err != nil {
		return fmt.Errorf("updating application status: %w", err)
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *pgQueries) SaveCalendarToken(ctx context.Context, recruiterID string, tok *oauth2.Token) error {
	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encoding calendar token: %w", err)
	}
	q := `INSERT INTO calendar_tokens (recruiter_id, token, updated_at) VALUES ($1, $2, now())
	      ON CONFLICT (recruiter_id) DO UPDATE SET token=EXCLUDED.token, updated_at=now()`
	if _, err := p.q.Exec(ctx, q, recruiterID, raw); err != nil {
		return fmt.Errorf("saving calendar token: %w", err)
	}
	return nil
}

func (p *pgQueries) GetCalendarToken(ctx context.Context, recruiterID string) (*oauth2.Token, error) {
	var raw []byte
	err := p.q.QueryRow(ctx, `SELECT token FROM calendar_tokens WHERE recruiter_id=$1`, recruiterID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading calendar token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("decoding calendar token: %w", err)
	}
	return &tok, nil
}
