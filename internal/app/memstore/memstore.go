// Package memstore is an in-process implementation of app.Store. Transactions are serialized
// and work on a copy of the state that replaces the original only on success.
package memstore

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"interview-scheduler/internal/app"
)

type state struct {
	windows      map[string]app.AvailabilityWindow
	bookings     map[string]app.Booking
	invitations  map[string]app.Invitation
	applications map[string]app.Application
	tokens       map[string]oauth2.Token
}

func (s *state) clone() *state {
	return &state{
		windows:      maps.Clone(s.windows),
		bookings:     maps.Clone(s.bookings),
		invitations:  maps.Clone(s.invitations),
		applications: maps.Clone(s.applications),
		tokens:       maps.Clone(s.tokens),
	}
}

type Store struct {
	mu sync.Mutex
	st *state
	*view
}

var _ app.Store = (*Store)(nil)

func New() *Store {
	s := &Store{st: &state{
		windows:      map[string]app.AvailabilityWindow{},
		bookings:     map[string]app.Booking{},
		invitations:  map[string]app.Invitation{},
		applications: map[string]app.Application{},
		tokens:       map[string]oauth2.Token{},
	}}
	s.view = &view{st: s.st, mu: &s.mu}
	return s
}

func (s *Store) WithTx(ctx context.Context, fn func(app.Stores) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := s.st.clone()
	if err := fn(&view{st: working}); err != nil {
		return err
	}
	*s.st = *working
	return nil
}

// AddApplication seeds an application owned by the surrounding marketplace.
func (s *Store) AddApplication(profileID, jobPostID string) app.Application {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := app.Application{ID: uuid.NewString(), ProfileID: profileID, JobPostID: jobPostID, Status: "applied"}
	s.st.applications[a.ID] = a
	return a
}

func (s *Store) Application(id string) (app.Application, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.st.applications[id]
	return a, ok
}

// AllBookings returns every stored booking ordered by start.
func (s *Store) AllBookings() []app.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]app.Booking, 0, len(s.st.bookings))
	for _, b := range s.st.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledDate.Before(out[j].ScheduledDate) })
	return out
}

// PutBooking stores b as is, bypassing conflict checks.
func (s *Store) PutBooking(b app.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.bookings[b.ID] = b
}

// view implements the repositories over one state. A nil mu means the caller already holds it.
type view struct {
	st *state
	mu *sync.Mutex
}

func (v *view) lock() func() {
	if v.mu == nil {
		return func() {}
	}
	v.mu.Lock()
	return v.mu.Unlock
}

func (v *view) Availability() app.AvailabilityStore    { return v }
func (v *view) Bookings() app.BookingRepository        { return v }
func (v *view) Invitations() app.InvitationStore       { return v }
func (v *view) Applications() app.ApplicationStore     { return v }
func (v *view) CalendarTokens() app.CalendarTokenStore { return v }

func (v *view) ListWindows(_ context.Context, recruiterID string) ([]app.AvailabilityWindow, error) {
	defer v.lock()()
	var out []app.AvailabilityWindow
	for _, w := range v.st.windows {
		if w.RecruiterID == recruiterID {
			out = append(out, w)
		}
	}
	sortWindows(out)
	return out, nil
}

func (v *view) ListActiveWindowsForDay(_ context.Context, recruiterID string, dayOfWeek int) ([]app.AvailabilityWindow, error) {
	defer v.lock()()
	var out []app.AvailabilityWindow
	for _, w := range v.st.windows {
		if w.RecruiterID == recruiterID && w.DayOfWeek == dayOfWeek && w.IsActive {
			out = append(out, w)
		}
	}
	sortWindows(out)
	return out, nil
}

func (v *view) CreateWindow(_ context.Context, w *app.AvailabilityWindow) error {
	defer v.lock()()
	v.st.windows[w.ID] = *w
	return nil
}

func (v *view) DeleteWindow(_ context.Context, recruiterID, id string) error {
	defer v.lock()()
	w, ok := v.st.windows[id]
	if !ok || w.RecruiterID != recruiterID {
		return app.ErrNotFound
	}
	delete(v.st.windows, id)
	return nil
}

func (v *view) ListRecruiterBookings(_ context.Context, recruiterID string, from, to time.Time) ([]app.Booking, error) {
	defer v.lock()()
	window := app.Interval{Start: from, End: to}
	var out []app.Booking
	for _, b := range v.st.bookings {
		if b.RecruiterID == recruiterID && b.Blocking() && b.Interval().Overlaps(window) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledDate.Before(out[j].ScheduledDate) })
	return out, nil
}

// LockParticipants is a no-op: WithTx already serializes every transaction.
func (v *view) LockParticipants(context.Context, string, string) error {
	return nil
}

func (v *view) RecruiterHasOverlap(_ context.Context, recruiterID string, iv app.Interval) (bool, error) {
	defer v.lock()()
	return v.overlaps(func(b app.Booking) bool { return b.RecruiterID == recruiterID }, iv), nil
}

func (v *view) CandidateHasOverlap(_ context.Context, candidateProfileID string, iv app.Interval) (bool, error) {
	defer v.lock()()
	return v.overlaps(func(b app.Booking) bool { return b.CandidateProfileID == candidateProfileID }, iv), nil
}

func (v *view) overlaps(match func(app.Booking) bool, iv app.Interval) bool {
	for _, b := range v.st.bookings {
		if match(b) && b.Blocking() && b.Interval().Overlaps(iv) {
			return true
		}
	}
	return false
}

// InsertBooking mirrors the exclusion constraints of the Postgres schema.
func (v *view) InsertBooking(_ context.Context, b *app.Booking) error {
	defer v.lock()()
	if b.Blocking() {
		iv := b.Interval()
		if v.overlaps(func(o app.Booking) bool { return o.RecruiterID == b.RecruiterID }, iv) {
			return &app.ConflictError{Party: app.PartyRecruiter}
		}
		if v.overlaps(func(o app.Booking) bool { return o.CandidateProfileID == b.CandidateProfileID }, iv) {
			return &app.ConflictError{Party: app.PartyCandidate}
		}
	}
	v.st.bookings[b.ID] = *b
	return nil
}

func (v *view) CreateInvitation(_ context.Context, inv *app.Invitation) error {
	defer v.lock()()
	v.st.invitations[inv.ID] = *inv
	return nil
}

func (v *view) GetInvitation(_ context.Context, id string) (*app.Invitation, error) {
	defer v.lock()()
	inv, ok := v.st.invitations[id]
	if !ok {
		return nil, app.ErrNotFound
	}
	return &inv, nil
}

func (v *view) MarkScheduled(_ context.Context, id string, confirmedAt time.Time) (bool, error) {
	defer v.lock()()
	inv, ok := v.st.invitations[id]
	if !ok || inv.Status != app.InvitationStatusPending {
		return false, nil
	}
	at := confirmedAt.UTC()
	inv.Status = app.InvitationStatusScheduled
	inv.ConfirmedDate = &at
	v.st.invitations[id] = inv
	return true, nil
}

func (v *view) MarkExpired(_ context.Context, id string) (bool, error) {
	defer v.lock()()
	inv, ok := v.st.invitations[id]
	if !ok || inv.Status != app.InvitationStatusPending {
		return false, nil
	}
	inv.Status = app.InvitationStatusExpired
	v.st.invitations[id] = inv
	return true, nil
}

func (v *view) ListPendingInvitations(context.Context) ([]app.Invitation, error) {
	defer v.lock()()
	var out []app.Invitation
	for _, inv := range v.st.invitations {
		if inv.Status == app.InvitationStatusPending {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (v *view) FindApplication(_ context.Context, profileID, jobPostID string) (*app.Application, error) {
	defer v.lock()()
	for _, a := range v.st.applications {
		if a.ProfileID == profileID && a.JobPostID == jobPostID {
			return &a, nil
		}
	}
	return nil, app.ErrNotFound
}

func (v *view) UpdateApplicationStatus(_ context.Context, id, status string) error {
	defer v.lock()()
	a, ok := v.st.applications[id]
	if !ok {
		return app.ErrNotFound
	}
	a.Status = status
	v.st.applications[id] = a
	return nil
}

func (v *view) SaveCalendarToken(_ context.Context, recruiterID string, tok *oauth2.Token) error {
	defer v.lock()()
	v.st.tokens[recruiterID] = *tok
	return nil
}

func (v *view) GetCalendarToken(_ context.Context, recruiterID string) (*oauth2.Token, error) {
	defer v.lock()()
	tok, ok := v.st.tokens[recruiterID]
	if !ok {
		return nil, app.ErrNotFound
	}
	return &tok, nil
}

func sortWindows(ws []app.AvailabilityWindow) {
	sort.Slice(ws, func(i, j int) bool {
		if ws[i].DayOfWeek != ws[j].DayOfWeek {
			return ws[i].DayOfWeek < ws[j].DayOfWeek
		}
		return ws[i].StartTime < ws[j].StartTime
	})
}
