package app

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

type AvailabilityStore interface {
	ListWindows(ctx context.Context, recruiterID string) ([]AvailabilityWindow, error)
	ListActiveWindowsForDay(ctx context.Context, recruiterID string, dayOfWeek int) ([]AvailabilityWindow, error)
	CreateWindow(ctx context.Context, w *AvailabilityWindow) error
	// DeleteWindow returns ErrNotFound when no window with id belongs to recruiterID.
	DeleteWindow(ctx context.Context, recruiterID, id string) error
}

type BookingRepository interface {
	// ListRecruiterBookings returns blocking bookings of the recruiter intersecting [from, to).
	ListRecruiterBookings(ctx context.Context, recruiterID string, from, to time.Time) ([]Booking, error)
	// LockParticipants serializes concurrent commits touching either party until the
	// surrounding transaction ends.
	LockParticipants(ctx context.Context, recruiterID, candidateProfileID string) error
	RecruiterHasOverlap(ctx context.Context, recruiterID string, iv Interval) (bool, error)
	CandidateHasOverlap(ctx context.Context, candidateProfileID string, iv Interval) (bool, error)
	// InsertBooking may return a *ConflictError when the storage layer detects an overlap.
	InsertBooking(ctx context.Context, b *Booking) error
}

type InvitationStore interface {
	CreateInvitation(ctx context.Context, inv *Invitation) error
	GetInvitation(ctx context.Context, id string) (*Invitation, error)
	// MarkScheduled is conditional on the invitation still being pending and reports whether it won.
	MarkScheduled(ctx context.Context, id string, confirmedAt time.Time) (bool, error)
	// MarkExpired is conditional on the invitation still being pending and reports whether it won.
	MarkExpired(ctx context.Context, id string) (bool, error)
	ListPendingInvitations(ctx context.Context) ([]Invitation, error)
}

type ApplicationStore interface {
	FindApplication(ctx context.Context, profileID, jobPostID string) (*Application, error)
	UpdateApplicationStatus(ctx context.Context, id, status string) error
}

type CalendarTokenStore interface {
	SaveCalendarToken(ctx context.Context, recruiterID string, tok *oauth2.Token) error
	// GetCalendarToken returns ErrNotFound when the recruiter has not connected a calendar.
	GetCalendarToken(ctx context.Context, recruiterID string) (*oauth2.Token, error)
}

// Stores groups the repositories visible inside one unit of work.
type Stores interface {
	Availability() AvailabilityStore
	Bookings() BookingRepository
	Invitations() InvitationStore
	Applications() ApplicationStore
	CalendarTokens() CalendarTokenStore
}

// Store is the persistence boundary: non-transactional access plus transactional units of work.
type Store interface {
	Stores
	WithTx(ctx context.Context, fn func(Stores) error) error
}
