package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	// MinLeadTime is how far ahead of now a confirmed interview must start.
	MinLeadTime = time.Hour

	minOffsetMinutes = -840
	maxOffsetMinutes = 720
)

// ConfirmRequest is what a candidate sends to pick one slot from an invitation menu.
// Menu labels are wall-clock times in the candidate's zone. TimezoneOffset is that zone's
// offset from UTC in minutes, so UTC-5 is -300. ScheduledDateTime, when present, wins over
// the offset but must still name the selected label at an offset within the same bounds.
type ConfirmRequest struct {
	SelectedDate      string  `json:"selectedDate"`
	SelectedTime      string  `json:"selectedTime"`
	TimezoneOffset    *int    `json:"timezoneOffset,omitempty"`
	ScheduledDateTime *string `json:"scheduledDateTime,omitempty"`
}

// ResolveInstant reconstructs the absolute start of the selected slot and enforces the
// minimum lead time relative to now.
func (r ConfirmRequest) ResolveInstant(now time.Time) (time.Time, error) {
	if !datePattern.MatchString(r.SelectedDate) {
		return time.Time{}, invalid("selectedDate", "must be YYYY-MM-DD")
	}
	if !timePattern.MatchString(r.SelectedTime) {
		return time.Time{}, invalid("selectedTime", "must be HH:MM")
	}

	// wall is the selected slot label read as if it were UTC
	wall, err := time.Parse(dateLayout+" "+timeLayout, r.SelectedDate+" "+r.SelectedTime)
	if err != nil {
		return time.Time{}, invalid("selectedDate", "%s %s is not a valid date and time", r.SelectedDate, r.SelectedTime)
	}

	var start time.Time
	switch {
	case r.ScheduledDateTime != nil && *r.ScheduledDateTime != "":
		t, err := time.Parse(time.RFC3339, *r.ScheduledDateTime)
		if err != nil {
			return time.Time{}, invalid("scheduledDateTime", "must be an RFC 3339 timestamp")
		}
		// the instant must be the selected label read at an offset within bounds
		if !validOffset(wall.Sub(t)) {
			return time.Time{}, invalid("scheduledDateTime", "does not match %s %s", r.SelectedDate, r.SelectedTime)
		}
		start = t.UTC()
	case r.TimezoneOffset != nil:
		offset := time.Duration(*r.TimezoneOffset) * time.Minute
		if !validOffset(offset) {
			return time.Time{}, invalid("timezoneOffset", "must be between %d and %d minutes", minOffsetMinutes, maxOffsetMinutes)
		}
		start = wall.Add(-offset)
	default:
		return time.Time{}, invalid("timezoneOffset", "timezoneOffset or scheduledDateTime is required")
	}

	if start.Sub(now) < MinLeadTime {
		return time.Time{}, invalid("selectedTime", "interview must start at least %d minutes from now", int(MinLeadTime.Minutes()))
	}
	return start, nil
}

func validOffset(d time.Duration) bool {
	return d%time.Minute == 0 &&
		d >= minOffsetMinutes*time.Minute &&
		d <= maxOffsetMinutes*time.Minute
}

// ConflictGuard is the only writer of bookings. Everything in Commit happens in one
// transaction so no partial booking is ever observable.
type ConflictGuard struct {
	store Store
}

func NewConflictGuard(store Store) *ConflictGuard {
	return &ConflictGuard{store: store}
}

type commitRequest struct {
	InvitationID string
	// CandidateProfileID restricts the commit to the invited candidate when set.
	CandidateProfileID string
	SelectedDate       string
	SelectedTime       string
	Start              time.Time
	Now                time.Time
}

func (g *ConflictGuard) Commit(ctx context.Context, req commitRequest) (*Booking, error) {
	var booking *Booking
	err := g.store.WithTx(ctx, func(tx Stores) error {
		inv, err := tx.Invitations().GetInvitation(ctx, req.InvitationID)
		if errors.Is(err, ErrNotFound) {
			return &NotFoundError{Resource: "invitation"}
		}
		if err != nil {
			return err
		}
		if req.CandidateProfileID != "" && inv.CandidateProfileID != req.CandidateProfileID {
			return &NotFoundError{Resource: "invitation"}
		}
		if inv.Status != InvitationStatusPending || inv.LapsedAt(req.Now) {
			return &ConflictError{Party: PartyInvitation}
		}
		if !inv.Offers(req.SelectedDate, req.SelectedTime) {
			return invalid("selectedTime", "%s %s is not offered by this invitation", req.SelectedDate, req.SelectedTime)
		}

		application, err := tx.Applications().FindApplication(ctx, inv.CandidateProfileID, inv.JobPostID)
		if errors.Is(err, ErrNotFound) {
			return &NotFoundError{Resource: "application"}
		}
		if err != nil {
			return err
		}

		duration := inv.Duration
		if duration <= 0 {
			duration = inv.InterviewType.DurationMinutes()
		}
		slot := Interval{Start: req.Start, End: req.Start.Add(time.Duration(duration) * time.Minute)}

		bookings := tx.Bookings()
		if err := bookings.LockParticipants(ctx, inv.RecruiterID, inv.CandidateProfileID); err != nil {
			return err
		}
		busy, err := bookings.RecruiterHasOverlap(ctx, inv.RecruiterID, slot)
		if err != nil {
			return err
		}
		if busy {
			return &ConflictError{Party: PartyRecruiter}
		}
		busy, err = bookings.CandidateHasOverlap(ctx, inv.CandidateProfileID, slot)
		if err != nil {
			return err
		}
		if busy {
			return &ConflictError{Party: PartyCandidate}
		}

		b := &Booking{
			ID:                 uuid.NewString(),
			ApplicationID:      application.ID,
			RecruiterID:        inv.RecruiterID,
			CandidateProfileID: inv.CandidateProfileID,
			InterviewType:      inv.InterviewType,
			ScheduledDate:      req.Start.UTC(),
			Duration:           duration,
			Status:             BookingStatusScheduled,
			MeetingLink:        inv.MeetingLink,
			Notes:              inv.Notes,
			CreatedAt:          req.Now.UTC().Truncate(time.Microsecond),
		}
		if err := bookings.InsertBooking(ctx, b); err != nil {
			return err
		}

		won, err := tx.Invitations().MarkScheduled(ctx, inv.ID, b.ScheduledDate)
		if err != nil {
			return err
		}
		if !won {
			return &ConflictError{Party: PartyInvitation}
		}

		if err := tx.Applications().UpdateApplicationStatus(ctx, application.ID, ApplicationStatusInterviewScheduled); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}
