package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"interview-scheduler/internal/logger"
)

type CreateInvitationInput struct {
	CandidateProfileID string          `json:"profileId"`
	JobPostID          string          `json:"jobPostId"`
	InterviewType      InterviewType   `json:"interviewType"`
	DateTimeSlots      []DateTimeSlots `json:"dateTimeSlots"`
	MeetingLink        string          `json:"meetingLink"`
	Notes              string          `json:"notes"`
}

// normalizedMenu checks the menu shape and returns it with each day's times sorted and
// de-duplicated. Days are not checked against the recruiter's availability.
func (in CreateInvitationInput) normalizedMenu() ([]DateTimeSlots, error) {
	if len(in.DateTimeSlots) == 0 {
		return nil, invalid("dateTimeSlots", "at least one date is required")
	}
	menu := make([]DateTimeSlots, 0, len(in.DateTimeSlots))
	seenDates := make(map[string]int)
	for _, day := range in.DateTimeSlots {
		if !datePattern.MatchString(day.Date) {
			return nil, invalid("dateTimeSlots", "date %q must be YYYY-MM-DD", day.Date)
		}
		if _, err := time.Parse(dateLayout, day.Date); err != nil {
			return nil, invalid("dateTimeSlots", "date %q is not a calendar date", day.Date)
		}
		if len(day.Times) == 0 {
			return nil, invalid("dateTimeSlots", "date %s has no times", day.Date)
		}
		for _, t := range day.Times {
			if !timePattern.MatchString(t) {
				return nil, invalid("dateTimeSlots", "time %q must be HH:MM", t)
			}
			if _, err := time.Parse(timeLayout, t); err != nil {
				return nil, invalid("dateTimeSlots", "time %q is not a clock time", t)
			}
		}

		idx, ok := seenDates[day.Date]
		if !ok {
			idx = len(menu)
			seenDates[day.Date] = idx
			menu = append(menu, DateTimeSlots{Date: day.Date})
		}
		menu[idx].Times = append(menu[idx].Times, day.Times...)
	}

	for i := range menu {
		menu[i].Times = sortedUnique(menu[i].Times)
	}
	return menu, nil
}

func (in CreateInvitationInput) validate() error {
	if in.CandidateProfileID == "" {
		return invalid("profileId", "is required")
	}
	if in.JobPostID == "" {
		return invalid("jobPostId", "is required")
	}
	if in.InterviewType == "" {
		return invalid("interviewType", "is required")
	}
	return nil
}

// InvitationLifecycle owns the pending -> scheduled | expired state machine.
type InvitationLifecycle struct {
	store   Store
	guard   *ConflictGuard
	clock   Clock
	loc     *time.Location
	ttl     time.Duration
	events  EventPublisher
	metrics *Metrics
}

type LifecycleOptions struct {
	Location *time.Location
	TTL      time.Duration
	Events   EventPublisher
	Metrics  *Metrics
}

func NewInvitationLifecycle(store Store, clock Clock, opts LifecycleOptions) *InvitationLifecycle {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Events == nil {
		opts.Events = NopPublisher()
	}
	return &InvitationLifecycle{
		store:   store,
		guard:   NewConflictGuard(store),
		clock:   clock,
		loc:     opts.Location,
		ttl:     opts.TTL,
		events:  opts.Events,
		metrics: opts.Metrics,
	}
}

func (l *InvitationLifecycle) CreateInvitation(ctx context.Context, recruiterID string, in CreateInvitationInput) (*Invitation, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	menu, err := in.normalizedMenu()
	if err != nil {
		return nil, err
	}
	if !in.InterviewType.Known() {
		slog.WarnContext(ctx, "unknown interview type, using default duration",
			"interview_type", in.InterviewType, "known_types", InterviewTypes())
	}

	now := l.clock.Now().UTC().Truncate(time.Microsecond)
	inv := &Invitation{
		ID:                 uuid.NewString(),
		RecruiterID:        recruiterID,
		CandidateProfileID: in.CandidateProfileID,
		JobPostID:          in.JobPostID,
		InterviewType:      in.InterviewType,
		Duration:           in.InterviewType.DurationMinutes(),
		DateTimeSlots:      menu,
		MeetingLink:        in.MeetingLink,
		Notes:              in.Notes,
		Status:             InvitationStatusPending,
		CreatedAt:          now,
	}
	if l.ttl > 0 {
		inv.ExpiresAt = now.Add(l.ttl)
	}

	if err := l.store.Invitations().CreateInvitation(ctx, inv); err != nil {
		return nil, err
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{InvitationID: logger.Ptr(inv.ID)})
	slog.InfoContext(ctx, "invitation created", "dates", len(menu), "interview_type", inv.InterviewType)
	return inv, nil
}

// GetInvitation returns the invitation when p is its recruiter or invited candidate. Anyone
// else gets a NotFoundError so ids do not leak.
func (l *InvitationLifecycle) GetInvitation(ctx context.Context, p Principal, id string) (*Invitation, error) {
	inv, err := l.store.Invitations().GetInvitation(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, &NotFoundError{Resource: "invitation"}
	}
	if err != nil {
		return nil, err
	}
	if !p.CanView(inv) {
		return nil, &NotFoundError{Resource: "invitation"}
	}
	return inv, nil
}

// Confirm turns a pending invitation into a scheduled booking.
func (l *InvitationLifecycle) Confirm(ctx context.Context, p Principal, invitationID string, req ConfirmRequest) (*Booking, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		InvitationID: logger.Ptr(invitationID),
		Component:    "conflict_guard",
	})

	booking, err := l.confirm(ctx, p, invitationID, req)
	l.metrics.observeConfirmation(err)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "interview scheduled",
		"booking_id", booking.ID,
		"scheduled_date", booking.ScheduledDate,
		"duration", booking.Duration)

	start := booking.ScheduledDate
	publishBestEffort(ctx, l.events, Event{
		Type:               EventInterviewScheduled,
		InvitationID:       invitationID,
		BookingID:          booking.ID,
		RecruiterID:        booking.RecruiterID,
		CandidateProfileID: booking.CandidateProfileID,
		ScheduledDate:      &start,
		OccurredAt:         l.clock.Now(),
	})
	return booking, nil
}

func (l *InvitationLifecycle) confirm(ctx context.Context, p Principal, invitationID string, req ConfirmRequest) (*Booking, error) {
	start, err := req.ResolveInstant(l.clock.Now())
	if err != nil {
		return nil, err
	}
	return l.guard.Commit(ctx, commitRequest{
		InvitationID:       invitationID,
		CandidateProfileID: p.ProfileID,
		SelectedDate:       req.SelectedDate,
		SelectedTime:       req.SelectedTime,
		Start:              start,
		Now:                l.clock.Now(),
	})
}

// ExpireInvitation lets the owning recruiter withdraw a pending invitation.
func (l *InvitationLifecycle) ExpireInvitation(ctx context.Context, recruiterID, id string) (*Invitation, error) {
	var expired *Invitation
	err := l.store.WithTx(ctx, func(tx Stores) error {
		inv, err := tx.Invitations().GetInvitation(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return &NotFoundError{Resource: "invitation"}
		}
		if err != nil {
			return err
		}
		if inv.RecruiterID != recruiterID {
			return &NotFoundError{Resource: "invitation"}
		}
		if inv.Status != InvitationStatusPending {
			return &ConflictError{Party: PartyInvitation}
		}
		ok, err := tx.Invitations().MarkExpired(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return &ConflictError{Party: PartyInvitation}
		}
		inv.Status = InvitationStatusExpired
		expired = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.metrics.observeExpiration("recruiter", 1)
	l.publishExpired(ctx, expired)
	return expired, nil
}

// ExpireStale expires every pending invitation past its TTL or whose menu lies entirely
// before today. It returns how many invitations it expired.
func (l *InvitationLifecycle) ExpireStale(ctx context.Context) (int, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "expiry_sweep"})

	pending, err := l.store.Invitations().ListPendingInvitations(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing pending invitations: %w", err)
	}

	now := l.clock.Now()
	y, m, d := now.In(l.loc).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	expired := 0
	for i := range pending {
		inv := &pending[i]
		if !l.isStale(inv, now, today) {
			continue
		}
		ok, err := l.store.Invitations().MarkExpired(ctx, inv.ID)
		if err != nil {
			return expired, fmt.Errorf("expiring invitation %s: %w", inv.ID, err)
		}
		if !ok {
			// confirmed or expired concurrently
			continue
		}
		inv.Status = InvitationStatusExpired
		expired++
		l.publishExpired(ctx, inv)
	}

	l.metrics.observeExpiration("sweep", expired)
	if expired > 0 {
		slog.InfoContext(ctx, "expired stale invitations", "count", expired)
	}
	return expired, nil
}

func (l *InvitationLifecycle) isStale(inv *Invitation, now, today time.Time) bool {
	if inv.LapsedAt(now) {
		return true
	}
	last, ok := inv.LastOfferedDate()
	return ok && last.Before(today)
}

func (l *InvitationLifecycle) publishExpired(ctx context.Context, inv *Invitation) {
	publishBestEffort(ctx, l.events, Event{
		Type:               EventInvitationExpired,
		InvitationID:       inv.ID,
		RecruiterID:        inv.RecruiterID,
		CandidateProfileID: inv.CandidateProfileID,
		OccurredAt:         l.clock.Now(),
	})
}

func sortedUnique(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	n := 0
	for i, s := range out {
		if i == 0 || s != out[n-1] {
			out[n] = s
			n++
		}
	}
	return out[:n]
}
