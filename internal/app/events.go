package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	EventInterviewScheduled = "interview.scheduled"
	EventInvitationExpired  = "invitation.expired"
)

type Event struct {
	Type               string
	InvitationID       string
	BookingID          string
	RecruiterID        string
	CandidateProfileID string
	ScheduledDate      *time.Time
	OccurredAt         time.Time
}

// EventPublisher hands committed state changes to out-of-process collaborators.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type redisPublisher struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisPublisher(client *redis.Client, stream string, logger *slog.Logger) EventPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisPublisher{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisPublisher) Publish(ctx context.Context, ev Event) error {
	fields := map[string]any{
		"event_type":           ev.Type,
		"invitation_id":        ev.InvitationID,
		"recruiter_id":         ev.RecruiterID,
		"candidate_profile_id": ev.CandidateProfileID,
		"occurred_at":          ev.OccurredAt.UTC().Format(time.RFC3339),
	}
	if ev.BookingID != "" {
		fields["booking_id"] = ev.BookingID
	}
	if ev.ScheduledDate != nil {
		fields["scheduled_date"] = ev.ScheduledDate.UTC().Format(time.RFC3339)
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}

	p.logger.InfoContext(ctx, "published event", "event_type", ev.Type, "invitation_id", ev.InvitationID)
	return nil
}

func (p *redisPublisher) Close() error {
	return p.client.Close()
}

type nopPublisher struct{}

// NopPublisher drops every event. Used when no Redis stream is configured.
func NopPublisher() EventPublisher { return nopPublisher{} }

func (nopPublisher) Publish(context.Context, Event) error { return nil }
func (nopPublisher) Close() error                          { return nil }

// publishBestEffort runs after commit; a failure is logged and never undoes the state change.
func publishBestEffort(ctx context.Context, p EventPublisher, ev Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		slog.WarnContext(ctx, "event publish failed", "event_type", ev.Type, "invitation_id", ev.InvitationID, "error", err)
	}
}
