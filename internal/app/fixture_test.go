package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"interview-scheduler/internal/app"
	"interview-scheduler/internal/app/memstore"
)

const (
	recruiterID = "rec-1"
	candidateID = "profile-1"
	jobPostID   = "job-1"
)

// 2025-03-10 is a Monday.
var monday = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []app.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev app.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	store    *memstore.Store
	app      *app.App
	events   *recordingPublisher
	registry *prometheus.Registry
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	store := memstore.New()
	events := &recordingPublisher{}
	registry := prometheus.NewRegistry()
	a := app.New(store, app.FixedClock(now), app.Options{
		Location:      time.UTC,
		InvitationTTL: 14 * 24 * time.Hour,
		Events:        events,
		Metrics:       app.NewMetrics(registry),
	})
	return &fixture{store: store, app: a, events: events, registry: registry}
}

func (f *fixture) addWindow(t *testing.T, recruiter string, day time.Weekday, start, end string) {
	t.Helper()
	_, err := f.app.Availability.Create(context.Background(), recruiter, app.CreateWindowInput{
		DayOfWeek: int(day),
		StartTime: start,
		EndTime:   end,
	})
	require.NoError(t, err)
}

func (f *fixture) invite(t *testing.T, profileID string, typ app.InterviewType, menu ...app.DateTimeSlots) *app.Invitation {
	t.Helper()
	inv, err := f.app.Invitations.CreateInvitation(context.Background(), recruiterID, app.CreateInvitationInput{
		CandidateProfileID: profileID,
		JobPostID:          jobPostID,
		InterviewType:      typ,
		DateTimeSlots:      menu,
		MeetingLink:        "https://meet.example.com/abc",
	})
	require.NoError(t, err)
	return inv
}

func candidate(profileID string) app.Principal {
	return app.Principal{UserID: "user-" + profileID, Role: app.RoleCandidate, ProfileID: profileID}
}

func utcOffset(minutes int) *int { return &minutes }

func pick(date, hhmm string) app.ConfirmRequest {
	return app.ConfirmRequest{SelectedDate: date, SelectedTime: hhmm, TimezoneOffset: utcOffset(0)}
}

// confirmations reads interview_confirmations_total for one result label.
func (f *fixture) confirmations(result string) float64 {
	families, err := f.registry.Gather()
	if err != nil {
		return -1
	}
	for _, mf := range families {
		if mf.GetName() != "interview_confirmations_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "result" && lp.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
