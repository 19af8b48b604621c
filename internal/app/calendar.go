package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const primaryCalendar = "primary"

// GoogleCalendar connects recruiters' Google calendars and reads their busy time.
type GoogleCalendar struct {
	config      *oauth2.Config
	tokens      CalendarTokenStore
	stateSecret []byte
	// extra options for the Calendar API client, e.g. a test endpoint
	serviceOpts []option.ClientOption
}

type GoogleCalendarConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// StateSecret signs the OAuth state parameter.
	StateSecret []byte
}

func NewGoogleCalendar(cfg GoogleCalendarConfig, tokens CalendarTokenStore, opts ...option.ClientOption) *GoogleCalendar {
	return &GoogleCalendar{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{calendar.CalendarReadonlyScope},
			Endpoint:     google.Endpoint,
		},
		tokens:      tokens,
		stateSecret: cfg.StateSecret,
		serviceOpts: opts,
	}
}

// AuthURL starts the consent flow for recruiterID.
func (g *GoogleCalendar) AuthURL(recruiterID string) (string, error) {
	state, err := signState(g.stateSecret, recruiterID)
	if err != nil {
		return "", fmt.Errorf("signing oauth state: %w", err)
	}
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// Exchange completes the consent flow and stores the token for the recruiter named in state.
func (g *GoogleCalendar) Exchange(ctx context.Context, code, state string) (string, error) {
	recruiterID, err := parseState(g.stateSecret, state)
	if err != nil {
		return "", err
	}
	tok, err := g.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchanging authorization code: %w", err)
	}
	if err := g.tokens.SaveCalendarToken(ctx, recruiterID, tok); err != nil {
		return "", err
	}
	return recruiterID, nil
}

// BusyIntervals implements BusySource. A recruiter without a connected calendar has no
// external busy time.
func (g *GoogleCalendar) BusyIntervals(ctx context.Context, recruiterID string, from, to time.Time) ([]Interval, error) {
	tok, err := g.tokens.GetCalendarToken(ctx, recruiterID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	src := g.config.TokenSource(ctx, tok)
	opts := append([]option.ClientOption{option.WithTokenSource(src)}, g.serviceOpts...)
	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}

	resp, err := srv.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: from.UTC().Format(time.RFC3339),
		TimeMax: to.UTC().Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: primaryCalendar}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("querying free/busy: %w", err)
	}

	// keep a refreshed access token so the next lookup does not refresh again
	if fresh, err := src.Token(); err == nil && fresh.AccessToken != tok.AccessToken {
		if err := g.tokens.SaveCalendarToken(ctx, recruiterID, fresh); err != nil {
			return nil, err
		}
	}

	cal, ok := resp.Calendars[primaryCalendar]
	if !ok {
		return nil, nil
	}
	if len(cal.Errors) > 0 {
		return nil, fmt.Errorf("free/busy for %s: %s", primaryCalendar, cal.Errors[0].Reason)
	}

	busy := make([]Interval, 0, len(cal.Busy))
	for _, period := range cal.Busy {
		start, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, period.End)
		if err != nil || !end.After(start) {
			continue
		}
		busy = append(busy, Interval{Start: start, End: end})
	}
	return busy, nil
}
