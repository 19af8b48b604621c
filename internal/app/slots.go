package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// BusySource reports time a recruiter is unavailable outside this service's bookings.
type BusySource interface {
	BusyIntervals(ctx context.Context, recruiterID string, from, to time.Time) ([]Interval, error)
}

// SlotGenerator turns weekly availability windows into the bookable slot starts of one day.
// Its reads are not transactionally consistent with concurrent confirmations; the commit path
// re-validates.
type SlotGenerator struct {
	stores  Stores
	busy    BusySource
	clock   Clock
	loc     *time.Location
	metrics *Metrics
}

func NewSlotGenerator(stores Stores, clock Clock, loc *time.Location) *SlotGenerator {
	if loc == nil {
		loc = time.UTC
	}
	return &SlotGenerator{stores: stores, clock: clock, loc: loc}
}

// WithBusySource subtracts external busy time, e.g. a connected calendar.
func (g *SlotGenerator) WithBusySource(b BusySource) *SlotGenerator {
	g.busy = b
	return g
}

func (g *SlotGenerator) WithMetrics(m *Metrics) *SlotGenerator {
	g.metrics = m
	return g
}

// Generate returns the sorted, de-duplicated "HH:MM" starts of free 30-minute slots on date.
func (g *SlotGenerator) Generate(ctx context.Context, recruiterID, date string) ([]string, error) {
	defer g.metrics.observeSlotGeneration(time.Now())

	if !datePattern.MatchString(date) {
		return nil, invalid("date", "must be YYYY-MM-DD")
	}
	day, err := time.ParseInLocation(dateLayout, date, g.loc)
	if err != nil {
		return nil, invalid("date", "must be a calendar date: %v", err)
	}

	windows, err := g.stores.Availability().ListActiveWindowsForDay(ctx, recruiterID, int(day.Weekday()))
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return []string{}, nil
	}

	dayStart := day
	dayEnd := day.AddDate(0, 0, 1)

	busy, err := g.busyIntervals(ctx, recruiterID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	now := g.clock.Now()
	seen := make(map[string]struct{})
	for _, w := range windows {
		startTOD, err := parseHHMM(w.StartTime)
		if err != nil {
			slog.WarnContext(ctx, "skipping availability window with malformed start", "window_id", w.ID, "error", err)
			continue
		}
		endTOD, err := parseHHMM(w.EndTime)
		if err != nil {
			slog.WarnContext(ctx, "skipping availability window with malformed end", "window_id", w.ID, "error", err)
			continue
		}
		if !endTOD.After(startTOD) {
			slog.WarnContext(ctx, "skipping availability window ending before it starts", "window_id", w.ID)
			continue
		}

		y, m, d := day.Date()
		winStart := time.Date(y, m, d, startTOD.Hour(), startTOD.Minute(), 0, 0, g.loc)
		winEnd := time.Date(y, m, d, endTOD.Hour(), endTOD.Minute(), 0, 0, g.loc)

		for s := winStart; !s.Add(SlotLength).After(winEnd); s = s.Add(SlotLength) {
			slot := Interval{Start: s, End: s.Add(SlotLength)}
			if slot.Start.Before(now) || overlapsAny(slot, busy) {
				continue
			}
			seen[s.In(g.loc).Format(timeLayout)] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

// GenerateMenu runs Generate for each date. A malformed date is logged and left out; it never
// fails the whole menu.
func (g *SlotGenerator) GenerateMenu(ctx context.Context, recruiterID string, dates []string) ([]DateTimeSlots, error) {
	menu := make([]DateTimeSlots, 0, len(dates))
	for _, date := range dates {
		times, err := g.Generate(ctx, recruiterID, date)
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				slog.WarnContext(ctx, "skipping malformed date in slot menu", "date", date, "error", err)
				continue
			}
			return nil, fmt.Errorf("generating slots for %s: %w", date, err)
		}
		menu = append(menu, DateTimeSlots{Date: date, Times: times})
	}
	return menu, nil
}

func (g *SlotGenerator) busyIntervals(ctx context.Context, recruiterID string, from, to time.Time) ([]Interval, error) {
	bookings, err := g.stores.Bookings().ListRecruiterBookings(ctx, recruiterID, from, to)
	if err != nil {
		return nil, err
	}
	busy := make([]Interval, 0, len(bookings))
	for _, b := range bookings {
		if b.Blocking() {
			busy = append(busy, b.Interval())
		}
	}

	if g.busy != nil {
		external, err := g.busy.BusyIntervals(ctx, recruiterID, from, to)
		if err != nil {
			slog.WarnContext(ctx, "external busy lookup failed, using bookings only", "error", err)
		} else {
			busy = append(busy, external...)
		}
	}
	return busy, nil
}

func parseHHMM(s string) (time.Time, error) {
	// Imported windows may carry seconds ("09:00:00"); only HH:MM matters.
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("invalid time string: %s", s)
	}
	s = s[:5]
	if !timePattern.MatchString(s) {
		return time.Time{}, fmt.Errorf("invalid time string: %s", s)
	}
	return time.Parse(timeLayout, s)
}
