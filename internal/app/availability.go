package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type CreateWindowInput struct {
	DayOfWeek int    `json:"dayOfWeek"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

func (in CreateWindowInput) validate() error {
	if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
		return invalid("dayOfWeek", "must be between 0 (Sunday) and 6 (Saturday)")
	}
	start, err := parseHHMM(in.StartTime)
	if err != nil || len(in.StartTime) != 5 {
		return invalid("startTime", "must be HH:MM")
	}
	end, err := parseHHMM(in.EndTime)
	if err != nil || len(in.EndTime) != 5 {
		return invalid("endTime", "must be HH:MM")
	}
	if !start.Before(end) {
		return invalid("endTime", "must be after startTime")
	}
	return nil
}

// AvailabilityService manages recruiters' recurring weekly windows. Overlapping windows are
// allowed; slot generation de-duplicates them.
type AvailabilityService struct {
	stores Stores
	clock  Clock
}

func NewAvailabilityService(stores Stores, clock Clock) *AvailabilityService {
	return &AvailabilityService{stores: stores, clock: clock}
}

func (s *AvailabilityService) List(ctx context.Context, recruiterID string) ([]AvailabilityWindow, error) {
	windows, err := s.stores.Availability().ListWindows(ctx, recruiterID)
	if err != nil {
		return nil, err
	}
	if windows == nil {
		windows = []AvailabilityWindow{}
	}
	return windows, nil
}

func (s *AvailabilityService) Create(ctx context.Context, recruiterID string, in CreateWindowInput) (*AvailabilityWindow, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC().Truncate(time.Microsecond)
	w := &AvailabilityWindow{
		ID:          uuid.NewString(),
		RecruiterID: recruiterID,
		DayOfWeek:   in.DayOfWeek,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.stores.Availability().CreateWindow(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *AvailabilityService) Delete(ctx context.Context, recruiterID, windowID string) error {
	if _, err := uuid.Parse(windowID); err != nil {
		return &NotFoundError{Resource: "availability window"}
	}
	err := s.stores.Availability().DeleteWindow(ctx, recruiterID, windowID)
	if errors.Is(err, ErrNotFound) {
		return &NotFoundError{Resource: "availability window"}
	}
	return err
}
