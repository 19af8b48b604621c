package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ExpirySweeper runs InvitationLifecycle.ExpireStale on a cron schedule.
type ExpirySweeper struct {
	cron      *cron.Cron
	lifecycle *InvitationLifecycle
	timeout   time.Duration
}

// NewExpirySweeper validates spec, a six-field cron expression with seconds, evaluated in UTC.
func NewExpirySweeper(spec string, lifecycle *InvitationLifecycle) (*ExpirySweeper, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	s := &ExpirySweeper{cron: c, lifecycle: lifecycle, timeout: time.Minute}
	if _, err := c.AddFunc(spec, s.Sweep); err != nil {
		return nil, fmt.Errorf("registering invitation sweep %q: %w", spec, err)
	}
	return s, nil
}

// Sweep runs one pass. Errors are logged; the next tick retries.
func (s *ExpirySweeper) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.lifecycle.ExpireStale(ctx); err != nil {
		slog.ErrorContext(ctx, "invitation sweep failed", "error", err)
	}
}

func (s *ExpirySweeper) Start() {
	slog.Info("starting invitation expiry sweep")
	s.cron.Start()
}

// Stop waits for a running sweep to finish.
func (s *ExpirySweeper) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("invitation expiry sweep stopped")
}
