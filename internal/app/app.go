package app

import "time"

// App wires the scheduling components behind the HTTP handlers.
type App struct {
	Availability *AvailabilityService
	Slots        *SlotGenerator
	Invitations  *InvitationLifecycle
	// Calendar is nil when Google credentials are not configured.
	Calendar *GoogleCalendar
}

type Options struct {
	Location      *time.Location
	InvitationTTL time.Duration
	Events        EventPublisher
	Metrics       *Metrics
	Calendar      *GoogleCalendar
}

func New(store Store, clock Clock, opts Options) *App {
	slots := NewSlotGenerator(store, clock, opts.Location).WithMetrics(opts.Metrics)
	if opts.Calendar != nil {
		slots.WithBusySource(opts.Calendar)
	}
	return &App{
		Availability: NewAvailabilityService(store, clock),
		Slots:        slots,
		Invitations: NewInvitationLifecycle(store, clock, LifecycleOptions{
			Location: opts.Location,
			TTL:      opts.InvitationTTL,
			Events:   opts.Events,
			Metrics:  opts.Metrics,
		}),
		Calendar: opts.Calendar,
	}
}
