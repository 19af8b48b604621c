package app

import (
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is safe to use as a nil pointer; every recorder becomes a no-op.
type Metrics struct {
	confirmations  *prometheus.CounterVec
	slotGeneration prometheus.Histogram
	expirations    *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_confirmations_total",
			Help: "Invitation confirmations by outcome.",
		}, []string{"result"}),
		slotGeneration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "availability_slot_generation_seconds",
			Help:    "Time spent generating the free slots of one day.",
			Buckets: prometheus.DefBuckets,
		}),
		expirations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invitation_expirations_total",
			Help: "Invitations moved to expired, by trigger.",
		}, []string{"trigger"}),
	}
	reg.MustRegister(m.confirmations, m.slotGeneration, m.expirations)
	return m
}

func (m *Metrics) observeConfirmation(err error) {
	if m == nil {
		return
	}
	m.confirmations.WithLabelValues(confirmationResult(err)).Inc()
}

func (m *Metrics) observeSlotGeneration(started time.Time) {
	if m == nil {
		return
	}
	m.slotGeneration.Observe(time.Since(started).Seconds())
}

func (m *Metrics) observeExpiration(trigger string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.expirations.WithLabelValues(trigger).Add(float64(n))
}

func confirmationResult(err error) string {
	var (
		conflict *ConflictError
		verr     *ValidationError
	)
	switch {
	case err == nil:
		return "scheduled"
	case errors.As(err, &conflict):
		return "conflict_" + strings.ToLower(string(conflict.Party))
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
