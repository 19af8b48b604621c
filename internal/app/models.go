package app

import (
	"regexp"
	"time"
)

const (
	// SlotLength is the fixed granularity of generated slots.
	SlotLength = 30 * time.Minute

	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

type AvailabilityWindow struct {
	ID          string    `json:"id" db:"id"`
	RecruiterID string    `json:"recruiterId" db:"recruiter_id"`
	DayOfWeek   int       `json:"dayOfWeek" db:"day_of_week"`
	StartTime   string    `json:"startTime" db:"start_time"`
	EndTime     string    `json:"endTime" db:"end_time"`
	IsActive    bool      `json:"isActive" db:"is_active"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

type BookingStatus string

const (
	BookingStatusScheduled   BookingStatus = "scheduled"
	BookingStatusCompleted   BookingStatus = "completed"
	BookingStatusCancelled   BookingStatus = "cancelled"
	BookingStatusRescheduled BookingStatus = "rescheduled"
	BookingStatusNoShow      BookingStatus = "no_show"
)

type Booking struct {
	ID                 string        `json:"id" db:"id"`
	ApplicationID      string        `json:"applicationId" db:"application_id"`
	RecruiterID        string        `json:"recruiterId" db:"recruiter_id"`
	CandidateProfileID string        `json:"candidateProfileId" db:"candidate_profile_id"`
	InterviewType      InterviewType `json:"interviewType" db:"interview_type"`
	ScheduledDate      time.Time     `json:"scheduledDate" db:"scheduled_date"`
	Duration           int           `json:"duration" db:"duration"`
	Status             BookingStatus `json:"status" db:"status"`
	MeetingLink        string        `json:"meetingLink" db:"meeting_link"`
	Notes              string        `json:"notes" db:"notes"`
	CreatedAt          time.Time     `json:"createdAt" db:"created_at"`
	DeletedAt          *time.Time    `json:"deletedAt,omitempty" db:"deleted_at"`
}

func (b Booking) Interval() Interval {
	return Interval{
		Start: b.ScheduledDate,
		End:   b.ScheduledDate.Add(time.Duration(b.Duration) * time.Minute),
	}
}

// Blocking reports whether the booking occupies its time window for conflict purposes.
func (b Booking) Blocking() bool {
	return b.Status == BookingStatusScheduled && b.DeletedAt == nil
}

type InvitationStatus string

const (
	InvitationStatusPending   InvitationStatus = "pending"
	InvitationStatusScheduled InvitationStatus = "scheduled"
	InvitationStatusExpired   InvitationStatus = "expired"
)

// DateTimeSlots is one day of an invitation menu.
type DateTimeSlots struct {
	Date  string   `json:"date"`
	Times []string `json:"times"`
}

type Invitation struct {
	ID                 string           `json:"id" db:"id"`
	RecruiterID        string           `json:"recruiterId" db:"recruiter_id"`
	CandidateProfileID string           `json:"profileId" db:"profile_id"`
	JobPostID          string           `json:"jobPostId" db:"job_post_id"`
	InterviewType      InterviewType    `json:"interviewType" db:"interview_type"`
	Duration           int              `json:"duration" db:"duration"`
	DateTimeSlots      []DateTimeSlots  `json:"dateTimeSlots" db:"date_time_slots"`
	MeetingLink        string           `json:"meetingLink" db:"meeting_link"`
	Notes              string           `json:"notes" db:"notes"`
	Status             InvitationStatus `json:"status" db:"status"`
	ConfirmedDate      *time.Time       `json:"confirmedDate,omitempty" db:"confirmed_date"`
	CreatedAt          time.Time        `json:"createdAt" db:"created_at"`
	ExpiresAt          time.Time        `json:"expiresAt" db:"expires_at"`
}

// Offers reports whether (date, hhmm) is on the frozen menu.
func (inv Invitation) Offers(date, hhmm string) bool {
	for _, d := range inv.DateTimeSlots {
		if d.Date != date {
			continue
		}
		for _, t := range d.Times {
			if t == hhmm {
				return true
			}
		}
	}
	return false
}

// LapsedAt reports whether the invitation's TTL has run out at now, whatever its stored status.
func (inv Invitation) LapsedAt(now time.Time) bool {
	return !inv.ExpiresAt.IsZero() && !inv.ExpiresAt.After(now)
}

// LastOfferedDate returns the latest menu date, or false when the menu has no parseable date.
func (inv Invitation) LastOfferedDate() (time.Time, bool) {
	var last time.Time
	found := false
	for _, d := range inv.DateTimeSlots {
		t, err := time.Parse(dateLayout, d.Date)
		if err != nil {
			continue
		}
		if !found || t.After(last) {
			last = t
			found = true
		}
	}
	return last, found
}

const ApplicationStatusInterviewScheduled = "interview_scheduled"

// Application is the candidate's job application, owned outside this service.
type Application struct {
	ID        string `json:"id" db:"id"`
	ProfileID string `json:"profileId" db:"profile_id"`
	JobPostID string `json:"jobPostId" db:"job_post_id"`
	Status    string `json:"status" db:"status"`
}
