package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"interview-scheduler/internal/app"
	"interview-scheduler/internal/app/memstore"
	"interview-scheduler/internal/server"
)

var jwtSecret = []byte("router-test-secret-router-test-secret")

func bearer(p app.Principal) string {
	tok, err := app.IssueToken(jwtSecret, p, time.Hour)
	Expect(err).NotTo(HaveOccurred())
	return "Bearer " + tok
}

var _ = Describe("Router", func() {
	var (
		router    *gin.Engine
		store     *memstore.Store
		recruiter string
		candidate string
		stranger  string
	)

	// Monday 2025-03-03 08:00Z; the interviews below are a week out
	now := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)

	do := func(method, path, auth string, body any) *httptest.ResponseRecorder {
		var r io.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			r = bytes.NewReader(raw)
		}
		req := httptest.NewRequest(method, path, r)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	decode := func(w *httptest.ResponseRecorder, into any) {
		Expect(json.Unmarshal(w.Body.Bytes(), into)).To(Succeed())
	}

	createInvitation := func() app.Invitation {
		w := do(http.MethodPost, "/interviews/create-invitation", recruiter, map[string]any{
			"profileId":     "profile-1",
			"jobPostId":     "job-1",
			"interviewType": "technical",
			"dateTimeSlots": []map[string]any{
				{"date": "2025-03-10", "times": []string{"10:00", "09:00"}},
			},
		})
		Expect(w.Code).To(Equal(http.StatusCreated))
		var inv app.Invitation
		decode(w, &inv)
		return inv
	}

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		store = memstore.New()
		registry := prometheus.NewRegistry()
		a := app.New(store, app.FixedClock(now), app.Options{
			Location:      time.UTC,
			InvitationTTL: 14 * 24 * time.Hour,
			Metrics:       app.NewMetrics(registry),
		})
		router = server.NewRouter(a, server.RouterConfig{JWTSecret: jwtSecret, Metrics: registry})

		recruiter = bearer(app.Principal{UserID: "rec-1", Role: app.RoleRecruiter})
		candidate = bearer(app.Principal{UserID: "user-1", Role: app.RoleCandidate, ProfileID: "profile-1"})
		stranger = bearer(app.Principal{UserID: "user-2", Role: app.RoleCandidate, ProfileID: "profile-2"})
	})

	Describe("public routes", func() {
		It("reports health without a token", func() {
			w := do(http.MethodGet, "/health", "", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(`"ok"`))
		})

		It("serves prometheus metrics", func() {
			w := do(http.MethodGet, "/metrics", "", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("returns 503 for the oauth callback when calendar is not configured", func() {
			w := do(http.MethodGet, "/oauth2callback?code=abc&state=xyz", "", nil)
			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		})
	})

	Describe("authentication", func() {
		It("rejects requests without a bearer token", func() {
			w := do(http.MethodGet, "/recruiter/availability", "", nil)
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})

		It("rejects tokens signed with another secret", func() {
			tok, err := app.IssueToken([]byte("some-other-secret"), app.Principal{UserID: "rec-1", Role: app.RoleRecruiter}, time.Hour)
			Expect(err).NotTo(HaveOccurred())
			w := do(http.MethodGet, "/recruiter/availability", "Bearer "+tok, nil)
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})

		It("forbids candidates from recruiter-only routes", func() {
			w := do(http.MethodPost, "/recruiter/availability", candidate, map[string]any{
				"dayOfWeek": 1, "startTime": "09:00", "endTime": "11:00",
			})
			Expect(w.Code).To(Equal(http.StatusForbidden))
		})

		It("forbids recruiters from confirming", func() {
			w := do(http.MethodPost, "/interviews/invitations/any/confirm", recruiter, map[string]any{
				"selectedDate": "2025-03-10", "selectedTime": "09:00", "timezoneOffset": 0,
			})
			Expect(w.Code).To(Equal(http.StatusForbidden))
		})
	})

	Describe("availability", func() {
		It("creates, lists and deletes windows", func() {
			w := do(http.MethodPost, "/recruiter/availability", recruiter, map[string]any{
				"dayOfWeek": 1, "startTime": "09:00", "endTime": "11:00",
			})
			Expect(w.Code).To(Equal(http.StatusCreated))
			var created app.AvailabilityWindow
			decode(w, &created)
			Expect(created.RecruiterID).To(Equal("rec-1"))
			Expect(created.IsActive).To(BeTrue())

			w = do(http.MethodGet, "/recruiter/availability", recruiter, nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			var windows []app.AvailabilityWindow
			decode(w, &windows)
			Expect(windows).To(HaveLen(1))

			w = do(http.MethodDelete, "/recruiter/availability/"+created.ID, recruiter, nil)
			Expect(w.Code).To(Equal(http.StatusNoContent))

			w = do(http.MethodGet, "/recruiter/availability?recruiterId=rec-1", candidate, nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(MatchJSON(`[]`))
		})

		It("rejects an inverted window", func() {
			w := do(http.MethodPost, "/recruiter/availability", recruiter, map[string]any{
				"dayOfWeek": 1, "startTime": "11:00", "endTime": "09:00",
			})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("does not let one recruiter delete another's window", func() {
			w := do(http.MethodPost, "/recruiter/availability", recruiter, map[string]any{
				"dayOfWeek": 1, "startTime": "09:00", "endTime": "11:00",
			})
			var created app.AvailabilityWindow
			decode(w, &created)

			other := bearer(app.Principal{UserID: "rec-2", Role: app.RoleRecruiter})
			w = do(http.MethodDelete, "/recruiter/availability/"+created.ID, other, nil)
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("requires recruiterId when a candidate lists windows", func() {
			w := do(http.MethodGet, "/recruiter/availability", candidate, nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("slots", func() {
		BeforeEach(func() {
			w := do(http.MethodPost, "/recruiter/availability", recruiter, map[string]any{
				"dayOfWeek": 1, "startTime": "09:00", "endTime": "10:30",
			})
			Expect(w.Code).To(Equal(http.StatusCreated))
		})

		It("lists free slots for one date", func() {
			w := do(http.MethodGet, "/recruiter/availability/slots?recruiterId=rec-1&date=2025-03-10", candidate, nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(MatchJSON(`{"date":"2025-03-10","times":["09:00","09:30","10:00"]}`))
		})

		It("builds a menu for several dates", func() {
			w := do(http.MethodGet, "/recruiter/availability/slots?dates=2025-03-10,2025-03-11", recruiter, nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(MatchJSON(`[
				{"date":"2025-03-10","times":["09:00","09:30","10:00"]},
				{"date":"2025-03-11","times":[]}
			]`))
		})

		It("rejects a malformed date", func() {
			w := do(http.MethodGet, "/recruiter/availability/slots?recruiterId=rec-1&date=10-03-2025", candidate, nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("requires a date", func() {
			w := do(http.MethodGet, "/recruiter/availability/slots?recruiterId=rec-1", candidate, nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("invitations", func() {
		BeforeEach(func() {
			store.AddApplication("profile-1", "job-1")
		})

		It("creates an invitation with a normalized menu", func() {
			inv := createInvitation()
			Expect(inv.Status).To(Equal(app.InvitationStatusPending))
			Expect(inv.Duration).To(Equal(60))
			Expect(inv.DateTimeSlots).To(Equal([]app.DateTimeSlots{
				{Date: "2025-03-10", Times: []string{"09:00", "10:00"}},
			}))
		})

		It("rejects an invitation without a candidate", func() {
			w := do(http.MethodPost, "/interviews/create-invitation", recruiter, map[string]any{
				"jobPostId": "job-1", "interviewType": "technical",
			})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("hides the invitation from other candidates", func() {
			inv := createInvitation()
			Expect(do(http.MethodGet, "/interviews/invitations/"+inv.ID, candidate, nil).Code).To(Equal(http.StatusOK))
			Expect(do(http.MethodGet, "/interviews/invitations/"+inv.ID, stranger, nil).Code).To(Equal(http.StatusNotFound))
		})

		It("confirms once and reports the invitation conflict afterwards", func() {
			inv := createInvitation()
			path := "/interviews/invitations/" + inv.ID + "/confirm"
			body := map[string]any{"selectedDate": "2025-03-10", "selectedTime": "09:00", "timezoneOffset": 0}

			w := do(http.MethodPost, path, candidate, body)
			Expect(w.Code).To(Equal(http.StatusCreated))
			var booking app.Booking
			decode(w, &booking)
			Expect(booking.ScheduledDate).To(BeTemporally("==", time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)))
			Expect(booking.Duration).To(Equal(60))

			w = do(http.MethodPost, path, candidate, body)
			Expect(w.Code).To(Equal(http.StatusConflict))
			var resp map[string]any
			decode(w, &resp)
			Expect(resp["party"]).To(Equal("INVITATION"))
		})

		It("reports a recruiter conflict for an overlapping booking", func() {
			store.PutBooking(app.Booking{
				ID:            "existing",
				RecruiterID:   "rec-1",
				ScheduledDate: time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC),
				Duration:      30,
				Status:        app.BookingStatusScheduled,
			})
			inv := createInvitation()
			w := do(http.MethodPost, "/interviews/invitations/"+inv.ID+"/confirm", candidate, map[string]any{
				"selectedDate": "2025-03-10", "selectedTime": "09:00", "timezoneOffset": 0,
			})
			Expect(w.Code).To(Equal(http.StatusConflict))
			Expect(w.Body.String()).To(ContainSubstring(`"RECRUITER"`))
		})

		It("rejects an out-of-range timezone offset", func() {
			inv := createInvitation()
			w := do(http.MethodPost, "/interviews/invitations/"+inv.ID+"/confirm", candidate, map[string]any{
				"selectedDate": "2025-03-10", "selectedTime": "09:00", "timezoneOffset": 900,
			})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 when another candidate tries to confirm", func() {
			inv := createInvitation()
			w := do(http.MethodPost, "/interviews/invitations/"+inv.ID+"/confirm", stranger, map[string]any{
				"selectedDate": "2025-03-10", "selectedTime": "09:00", "timezoneOffset": 0,
			})
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("rejects a malformed body", func() {
			inv := createInvitation()
			req := httptest.NewRequest(http.MethodPost, "/interviews/invitations/"+inv.ID+"/confirm",
				bytes.NewBufferString("{not json"))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", candidate)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("expires a pending invitation once", func() {
			inv := createInvitation()
			path := "/interviews/invitations/" + inv.ID + "/expire"

			w := do(http.MethodPost, path, recruiter, nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			var expired app.Invitation
			decode(w, &expired)
			Expect(expired.Status).To(Equal(app.InvitationStatusExpired))

			Expect(do(http.MethodPost, path, recruiter, nil).Code).To(Equal(http.StatusConflict))

			w = do(http.MethodPost, "/interviews/invitations/"+inv.ID+"/confirm", candidate, map[string]any{
				"selectedDate": "2025-03-10", "selectedTime": "09:00", "timezoneOffset": 0,
			})
			Expect(w.Code).To(Equal(http.StatusConflict))
		})
	})

	Describe("calendar", func() {
		It("returns 503 when calendar is not configured", func() {
			w := do(http.MethodGet, "/calendar/auth", recruiter, nil)
			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		})
	})
})
