package app

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// GET /recruiter/availability?recruiterId=
func (a *App) ListAvailabilityHandler(c *gin.Context) {
	recruiterID, ok := recruiterParam(c)
	if !ok {
		return
	}
	windows, err := a.Availability.List(c.Request.Context(), recruiterID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, windows)
}

// POST /recruiter/availability
func (a *App) CreateAvailabilityHandler(c *gin.Context) {
	p, _ := PrincipalFrom(c)
	var in CreateWindowInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	w, err := a.Availability.Create(c.Request.Context(), p.UserID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

// DELETE /recruiter/availability/:id
func (a *App) DeleteAvailabilityHandler(c *gin.Context) {
	p, _ := PrincipalFrom(c)
	if err := a.Availability.Delete(c.Request.Context(), p.UserID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /recruiter/availability/slots?recruiterId=&date=YYYY-MM-DD
// GET /recruiter/availability/slots?recruiterId=&dates=YYYY-MM-DD,YYYY-MM-DD
func (a *App) GetSlotsHandler(c *gin.Context) {
	recruiterID, ok := recruiterParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if date := c.Query("date"); date != "" {
		times, err := a.Slots.Generate(ctx, recruiterID, date)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, DateTimeSlots{Date: date, Times: times})
		return
	}

	raw := c.Query("dates")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date or dates required (YYYY-MM-DD)"})
		return
	}
	var dates []string
	for _, d := range strings.Split(raw, ",") {
		if d = strings.TrimSpace(d); d != "" {
			dates = append(dates, d)
		}
	}
	menu, err := a.Slots.GenerateMenu(ctx, recruiterID, dates)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, menu)
}

// POST /interviews/create-invitation
func (a *App) CreateInvitationHandler(c *gin.Context) {
	p, _ := PrincipalFrom(c)
	var in CreateInvitationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	inv, err := a.Invitations.CreateInvitation(c.Request.Context(), p.UserID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

// GET /interviews/invitations/:id
func (a *App) GetInvitationHandler(c *gin.Context) {
	p, _ := PrincipalFrom(c)
	inv, err := a.Invitations.GetInvitation(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// POST /interviews/invitations/:id/confirm
func (a *App) ConfirmInvitationHandler(c *gin.Context) {
	p, _ := PrincipalFrom(c)
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	booking, err := a.Invitations.Confirm(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

// POST /interviews/invitations/:id/expire
func (a *App) ExpireInvitationHandler(c *gin.Context) {
	p, _ := PrincipalFrom(c)
	inv, err := a.Invitations.ExpireInvitation(c.Request.Context(), p.UserID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// GET /calendar/auth
func (a *App) CalendarAuthHandler(c *gin.Context) {
	if a.Calendar == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google Calendar not configured"})
		return
	}
	p, _ := PrincipalFrom(c)
	url, err := a.Calendar.AuthURL(p.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"authUrl": url})
}

// GET /oauth2callback
func (a *App) OAuth2CallbackHandler(c *gin.Context) {
	if a.Calendar == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google Calendar not configured"})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization code required"})
		return
	}

	ctx := c.Request.Context()
	recruiterID, err := a.Calendar.Exchange(ctx, code, c.Query("state"))
	if errors.Is(err, ErrUnauthorized) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired state"})
		return
	}
	if err != nil {
		slog.WarnContext(ctx, "calendar authorization failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to exchange code for token"})
		return
	}

	slog.InfoContext(ctx, "calendar connected", "recruiter_id", recruiterID)
	c.JSON(http.StatusOK, gin.H{"message": "Authorization successful"})
}

// recruiterParam reads ?recruiterId=, defaulting to the calling recruiter.
func recruiterParam(c *gin.Context) (string, bool) {
	if id := c.Query("recruiterId"); id != "" {
		return id, true
	}
	if p, ok := PrincipalFrom(c); ok && p.Role == RoleRecruiter {
		return p.UserID, true
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "recruiterId is required"})
	return "", false
}

// writeError maps domain errors onto HTTP responses. Anything unrecognised is logged and
// reported as a bare 500.
func writeError(c *gin.Context, err error) {
	var (
		verr     *ValidationError
		conflict *ConflictError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Error(), "party": conflict.Party})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	default:
		slog.ErrorContext(c.Request.Context(), "request failed", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
