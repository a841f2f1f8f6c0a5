package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type generateSlotsReq struct {
	StartDate         string `json:"start_date" binding:"required"` // "2006-01-02"
	EndDate           string `json:"end_date,omitempty"`
	StartTime         string `json:"start_time" binding:"required"` // "HH:MM"
	EndTime           string `json:"end_time" binding:"required"`
	DurationMins      int    `json:"duration_minutes" binding:"required"`
	Weekdays          []int  `json:"weekdays,omitempty"` // 0=Sunday .. 6=Saturday
	ProvisionMeetings bool   `json:"provision_meetings,omitempty"`
}

// POST /api/owners/:id/slots
func (a *App) GenerateSlotsHandler(c *gin.Context) {
	ownerID := c.Param("id")
	var req generateSlotsReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
		return
	}
	var endDate time.Time
	if req.EndDate != "" {
		endDate, err = time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date"})
			return
		}
	}

	var weekdays []time.Weekday
	for _, d := range req.Weekdays {
		if d < 0 || d > 6 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "weekdays must be 0-6"})
			return
		}
		weekdays = append(weekdays, time.Weekday(d))
	}

	result, err := a.GenerateSlots(c.Request.Context(), ownerID, GenerateSlotsRequest{
		StartDate:         startDate,
		EndDate:           endDate,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		DurationMins:      req.DurationMins,
		Weekdays:          weekdays,
		ProvisionMeetings: req.ProvisionMeetings,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GET /api/owners/:id/slots
func (a *App) ListSlotsHandler(c *gin.Context) {
	slots, err := a.Slots.ListSlots(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots, "count": len(slots)})
}

// DELETE /api/owners/:id/slots/:slot_id
func (a *App) DeleteSlotHandler(c *gin.Context) {
	slotID, err := uuid.Parse(c.Param("slot_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slot id"})
		return
	}
	err = a.DeleteSlot(c.Request.Context(), c.Param("id"), slotID)
	if errors.Is(err, ErrNotAvailable) {
		c.JSON(http.StatusConflict, gin.H{"error": "slot missing or already booked"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// POST /api/owners/:id/meetings
func (a *App) ScheduleMeetingHandler(c *gin.Context) {
	var req ScheduleMeetingRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := a.ScheduleMeeting(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, result)
}

// POST /api/owners/:id/candidates/:candidate_id/invite
func (a *App) InviteCandidateHandler(c *gin.Context) {
	candidateID, err := uuid.Parse(c.Param("candidate_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid candidate id"})
		return
	}
	token, err := a.InviteCandidate(c.Request.Context(), c.Param("id"), candidateID)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "candidate not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scheduling_token": token})
}

type connectCalendarReq struct {
	AccessToken  string `json:"access_token" binding:"required"`
	RefreshToken string `json:"refresh_token" binding:"required"`
	ExpiresIn    int64  `json:"expires_in" binding:"required"`
}

// POST /api/owners/:id/calendar/:provider
// Persists the token pair obtained from the portal's consent exchange.
func (a *App) ConnectCalendarHandler(c *gin.Context) {
	p, ok := parseProvider(c.Param("provider"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}
	var req connectCalendarReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	expiresAt := time.Now().Add(time.Duration(req.ExpiresIn) * time.Second)
	if err := a.Tokens.StoreConsent(c.Request.Context(), c.Param("id"), p, req.AccessToken, req.RefreshToken, expiresAt); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true})
}

// GET /api/owners/:id/calendar/:provider
func (a *App) CalendarStatusHandler(c *gin.Context) {
	p, ok := parseProvider(c.Param("provider"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}
	connected, err := a.Tokens.Connected(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"provider": p, "connected": connected})
}

// DELETE /api/owners/:id/calendar/:provider
func (a *App) DisconnectCalendarHandler(c *gin.Context) {
	p, ok := parseProvider(c.Param("provider"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}
	if err := a.Tokens.Disconnect(c.Request.Context(), c.Param("id"), p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": false})
}

// GET /api/schedule/:token/slots
// Candidate self-service view; the scheduling token is the only auth.
func (a *App) CandidateSlotsHandler(c *gin.Context) {
	slots, err := a.AvailableSlotsForToken(c.Request.Context(), c.Param("token"))
	if errors.Is(err, ErrInvalidToken) {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid scheduling token"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots, "count": len(slots)})
}

// POST /api/schedule/:token/book/:slot_id
func (a *App) BookSlotHandler(c *gin.Context) {
	slotID, err := uuid.Parse(c.Param("slot_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slot id"})
		return
	}

	slot, err := a.BookSlot(c.Request.Context(), slotID, c.Param("token"))
	switch {
	case errors.Is(err, ErrInvalidToken):
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid scheduling token"})
	case errors.Is(err, ErrNotAvailable):
		c.JSON(http.StatusConflict, gin.H{"error": "slot not available"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"booked": true, "slot": slot})
	}
}

func parseProvider(s string) (Provider, bool) {
	switch Provider(s) {
	case ProviderGoogle:
		return ProviderGoogle, true
	case ProviderOutlook:
		return ProviderOutlook, true
	}
	return "", false
}
