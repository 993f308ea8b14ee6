package app

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"booking-service/internal/booking"
	"booking-service/internal/calendar"
	"booking-service/internal/credit"
	"booking-service/internal/lock"
	"booking-service/internal/rules"
)

// GET /api/slots?date=YYYY-MM-DD
func (a *App) GetSlotsHandler(c *gin.Context) {
	dateStr := c.Query("date")
	if dateStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date required (YYYY-MM-DD)"})
		return
	}
	slots, err := a.Orc.ListSlotsForDate(c.Request.Context(), dateStr)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": dateStr, "slots": slots})
}

// GET /api/busy?time_min=ISO&time_max=ISO
func (a *App) CheckAvailabilityHandler(c *gin.Context) {
	timeMin, err := time.Parse(time.RFC3339, c.Query("time_min"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid time_min"})
		return
	}
	timeMax, err := time.Parse(time.RFC3339, c.Query("time_max"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid time_max"})
		return
	}
	if !timeMin.Before(timeMax) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "time_min must be before time_max"})
		return
	}
	busy, err := a.Orc.CheckAvailability(c.Request.Context(), timeMin, timeMax)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"busy": busy, "count": len(busy)})
}

type createBookingReq struct {
	UserID             string   `json:"user_id,omitempty"`
	CustomerName       string   `json:"customer_name" binding:"required"`
	CustomerEmail      string   `json:"customer_email" binding:"required,email"`
	CustomerPhone      string   `json:"customer_phone,omitempty"`
	Date               string   `json:"date" binding:"required"` // YYYY-MM-DD
	Hours              []string `json:"hours" binding:"required"`
	PreferredPackageID string   `json:"preferred_package_id,omitempty"`
}

// POST /api/bookings
func (a *App) CreateBookingHandler(c *gin.Context) {
	var req createBookingReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hours := make([]int, 0, len(req.Hours))
	for _, hs := range req.Hours {
		h, err := parseHourString(hs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		hours = append(hours, h)
	}

	userID := req.UserID
	if v, ok := c.Get("user_id"); ok {
		if s, ok := v.(string); ok && s != "" {
			userID = s
		}
	}

	result, err := a.Orc.Book(c.Request.Context(), booking.Request{
		UserID:             userID,
		CustomerName:       req.CustomerName,
		CustomerEmail:      req.CustomerEmail,
		CustomerPhone:      req.CustomerPhone,
		Date:               req.Date,
		Hours:              hours,
		PreferredPackageID: req.PreferredPackageID,
		IdempotencyKey:     c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		var partial *booking.PartialBookingError
		if errors.As(err, &partial) {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":          "booking partially completed",
				"created_events": partial.Created,
				"failed_hour":    partial.FailedHour,
				"detail":         partial.Err.Error(),
			})
			return
		}
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// DELETE /api/bookings/:id?note=...
func (a *App) CancelBookingHandler(c *gin.Context) {
	eventID := c.Param("id")
	note := c.Query("note")
	if err := a.Orc.Cancel(c.Request.Context(), eventID, note); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GET /api/admin/rules
func (a *App) GetRulesHandler(c *gin.Context) {
	r, err := a.Rules.Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, r)
}

// PUT /api/admin/rules
func (a *App) PutRulesHandler(c *gin.Context) {
	var r rules.Rules
	if err := c.BindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := r.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := a.Rules.Put(c.Request.Context(), r); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, r)
}

type grantCreditReq struct {
	UserID    string `json:"user_id" binding:"required"`
	PackageID string `json:"package_id" binding:"required"`
	Hours     int    `json:"hours" binding:"required,gt=0"`
}

// POST /api/admin/credits — called when a package payment is approved.
func (a *App) GrantCreditHandler(c *gin.Context) {
	var req grantCreditReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	granted, err := a.Credits.Grant(c.Request.Context(), req.UserID, req.PackageID, req.Hours)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	a.Log.Info("credit granted",
		zap.String("user_id", req.UserID),
		zap.String("package_id", req.PackageID),
		zap.Int("hours", req.Hours))
	c.JSON(http.StatusCreated, granted)
}

// GET /api/admin/credits/:user_id
func (a *App) ListCreditsHandler(c *gin.Context) {
	credits, err := a.Credits.ListCredits(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if credits == nil {
		credits = []credit.PackageCredit{}
	}
	c.JSON(http.StatusOK, credits)
}

// GET /health
func (a *App) HealthHandler(c *gin.Context) {
	ctx := c.Request.Context()
	status := http.StatusOK
	checks := gin.H{"postgres": "ok", "redis": "ok"}

	if err := a.DB.Ping(ctx); err != nil {
		checks["postgres"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		checks["redis"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	checks["calendar_connected"] = a.OAuth != nil && a.OAuth.Connected(ctx)

	c.JSON(status, checks)
}

// writeError maps core errors onto HTTP statuses.
func (a *App) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrStaleSlot):
		c.JSON(http.StatusConflict, gin.H{"error": "this time was just taken, please pick another"})
	case errors.Is(err, booking.ErrDuplicateRequest):
		c.JSON(http.StatusConflict, gin.H{"error": "this booking was already submitted"})
	case errors.Is(err, lock.ErrLockNotAcquired):
		c.JSON(http.StatusConflict, gin.H{"error": "another booking is in progress, please retry"})
	case errors.Is(err, calendar.ErrEventNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
	case errors.Is(err, calendar.ErrNotConnected):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "calendar not connected"})
	case errors.Is(err, booking.ErrRulesUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		var ge *calendar.GatewayError
		if errors.As(err, &ge) {
			a.Log.Error("calendar gateway failure", zap.Bool("retryable", ge.Retryable), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "retryable": ge.Retryable})
			return
		}
		a.Log.Error("internal error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// parseHourString accepts "HH:MM" on an hour boundary or a bare hour "9".
func parseHourString(s string) (int, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ":") {
		t, err := time.Parse("15:04", s)
		if err != nil {
			return 0, errors.New("invalid hour " + strconv.Quote(s))
		}
		if t.Minute() != 0 {
			return 0, errors.New("hour " + strconv.Quote(s) + " must be on an hour boundary")
		}
		return t.Hour(), nil
	}
	h, err := strconv.Atoi(s)
	if err != nil || h < 0 || h > 23 {
		return 0, errors.New("invalid hour " + strconv.Quote(s))
	}
	return h, nil
}
