package booking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"booking-service/internal/calendar"
	"booking-service/internal/lock"
	"booking-service/internal/notify"
	"booking-service/internal/rules"
	"booking-service/internal/slots"
)

// RulesSource yields the current business schedule.
type RulesSource interface {
	Get(ctx context.Context) (rules.Rules, error)
}

// CreditDeductor draws lesson-hours from a user's packages.
type CreditDeductor interface {
	Deduct(ctx context.Context, userID string, hours int, preferredPackageID string) error
}

// Orchestrator sequences the multi-system steps of booking and cancelling.
// The external calendar event is the system of record for what is booked.
type Orchestrator struct {
	Rules  RulesSource
	Cal    calendar.Gateway
	Ledger CreditDeductor
	Notify notify.Sink
	Locker lock.Locker
	Idem   lock.IdempotencyGuard // nil disables the dedup window
	Loc    *time.Location
	Log    *zap.Logger

	now func() time.Time
}

func NewOrchestrator(rulesSrc RulesSource, cal calendar.Gateway, ledger CreditDeductor,
	sink notify.Sink, locker lock.Locker, idem lock.IdempotencyGuard,
	loc *time.Location, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		Rules:  rulesSrc,
		Cal:    cal,
		Ledger: ledger,
		Notify: sink,
		Locker: locker,
		Idem:   idem,
		Loc:    loc,
		Log:    log,
		now:    time.Now,
	}
}

// Request is one booking submission: one or more 1-hour slots on one date.
type Request struct {
	UserID             string
	CustomerName       string
	CustomerEmail      string
	CustomerPhone      string
	Date               string // "YYYY-MM-DD"
	Hours              []int
	PreferredPackageID string
	IdempotencyKey     string
}

// Result is a completed booking. CreditWarning carries the deduction
// diagnostic when the booking proceeded without (full) prepayment.
type Result struct {
	Events        []calendar.Event `json:"events"`
	CreditWarning string           `json:"credit_warning,omitempty"`
}

// ListSlotsForDate returns the day's candidate slots with availability
// flags. A rules-store failure degrades to the default schedule (read-only
// mode); a busy-interval fetch failure is surfaced, never treated as "all
// free".
func (o *Orchestrator) ListSlotsForDate(ctx context.Context, dateStr string) ([]slots.Slot, error) {
	date, err := time.ParseInLocation("2006-01-02", dateStr, o.Loc)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", ErrInvalidRequest, dateStr)
	}

	r, err := o.Rules.Get(ctx)
	if err != nil {
		o.Log.Warn("rules store unavailable, falling back to default schedule", zap.Error(err))
		r = rules.Defaults()
	}

	dayStart := date
	dayEnd := date.AddDate(0, 0, 1)
	busy, err := o.Cal.ListBusy(ctx, r.CalendarID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	return slots.Generate(r, busy, date, o.now()), nil
}

// CheckAvailability exposes the raw busy intervals for a range.
func (o *Orchestrator) CheckAvailability(ctx context.Context, timeMin, timeMax time.Time) ([]calendar.BusyInterval, error) {
	r, err := o.Rules.Get(ctx)
	if err != nil {
		o.Log.Warn("rules store unavailable, falling back to default schedule", zap.Error(err))
		r = rules.Defaults()
	}
	return o.Cal.ListBusy(ctx, r.CalendarID, timeMin, timeMax)
}

// Book runs the booking state machine: validate against a fresh busy fetch,
// attempt the credit deduction (best-effort), create one event per slot,
// then notify. Validation is all-or-nothing and happens before any side
// effect; event creation is best-effort with partial results surfaced.
func (o *Orchestrator) Book(ctx context.Context, req Request) (*Result, error) {
	date, hours, err := o.validateRequest(req)
	if err != nil {
		return nil, err
	}

	if o.Idem != nil && req.IdempotencyKey != "" {
		fresh, err := o.Idem.Reserve(ctx, req.IdempotencyKey)
		if err != nil {
			o.Log.Warn("idempotency reservation failed, proceeding without dedup", zap.Error(err))
		} else if !fresh {
			return nil, ErrDuplicateRequest
		}
	}

	r, err := o.Rules.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRulesUnavailable, err)
	}

	result := &Result{}
	err = o.Locker.WithCalendarLock(ctx, r.CalendarID, func(ctx context.Context) error {
		// VALIDATING: never trust client-side slot state; a slot shown free
		// thirty seconds ago may be taken now.
		dayStart := date
		dayEnd := date.AddDate(0, 0, 1)
		busy, err := o.Cal.ListBusy(ctx, r.CalendarID, dayStart, dayEnd)
		if err != nil {
			return err
		}
		day := slots.Generate(r, busy, date, o.now())
		for _, h := range hours {
			if !slotAvailable(day, h) {
				return fmt.Errorf("%w: %s %02d:00", ErrStaleSlot, req.Date, h)
			}
		}

		// CREDIT_DEDUCTING: attempted and logged, never fatal.
		if err := o.Ledger.Deduct(ctx, req.UserID, len(hours), req.PreferredPackageID); err != nil {
			o.Log.Warn("credit deduction failed, booking proceeds",
				zap.String("user_id", req.UserID),
				zap.String("date", req.Date),
				zap.Int("hours", len(hours)),
				zap.Error(err))
			result.CreditWarning = err.Error()
		}

		// EVENT_CREATING: one event per slot, no rollback of prior
		// successes.
		for _, h := range hours {
			start := time.Date(date.Year(), date.Month(), date.Day(), h, 0, 0, 0, o.Loc)
			in := calendar.EventInput{
				Summary:       req.CustomerName,
				Description:   fmt.Sprintf("Email: %s\nPhone: %s", req.CustomerEmail, req.CustomerPhone),
				Start:         start,
				End:           start.Add(time.Hour),
				AttendeeEmail: req.CustomerEmail,
			}
			ev, err := o.Cal.CreateEvent(ctx, r.CalendarID, in)
			if err != nil {
				if len(result.Events) > 0 {
					return &PartialBookingError{Created: result.Events, FailedHour: h, Err: err}
				}
				return err
			}
			result.Events = append(result.Events, *ev)
			o.Log.Info("event created",
				zap.String("event_id", ev.ID),
				zap.String("date", req.Date),
				zap.Int("hour", h))
		}
		return nil
	})
	if err != nil {
		if len(result.Events) > 0 {
			// Partial completion escapes with the events that did land.
			return result, err
		}
		return nil, err
	}

	// NOTIFYING: the booking succeeded once the events exist; notification
	// failures are logged, not propagated.
	o.sendBookingNotices(ctx, req, hours, result.Events[0].ID)

	return result, nil
}

// Cancel tears a booking down: fetch the event, delete it, then notify the
// customer if an address was recoverable from the event.
func (o *Orchestrator) Cancel(ctx context.Context, eventID, note string) error {
	r, err := o.Rules.Get(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRulesUnavailable, err)
	}

	ev, err := o.Cal.GetEvent(ctx, r.CalendarID, eventID)
	if err != nil {
		return err
	}

	if err := o.Cal.DeleteEvent(ctx, r.CalendarID, eventID); err != nil {
		return err
	}
	o.Log.Info("event cancelled", zap.String("event_id", eventID))

	var email string
	if len(ev.Attendees) > 0 {
		email = ev.Attendees[0]
	}
	if email == "" {
		o.Log.Warn("no customer email on cancelled event, skipping notice",
			zap.String("event_id", eventID))
		return nil
	}
	date := ev.Start.In(o.Loc).Format("2006-01-02")
	if err := o.Notify.SendCancellationNotice(ctx, email, ev.Summary, date, note); err != nil {
		o.Log.Error("cancellation notice failed", zap.String("event_id", eventID), zap.Error(err))
	}
	return nil
}

func (o *Orchestrator) validateRequest(req Request) (time.Time, []int, error) {
	if req.CustomerName == "" || req.CustomerEmail == "" {
		return time.Time{}, nil, fmt.Errorf("%w: customer name and email required", ErrInvalidRequest)
	}
	date, err := time.ParseInLocation("2006-01-02", req.Date, o.Loc)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("%w: invalid date %q", ErrInvalidRequest, req.Date)
	}
	if len(req.Hours) == 0 {
		return time.Time{}, nil, fmt.Errorf("%w: at least one hour required", ErrInvalidRequest)
	}
	seen := map[int]bool{}
	hours := make([]int, 0, len(req.Hours))
	for _, h := range req.Hours {
		if h < 0 || h > 23 {
			return time.Time{}, nil, fmt.Errorf("%w: invalid hour %d", ErrInvalidRequest, h)
		}
		if !seen[h] {
			seen[h] = true
			hours = append(hours, h)
		}
	}
	sort.Ints(hours)
	return date, hours, nil
}

func (o *Orchestrator) sendBookingNotices(ctx context.Context, req Request, hours []int, primaryEventID string) {
	d := notify.BookingDetails{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Date:          req.Date,
		Hours:         hours,
	}
	if err := o.Notify.SendBookingConfirmation(ctx, d); err != nil {
		o.Log.Error("booking confirmation failed", zap.String("email", req.CustomerEmail), zap.Error(err))
	}
	if err := o.Notify.SendAdminNotification(ctx, d, primaryEventID); err != nil {
		o.Log.Error("admin notification failed", zap.String("event_id", primaryEventID), zap.Error(err))
	}
}

func slotAvailable(day []slots.Slot, hour int) bool {
	for _, s := range day {
		if s.StartHour == hour {
			return s.Available
		}
	}
	return false
}
