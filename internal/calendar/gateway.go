package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrEventNotFound is returned when the external calendar has no event with
// the requested id (including events already cancelled upstream).
var ErrEventNotFound = errors.New("calendar event not found")

// BusyInterval is a normalized occupied range sourced from the external
// calendar. Intervals are half-open: [Start, End).
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether the half-open window [start, end) intersects
// this interval.
func (b BusyInterval) Overlaps(start, end time.Time) bool {
	return start.Before(b.End) && end.After(b.Start)
}

// Event is the gateway's view of a booking held in the external calendar.
// The calendar event is the system of record for what is booked.
type Event struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Attendees   []string  `json:"attendees,omitempty"`
	HTMLLink    string    `json:"html_link,omitempty"`
}

// EventInput carries the fields the booking flow writes into a new event.
type EventInput struct {
	Summary       string
	Description   string
	Start         time.Time
	End           time.Time
	AttendeeEmail string
}

// Gateway is the boundary to the external calendar service.
type Gateway interface {
	ListBusy(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]BusyInterval, error)
	CreateEvent(ctx context.Context, calendarID string, in EventInput) (*Event, error)
	GetEvent(ctx context.Context, calendarID, eventID string) (*Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// GatewayError wraps a calendar failure with enough detail to distinguish
// retryable (network, rate limit, upstream 5xx) from non-retryable causes.
type GatewayError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("calendar %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a gateway error worth retrying.
func IsRetryable(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Retryable
}
