package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleGateway talks to Google Calendar on behalf of the business account.
// A calendar.Service is built per call from the stored OAuth token so a
// token refreshed through the admin connect flow takes effect immediately.
type GoogleGateway struct {
	Auth *OAuthManager
	Log  *zap.Logger
}

func NewGoogleGateway(auth *OAuthManager, log *zap.Logger) *GoogleGateway {
	return &GoogleGateway{Auth: auth, Log: log}
}

func (g *GoogleGateway) service(ctx context.Context) (*calendar.Service, error) {
	ts, err := g.Auth.TokenSource(ctx)
	if err != nil {
		return nil, &GatewayError{Op: "auth", Retryable: false, Err: err}
	}
	srv, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, &GatewayError{Op: "init", Retryable: false, Err: err}
	}
	return srv, nil
}

// ListBusy queries the free/busy endpoint for occupied intervals in
// [timeMin, timeMax). Reads are idempotent, so one bounded retry is applied
// to retryable failures.
func (g *GoogleGateway) ListBusy(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]BusyInterval, error) {
	srv, err := g.service(ctx)
	if err != nil {
		return nil, err
	}

	req := &calendar.FreeBusyRequest{
		TimeMin: timeMin.Format(time.RFC3339),
		TimeMax: timeMax.Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: calendarID}},
	}

	resp, err := srv.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		ge := wrapGoogleErr("freebusy", err)
		if !IsRetryable(ge) {
			return nil, ge
		}
		g.Log.Warn("freebusy query failed, retrying once", zap.Error(err))
		resp, err = srv.Freebusy.Query(req).Context(ctx).Do()
		if err != nil {
			return nil, wrapGoogleErr("freebusy", err)
		}
	}

	cal, ok := resp.Calendars[calendarID]
	if !ok {
		return nil, &GatewayError{Op: "freebusy", Retryable: false,
			Err: fmt.Errorf("calendar %q missing from freebusy response", calendarID)}
	}
	if len(cal.Errors) > 0 {
		return nil, &GatewayError{Op: "freebusy", Retryable: false,
			Err: fmt.Errorf("freebusy error for %q: %s", calendarID, cal.Errors[0].Reason)}
	}

	return normalizeBusy(cal.Busy)
}

// normalizeBusy converts the duck-typed wire periods into validated
// BusyIntervals once, at the boundary.
func normalizeBusy(periods []*calendar.TimePeriod) ([]BusyInterval, error) {
	out := make([]BusyInterval, 0, len(periods))
	for _, p := range periods {
		if p == nil {
			continue
		}
		start, err := time.Parse(time.RFC3339, p.Start)
		if err != nil {
			return nil, &GatewayError{Op: "freebusy", Retryable: false,
				Err: fmt.Errorf("malformed busy start %q: %w", p.Start, err)}
		}
		end, err := time.Parse(time.RFC3339, p.End)
		if err != nil {
			return nil, &GatewayError{Op: "freebusy", Retryable: false,
				Err: fmt.Errorf("malformed busy end %q: %w", p.End, err)}
		}
		if !end.After(start) {
			continue
		}
		out = append(out, BusyInterval{Start: start, End: end})
	}
	return out, nil
}

// CreateEvent inserts one event. Never retried: a successful-but-slow insert
// retried blindly would duplicate the booking.
func (g *GoogleGateway) CreateEvent(ctx context.Context, calendarID string, in EventInput) (*Event, error) {
	srv, err := g.service(ctx)
	if err != nil {
		return nil, err
	}

	ev := &calendar.Event{
		Summary:     in.Summary,
		Description: in.Description,
		Start:       &calendar.EventDateTime{DateTime: in.Start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: in.End.Format(time.RFC3339)},
	}
	if in.AttendeeEmail != "" {
		ev.Attendees = []*calendar.EventAttendee{{Email: in.AttendeeEmail}}
	}

	created, err := srv.Events.Insert(calendarID, ev).Context(ctx).Do()
	if err != nil {
		return nil, wrapGoogleErr("insert", err)
	}
	return fromGoogleEvent(created), nil
}

// GetEvent fetches one event by id.
func (g *GoogleGateway) GetEvent(ctx context.Context, calendarID, eventID string) (*Event, error) {
	srv, err := g.service(ctx)
	if err != nil {
		return nil, err
	}

	ev, err := srv.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, wrapGoogleErr("get", err)
	}
	// Cancelled events stay fetchable upstream but are gone for our purposes.
	if ev.Status == "cancelled" {
		return nil, ErrEventNotFound
	}
	return fromGoogleEvent(ev), nil
}

// DeleteEvent removes one event by id.
func (g *GoogleGateway) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	srv, err := g.service(ctx)
	if err != nil {
		return err
	}
	if err := srv.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return wrapGoogleErr("delete", err)
	}
	return nil
}

func fromGoogleEvent(ev *calendar.Event) *Event {
	out := &Event{
		ID:          ev.Id,
		Summary:     ev.Summary,
		Description: ev.Description,
		HTMLLink:    ev.HtmlLink,
	}
	if ev.Start != nil {
		if ev.Start.DateTime != "" {
			if t, err := time.Parse(time.RFC3339, ev.Start.DateTime); err == nil {
				out.Start = t
			}
		} else if ev.Start.Date != "" {
			if t, err := time.Parse("2006-01-02", ev.Start.Date); err == nil {
				out.Start = t
			}
		}
	}
	if ev.End != nil {
		if ev.End.DateTime != "" {
			if t, err := time.Parse(time.RFC3339, ev.End.DateTime); err == nil {
				out.End = t
			}
		} else if ev.End.Date != "" {
			if t, err := time.Parse("2006-01-02", ev.End.Date); err == nil {
				out.End = t
			}
		}
	}
	for _, a := range ev.Attendees {
		if a != nil && a.Email != "" {
			out.Attendees = append(out.Attendees, a.Email)
		}
	}
	return out
}

// wrapGoogleErr maps Google API failures onto the gateway error taxonomy.
func wrapGoogleErr(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone:
			return ErrEventNotFound
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return &GatewayError{Op: op, Retryable: false, Err: err}
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500:
			return &GatewayError{Op: op, Retryable: true, Err: err}
		default:
			return &GatewayError{Op: op, Retryable: false, Err: err}
		}
	}
	// Anything without an HTTP status is treated as a transport failure.
	return &GatewayError{Op: op, Retryable: true, Err: err}
}
