package notify

import "context"

// BookingDetails carries what the customer-facing messages need.
type BookingDetails struct {
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Date          string // "YYYY-MM-DD"
	Hours         []int
}

// Sink dispatches customer and admin notifications. Failures are the
// caller's to log; a booking is never failed over a notification.
type Sink interface {
	SendBookingConfirmation(ctx context.Context, d BookingDetails) error
	SendAdminNotification(ctx context.Context, d BookingDetails, eventID string) error
	SendCancellationNotice(ctx context.Context, email, name, date, note string) error
}
