package booking

import (
	"errors"
	"fmt"

	"booking-service/internal/calendar"
)

var (
	// ErrInvalidRequest marks validation failures; retry with corrected
	// input.
	ErrInvalidRequest = errors.New("invalid booking request")

	// ErrStaleSlot means the pre-commit re-validation found a requested slot
	// no longer free: "this time was just taken, please pick another".
	ErrStaleSlot = errors.New("slot no longer available")

	// ErrDuplicateRequest means the idempotency key was already used inside
	// the dedup window.
	ErrDuplicateRequest = errors.New("duplicate booking submission")

	// ErrRulesUnavailable means the schedule store is unreachable and the
	// operation is a write, which degraded mode rejects.
	ErrRulesUnavailable = errors.New("availability rules unavailable")
)

// PartialBookingError reports a multi-slot request where some events were
// created before a later one failed. Already-created events are not rolled
// back; the caller tells the customer exactly which hours went through.
type PartialBookingError struct {
	Created    []calendar.Event
	FailedHour int
	Err        error
}

func (e *PartialBookingError) Error() string {
	return fmt.Sprintf("booking partially completed: %d event(s) created, slot %02d:00 failed: %v",
		len(e.Created), e.FailedHour, e.Err)
}

func (e *PartialBookingError) Unwrap() error { return e.Err }
