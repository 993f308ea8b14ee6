package credit

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoActivePackage means the user holds no active package with a
	// positive balance. The booking flow logs this and proceeds.
	ErrNoActivePackage = errors.New("no active package with remaining hours")

	// ErrInsufficientCredit means the selected package was drained between
	// selection and the atomic deduction (concurrent bookings by the same
	// user).
	ErrInsufficientCredit = errors.New("insufficient credit")
)

// PackageCredit is a purchased balance of lesson-hours. TotalHours is fixed
// at grant time; RemainingHours only decreases, via Store.AtomicDeduct.
// Rows are never deleted; exhausted packages stay for history.
type PackageCredit struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	PackageID      string    `json:"package_id"`
	TotalHours     int       `json:"total_hours"`
	RemainingHours int       `json:"remaining_hours"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
}

// Store is the persistence boundary for package credits. AtomicDeduct must
// be a single conditional update at the storage layer, never
// fetch-then-set, so concurrent deductions cannot double-spend.
type Store interface {
	ListActiveCredits(ctx context.Context, userID string) ([]PackageCredit, error)
	// AtomicDeduct subtracts up to hours from the credit's balance, clamped
	// at zero, and returns the amount actually deducted.
	AtomicDeduct(ctx context.Context, creditID string, hours int) (int, error)
}
