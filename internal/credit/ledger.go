package credit

import (
	"context"
	"sort"

	"go.uber.org/zap"
)

// Ledger applies the package-selection policy on top of the atomic store.
type Ledger struct {
	Store Store
	Log   *zap.Logger
}

func NewLedger(store Store, log *zap.Logger) *Ledger {
	return &Ledger{Store: store, Log: log}
}

// Deduct draws hours from the user's packages.
//
// When preferredPackageID names one of the user's active, non-empty packages
// it is used exclusively. Otherwise candidates are sorted by remaining
// balance descending and the first one that can cover the full amount wins;
// if none can, the flushest package is drained entirely as a best-effort
// partial deduction (the business prefers the booking to succeed over strict
// prepayment enforcement).
func (l *Ledger) Deduct(ctx context.Context, userID string, hours int, preferredPackageID string) error {
	candidates, err := l.Store.ListActiveCredits(ctx, userID)
	if err != nil {
		return err
	}

	active := candidates[:0]
	for _, c := range candidates {
		if c.Active && c.RemainingHours > 0 {
			active = append(active, c)
		}
	}
	if len(active) == 0 {
		return ErrNoActivePackage
	}

	if preferredPackageID != "" {
		for _, c := range active {
			if c.ID == preferredPackageID {
				return l.deductFrom(ctx, c, hours)
			}
		}
		l.Log.Warn("preferred package not usable, falling back to auto-selection",
			zap.String("user_id", userID), zap.String("package", preferredPackageID))
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].RemainingHours > active[j].RemainingHours
	})

	for _, c := range active {
		if c.RemainingHours >= hours {
			return l.deductFrom(ctx, c, hours)
		}
	}

	// Nobody can cover the full amount: drain the largest balance.
	return l.deductFrom(ctx, active[0], hours)
}

func (l *Ledger) deductFrom(ctx context.Context, c PackageCredit, hours int) error {
	deducted, err := l.Store.AtomicDeduct(ctx, c.ID, hours)
	if err != nil {
		return err
	}
	if deducted == 0 {
		return ErrInsufficientCredit
	}
	if deducted < hours {
		l.Log.Warn("partial credit deduction, requested amount exceeded balance",
			zap.String("user_id", c.UserID),
			zap.String("credit_id", c.ID),
			zap.Int("requested", hours),
			zap.Int("deducted", deducted))
	}
	return nil
}
