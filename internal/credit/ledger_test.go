package credit_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"booking-service/internal/credit"
)

// MockStore is a mock implementation of the credit Store interface.
type MockStore struct {
	testifymock.Mock
}

func (m *MockStore) ListActiveCredits(ctx context.Context, userID string) ([]credit.PackageCredit, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]credit.PackageCredit), args.Error(1)
}

func (m *MockStore) AtomicDeduct(ctx context.Context, creditID string, hours int) (int, error) {
	args := m.Called(ctx, creditID, hours)
	return args.Int(0), args.Error(1)
}

func newLedger(store credit.Store) *credit.Ledger {
	return credit.NewLedger(store, zap.NewNop())
}

func TestDeductNoActivePackage(t *testing.T) {
	store := new(MockStore)
	store.On("ListActiveCredits", testifymock.Anything, "u1").
		Return([]credit.PackageCredit{}, nil)

	err := newLedger(store).Deduct(context.Background(), "u1", 1, "")
	assert.ErrorIs(t, err, credit.ErrNoActivePackage)
	store.AssertExpectations(t)
}

func TestDeductAutoSelectionPrefersFlushestCovering(t *testing.T) {
	// Two active packages with 5 and 2 remaining; a 3-hour deduction must
	// come from the 5-hour package.
	store := new(MockStore)
	store.On("ListActiveCredits", testifymock.Anything, "u1").
		Return([]credit.PackageCredit{
			{ID: "small", UserID: "u1", RemainingHours: 2, Active: true},
			{ID: "big", UserID: "u1", RemainingHours: 5, Active: true},
		}, nil)
	store.On("AtomicDeduct", testifymock.Anything, "big", 3).Return(3, nil)

	err := newLedger(store).Deduct(context.Background(), "u1", 3, "")
	require.NoError(t, err)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "AtomicDeduct", testifymock.Anything, "small", testifymock.Anything)
}

func TestDeductPartialDrainsLargest(t *testing.T) {
	// Nobody can cover 4 hours: the largest balance is drained entirely and
	// the deduction still succeeds.
	store := new(MockStore)
	store.On("ListActiveCredits", testifymock.Anything, "u1").
		Return([]credit.PackageCredit{
			{ID: "a", UserID: "u1", RemainingHours: 3, Active: true},
			{ID: "b", UserID: "u1", RemainingHours: 1, Active: true},
		}, nil)
	store.On("AtomicDeduct", testifymock.Anything, "a", 4).Return(3, nil)

	err := newLedger(store).Deduct(context.Background(), "u1", 4, "")
	assert.NoError(t, err, "partial deduction is best-effort, not a failure")
	store.AssertExpectations(t)
}

func TestDeductPreferredPackageUsedExclusively(t *testing.T) {
	store := new(MockStore)
	store.On("ListActiveCredits", testifymock.Anything, "u1").
		Return([]credit.PackageCredit{
			{ID: "big", UserID: "u1", RemainingHours: 10, Active: true},
			{ID: "pref", UserID: "u1", RemainingHours: 2, Active: true},
		}, nil)
	store.On("AtomicDeduct", testifymock.Anything, "pref", 2).Return(2, nil)

	err := newLedger(store).Deduct(context.Background(), "u1", 2, "pref")
	require.NoError(t, err)
	store.AssertNotCalled(t, "AtomicDeduct", testifymock.Anything, "big", testifymock.Anything)
}

func TestDeductPreferredPackageInvalidFallsBack(t *testing.T) {
	// A preferred id that is not among the user's usable packages is not a
	// hard error; auto-selection takes over.
	store := new(MockStore)
	store.On("ListActiveCredits", testifymock.Anything, "u1").
		Return([]credit.PackageCredit{
			{ID: "big", UserID: "u1", RemainingHours: 10, Active: true},
		}, nil)
	store.On("AtomicDeduct", testifymock.Anything, "big", 2).Return(2, nil)

	err := newLedger(store).Deduct(context.Background(), "u1", 2, "someone-elses")
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestDeductConcurrentDrainSurfacesInsufficient(t *testing.T) {
	// The balance seen at selection time was drained by a concurrent
	// booking before the atomic update landed.
	store := new(MockStore)
	store.On("ListActiveCredits", testifymock.Anything, "u1").
		Return([]credit.PackageCredit{
			{ID: "a", UserID: "u1", RemainingHours: 2, Active: true},
		}, nil)
	store.On("AtomicDeduct", testifymock.Anything, "a", 2).Return(0, nil)

	err := newLedger(store).Deduct(context.Background(), "u1", 2, "")
	assert.ErrorIs(t, err, credit.ErrInsufficientCredit)
}

func TestDeductStoreError(t *testing.T) {
	store := new(MockStore)
	boom := errors.New("connection refused")
	store.On("ListActiveCredits", testifymock.Anything, "u1").
		Return([]credit.PackageCredit{}, boom)

	err := newLedger(store).Deduct(context.Background(), "u1", 1, "")
	assert.ErrorIs(t, err, boom)
}

func TestDeductSkipsInactiveAndEmpty(t *testing.T) {
	store := new(MockStore)
	store.On("ListActiveCredits", testifymock.Anything, "u1").
		Return([]credit.PackageCredit{
			{ID: "inactive", UserID: "u1", RemainingHours: 5, Active: false},
			{ID: "empty", UserID: "u1", RemainingHours: 0, Active: true},
		}, nil)

	err := newLedger(store).Deduct(context.Background(), "u1", 1, "")
	assert.ErrorIs(t, err, credit.ErrNoActivePackage)
}
