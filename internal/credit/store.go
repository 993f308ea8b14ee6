package credit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is the Postgres-backed credit store.
type PgStore struct {
	DB *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{DB: db}
}

func (s *PgStore) ListActiveCredits(ctx context.Context, userID string) ([]PackageCredit, error) {
	q := `SELECT id, user_id, package_id, total_hours, remaining_hours, active, created_at
	      FROM package_credits
	      WHERE user_id=$1 AND active AND remaining_hours > 0
	      ORDER BY created_at`
	rows, err := s.DB.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list credits: %w", err)
	}
	defer rows.Close()

	var out []PackageCredit
	for rows.Next() {
		var c PackageCredit
		if err := rows.Scan(&c.ID, &c.UserID, &c.PackageID, &c.TotalHours,
			&c.RemainingHours, &c.Active, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AtomicDeduct is a single conditional update: the balance is decremented
// and clamped at zero in one statement, so concurrent deductions against
// the same row cannot double-spend.
func (s *PgStore) AtomicDeduct(ctx context.Context, creditID string, hours int) (int, error) {
	// One statement, row-locked: decrement clamped at zero, returning how
	// much actually came off the balance.
	q := `WITH prev AS (
	        SELECT remaining_hours FROM package_credits
	        WHERE id=$1 AND active FOR UPDATE
	      )
	      UPDATE package_credits c
	      SET remaining_hours = GREATEST(c.remaining_hours - $2, 0)
	      FROM prev
	      WHERE c.id=$1
	      RETURNING prev.remaining_hours - c.remaining_hours`
	var deducted int
	if err := s.DB.QueryRow(ctx, q, creditID, hours).Scan(&deducted); err != nil {
		return 0, fmt.Errorf("deduct credit %s: %w", creditID, err)
	}
	return deducted, nil
}

// Grant creates a new package credit when a payment is approved.
func (s *PgStore) Grant(ctx context.Context, userID, packageID string, hours int) (*PackageCredit, error) {
	c := PackageCredit{
		ID:             uuid.NewString(),
		UserID:         userID,
		PackageID:      packageID,
		TotalHours:     hours,
		RemainingHours: hours,
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	}
	q := `INSERT INTO package_credits (id, user_id, package_id, total_hours, remaining_hours, active, created_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7)`
	if _, err := s.DB.Exec(ctx, q, c.ID, c.UserID, c.PackageID, c.TotalHours,
		c.RemainingHours, c.Active, c.CreatedAt); err != nil {
		return nil, fmt.Errorf("grant credit: %w", err)
	}
	return &c, nil
}

// ListCredits returns all of a user's credits, exhausted ones included.
func (s *PgStore) ListCredits(ctx context.Context, userID string) ([]PackageCredit, error) {
	q := `SELECT id, user_id, package_id, total_hours, remaining_hours, active, created_at
	      FROM package_credits WHERE user_id=$1 ORDER BY created_at`
	rows, err := s.DB.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list credits: %w", err)
	}
	defer rows.Close()

	var out []PackageCredit
	for rows.Next() {
		var c PackageCredit
		if err := rows.Scan(&c.ID, &c.UserID, &c.PackageID, &c.TotalHours,
			&c.RemainingHours, &c.Active, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
