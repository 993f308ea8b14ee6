package rules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// The schedule is a singleton document; one business per deployment.
const singletonID = 1

// Store persists the business schedule in Postgres.
type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// Get returns the current schedule, creating it with defaults on first read.
func (s *Store) Get(ctx context.Context) (Rules, error) {
	q := `SELECT working_days, start_time, end_time, vacations, calendar_id
	      FROM availability_rules WHERE id=$1`
	var r Rules
	err := s.DB.QueryRow(ctx, q, singletonID).Scan(
		&r.WorkingDays, &r.Hours.Start, &r.Hours.End, &r.Vacations, &r.CalendarID)
	if errors.Is(err, pgx.ErrNoRows) {
		r = Defaults()
		if err := s.insertDefaults(ctx, r); err != nil {
			return Rules{}, err
		}
		return r, nil
	}
	if err != nil {
		return Rules{}, fmt.Errorf("load availability rules: %w", err)
	}
	if r.CalendarID == "" {
		r.CalendarID = "primary"
	}
	return r, nil
}

// Put replaces the schedule. The row is upserted, never deleted.
func (s *Store) Put(ctx context.Context, r Rules) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.CalendarID == "" {
		r.CalendarID = "primary"
	}
	q := `INSERT INTO availability_rules (id, working_days, start_time, end_time, vacations, calendar_id, updated_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7)
	      ON CONFLICT (id) DO UPDATE SET
	        working_days=EXCLUDED.working_days,
	        start_time=EXCLUDED.start_time,
	        end_time=EXCLUDED.end_time,
	        vacations=EXCLUDED.vacations,
	        calendar_id=EXCLUDED.calendar_id,
	        updated_at=EXCLUDED.updated_at`
	_, err := s.DB.Exec(ctx, q, singletonID,
		r.WorkingDays, r.Hours.Start, r.Hours.End, r.Vacations, r.CalendarID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save availability rules: %w", err)
	}
	return nil
}

func (s *Store) insertDefaults(ctx context.Context, r Rules) error {
	q := `INSERT INTO availability_rules (id, working_days, start_time, end_time, vacations, calendar_id)
	      VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (id) DO NOTHING`
	_, err := s.DB.Exec(ctx, q, singletonID,
		r.WorkingDays, r.Hours.Start, r.Hours.End, r.Vacations, r.CalendarID)
	if err != nil {
		return fmt.Errorf("initialize availability rules: %w", err)
	}
	return nil
}
