package rules

import (
	"fmt"
	"time"
)

// WorkingHours is the daily booking window as wall-clock "HH:MM" strings.
// Slot granularity is one hour, so both ends must sit on hour boundaries.
type WorkingHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Rules is the business's recurring schedule: which weekdays accept
// bookings, the daily hour window, and ad hoc blackout dates.
type Rules struct {
	WorkingDays []int        `json:"working_days"` // 0=Sunday .. 6=Saturday
	Hours       WorkingHours `json:"working_hours"`
	Vacations   []string     `json:"vacations"` // "YYYY-MM-DD"
	CalendarID  string       `json:"calendar_id"`
}

// Defaults is the schedule a business gets before an admin configures one:
// Monday through Friday, nine to five, primary calendar.
func Defaults() Rules {
	return Rules{
		WorkingDays: []int{1, 2, 3, 4, 5},
		Hours:       WorkingHours{Start: "09:00", End: "17:00"},
		Vacations:   []string{},
		CalendarID:  "primary",
	}
}

// WorksOn reports whether the given weekday accepts bookings.
func (r Rules) WorksOn(day time.Weekday) bool {
	for _, d := range r.WorkingDays {
		if d == int(day) {
			return true
		}
	}
	return false
}

// OnVacation reports whether the given "YYYY-MM-DD" date is blacked out.
func (r Rules) OnVacation(date string) bool {
	for _, v := range r.Vacations {
		if v == date {
			return true
		}
	}
	return false
}

// HourWindow returns the [start, end) hour bounds of the booking window.
// A malformed or degenerate window yields start >= end, which callers treat
// as "no slots" rather than an error.
func (r Rules) HourWindow() (start, end int) {
	start, err := parseHour(r.Hours.Start)
	if err != nil {
		return 0, 0
	}
	end, err = parseHour(r.Hours.End)
	if err != nil {
		return 0, 0
	}
	return start, end
}

// Validate checks the constraints an admin write must satisfy.
func (r Rules) Validate() error {
	if len(r.WorkingDays) == 0 {
		return fmt.Errorf("working_days must not be empty")
	}
	for _, d := range r.WorkingDays {
		if d < 0 || d > 6 {
			return fmt.Errorf("working_days contains invalid weekday %d", d)
		}
	}
	start, err := parseHour(r.Hours.Start)
	if err != nil {
		return fmt.Errorf("working_hours.start: %w", err)
	}
	end, err := parseHour(r.Hours.End)
	if err != nil {
		return fmt.Errorf("working_hours.end: %w", err)
	}
	if end <= start {
		return fmt.Errorf("working_hours.end must be after working_hours.start")
	}
	for _, v := range r.Vacations {
		if _, err := time.Parse("2006-01-02", v); err != nil {
			return fmt.Errorf("invalid vacation date %q", v)
		}
	}
	return nil
}

// parseHour parses "HH:MM" and requires an exact hour boundary.
func parseHour(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time string: %s", s)
	}
	if t.Minute() != 0 {
		return 0, fmt.Errorf("time %s must be on an hour boundary", s)
	}
	return t.Hour(), nil
}
