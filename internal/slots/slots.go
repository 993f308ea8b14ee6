package slots

import (
	"time"

	"booking-service/internal/calendar"
	"booking-service/internal/rules"
)

// Slot is a single one-hour bookable window on a given date. Derived per
// request and never cached: the external busy intervals change continuously.
type Slot struct {
	Date      string `json:"date"` // "YYYY-MM-DD"
	StartHour int    `json:"start_hour"`
	Available bool   `json:"available"`
}

// Generate expands the business schedule for one date into candidate slots
// and marks each against the supplied busy intervals and the request time.
//
// Non-working weekdays and vacation dates produce no slots at all. A slot is
// unavailable when its [h, h+1) window overlaps a busy interval (half-open
// overlap) or does not start strictly after now. Slots come back in
// ascending hour order.
func Generate(r rules.Rules, busy []calendar.BusyInterval, date time.Time, now time.Time) []Slot {
	if !r.WorksOn(date.Weekday()) {
		return nil
	}
	dateStr := date.Format("2006-01-02")
	if r.OnVacation(dateStr) {
		return nil
	}

	startHour, endHour := r.HourWindow()
	if startHour >= endHour {
		return nil
	}

	year, month, day := date.Date()
	loc := date.Location()

	out := make([]Slot, 0, endHour-startHour)
	for h := startHour; h < endHour; h++ {
		slotStart := time.Date(year, month, day, h, 0, 0, 0, loc)
		slotEnd := slotStart.Add(time.Hour)

		available := slotStart.After(now)
		if available {
			for _, b := range busy {
				if b.Overlaps(slotStart, slotEnd) {
					available = false
					break
				}
			}
		}
		out = append(out, Slot{Date: dateStr, StartHour: h, Available: available})
	}
	return out
}
