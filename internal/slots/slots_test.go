package slots_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking-service/internal/calendar"
	"booking-service/internal/rules"
	"booking-service/internal/slots"
)

func weekdayRules() rules.Rules {
	return rules.Rules{
		WorkingDays: []int{1, 2, 3, 4, 5},
		Hours:       rules.WorkingHours{Start: "09:00", End: "17:00"},
		Vacations:   []string{},
		CalendarID:  "primary",
	}
}

// 2026-03-10 is a Tuesday.
var (
	tuesday  = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	dayPrior = time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
)

func busyAt(h, m, endH, endM int) calendar.BusyInterval {
	return calendar.BusyInterval{
		Start: time.Date(2026, 3, 10, h, m, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 10, endH, endM, 0, 0, time.UTC),
	}
}

func TestGenerateFullDay(t *testing.T) {
	busy := []calendar.BusyInterval{busyAt(13, 0, 14, 0)}
	got := slots.Generate(weekdayRules(), busy, tuesday, dayPrior)

	require.Len(t, got, 8)
	for i, s := range got {
		assert.Equal(t, "2026-03-10", s.Date)
		assert.Equal(t, 9+i, s.StartHour, "slots must be in ascending hour order")
		assert.GreaterOrEqual(t, s.StartHour, 9)
		assert.Less(t, s.StartHour, 17)
		if s.StartHour == 13 {
			assert.False(t, s.Available, "13:00 overlaps the busy interval")
		} else {
			assert.True(t, s.Available, "hour %d should be free", s.StartHour)
		}
	}
}

func TestGenerateNonWorkingDay(t *testing.T) {
	saturday := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	got := slots.Generate(weekdayRules(), nil, saturday, dayPrior)
	assert.Empty(t, got)
}

func TestGenerateVacation(t *testing.T) {
	r := weekdayRules()
	r.Vacations = []string{"2026-03-10"}
	busy := []calendar.BusyInterval{busyAt(13, 0, 14, 0)}
	got := slots.Generate(r, busy, tuesday, dayPrior)
	assert.Empty(t, got, "vacation dates yield no slots regardless of busy intervals")
}

func TestGenerateHalfOpenOverlap(t *testing.T) {
	// Busy [10:30, 11:30) knocks out both the 10:00 and 11:00 slots but
	// leaves 09:00 untouched.
	busy := []calendar.BusyInterval{busyAt(10, 30, 11, 30)}
	got := slots.Generate(weekdayRules(), busy, tuesday, dayPrior)

	require.Len(t, got, 8)
	byHour := map[int]bool{}
	for _, s := range got {
		byHour[s.StartHour] = s.Available
	}
	assert.True(t, byHour[9])
	assert.False(t, byHour[10])
	assert.False(t, byHour[11])
	assert.True(t, byHour[12])
}

func TestGenerateBusyEndTouchingSlotStart(t *testing.T) {
	// Busy [09:00, 10:00) must not mark the 10:00 slot: intervals are
	// half-open.
	busy := []calendar.BusyInterval{busyAt(9, 0, 10, 0)}
	got := slots.Generate(weekdayRules(), busy, tuesday, dayPrior)

	require.Len(t, got, 8)
	assert.False(t, got[0].Available)
	assert.True(t, got[1].Available)
}

func TestGeneratePastTimeExclusion(t *testing.T) {
	// Request arrives mid-day: slots at or before now are never available.
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	got := slots.Generate(weekdayRules(), nil, tuesday, now)

	require.Len(t, got, 8)
	for _, s := range got {
		if s.StartHour <= 12 {
			assert.False(t, s.Available, "hour %d is not strictly in the future", s.StartHour)
		} else {
			assert.True(t, s.Available, "hour %d is in the future", s.StartHour)
		}
	}
}

func TestGenerateDegenerateWindow(t *testing.T) {
	r := weekdayRules()
	r.Hours = rules.WorkingHours{Start: "17:00", End: "09:00"}
	got := slots.Generate(r, nil, tuesday, dayPrior)
	assert.Empty(t, got, "inverted window yields no slots, not an error")
}
