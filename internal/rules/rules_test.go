package rules_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking-service/internal/rules"
)

func TestDefaults(t *testing.T) {
	r := rules.Defaults()
	require.NoError(t, r.Validate())
	assert.Equal(t, []int{1, 2, 3, 4, 5}, r.WorkingDays)
	assert.Equal(t, "primary", r.CalendarID)

	start, end := r.HourWindow()
	assert.Equal(t, 9, start)
	assert.Equal(t, 17, end)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*rules.Rules)
		ok     bool
	}{
		{"defaults", func(r *rules.Rules) {}, true},
		{"no working days", func(r *rules.Rules) { r.WorkingDays = nil }, false},
		{"weekday out of range", func(r *rules.Rules) { r.WorkingDays = []int{7} }, false},
		{"start off hour boundary", func(r *rules.Rules) { r.Hours.Start = "09:30" }, false},
		{"end before start", func(r *rules.Rules) { r.Hours = rules.WorkingHours{Start: "17:00", End: "09:00"} }, false},
		{"end equals start", func(r *rules.Rules) { r.Hours = rules.WorkingHours{Start: "09:00", End: "09:00"} }, false},
		{"garbage time", func(r *rules.Rules) { r.Hours.Start = "morning" }, false},
		{"bad vacation date", func(r *rules.Rules) { r.Vacations = []string{"10/03/2026"} }, false},
		{"valid vacation date", func(r *rules.Rules) { r.Vacations = []string{"2026-03-10"} }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := rules.Defaults()
			tc.mutate(&r)
			err := r.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestWorksOn(t *testing.T) {
	r := rules.Rules{WorkingDays: []int{0, 6}}
	assert.True(t, r.WorksOn(time.Sunday))
	assert.True(t, r.WorksOn(time.Saturday))
	assert.False(t, r.WorksOn(time.Wednesday))
}

func TestOnVacation(t *testing.T) {
	r := rules.Rules{Vacations: []string{"2026-07-01", "2026-07-02"}}
	assert.True(t, r.OnVacation("2026-07-01"))
	assert.False(t, r.OnVacation("2026-07-03"))
}

func TestHourWindowMalformed(t *testing.T) {
	r := rules.Rules{Hours: rules.WorkingHours{Start: "bogus", End: "17:00"}}
	start, end := r.HourWindow()
	assert.Equal(t, start, end, "malformed window must collapse to empty")
}
