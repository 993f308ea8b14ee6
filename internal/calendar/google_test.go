package calendar

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	calendarapi "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

func TestBusyIntervalOverlaps(t *testing.T) {
	at := func(h, m int) time.Time {
		return time.Date(2026, 3, 10, h, m, 0, 0, time.UTC)
	}
	busy := BusyInterval{Start: at(10, 30), End: at(11, 30)}

	assert.True(t, busy.Overlaps(at(10, 0), at(11, 0)))
	assert.True(t, busy.Overlaps(at(11, 0), at(12, 0)))
	assert.False(t, busy.Overlaps(at(9, 0), at(10, 0)))
	// Half-open: touching endpoints do not overlap.
	assert.False(t, busy.Overlaps(at(11, 30), at(12, 30)))
	assert.False(t, busy.Overlaps(at(9, 30), at(10, 30)))
}

func TestNormalizeBusy(t *testing.T) {
	periods := []*calendarapi.TimePeriod{
		{Start: "2026-03-10T13:00:00Z", End: "2026-03-10T14:00:00Z"},
		nil,
		{Start: "2026-03-10T15:00:00Z", End: "2026-03-10T15:00:00Z"}, // zero length, dropped
	}
	out, err := normalizeBusy(periods)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 13, out[0].Start.Hour())
}

func TestNormalizeBusyMalformed(t *testing.T) {
	_, err := normalizeBusy([]*calendarapi.TimePeriod{
		{Start: "yesterday", End: "2026-03-10T14:00:00Z"},
	})
	require.Error(t, err)
	assert.False(t, IsRetryable(err), "malformed payloads are not worth retrying")
}

func TestWrapGoogleErr(t *testing.T) {
	cases := []struct {
		name      string
		code      int
		notFound  bool
		retryable bool
	}{
		{"not found", http.StatusNotFound, true, false},
		{"gone", http.StatusGone, true, false},
		{"unauthorized", http.StatusUnauthorized, false, false},
		{"forbidden", http.StatusForbidden, false, false},
		{"rate limited", http.StatusTooManyRequests, false, true},
		{"server error", http.StatusInternalServerError, false, true},
		{"bad request", http.StatusBadRequest, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := wrapGoogleErr("op", &googleapi.Error{Code: tc.code})
			if tc.notFound {
				assert.ErrorIs(t, err, ErrEventNotFound)
				return
			}
			assert.Equal(t, tc.retryable, IsRetryable(err))
		})
	}

	t.Run("transport failure", func(t *testing.T) {
		err := wrapGoogleErr("op", errors.New("connection reset"))
		assert.True(t, IsRetryable(err))
	})
}

func TestFromGoogleEvent(t *testing.T) {
	ev := fromGoogleEvent(&calendarapi.Event{
		Id:      "ev1",
		Summary: "Jordan Lee",
		Start:   &calendarapi.EventDateTime{DateTime: "2026-03-10T10:00:00Z"},
		End:     &calendarapi.EventDateTime{DateTime: "2026-03-10T11:00:00Z"},
		Attendees: []*calendarapi.EventAttendee{
			{Email: "jordan@example.com"},
			{Email: ""},
		},
	})
	assert.Equal(t, "ev1", ev.ID)
	assert.Equal(t, 10, ev.Start.Hour())
	assert.Equal(t, []string{"jordan@example.com"}, ev.Attendees)
}
