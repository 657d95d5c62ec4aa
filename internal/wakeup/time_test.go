package wakeup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextFireInstantTodayWhenNotYetPassed(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, time.July, 31, 6, 0, 0, 0, loc)

	fireAt, err := nextFireInstant(now, loc, "07:30")
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.July, 31, 7, 30, 0, 0, loc), fireAt)
}

func TestNextFireInstantTomorrowWhenAlreadyPassed(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, time.July, 31, 8, 0, 0, 0, loc)

	fireAt, err := nextFireInstant(now, loc, "07:30")
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.August, 1, 7, 30, 0, 0, loc), fireAt)
}

func TestNextFireInstantRejectsMalformedTime(t *testing.T) {
	_, err := nextFireInstant(time.Now(), time.UTC, "7:3pm")
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestLocalDateForFormatsInZone(t *testing.T) {
	loc, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)
	now := time.Date(2026, time.July, 31, 5, 0, 0, 0, time.UTC) // 23:00 MDT prior day
	require.Equal(t, "2026-07-30", localDateFor(now, loc))
}
