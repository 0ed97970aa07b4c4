package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartOfDay(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	assert.NoError(t, err)

	at := time.Date(2026, time.August, 29, 23, 59, 59, 999, loc)
	start := StartOfDay(at)

	assert.Equal(t, time.Date(2026, time.August, 29, 0, 0, 0, 0, loc), start)
	assert.Equal(t, loc, start.Location())
}

func TestStartOfNextDayCrossesMonthBoundary(t *testing.T) {
	at := time.Date(2026, time.August, 31, 13, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC), StartOfNextDay(at))
}

func TestStartOfDayIsIdempotent(t *testing.T) {
	at := time.Date(2026, time.August, 29, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, at, StartOfDay(at))
}
