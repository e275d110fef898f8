package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextWallClockHour(t *testing.T) {
	ref := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

	t.Run("later today", func(t *testing.T) {
		next := NextWallClockHour(ref, 15)
		assert.Equal(t, time.Date(2025, 6, 15, 15, 0, 0, 0, time.UTC), next)
	})

	t.Run("already passed rolls to tomorrow", func(t *testing.T) {
		next := NextWallClockHour(ref, 3)
		assert.Equal(t, time.Date(2025, 6, 16, 3, 0, 0, 0, time.UTC), next)
	})

	t.Run("exact hour rolls to tomorrow", func(t *testing.T) {
		exact := time.Date(2025, 6, 15, 3, 0, 0, 0, time.UTC)
		next := NextWallClockHour(exact, 3)
		assert.Equal(t, time.Date(2025, 6, 16, 3, 0, 0, 0, time.UTC), next)
	})

	t.Run("month rollover", func(t *testing.T) {
		eom := time.Date(2025, 6, 30, 23, 30, 0, 0, time.UTC)
		next := NextWallClockHour(eom, 2)
		assert.Equal(t, time.Date(2025, 7, 1, 2, 0, 0, 0, time.UTC), next)
	})
}

func TestUTCNow(t *testing.T) {
	now := UTCNow()
	assert.Equal(t, time.UTC, now.Location())
	assert.WithinDuration(t, time.Now().UTC(), now, time.Second)
}

func TestIsExpired(t *testing.T) {
	assert.True(t, IsExpired(UTCNow().Add(-time.Minute)))
	assert.False(t, IsExpired(UTCNow().Add(time.Minute)))
}
