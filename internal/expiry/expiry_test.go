package expiry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photobooth/boothsync/internal/models"
)

func TestCompute(t *testing.T) {
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("full window remains at creation instant", func(t *testing.T) {
		info, err := Compute(created, created, DefaultWindow)

		require.NoError(t, err)
		assert.False(t, info.IsExpired)
		assert.Equal(t, DefaultWindow.Milliseconds(), info.RemainingMs)
		assert.Equal(t, "24:00:00", info.RemainingFormatted)
		assert.Equal(t, created.Add(DefaultWindow), info.ExpiresAt)
	})

	t.Run("expired past the window", func(t *testing.T) {
		info, err := Compute(created, created.Add(25*time.Hour), DefaultWindow)

		require.NoError(t, err)
		assert.True(t, info.IsExpired)
		assert.Equal(t, int64(0), info.RemainingMs)
		assert.Equal(t, "00:00:00", info.RemainingFormatted)
	})

	t.Run("expired exactly at the boundary", func(t *testing.T) {
		info, err := Compute(created, created.Add(DefaultWindow), DefaultWindow)

		require.NoError(t, err)
		assert.True(t, info.IsExpired)
		assert.Equal(t, int64(0), info.RemainingMs)
		assert.Equal(t, "00:00:00", info.RemainingFormatted)
	})

	t.Run("partial window remains", func(t *testing.T) {
		info, err := Compute(created, created.Add(10*time.Hour), DefaultWindow)

		require.NoError(t, err)
		assert.False(t, info.IsExpired)
		assert.Equal(t, (14 * time.Hour).Milliseconds(), info.RemainingMs)
		assert.Equal(t, "14:00:00", info.RemainingFormatted)
	})

	t.Run("sub-second remainder rounds down to whole seconds", func(t *testing.T) {
		info, err := Compute(created, created.Add(DefaultWindow-1500*time.Millisecond), DefaultWindow)

		require.NoError(t, err)
		assert.False(t, info.IsExpired)
		assert.Equal(t, int64(1500), info.RemainingMs)
		assert.Equal(t, "00:00:01", info.RemainingFormatted)
	})

	t.Run("rejects zero created-at", func(t *testing.T) {
		_, err := Compute(time.Time{}, time.Now(), DefaultWindow)
		assert.ErrorIs(t, err, models.ErrZeroCreatedAt)
	})

	t.Run("custom window", func(t *testing.T) {
		info, err := Compute(created, created, 2*time.Hour)

		require.NoError(t, err)
		assert.Equal(t, "02:00:00", info.RemainingFormatted)
		assert.Equal(t, created.Add(2*time.Hour), info.ExpiresAt)
	})
}

func TestFormatRemaining(t *testing.T) {
	t.Run("formats hours minutes seconds zero-padded", func(t *testing.T) {
		assert.Equal(t, "01:02:05", FormatRemaining(3725000*time.Millisecond))
	})

	t.Run("hours accumulate past 24 without day rollover", func(t *testing.T) {
		assert.Equal(t, "26:00:00", FormatRemaining(26*time.Hour))
	})

	t.Run("zero duration", func(t *testing.T) {
		assert.Equal(t, "00:00:00", FormatRemaining(0))
	})

	t.Run("negative clamps to zero", func(t *testing.T) {
		assert.Equal(t, "00:00:00", FormatRemaining(-time.Hour))
	})

	t.Run("truncates fractional seconds", func(t *testing.T) {
		assert.Equal(t, "00:00:59", FormatRemaining(59*time.Second+900*time.Millisecond))
	})
}
