// Package expiry computes the remaining lifetime of shared photos. All
// functions are pure: the current time is an explicit argument, never read
// from a global clock.
package expiry

import (
	"fmt"
	"time"

	"github.com/photobooth/boothsync/internal/models"
)

// DefaultWindow is the lifetime of a shared photo after creation.
const DefaultWindow = 24 * time.Hour

// Compute derives ExpiryInfo for content created at createdAt, evaluated at
// now, with the given lifetime window. A zero createdAt is a caller error.
func Compute(createdAt, now time.Time, window time.Duration) (models.ExpiryInfo, error) {
	if createdAt.IsZero() {
		return models.ExpiryInfo{}, models.ErrZeroCreatedAt
	}

	expiresAt := createdAt.Add(window)
	remaining := expiresAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	}

	return models.ExpiryInfo{
		IsExpired:          !expiresAt.After(now),
		RemainingMs:        remaining.Milliseconds(),
		RemainingFormatted: FormatRemaining(remaining),
		ExpiresAt:          expiresAt,
	}, nil
}

// FormatRemaining renders a duration as zero-padded HH:MM:SS. Hours do not
// roll over into days; a 26-hour remainder formats as "26:00:00". Negative
// durations format as "00:00:00".
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
