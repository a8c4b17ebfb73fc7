// internal/clock/clock.go
package clock

import (
	"context"
	"time"
)

// Clock abstracts the subset of package time the duty-cycle loops use.
// Tests substitute a fake to control apparent time.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

type wallClock struct{}

// Now indirects time.Now.
func (wallClock) Now() time.Time { return time.Now() }

// Sleep indirects time.NewTimer with cancellation.
func (wallClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		// yield
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Wall is the real clock.
var Wall Clock = wallClock{}

// Millis returns t as a 32-bit millisecond timebase relative to epoch.
// Wraps like a microcontroller millis() counter.
func Millis(epoch, t time.Time) uint32 {
	return uint32(t.Sub(epoch) / time.Millisecond)
}
