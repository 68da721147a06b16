package scheduler

import (
	"context"
	"time"

	"TourScanner/internal/ports"
)

// SystemClock drives schedulers from wall time using a timer per pause.
type SystemClock struct{}

var _ ports.Clock = SystemClock{}

// Now returns the current wall time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sleep blocks for d or until ctx is done, whichever comes first.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
