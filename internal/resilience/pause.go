package resilience

import (
	"context"
	"time"
)

// Pause blocks for d or until ctx is done, whichever comes first. A
// non-positive d returns immediately with ctx's error, if any.
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
