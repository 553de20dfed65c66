package slotwatcher

import (
	"context"
	"math/rand"
	"time"
)

// retryBackoff doubles the wait between slot reload attempts up to a cap,
// with ±20% jitter so several processes watching one directory spread out.
// Not safe for concurrent use; each reload owns its own.
type retryBackoff struct {
	delay time.Duration
	max   time.Duration
}

func newRetryBackoff(initial, max time.Duration) *retryBackoff {
	return &retryBackoff{delay: initial, max: max}
}

// current is the delay the next wait will use, before jitter.
func (b *retryBackoff) current() time.Duration {
	return b.delay
}

// wait sleeps for the current delay or until ctx ends, then doubles the delay.
func (b *retryBackoff) wait(ctx context.Context) error {
	jitter := float64(b.delay) * 0.2 * (rand.Float64()*2 - 1)
	timer := time.NewTimer(time.Duration(float64(b.delay) + jitter))
	defer timer.Stop()

	b.delay = min(b.delay*2, b.max)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
