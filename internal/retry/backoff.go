package retry

import (
	"context"
	"time"
)

// Backoff grows the delay between attempts by multiplier up to maxDelay.
type Backoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
	currentDelay time.Duration
}

func NewBackoff(initialDelay, maxDelay time.Duration, multiplier float64) *Backoff {
	return &Backoff{
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
		multiplier:   multiplier,
		currentDelay: initialDelay,
	}
}

// Wait sleeps for the current delay unless ctx is cancelled first, then grows
// the delay for the next call.
func (b *Backoff) Wait(ctx context.Context) error {
	if b.currentDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(b.currentDelay)
	defer t.Stop()

	select {
	case <-t.C:
		b.currentDelay = time.Duration(float64(b.currentDelay) * b.multiplier)
		if b.currentDelay > b.maxDelay {
			b.currentDelay = b.maxDelay
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Backoff) Reset() {
	b.currentDelay = b.initialDelay
}

func (b *Backoff) CurrentDelay() time.Duration {
	return b.currentDelay
}
