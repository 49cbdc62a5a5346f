// Package retry holds the reconnect discipline shared by the persistence and
// controller connection logic.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is returned by Do when a bounded policy runs out of attempts.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy describes how often an operation is attempted and how long to wait
// between attempts. MaxAttempts <= 0 means retry forever.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

// Fixed retries forever with a constant delay.
func Fixed(delay time.Duration) Policy {
	return Policy{Delay: delay, Multiplier: 1, MaxDelay: delay}
}

// Once attempts the operation a single time.
func Once() Policy {
	return Policy{MaxAttempts: 1}
}

// Unbounded reports whether the policy never gives up.
func (p Policy) Unbounded() bool { return p.MaxAttempts <= 0 }

// Backoff returns a fresh Backoff for one retry sequence.
func (p Policy) Backoff() *Backoff {
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	maxDelay := p.MaxDelay
	if maxDelay < p.Delay {
		maxDelay = p.Delay
	}
	return NewBackoff(p.Delay, maxDelay, mult)
}

// Do runs op until it succeeds, the policy is exhausted or ctx is done.
// notify, when non-nil, is called after each failed attempt with the delay
// that precedes the next one (zero when no further attempt follows).
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error, notify func(attempt int, err error, next time.Duration)) error {
	b := p.Backoff()
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		last := !p.Unbounded() && attempt >= p.MaxAttempts
		if notify != nil {
			next := b.CurrentDelay()
			if last {
				next = 0
			}
			notify(attempt, err, next)
		}
		if last {
			return fmt.Errorf("%w after %d attempt(s): %w", ErrExhausted, attempt, err)
		}
		if err := b.Wait(ctx); err != nil {
			return err
		}
	}
}
