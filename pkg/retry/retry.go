// Package retry waits for infrastructure (PostgreSQL, Redis) to come up
// while the process starts. Core operations never retry.
package retry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Policy bounds how long a dependency is waited for.
type Policy struct {
	// Attempts includes the first call.
	Attempts int

	// InitialDelay doubles after every failed attempt up to MaxDelay.
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultPolicy is used for zero fields.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:     6,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
	}
}

func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	if p.Attempts <= 0 {
		p.Attempts = def.Attempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = def.InitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	return p
}

// Delay returns the wait after the given failed attempt (1-based), with up
// to 20% jitter so several instances do not reconnect in lockstep.
func (p Policy) Delay(attempt int) time.Duration {
	p = p.normalized()
	d := p.InitialDelay
	for i := 1; i < attempt && d < p.MaxDelay; i++ {
		d *= 2
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	jitter := time.Duration(float64(d) * 0.2 * (rand.Float64()*2 - 1))
	return d + jitter
}

// Notify is called before waiting for the next attempt.
type Notify func(attempt int, err error, wait time.Duration)

// Connect calls dial until it succeeds, the attempts run out or ctx is done.
// The last dial error is returned wrapped with the attempt count.
func Connect[T any](ctx context.Context, p Policy, dial func(context.Context) (T, error), notify Notify) (T, error) {
	p = p.normalized()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, fmt.Errorf("gave up after %d attempts: %w", attempt-1, lastErr)
			}
			return zero, err
		}

		v, err := dial(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if attempt == p.Attempts {
			break
		}

		wait := p.Delay(attempt)
		if notify != nil {
			notify(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("gave up after %d attempts: %w", attempt, lastErr)
		case <-timer.C:
		}
	}
	return zero, fmt.Errorf("gave up after %d attempts: %w", p.Attempts, lastErr)
}
