package lifecycle

import (
	"context"
	"time"
)

// Default health polling budgets.
const (
	DefaultInterval          = 5 * time.Second
	DefaultInfraAttempts     = 9
	DefaultComponentAttempts = 4
)

// Clock sleeps between probes. Tests substitute a clock that returns
// immediately.
type Clock interface {
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RealClock sleeps on the wall clock.
var RealClock Clock = realClock{}

// Strategy computes the delay before a retry attempt.
type Strategy interface {
	// Delay returns how long to wait before retry attempt n (1-indexed).
	Delay(attempt int) time.Duration
}

// Constant always returns the same delay regardless of attempt number.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant backoff strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay returns the fixed interval.
func (c *Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// Policy bounds how often an instance is probed.
type Policy struct {
	Attempts int
	Backoff  Strategy
}

// poll runs probe up to p.Attempts times, sleeping between attempts but not
// after the last one. It returns the number of attempts made and the last
// probe error, or the context error if a sleep was interrupted.
func poll(ctx context.Context, clock Clock, p Policy, probe func(context.Context) error) (int, error) {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = probe(ctx); err == nil {
			return attempt, nil
		}
		if attempt == attempts {
			return attempt, err
		}
		if sleepErr := clock.Sleep(ctx, p.Backoff.Delay(attempt)); sleepErr != nil {
			return attempt, sleepErr
		}
	}
	return attempts, err
}
