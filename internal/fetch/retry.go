package fetch

import (
	"context"
	"time"
)

// Policy bounds a retried operation: how many attempts, the fixed delay
// between them, and which failures are worth retrying.
type Policy struct {
	Attempts int
	Delay    time.Duration

	// Retryable decides whether a failure should be retried.
	// Nil means every failure is retryable.
	Retryable func(error) bool
}

// Do runs fn up to p.Attempts times, sleeping p.Delay between attempts.
// The last error is returned after the budget is exhausted. Context
// cancellation wins over a pending delay.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt >= attempts {
			break
		}
		if p.Delay > 0 {
			tmr := time.NewTimer(p.Delay)
			select {
			case <-ctx.Done():
				if !tmr.Stop() {
					<-tmr.C
				}
				return ctx.Err()
			case <-tmr.C:
			}
		}
	}
	return err
}
