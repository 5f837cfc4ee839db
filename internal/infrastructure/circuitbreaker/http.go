package circuitbreaker

import (
	"context"
	"fmt"
	"time"
)

// RetryWithBackoff retries fn with exponential backoff, used during startup
// to wait out a Postgres database that is still coming up.
// Circuit breaker errors are never retried since they already represent a
// deliberate fail-fast decision made upstream.
func RetryWithBackoff(ctx context.Context, maxRetries int, initialDelay time.Duration, fn func() error) error {
	var lastErr error
	delay := initialDelay

	for i := 0; i <= maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if IsCircuitOpen(err) || IsTooManyRequests(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
			if delay > 30*time.Second {
				delay = 30 * time.Second
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
