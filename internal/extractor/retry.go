package extractor

import (
	"context"
	"time"
)

// defaultRetryable is the default set of retryable kinds: everything except
// InvalidUrl, which never benefits from retry.
var defaultRetryable = map[ErrorKind]bool{
	KindTimeout:           true,
	KindNavigationTimeout: true,
	KindRenderError:       true,
	KindUpstreamError:     true,
	KindRateLimited:       true,
}

// RetryPolicy wraps a single backend's extract call with bounded retries and
// exponential backoff.
type RetryPolicy struct {
	MaxAttempts int           // total attempts, minimum 1
	BaseDelay   time.Duration // delay before the first retry
	// Retryable overrides the default retryable-kind set when non-nil.
	Retryable map[ErrorKind]bool

	// sleep is swapped out in tests to observe the backoff schedule. It must
	// honor context cancellation.
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy matches the original extractor's behavior: three total
// attempts starting at a one-second delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
}

func (p RetryPolicy) retryable(kind ErrorKind) bool {
	if p.Retryable != nil {
		return p.Retryable[kind]
	}
	return defaultRetryable[kind]
}

// Do runs backend.Extract with up to MaxAttempts attempts. Successes return
// immediately; non-retryable failures return unchanged; a retryable failure
// sleeps BaseDelay * 2^attempt before the next attempt (doubled again for
// RateLimited). The final attempt's result is returned as-is, kind and
// message intact.
func (p RetryPolicy) Do(ctx context.Context, backend Backend, rawURL string) *Result {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var last *Result
	for attempt := 0; attempt < attempts; attempt++ {
		last = backend.Extract(ctx, rawURL)
		if last.Succeeded || !p.retryable(last.ErrorKind) {
			return last
		}
		if attempt == attempts-1 {
			break
		}

		delay := p.BaseDelay << attempt
		if last.ErrorKind == KindRateLimited {
			delay *= 2
		}
		if err := sleep(ctx, delay); err != nil {
			// Cancelled mid-backoff: no further attempts.
			return last
		}
	}
	return last
}

func sleepCtx(ctx context.Context, d time.Duration) error {
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
