package plugin

import (
	"context"
	"fmt"
	"time"

	"github.com/c360/docstore/backend"
)

// RetryExhaustedError wraps the last failure of a transaction whose doubled
// backoff reached the configured ceiling. MaxWait is that ceiling, not the
// overshooting doubled value.
type RetryExhaustedError struct {
	MaxWait time.Duration
	Err     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("Retry Failed. Max Wait: %d. Original Message: %v", e.MaxWait.Milliseconds(), e.Err)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }

// execTx runs action against a freshly opened handle, retrying transient
// failures with exponential backoff. Each attempt opens its own handle and
// re-runs the action from scratch. On success the handle is returned still
// open so the caller can chain reads before closing it.
//
// Only failures classified transient by the store taxonomy (status >= 500)
// are retried. Anything else, including a closed-handle error, rejects
// immediately with the original error.
func execTx[T any](ctx context.Context, p *Plugin, action func(context.Context, backend.Handle) (T, error)) (T, backend.Handle, error) {
	var zero T
	var wait time.Duration

	for attempt := 1; ; attempt++ {
		result, handle, err := runOnce(ctx, p, action)
		if err == nil {
			return result, handle, nil
		}
		if !backend.IsTransient(err) {
			return zero, nil, err
		}

		if wait == 0 {
			wait = p.config.InitialBackoff
		} else {
			wait *= 2
		}
		if wait >= p.config.MaxBackoff {
			p.logger.Error("Transaction exhausted retries",
				"store", p.name,
				"attempts", attempt,
				"error", err)
			return zero, nil, &RetryExhaustedError{MaxWait: p.config.MaxBackoff, Err: err}
		}

		p.logger.Warn("Transient store failure, retrying",
			"store", p.name,
			"attempt", attempt,
			"wait", wait,
			"error", err)
		p.metrics.retry()

		if sleepErr := p.sleep(ctx, wait); sleepErr != nil {
			return zero, nil, sleepErr
		}
	}
}

// runOnce is a single attempt: open, act, and on failure close the handle
// before reporting. An open failure counts as an attempt failure so that a
// briefly unreachable store is retried the same as a failing write.
func runOnce[T any](ctx context.Context, p *Plugin, action func(context.Context, backend.Handle) (T, error)) (T, backend.Handle, error) {
	var zero T

	handle, err := p.opener.Open(ctx, p.name)
	if err != nil {
		return zero, nil, err
	}
	result, err := action(ctx, handle)
	if err != nil {
		p.closeQuietly(handle)
		return zero, nil, err
	}
	return result, handle, nil
}

// sleepContext waits for d or for context cancellation, whichever first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
