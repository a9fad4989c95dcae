package ai

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	appErrors "resumecvpro/internal/errors"

	"google.golang.org/api/googleapi"
)

const maxBackoff = 30 * time.Second

type sleeper func(ctx context.Context, d time.Duration) error

// retryCall runs fn up to maxRetries+1 times. Only transient failures are
// retried, and the wait between attempts grows with backoffDelay.
func retryCall[T any](ctx context.Context, op string, maxRetries int, sleep sleeper, logger *appErrors.Logger, fn func() (T, error)) (T, error) {
	var zero T
	var err error
	attempt := 0
	for ; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			logger.Warn("Retrying oracle call", "operation", op, "attempt", attempt, "max_retries", maxRetries, "error", err.Error())
			if sleepErr := sleep(ctx, backoffDelay(attempt)); sleepErr != nil {
				return zero, sleepErr
			}
		}

		var out T
		if out, err = fn(); err == nil {
			if attempt > 0 {
				logger.Info("Oracle call recovered", "operation", op, "attempts", attempt+1)
			}
			return out, nil
		}
		if !isRetryableError(err) {
			logger.Debug("Oracle error is permanent", "operation", op, "error", err.Error())
			attempt++
			break
		}
	}

	logger.LogError(err, "Oracle call failed", "operation", op, "attempts", attempt)
	return zero, fmt.Errorf("%s failed after %d attempt(s): %w", op, attempt, err)
}

// backoffDelay doubles from one second per attempt, adds up to 10% jitter
// and never exceeds maxBackoff.
func backoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		return maxBackoff
	}
	base := time.Second << (attempt - 1)
	return min(base+rand.N(base/10), maxBackoff)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// isRetryableError accepts network failures and the HTTP statuses Gemini
// uses for overload and transient server faults.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
