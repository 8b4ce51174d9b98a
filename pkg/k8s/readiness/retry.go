package readiness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opendatahub-io/maasctl/pkg/client/netretry"
	"github.com/opendatahub-io/maasctl/pkg/log"
	"github.com/siderolabs/go-retry/retry"
	"go.uber.org/zap"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// DefaultRetryUnit is the base delay of Retry's exponential backoff.
const DefaultRetryUnit = time.Second

// Retry runs a mutating call with exponential backoff until it succeeds,
// fails with a non-retryable error or the timeout elapses.
func Retry(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	return RetryWithUnit(ctx, timeout, DefaultRetryUnit, fn)
}

// RetryWithUnit is Retry with an explicit backoff unit.
func RetryWithUnit(
	ctx context.Context,
	timeout, unit time.Duration,
	fn func(context.Context) error,
) error {
	var (
		attempts int
		lastErr  error
		fatalErr error
	)

	err := retry.Exponential(timeout, retry.WithUnits(unit), retry.WithJitter(unit/4)).
		RetryWithContext(ctx, func(ctx context.Context) error {
			attempts++

			callErr := fn(ctx)
			if callErr == nil {
				return nil
			}

			if !IsRetryable(callErr) {
				fatalErr = callErr

				return callErr
			}

			lastErr = callErr
			log.Debug(ctx, "retrying", zap.Int("attempt", attempts), zap.Error(callErr))

			return retry.ExpectedError(callErr)
		})

	switch {
	case err == nil:
		return nil
	case fatalErr != nil:
		return fatalErr
	case ctx.Err() != nil:
		return fmt.Errorf("retry cancelled: %w", ctx.Err())
	case lastErr != nil:
		return fmt.Errorf("%w after %d attempts: %w", ErrTimeoutExceeded, attempts, lastErr)
	default:
		return fmt.Errorf("retry: %w", err)
	}
}

// IsRetryable reports whether err is a transient network or API server
// failure worth retrying.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	return apierrors.IsConflict(err) ||
		apierrors.IsServerTimeout(err) ||
		apierrors.IsTimeout(err) ||
		apierrors.IsTooManyRequests(err) ||
		apierrors.IsServiceUnavailable(err) ||
		apierrors.IsInternalError(err) ||
		netretry.IsRetryable(err)
}
