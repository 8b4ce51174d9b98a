package readiness

import (
	"context"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

// DefaultPollInterval is the interval between readiness probes.
const DefaultPollInterval = 2 * time.Second

// PollForReadiness polls at DefaultPollInterval until poll reports ready,
// poll returns an error, the deadline elapses or ctx is cancelled.
func PollForReadiness(
	ctx context.Context,
	deadline time.Duration,
	poll func(context.Context) (bool, error),
) error {
	return PollWithInterval(ctx, deadline, DefaultPollInterval, poll)
}

// PollWithInterval is PollForReadiness with an explicit interval.
//
// poll always runs at least once with the caller's context, even when the
// deadline is zero. A timeout wraps ErrTimeoutExceeded, a cancelled ctx wraps
// the context error.
func PollWithInterval(
	ctx context.Context,
	deadline, interval time.Duration,
	poll func(context.Context) (bool, error),
) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	err := ctx.Err()
	if err != nil {
		return fmt.Errorf("polling cancelled: %w", err)
	}

	ready, err := poll(ctx)
	if err != nil {
		return err
	}

	if ready {
		return nil
	}

	pollCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	err = wait.PollUntilContextCancel(pollCtx, interval, false, poll)
	if err == nil {
		return nil
	}

	if ctx.Err() != nil {
		return fmt.Errorf("polling cancelled: %w", ctx.Err())
	}

	if wait.Interrupted(err) {
		return fmt.Errorf("%w after %s", ErrTimeoutExceeded, deadline)
	}

	return err
}
