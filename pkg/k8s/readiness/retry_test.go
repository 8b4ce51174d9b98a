package readiness_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opendatahub-io/maasctl/pkg/k8s/readiness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

var (
	errWebhookDown = errors.New(`Internal error occurred: failed calling webhook "validate.kserve.io": ` +
		`no endpoints available for service "kserve-webhook-server-service"`)
	errInvalid = errors.New("spec.rules: Invalid value")
)

func TestRetry_SucceedsAfterTransientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	err := readiness.RetryWithUnit(context.Background(), 5*time.Second, time.Millisecond, func(context.Context) error {
		if calls.Add(1) < 3 {
			return errWebhookDown
		}

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetry_ConflictIsRetried(t *testing.T) {
	t.Parallel()

	conflict := apierrors.NewConflict(schema.GroupResource{Group: "kuadrant.io", Resource: "kuadrants"},
		"kuadrant", errors.New("the object has been modified"))

	var calls atomic.Int32

	err := readiness.RetryWithUnit(context.Background(), 5*time.Second, time.Millisecond, func(context.Context) error {
		if calls.Add(1) == 1 {
			return conflict
		}

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRetry_NonRetryableAbortsImmediately(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	err := readiness.RetryWithUnit(context.Background(), 5*time.Second, time.Millisecond, func(context.Context) error {
		calls.Add(1)

		return errInvalid
	})

	require.ErrorIs(t, err, errInvalid)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetry_TimesOut(t *testing.T) {
	t.Parallel()

	err := readiness.RetryWithUnit(context.Background(), 30*time.Millisecond, time.Millisecond, func(context.Context) error {
		return errWebhookDown
	})

	require.ErrorIs(t, err, readiness.ErrTimeoutExceeded)
	require.ErrorIs(t, err, errWebhookDown)
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	gr := schema.GroupResource{Resource: "configmaps"}

	assert.False(t, readiness.IsRetryable(nil))
	assert.False(t, readiness.IsRetryable(context.Canceled))
	assert.False(t, readiness.IsRetryable(errInvalid))
	assert.False(t, readiness.IsRetryable(apierrors.NewNotFound(gr, "x")))
	assert.False(t, readiness.IsRetryable(apierrors.NewForbidden(gr, "x", errInvalid)))
	assert.True(t, readiness.IsRetryable(apierrors.NewConflict(gr, "x", errInvalid)))
	assert.True(t, readiness.IsRetryable(apierrors.NewServerTimeout(gr, "create", 1)))
	assert.True(t, readiness.IsRetryable(apierrors.NewTooManyRequests("slow down", 1)))
	assert.True(t, readiness.IsRetryable(apierrors.NewServiceUnavailable("starting")))
	assert.True(t, readiness.IsRetryable(errWebhookDown))
}
