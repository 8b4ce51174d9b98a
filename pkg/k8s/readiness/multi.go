package readiness

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/client-go/kubernetes"
)

// Check types understood by WaitForMultipleResources.
const (
	CheckDeployment = "deployment"
	CheckDaemonSet  = "daemonset"
)

// Check names a workload to wait for.
type Check struct {
	Type      string
	Namespace string
	Name      string
}

// WaitForMultipleResources waits for all checks concurrently under one
// deadline and returns the first failure.
func WaitForMultipleResources(
	ctx context.Context,
	clientset kubernetes.Interface,
	checks []Check,
	deadline time.Duration,
) error {
	for _, check := range checks {
		if check.Type != CheckDeployment && check.Type != CheckDaemonSet {
			return fmt.Errorf("%w: %s", errUnknownResourceType, check.Type)
		}
	}

	deadlineCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	group, groupCtx := errgroup.WithContext(deadlineCtx)

	for _, check := range checks {
		group.Go(func() error {
			switch check.Type {
			case CheckDaemonSet:
				return WaitForDaemonSetReady(groupCtx, clientset, check.Namespace, check.Name, deadline)
			default:
				return WaitForDeploymentReady(groupCtx, clientset, check.Namespace, check.Name, deadline)
			}
		})
	}

	err := group.Wait()
	if err != nil {
		return fmt.Errorf("wait for resources: %w", err)
	}

	return nil
}
