package readiness

import (
	"context"
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// WaitForDeploymentReady waits until the deployment has rolled out all its
// desired replicas and they are available.
func WaitForDeploymentReady(
	ctx context.Context,
	clientset kubernetes.Interface,
	namespace, name string,
	deadline time.Duration,
) error {
	err := PollForReadiness(ctx, deadline, func(ctx context.Context) (bool, error) {
		deployment, err := clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return false, nil //nolint:nilerr // retry until it exists
		}

		return isDeploymentReady(deployment), nil
	})
	if err != nil {
		return fmt.Errorf("wait for deployment %s/%s: %w", namespace, name, err)
	}

	return nil
}

// WaitForDaemonSetReady waits until every scheduled daemon pod is updated and available.
func WaitForDaemonSetReady(
	ctx context.Context,
	clientset kubernetes.Interface,
	namespace, name string,
	deadline time.Duration,
) error {
	err := PollForReadiness(ctx, deadline, func(ctx context.Context) (bool, error) {
		daemonSet, err := clientset.AppsV1().DaemonSets(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return false, nil //nolint:nilerr // retry until it exists
		}

		return isDaemonSetReady(daemonSet), nil
	})
	if err != nil {
		return fmt.Errorf("wait for daemonset %s/%s: %w", namespace, name, err)
	}

	return nil
}

func isDeploymentReady(deployment *appsv1.Deployment) bool {
	if deployment.Status.ObservedGeneration < deployment.Generation {
		return false
	}

	desired := int32(1)
	if deployment.Spec.Replicas != nil {
		desired = *deployment.Spec.Replicas
	}

	return deployment.Status.UpdatedReplicas >= desired &&
		deployment.Status.AvailableReplicas >= desired
}

func isDaemonSetReady(daemonSet *appsv1.DaemonSet) bool {
	desired := daemonSet.Status.DesiredNumberScheduled
	if desired == 0 {
		return false
	}

	return daemonSet.Status.NumberUnavailable == 0 &&
		daemonSet.Status.UpdatedNumberScheduled >= desired
}
