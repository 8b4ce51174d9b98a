package readiness

import (
	"context"
	"fmt"
	"time"

	"github.com/opendatahub-io/maasctl/pkg/k8s"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// WaitForPodsReady waits until at least one pod matches selector and every
// matching pod is Ready.
func WaitForPodsReady(
	ctx context.Context,
	clientset kubernetes.Interface,
	namespace, selector string,
	deadline time.Duration,
) error {
	err := PollForReadiness(ctx, deadline, func(ctx context.Context) (bool, error) {
		pods, err := clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
		if err != nil {
			return false, nil //nolint:nilerr // retry on transient list errors
		}

		if len(pods.Items) == 0 {
			return false, nil
		}

		for i := range pods.Items {
			if !k8s.IsPodReady(&pods.Items[i]) {
				return false, nil
			}
		}

		return true, nil
	})
	if err != nil {
		return fmt.Errorf("wait for pods %q in %s: %w", selector, namespace, err)
	}

	return nil
}

// WaitForNamespaceDeleted waits until the namespace no longer exists.
func WaitForNamespaceDeleted(
	ctx context.Context,
	clientset kubernetes.Interface,
	name string,
	deadline time.Duration,
) error {
	err := PollForReadiness(ctx, deadline, func(ctx context.Context) (bool, error) {
		_, err := clientset.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})

		return apierrors.IsNotFound(err), nil
	})
	if err != nil {
		return fmt.Errorf("wait for namespace %s to terminate: %w", name, err)
	}

	return nil
}
