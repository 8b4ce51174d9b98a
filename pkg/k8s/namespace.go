package k8s

import (
	"context"
	"fmt"
	"maps"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// UserMonitoringLabel opts a namespace into OpenShift user workload monitoring.
const UserMonitoringLabel = "openshift.io/user-monitoring"

// EnsureNamespace creates the namespace with the given labels, or adds any
// missing labels to an existing one.
func EnsureNamespace(
	ctx context.Context,
	clientset kubernetes.Interface,
	name string,
	labels map[string]string,
) error {
	namespace, err := clientset.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if !apierrors.IsNotFound(err) {
			return fmt.Errorf("get namespace %s: %w", name, err)
		}

		newNS := &corev1.Namespace{
			ObjectMeta: metav1.ObjectMeta{
				Name:   name,
				Labels: maps.Clone(labels),
			},
		}

		_, err = clientset.CoreV1().Namespaces().Create(ctx, newNS, metav1.CreateOptions{FieldManager: FieldManager})
		if err != nil && !apierrors.IsAlreadyExists(err) {
			return fmt.Errorf("create namespace %s: %w", name, err)
		}

		return nil
	}

	if namespace.Labels == nil {
		namespace.Labels = make(map[string]string, len(labels))
	}

	updated := false

	for k, v := range labels {
		if namespace.Labels[k] != v {
			namespace.Labels[k] = v
			updated = true
		}
	}

	if !updated {
		return nil
	}

	_, err = clientset.CoreV1().Namespaces().Update(ctx, namespace, metav1.UpdateOptions{FieldManager: FieldManager})
	if err != nil {
		return fmt.Errorf("update namespace %s labels: %w", name, err)
	}

	return nil
}
