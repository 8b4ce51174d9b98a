package k8s

import (
	"context"
	"fmt"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"
)

// FieldManager identifies every write made by maasctl.
const FieldManager = "maasctl"

const restartedAtAnnotation = "kubectl.kubernetes.io/restartedAt"

// RestartDeployment triggers a rolling restart the same way `kubectl rollout
// restart` does, by stamping the pod template with the current time.
func RestartDeployment(
	ctx context.Context,
	clientset kubernetes.Interface,
	namespace, name string,
	now time.Time,
) error {
	patch := fmt.Sprintf(
		`{"spec":{"template":{"metadata":{"annotations":{%q:%q}}}}}`,
		restartedAtAnnotation, now.UTC().Format(time.RFC3339),
	)

	_, err := clientset.AppsV1().Deployments(namespace).Patch(
		ctx, name, types.StrategicMergePatchType, []byte(patch),
		metav1.PatchOptions{FieldManager: FieldManager},
	)
	if err != nil {
		return fmt.Errorf("restart deployment %s/%s: %w", namespace, name, err)
	}

	return nil
}
