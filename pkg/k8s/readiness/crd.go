package readiness

import (
	"context"
	"fmt"
	"time"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apiextensionsclientset "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// WaitForCRDEstablished waits until the CRD exists and reports Established=True.
// The API server only serves the custom resource once it is established.
func WaitForCRDEstablished(
	ctx context.Context,
	apiExt apiextensionsclientset.Interface,
	crdName string,
	deadline time.Duration,
) error {
	err := PollForReadiness(ctx, deadline, func(ctx context.Context) (bool, error) {
		crd, err := apiExt.ApiextensionsV1().CustomResourceDefinitions().Get(ctx, crdName, metav1.GetOptions{})
		if err != nil {
			return false, nil //nolint:nilerr // the CRD may not be registered yet
		}

		for _, condition := range crd.Status.Conditions {
			if condition.Type == apiextensionsv1.Established {
				return condition.Status == apiextensionsv1.ConditionTrue, nil
			}
		}

		return false, nil
	})
	if err != nil {
		return fmt.Errorf("wait for CRD %s to be established: %w", crdName, err)
	}

	return nil
}
