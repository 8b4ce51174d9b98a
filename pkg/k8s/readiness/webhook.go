package readiness

import (
	"context"
	"fmt"
	"time"

	discoveryv1 "k8s.io/api/discovery/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// WaitForWebhookEndpoints waits until the service backing an admission
// webhook has at least one ready endpoint address. Applying resources before
// that fails with "no endpoints available for service".
func WaitForWebhookEndpoints(
	ctx context.Context,
	clientset kubernetes.Interface,
	namespace, service string,
	deadline time.Duration,
) error {
	err := PollForReadiness(ctx, deadline, func(ctx context.Context) (bool, error) {
		slices, err := clientset.DiscoveryV1().EndpointSlices(namespace).List(ctx, metav1.ListOptions{
			LabelSelector: discoveryv1.LabelServiceName + "=" + service,
		})
		if err != nil {
			return false, nil //nolint:nilerr // retry on transient list errors
		}

		for i := range slices.Items {
			if hasReadyEndpoint(&slices.Items[i]) {
				return true, nil
			}
		}

		return false, nil
	})
	if err != nil {
		return fmt.Errorf("wait for webhook service %s/%s endpoints: %w", namespace, service, err)
	}

	return nil
}

func hasReadyEndpoint(slice *discoveryv1.EndpointSlice) bool {
	for _, endpoint := range slice.Endpoints {
		if len(endpoint.Addresses) == 0 {
			continue
		}

		// A nil Ready means unknown and is treated as ready by consumers.
		if endpoint.Conditions.Ready == nil || *endpoint.Conditions.Ready {
			return true
		}
	}

	return false
}
