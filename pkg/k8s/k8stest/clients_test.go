package k8stest_test

import (
	"context"
	"testing"

	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/k8s/k8stest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func TestNewClientsSeedsUnderMappedResource(t *testing.T) {
	t.Parallel()

	fakes := k8stest.NewClients(
		k8stest.Object("gateway.networking.k8s.io/v1", "Gateway", "openshift-ingress", "maas-default-gateway",
			map[string]any{"status": k8stest.Conditions("Programmed", "True")}),
		k8stest.Object("gateway.networking.k8s.io/v1", "GatewayClass", "", "openshift-default", nil),
		k8stest.Object("config.openshift.io/v1", "Ingress", "", "cluster",
			map[string]any{"spec": map[string]any{"domain": "apps.example.com"}}),
	)

	ctx := context.Background()

	list, err := fakes.Dynamic.Resource(k8s.GatewayGVR).Namespace("openshift-ingress").List(ctx, metav1.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "maas-default-gateway", list.Items[0].GetName())

	_, err = fakes.Dynamic.Resource(k8s.GatewayClassGVR).Get(ctx, "openshift-default", metav1.GetOptions{})
	require.NoError(t, err)

	ingress, err := fakes.Dynamic.Resource(k8s.IngressConfigGVR).Get(ctx, "cluster", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "cluster", ingress.GetName())
}
