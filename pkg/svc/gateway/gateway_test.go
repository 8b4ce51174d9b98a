package gateway_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/opendatahub-io/maasctl/pkg/apis/platform/v1alpha1"
	"github.com/opendatahub-io/maasctl/pkg/client/apply"
	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/k8s/k8stest"
	"github.com/opendatahub-io/maasctl/pkg/svc/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
)

const shortTimeout = 50 * time.Millisecond

func defaultGateway() v1alpha1.Gateway {
	return v1alpha1.Gateway{
		Name:      v1alpha1.DefaultGatewayName,
		Namespace: v1alpha1.DefaultGatewayNamespace,
		ClassName: v1alpha1.DefaultGatewayClassName,
	}
}

func newProvisioner(
	opts gateway.Options,
	objects ...runtime.Object,
) (*gateway.Provisioner, *k8stest.Fakes, *bytes.Buffer) {
	fakes := k8stest.NewClients(objects...)
	applier := apply.NewApplier(fakes.Dynamic, fakes.Mapper).WithRetryTimeout(shortTimeout)

	var out bytes.Buffer

	opts.Timeout = shortTimeout

	return gateway.NewProvisioner(fakes.Dynamic, applier, &out, opts), fakes, &out
}

func clusterIngress(domain string) *unstructured.Unstructured {
	return k8stest.Object("config.openshift.io/v1", "Ingress", "", "cluster",
		map[string]any{"spec": map[string]any{"domain": domain}})
}

func programmedGateway() *unstructured.Unstructured {
	return k8stest.Object("gateway.networking.k8s.io/v1", "Gateway",
		v1alpha1.DefaultGatewayNamespace, v1alpha1.DefaultGatewayName,
		map[string]any{"spec": map[string]any{}, "status": k8stest.Conditions("Programmed", "True")})
}

func getGateway(t *testing.T, fakes *k8stest.Fakes) *unstructured.Unstructured {
	t.Helper()

	obj, err := fakes.Dynamic.Resource(k8s.GatewayGVR).Namespace(v1alpha1.DefaultGatewayNamespace).
		Get(context.Background(), v1alpha1.DefaultGatewayName, metav1.GetOptions{})
	require.NoError(t, err)

	return obj
}

func listeners(t *testing.T, obj *unstructured.Unstructured) []any {
	t.Helper()

	list, found, err := unstructured.NestedSlice(obj.Object, "spec", "listeners")
	require.NoError(t, err)
	require.True(t, found)

	return list
}

func TestEnsureOnKubernetesRequiresDomain(t *testing.T) {
	t.Parallel()

	provisioner, _, _ := newProvisioner(gateway.Options{
		Gateway:      defaultGateway(),
		Distribution: v1alpha1.DistributionKubernetes,
	})

	_, err := provisioner.Ensure(context.Background())
	require.ErrorIs(t, err, gateway.ErrDomainRequired)
}

func TestEnsureOnKubernetesUsesConfiguredDomain(t *testing.T) {
	t.Parallel()

	cfg := defaultGateway()
	cfg.Domain = "apps.example.com"

	provisioner, fakes, out := newProvisioner(gateway.Options{
		Gateway:      cfg,
		Distribution: v1alpha1.DistributionKubernetes,
	})

	endpoint, err := provisioner.Ensure(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "maas.apps.example.com", endpoint.Hostname)
	assert.Equal(t, "https://maas.apps.example.com", endpoint.URL)

	obj := getGateway(t, fakes)
	require.Len(t, listeners(t, obj), 1)

	secret, _, _ := unstructured.NestedSlice(listeners(t, obj)[0].(map[string]any), "tls", "certificateRefs")
	assert.Equal(t, "maas-default-gateway-tls", secret[0].(map[string]any)["name"])

	_, err = fakes.Dynamic.Resource(k8s.GatewayClassGVR).
		Get(context.Background(), v1alpha1.DefaultGatewayClassName, metav1.GetOptions{})
	assert.True(t, apierrors.IsNotFound(err), "no gateway class on Kubernetes")

	assert.Contains(t, out.String(), "gateway not programmed")
}

func TestEnsureOnOpenShiftDetectsDomainAndCertificate(t *testing.T) {
	t.Parallel()

	cfg := defaultGateway()
	cfg.InsecureHTTP = true

	provisioner, fakes, out := newProvisioner(
		gateway.Options{Gateway: cfg, Distribution: v1alpha1.DistributionOpenShift},
		clusterIngress("apps.ocp.example.com"),
		k8stest.Object("operator.openshift.io/v1", "IngressController", "openshift-ingress-operator", "default",
			map[string]any{"spec": map[string]any{"defaultCertificate": map[string]any{"name": "custom-certs"}}}),
		programmedGateway(),
	)

	endpoint, err := provisioner.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "maas.apps.ocp.example.com", endpoint.Hostname)

	class, err := fakes.Dynamic.Resource(k8s.GatewayClassGVR).
		Get(context.Background(), v1alpha1.DefaultGatewayClassName, metav1.GetOptions{})
	require.NoError(t, err)

	controller, _, _ := unstructured.NestedString(class.Object, "spec", "controllerName")
	assert.Equal(t, gateway.ControllerName, controller)

	obj := getGateway(t, fakes)
	require.Len(t, listeners(t, obj), 2)

	https := listeners(t, obj)[0].(map[string]any)
	assert.Equal(t, "maas.apps.ocp.example.com", https["hostname"])

	refs, _, _ := unstructured.NestedSlice(https, "tls", "certificateRefs")
	assert.Equal(t, "custom-certs", refs[0].(map[string]any)["name"])

	assert.Contains(t, out.String(), "programmed at maas.apps.ocp.example.com")
	assert.NotContains(t, out.String(), "gateway not programmed")
}

func TestCertificateSecretFallsBackToRouterCerts(t *testing.T) {
	t.Parallel()

	provisioner, _, _ := newProvisioner(gateway.Options{
		Gateway:      defaultGateway(),
		Distribution: v1alpha1.DistributionOpenShift,
	})

	assert.Equal(t, gateway.DefaultCertificateSecret, provisioner.CertificateSecret(context.Background()))
}

func TestDetectDomainWithoutIngressConfig(t *testing.T) {
	t.Parallel()

	provisioner, _, _ := newProvisioner(gateway.Options{
		Gateway:      defaultGateway(),
		Distribution: v1alpha1.DistributionOpenShift,
	}, k8stest.Object("config.openshift.io/v1", "Ingress", "", "cluster", map[string]any{"spec": map[string]any{}}))

	_, err := provisioner.DetectDomain(context.Background())
	require.ErrorIs(t, err, gateway.ErrDomainRequired)
}

func TestEnsureIsIdempotent(t *testing.T) {
	t.Parallel()

	provisioner, fakes, _ := newProvisioner(
		gateway.Options{Gateway: defaultGateway(), Distribution: v1alpha1.DistributionOpenShift},
		clusterIngress("apps.ocp.example.com"),
	)

	_, err := provisioner.Ensure(context.Background())
	require.NoError(t, err)

	_, err = provisioner.Ensure(context.Background())
	require.NoError(t, err)

	list, err := fakes.Dynamic.Resource(k8s.GatewayGVR).Namespace(v1alpha1.DefaultGatewayNamespace).
		List(context.Background(), metav1.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
}

func TestDeleteRemovesGatewayAndClass(t *testing.T) {
	t.Parallel()

	cfg := defaultGateway()

	provisioner, fakes, _ := newProvisioner(
		gateway.Options{Gateway: cfg, Distribution: v1alpha1.DistributionOpenShift},
		clusterIngress("apps.ocp.example.com"),
	)

	_, err := provisioner.Ensure(context.Background())
	require.NoError(t, err)

	require.NoError(t, provisioner.Delete(context.Background()))
	require.NoError(t, provisioner.Delete(context.Background()), "deleting twice is not an error")

	_, err = fakes.Dynamic.Resource(k8s.GatewayGVR).Namespace(cfg.Namespace).
		Get(context.Background(), cfg.Name, metav1.GetOptions{})
	assert.True(t, apierrors.IsNotFound(err))

	_, err = fakes.Dynamic.Resource(k8s.GatewayClassGVR).Get(context.Background(), cfg.ClassName, metav1.GetOptions{})
	assert.True(t, apierrors.IsNotFound(err))
}
