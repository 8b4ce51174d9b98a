package kuadrantinstaller_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/opendatahub-io/maasctl/pkg/apis/platform/v1alpha1"
	"github.com/opendatahub-io/maasctl/pkg/client/apply"
	"github.com/opendatahub-io/maasctl/pkg/client/helm/helmtest"
	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/k8s/k8stest"
	"github.com/opendatahub-io/maasctl/pkg/svc/installer"
	kuadrantinstaller "github.com/opendatahub-io/maasctl/pkg/svc/installer/kuadrant"
	"github.com/opendatahub-io/maasctl/pkg/svc/olm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
)

const (
	namespace    = "kuadrant-system"
	shortTimeout = 50 * time.Millisecond
)

func newDeps(
	distribution v1alpha1.Distribution,
	objects ...runtime.Object,
) (installer.Deps, *k8stest.Fakes, *helmtest.Fake, *bytes.Buffer) {
	fakes := k8stest.NewClients(objects...)
	applier := apply.NewApplier(fakes.Dynamic, fakes.Mapper).WithRetryTimeout(shortTimeout)
	helmClient := &helmtest.Fake{}

	var out bytes.Buffer

	return installer.Deps{
		Kube:         fakes.Kube,
		Dynamic:      fakes.Dynamic,
		APIExt:       fakes.APIExt,
		Applier:      applier,
		OLM:          olm.NewManager(fakes.Dynamic, applier, &out),
		Helm:         helmClient,
		Writer:       &out,
		Timeout:      shortTimeout,
		Distribution: distribution,
	}, fakes, helmClient, &out
}

func readyKuadrant() *unstructured.Unstructured {
	return k8stest.Object("kuadrant.io/v1beta1", "Kuadrant", namespace, kuadrantinstaller.InstanceName,
		map[string]any{"spec": map[string]any{}, "status": k8stest.Conditions("Ready", "True")})
}

func TestInstallOnKubernetesUsesHelm(t *testing.T) {
	t.Parallel()

	deps, fakes, helmClient, out := newDeps(v1alpha1.DistributionKubernetes)

	err := kuadrantinstaller.NewKuadrantInstaller(deps, kuadrantinstaller.Config{Namespace: namespace}).
		Install(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"kuadrant-operator"}, helmClient.Releases())
	assert.Equal(t, "https://kuadrant.io/helm-charts", helmClient.Specs[0].RepoURL)

	_, err = fakes.Dynamic.Resource(k8s.KuadrantGVR).Namespace(namespace).
		Get(context.Background(), kuadrantinstaller.InstanceName, metav1.GetOptions{})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "kuadrant instance not ready")
	assert.NotContains(t, out.String(), "authorino TLS")
}

func TestInstallOnOpenShiftSubscribesAndEnablesTLS(t *testing.T) {
	t.Parallel()

	deps, fakes, helmClient, out := newDeps(
		v1alpha1.DistributionOpenShift,
		readyKuadrant(),
		k8stest.Object("operators.coreos.com/v1alpha1", "ClusterServiceVersion", namespace,
			"kuadrant-operator.v1.3.0", map[string]any{"status": map[string]any{"phase": "Succeeded"}}),
		k8stest.Object("operator.authorino.kuadrant.io/v1beta1", "Authorino", namespace, "authorino",
			map[string]any{"spec": map[string]any{"replicas": int64(1)}}),
		&corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: kuadrantinstaller.AuthorinoService, Namespace: namespace}},
	)

	err := kuadrantinstaller.NewKuadrantInstaller(deps, kuadrantinstaller.Config{
		Namespace:       namespace,
		OperatorSet:     v1alpha1.OperatorSetODH,
		RequiredVersion: "1.2.0",
	}).Install(context.Background())
	require.NoError(t, err)
	assert.Empty(t, helmClient.Specs)

	ctx := context.Background()

	sub, err := fakes.Dynamic.Resource(k8s.SubscriptionGVR).Namespace(namespace).
		Get(ctx, "kuadrant-operator", metav1.GetOptions{})
	require.NoError(t, err)

	source, _, _ := unstructured.NestedString(sub.Object, "spec", "source")
	assert.Equal(t, "community-operators", source)

	service, err := fakes.Kube.CoreV1().Services(namespace).Get(ctx, kuadrantinstaller.AuthorinoService, metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, kuadrantinstaller.AuthorinoCertSecret,
		service.Annotations["service.beta.openshift.io/serving-cert-secret-name"])

	authorino, err := fakes.Dynamic.Resource(k8s.AuthorinoGVR).Namespace(namespace).Get(ctx, "authorino", metav1.GetOptions{})
	require.NoError(t, err)

	enabled, _, _ := unstructured.NestedBool(authorino.Object, "spec", "listener", "tls", "enabled")
	assert.True(t, enabled)

	replicas, _, _ := unstructured.NestedInt64(authorino.Object, "spec", "replicas")
	assert.Equal(t, int64(1), replicas)

	assert.Contains(t, out.String(), "kuadrant operator installed (kuadrant-operator.v1.3.0)")
	assert.NotContains(t, out.String(), "kuadrant instance not ready")
	assert.Contains(t, out.String(), "authorino pods not ready")
}

func TestInstallWithCatalogImageUsesCustomSource(t *testing.T) {
	t.Parallel()

	deps, fakes, _, _ := newDeps(
		v1alpha1.DistributionOpenShift,
		k8stest.Object("operators.coreos.com/v1alpha1", "ClusterServiceVersion", namespace,
			"rhcl-operator.v1.3.0", map[string]any{"status": map[string]any{"phase": "Succeeded"}}),
	)

	err := kuadrantinstaller.NewKuadrantInstaller(deps, kuadrantinstaller.Config{
		Namespace:    namespace,
		OperatorSet:  v1alpha1.OperatorSetRHOAI,
		CatalogImage: "quay.io/kuadrant/kuadrant-operator-catalog:nightly",
	}).Install(context.Background())
	require.NoError(t, err)

	ctx := context.Background()

	sub, err := fakes.Dynamic.Resource(k8s.SubscriptionGVR).Namespace(namespace).
		Get(ctx, "rhcl-operator", metav1.GetOptions{})
	require.NoError(t, err)

	source, _, _ := unstructured.NestedString(sub.Object, "spec", "source")
	assert.Equal(t, "kuadrant-operator-catalog", source)

	_, err = fakes.Dynamic.Resource(k8s.CatalogSourceGVR).Namespace(olm.MarketplaceNamespace).
		Get(ctx, "kuadrant-operator-catalog", metav1.GetOptions{})
	require.NoError(t, err)
}

func TestUninstallRemovesInstanceAndRelease(t *testing.T) {
	t.Parallel()

	deps, fakes, helmClient, _ := newDeps(v1alpha1.DistributionKubernetes, readyKuadrant())

	err := kuadrantinstaller.NewKuadrantInstaller(deps, kuadrantinstaller.Config{Namespace: namespace}).
		Uninstall(context.Background())
	require.NoError(t, err)

	list, err := fakes.Dynamic.Resource(k8s.KuadrantGVR).Namespace(namespace).
		List(context.Background(), metav1.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
	assert.Equal(t, []string{namespace + "/kuadrant-operator"}, helmClient.Uninstalled)
}
