package observability_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/opendatahub-io/maasctl/pkg/apis/platform/v1alpha1"
	"github.com/opendatahub-io/maasctl/pkg/client/apply"
	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/k8s/k8stest"
	"github.com/opendatahub-io/maasctl/pkg/svc/installer"
	"github.com/opendatahub-io/maasctl/pkg/svc/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
)

const (
	opsNamespace      = "maas-observability"
	kuadrantNamespace = "kuadrant-system"
	appNamespace      = "llm"
	shortTimeout      = 50 * time.Millisecond
)

type recordingInstaller struct {
	installed int
	err       error
}

func (r *recordingInstaller) Install(context.Context) error {
	r.installed++

	return r.err
}

func (r *recordingInstaller) Uninstall(context.Context) error { return nil }

func options(distribution v1alpha1.Distribution) observability.Options {
	return observability.Options{
		Namespaces: v1alpha1.Namespaces{
			Ops:      opsNamespace,
			Kuadrant: kuadrantNamespace,
			App:      appNamespace,
		},
		Gateway: v1alpha1.Gateway{
			Name:      v1alpha1.DefaultGatewayName,
			Namespace: v1alpha1.DefaultGatewayNamespace,
		},
		Distribution: distribution,
		Timeout:      shortTimeout,
	}
}

func newManager(
	opts observability.Options,
	operators observability.OperatorInstallers,
	objects ...runtime.Object,
) (*observability.Manager, *k8stest.Fakes, *bytes.Buffer) {
	fakes := k8stest.NewClients(objects...)
	applier := apply.NewApplier(fakes.Dynamic, fakes.Mapper).WithRetryTimeout(shortTimeout)

	var out bytes.Buffer

	return observability.NewManager(fakes.Kube, fakes.Dynamic, applier, &out, opts, operators), fakes, &out
}

func operatorsOf(named ...installer.Named) observability.OperatorInstallers {
	return func(v1alpha1.ObservabilityStack) []installer.Named { return named }
}

func get(t *testing.T, fakes *k8stest.Fakes, obj *unstructured.Unstructured) *unstructured.Unstructured {
	t.Helper()

	mapping, err := fakes.Mapper.RESTMapping(obj.GroupVersionKind().GroupKind(), obj.GroupVersionKind().Version)
	require.NoError(t, err)

	live, err := fakes.Dynamic.Resource(mapping.Resource).Namespace(obj.GetNamespace()).
		Get(context.Background(), obj.GetName(), metav1.GetOptions{})
	require.NoError(t, err, "%s %s/%s", obj.GetKind(), obj.GetNamespace(), obj.GetName())

	return live
}

func TestEnableUserWorkloadMonitoringCreatesConfig(t *testing.T) {
	t.Parallel()

	fakes := k8stest.NewClients()

	changed, err := observability.EnableUserWorkloadMonitoring(context.Background(), fakes.Kube)
	require.NoError(t, err)
	assert.True(t, changed)

	cm, err := fakes.Kube.CoreV1().ConfigMaps(observability.MonitoringNamespace).
		Get(context.Background(), observability.MonitoringConfigMap, metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "enableUserWorkload: true\n", cm.Data["config.yaml"])
}

func TestEnableUserWorkloadMonitoringKeepsExistingSettings(t *testing.T) {
	t.Parallel()

	existing := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      observability.MonitoringConfigMap,
			Namespace: observability.MonitoringNamespace,
		},
		Data: map[string]string{"config.yaml": "# tuned retention\nprometheusK8s:\n  retention: 15d\nenableUserWorkload: false\n"},
	}

	fakes := k8stest.NewClients(existing)

	changed, err := observability.EnableUserWorkloadMonitoring(context.Background(), fakes.Kube)
	require.NoError(t, err)
	assert.True(t, changed)

	cm, err := fakes.Kube.CoreV1().ConfigMaps(observability.MonitoringNamespace).
		Get(context.Background(), observability.MonitoringConfigMap, metav1.GetOptions{})
	require.NoError(t, err)

	config := cm.Data["config.yaml"]
	assert.Contains(t, config, "# tuned retention")
	assert.Contains(t, config, "retention: 15d")
	assert.Contains(t, config, "enableUserWorkload: true")
	assert.NotContains(t, config, "enableUserWorkload: false")

	changed, err = observability.EnableUserWorkloadMonitoring(context.Background(), fakes.Kube)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestWireMetrics(t *testing.T) {
	t.Parallel()

	manager, fakes, out := newManager(options(v1alpha1.DistributionOpenShift), nil)

	require.NoError(t, manager.WireMetrics(context.Background()))

	for _, obj := range manager.WiringObjects() {
		get(t, fakes, obj)
	}

	for _, name := range []string{kuadrantNamespace, appNamespace} {
		namespace, err := fakes.Kube.CoreV1().Namespaces().Get(context.Background(), name, metav1.GetOptions{})
		require.NoError(t, err)
		assert.Equal(t, "true", namespace.Labels[k8s.UserMonitoringLabel])
	}

	_, err := fakes.Kube.CoreV1().ConfigMaps(observability.MonitoringNamespace).
		Get(context.Background(), observability.MonitoringConfigMap, metav1.GetOptions{})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "metrics wired (5 objects)")

	require.NoError(t, manager.WireMetrics(context.Background()), "wiring twice is idempotent")
}

func TestWiringObjectsTargetConfiguredNamespaces(t *testing.T) {
	t.Parallel()

	manager, _, _ := newManager(options(v1alpha1.DistributionOpenShift), nil)

	placement := map[string]string{}
	for _, obj := range manager.WiringObjects() {
		placement[obj.GetKind()+"/"+obj.GetName()] = obj.GetNamespace()
	}

	assert.Equal(t, map[string]string{
		"ServiceMonitor/" + observability.LimitadorServiceMonitor: kuadrantNamespace,
		"ServiceMonitor/" + observability.AuthorinoServiceMonitor: kuadrantNamespace,
		"PodMonitor/" + observability.GatewayPodMonitor:           v1alpha1.DefaultGatewayNamespace,
		"ServiceMonitor/" + observability.ModelServiceMonitor:     appNamespace,
		"Telemetry/" + observability.LatencyTelemetry:             v1alpha1.DefaultGatewayNamespace,
	}, placement)
}

func TestUnwireMetrics(t *testing.T) {
	t.Parallel()

	manager, fakes, _ := newManager(options(v1alpha1.DistributionKubernetes), nil)

	require.NoError(t, manager.WireMetrics(context.Background()))
	manager.UnwireMetrics(context.Background())

	_, err := fakes.Dynamic.Resource(k8s.ServiceMonitorGVR).Namespace(kuadrantNamespace).
		Get(context.Background(), observability.LimitadorServiceMonitor, metav1.GetOptions{})
	assert.True(t, apierrors.IsNotFound(err))
}

func TestInstallStackNoneSkips(t *testing.T) {
	t.Parallel()

	operator := &recordingInstaller{}
	manager, _, out := newManager(options(v1alpha1.DistributionOpenShift),
		operatorsOf(installer.Named{Name: "grafana", Installer: operator}))

	require.NoError(t, manager.InstallStack(context.Background(), v1alpha1.ObservabilityStackNone))
	assert.Zero(t, operator.installed)
	assert.Contains(t, out.String(), "observability stack disabled")
}

func TestInstallStackGrafana(t *testing.T) {
	t.Parallel()

	operator := &recordingInstaller{}
	manager, fakes, out := newManager(options(v1alpha1.DistributionOpenShift),
		operatorsOf(installer.Named{Name: "grafana", Installer: operator}))

	require.NoError(t, manager.InstallStack(context.Background(), v1alpha1.ObservabilityStackGrafana))
	assert.Equal(t, 1, operator.installed)

	dashboard, err := fakes.Dynamic.Resource(k8s.GrafanaDashboardGVR).Namespace(opsNamespace).
		Get(context.Background(), observability.DashboardName, metav1.GetOptions{})
	require.NoError(t, err)

	json, _, _ := unstructured.NestedString(dashboard.Object, "spec", "json")
	assert.Contains(t, json, `"title": "MaaS Platform"`)

	datasource, err := fakes.Dynamic.Resource(k8s.GrafanaDatasourceGVR).Namespace(opsNamespace).
		Get(context.Background(), observability.DatasourceName, metav1.GetOptions{})
	require.NoError(t, err)

	url, _, _ := unstructured.NestedString(datasource.Object, "spec", "datasource", "url")
	assert.Equal(t, observability.ThanosQuerierURL, url)

	binding, err := fakes.Dynamic.Resource(k8s.ClusterRoleBindingGVR).
		Get(context.Background(), observability.DatasourceSA+"-monitoring-view", metav1.GetOptions{})
	require.NoError(t, err)

	role, _, _ := unstructured.NestedString(binding.Object, "roleRef", "name")
	assert.Equal(t, observability.MonitoringViewRole, role)

	_, err = fakes.Dynamic.Resource(k8s.PersesGVR).Namespace(opsNamespace).
		Get(context.Background(), observability.PersesInstance, metav1.GetOptions{})
	assert.True(t, apierrors.IsNotFound(err))

	assert.Contains(t, out.String(), "grafana dashboard sync")
	assert.Contains(t, out.String(), "observability stack grafana installed")
}

func TestInstallStackPersesUsesServiceAccountToken(t *testing.T) {
	t.Parallel()

	secret := k8stest.Object("v1", "Secret", opsNamespace, observability.DatasourceSecret, map[string]any{
		"type": "kubernetes.io/service-account-token",
		"data": map[string]any{"token": base64.StdEncoding.EncodeToString([]byte("sa-token"))},
	})

	manager, fakes, _ := newManager(options(v1alpha1.DistributionOpenShift), nil, secret)

	require.NoError(t, manager.InstallStack(context.Background(), v1alpha1.ObservabilityStackPerses))

	datasource, err := fakes.Dynamic.Resource(k8s.PersesDatasourceGVR).Namespace(opsNamespace).
		Get(context.Background(), observability.DatasourceName, metav1.GetOptions{})
	require.NoError(t, err)

	header, _, _ := unstructured.NestedString(datasource.Object,
		"spec", "config", "plugin", "spec", "proxy", "spec", "headers", "Authorization")
	assert.Equal(t, "Bearer sa-token", header)

	dashboard, err := fakes.Dynamic.Resource(k8s.PersesDashboardGVR).Namespace(opsNamespace).
		Get(context.Background(), observability.DashboardName, metav1.GetOptions{})
	require.NoError(t, err)

	name, _, _ := unstructured.NestedString(dashboard.Object, "spec", "display", "name")
	assert.Equal(t, "MaaS Platform", name)
}

func TestInstallStackStopsOnFatalOperatorError(t *testing.T) {
	t.Parallel()

	operator := &recordingInstaller{err: fmt.Errorf("%w: grafanas.grafana.integreatly.org", k8s.ErrRequiredCRDMissing)}
	manager, fakes, _ := newManager(options(v1alpha1.DistributionOpenShift),
		operatorsOf(installer.Named{Name: "grafana", Installer: operator}))

	err := manager.InstallStack(context.Background(), v1alpha1.ObservabilityStackGrafana)
	require.ErrorIs(t, err, k8s.ErrRequiredCRDMissing)

	_, err = fakes.Dynamic.Resource(k8s.GrafanaGVR).Namespace(opsNamespace).
		Get(context.Background(), observability.GrafanaInstance, metav1.GetOptions{})
	assert.True(t, apierrors.IsNotFound(err))
}

func TestRemoveStack(t *testing.T) {
	t.Parallel()

	manager, fakes, _ := newManager(options(v1alpha1.DistributionKubernetes), nil)

	require.NoError(t, manager.InstallStack(context.Background(), v1alpha1.ObservabilityStackBoth))
	manager.RemoveStack(context.Background())

	_, err := fakes.Dynamic.Resource(k8s.GrafanaGVR).Namespace(opsNamespace).
		Get(context.Background(), observability.GrafanaInstance, metav1.GetOptions{})
	assert.True(t, apierrors.IsNotFound(err))

	_, err = fakes.Dynamic.Resource(k8s.PersesDashboardGVR).Namespace(opsNamespace).
		Get(context.Background(), observability.DashboardName, metav1.GetOptions{})
	assert.True(t, apierrors.IsNotFound(err))
}

func TestPrometheusURL(t *testing.T) {
	t.Parallel()

	route := k8stest.Object("route.openshift.io/v1", "Route", observability.MonitoringNamespace,
		observability.ThanosQuerierRoute, map[string]any{"spec": map[string]any{"host": "thanos.apps.example.com"}})

	fakes := k8stest.NewClients(route)

	url, err := observability.PrometheusURL(context.Background(), fakes.Dynamic, "")
	require.NoError(t, err)
	assert.Equal(t, "https://thanos.apps.example.com", url)

	url, err = observability.PrometheusURL(context.Background(), fakes.Dynamic, "http://localhost:9090")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9090", url)
}

func TestPrometheusURLWithoutRoute(t *testing.T) {
	t.Parallel()

	_, err := observability.PrometheusURL(context.Background(), k8stest.NewClients().Dynamic, "")
	require.Error(t, err)
}
