package observability

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/opendatahub-io/maasctl/deploy"
	"github.com/opendatahub-io/maasctl/pkg/apis/platform/v1alpha1"
	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/k8s/readiness"
	"github.com/opendatahub-io/maasctl/pkg/notify"
	"github.com/opendatahub-io/maasctl/pkg/svc/installer"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"
)

// Names of the dashboard stack objects.
const (
	GrafanaInstance  = "maas-grafana"
	PersesInstance   = "maas-perses"
	DatasourceName   = "thanos-querier"
	DashboardName    = "maas-platform"
	DatasourceSA     = "maas-dashboards"
	DatasourceSecret = "maas-dashboards-token"

	// ThanosQuerierURL is the in-cluster query endpoint of OpenShift monitoring.
	ThanosQuerierURL = "https://thanos-querier.openshift-monitoring.svc.cluster.local:9091"
	// MonitoringViewRole grants read access to cluster metrics.
	MonitoringViewRole = "cluster-monitoring-view"

	dashboardsLabel     = "dashboards"
	dashboardsLabelVal  = "maas"
	grafanaAPI          = "grafana.integreatly.org/v1beta1"
	persesAPI           = "perses.dev/v1alpha1"
	grafanaInputName    = "DS_PROMETHEUS"
	dashboardSynced     = "DashboardSynchronized"
	serviceAccountToken = "kubernetes.io/service-account-token"
)

// InstallStack installs the operators of stack, their instances in the ops
// namespace, the Thanos datasource and the MaaS dashboards. Operator errors
// classified by installer.IsFatal are returned; dashboard problems are
// warnings.
func (m *Manager) InstallStack(ctx context.Context, stack v1alpha1.ObservabilityStack) error {
	if stack == v1alpha1.ObservabilityStackNone || stack == "" {
		notify.Skipf(m.writer, "observability stack disabled")

		return nil
	}

	if m.operators != nil {
		err := installer.InstallAll(ctx, m.writer, m.operators(stack))
		if err != nil {
			return err
		}
	}

	ops := m.opts.Namespaces.Ops

	err := k8s.EnsureNamespace(ctx, m.kube, ops, map[string]string{k8s.UserMonitoringLabel: "true"})
	if err != nil {
		return fmt.Errorf("ensure namespace %s: %w", ops, err)
	}

	m.applyBestEffort(ctx, m.datasourceAuthObjects())

	if stack.IncludesGrafana() {
		m.installGrafana(ctx)
	}

	if stack.IncludesPerses() {
		m.installPerses(ctx)
	}

	notify.Successf(m.writer, "observability stack %s installed in %s", stack, ops)

	return nil
}

// RemoveStack deletes the instances, datasources, dashboards and the
// datasource credentials of every stack, best effort. Operators stay.
func (m *Manager) RemoveStack(ctx context.Context) {
	objects := m.datasourceAuthObjects()

	grafana, err := m.grafanaObjects()
	if err == nil {
		objects = append(objects, grafana...)
	}

	perses, err := m.persesObjects("")
	if err == nil {
		objects = append(objects, perses...)
	}

	m.deleteBestEffort(ctx, objects)
}

func (m *Manager) installGrafana(ctx context.Context) {
	objects, err := m.grafanaObjects()
	if !readiness.BestEffort(m.writer, "grafana dashboards", err) {
		return
	}

	m.applyBestEffort(ctx, objects)

	readiness.BestEffort(m.writer, "grafana dashboard sync", readiness.WaitForCondition(ctx, m.dynamic,
		readiness.Condition{
			GVR:           k8s.GrafanaDashboardGVR,
			Namespace:     m.opts.Namespaces.Ops,
			Name:          DashboardName,
			ConditionType: dashboardSynced,
			Timeout:       m.opts.Timeout,
		}))
}

func (m *Manager) installPerses(ctx context.Context) {
	token, err := m.datasourceToken(ctx)
	readiness.BestEffort(m.writer, "datasource token", err)

	objects, err := m.persesObjects(token)
	if !readiness.BestEffort(m.writer, "perses dashboards", err) {
		return
	}

	m.applyBestEffort(ctx, objects)
}

// datasourceAuthObjects returns the service account whose token the
// datasources present to Thanos, its token secret and its binding to
// cluster-monitoring-view.
func (m *Manager) datasourceAuthObjects() []*unstructured.Unstructured {
	ops := m.opts.Namespaces.Ops

	serviceAccount := object("v1", "ServiceAccount", ops, DatasourceSA, nil)

	secret := object("v1", "Secret", ops, DatasourceSecret, nil)
	secret.Object["type"] = serviceAccountToken
	secret.SetAnnotations(map[string]string{"kubernetes.io/service-account.name": DatasourceSA})

	binding := object("rbac.authorization.k8s.io/v1", "ClusterRoleBinding", "", DatasourceSA+"-monitoring-view", nil)
	binding.Object["roleRef"] = map[string]any{
		"apiGroup": "rbac.authorization.k8s.io",
		"kind":     "ClusterRole",
		"name":     MonitoringViewRole,
	}
	binding.Object["subjects"] = []any{
		map[string]any{"kind": "ServiceAccount", "name": DatasourceSA, "namespace": ops},
	}

	return []*unstructured.Unstructured{serviceAccount, secret, binding}
}

// datasourceToken waits for the token controller to populate the secret.
func (m *Manager) datasourceToken(ctx context.Context) (string, error) {
	var token string

	err := readiness.PollForReadiness(ctx, m.opts.Timeout, func(ctx context.Context) (bool, error) {
		secret, err := m.dynamic.Resource(k8s.SecretGVR).Namespace(m.opts.Namespaces.Ops).
			Get(ctx, DatasourceSecret, metav1.GetOptions{})
		if err != nil {
			return false, nil //nolint:nilerr // the secret may not exist yet
		}

		encoded, _, _ := unstructured.NestedString(secret.Object, "data", "token")
		if encoded == "" {
			return false, nil
		}

		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return false, fmt.Errorf("decode token of %s: %w", DatasourceSecret, err)
		}

		token = string(decoded)

		return true, nil
	})
	if err != nil {
		return "", fmt.Errorf("token of %s: %w", DatasourceSecret, err)
	}

	return token, nil
}

func (m *Manager) grafanaObjects() ([]*unstructured.Unstructured, error) {
	ops := m.opts.Namespaces.Ops

	dashboard, err := deploy.FS.ReadFile(deploy.GrafanaDashboard)
	if err != nil {
		return nil, fmt.Errorf("read grafana dashboard: %w", err)
	}

	instanceSpec := map[string]any{
		"config": map[string]any{
			"log":      map[string]any{"mode": "console"},
			"auth":     map[string]any{"disable_login_form": "false"},
			"security": map[string]any{"admin_user": "admin"},
		},
	}

	if m.opts.Distribution.IsOpenShift() {
		instanceSpec["route"] = map[string]any{"spec": map[string]any{}}
	}

	instance := object(grafanaAPI, "Grafana", ops, GrafanaInstance, instanceSpec)
	instance.SetLabels(map[string]string{partOfLabel: partOfValue, dashboardsLabel: dashboardsLabelVal})

	selector := matchLabels(dashboardsLabel, dashboardsLabelVal)

	datasource := object(grafanaAPI, "GrafanaDatasource", ops, DatasourceName, map[string]any{
		"instanceSelector": selector,
		"datasource": map[string]any{
			"name":      DatasourceName,
			"type":      "prometheus",
			"access":    "proxy",
			"url":       ThanosQuerierURL,
			"isDefault": true,
			"jsonData": map[string]any{
				"tlsSkipVerify":   true,
				"timeInterval":    "5s",
				"httpHeaderName1": "Authorization",
			},
			"secureJsonData": map[string]any{"httpHeaderValue1": "Bearer ${token}"},
		},
		"valuesFrom": []any{
			map[string]any{
				"targetPath": "secureJsonData.httpHeaderValue1",
				"valueFrom": map[string]any{
					"secretKeyRef": map[string]any{"name": DatasourceSecret, "key": "token"},
				},
			},
		},
	})

	grafanaDashboard := object(grafanaAPI, "GrafanaDashboard", ops, DashboardName, map[string]any{
		"instanceSelector": selector,
		"json":             string(dashboard),
		"datasources": []any{
			map[string]any{"inputName": grafanaInputName, "datasourceName": DatasourceName},
		},
	})

	return []*unstructured.Unstructured{instance, datasource, grafanaDashboard}, nil
}

func (m *Manager) persesObjects(token string) ([]*unstructured.Unstructured, error) {
	ops := m.opts.Namespaces.Ops

	raw, err := deploy.FS.ReadFile(deploy.PersesDashboard)
	if err != nil {
		return nil, fmt.Errorf("read perses dashboard: %w", err)
	}

	var dashboardSpec map[string]any

	err = yaml.Unmarshal(raw, &dashboardSpec)
	if err != nil {
		return nil, fmt.Errorf("parse perses dashboard: %w", err)
	}

	instance := object(persesAPI, "Perses", ops, PersesInstance, map[string]any{
		"containerPort": int64(8080),
		"config": map[string]any{
			"database": map[string]any{
				"file": map[string]any{"folder": "/perses", "extension": "yaml"},
			},
		},
	})

	proxy := map[string]any{"url": ThanosQuerierURL}
	if token != "" {
		proxy["headers"] = map[string]any{"Authorization": "Bearer " + token}
	}

	datasource := object(persesAPI, "PersesDatasource", ops, DatasourceName, map[string]any{
		"config": map[string]any{
			"display": map[string]any{"name": "Thanos Querier"},
			"default": true,
			"plugin": map[string]any{
				"kind": "PrometheusDatasource",
				"spec": map[string]any{
					"proxy": map[string]any{"kind": "HTTPProxy", "spec": proxy},
				},
			},
		},
	})

	dashboard := object(persesAPI, "PersesDashboard", ops, DashboardName, dashboardSpec)

	return []*unstructured.Unstructured{instance, datasource, dashboard}, nil
}
