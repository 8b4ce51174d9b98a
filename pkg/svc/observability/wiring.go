package observability

import (
	"context"
	"fmt"

	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/k8s/readiness"
	"github.com/opendatahub-io/maasctl/pkg/notify"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Names of the wiring objects.
const (
	LimitadorServiceMonitor = "limitador-metrics"
	AuthorinoServiceMonitor = "authorino-metrics"
	GatewayPodMonitor       = "istio-gateway-metrics"
	ModelServiceMonitor     = "kserve-llm-models"
	LatencyTelemetry        = "latency-per-user"

	// UserHeader carries the authenticated user from Authorino to the
	// gateway telemetry.
	UserHeader = "x-maas-user"

	gatewayNameLabel = "gateway.networking.k8s.io/gateway-name"
	monitoringAPI    = "monitoring.coreos.com/v1"
)

// WireMetrics labels the platform namespaces for user workload monitoring
// and applies the scrape and telemetry objects. Every step is best effort;
// only a cancelled context is returned.
func (m *Manager) WireMetrics(ctx context.Context) error {
	if m.opts.Distribution.IsOpenShift() {
		changed, err := EnableUserWorkloadMonitoring(ctx, m.kube)
		if readiness.BestEffort(m.writer, "enable user workload monitoring", err) && changed {
			notify.Activityf(m.writer, "enabled user workload monitoring")
		}
	}

	namespaces := m.opts.Namespaces

	for _, name := range []string{namespaces.Kuadrant, namespaces.App, m.opts.Gateway.Namespace} {
		if name == "" {
			continue
		}

		readiness.BestEffort(m.writer, "label namespace "+name, k8s.EnsureNamespace(
			ctx, m.kube, name, map[string]string{k8s.UserMonitoringLabel: "true"},
		))
	}

	applied := m.applyBestEffort(ctx, m.WiringObjects())

	err := ctx.Err()
	if err != nil {
		return fmt.Errorf("wire metrics: %w", err)
	}

	notify.Successf(m.writer, "metrics wired (%d objects)", applied)

	return nil
}

// UnwireMetrics deletes the wiring objects, best effort.
func (m *Manager) UnwireMetrics(ctx context.Context) {
	m.deleteBestEffort(ctx, m.WiringObjects())
}

// WiringObjects returns the ServiceMonitors, PodMonitor and Telemetry that
// expose the platform metrics.
func (m *Manager) WiringObjects() []*unstructured.Unstructured {
	namespaces := m.opts.Namespaces
	gateway := m.opts.Gateway

	return []*unstructured.Unstructured{
		object(monitoringAPI, "ServiceMonitor", namespaces.Kuadrant, LimitadorServiceMonitor, map[string]any{
			"selector": matchLabels("app", "limitador"),
			"endpoints": []any{
				map[string]any{"port": "http", "path": "/metrics", "interval": "15s"},
			},
		}),
		object(monitoringAPI, "ServiceMonitor", namespaces.Kuadrant, AuthorinoServiceMonitor, map[string]any{
			"selector": matchLabels("authorino-resource", "authorino"),
			"endpoints": []any{
				map[string]any{"port": "http", "path": "/metrics", "interval": "30s"},
				map[string]any{"port": "http", "path": "/server-metrics", "interval": "30s"},
			},
		}),
		object(monitoringAPI, "PodMonitor", gateway.Namespace, GatewayPodMonitor, map[string]any{
			"selector": matchLabels(gatewayNameLabel, gateway.Name),
			"podMetricsEndpoints": []any{
				map[string]any{"port": "http-envoy-prom", "path": "/stats/prometheus", "interval": "15s"},
			},
		}),
		object(monitoringAPI, "ServiceMonitor", namespaces.App, ModelServiceMonitor, map[string]any{
			"selector": matchLabels("app.kubernetes.io/part-of", "llminferenceservice"),
			"endpoints": []any{
				map[string]any{
					"port":      "https",
					"scheme":    "https",
					"path":      "/metrics",
					"interval":  "30s",
					"tlsConfig": map[string]any{"insecureSkipVerify": true},
				},
			},
		}),
		object("telemetry.istio.io/v1", "Telemetry", gateway.Namespace, LatencyTelemetry, map[string]any{
			"selector": matchLabels(gatewayNameLabel, gateway.Name),
			"metrics": []any{
				map[string]any{
					"providers": []any{map[string]any{"name": "prometheus"}},
					"overrides": []any{
						map[string]any{
							"match": map[string]any{"metric": "REQUEST_DURATION", "mode": "CLIENT_AND_SERVER"},
							"tagOverrides": map[string]any{
								"user": map[string]any{
									"operation": "UPSERT",
									"value":     fmt.Sprintf("request.headers['%s']", UserHeader),
								},
							},
						},
					},
				},
			},
		}),
	}
}

func matchLabels(key, value string) map[string]any {
	return map[string]any{"matchLabels": map[string]any{key: value}}
}
