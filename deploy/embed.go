// Package deploy embeds the manifests maasctl renders and applies: the
// maas-api and gateway policy kustomize bases, the simulator sample model,
// the dashboards and the expected metrics of the observability tests.
package deploy

import "embed"

// Paths of the kustomize bases inside FS.
const (
	MaaSAPIBase   = "/base/maas-api"
	PoliciesBase  = "/base/policies"
	SimulatorBase = "/samples/simulator"

	GrafanaDashboard = "dashboards/grafana/maas-platform.json"
	PersesDashboard  = "dashboards/perses/maas-platform.yaml"
	ExpectedMetrics  = "test/expected_metrics.yaml"
)

// FS holds every embedded manifest.
//
//go:embed base samples dashboards test
var FS embed.FS
