// Package grafanainstaller installs the Grafana operator.
package grafanainstaller

import (
	"context"
	"fmt"

	"github.com/opendatahub-io/maasctl/pkg/client/helm"
	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/k8s/readiness"
	"github.com/opendatahub-io/maasctl/pkg/svc/installer/internal/component"
	"github.com/opendatahub-io/maasctl/pkg/svc/olm"
)

// CRDName must be established before Grafana instances can be created.
const CRDName = "grafanas.grafana.integreatly.org"

// GrafanaInstaller installs the Grafana operator into the ops namespace.
type GrafanaInstaller struct {
	*component.Base
}

// NewGrafanaInstaller creates the installer.
func NewGrafanaInstaller(deps component.Deps, namespace string) *GrafanaInstaller {
	return &GrafanaInstaller{
		Base: component.NewBase(deps, component.Operator{
			Name: "grafana",
			OLM: olm.Operator{
				Subscription: olm.Subscription{
					Namespace: namespace,
					Package:   "grafana-operator",
					Channel:   "v5",
					Source:    "community-operators",
				},
				TargetNamespaces: []string{namespace},
			},
			Repo: helm.RepoConfig{Name: "grafana", URL: "https://grafana.github.io/helm-charts"},
			Chart: helm.ChartConfig{
				ReleaseName:     "grafana-operator",
				ChartName:       "grafana/grafana-operator",
				Namespace:       namespace,
				CreateNamespace: true,
			},
		}),
	}
}

// Install installs the operator and waits for the Grafana CRD.
func (g *GrafanaInstaller) Install(ctx context.Context) error {
	err := g.InstallOperator(ctx)
	if err != nil {
		return err
	}

	deps := g.Deps()

	err = readiness.WaitForCRDEstablished(ctx, deps.APIExt, CRDName, deps.Timeout)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", k8s.ErrRequiredCRDMissing, CRDName, err)
	}

	return nil
}

// Uninstall removes the operator.
func (g *GrafanaInstaller) Uninstall(ctx context.Context) error {
	return g.UninstallOperator(ctx)
}
