// Package persesinstaller installs the Perses operator: through the Cluster
// Observability Operator on OpenShift, from the Perses chart elsewhere.
package persesinstaller

import (
	"context"
	"fmt"

	"github.com/opendatahub-io/maasctl/pkg/client/helm"
	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/k8s/readiness"
	"github.com/opendatahub-io/maasctl/pkg/svc/installer/internal/component"
	"github.com/opendatahub-io/maasctl/pkg/svc/olm"
)

const (
	// CRDName must be established before Perses instances can be created.
	CRDName = "perses.perses.dev"

	cooNamespace = "openshift-cluster-observability-operator"
)

// PersesInstaller installs the Perses operator.
type PersesInstaller struct {
	*component.Base
}

// NewPersesInstaller creates the installer; namespace is used for the Helm release.
func NewPersesInstaller(deps component.Deps, namespace string) *PersesInstaller {
	return &PersesInstaller{
		Base: component.NewBase(deps, component.Operator{
			Name: "perses",
			OLM: olm.Operator{
				Subscription: olm.Subscription{
					Namespace: cooNamespace,
					Package:   "cluster-observability-operator",
					Channel:   "stable",
					Source:    "redhat-operators",
				},
			},
			Repo: helm.RepoConfig{Name: "perses", URL: "https://perses.github.io/helm-charts"},
			Chart: helm.ChartConfig{
				ReleaseName:     "perses-operator",
				ChartName:       "perses/perses-operator",
				Namespace:       namespace,
				CreateNamespace: true,
			},
		}),
	}
}

// Install installs the operator and waits for the Perses CRD.
func (p *PersesInstaller) Install(ctx context.Context) error {
	err := p.InstallOperator(ctx)
	if err != nil {
		return err
	}

	deps := p.Deps()

	err = readiness.WaitForCRDEstablished(ctx, deps.APIExt, CRDName, deps.Timeout)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", k8s.ErrRequiredCRDMissing, CRDName, err)
	}

	return nil
}

// Uninstall removes the operator.
func (p *PersesInstaller) Uninstall(ctx context.Context) error {
	return p.UninstallOperator(ctx)
}
