package installer

import (
	"github.com/opendatahub-io/maasctl/pkg/apis/platform/v1alpha1"
	certmanagerinstaller "github.com/opendatahub-io/maasctl/pkg/svc/installer/certmanager"
	grafanainstaller "github.com/opendatahub-io/maasctl/pkg/svc/installer/grafana"
	kuadrantinstaller "github.com/opendatahub-io/maasctl/pkg/svc/installer/kuadrant"
	odhinstaller "github.com/opendatahub-io/maasctl/pkg/svc/installer/odh"
	persesinstaller "github.com/opendatahub-io/maasctl/pkg/svc/installer/perses"
)

// Selection chooses which dependencies to install.
type Selection struct {
	CertManager bool
	Kuadrant    bool
	ODH         bool
}

// SelectionFor honours the SKIP_* switches. ODH is only available on OpenShift.
func SelectionFor(platform *v1alpha1.Platform) Selection {
	operators := platform.Spec.Operators

	return Selection{
		CertManager: !operators.SkipCertManager,
		Kuadrant:    !operators.SkipKuadrant,
		ODH:         !operators.SkipODH && platform.Spec.Distribution.IsOpenShift(),
	}
}

// Factory creates installers based on the platform configuration.
type Factory struct {
	deps     Deps
	platform *v1alpha1.Platform
}

// NewFactory creates a new installer factory. deps.Timeout defaults to the
// platform's install timeout.
func NewFactory(deps Deps, platform *v1alpha1.Platform) *Factory {
	if deps.Timeout <= 0 {
		deps.Timeout = GetInstallTimeout(platform)
	}

	if deps.Distribution == "" {
		deps.Distribution = platform.Spec.Distribution
	}

	return &Factory{deps: deps, platform: platform}
}

// Dependencies returns the selected dependency installers in install order.
func (f *Factory) Dependencies(selection Selection) []Named {
	spec := f.platform.Spec
	operators := spec.Operators

	var installers []Named

	if selection.CertManager {
		installers = append(installers, Named{
			Name:      "cert-manager",
			Installer: certmanagerinstaller.NewCertManagerInstaller(f.deps, operators.RequiredCertManagerCSV),
		})
	}

	if selection.Kuadrant {
		installers = append(installers, Named{Name: "kuadrant", Installer: f.Kuadrant()})
	}

	if selection.ODH && spec.Distribution.IsOpenShift() {
		required := operators.RequiredODHCSV
		if operators.Set == v1alpha1.OperatorSetRHOAI {
			required = operators.RequiredRHOAICSV
		}

		installers = append(installers, Named{
			Name:      string(operators.Set),
			Installer: odhinstaller.NewODHInstaller(f.deps, operators.Set, required),
		})
	}

	return installers
}

// Observability returns the dashboard operator installers for stack.
func (f *Factory) Observability(stack v1alpha1.ObservabilityStack) []Named {
	namespace := f.platform.Spec.Namespaces.Ops

	var installers []Named

	if stack.IncludesGrafana() {
		installers = append(installers, Named{
			Name:      "grafana",
			Installer: grafanainstaller.NewGrafanaInstaller(f.deps, namespace),
		})
	}

	if stack.IncludesPerses() {
		installers = append(installers, Named{
			Name:      "perses",
			Installer: persesinstaller.NewPersesInstaller(f.deps, namespace),
		})
	}

	return installers
}

// Kuadrant returns the Kuadrant installer on its own.
func (f *Factory) Kuadrant() *kuadrantinstaller.KuadrantInstaller {
	spec := f.platform.Spec

	return kuadrantinstaller.NewKuadrantInstaller(f.deps, kuadrantinstaller.Config{
		Namespace:       spec.Namespaces.Kuadrant,
		OperatorSet:     spec.Operators.Set,
		CatalogImage:    spec.Operators.CatalogImage,
		RequiredVersion: spec.Operators.RequiredKuadrantCSV,
	})
}
