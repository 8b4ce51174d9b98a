package certmanagerinstaller

import (
	"context"

	"github.com/opendatahub-io/maasctl/pkg/client/helm"
	"github.com/opendatahub-io/maasctl/pkg/k8s/readiness"
	"github.com/opendatahub-io/maasctl/pkg/svc/installer/internal/component"
	"github.com/opendatahub-io/maasctl/pkg/svc/olm"
)

const (
	// Namespace hosts the cert-manager operand on both distributions.
	Namespace = "cert-manager"

	// OperatorNamespace hosts the OLM subscription on OpenShift.
	OperatorNamespace = "cert-manager-operator"
	// CSVPrefix prefixes the operator's CSV names.
	CSVPrefix = "cert-manager-operator"

	webhookService = "cert-manager-webhook"
)

// CertManagerInstaller installs cert-manager, which Kuadrant and KServe
// webhooks rely on for serving certificates.
type CertManagerInstaller struct {
	*component.Base
}

// NewCertManagerInstaller creates the installer. requiredVersion is the
// minimum accepted operator version on OpenShift.
func NewCertManagerInstaller(deps component.Deps, requiredVersion string) *CertManagerInstaller {
	return &CertManagerInstaller{
		Base: component.NewBase(deps, component.Operator{
			Name: "cert-manager",
			OLM: olm.Operator{
				Subscription: olm.Subscription{
					Namespace: OperatorNamespace,
					Package:   "openshift-cert-manager-operator",
					Channel:   "stable-v1",
					Source:    "redhat-operators",
				},
				TargetNamespaces: []string{OperatorNamespace},
				CSVPrefix:        CSVPrefix,
				RequiredVersion:  requiredVersion,
			},
			Repo: helm.RepoConfig{Name: "jetstack", URL: "https://charts.jetstack.io"},
			Chart: helm.ChartConfig{
				ReleaseName:     "cert-manager",
				ChartName:       "jetstack/cert-manager",
				Namespace:       Namespace,
				CreateNamespace: true,
				SetValues: map[string]string{
					"crds.enabled":            "true",
					"startupapicheck.timeout": "5m",
				},
			},
		}),
	}
}

// Install installs the operator and waits, best effort, for the
// controller, cainjector and webhook.
func (c *CertManagerInstaller) Install(ctx context.Context) error {
	err := c.InstallOperator(ctx)
	if err != nil {
		return err
	}

	if !c.WaitForDeployments(ctx, Namespace, "cert-manager", "cert-manager-cainjector", "cert-manager-webhook") {
		return nil
	}

	deps := c.Deps()
	c.Warn("cert-manager webhook", readiness.WaitForWebhookEndpoints(ctx, deps.Kube, Namespace, webhookService, deps.Timeout))

	return nil
}

// Uninstall removes the operator.
func (c *CertManagerInstaller) Uninstall(ctx context.Context) error {
	return c.UninstallOperator(ctx)
}
