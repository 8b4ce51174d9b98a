// Package orchestrator sequences the platform components into the deploy
// and cleanup flows. Only preconditions stop a run; every other failure is
// reported as a warning and the flow continues.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/opendatahub-io/maasctl/pkg/apis/platform/v1alpha1"
	"github.com/opendatahub-io/maasctl/pkg/client/apply"
	"github.com/opendatahub-io/maasctl/pkg/client/helm"
	"github.com/opendatahub-io/maasctl/pkg/client/maas"
	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/notify"
	"github.com/opendatahub-io/maasctl/pkg/svc/gateway"
	"github.com/opendatahub-io/maasctl/pkg/svc/installer"
	"github.com/opendatahub-io/maasctl/pkg/svc/manifests"
	"github.com/opendatahub-io/maasctl/pkg/svc/observability"
	"github.com/opendatahub-io/maasctl/pkg/svc/olm"
	"github.com/opendatahub-io/maasctl/pkg/svc/policy"
	"github.com/opendatahub-io/maasctl/pkg/svc/validate"
)

// GatewayCRDs must exist before the gateway and routes are created.
var GatewayCRDs = []string{
	"gatewayclasses.gateway.networking.k8s.io",
	"gateways.gateway.networking.k8s.io",
	"httproutes.gateway.networking.k8s.io",
}

// PolicyCRDs must exist before the gateway policies are applied.
var PolicyCRDs = []string{
	"authpolicies.kuadrant.io",
	"ratelimitpolicies.kuadrant.io",
	"tokenratelimitpolicies.kuadrant.io",
	"telemetrypolicies.extensions.kuadrant.io",
}

// Orchestrator runs multi-step flows against one cluster.
type Orchestrator struct {
	clients  *k8s.Clients
	applier  *apply.Applier
	renderer *manifests.Renderer
	factory  *installer.Factory
	platform *v1alpha1.Platform
	writer   io.Writer
	timeout  time.Duration
}

// New creates an Orchestrator. helmClient is only used on plain Kubernetes
// and may be nil on OpenShift.
func New(
	clients *k8s.Clients,
	helmClient helm.Interface,
	renderer *manifests.Renderer,
	platform *v1alpha1.Platform,
	writer io.Writer,
) *Orchestrator {
	timeout := installer.GetInstallTimeout(platform)
	applier := apply.NewApplier(clients.Dynamic, clients.Mapper).WithRetryTimeout(timeout)

	factory := installer.NewFactory(installer.Deps{
		Kube:         clients.Kube,
		Dynamic:      clients.Dynamic,
		APIExt:       clients.APIExt,
		Applier:      applier,
		OLM:          olm.NewManager(clients.Dynamic, applier, writer),
		Helm:         helmClient,
		Writer:       writer,
		Timeout:      timeout,
		Distribution: platform.Spec.Distribution,
	}, platform)

	return &Orchestrator{
		clients:  clients,
		applier:  applier,
		renderer: renderer,
		factory:  factory,
		platform: platform,
		writer:   writer,
		timeout:  timeout,
	}
}

// Preflight checks that the credentials are accepted and returns the user.
func (o *Orchestrator) Preflight(ctx context.Context) (string, error) {
	user, err := k8s.WhoAmI(ctx, o.clients.Kube)
	if err != nil {
		return "", fmt.Errorf("preflight: %w", err)
	}

	notify.Infof(o.writer, "logged in to %s as %s", o.clients.Config.Host, user)

	return user, nil
}

// InstallDependencies installs the selected operators in order.
func (o *Orchestrator) InstallDependencies(ctx context.Context, selection installer.Selection) error {
	installers := o.factory.Dependencies(selection)
	if len(installers) == 0 {
		notify.Skipf(o.writer, "no dependencies selected")

		return nil
	}

	return installer.InstallAll(ctx, o.writer, installers)
}

// InstallObservability wires the metrics and installs the dashboard stack.
func (o *Orchestrator) InstallObservability(ctx context.Context, stack v1alpha1.ObservabilityStack) error {
	manager := o.Observability()

	err := manager.WireMetrics(ctx)
	if err != nil {
		return err
	}

	return manager.InstallStack(ctx, stack)
}

// Gateway returns the gateway provisioner.
func (o *Orchestrator) Gateway() *gateway.Provisioner {
	spec := o.platform.Spec

	return gateway.NewProvisioner(o.clients.Dynamic, o.applier, o.writer, gateway.Options{
		Gateway:      spec.Gateway,
		Distribution: spec.Distribution,
		Timeout:      o.timeout,
	})
}

// Policies returns the gateway policy manager.
func (o *Orchestrator) Policies() *policy.Manager {
	spec := o.platform.Spec

	return policy.NewManager(o.clients.Kube, o.clients.Dynamic, o.applier, o.renderer, o.writer, policy.Options{
		GatewayName:       spec.Gateway.Name,
		GatewayNamespace:  spec.Gateway.Namespace,
		KuadrantNamespace: spec.Namespaces.Kuadrant,
		MaaSAPINamespace:  spec.Namespaces.MaaSAPI,
		Timeout:           o.timeout,
	})
}

// Observability returns the metrics and dashboards manager.
func (o *Orchestrator) Observability() *observability.Manager {
	spec := o.platform.Spec

	return observability.NewManager(o.clients.Kube, o.clients.Dynamic, o.applier, o.writer, observability.Options{
		Namespaces:   spec.Namespaces,
		Gateway:      spec.Gateway,
		Distribution: spec.Distribution,
		Timeout:      o.timeout,
	}, o.factory.Observability)
}

// OLM returns the subscription manager.
func (o *Orchestrator) OLM() *olm.Manager {
	return olm.NewManager(o.clients.Dynamic, o.applier, o.writer)
}

// Validator returns the platform validator. maasClient may be nil.
func (o *Orchestrator) Validator(maasClient *maas.Client) *validate.Validator {
	return validate.NewValidator(o.clients.Kube, o.clients.Dynamic, o.OLM(), maasClient, validate.Options{
		Platform: o.platform,
	})
}

// GatewayURL returns the configured test gateway URL, or the https URL of
// the MaaS hostname on the cluster apps domain.
func (o *Orchestrator) GatewayURL(ctx context.Context) (string, error) {
	if o.platform.Spec.Test.GatewayURL != "" {
		return o.platform.Spec.Test.GatewayURL, nil
	}

	domain, err := o.Gateway().DetectDomain(ctx)
	if err != nil {
		return "", err
	}

	return "https://" + gateway.HostnamePrefix + domain, nil
}
