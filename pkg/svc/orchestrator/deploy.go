package orchestrator

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/opendatahub-io/maasctl/deploy"
	"github.com/opendatahub-io/maasctl/pkg/apis/platform/v1alpha1"
	"github.com/opendatahub-io/maasctl/pkg/client/kustomize"
	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/k8s/readiness"
	"github.com/opendatahub-io/maasctl/pkg/notify"
	"github.com/opendatahub-io/maasctl/pkg/svc/gateway"
	"github.com/opendatahub-io/maasctl/pkg/svc/installer"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

const (
	// MaaSAPIName names the maas-api deployment, service and route.
	MaaSAPIName = "maas-api"
	// SimulatorName names the sample LLMInferenceService.
	SimulatorName = "facebook-opt-125m-simulated"
)

// Summary describes what a deploy produced.
type Summary struct {
	User      string
	Endpoint  gateway.Endpoint
	MaaSAPI   string
	Simulator bool
	// Observability is empty when the stack was skipped.
	Observability v1alpha1.ObservabilityStack
}

// Deploy runs the whole installation: preflight, dependencies, gateway,
// maas-api, policies, the optional simulator and observability.
func (o *Orchestrator) Deploy(ctx context.Context) (*Summary, error) {
	spec := o.platform.Spec

	notify.Titlef(o.writer, "🔐", "Preflight")

	user, err := o.Preflight(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{User: user, MaaSAPI: spec.Namespaces.MaaSAPI}

	notify.Titlef(o.writer, "📦", "Dependencies")

	err = o.InstallDependencies(ctx, installer.SelectionFor(o.platform))
	if err != nil {
		return nil, err
	}

	err = k8s.RequireCRDs(ctx, o.clients.Runtime, slices.Concat(GatewayCRDs, PolicyCRDs)...)
	if err != nil {
		return nil, fmt.Errorf("dependencies: %w", err)
	}

	notify.Titlef(o.writer, "🌐", "Gateway")

	summary.Endpoint, err = o.Gateway().Ensure(ctx)
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}

	notify.Titlef(o.writer, "🚀", "MaaS API")

	err = o.DeployMaaSAPI(ctx)
	if err != nil {
		return nil, err
	}

	notify.Titlef(o.writer, "🛡️", "Policies")

	err = o.Policies().Apply(ctx)
	if err != nil {
		return nil, fmt.Errorf("policies: %w", err)
	}

	if spec.Deploy.DeploySimulator {
		notify.Titlef(o.writer, "🤖", "Simulator model")

		err = o.DeploySimulator(ctx)
		if err != nil {
			return nil, err
		}

		summary.Simulator = true
	}

	if spec.Observability.Skip {
		notify.Skipf(o.writer, "observability skipped")
	} else {
		notify.Titlef(o.writer, "📊", "Observability")

		err = o.InstallObservability(ctx, spec.Observability.Stack)
		if err != nil {
			return nil, fmt.Errorf("observability: %w", err)
		}

		summary.Observability = spec.Observability.Stack
	}

	o.printSummary(summary)

	return summary, nil
}

// DeployMaaSAPI renders the maas-api base into the configured namespace,
// applies it and waits, best effort, for the rollout.
func (o *Orchestrator) DeployMaaSAPI(ctx context.Context) error {
	namespace := o.platform.Spec.Namespaces.MaaSAPI

	objects, err := o.maasAPIObjects(ctx)
	if err != nil {
		return err
	}

	err = k8s.EnsureNamespace(ctx, o.clients.Kube, namespace, nil)
	if err != nil {
		readiness.BestEffort(o.writer, "maas-api namespace", err)

		return nil
	}

	if !o.applyAll(ctx, "maas-api", objects) {
		return nil
	}

	err = readiness.WaitForDeploymentReady(ctx, o.clients.Kube, namespace, MaaSAPIName, o.timeout)
	if readiness.BestEffort(o.writer, "maas-api not ready", err) {
		notify.Successf(o.writer, "maas-api ready in %s", namespace)

		return nil
	}

	diagnosis := k8s.DiagnosePodFailures(ctx, o.clients.Kube, []string{namespace})
	if diagnosis != "" {
		notify.Warningf(o.writer, "%s", strings.TrimPrefix(diagnosis, "\n"))
	}

	return nil
}

func (o *Orchestrator) maasAPIObjects(ctx context.Context) ([]*unstructured.Unstructured, error) {
	spec := o.platform.Spec

	objects, err := o.renderer.Render(ctx, deploy.MaaSAPIBase, kustomize.Overlay{Namespace: spec.Namespaces.MaaSAPI})
	if err != nil {
		return nil, fmt.Errorf("maas-api: %w", err)
	}

	for _, obj := range objects {
		switch obj.GetKind() {
		case "ClusterRoleBinding":
			setSubjectNamespace(obj, spec.Namespaces.MaaSAPI)
		case "HTTPRoute":
			setParentGateway(obj, spec.Gateway)
		}
	}

	return objects, nil
}

// DeploySimulator deploys the sample model into the app namespace and waits,
// best effort, for it to become ready.
func (o *Orchestrator) DeploySimulator(ctx context.Context) error {
	namespace := o.platform.Spec.Namespaces.App

	objects, err := o.simulatorObjects(ctx)
	if err != nil {
		return err
	}

	err = k8s.EnsureNamespace(ctx, o.clients.Kube, namespace, nil)
	if err != nil {
		readiness.BestEffort(o.writer, "simulator namespace", err)

		return nil
	}

	if !o.applyAll(ctx, "simulator", objects) {
		return nil
	}

	err = readiness.WaitForCondition(ctx, o.clients.Dynamic, readiness.Condition{
		GVR:           k8s.LLMInferenceServiceGVR,
		Namespace:     namespace,
		Name:          SimulatorName,
		ConditionType: "Ready",
		Timeout:       o.timeout,
	})
	if readiness.BestEffort(o.writer, "simulator model not ready", err) {
		notify.Successf(o.writer, "model %s ready in %s", SimulatorName, namespace)
	}

	return nil
}

func (o *Orchestrator) simulatorObjects(ctx context.Context) ([]*unstructured.Unstructured, error) {
	objects, err := o.renderer.Render(ctx, deploy.SimulatorBase,
		kustomize.Overlay{Namespace: o.platform.Spec.Namespaces.App})
	if err != nil {
		return nil, fmt.Errorf("simulator: %w", err)
	}

	return objects, nil
}

func (o *Orchestrator) applyAll(ctx context.Context, what string, objects []*unstructured.Unstructured) bool {
	results, err := o.applier.ApplyObjects(ctx, objects)
	for _, result := range results {
		notify.Activityf(o.writer, "%s", result)
	}

	return readiness.BestEffort(o.writer, "apply "+what, err)
}

func (o *Orchestrator) printSummary(summary *Summary) {
	notify.Titlef(o.writer, "✅", "MaaS platform deployed")
	notify.Infof(o.writer, "gateway:  %s", summary.Endpoint.URL)
	notify.Infof(o.writer, "maas-api: %s/maas-api", summary.Endpoint.URL)
	notify.Infof(o.writer, "models:   %s", o.platform.Spec.Namespaces.App)

	if summary.Observability != "" {
		notify.Infof(o.writer, "dashboards: %s in %s", summary.Observability, o.platform.Spec.Namespaces.Ops)
	}

	notify.Infof(o.writer, "next: maasctl validate && maasctl test smoke")
}

// setSubjectNamespace points every ServiceAccount subject at namespace; the
// kustomize namespace transformer leaves binding subjects alone.
func setSubjectNamespace(binding *unstructured.Unstructured, namespace string) {
	subjects, found, _ := unstructured.NestedSlice(binding.Object, "subjects")
	if !found {
		return
	}

	for _, raw := range subjects {
		subject, ok := raw.(map[string]any)
		if ok && subject["kind"] == "ServiceAccount" {
			subject["namespace"] = namespace
		}
	}

	_ = unstructured.SetNestedSlice(binding.Object, subjects, "subjects")
}

func setParentGateway(route *unstructured.Unstructured, gw v1alpha1.Gateway) {
	_ = unstructured.SetNestedSlice(route.Object, []any{
		map[string]any{"name": gw.Name, "namespace": gw.Namespace},
	}, "spec", "parentRefs")
}
