package orchestrator

import (
	"context"
	"fmt"
	"slices"

	"github.com/opendatahub-io/maasctl/pkg/apis/platform/v1alpha1"
	"github.com/opendatahub-io/maasctl/pkg/k8s/readiness"
	"github.com/opendatahub-io/maasctl/pkg/notify"
	"github.com/opendatahub-io/maasctl/pkg/svc/installer"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// CleanupOptions select what cleanup removes besides the platform objects.
type CleanupOptions struct {
	// IncludeOperators also removes the operator subscriptions and CSVs, or
	// the Helm releases.
	IncludeOperators bool
}

// Cleanup removes the platform in reverse deploy order. Every step is best
// effort; only preflight errors are returned.
func (o *Orchestrator) Cleanup(ctx context.Context, opts CleanupOptions) error {
	notify.Titlef(o.writer, "🔐", "Preflight")

	_, err := o.Preflight(ctx)
	if err != nil {
		return err
	}

	notify.Titlef(o.writer, "🧹", "Removing platform objects")

	readiness.BestEffort(o.writer, "delete policies", o.Policies().Delete(ctx))

	simulator, err := o.simulatorObjects(ctx)
	if readiness.BestEffort(o.writer, "render simulator", err) {
		o.deleteAll(ctx, simulator)
	}

	maasAPI, err := o.maasAPIObjects(ctx)
	if readiness.BestEffort(o.writer, "render maas-api", err) {
		o.deleteAll(ctx, maasAPI)
	}

	readiness.BestEffort(o.writer, "delete gateway", o.Gateway().Delete(ctx))

	observability := o.Observability()
	observability.RemoveStack(ctx)
	observability.UnwireMetrics(ctx)

	if opts.IncludeOperators {
		notify.Titlef(o.writer, "🗑️", "Removing operators")

		installer.UninstallAll(ctx, o.writer, o.factory.Observability(v1alpha1.ObservabilityStackBoth))
		installer.UninstallAll(ctx, o.writer, o.factory.Dependencies(installer.SelectionFor(o.platform)))
	}

	notify.Titlef(o.writer, "⏳", "Removing namespaces")

	for _, namespace := range o.CleanupNamespaces(opts) {
		o.deleteNamespace(ctx, namespace)
	}

	notify.Successf(o.writer, "cleanup finished")

	return nil
}

// CleanupNamespaces lists the namespaces cleanup removes. The gateway
// namespace is shared with the cluster ingress and is never removed.
func (o *Orchestrator) CleanupNamespaces(opts CleanupOptions) []string {
	namespaces := o.platform.Spec.Namespaces

	names := []string{namespaces.MaaSAPI, namespaces.Ops}
	if o.platform.Spec.Deploy.DeploySimulator {
		names = append(names, namespaces.App)
	}

	if opts.IncludeOperators {
		names = append(names, namespaces.Kuadrant)
	}

	names = slices.DeleteFunc(names, func(name string) bool {
		return name == "" || name == o.platform.Spec.Gateway.Namespace
	})
	slices.Sort(names)

	return slices.Compact(names)
}

func (o *Orchestrator) deleteNamespace(ctx context.Context, name string) {
	err := o.clients.Kube.CoreV1().Namespaces().Delete(ctx, name, metav1.DeleteOptions{})
	if apierrors.IsNotFound(err) {
		notify.Skipf(o.writer, "namespace %s already gone", name)

		return
	}

	if !readiness.BestEffort(o.writer, "delete namespace "+name, err) {
		return
	}

	err = readiness.WaitForNamespaceDeleted(ctx, o.clients.Kube, name, o.timeout)
	if readiness.BestEffort(o.writer, fmt.Sprintf("namespace %s still terminating", name), err) {
		notify.Successf(o.writer, "namespace %s deleted", name)
	}
}

func (o *Orchestrator) deleteAll(ctx context.Context, objects []*unstructured.Unstructured) {
	for i := len(objects) - 1; i >= 0; i-- {
		obj := objects[i]
		readiness.BestEffort(o.writer, "delete "+obj.GetKind()+" "+obj.GetName(), o.applier.Delete(ctx, obj))
	}
}
