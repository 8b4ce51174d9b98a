// Package component holds what every dependency installer shares: the
// cluster clients and the OLM-or-Helm operator lifecycle.
package component

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/opendatahub-io/maasctl/pkg/apis/platform/v1alpha1"
	"github.com/opendatahub-io/maasctl/pkg/client/apply"
	"github.com/opendatahub-io/maasctl/pkg/client/helm"
	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/k8s/readiness"
	"github.com/opendatahub-io/maasctl/pkg/notify"
	"github.com/opendatahub-io/maasctl/pkg/svc/olm"
	apiextensionsclientset "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
)

// ErrHelmUnavailable is returned when a Helm install is needed but no Helm client was configured.
var ErrHelmUnavailable = errors.New("helm client is not configured")

// Deps are the shared dependencies of the installers.
type Deps struct {
	Kube    kubernetes.Interface
	Dynamic dynamic.Interface
	APIExt  apiextensionsclientset.Interface
	Applier *apply.Applier
	OLM     *olm.Manager
	// Helm is only needed on plain Kubernetes.
	Helm         helm.Interface
	Writer       io.Writer
	Timeout      time.Duration
	Distribution v1alpha1.Distribution
}

// Operator describes how one operator is installed on each distribution.
type Operator struct {
	// Name is used in messages, e.g. "kuadrant".
	Name string
	// OLM is used on OpenShift.
	OLM olm.Operator
	// Repo and Chart are used on plain Kubernetes.
	Repo  helm.RepoConfig
	Chart helm.ChartConfig
}

// Base installs and removes an operator the way the distribution expects.
// Embed *Base in installers that add their operand on top.
type Base struct {
	deps     Deps
	operator Operator
}

// NewBase creates a Base.
func NewBase(deps Deps, operator Operator) *Base {
	return &Base{deps: deps, operator: operator}
}

// Deps returns the shared dependencies.
func (b *Base) Deps() Deps {
	return b.deps
}

// Name returns the component name.
func (b *Base) Name() string {
	return b.operator.Name
}

// InstallOperator subscribes through OLM on OpenShift and installs the Helm
// chart elsewhere.
func (b *Base) InstallOperator(ctx context.Context) error {
	if b.deps.Distribution.IsOpenShift() {
		sub := b.operator.OLM.Subscription

		err := k8s.EnsureNamespace(ctx, b.deps.Kube, sub.Namespace, nil)
		if err != nil {
			return fmt.Errorf("%s operator namespace: %w", b.operator.Name, err)
		}

		csv, err := b.deps.OLM.Install(ctx, b.operator.OLM, b.deps.Timeout)
		if err != nil {
			return fmt.Errorf("install %s operator: %w", b.operator.Name, err)
		}

		notify.Successf(b.deps.Writer, "%s operator installed (%s)", b.operator.Name, csv)

		return nil
	}

	if b.deps.Helm == nil {
		return fmt.Errorf("install %s operator: %w", b.operator.Name, ErrHelmUnavailable)
	}

	err := helm.InstallOrUpgradeChart(ctx, b.deps.Helm, b.operator.Repo, b.operator.Chart, b.deps.Timeout)
	if err != nil {
		return fmt.Errorf("install %s operator: %w", b.operator.Name, err)
	}

	notify.Successf(b.deps.Writer, "%s operator installed (helm release %s)", b.operator.Name,
		b.operator.Chart.ReleaseName)

	return nil
}

// UninstallOperator removes the subscription and CSV, or the Helm release.
func (b *Base) UninstallOperator(ctx context.Context) error {
	if b.deps.Distribution.IsOpenShift() {
		err := b.deps.OLM.Uninstall(ctx, b.operator.OLM.Subscription, b.operator.OLM.ResolvedCSVPrefix())
		if err != nil {
			return fmt.Errorf("uninstall %s operator: %w", b.operator.Name, err)
		}

		return nil
	}

	if b.deps.Helm == nil {
		return fmt.Errorf("uninstall %s operator: %w", b.operator.Name, ErrHelmUnavailable)
	}

	err := b.deps.Helm.UninstallRelease(ctx, b.operator.Chart.ReleaseName, b.operator.Chart.Namespace)
	if err != nil {
		return fmt.Errorf("uninstall %s operator: %w", b.operator.Name, err)
	}

	return nil
}

// WaitForDeployments waits, best effort, for the named deployments.
func (b *Base) WaitForDeployments(ctx context.Context, namespace string, names ...string) bool {
	checks := make([]readiness.Check, 0, len(names))
	for _, name := range names {
		checks = append(checks, readiness.Check{Type: readiness.CheckDeployment, Namespace: namespace, Name: name})
	}

	err := readiness.WaitForMultipleResources(ctx, b.deps.Kube, checks, b.deps.Timeout)

	return readiness.BestEffort(b.deps.Writer, b.operator.Name+" workloads not ready", err)
}

// Warn reports a non-fatal failure.
func (b *Base) Warn(what string, err error) bool {
	return readiness.BestEffort(b.deps.Writer, what, err)
}
