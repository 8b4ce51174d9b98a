package observability

import (
	"context"
	"io"
	"time"

	"github.com/opendatahub-io/maasctl/pkg/apis/platform/v1alpha1"
	"github.com/opendatahub-io/maasctl/pkg/client/apply"
	"github.com/opendatahub-io/maasctl/pkg/k8s/readiness"
	"github.com/opendatahub-io/maasctl/pkg/notify"
	"github.com/opendatahub-io/maasctl/pkg/svc/installer"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
)

// Options select the namespaces and gateway being observed.
type Options struct {
	Namespaces   v1alpha1.Namespaces
	Gateway      v1alpha1.Gateway
	Distribution v1alpha1.Distribution
	Timeout      time.Duration
}

// OperatorInstallers returns the dashboard operator installers of a stack,
// typically installer.Factory.Observability.
type OperatorInstallers func(stack v1alpha1.ObservabilityStack) []installer.Named

// Manager wires metrics and installs dashboards.
type Manager struct {
	kube      kubernetes.Interface
	dynamic   dynamic.Interface
	applier   *apply.Applier
	writer    io.Writer
	opts      Options
	operators OperatorInstallers
}

// NewManager creates a Manager. operators may be nil when only WireMetrics
// is used.
func NewManager(
	kube kubernetes.Interface,
	dyn dynamic.Interface,
	applier *apply.Applier,
	writer io.Writer,
	opts Options,
	operators OperatorInstallers,
) *Manager {
	return &Manager{
		kube:      kube,
		dynamic:   dyn,
		applier:   applier,
		writer:    writer,
		opts:      opts,
		operators: operators,
	}
}

// applyBestEffort applies each object on its own, warning on failures. It
// returns the number of objects applied.
func (m *Manager) applyBestEffort(ctx context.Context, objects []*unstructured.Unstructured) int {
	applied := 0

	for _, obj := range objects {
		result, err := m.applier.Apply(ctx, obj)
		if !readiness.BestEffort(m.writer, "apply "+obj.GetKind()+" "+obj.GetName(), err) {
			continue
		}

		notify.Activityf(m.writer, "%s", result)

		applied++
	}

	return applied
}

func (m *Manager) deleteBestEffort(ctx context.Context, objects []*unstructured.Unstructured) {
	for i := len(objects) - 1; i >= 0; i-- {
		obj := objects[i]
		readiness.BestEffort(m.writer, "delete "+obj.GetKind()+" "+obj.GetName(), m.applier.Delete(ctx, obj))
	}
}

func object(apiVersion, kind, namespace, name string, spec map[string]any) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{Object: map[string]any{}}
	if spec != nil {
		obj.Object["spec"] = spec
	}

	obj.SetAPIVersion(apiVersion)
	obj.SetKind(kind)
	obj.SetNamespace(namespace)
	obj.SetName(name)
	obj.SetLabels(map[string]string{partOfLabel: partOfValue})

	return obj
}

const (
	partOfLabel = "app.kubernetes.io/part-of"
	partOfValue = "models-as-a-service"
)
