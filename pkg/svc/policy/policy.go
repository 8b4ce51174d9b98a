// Package policy applies the gateway policies that turn the gateway into a
// metered endpoint: authentication, request and token rate limits, and the
// telemetry labels Limitador attaches to its counters.
package policy

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/opendatahub-io/maasctl/deploy"
	"github.com/opendatahub-io/maasctl/pkg/client/apply"
	"github.com/opendatahub-io/maasctl/pkg/client/kustomize"
	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/k8s/readiness"
	"github.com/opendatahub-io/maasctl/pkg/notify"
	kuadrantinstaller "github.com/opendatahub-io/maasctl/pkg/svc/installer/kuadrant"
	"github.com/opendatahub-io/maasctl/pkg/svc/manifests"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
)

// Names of the rendered policies.
const (
	AuthPolicyName           = "gateway-auth-policy"
	TokenRateLimitPolicyName = "gateway-token-rate-limits"
	RateLimitPolicyName      = "gateway-rate-limits"
	TelemetryPolicyName      = "user-group"

	// EnforcedCondition is set by the Kuadrant operator once a policy is
	// programmed into the gateway.
	EnforcedCondition = "Enforced"
)

var policyKinds = map[string]schema.GroupVersionResource{
	"AuthPolicy":           k8s.AuthPolicyGVR,
	"RateLimitPolicy":      k8s.RateLimitPolicyGVR,
	"TokenRateLimitPolicy": k8s.TokenRateLimitPolicyGVR,
	"TelemetryPolicy":      k8s.TelemetryPolicyGVR,
}

// GVRFor returns the resource of a policy kind.
func GVRFor(kind string) (schema.GroupVersionResource, bool) {
	gvr, ok := policyKinds[kind]

	return gvr, ok
}

// Options configure where the policies go.
type Options struct {
	// GatewayName and GatewayNamespace select the targeted gateway; the
	// policies live next to it.
	GatewayName      string
	GatewayNamespace string
	// KuadrantNamespace hosts the Kuadrant operator restarted on stuck policies.
	KuadrantNamespace string
	// MaaSAPINamespace hosts the tier lookup endpoint called by the AuthPolicy.
	MaaSAPINamespace string
	Timeout          time.Duration
}

// Manager renders, applies and removes the gateway policies.
type Manager struct {
	kube     kubernetes.Interface
	dynamic  dynamic.Interface
	applier  *apply.Applier
	renderer *manifests.Renderer
	writer   io.Writer
	opts     Options
	now      func() time.Time
}

// NewManager creates a Manager.
func NewManager(
	kube kubernetes.Interface,
	dyn dynamic.Interface,
	applier *apply.Applier,
	renderer *manifests.Renderer,
	writer io.Writer,
	opts Options,
) *Manager {
	return &Manager{
		kube:     kube,
		dynamic:  dyn,
		applier:  applier,
		renderer: renderer,
		writer:   writer,
		opts:     opts,
		now:      time.Now,
	}
}

// Render builds the policies for the configured gateway.
func (m *Manager) Render(ctx context.Context) ([]*unstructured.Unstructured, error) {
	objects, err := m.renderer.Render(ctx, deploy.PoliciesBase, kustomize.Overlay{Namespace: m.opts.GatewayNamespace})
	if err != nil {
		return nil, err
	}

	for _, obj := range objects {
		if m.opts.GatewayName != "" {
			err = unstructured.SetNestedField(obj.Object, m.opts.GatewayName, "spec", "targetRef", "name")
			if err != nil {
				return nil, fmt.Errorf("retarget %s: %w", obj.GetName(), err)
			}
		}
	}

	if m.opts.MaaSAPINamespace != "" {
		auth := manifests.Find(objects, "AuthPolicy", AuthPolicyName)
		if auth != nil {
			err = unstructured.SetNestedField(auth.Object, TierLookupURL(m.opts.MaaSAPINamespace),
				"spec", "rules", "metadata", "matchedTier", "http", "url")
			if err != nil {
				return nil, fmt.Errorf("set tier lookup url: %w", err)
			}
		}
	}

	return objects, nil
}

// TierLookupURL is the in-cluster maas-api endpoint resolving groups to a tier.
func TierLookupURL(maasAPINamespace string) string {
	return fmt.Sprintf("http://maas-api.%s.svc.cluster.local:8080/v1/tiers/lookup", maasAPINamespace)
}

// Apply applies the policies and waits for them to be enforced. Policies
// still unenforced after the wait get one Kuadrant operator restart and a
// second wait. Waiting never fails the run.
func (m *Manager) Apply(ctx context.Context) error {
	objects, err := m.Render(ctx)
	if err != nil {
		return err
	}

	results, err := m.applier.ApplyObjects(ctx, objects)
	for _, result := range results {
		notify.Activityf(m.writer, "%s", result)
	}

	if err != nil {
		return fmt.Errorf("apply policies: %w", err)
	}

	pending := m.WaitEnforced(ctx, objects)
	if len(pending) == 0 {
		notify.Successf(m.writer, "gateway policies enforced")

		return nil
	}

	notify.Warningf(m.writer, "policies not enforced yet (%v), restarting the kuadrant operator", pending)

	restarted := readiness.BestEffort(m.writer, "restart kuadrant operator", k8s.RestartDeployment(
		ctx, m.kube, m.opts.KuadrantNamespace, kuadrantinstaller.OperatorDeployment, m.now(),
	))
	if !restarted {
		return nil
	}

	remaining := m.WaitEnforced(ctx, pendingObjects(objects, pending))
	if len(remaining) == 0 {
		notify.Successf(m.writer, "gateway policies enforced after operator restart")

		return nil
	}

	for _, name := range remaining {
		notify.Warningf(m.writer, "policy %s is not enforced", name)
	}

	return nil
}

// WaitEnforced waits in parallel for Enforced=True on every policy of
// objects and returns the "Kind/name" of those that did not get there.
func (m *Manager) WaitEnforced(ctx context.Context, objects []*unstructured.Unstructured) []string {
	var (
		mu      sync.Mutex
		pending []string
	)

	group, groupCtx := errgroup.WithContext(ctx)

	for _, obj := range objects {
		gvr, ok := GVRFor(obj.GetKind())
		if !ok {
			continue
		}

		group.Go(func() error {
			err := readiness.WaitForCondition(groupCtx, m.dynamic, readiness.Condition{
				GVR:           gvr,
				Namespace:     obj.GetNamespace(),
				Name:          obj.GetName(),
				ConditionType: EnforcedCondition,
				Timeout:       m.opts.Timeout,
			})
			if err != nil {
				mu.Lock()
				pending = append(pending, obj.GetKind()+"/"+obj.GetName())
				mu.Unlock()
			}

			return nil
		})
	}

	_ = group.Wait()

	slices.Sort(pending)

	return pending
}

// Delete removes the policies; missing ones are ignored.
func (m *Manager) Delete(ctx context.Context) error {
	objects, err := m.Render(ctx)
	if err != nil {
		return err
	}

	for i := len(objects) - 1; i >= 0; i-- {
		err = m.applier.Delete(ctx, objects[i])
		if err != nil {
			return fmt.Errorf("delete policies: %w", err)
		}
	}

	return nil
}

func pendingObjects(objects []*unstructured.Unstructured, pending []string) []*unstructured.Unstructured {
	var out []*unstructured.Unstructured

	for _, obj := range objects {
		if slices.Contains(pending, obj.GetKind()+"/"+obj.GetName()) {
			out = append(out, obj)
		}
	}

	return out
}
