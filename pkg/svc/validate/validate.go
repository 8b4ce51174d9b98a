// Package validate checks a deployed platform end to end: operators,
// Kuadrant, the gateway and its policies, maas-api and the model catalog.
package validate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/opendatahub-io/maasctl/pkg/apis/platform/v1alpha1"
	"github.com/opendatahub-io/maasctl/pkg/client/maas"
	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/k8s/readiness"
	"github.com/opendatahub-io/maasctl/pkg/report"
	certmanagerinstaller "github.com/opendatahub-io/maasctl/pkg/svc/installer/certmanager"
	kuadrantinstaller "github.com/opendatahub-io/maasctl/pkg/svc/installer/kuadrant"
	"github.com/opendatahub-io/maasctl/pkg/svc/olm"
	"github.com/opendatahub-io/maasctl/pkg/svc/policy"
	"golang.org/x/sync/errgroup"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
)

const (
	// DefaultProbeTimeout bounds each readiness probe.
	DefaultProbeTimeout = 10 * time.Second
	// MaaSAPIDeployment is the maas-api deployment name.
	MaaSAPIDeployment = "maas-api"
	// AuthenticatedGroup is carried by every logged-in user.
	AuthenticatedGroup = "system:authenticated"

	maxParallelChecks = 4
	validationTTL     = 2 * time.Minute
)

// ErrValidationFailed is returned when at least one check failed.
var ErrValidationFailed = errors.New("validation failed")

// Check is one named validation.
type Check struct {
	Name string
	Run  func(ctx context.Context) report.Result
}

// Options configure the validator.
type Options struct {
	Platform *v1alpha1.Platform
	// ProbeTimeout bounds each readiness probe; DefaultProbeTimeout when zero.
	ProbeTimeout time.Duration
}

// Validator runs the platform checks.
type Validator struct {
	kube    kubernetes.Interface
	dynamic dynamic.Interface
	olm     *olm.Manager
	maas    *maas.Client
	opts    Options
}

// NewValidator creates a Validator. maasClient may be nil, in which case the
// checks that go through the gateway are skipped. When it carries the
// user's cluster token, the model catalog is checked with a minted token.
func NewValidator(
	kube kubernetes.Interface,
	dyn dynamic.Interface,
	olmManager *olm.Manager,
	maasClient *maas.Client,
	opts Options,
) *Validator {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}

	if opts.Platform == nil {
		opts.Platform = v1alpha1.NewPlatform()
	}

	return &Validator{kube: kube, dynamic: dyn, olm: olmManager, maas: maasClient, opts: opts}
}

// Run executes every check, a few at a time, and returns the results in
// check order.
func (v *Validator) Run(ctx context.Context) *report.Report {
	checks := v.Checks()
	results := make([]report.Result, len(checks))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxParallelChecks)

	for i, check := range checks {
		group.Go(func() error {
			result := check.Run(groupCtx)
			result.Name = check.Name
			results[i] = result

			return nil
		})
	}

	_ = group.Wait()

	var rep report.Report

	rep.Add(results...)

	return &rep
}

// Checks returns the checks that apply to the configured platform.
func (v *Validator) Checks() []Check {
	spec := v.opts.Platform.Spec
	namespaces := spec.Namespaces
	openShift := spec.Distribution.IsOpenShift()

	var checks []Check

	if !spec.Operators.SkipCertManager {
		if openShift {
			checks = append(checks, v.csvCheck("cert-manager operator",
				certmanagerinstaller.OperatorNamespace, certmanagerinstaller.CSVPrefix))
		} else {
			checks = append(checks, v.deploymentCheck("cert-manager", certmanagerinstaller.Namespace, "cert-manager"))
		}
	}

	if !spec.Operators.SkipKuadrant {
		if openShift {
			checks = append(checks, v.csvCheck("kuadrant operator",
				namespaces.Kuadrant, kuadrantinstaller.OperatorPackage(spec.Operators.Set)))
		} else {
			checks = append(checks, v.deploymentCheck("kuadrant operator",
				namespaces.Kuadrant, kuadrantinstaller.OperatorDeployment))
		}
	}

	if openShift && !spec.Operators.SkipODH {
		set := spec.Operators.Set
		checks = append(checks, v.csvCheck(string(set)+" operator", set.OperatorNamespace(), set.Package()))
	}

	checks = append(checks,
		v.conditionCheck("kuadrant instance", k8s.KuadrantGVR, namespaces.Kuadrant,
			kuadrantinstaller.InstanceName, "Ready"),
		v.deploymentCheck("authorino", namespaces.Kuadrant, kuadrantinstaller.AuthorinoDeployment),
		v.deploymentCheck("limitador", namespaces.Kuadrant, kuadrantinstaller.LimitadorDeployment),
		v.conditionCheck("gateway", k8s.GatewayGVR, spec.Gateway.Namespace, spec.Gateway.Name, "Programmed"),
	)

	for _, p := range []struct {
		kind string
		name string
	}{
		{"AuthPolicy", policy.AuthPolicyName},
		{"TokenRateLimitPolicy", policy.TokenRateLimitPolicyName},
		{"RateLimitPolicy", policy.RateLimitPolicyName},
		{"TelemetryPolicy", policy.TelemetryPolicyName},
	} {
		gvr, _ := policy.GVRFor(p.kind)
		checks = append(checks, v.conditionCheck(p.kind+" "+p.name, gvr, spec.Gateway.Namespace, p.name,
			policy.EnforcedCondition))
	}

	checks = append(checks,
		v.deploymentCheck("maas-api", namespaces.MaaSAPI, MaaSAPIDeployment),
		Check{Name: "maas-api health", Run: v.checkHealth},
		Check{Name: "model catalog", Run: v.checkModels},
		Check{Name: "tier lookup", Run: v.checkTierLookup},
		Check{Name: "pod health", Run: v.checkPods},
	)

	return checks
}

func (v *Validator) csvCheck(name, namespace, prefix string) Check {
	return Check{Name: name, Run: func(ctx context.Context) report.Result {
		csv, found, err := v.olm.InstalledCSV(ctx, namespace, prefix)
		if err != nil {
			return report.Failed(name, "check cluster access to operators.coreos.com", "%v", err)
		}

		if !found {
			return report.Failed(name,
				fmt.Sprintf("oc get csv -n %s; re-run maasctl install-dependencies", namespace),
				"no Succeeded CSV %s* in %s", prefix, namespace)
		}

		return report.Passed(name, "%s Succeeded", csv)
	}}
}

func (v *Validator) conditionCheck(name string, gvr schema.GroupVersionResource, namespace, object, condType string) Check {
	return Check{Name: name, Run: func(ctx context.Context) report.Result {
		live, err := v.dynamic.Resource(gvr).Namespace(namespace).Get(ctx, object, metav1.GetOptions{})
		if err != nil {
			return report.Failed(name,
				fmt.Sprintf("kubectl get %s -n %s %s", gvr.GroupResource(), namespace, object),
				"%s/%s not found: %v", namespace, object, err)
		}

		status, message, found := k8s.ConditionStatus(live, condType)
		if found && status == "True" {
			return report.Passed(name, "%s=True", condType)
		}

		if message == "" {
			message = "condition not reported yet"
		}

		return report.Failed(name,
			fmt.Sprintf("kubectl describe %s -n %s %s", gvr.GroupResource(), namespace, object),
			"%s=%s: %s", condType, orUnknown(status), message)
	}}
}

func (v *Validator) deploymentCheck(name, namespace, deployment string) Check {
	return Check{Name: name, Run: func(ctx context.Context) report.Result {
		err := readiness.WaitForDeploymentReady(ctx, v.kube, namespace, deployment, v.opts.ProbeTimeout)
		if err != nil {
			return report.Failed(name,
				fmt.Sprintf("kubectl get pods -n %s; kubectl describe deployment -n %s %s", namespace, namespace, deployment),
				"deployment %s/%s not ready", namespace, deployment)
		}

		return report.Passed(name, "deployment %s/%s ready", namespace, deployment)
	}}
}

func (v *Validator) checkHealth(ctx context.Context) report.Result {
	if v.maas == nil {
		return report.Skipped("", "gateway URL unknown")
	}

	err := v.maas.Health(ctx)
	if err != nil {
		return report.Failed("", "check the maas-api HTTPRoute and the gateway listener", "%v", err)
	}

	return report.Passed("", "%s%s answered 200", v.maas.BaseURL(), maas.HealthPath)
}

func (v *Validator) checkModels(ctx context.Context) report.Result {
	if v.maas == nil {
		return report.Skipped("", "gateway URL unknown")
	}

	token, err := v.maas.MintToken(ctx, validationTTL)
	if err != nil {
		return report.Warned("", "log in with oc login so a MaaS token can be minted", "mint token: %v", err)
	}

	models, err := v.maas.WithToken(token.Token).Models(ctx)
	if err != nil {
		return report.Failed("", "check the gateway AuthPolicy and maas-api logs", "list models: %v", err)
	}

	if len(models) == 0 {
		return report.Warned("", "deploy a model, or re-run deploy with DEPLOY_SIMULATOR=true", "model catalog is empty")
	}

	ids := make([]string, 0, len(models))
	for _, model := range models {
		ids = append(ids, model.ID)
	}

	return report.Passed("", "%d model(s): %s", len(models), strings.Join(ids, ", "))
}

// checkTierLookup resolves the group every authenticated user carries; the
// answer is the tier free users are limited by.
func (v *Validator) checkTierLookup(ctx context.Context) report.Result {
	if v.maas == nil {
		return report.Skipped("", "gateway URL unknown")
	}

	tier, err := v.maas.LookupTier(ctx, []string{AuthenticatedGroup})
	if maas.IsStatus(err, http.StatusNotFound) {
		return report.Warned("", "upgrade maas-api to a release with "+maas.TierLookupPath, "tier lookup not served")
	}

	if err != nil {
		return report.Failed("", "check the tier-to-group-mapping ConfigMap of maas-api", "%v", err)
	}

	return report.Passed("", "%s maps to tier %s", AuthenticatedGroup, tier)
}

func (v *Validator) checkPods(ctx context.Context) report.Result {
	namespaces := v.opts.Platform.Spec.Namespaces

	failures := k8s.FindPodFailures(ctx, v.kube, []string{namespaces.Kuadrant, namespaces.MaaSAPI, namespaces.App})
	if len(failures) == 0 {
		return report.Passed("", "all platform pods healthy")
	}

	descriptions := make([]string, 0, len(failures))
	for _, failure := range failures {
		descriptions = append(descriptions, failure.String())
	}

	return report.Warned("", "kubectl describe the failing pods and check their events",
		"%s", strings.Join(descriptions, "; "))
}

func orUnknown(status string) string {
	if status == "" {
		return "Unknown"
	}

	return status
}
