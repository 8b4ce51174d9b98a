package smoke

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/opendatahub-io/maasctl/pkg/client/limitador"
	"github.com/opendatahub-io/maasctl/pkg/client/maas"
	"github.com/opendatahub-io/maasctl/pkg/client/prometheus"
	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/report"
	"github.com/opendatahub-io/maasctl/pkg/svc/observability"
	"github.com/opendatahub-io/maasctl/pkg/svc/policy"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
)

const trafficHint = "check the test traffic case, or send traffic with `maasctl test smoke`"

// DefaultTrafficSettle is how long the suite waits after its own chat
// request before reading metrics.
const DefaultTrafficSettle = 2 * time.Second

// ObservabilityOptions locate the objects the observability suite inspects.
type ObservabilityOptions struct {
	KuadrantNamespace string
	GatewayNamespace  string
	Expected          *ExpectedMetrics
	// Gateway sends one chat request before the metric checks. Nil skips it.
	Gateway       *maas.Client
	TrafficSettle time.Duration
}

// ObservabilityRunner checks that metrics flow from the gateway to Prometheus.
type ObservabilityRunner struct {
	dyn        dynamic.Interface
	limitador  *limitador.Client
	prometheus *prometheus.Client
	opts       ObservabilityOptions
}

// NewObservabilityRunner creates a runner. A nil Prometheus client fails
// the Prometheus cases with a hint instead of querying.
func NewObservabilityRunner(
	dyn dynamic.Interface,
	limitadorClient *limitador.Client,
	prometheusClient *prometheus.Client,
	opts ObservabilityOptions,
) *ObservabilityRunner {
	if opts.Expected == nil {
		opts.Expected = &ExpectedMetrics{}
	}

	if opts.TrafficSettle <= 0 {
		opts.TrafficSettle = DefaultTrafficSettle
	}

	return &ObservabilityRunner{
		dyn:        dyn,
		limitador:  limitadorClient,
		prometheus: prometheusClient,
		opts:       opts,
	}
}

// Run executes every case in order.
func (r *ObservabilityRunner) Run(ctx context.Context) *report.Report {
	results := &report.Report{}

	results.Add(
		r.traffic(ctx),
		r.enforced(ctx, "TelemetryPolicy", policy.TelemetryPolicyName),
		r.exists(ctx, "istio Telemetry", k8s.IstioTelemetryGVR, r.opts.GatewayNamespace,
			observability.LatencyTelemetry),
		r.exists(ctx, "limitador ServiceMonitor", k8s.ServiceMonitorGVR, r.opts.KuadrantNamespace,
			observability.LimitadorServiceMonitor),
		r.limits(ctx),
	)
	results.Add(r.limitadorMetrics(ctx)...)
	results.Add(r.enforced(ctx, "AuthPolicy", policy.AuthPolicyName))
	results.Add(r.prometheusMetrics(ctx)...)

	return results
}

// traffic sends one chat completion so the token and latency metrics have
// a sample. 429 counts as traffic: limited calls are metered too.
func (r *ObservabilityRunner) traffic(ctx context.Context) report.Result {
	const check = "test traffic"

	if r.opts.Gateway == nil {
		return report.Skipped(check, "no gateway URL, relying on earlier traffic")
	}

	token, err := r.opts.Gateway.MintToken(ctx, DefaultTokenTTL)
	if err != nil {
		return report.Failed(check, "log in with `oc login` and check the maas-api AuthPolicy", "mint: %v", err)
	}

	client := r.opts.Gateway.WithToken(token.Token)

	models, err := client.Models(ctx)
	if err != nil {
		return report.Failed(check, "check the maas-api logs", "models: %v", err)
	}

	if len(models) == 0 {
		return report.Failed(check, "deploy a model, e.g. `maasctl deploy --deploy-simulator`", "no models listed")
	}

	model := models[0]

	status, err := client.ChatStatus(ctx, model, "maasctl observability check: say hello", maxTokens)
	if err != nil {
		return report.Failed(check, "check the model HTTPRoute and the gateway AuthPolicy", "%v", err)
	}

	if status != http.StatusOK && status != http.StatusTooManyRequests {
		return report.Failed(check, "check the gateway AuthPolicy", "%s answered %d", model.ID, status)
	}

	r.settle(ctx)

	return report.Passed(check, "%s answered %d", model.ID, status)
}

// settle gives Limitador and the scrapers time to record the request.
func (r *ObservabilityRunner) settle(ctx context.Context) {
	timer := time.NewTimer(r.opts.TrafficSettle)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (r *ObservabilityRunner) enforced(ctx context.Context, kind, name string) report.Result {
	check := kind + " " + name

	gvr, _ := policy.GVRFor(kind)

	obj, err := r.dyn.Resource(gvr).Namespace(r.opts.GatewayNamespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return report.Failed(check, "run `maasctl deploy` to apply the gateway policies", "%v", err)
	}

	status, message, found := k8s.ConditionStatus(obj, policy.EnforcedCondition)
	if !found || status != string(metav1.ConditionTrue) {
		return report.Failed(check, "check the kuadrant-operator logs",
			"not enforced: %s", orDefault(message, "no Enforced condition"))
	}

	return report.Passed(check, "enforced")
}

func (r *ObservabilityRunner) exists(
	ctx context.Context,
	check string,
	gvr schema.GroupVersionResource,
	namespace, name string,
) report.Result {
	_, err := r.dyn.Resource(gvr).Namespace(namespace).Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return report.Failed(check, "run `maasctl wire-metrics`", "%s/%s not found", namespace, name)
	}

	if err != nil {
		return report.Failed(check, "check cluster access", "%v", err)
	}

	return report.Passed(check, "%s/%s exists", namespace, name)
}

func (r *ObservabilityRunner) limits(ctx context.Context) report.Result {
	const check = "limitador limits"

	limits, err := r.limitador.Limits(ctx)
	if errors.Is(err, limitador.ErrNoLimits) {
		return report.Failed(check, "check that the RateLimitPolicy and TokenRateLimitPolicy are enforced", "%v", err)
	}

	if err != nil {
		return report.Failed(check, "check the limitador pod in "+r.opts.KuadrantNamespace, "%v", err)
	}

	return report.Passed(check, "%d limit(s) configured", len(limits))
}

func (r *ObservabilityRunner) limitadorMetrics(ctx context.Context) []report.Result {
	expected := r.opts.Expected.Limitador.Metrics
	if len(expected) == 0 {
		return nil
	}

	metrics, err := r.limitador.Metrics(ctx)
	if err != nil {
		results := make([]report.Result, 0, len(expected))
		for _, metric := range expected {
			results = append(results, report.Failed("limitador "+metric.Name,
				"check the limitador pod in "+r.opts.KuadrantNamespace, "%v", err))
		}

		return results
	}

	results := make([]report.Result, 0, len(expected))

	for _, metric := range expected {
		check := "limitador " + metric.Name

		if !metrics.Has(metric.Name) {
			results = append(results, report.Failed(check, trafficHint,
				"metric not exposed, limitador serves %s", exposedMessage(metrics.Names())))

			continue
		}

		missing := metrics.MissingLabels(metric.Name, metric.Labels...)
		if len(missing) > 0 {
			results = append(results, report.Failed(check,
				"check the TelemetryPolicy "+policy.TelemetryPolicyName,
				"missing labels: %s", strings.Join(missing, ", ")))

			continue
		}

		results = append(results, report.Passed(check, "%s", labelsMessage(metric.Labels)))
	}

	return results
}

func (r *ObservabilityRunner) prometheusMetrics(ctx context.Context) []report.Result {
	const check = "prometheus"

	if r.prometheus == nil {
		return []report.Result{report.Failed(check,
			"set observability.prometheusURL or enable user workload monitoring", "no Prometheus endpoint")}
	}

	err := r.prometheus.Available(ctx)
	if err != nil {
		return []report.Result{report.Failed(check,
			"check the thanos-querier route and the cluster-monitoring-view binding", "%v", err)}
	}

	results := []report.Result{report.Passed(check, "reachable")}

	for _, metric := range r.opts.Expected.Prometheus.Metrics {
		results = append(results, r.prometheusMetric(ctx, metric, false))
	}

	for _, metric := range r.opts.Expected.Prometheus.Optional {
		results = append(results, r.prometheusMetric(ctx, metric, true))
	}

	return results
}

func (r *ObservabilityRunner) prometheusMetric(ctx context.Context, metric ExpectedMetric, optional bool) report.Result {
	check := "prometheus " + metric.Name

	vector, err := r.prometheus.Query(ctx, metric.Name)
	if err != nil {
		return report.Failed(check, "check the Prometheus query endpoint", "%v", err)
	}

	if len(vector) == 0 {
		if optional {
			return report.Skipped(check, "not scraped, model servers may not expose it")
		}

		return report.Failed(check, trafficHint+", then wait for a scrape", "no series")
	}

	var missing []string

	for _, label := range metric.Labels {
		_, found, _ := prometheus.FindLabel(vector, label)
		if !found {
			missing = append(missing, label)
		}
	}

	if len(missing) > 0 {
		return report.Failed(check, "check the ServiceMonitors and the istio Telemetry "+observability.LatencyTelemetry,
			"missing labels: %s", strings.Join(missing, ", "))
	}

	return report.Passed(check, "%d series, %s", len(vector), labelsMessage(metric.Labels))
}

func exposedMessage(names []string) string {
	if len(names) == 0 {
		return "no metrics"
	}

	return strings.Join(names, ", ")
}

func labelsMessage(labels []string) string {
	if len(labels) == 0 {
		return "present"
	}

	return fmt.Sprintf("labels %s present", strings.Join(labels, ", "))
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}
