package cmd

import (
	"fmt"
	"maps"
	"slices"

	"github.com/opendatahub-io/maasctl/pkg/client/limitador"
	"github.com/opendatahub-io/maasctl/pkg/client/prometheus"
	"github.com/opendatahub-io/maasctl/pkg/di"
	"github.com/opendatahub-io/maasctl/pkg/notify"
	"github.com/opendatahub-io/maasctl/pkg/report"
	"github.com/opendatahub-io/maasctl/pkg/svc/observability"
	"github.com/opendatahub-io/maasctl/pkg/svc/smoke"
	"github.com/spf13/cobra"
)

// NewTestCmd creates the test command group.
func NewTestCmd(runtime *di.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "test",
		Short:        "Run the end-to-end suites against a deployed platform",
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("gateway-url", "", "Gateway URL (default https://maas.<domain>)")
	flags.String("domain", "", "Cluster apps domain; required on Kubernetes")
	flags.Bool("insecure-skip-tls-verify", false, "Accept self-signed gateway and Prometheus certificates")

	cmd.AddCommand(newSmokeCmd(runtime), newObservabilityTestCmd(runtime))

	return cmd
}

func newSmokeCmd(runtime *di.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Mint a token, list models, chat and trigger the rate limit",
		Long: "Checks the maas-api health endpoint, token minting and expiry, the model catalog,\n" +
			"a chat completion, a 429 after the tier budget for every configured tier and\n" +
			"token revocation. Tier tokens come from spec.test.tierTokens.",
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.Duration("token-ttl", 0, "Lifetime requested for minted tokens (default 10m)")
	flags.Int("rate-limit-requests", 0, "Requests sent to trigger a 429 (default 20)")

	cmd.RunE = di.RunEWithRuntime(runtime, handleSmokeRunE)

	return cmd
}

func handleSmokeRunE(cmd *cobra.Command, injector di.Injector) error {
	sess, err := newSession(cmd, injector, sessionOptions{})
	if err != nil {
		return err
	}

	notify.Titlef(sess.writer, "🔐", "Preflight")

	_, err = sess.orchestrator.Preflight(sess.ctx)
	if err != nil {
		return err
	}

	maasClient, err := sess.maasClient()
	if err != nil {
		return fmt.Errorf("gateway: %w", err)
	}

	test := sess.platform.Spec.Test
	runner := smoke.NewRunner(maasClient, smoke.Options{
		TokenTTL:          test.TokenTTL,
		RateLimitRequests: test.RateLimitRequests,
		Tiers:             tiers(test.TierTokens),
	})

	notify.Titlef(sess.writer, "🧪", "Smoke tests")
	notify.Infof(sess.writer, "gateway %s, run %s", maasClient.BaseURL(), runner.RunID())

	return finishSuite(sess, runner.Run(sess.ctx))
}

func newObservabilityTestCmd(runtime *di.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "observability",
		Short: "Check that the platform metrics are wired, exposed and scraped",
		Long: "Sends one chat request through the gateway, then checks the TelemetryPolicy,\n" +
			"the Istio Telemetry and the Limitador ServiceMonitor, the Limitador limits and\n" +
			"metrics with their labels, the gateway AuthPolicy and the metrics in Prometheus.",
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.String("expected-metrics", "", "Path to an expected_metrics.yaml override")
	flags.String("prometheus-url", "", "Prometheus URL (default: the thanos-querier route)")

	cmd.RunE = di.RunEWithRuntime(runtime, handleObservabilityTestRunE)

	return cmd
}

func handleObservabilityTestRunE(cmd *cobra.Command, injector di.Injector) error {
	sess, err := newSession(cmd, injector, sessionOptions{})
	if err != nil {
		return err
	}

	notify.Titlef(sess.writer, "🔐", "Preflight")

	_, err = sess.orchestrator.Preflight(sess.ctx)
	if err != nil {
		return err
	}

	expected, err := smoke.LoadExpectedMetrics(sess.platform.Spec.Test.ExpectedMetrics)
	if err != nil {
		return err
	}

	// Without a gateway the metric checks still run on earlier traffic.
	maasClient, err := sess.maasClient()
	if err != nil {
		notify.Warningf(sess.writer, "gateway: %v", err)
	}

	spec := sess.platform.Spec
	runner := smoke.NewObservabilityRunner(
		sess.clients.Dynamic,
		limitador.NewClient(&limitador.PodProxy{Clientset: sess.clients.Kube, Namespace: spec.Namespaces.Kuadrant}),
		sess.prometheusClient(),
		smoke.ObservabilityOptions{
			KuadrantNamespace: spec.Namespaces.Kuadrant,
			GatewayNamespace:  spec.Gateway.Namespace,
			Expected:          expected,
			Gateway:           maasClient,
		},
	)

	notify.Titlef(sess.writer, "📈", "Observability tests")

	return finishSuite(sess, runner.Run(sess.ctx))
}

// prometheusClient returns nil when no endpoint can be found; the suite
// reports that as a failed check.
func (s *session) prometheusClient() *prometheus.Client {
	url, err := observability.PrometheusURL(s.ctx, s.clients.Dynamic, s.platform.Spec.Observability.PrometheusURL)
	if err != nil {
		notify.Warningf(s.writer, "%v", err)

		return nil
	}

	client, err := prometheus.NewClient(prometheus.Config{
		Address:               url,
		BearerToken:           bearerToken(s.clients.Config),
		InsecureSkipTLSVerify: s.platform.Spec.Test.InsecureSkipTLSVerify,
	})
	if err != nil {
		notify.Warningf(s.writer, "%v", err)

		return nil
	}

	return client
}

func finishSuite(sess *session, rep *report.Report) error {
	err := rep.Render(sess.writer)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	err = smoke.Check(rep)
	if err != nil {
		return err
	}

	sess.done("all checks passed: %s", rep.Summary())

	return nil
}

// tiers turns the configured tier tokens into a stable list; none means the
// caller's own tier.
func tiers(tokens map[string]string) []smoke.Tier {
	result := make([]smoke.Tier, 0, len(tokens))

	for _, name := range slices.Sorted(maps.Keys(tokens)) {
		result = append(result, smoke.Tier{Name: name, Token: tokens[name]})
	}

	return result
}
