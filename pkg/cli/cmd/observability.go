package cmd

import (
	"github.com/opendatahub-io/maasctl/pkg/di"
	"github.com/opendatahub-io/maasctl/pkg/notify"
	"github.com/spf13/cobra"
)

// NewInstallObservabilityCmd creates the install-observability command.
func NewInstallObservabilityCmd(runtime *di.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install-observability",
		Short: "Wire metrics and install the Grafana or Perses dashboards",
		Long: "Enables user workload monitoring, wires the platform metrics, installs the\n" +
			"dashboard operators and creates the instances, datasources and MaaS dashboards.",
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.String("namespace", "", "Namespace of the dashboards (default maas-observability)")
	flags.String("stack", "", "Dashboard stack: grafana, perses or both")
	flags.String("kuadrant-ns", "", "Namespace of Kuadrant, Authorino and Limitador")
	flags.String("app-ns", "", "Namespace of the served models")

	cmd.RunE = di.RunEWithRuntime(runtime, handleInstallObservabilityRunE)

	return cmd
}

func handleInstallObservabilityRunE(cmd *cobra.Command, injector di.Injector) error {
	sess, err := newSession(cmd, injector, sessionOptions{
		flagKeys: map[string]string{
			"namespace": "spec.namespaces.ops",
			"stack":     "spec.observability.stack",
		},
	})
	if err != nil {
		return err
	}

	notify.Titlef(sess.writer, "🔐", "Preflight")

	_, err = sess.orchestrator.Preflight(sess.ctx)
	if err != nil {
		return err
	}

	notify.Titlef(sess.writer, "📊", "Observability")

	err = sess.orchestrator.InstallObservability(sess.ctx, sess.platform.Spec.Observability.Stack)
	if err != nil {
		return err
	}

	sess.done("observability installed")

	return nil
}

// NewWireMetricsCmd creates the wire-metrics command.
func NewWireMetricsCmd(runtime *di.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wire-metrics",
		Short: "Create the ServiceMonitors, PodMonitor and Istio Telemetry for the platform metrics",
		Long: "Labels the platform namespaces for user workload monitoring and applies the\n" +
			"Limitador, Authorino, gateway and model scrape objects and the per-user latency\n" +
			"Telemetry. Every step is best effort.",
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.String("ops-ns", "", "Namespace of the dashboards")
	flags.String("kuadrant-ns", "", "Namespace of Kuadrant, Authorino and Limitador")
	flags.String("app-ns", "", "Namespace of the served models")

	cmd.RunE = di.RunEWithRuntime(runtime, handleWireMetricsRunE)

	return cmd
}

func handleWireMetricsRunE(cmd *cobra.Command, injector di.Injector) error {
	sess, err := newSession(cmd, injector, sessionOptions{})
	if err != nil {
		return err
	}

	notify.Titlef(sess.writer, "🔐", "Preflight")

	_, err = sess.orchestrator.Preflight(sess.ctx)
	if err != nil {
		return err
	}

	notify.Titlef(sess.writer, "🔌", "Wiring metrics")

	err = sess.orchestrator.Observability().WireMetrics(sess.ctx)
	if err != nil {
		return err
	}

	sess.done("metrics wired")

	return nil
}
