package cmd

import (
	"fmt"

	"github.com/opendatahub-io/maasctl/pkg/apis/platform/v1alpha1"
	"github.com/opendatahub-io/maasctl/pkg/cli/ui/errorhandler"
	"github.com/opendatahub-io/maasctl/pkg/di"
	"github.com/opendatahub-io/maasctl/pkg/notify"
	"github.com/spf13/cobra"
)

// Global flag names.
const (
	KubeconfigFlag   = "kubeconfig"
	ContextFlag      = "context"
	TimeoutFlag      = "timeout"
	VerboseFlag      = "verbose"
	ConfigFlag       = "config"
	DistributionFlag = "distribution"
)

// NewRootCmd creates and returns the root command with version info and subcommands.
func NewRootCmd(version, commit, date string) *cobra.Command {
	return NewRootCmdWithRuntime(di.NewRuntime(), version, commit, date)
}

// NewRootCmdWithRuntime builds the command tree on runtime, so tests can
// replace the cluster and Helm factories.
func NewRootCmdWithRuntime(runtime *di.Runtime, version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maasctl",
		Short: "Install and test Models-as-a-Service on OpenShift and Kubernetes",
		Long: "maasctl installs the MaaS platform (Kuadrant, Authorino, Limitador, cert-manager,\n" +
			"KServe through ODH, the MaaS gateway and API, and Grafana/Perses dashboards),\n" +
			"validates it and runs the end-to-end smoke and observability suites.",
		RunE:         handleRootRunE,
		SilenceUsage: true,
	}

	cmd.Version = fmt.Sprintf("%s (Built on %s from Git SHA %s)", version, date, commit)

	distribution := v1alpha1.Distribution("")

	flags := cmd.PersistentFlags()
	flags.String(KubeconfigFlag, "", "Path to the kubeconfig file (defaults to $KUBECONFIG or ~/.kube/config)")
	flags.String(ContextFlag, "", "Kubeconfig context to use")
	flags.Duration(TimeoutFlag, 0, "Timeout of each wait, e.g. 10m")
	flags.BoolP(VerboseFlag, "v", false, "Log polling attempts and API calls to stderr")
	flags.String(ConfigFlag, "", "Path to a maasctl.yaml configuration file")
	flags.Var(&distribution, DistributionFlag,
		fmt.Sprintf("Cluster distribution %v (default OpenShift)", distribution.ValidValues()))

	cmd.AddCommand(
		NewDeployCmd(runtime),
		NewInstallDependenciesCmd(runtime),
		NewInstallObservabilityCmd(runtime),
		NewWireMetricsCmd(runtime),
		NewValidateCmd(runtime),
		NewCleanupCmd(runtime),
		NewTestCmd(runtime),
	)

	return cmd
}

// Execute runs the provided root command and handles errors.
func Execute(cmd *cobra.Command) error {
	notify.DisableColorUnlessTerminal(cmd.OutOrStdout())

	executor := errorhandler.NewExecutor()

	err := executor.Execute(cmd)
	if err != nil {
		return fmt.Errorf("command execution failed: %w", err)
	}

	return nil
}

func handleRootRunE(cmd *cobra.Command, _ []string) error {
	// The err can safely be ignored, as it can never fail at runtime.
	_ = cmd.Help()

	return nil
}
