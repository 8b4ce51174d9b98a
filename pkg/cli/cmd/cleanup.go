package cmd

import (
	"github.com/opendatahub-io/maasctl/pkg/cli/ui/confirm"
	"github.com/opendatahub-io/maasctl/pkg/di"
	"github.com/opendatahub-io/maasctl/pkg/svc/orchestrator"
	"github.com/spf13/cobra"
)

// NewCleanupCmd creates the cleanup command.
func NewCleanupCmd(runtime *di.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove the MaaS platform from the cluster",
		Long: "Deletes the policies, maas-api, the simulator, the gateway, the observability\n" +
			"objects and the platform namespaces, in reverse deploy order. With\n" +
			"--include-operators the operator subscriptions, CSVs and Helm releases go too.",
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.Bool("include-operators", false, "Also remove the operators")
	flags.BoolP("yes", "y", false, "Do not ask for confirmation")

	cmd.RunE = di.RunEWithRuntime(runtime, handleCleanupRunE)

	return cmd
}

func handleCleanupRunE(cmd *cobra.Command, injector di.Injector) error {
	includeOperators, _ := cmd.Flags().GetBool("include-operators")
	yes, _ := cmd.Flags().GetBool("yes")

	sess, err := newSession(cmd, injector, sessionOptions{})
	if err != nil {
		return err
	}

	opts := orchestrator.CleanupOptions{IncludeOperators: includeOperators}

	if !confirm.ShouldSkipPrompt(yes) {
		confirm.ShowCleanupPreview(sess.writer, &confirm.CleanupPreview{
			Cluster:    sess.clients.Config.Host,
			Namespaces: sess.orchestrator.CleanupNamespaces(opts),
			Operators:  includeOperators,
		})

		if !confirm.PromptForConfirmation() {
			return confirm.ErrCleanupCancelled
		}
	}

	err = sess.orchestrator.Cleanup(sess.ctx, opts)
	if err != nil {
		return err
	}

	sess.done("platform removed from %s", sess.clients.Config.Host)

	return nil
}
