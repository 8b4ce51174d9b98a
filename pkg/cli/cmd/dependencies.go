package cmd

import (
	"github.com/opendatahub-io/maasctl/pkg/apis/platform/v1alpha1"
	"github.com/opendatahub-io/maasctl/pkg/di"
	"github.com/opendatahub-io/maasctl/pkg/notify"
	"github.com/opendatahub-io/maasctl/pkg/svc/installer"
	"github.com/spf13/cobra"
)

// NewInstallDependenciesCmd creates the install-dependencies command.
func NewInstallDependenciesCmd(runtime *di.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install-dependencies",
		Short: "Install cert-manager, Kuadrant and ODH",
		Long: "Installs the platform operators: OLM subscriptions on OpenShift, Helm releases\n" +
			"on Kubernetes. SKIP_CERT_MANAGER, SKIP_KUADRANT and SKIP_ODH leave components out.",
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.Bool("kuadrant", false, "Install only Kuadrant")
	flags.Bool("ocp", false, "Target OpenShift (same as --distribution OpenShift)")
	flags.Bool("odh", false, "Install Open Data Hub even when SKIP_ODH is set")
	flags.String("operator-set", "", "Operator set on OpenShift: ODH or RHOAI")
	flags.String("catalog-image", "", "Install operators from a custom catalog image")

	cmd.RunE = di.RunEWithRuntime(runtime, handleInstallDependenciesRunE)

	return cmd
}

func handleInstallDependenciesRunE(cmd *cobra.Command, injector di.Injector) error {
	onlyKuadrant, _ := cmd.Flags().GetBool("kuadrant")
	openShift, _ := cmd.Flags().GetBool("ocp")
	withODH, _ := cmd.Flags().GetBool("odh")

	sess, err := newSession(cmd, injector, sessionOptions{
		configure: func(platform *v1alpha1.Platform) {
			if openShift {
				platform.Spec.Distribution = v1alpha1.DistributionOpenShift
			}

			if withODH {
				platform.Spec.Operators.Set = v1alpha1.OperatorSetODH
				platform.Spec.Operators.SkipODH = false
			}
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

	selection := installer.SelectionFor(sess.platform)
	if onlyKuadrant {
		selection = installer.Selection{Kuadrant: true}
	}

	notify.Titlef(sess.writer, "📦", "Dependencies")

	err = sess.orchestrator.InstallDependencies(sess.ctx, selection)
	if err != nil {
		return err
	}

	sess.done("dependencies installed")

	return nil
}
