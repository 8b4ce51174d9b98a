package cmd

import (
	"github.com/opendatahub-io/maasctl/pkg/apis/platform/v1alpha1"
	"github.com/opendatahub-io/maasctl/pkg/di"
	"github.com/opendatahub-io/maasctl/pkg/notify"
	"github.com/spf13/cobra"
)

const withObservabilityFlag = "with-observability"

// NewDeployCmd creates the deploy command.
func NewDeployCmd(runtime *di.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the complete MaaS platform",
		Long: "Installs the dependencies, the gateway, maas-api and the gateway policies,\n" +
			"optionally a simulator model, and the observability stack, then validates\n" +
			"the result unless SKIP_VALIDATION is set.",
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.Bool(withObservabilityFlag, false, "Install the observability stack even when it is skipped in the configuration")
	flags.Bool("skip-observability", false, "Do not wire metrics or install dashboards")
	flags.String("observability-stack", "", "Dashboard stack: grafana, perses, both or none")
	flags.String("namespace", "", "Namespace of maas-api (default maas-api)")
	flags.String("domain", "", "Cluster apps domain; required on Kubernetes")
	flags.Bool("insecure-http", false, "Add a plain HTTP listener to the gateway")
	flags.Bool("deploy-simulator", false, "Deploy a vLLM simulator model")
	flags.Bool("validate-manifests", false, "Validate rendered manifests with kubeconform before applying")
	flags.Bool("skip-validation", false, "Skip the validation run after deploying")
	flags.String("operator-set", "", "Operator set on OpenShift: ODH or RHOAI")
	flags.String("catalog-image", "", "Install operators from a custom catalog image")
	cmd.MarkFlagsMutuallyExclusive(withObservabilityFlag, "skip-observability")

	cmd.RunE = di.RunEWithRuntime(runtime, handleDeployRunE)

	return cmd
}

func handleDeployRunE(cmd *cobra.Command, injector di.Injector) error {
	forceObservability, _ := cmd.Flags().GetBool(withObservabilityFlag)

	sess, err := newSession(cmd, injector, sessionOptions{
		configure: func(platform *v1alpha1.Platform) {
			if forceObservability {
				platform.Spec.Observability.Skip = false
			}
		},
	})
	if err != nil {
		return err
	}

	_, err = sess.orchestrator.Deploy(sess.ctx)
	if err != nil {
		return err
	}

	if sess.platform.Spec.Operators.SkipValidation {
		notify.Skipf(sess.writer, "validation skipped")
	} else {
		runPostDeployValidation(sess)
	}

	sess.done("deploy finished")

	return nil
}

// runPostDeployValidation reports failed checks as warnings; the platform
// often needs a few minutes to settle after a fresh deploy.
func runPostDeployValidation(sess *session) {
	notify.Titlef(sess.writer, "🔎", "Validation")

	maasClient, err := sess.maasClient()
	if err != nil {
		notify.Warningf(sess.writer, "gateway checks skipped: %v", err)
	}

	rep := sess.orchestrator.Validator(maasClient).Run(sess.ctx)

	err = rep.Render(sess.writer)
	if err != nil {
		notify.Warningf(sess.writer, "render report: %v", err)
	}

	if rep.HasFailures() {
		notify.Warningf(sess.writer, "validation: %s; re-run `maasctl validate` once the platform settles", rep.Summary())
	}
}

