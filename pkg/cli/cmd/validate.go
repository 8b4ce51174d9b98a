package cmd

import (
	"fmt"

	"github.com/opendatahub-io/maasctl/pkg/di"
	"github.com/opendatahub-io/maasctl/pkg/notify"
	"github.com/opendatahub-io/maasctl/pkg/svc/validate"
	"github.com/spf13/cobra"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd(runtime *di.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that every platform component is healthy",
		Long: "Checks the operator CSVs, Kuadrant, Authorino and Limitador, the gateway and its\n" +
			"policies, maas-api, the model catalog and the platform pods. Exits non-zero when\n" +
			"a check fails.",
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.String("namespace", "", "Namespace of maas-api (default maas-api)")
	flags.String("domain", "", "Cluster apps domain; required on Kubernetes")
	flags.String("gateway-url", "", "Gateway URL (default https://maas.<domain>)")
	flags.Bool("insecure-skip-tls-verify", false, "Accept self-signed gateway certificates")

	cmd.RunE = di.RunEWithRuntime(runtime, handleValidateRunE)

	return cmd
}

func handleValidateRunE(cmd *cobra.Command, injector di.Injector) error {
	sess, err := newSession(cmd, injector, sessionOptions{})
	if err != nil {
		return err
	}

	notify.Titlef(sess.writer, "🔐", "Preflight")

	_, err = sess.orchestrator.Preflight(sess.ctx)
	if err != nil {
		return err
	}

	notify.Titlef(sess.writer, "🔎", "Validation")

	maasClient, err := sess.maasClient()
	if err != nil {
		notify.Warningf(sess.writer, "gateway checks skipped: %v", err)
	}

	rep := sess.orchestrator.Validator(maasClient).Run(sess.ctx)

	err = rep.Render(sess.writer)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	if rep.HasFailures() {
		return fmt.Errorf("%w: %s", validate.ErrValidationFailed, rep.Summary())
	}

	sess.done("platform healthy: %s", rep.Summary())

	return nil
}
