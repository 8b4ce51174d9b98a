package cmd

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/opendatahub-io/maasctl/pkg/apis/platform/v1alpha1"
	"github.com/opendatahub-io/maasctl/pkg/client/helm"
	"github.com/opendatahub-io/maasctl/pkg/client/kubeconform"
	"github.com/opendatahub-io/maasctl/pkg/client/maas"
	"github.com/opendatahub-io/maasctl/pkg/di"
	configmanagerinterface "github.com/opendatahub-io/maasctl/pkg/io/config-manager"
	configmanager "github.com/opendatahub-io/maasctl/pkg/io/config-manager/platform"
	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/log"
	"github.com/opendatahub-io/maasctl/pkg/notify"
	"github.com/opendatahub-io/maasctl/pkg/svc/manifests"
	"github.com/opendatahub-io/maasctl/pkg/svc/orchestrator"
	"github.com/opendatahub-io/maasctl/pkg/timer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"k8s.io/client-go/rest"
)

// session is everything a command needs once configuration is loaded and
// the cluster is connected.
type session struct {
	ctx          context.Context
	platform     *v1alpha1.Platform
	clients      *k8s.Clients
	orchestrator *orchestrator.Orchestrator
	writer       io.Writer
	timer        timer.Timer
	logger       *zap.Logger
}

type sessionOptions struct {
	// flagKeys rebinds generic flags such as --namespace to a command specific key.
	flagKeys map[string]string
	// configure adjusts the loaded platform from command-only flags.
	configure func(platform *v1alpha1.Platform)
}

func newSession(cmd *cobra.Command, injector di.Injector, opts sessionOptions) (*session, error) {
	tmr, err := di.ResolveTimer(injector)
	if err != nil {
		return nil, err
	}

	tmr.Start()

	writer := notify.NewStageSeparatingWriter(cmd.OutOrStdout())

	manager := configmanager.NewCommandConfigManager(cmd)
	manager.Writer = writer

	for flagName, key := range opts.flagKeys {
		manager.MapFlag(flagName, key)
	}

	platform, err := manager.Load(configmanagerinterface.LoadOptions{Timer: tmr})
	if err != nil {
		return nil, err
	}

	if opts.configure != nil {
		opts.configure(platform)
	}

	logger := log.New(verbose(cmd), cmd.ErrOrStderr())
	ctx := log.WithLogger(cmd.Context(), logger)

	connection := platform.Spec.Connection

	clients, err := di.ResolveClients(injector, connection.Kubeconfig, connection.Context)
	if err != nil {
		return nil, err
	}

	var helmClient helm.Interface

	if !platform.Spec.Distribution.IsOpenShift() {
		helmClient, err = di.ResolveHelm(injector, connection.Kubeconfig, connection.Context)
		if err != nil {
			return nil, err
		}
	}

	renderer, err := manifests.NewRenderer()
	if err != nil {
		return nil, err
	}

	if platform.Spec.Deploy.ValidateManifests {
		renderer = renderer.WithValidator(kubeconform.NewClient())
	}

	return &session{
		ctx:          ctx,
		platform:     platform,
		clients:      clients,
		orchestrator: orchestrator.New(clients, helmClient, renderer, platform, writer),
		writer:       writer,
		timer:        tmr,
		logger:       logger,
	}, nil
}

// maasClient returns a gateway client authenticated with the caller's
// cluster token.
func (s *session) maasClient() (*maas.Client, error) {
	url, err := s.orchestrator.GatewayURL(s.ctx)
	if err != nil {
		return nil, err
	}

	return maas.NewClient(maas.Config{
		BaseURL:               url,
		Token:                 bearerToken(s.clients.Config),
		InsecureSkipTLSVerify: s.platform.Spec.Test.InsecureSkipTLSVerify,
		Logger:                s.logger,
	})
}

func (s *session) done(format string, args ...any) {
	notify.SuccessWithTimerf(s.writer, s.timer, format, args...)
}

// bearerToken returns the token of config, reading the token file when the
// kubeconfig points at one.
func bearerToken(config *rest.Config) string {
	if config == nil {
		return ""
	}

	if config.BearerToken != "" || config.BearerTokenFile == "" {
		return config.BearerToken
	}

	token, err := os.ReadFile(config.BearerTokenFile)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(token))
}

func verbose(cmd *cobra.Command) bool {
	enabled, _ := cmd.Flags().GetBool(VerboseFlag)
	if enabled {
		return true
	}

	fromEnv, _ := strconv.ParseBool(os.Getenv(log.DebugEnvVar))

	return fromEnv
}
