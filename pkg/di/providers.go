package di

import (
	"github.com/opendatahub-io/maasctl/pkg/client/helm"
	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/timer"
	"github.com/samber/do/v2"
)

// ClientsFactory connects to the cluster selected by kubeconfig and context.
type ClientsFactory func(kubeconfig, context string) (*k8s.Clients, error)

// HelmFactory creates the Helm client used for installs on plain Kubernetes.
type HelmFactory func(kubeconfig, context string) (helm.Interface, error)

// Dependency providers.

// NewRuntime constructs the shared runtime container used by root command and tests.
// It registers the timer and the real cluster and Helm factories; modules
// passed in are registered afterwards and may override them.
func NewRuntime(modules ...Module) *Runtime {
	return New(append([]Module{
		provideTimer,
		WithClientsFactory(k8s.NewClients),
		WithHelmFactory(newHelmClient),
	}, modules...)...)
}

// WithClientsFactory provides factory as the ClientsFactory.
func WithClientsFactory(factory ClientsFactory) Module {
	return func(i Injector) error {
		do.Override(i, func(Injector) (ClientsFactory, error) {
			return factory, nil
		})

		return nil
	}
}

// WithHelmFactory provides factory as the HelmFactory.
func WithHelmFactory(factory HelmFactory) Module {
	return func(i Injector) error {
		do.Override(i, func(Injector) (HelmFactory, error) {
			return factory, nil
		})

		return nil
	}
}

// provideTimer registers the timer dependency with the injector.
func provideTimer(i Injector) error {
	do.Provide(i, func(Injector) (timer.Timer, error) {
		return timer.New(), nil
	})

	return nil
}

func newHelmClient(kubeconfig, context string) (helm.Interface, error) {
	return helm.NewClient(kubeconfig, context)
}
