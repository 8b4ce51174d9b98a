package di

import (
	"fmt"

	"github.com/opendatahub-io/maasctl/pkg/client/helm"
	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/timer"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

// Dependency resolvers.

// ResolveTimer retrieves the timer dependency from the injector with consistent error handling.
func ResolveTimer(injector Injector) (timer.Timer, error) {
	tmr, err := do.Invoke[timer.Timer](injector)
	if err != nil {
		return nil, fmt.Errorf("resolve timer dependency: %w", err)
	}

	return tmr, nil
}

// ResolveClients connects to the cluster through the provided ClientsFactory.
func ResolveClients(injector Injector, kubeconfig, context string) (*k8s.Clients, error) {
	factory, err := do.Invoke[ClientsFactory](injector)
	if err != nil {
		return nil, fmt.Errorf("resolve cluster clients dependency: %w", err)
	}

	clients, err := factory(kubeconfig, context)
	if err != nil {
		return nil, fmt.Errorf("connect to cluster: %w", err)
	}

	return clients, nil
}

// ResolveHelm creates a Helm client through the provided HelmFactory.
func ResolveHelm(injector Injector, kubeconfig, context string) (helm.Interface, error) {
	factory, err := do.Invoke[HelmFactory](injector)
	if err != nil {
		return nil, fmt.Errorf("resolve helm dependency: %w", err)
	}

	client, err := factory(kubeconfig, context)
	if err != nil {
		return nil, fmt.Errorf("create helm client: %w", err)
	}

	return client, nil
}

// Handler decorators.

// WithTimer decorates a handler to automatically resolve the timer dependency.
func WithTimer(
	handler func(cmd *cobra.Command, injector Injector, tmr timer.Timer) error,
) func(cmd *cobra.Command, injector Injector) error {
	return func(cmd *cobra.Command, injector Injector) error {
		tmr, err := ResolveTimer(injector)
		if err != nil {
			return err
		}

		return handler(cmd, injector, tmr)
	}
}
