package v1alpha1

import "github.com/opendatahub-io/maasctl/pkg/envvar"

// ExpandEnvVars expands ${VAR} and ${VAR:-default} placeholders in the
// free-form string fields of the configuration.
func (p *Platform) ExpandEnvVars() {
	spec := &p.Spec

	for _, field := range []*string{
		&spec.Connection.Kubeconfig,
		&spec.Connection.Context,
		&spec.Namespaces.Ops,
		&spec.Namespaces.Kuadrant,
		&spec.Namespaces.App,
		&spec.Namespaces.MaaSAPI,
		&spec.Operators.CatalogImage,
		&spec.Gateway.Domain,
		&spec.Observability.PrometheusURL,
		&spec.Test.GatewayURL,
		&spec.Test.ExpectedMetrics,
	} {
		*field = envvar.Expand(*field)
	}
}
