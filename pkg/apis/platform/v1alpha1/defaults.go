package v1alpha1

import "time"

// Defaults mirror the values the installation scripts used.
const (
	DefaultOpsNamespace      = "maas-observability"
	DefaultKuadrantNamespace = "kuadrant-system"
	DefaultAppNamespace      = "llm"
	DefaultMaaSAPINamespace  = "maas-api"

	DefaultGatewayName      = "maas-default-gateway"
	DefaultGatewayNamespace = "openshift-ingress"
	DefaultGatewayClassName = "openshift-default"

	DefaultRequiredKuadrantCSV    = "1.2.0"
	DefaultRequiredODHCSV         = "2.29.0"
	DefaultRequiredRHOAICSV       = "2.25.0"
	DefaultRequiredCertManagerCSV = "1.15.0"

	DefaultTimeout           = 10 * time.Minute
	DefaultTokenTTL          = 10 * time.Minute
	DefaultRateLimitRequests = 20
)

// NewPlatform returns a Platform populated with defaults.
func NewPlatform() *Platform {
	platform := &Platform{}
	platform.APIVersion = APIVersion
	platform.Kind = Kind
	platform.SetDefaults()

	return platform
}

// SetDefaults fills every zero field with its default.
func (p *Platform) SetDefaults() {
	spec := &p.Spec

	setDefault(&spec.Connection.Timeout, DefaultTimeout)
	setDefault(&spec.Distribution, spec.Distribution.Default())

	setDefault(&spec.Namespaces.Ops, DefaultOpsNamespace)
	setDefault(&spec.Namespaces.Kuadrant, DefaultKuadrantNamespace)
	setDefault(&spec.Namespaces.App, DefaultAppNamespace)
	setDefault(&spec.Namespaces.MaaSAPI, DefaultMaaSAPINamespace)

	setDefault(&spec.Operators.Set, spec.Operators.Set.Default())
	setDefault(&spec.Operators.RequiredKuadrantCSV, DefaultRequiredKuadrantCSV)
	setDefault(&spec.Operators.RequiredODHCSV, DefaultRequiredODHCSV)
	setDefault(&spec.Operators.RequiredRHOAICSV, DefaultRequiredRHOAICSV)
	setDefault(&spec.Operators.RequiredCertManagerCSV, DefaultRequiredCertManagerCSV)

	setDefault(&spec.Gateway.Name, DefaultGatewayName)
	setDefault(&spec.Gateway.Namespace, DefaultGatewayNamespace)
	setDefault(&spec.Gateway.ClassName, DefaultGatewayClassName)

	setDefault(&spec.Observability.Stack, spec.Observability.Stack.Default())

	setDefault(&spec.Test.TokenTTL, DefaultTokenTTL)
	setDefault(&spec.Test.RateLimitRequests, DefaultRateLimitRequests)
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}
