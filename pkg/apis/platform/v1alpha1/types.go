package v1alpha1

import (
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	// Group is the API group of the maasctl configuration.
	Group = "maas.opendatahub.io"
	// Version is the API version of the maasctl configuration.
	Version = "v1alpha1"
	// Kind is the kind of the maasctl configuration.
	Kind = "Platform"
	// APIVersion is the full API version.
	APIVersion = Group + "/" + Version
)

// Platform is the complete configuration of one MaaS deployment.
type Platform struct {
	metav1.TypeMeta `json:",inline" mapstructure:",squash"`

	Spec Spec `json:"spec,omitzero" mapstructure:"spec"`
}

// Spec defines the desired platform.
type Spec struct {
	Connection    Connection    `json:"connection,omitzero"    mapstructure:"connection"`
	Distribution  Distribution  `json:"distribution,omitzero"  mapstructure:"distribution"`
	Namespaces    Namespaces    `json:"namespaces,omitzero"    mapstructure:"namespaces"`
	Operators     Operators     `json:"operators,omitzero"     mapstructure:"operators"`
	Gateway       Gateway       `json:"gateway,omitzero"       mapstructure:"gateway"`
	Observability Observability `json:"observability,omitzero" mapstructure:"observability"`
	Deploy        Deploy        `json:"deploy,omitzero"        mapstructure:"deploy"`
	Test          Test          `json:"test,omitzero"          mapstructure:"test"`
}

// Connection selects the cluster.
type Connection struct {
	Kubeconfig string        `json:"kubeconfig,omitzero" mapstructure:"kubeconfig"`
	Context    string        `json:"context,omitzero"    mapstructure:"context"`
	Timeout    time.Duration `json:"timeout,omitzero"    mapstructure:"timeout"`
}

// Namespaces used by the platform components.
type Namespaces struct {
	// Ops hosts Grafana/Perses and the dashboards (OPS_NS).
	Ops string `json:"ops,omitzero"      mapstructure:"ops"`
	// Kuadrant hosts the Kuadrant CR, Authorino and Limitador (KUADRANT_NS).
	Kuadrant string `json:"kuadrant,omitzero" mapstructure:"kuadrant"`
	// App hosts the served models (APP_NS).
	App string `json:"app,omitzero"      mapstructure:"app"`
	// MaaSAPI hosts the maas-api deployment (MAAS_API_NAMESPACE).
	MaaSAPI string `json:"maasAPI,omitzero"  mapstructure:"maasAPI"`
}

// Operators configures the OLM and Helm installs of the dependencies.
type Operators struct {
	Set OperatorSet `json:"set,omitzero"          mapstructure:"set"`
	// CatalogImage switches subscriptions to a custom CatalogSource (CAT_IMAGE).
	CatalogImage string `json:"catalogImage,omitzero" mapstructure:"catalogImage"`
	// Required CSV floors such as "1.3.0" (REQ_*_CSV).
	RequiredKuadrantCSV    string `json:"requiredKuadrantCSV,omitzero"    mapstructure:"requiredKuadrantCSV"`
	RequiredODHCSV         string `json:"requiredODHCSV,omitzero"         mapstructure:"requiredODHCSV"`
	RequiredRHOAICSV       string `json:"requiredRHOAICSV,omitzero"       mapstructure:"requiredRHOAICSV"`
	RequiredCertManagerCSV string `json:"requiredCertManagerCSV,omitzero" mapstructure:"requiredCertManagerCSV"`
	SkipCertManager        bool   `json:"skipCertManager,omitzero"        mapstructure:"skipCertManager"`
	SkipKuadrant           bool   `json:"skipKuadrant,omitzero"           mapstructure:"skipKuadrant"`
	SkipODH                bool   `json:"skipODH,omitzero"                mapstructure:"skipODH"`
	SkipValidation         bool   `json:"skipValidation,omitzero"         mapstructure:"skipValidation"`
}

// Gateway configures the ingress gateway.
type Gateway struct {
	Name      string `json:"name,omitzero"      mapstructure:"name"`
	Namespace string `json:"namespace,omitzero" mapstructure:"namespace"`
	ClassName string `json:"className,omitzero" mapstructure:"className"`
	// Domain overrides the detected cluster apps domain.
	Domain string `json:"domain,omitzero"    mapstructure:"domain"`
	// InsecureHTTP adds a plain HTTP listener (INSECURE_HTTP).
	InsecureHTTP bool `json:"insecureHTTP,omitzero" mapstructure:"insecureHTTP"`
}

// Observability configures the metrics wiring and dashboards.
type Observability struct {
	Skip  bool               `json:"skip,omitzero"  mapstructure:"skip"`
	Stack ObservabilityStack `json:"stack,omitzero" mapstructure:"stack"`
	// PrometheusURL overrides the discovered thanos-querier route.
	PrometheusURL string `json:"prometheusURL,omitzero" mapstructure:"prometheusURL"`
}

// Deploy configures `maasctl deploy`.
type Deploy struct {
	// DeploySimulator also deploys a vLLM simulator model (DEPLOY_SIMULATOR).
	DeploySimulator bool `json:"deploySimulator,omitzero"   mapstructure:"deploySimulator"`
	// ValidateManifests validates rendered manifests with kubeconform before applying.
	ValidateManifests bool `json:"validateManifests,omitzero" mapstructure:"validateManifests"`
}

// Test configures `maasctl test`.
type Test struct {
	// GatewayURL overrides https://maas.<domain>.
	GatewayURL string `json:"gatewayURL,omitzero" mapstructure:"gatewayURL"`
	// InsecureSkipTLSVerify accepts self-signed gateway certificates.
	InsecureSkipTLSVerify bool `json:"insecureSkipTLSVerify,omitzero" mapstructure:"insecureSkipTLSVerify"`
	// ExpectedMetrics is a path to an expected_metrics.yaml override.
	ExpectedMetrics string `json:"expectedMetrics,omitzero" mapstructure:"expectedMetrics"`
	// TokenTTL is the lifetime requested when minting test tokens.
	TokenTTL time.Duration `json:"tokenTTL,omitzero" mapstructure:"tokenTTL"`
	// RateLimitRequests is the number of requests sent to trigger a 429.
	RateLimitRequests int `json:"rateLimitRequests,omitzero" mapstructure:"rateLimitRequests"`
	// TierTokens maps a tier name to a token of a user in that tier; the
	// rate limit check runs once per entry.
	TierTokens map[string]string `json:"tierTokens,omitzero" mapstructure:"tierTokens"`
}
