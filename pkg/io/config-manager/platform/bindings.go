package configmanager

// Binding ties a configuration key to its flag and environment variable.
type Binding struct {
	// Key is the viper key, matching the mapstructure path of v1alpha1.Platform.
	Key string
	// Flag is the CLI flag name; empty when the key has no flag.
	Flag string
	// Env is the legacy environment variable name; MAASCTL_<Env> is bound too.
	Env string
}

// EnvPrefix prefixes every environment variable alias.
const EnvPrefix = "MAASCTL_"

// Bindings returns every configuration key maasctl understands.
func Bindings() []Binding {
	return []Binding{
		{Key: "spec.connection.kubeconfig", Flag: "kubeconfig", Env: "KUBECONFIG_PATH"},
		{Key: "spec.connection.context", Flag: "context", Env: "KUBE_CONTEXT"},
		{Key: "spec.connection.timeout", Flag: "timeout", Env: "TIMEOUT"},
		{Key: "spec.distribution", Flag: "distribution", Env: "DISTRIBUTION"},

		{Key: "spec.namespaces.ops", Flag: "ops-ns", Env: "OPS_NS"},
		{Key: "spec.namespaces.kuadrant", Flag: "kuadrant-ns", Env: "KUADRANT_NS"},
		{Key: "spec.namespaces.app", Flag: "app-ns", Env: "APP_NS"},
		{Key: "spec.namespaces.maasAPI", Flag: "namespace", Env: "MAAS_API_NAMESPACE"},

		{Key: "spec.operators.set", Flag: "operator-set", Env: "OPERATOR_SET"},
		{Key: "spec.operators.catalogImage", Flag: "catalog-image", Env: "CAT_IMAGE"},
		{Key: "spec.operators.requiredKuadrantCSV", Env: "REQ_KUADRANT_CSV"},
		{Key: "spec.operators.requiredODHCSV", Env: "REQ_ODH_CSV"},
		{Key: "spec.operators.requiredRHOAICSV", Env: "REQ_RHOAI_CSV"},
		{Key: "spec.operators.requiredCertManagerCSV", Env: "REQ_CERT_MANAGER_CSV"},
		{Key: "spec.operators.skipCertManager", Env: "SKIP_CERT_MANAGER"},
		{Key: "spec.operators.skipKuadrant", Env: "SKIP_KUADRANT"},
		{Key: "spec.operators.skipODH", Env: "SKIP_ODH"},
		{Key: "spec.operators.skipValidation", Flag: "skip-validation", Env: "SKIP_VALIDATION"},

		{Key: "spec.gateway.domain", Flag: "domain", Env: "CLUSTER_DOMAIN"},
		{Key: "spec.gateway.insecureHTTP", Flag: "insecure-http", Env: "INSECURE_HTTP"},

		{Key: "spec.observability.skip", Flag: "skip-observability", Env: "SKIP_OBSERVABILITY"},
		{Key: "spec.observability.stack", Flag: "observability-stack", Env: "OBSERVABILITY_STACK"},
		{Key: "spec.observability.prometheusURL", Flag: "prometheus-url", Env: "PROMETHEUS_URL"},

		{Key: "spec.deploy.deploySimulator", Flag: "deploy-simulator", Env: "DEPLOY_SIMULATOR"},
		{Key: "spec.deploy.validateManifests", Flag: "validate-manifests", Env: "VALIDATE_MANIFESTS"},

		{Key: "spec.test.gatewayURL", Flag: "gateway-url", Env: "GATEWAY_URL"},
		{Key: "spec.test.insecureSkipTLSVerify", Flag: "insecure-skip-tls-verify", Env: "INSECURE_SKIP_TLS_VERIFY"},
		{Key: "spec.test.expectedMetrics", Flag: "expected-metrics", Env: "EXPECTED_METRICS"},
		{Key: "spec.test.tokenTTL", Flag: "token-ttl", Env: "TOKEN_TTL"},
		{Key: "spec.test.rateLimitRequests", Flag: "rate-limit-requests", Env: "RATE_LIMIT_REQUESTS"},
	}
}
