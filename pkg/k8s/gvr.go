package k8s

import "k8s.io/apimachinery/pkg/runtime/schema"

// GroupVersionResources of the external kinds the platform installs, applies or reads.
//
//nolint:gochecknoglobals // read-only lookup table
var (
	// Operator Lifecycle Manager.
	CatalogSourceGVR = schema.GroupVersionResource{
		Group: "operators.coreos.com", Version: "v1alpha1", Resource: "catalogsources",
	}
	OperatorGroupGVR = schema.GroupVersionResource{
		Group: "operators.coreos.com", Version: "v1", Resource: "operatorgroups",
	}
	SubscriptionGVR = schema.GroupVersionResource{
		Group: "operators.coreos.com", Version: "v1alpha1", Resource: "subscriptions",
	}
	InstallPlanGVR = schema.GroupVersionResource{
		Group: "operators.coreos.com", Version: "v1alpha1", Resource: "installplans",
	}
	ClusterServiceVersionGVR = schema.GroupVersionResource{
		Group: "operators.coreos.com", Version: "v1alpha1", Resource: "clusterserviceversions",
	}

	// Kuadrant.
	KuadrantGVR = schema.GroupVersionResource{
		Group: "kuadrant.io", Version: "v1beta1", Resource: "kuadrants",
	}
	AuthPolicyGVR = schema.GroupVersionResource{
		Group: "kuadrant.io", Version: "v1", Resource: "authpolicies",
	}
	RateLimitPolicyGVR = schema.GroupVersionResource{
		Group: "kuadrant.io", Version: "v1", Resource: "ratelimitpolicies",
	}
	TokenRateLimitPolicyGVR = schema.GroupVersionResource{
		Group: "kuadrant.io", Version: "v1alpha1", Resource: "tokenratelimitpolicies",
	}
	TelemetryPolicyGVR = schema.GroupVersionResource{
		Group: "extensions.kuadrant.io", Version: "v1alpha1", Resource: "telemetrypolicies",
	}
	AuthorinoGVR = schema.GroupVersionResource{
		Group: "operator.authorino.kuadrant.io", Version: "v1beta1", Resource: "authorinos",
	}

	// Gateway API.
	GatewayClassGVR = schema.GroupVersionResource{
		Group: "gateway.networking.k8s.io", Version: "v1", Resource: "gatewayclasses",
	}
	GatewayGVR = schema.GroupVersionResource{
		Group: "gateway.networking.k8s.io", Version: "v1", Resource: "gateways",
	}
	HTTPRouteGVR = schema.GroupVersionResource{
		Group: "gateway.networking.k8s.io", Version: "v1", Resource: "httproutes",
	}

	// OpenShift AI / Open Data Hub and KServe.
	DSCInitializationGVR = schema.GroupVersionResource{
		Group: "dscinitialization.opendatahub.io", Version: "v1", Resource: "dscinitializations",
	}
	DataScienceClusterGVR = schema.GroupVersionResource{
		Group: "datasciencecluster.opendatahub.io", Version: "v1", Resource: "datascienceclusters",
	}
	LLMInferenceServiceGVR = schema.GroupVersionResource{
		Group: "serving.kserve.io", Version: "v1alpha1", Resource: "llminferenceservices",
	}

	// Monitoring.
	ServiceMonitorGVR = schema.GroupVersionResource{
		Group: "monitoring.coreos.com", Version: "v1", Resource: "servicemonitors",
	}
	PodMonitorGVR = schema.GroupVersionResource{
		Group: "monitoring.coreos.com", Version: "v1", Resource: "podmonitors",
	}
	IstioTelemetryGVR = schema.GroupVersionResource{
		Group: "telemetry.istio.io", Version: "v1", Resource: "telemetries",
	}
	GrafanaGVR = schema.GroupVersionResource{
		Group: "grafana.integreatly.org", Version: "v1beta1", Resource: "grafanas",
	}
	GrafanaDatasourceGVR = schema.GroupVersionResource{
		Group: "grafana.integreatly.org", Version: "v1beta1", Resource: "grafanadatasources",
	}
	GrafanaDashboardGVR = schema.GroupVersionResource{
		Group: "grafana.integreatly.org", Version: "v1beta1", Resource: "grafanadashboards",
	}
	PersesGVR = schema.GroupVersionResource{
		Group: "perses.dev", Version: "v1alpha1", Resource: "perses",
	}
	PersesDatasourceGVR = schema.GroupVersionResource{
		Group: "perses.dev", Version: "v1alpha1", Resource: "persesdatasources",
	}
	PersesDashboardGVR = schema.GroupVersionResource{
		Group: "perses.dev", Version: "v1alpha1", Resource: "persesdashboards",
	}

	// OpenShift configuration.
	IngressConfigGVR = schema.GroupVersionResource{
		Group: "config.openshift.io", Version: "v1", Resource: "ingresses",
	}
	IngressControllerGVR = schema.GroupVersionResource{
		Group: "operator.openshift.io", Version: "v1", Resource: "ingresscontrollers",
	}
	RouteGVR = schema.GroupVersionResource{
		Group: "route.openshift.io", Version: "v1", Resource: "routes",
	}

	// Built-in kinds that appear in rendered manifests.
	NamespaceGVR          = schema.GroupVersionResource{Version: "v1", Resource: "namespaces"}
	ConfigMapGVR          = schema.GroupVersionResource{Version: "v1", Resource: "configmaps"}
	SecretGVR             = schema.GroupVersionResource{Version: "v1", Resource: "secrets"}
	ServiceGVR            = schema.GroupVersionResource{Version: "v1", Resource: "services"}
	ServiceAccountGVR     = schema.GroupVersionResource{Version: "v1", Resource: "serviceaccounts"}
	DeploymentGVR         = schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "deployments"}
	RoleGVR               = schema.GroupVersionResource{Group: rbacGroup, Version: "v1", Resource: "roles"}
	RoleBindingGVR        = schema.GroupVersionResource{Group: rbacGroup, Version: "v1", Resource: "rolebindings"}
	ClusterRoleGVR        = schema.GroupVersionResource{Group: rbacGroup, Version: "v1", Resource: "clusterroles"}
	ClusterRoleBindingGVR = schema.GroupVersionResource{
		Group: rbacGroup, Version: "v1", Resource: "clusterrolebindings",
	}
)

const rbacGroup = "rbac.authorization.k8s.io"

// ListKinds maps every GVR above to its list kind, as required by the fake
// dynamic client.
func ListKinds() map[schema.GroupVersionResource]string {
	return map[schema.GroupVersionResource]string{
		CatalogSourceGVR:         "CatalogSourceList",
		OperatorGroupGVR:         "OperatorGroupList",
		SubscriptionGVR:          "SubscriptionList",
		InstallPlanGVR:           "InstallPlanList",
		ClusterServiceVersionGVR: "ClusterServiceVersionList",
		KuadrantGVR:              "KuadrantList",
		AuthPolicyGVR:            "AuthPolicyList",
		RateLimitPolicyGVR:       "RateLimitPolicyList",
		TokenRateLimitPolicyGVR:  "TokenRateLimitPolicyList",
		TelemetryPolicyGVR:       "TelemetryPolicyList",
		AuthorinoGVR:             "AuthorinoList",
		GatewayClassGVR:          "GatewayClassList",
		GatewayGVR:               "GatewayList",
		HTTPRouteGVR:             "HTTPRouteList",
		DSCInitializationGVR:     "DSCInitializationList",
		DataScienceClusterGVR:    "DataScienceClusterList",
		LLMInferenceServiceGVR:   "LLMInferenceServiceList",
		ServiceMonitorGVR:        "ServiceMonitorList",
		PodMonitorGVR:            "PodMonitorList",
		IstioTelemetryGVR:        "TelemetryList",
		GrafanaGVR:               "GrafanaList",
		GrafanaDatasourceGVR:     "GrafanaDatasourceList",
		GrafanaDashboardGVR:      "GrafanaDashboardList",
		PersesGVR:                "PersesList",
		PersesDatasourceGVR:      "PersesDatasourceList",
		PersesDashboardGVR:       "PersesDashboardList",
		IngressConfigGVR:         "IngressList",
		IngressControllerGVR:     "IngressControllerList",
		RouteGVR:                 "RouteList",
		NamespaceGVR:             "NamespaceList",
		ConfigMapGVR:             "ConfigMapList",
		SecretGVR:                "SecretList",
		ServiceGVR:               "ServiceList",
		ServiceAccountGVR:        "ServiceAccountList",
		DeploymentGVR:            "DeploymentList",
		RoleGVR:                  "RoleList",
		RoleBindingGVR:           "RoleBindingList",
		ClusterRoleGVR:           "ClusterRoleList",
		ClusterRoleBindingGVR:    "ClusterRoleBindingList",
	}
}
