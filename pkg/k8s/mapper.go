package k8s

import (
	"strings"

	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// clusterScoped lists the known GVRs that are not namespaced.
func clusterScoped() map[schema.GroupVersionResource]bool {
	return map[schema.GroupVersionResource]bool{
		GatewayClassGVR:       true,
		DSCInitializationGVR:  true,
		DataScienceClusterGVR: true,
		IngressConfigGVR:      true,
		NamespaceGVR:          true,
		ClusterRoleGVR:        true,
		ClusterRoleBindingGVR: true,
	}
}

// NewStaticRESTMapper returns a mapper that knows every kind of ListKinds
// without discovery. It backs offline rendering and tests.
func NewStaticRESTMapper() meta.RESTMapper {
	mapper := meta.NewDefaultRESTMapper(nil)
	cluster := clusterScoped()

	for gvr, listKind := range ListKinds() {
		gvk := gvr.GroupVersion().WithKind(strings.TrimSuffix(listKind, "List"))

		scope := meta.RESTScopeNamespace
		if cluster[gvr] {
			scope = meta.RESTScopeRoot
		}

		mapper.AddSpecific(gvk, gvr, gvr.GroupVersion().WithResource(strings.TrimSuffix(gvr.Resource, "s")), scope)
	}

	return mapper
}
