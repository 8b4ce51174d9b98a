// Package k8stest builds a k8s.Clients bundle backed by fake clients.
package k8stest

import (
	"github.com/opendatahub-io/maasctl/pkg/k8s"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apiextensionsfake "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset/fake"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	kubefake "k8s.io/client-go/kubernetes/fake"
	"k8s.io/client-go/rest"
	ctrlfake "sigs.k8s.io/controller-runtime/pkg/client/fake"
)

// Fakes exposes the fake clients behind a k8s.Clients bundle.
type Fakes struct {
	*k8s.Clients

	KubeFake    *kubefake.Clientset
	DynamicFake *dynamicfake.FakeDynamicClient
	APIExtFake  *apiextensionsfake.Clientset
}

// NewClients sorts objects by kind: unstructured objects seed the dynamic
// client, CRDs the apiextensions client and the runtime client, and
// everything else the typed clientset.
func NewClients(objects ...runtime.Object) *Fakes {
	var (
		typed        []runtime.Object
		custom       []runtime.Object
		crds         []runtime.Object
		runtimeSeeds []runtime.Object
	)

	for _, obj := range objects {
		switch obj.(type) {
		case *unstructured.Unstructured:
			custom = append(custom, obj)
		case *apiextensionsv1.CustomResourceDefinition:
			crds = append(crds, obj)
			runtimeSeeds = append(runtimeSeeds, obj.DeepCopyObject())
		default:
			typed = append(typed, obj)
		}
	}

	scheme, err := k8s.NewScheme()
	if err != nil {
		panic(err)
	}

	mapper := k8s.NewStaticRESTMapper()
	kube := kubefake.NewClientset(typed...)
	dyn := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(), k8s.ListKinds())
	apiExt := apiextensionsfake.NewSimpleClientset(crds...)

	// The tracker would otherwise guess resources from kinds (Gateway
	// becomes "gatewaies"), so seed under the mapped resource.
	for _, obj := range custom {
		seed(dyn, mapper, obj.(*unstructured.Unstructured))
	}

	return &Fakes{
		Clients: &k8s.Clients{
			Config:  &rest.Config{Host: "https://api.cluster.example.com:6443"},
			Kube:    kube,
			Dynamic: dyn,
			APIExt:  apiExt,
			Runtime: ctrlfake.NewClientBuilder().WithScheme(scheme).WithRuntimeObjects(runtimeSeeds...).Build(),
			Mapper:  mapper,
		},
		KubeFake:    kube,
		DynamicFake: dyn,
		APIExtFake:  apiExt,
	}
}

func seed(dyn *dynamicfake.FakeDynamicClient, mapper meta.RESTMapper, obj *unstructured.Unstructured) {
	gvk := obj.GroupVersionKind()

	gvr, _ := meta.UnsafeGuessKindToResource(gvk)

	mapping, err := mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if err == nil {
		gvr = mapping.Resource
	}

	err = dyn.Tracker().Create(gvr, obj, obj.GetNamespace())
	if err != nil {
		panic(err)
	}
}

// Object builds an unstructured object.
func Object(apiVersion, kind, namespace, name string, fields map[string]any) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{Object: map[string]any{}}
	for key, value := range fields {
		obj.Object[key] = value
	}

	obj.SetAPIVersion(apiVersion)
	obj.SetKind(kind)
	obj.SetNamespace(namespace)
	obj.SetName(name)

	return obj
}

// Conditions builds a status.conditions list from type/status pairs.
func Conditions(pairs ...string) map[string]any {
	conditions := make([]any, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		conditions = append(conditions, map[string]any{"type": pairs[i], "status": pairs[i+1]})
	}

	return map[string]any{"conditions": conditions}
}
