package k8s

import (
	"fmt"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apiextensionsclientset "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/restmapper"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"
)

// Clients bundles every client the commands need against one cluster.
type Clients struct {
	Config  *rest.Config
	Kube    kubernetes.Interface
	Dynamic dynamic.Interface
	APIExt  apiextensionsclientset.Interface
	// Runtime reads built-in and apiextensions kinds with controller-runtime.
	Runtime ctrlclient.Client
	Mapper  meta.RESTMapper
}

// NewScheme returns a scheme with the built-in kinds and CRDs registered.
func NewScheme() (*runtime.Scheme, error) {
	scheme := runtime.NewScheme()

	err := clientgoscheme.AddToScheme(scheme)
	if err != nil {
		return nil, fmt.Errorf("register client-go scheme: %w", err)
	}

	err = apiextensionsv1.AddToScheme(scheme)
	if err != nil {
		return nil, fmt.Errorf("register apiextensions scheme: %w", err)
	}

	return scheme, nil
}

// NewClients builds the client bundle from kubeconfig path and context.
func NewClients(kubeconfig, context string) (*Clients, error) {
	restConfig, err := BuildRESTConfig(kubeconfig, context)
	if err != nil {
		return nil, fmt.Errorf("failed to build rest config: %w", err)
	}

	return NewClientsForConfig(restConfig)
}

// NewClientsForConfig builds the client bundle from a REST config.
func NewClientsForConfig(restConfig *rest.Config) (*Clients, error) {
	kube, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	dyn, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	apiExt, err := apiextensionsclientset.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create apiextensions client: %w", err)
	}

	scheme, err := NewScheme()
	if err != nil {
		return nil, err
	}

	runtimeClient, err := ctrlclient.New(restConfig, ctrlclient.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("failed to create controller-runtime client: %w", err)
	}

	mapper := restmapper.NewDeferredDiscoveryRESTMapper(memory.NewMemCacheClient(kube.Discovery()))

	return &Clients{
		Config:  restConfig,
		Kube:    kube,
		Dynamic: dyn,
		APIExt:  apiExt,
		Runtime: runtimeClient,
		Mapper:  mapper,
	}, nil
}
