// Package kuadrantinstaller installs the Kuadrant operator and its Kuadrant
// instance, which brings up Authorino and Limitador.
package kuadrantinstaller

import (
	"context"
	"fmt"

	"github.com/opendatahub-io/maasctl/pkg/apis/platform/v1alpha1"
	"github.com/opendatahub-io/maasctl/pkg/client/helm"
	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/k8s/readiness"
	"github.com/opendatahub-io/maasctl/pkg/svc/installer/internal/component"
	"github.com/opendatahub-io/maasctl/pkg/svc/olm"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
)

const (
	// InstanceName is the name of the Kuadrant CR.
	InstanceName = "kuadrant"
	// AuthorinoDeployment and LimitadorDeployment are created by the Kuadrant CR.
	AuthorinoDeployment = "authorino"
	LimitadorDeployment = "limitador-limitador"
	// OperatorDeployment is restarted when policies stay unenforced.
	OperatorDeployment = "kuadrant-operator-controller-manager"

	// AuthorinoService serves the external authorization API to the gateway.
	AuthorinoService = "authorino-authorino-authorization"
	// AuthorinoCertSecret is issued by the OpenShift service CA.
	AuthorinoCertSecret = "authorino-server-cert"
	// AuthorinoSelector matches the Authorino pods.
	AuthorinoSelector = "authorino-resource=authorino"

	authorinoInstance     = "authorino"
	servingCertAnnotation = "service.beta.openshift.io/serving-cert-secret-name"
	catalogSourceName     = "kuadrant-operator-catalog"
)

// Config selects the operator flavour and version.
type Config struct {
	Namespace       string
	OperatorSet     v1alpha1.OperatorSet
	CatalogImage    string
	RequiredVersion string
}

// KuadrantInstaller installs the Kuadrant operator and instance.
type KuadrantInstaller struct {
	*component.Base

	namespace string
}

// NewKuadrantInstaller creates the installer.
func NewKuadrantInstaller(deps component.Deps, cfg Config) *KuadrantInstaller {
	sub := olm.Subscription{
		Namespace: cfg.Namespace,
		Package:   OperatorPackage(cfg.OperatorSet),
		Channel:   "stable",
		Source:    "community-operators",
	}

	if cfg.OperatorSet == v1alpha1.OperatorSetRHOAI {
		sub.Source = "redhat-operators"
	}

	if cfg.CatalogImage != "" {
		sub.Source = catalogSourceName
		sub.SourceNamespace = olm.MarketplaceNamespace
	}

	return &KuadrantInstaller{
		Base: component.NewBase(deps, component.Operator{
			Name: "kuadrant",
			OLM: olm.Operator{
				Subscription:    sub,
				CatalogImage:    cfg.CatalogImage,
				RequiredVersion: cfg.RequiredVersion,
			},
			Repo: helm.RepoConfig{Name: "kuadrant", URL: "https://kuadrant.io/helm-charts"},
			Chart: helm.ChartConfig{
				ReleaseName:     "kuadrant-operator",
				ChartName:       "kuadrant/kuadrant-operator",
				Namespace:       cfg.Namespace,
				CreateNamespace: true,
			},
		}),
		namespace: cfg.Namespace,
	}
}

// OperatorPackage is the OLM package, and CSV prefix, of the Kuadrant
// operator shipped with set: Red Hat Connectivity Link alongside RHOAI.
func OperatorPackage(set v1alpha1.OperatorSet) string {
	if set == v1alpha1.OperatorSetRHOAI {
		return "rhcl-operator"
	}

	return "kuadrant-operator"
}

// Install installs the operator, creates the Kuadrant instance, waits for it
// to become Ready and, on OpenShift, enables TLS on Authorino.
func (k *KuadrantInstaller) Install(ctx context.Context) error {
	err := k.InstallOperator(ctx)
	if err != nil {
		return err
	}

	deps := k.Deps()

	_, err = deps.Applier.Apply(ctx, instance(k.namespace))
	if err != nil {
		return fmt.Errorf("apply kuadrant instance: %w", err)
	}

	k.Warn("kuadrant instance not ready", readiness.WaitForCondition(ctx, deps.Dynamic, readiness.Condition{
		GVR:           k8s.KuadrantGVR,
		Namespace:     k.namespace,
		Name:          InstanceName,
		ConditionType: "Ready",
		Timeout:       deps.Timeout,
	}))

	k.WaitForDeployments(ctx, k.namespace, AuthorinoDeployment, LimitadorDeployment)

	if deps.Distribution.IsOpenShift() && k.Warn("authorino TLS", k.EnableAuthorinoTLS(ctx)) {
		// The operator rolls Authorino onto the new listener.
		k.Warn("authorino pods not ready",
			readiness.WaitForPodsReady(ctx, deps.Kube, k.namespace, AuthorinoSelector, deps.Timeout))
	}

	return nil
}

// EnableAuthorinoTLS asks the service CA for a serving certificate and
// points the Authorino listener at it.
func (k *KuadrantInstaller) EnableAuthorinoTLS(ctx context.Context) error {
	deps := k.Deps()

	servicePatch := fmt.Sprintf(`{"metadata":{"annotations":{%q:%q}}}`, servingCertAnnotation, AuthorinoCertSecret)

	_, err := deps.Kube.CoreV1().Services(k.namespace).Patch(
		ctx, AuthorinoService, types.StrategicMergePatchType, []byte(servicePatch),
		metav1.PatchOptions{FieldManager: k8s.FieldManager},
	)
	if err != nil {
		return fmt.Errorf("annotate service %s: %w", AuthorinoService, err)
	}

	authorinoPatch := fmt.Sprintf(
		`{"spec":{"listener":{"tls":{"enabled":true,"certSecretRef":{"name":%q}}}}}`, AuthorinoCertSecret,
	)

	_, err = deps.Dynamic.Resource(k8s.AuthorinoGVR).Namespace(k.namespace).Patch(
		ctx, authorinoInstance, types.MergePatchType, []byte(authorinoPatch),
		metav1.PatchOptions{FieldManager: k8s.FieldManager},
	)
	if err != nil {
		return fmt.Errorf("enable TLS on authorino: %w", err)
	}

	return nil
}

// Uninstall deletes the Kuadrant instance, then the operator.
func (k *KuadrantInstaller) Uninstall(ctx context.Context) error {
	err := k.Deps().Applier.Delete(ctx, instance(k.namespace))
	if err != nil {
		return fmt.Errorf("delete kuadrant instance: %w", err)
	}

	return k.UninstallOperator(ctx)
}

func instance(namespace string) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{Object: map[string]any{"spec": map[string]any{}}}
	obj.SetAPIVersion("kuadrant.io/v1beta1")
	obj.SetKind("Kuadrant")
	obj.SetNamespace(namespace)
	obj.SetName(InstanceName)

	return obj
}
