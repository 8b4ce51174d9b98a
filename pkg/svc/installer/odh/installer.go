// Package odhinstaller installs Open Data Hub or Red Hat OpenShift AI with
// KServe in raw deployment mode, which serves the MaaS models.
package odhinstaller

import (
	"context"
	"fmt"

	"github.com/opendatahub-io/maasctl/pkg/apis/platform/v1alpha1"
	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/k8s/readiness"
	"github.com/opendatahub-io/maasctl/pkg/svc/installer/internal/component"
	"github.com/opendatahub-io/maasctl/pkg/svc/olm"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

const (
	// DSCInitializationName and DataScienceClusterName name the singletons the operator reconciles.
	DSCInitializationName  = "default-dsci"
	DataScienceClusterName = "default-dsc"

	// KServeWebhookService must have endpoints before InferenceServices can be created.
	KServeWebhookService = "kserve-webhook-server-service"

	dataScienceClusterCRD = "datascienceclusters.datasciencecluster.opendatahub.io"
	dscInitializationCRD  = "dscinitializations.dscinitialization.opendatahub.io"
)

// removedComponents are disabled so that only KServe is reconciled.
//
//nolint:gochecknoglobals // read-only list
var removedComponents = []string{
	"dashboard", "workbenches", "datasciencepipelines", "kueue", "ray",
	"trainingoperator", "trustyai", "modelregistry", "codeflare",
}

// ODHInstaller installs the ODH or RHOAI operator and a KServe-only
// DataScienceCluster.
type ODHInstaller struct {
	*component.Base

	set v1alpha1.OperatorSet
}

// NewODHInstaller creates the installer for the selected operator set.
func NewODHInstaller(deps component.Deps, set v1alpha1.OperatorSet, requiredVersion string) *ODHInstaller {
	return &ODHInstaller{
		Base: component.NewBase(deps, component.Operator{
			Name: string(set),
			OLM: olm.Operator{
				Subscription: olm.Subscription{
					Namespace: set.OperatorNamespace(),
					Package:   set.Package(),
					Channel:   set.Channel(),
					Source:    set.CatalogSource(),
				},
				RequiredVersion: requiredVersion,
			},
		}),
		set: set,
	}
}

// Install subscribes to the operator, waits for its CRDs, creates the
// DSCInitialization and DataScienceCluster and waits for the KServe webhook.
func (o *ODHInstaller) Install(ctx context.Context) error {
	err := o.InstallOperator(ctx)
	if err != nil {
		return err
	}

	deps := o.Deps()

	for _, crd := range []string{dscInitializationCRD, dataScienceClusterCRD} {
		err = readiness.WaitForCRDEstablished(ctx, deps.APIExt, crd, deps.Timeout)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", k8s.ErrRequiredCRDMissing, crd, err)
		}
	}

	applicationsNamespace := o.set.ApplicationsNamespace()

	_, err = deps.Applier.ApplyObjects(ctx, []*unstructured.Unstructured{
		DSCInitialization(applicationsNamespace),
		DataScienceCluster(),
	})
	if err != nil {
		return fmt.Errorf("apply data science cluster: %w", err)
	}

	o.Warn("data science cluster not ready", readiness.WaitForCondition(ctx, deps.Dynamic, readiness.Condition{
		GVR:           k8s.DataScienceClusterGVR,
		Name:          DataScienceClusterName,
		ConditionType: "Ready",
		Timeout:       deps.Timeout,
	}))

	o.Warn("kserve webhook", readiness.WaitForWebhookEndpoints(
		ctx, deps.Kube, applicationsNamespace, KServeWebhookService, deps.Timeout,
	))

	return nil
}

// Uninstall deletes the DataScienceCluster and DSCInitialization, then the operator.
func (o *ODHInstaller) Uninstall(ctx context.Context) error {
	applier := o.Deps().Applier

	for _, obj := range []*unstructured.Unstructured{
		DataScienceCluster(),
		DSCInitialization(o.set.ApplicationsNamespace()),
	} {
		err := applier.Delete(ctx, obj)
		if err != nil {
			return fmt.Errorf("delete %s: %w", obj.GetName(), err)
		}
	}

	return o.UninstallOperator(ctx)
}

// DSCInitialization returns the cluster-wide initialization, with the
// service mesh disabled because the gateway API provides ingress.
func DSCInitialization(applicationsNamespace string) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{Object: map[string]any{
		"spec": map[string]any{
			"applicationsNamespace": applicationsNamespace,
			"monitoring": map[string]any{
				"managementState": "Managed",
				"namespace":       applicationsNamespace,
			},
			"serviceMesh": map[string]any{"managementState": "Removed"},
		},
	}}
	obj.SetAPIVersion("dscinitialization.opendatahub.io/v1")
	obj.SetKind("DSCInitialization")
	obj.SetName(DSCInitializationName)

	return obj
}

// DataScienceCluster returns a cluster with only KServe managed, in raw
// deployment mode.
func DataScienceCluster() *unstructured.Unstructured {
	components := map[string]any{
		"kserve": map[string]any{
			"managementState":            "Managed",
			"defaultDeploymentMode":      "RawDeployment",
			"rawDeploymentServiceConfig": "Headed",
			"serving":                    map[string]any{"managementState": "Removed"},
		},
	}

	for _, name := range removedComponents {
		components[name] = map[string]any{"managementState": "Removed"}
	}

	obj := &unstructured.Unstructured{Object: map[string]any{
		"spec": map[string]any{"components": components},
	}}
	obj.SetAPIVersion("datasciencecluster.opendatahub.io/v1")
	obj.SetKind("DataScienceCluster")
	obj.SetName(DataScienceClusterName)

	return obj
}
