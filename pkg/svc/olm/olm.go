package olm

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/opendatahub-io/maasctl/pkg/client/apply"
	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/k8s/readiness"
	"github.com/opendatahub-io/maasctl/pkg/log"
	"github.com/opendatahub-io/maasctl/pkg/notify"
	"go.uber.org/zap"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/dynamic"
)

// Approval strategies of a Subscription.
const (
	ApprovalAutomatic = "Automatic"
	ApprovalManual    = "Manual"
)

// MarketplaceNamespace hosts the default catalog sources on OpenShift.
const MarketplaceNamespace = "openshift-marketplace"

const catalogReadyState = "READY"

// Subscription describes the desired Subscription of one operator package.
type Subscription struct {
	Name            string
	Namespace       string
	Package         string
	Channel         string
	Source          string
	SourceNamespace string
	StartingCSV     string
	// Approval defaults to Automatic.
	Approval string
}

// Operator bundles everything needed to install one operator through OLM.
type Operator struct {
	Subscription Subscription
	// CatalogImage, when set, creates a grpc CatalogSource named after
	// Subscription.Source from this index image.
	CatalogImage string
	// TargetNamespaces of the OperatorGroup; empty means all namespaces.
	TargetNamespaces []string
	// CSVPrefix selects the operator's CSV; defaults to the package name.
	CSVPrefix string
	// RequiredVersion is the minimum accepted CSV version.
	RequiredVersion string
}

// ResolvedCSVPrefix is CSVPrefix, or the package name when unset.
func (o Operator) ResolvedCSVPrefix() string {
	if o.CSVPrefix != "" {
		return o.CSVPrefix
	}

	return o.Subscription.Package
}

// Manager drives OLM through the dynamic client.
type Manager struct {
	dyn     dynamic.Interface
	applier *apply.Applier
	writer  io.Writer
}

// NewManager creates a manager; warnings are written to writer.
func NewManager(dyn dynamic.Interface, applier *apply.Applier, writer io.Writer) *Manager {
	return &Manager{dyn: dyn, applier: applier, writer: writer}
}

// Install subscribes to the operator, approves manual install plans, waits
// for the CSV to succeed and checks it against the required version. It
// returns the installed CSV name.
func (m *Manager) Install(ctx context.Context, operator Operator, timeout time.Duration) (string, error) {
	sub := operator.Subscription

	if operator.CatalogImage != "" {
		err := m.EnsureCatalogSource(ctx, sub.Source, sub.SourceNamespace, operator.CatalogImage, timeout)
		if err != nil {
			return "", err
		}
	}

	err := m.EnsureOperatorGroup(ctx, sub.Namespace, operator.TargetNamespaces)
	if err != nil {
		return "", err
	}

	err = m.EnsureSubscription(ctx, sub)
	if err != nil {
		return "", err
	}

	if sub.Approval == ApprovalManual {
		approveErr := readiness.PollForReadiness(ctx, timeout, func(ctx context.Context) (bool, error) {
			approved, err := m.ApprovePendingInstallPlans(ctx, sub.Namespace, operator.ResolvedCSVPrefix())

			return approved > 0, err
		})
		readiness.BestEffort(m.writer, "approve install plan for "+sub.Package, approveErr)
	}

	csv, err := m.WaitForOperator(ctx, sub.Namespace, operator.ResolvedCSVPrefix(), timeout)
	if err != nil {
		return "", err
	}

	err = CheckCSVVersion(csv, operator.RequiredVersion)
	if err != nil {
		return csv, err
	}

	return csv, nil
}

// EnsureCatalogSource creates or updates a grpc CatalogSource serving image
// and waits, best effort, for its connection to become READY.
func (m *Manager) EnsureCatalogSource(
	ctx context.Context,
	name, namespace, image string,
	timeout time.Duration,
) error {
	if namespace == "" {
		namespace = MarketplaceNamespace
	}

	catalog := newObject("operators.coreos.com/v1alpha1", "CatalogSource", namespace, name)
	catalog.Object["spec"] = map[string]any{
		"sourceType":  "grpc",
		"image":       image,
		"displayName": name,
		"publisher":   "maasctl",
		"updateStrategy": map[string]any{
			"registryPoll": map[string]any{"interval": "15m"},
		},
	}

	result, err := m.applier.Apply(ctx, catalog)
	if err != nil {
		return fmt.Errorf("apply catalog source %s: %w", name, err)
	}

	log.Debug(ctx, "catalog source applied", zap.Stringer("result", result))

	waitErr := readiness.WaitForCondition(ctx, m.dyn, readiness.Condition{
		GVR:       k8s.CatalogSourceGVR,
		Namespace: namespace,
		Name:      name,
		JSONPath:  "{.status.connectionState.lastObservedState}",
		Expected:  catalogReadyState,
		Timeout:   timeout,
	})
	readiness.BestEffort(m.writer, "catalog source "+name, waitErr)

	return nil
}

// EnsureOperatorGroup creates an OperatorGroup in namespace unless one
// already exists; OLM refuses to install into a namespace with two.
func (m *Manager) EnsureOperatorGroup(ctx context.Context, namespace string, targetNamespaces []string) error {
	groups, err := m.dyn.Resource(k8s.OperatorGroupGVR).Namespace(namespace).List(ctx, metav1.ListOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("list operator groups in %s: %w", namespace, err)
	}

	if groups != nil && len(groups.Items) > 0 {
		log.Debug(ctx, "operator group exists", zap.String("namespace", namespace),
			zap.String("name", groups.Items[0].GetName()))

		return nil
	}

	group := newObject("operators.coreos.com/v1", "OperatorGroup", namespace, namespace+"-operator-group")

	spec := map[string]any{}
	if len(targetNamespaces) > 0 {
		targets := make([]any, 0, len(targetNamespaces))
		for _, target := range targetNamespaces {
			targets = append(targets, target)
		}

		spec["targetNamespaces"] = targets
	}

	group.Object["spec"] = spec

	_, err = m.applier.Apply(ctx, group)
	if err != nil {
		return fmt.Errorf("create operator group in %s: %w", namespace, err)
	}

	return nil
}

// EnsureSubscription creates or updates the Subscription.
func (m *Manager) EnsureSubscription(ctx context.Context, sub Subscription) error {
	name := sub.Name
	if name == "" {
		name = sub.Package
	}

	approval := sub.Approval
	if approval == "" {
		approval = ApprovalAutomatic
	}

	sourceNamespace := sub.SourceNamespace
	if sourceNamespace == "" {
		sourceNamespace = MarketplaceNamespace
	}

	spec := map[string]any{
		"name":                sub.Package,
		"channel":             sub.Channel,
		"source":              sub.Source,
		"sourceNamespace":     sourceNamespace,
		"installPlanApproval": approval,
	}
	if sub.StartingCSV != "" {
		spec["startingCSV"] = sub.StartingCSV
	}

	subscription := newObject("operators.coreos.com/v1alpha1", "Subscription", sub.Namespace, name)
	subscription.Object["spec"] = spec

	result, err := m.applier.Apply(ctx, subscription)
	if err != nil {
		return fmt.Errorf("apply subscription %s: %w", name, err)
	}

	notify.Activityf(m.writer, "subscription %s/%s %s", sub.Namespace, name, result.Action)

	return nil
}

// ApprovePendingInstallPlans approves unapproved install plans in namespace
// that install a CSV starting with csvPrefix, and returns how many it approved.
func (m *Manager) ApprovePendingInstallPlans(ctx context.Context, namespace, csvPrefix string) (int, error) {
	resource := m.dyn.Resource(k8s.InstallPlanGVR).Namespace(namespace)

	plans, err := resource.List(ctx, metav1.ListOptions{})
	if err != nil {
		return 0, fmt.Errorf("list install plans in %s: %w", namespace, err)
	}

	approved := 0

	for i := range plans.Items {
		plan := &plans.Items[i]

		isApproved, _, _ := unstructured.NestedBool(plan.Object, "spec", "approved")
		if isApproved {
			continue
		}

		csvNames, _, _ := unstructured.NestedStringSlice(plan.Object, "spec", "clusterServiceVersionNames")
		if !slices.ContainsFunc(csvNames, func(name string) bool { return strings.HasPrefix(name, csvPrefix) }) {
			continue
		}

		err = unstructured.SetNestedField(plan.Object, true, "spec", "approved")
		if err != nil {
			return approved, fmt.Errorf("approve install plan %s: %w", plan.GetName(), err)
		}

		err = readiness.Retry(ctx, apply.DefaultRetryTimeout, func(ctx context.Context) error {
			_, updateErr := resource.Update(ctx, plan, metav1.UpdateOptions{FieldManager: k8s.FieldManager})

			return updateErr
		})
		if err != nil {
			return approved, fmt.Errorf("approve install plan %s: %w", plan.GetName(), err)
		}

		notify.Activityf(m.writer, "approved install plan %s (%s)", plan.GetName(), strings.Join(csvNames, ", "))

		approved++
	}

	return approved, nil
}

// WaitForOperator waits for the operator's CSV to reach Succeeded and returns its name.
func (m *Manager) WaitForOperator(
	ctx context.Context,
	namespace, csvPrefix string,
	timeout time.Duration,
) (string, error) {
	csv, err := readiness.WaitForCSVSucceeded(ctx, m.dyn, namespace, csvPrefix, timeout)
	if err != nil {
		return "", fmt.Errorf("operator %s: %w", csvPrefix, err)
	}

	return csv, nil
}

// InstalledCSV returns the name of the Succeeded CSV with csvPrefix, if any.
func (m *Manager) InstalledCSV(ctx context.Context, namespace, csvPrefix string) (string, bool, error) {
	list, err := m.dyn.Resource(k8s.ClusterServiceVersionGVR).Namespace(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("list CSVs in %s: %w", namespace, err)
	}

	name, found := readiness.FindSucceededCSV(list.Items, csvPrefix)

	return name, found, nil
}

// Uninstall deletes the Subscription and the CSVs matching csvPrefix.
func (m *Manager) Uninstall(ctx context.Context, sub Subscription, csvPrefix string) error {
	name := sub.Name
	if name == "" {
		name = sub.Package
	}

	err := m.applier.Delete(ctx, newObject("operators.coreos.com/v1alpha1", "Subscription", sub.Namespace, name))
	if err != nil {
		return fmt.Errorf("delete subscription %s: %w", name, err)
	}

	resource := m.dyn.Resource(k8s.ClusterServiceVersionGVR).Namespace(sub.Namespace)

	list, err := resource.List(ctx, metav1.ListOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil
		}

		return fmt.Errorf("list CSVs in %s: %w", sub.Namespace, err)
	}

	for i := range list.Items {
		csv := &list.Items[i]
		if !strings.HasPrefix(csv.GetName(), csvPrefix) {
			continue
		}

		err = resource.Delete(ctx, csv.GetName(), metav1.DeleteOptions{})
		if err != nil && !apierrors.IsNotFound(err) {
			return fmt.Errorf("delete CSV %s: %w", csv.GetName(), err)
		}
	}

	return nil
}

func newObject(apiVersion, kind, namespace, name string) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{Object: map[string]any{}}
	obj.SetAPIVersion(apiVersion)
	obj.SetKind(kind)
	obj.SetNamespace(namespace)
	obj.SetName(name)

	return obj
}
