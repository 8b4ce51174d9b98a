package apply

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/k8s/readiness"
	"github.com/opendatahub-io/maasctl/pkg/log"
	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/dynamic"
)

// DefaultRetryTimeout bounds the retries of a single object write.
const DefaultRetryTimeout = 30 * time.Second

var (
	// ErrMissingTypeInfo is returned for documents without apiVersion or kind.
	ErrMissingTypeInfo = errors.New("manifest is missing apiVersion or kind")
	// ErrNoNamespace is returned for namespaced objects without a namespace.
	ErrNoNamespace = errors.New("namespaced object has no namespace")
)

// Action is what Apply did to an object.
type Action string

const (
	// Created means the object did not exist.
	Created Action = "created"
	// Updated means the object existed and differed.
	Updated Action = "updated"
	// Unchanged means the object already matched.
	Unchanged Action = "unchanged"
)

// Result describes one applied object.
type Result struct {
	Kind      string
	Namespace string
	Name      string
	Action    Action
}

func (r Result) String() string {
	if r.Namespace == "" {
		return fmt.Sprintf("%s %s %s", r.Kind, r.Name, r.Action)
	}

	return fmt.Sprintf("%s %s/%s %s", r.Kind, r.Namespace, r.Name, r.Action)
}

// Applier creates or updates objects through the dynamic client.
type Applier struct {
	dynamic      dynamic.Interface
	mapper       meta.RESTMapper
	retryTimeout time.Duration
}

// NewApplier creates an Applier.
func NewApplier(dyn dynamic.Interface, mapper meta.RESTMapper) *Applier {
	return &Applier{dynamic: dyn, mapper: mapper, retryTimeout: DefaultRetryTimeout}
}

// WithRetryTimeout overrides the per-object retry budget.
func (a *Applier) WithRetryTimeout(timeout time.Duration) *Applier {
	a.retryTimeout = timeout

	return a
}

// ApplyObjects applies objects in order, retrying transient API errors.
func (a *Applier) ApplyObjects(ctx context.Context, objects []*unstructured.Unstructured) ([]Result, error) {
	results := make([]Result, 0, len(objects))

	for _, obj := range objects {
		var result Result

		err := readiness.Retry(ctx, a.retryTimeout, func(ctx context.Context) error {
			var applyErr error

			result, applyErr = a.Apply(ctx, obj)

			return applyErr
		})
		if err != nil {
			return results, err
		}

		results = append(results, result)
	}

	return results, nil
}

// Apply creates obj, or updates the live object when the desired fields differ.
func (a *Applier) Apply(ctx context.Context, obj *unstructured.Unstructured) (Result, error) {
	resource, err := a.resourceFor(obj)
	if err != nil {
		return Result{}, err
	}

	result := Result{Kind: obj.GetKind(), Namespace: obj.GetNamespace(), Name: obj.GetName()}

	live, err := resource.Get(ctx, obj.GetName(), metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		_, err = resource.Create(ctx, obj, metav1.CreateOptions{FieldManager: k8s.FieldManager})
		if err != nil {
			return result, fmt.Errorf("create %s: %w", describe(obj), err)
		}

		result.Action = Created
		log.Debug(ctx, "applied object", zap.Stringer("result", result))

		return result, nil
	}

	if err != nil {
		return result, fmt.Errorf("get %s: %w", describe(obj), err)
	}

	if isApplied(live, obj) {
		result.Action = Unchanged

		return result, nil
	}

	merged := mergeInto(live, obj)

	_, err = resource.Update(ctx, merged, metav1.UpdateOptions{FieldManager: k8s.FieldManager})
	if err != nil {
		return result, fmt.Errorf("update %s: %w", describe(obj), err)
	}

	result.Action = Updated
	log.Debug(ctx, "applied object", zap.Stringer("result", result))

	return result, nil
}

// Delete removes obj. Missing objects and unknown kinds are not errors.
func (a *Applier) Delete(ctx context.Context, obj *unstructured.Unstructured) error {
	resource, err := a.resourceFor(obj)
	if meta.IsNoMatchError(err) {
		return nil
	}

	if err != nil {
		return err
	}

	propagation := metav1.DeletePropagationBackground

	err = resource.Delete(ctx, obj.GetName(), metav1.DeleteOptions{PropagationPolicy: &propagation})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("delete %s: %w", describe(obj), err)
	}

	return nil
}

func (a *Applier) resourceFor(obj *unstructured.Unstructured) (dynamic.ResourceInterface, error) {
	gvk := obj.GroupVersionKind()

	mapping, err := a.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if err != nil {
		return nil, fmt.Errorf("map %s: %w", gvk.String(), err)
	}

	if mapping.Scope.Name() != meta.RESTScopeNameNamespace {
		return a.dynamic.Resource(mapping.Resource), nil
	}

	if obj.GetNamespace() == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoNamespace, describe(obj))
	}

	return a.dynamic.Resource(mapping.Resource).Namespace(obj.GetNamespace()), nil
}

// mergeInto overlays the desired top-level fields, labels and annotations on
// a copy of live, keeping server-owned metadata and status.
func mergeInto(live, desired *unstructured.Unstructured) *unstructured.Unstructured {
	merged := live.DeepCopy()

	for key, value := range desired.Object {
		if key == "metadata" || key == "status" {
			continue
		}

		merged.Object[key] = value
	}

	if labels := desired.GetLabels(); len(labels) > 0 {
		mergedLabels := merged.GetLabels()
		if mergedLabels == nil {
			mergedLabels = map[string]string{}
		}

		maps.Copy(mergedLabels, labels)
		merged.SetLabels(mergedLabels)
	}

	if annotations := desired.GetAnnotations(); len(annotations) > 0 {
		mergedAnnotations := merged.GetAnnotations()
		if mergedAnnotations == nil {
			mergedAnnotations = map[string]string{}
		}

		maps.Copy(mergedAnnotations, annotations)
		merged.SetAnnotations(mergedAnnotations)
	}

	return merged
}

// isApplied reports whether every desired field already holds in live.
// Fields the API server defaulted are ignored.
func isApplied(live, desired *unstructured.Unstructured) bool {
	for key, value := range desired.Object {
		if key == "metadata" || key == "status" {
			continue
		}

		if !isSubset(value, live.Object[key]) {
			return false
		}
	}

	return isStringSubset(desired.GetLabels(), live.GetLabels()) &&
		isStringSubset(desired.GetAnnotations(), live.GetAnnotations())
}

func isSubset(desired, live any) bool {
	switch want := desired.(type) {
	case map[string]any:
		got, ok := live.(map[string]any)
		if !ok {
			return false
		}

		for key, value := range want {
			if !isSubset(value, got[key]) {
				return false
			}
		}

		return true
	case []any:
		got, ok := live.([]any)
		if !ok || len(got) != len(want) {
			return false
		}

		for i := range want {
			if !isSubset(want[i], got[i]) {
				return false
			}
		}

		return true
	default:
		return equality.Semantic.DeepEqual(desired, live)
	}
}

func isStringSubset(desired, live map[string]string) bool {
	for key, value := range desired {
		if got, ok := live[key]; !ok || got != value {
			return false
		}
	}

	return true
}

func describe(obj *unstructured.Unstructured) string {
	if obj.GetNamespace() == "" {
		return fmt.Sprintf("%s %s", obj.GetKind(), obj.GetName())
	}

	return fmt.Sprintf("%s %s/%s", obj.GetKind(), obj.GetNamespace(), obj.GetName())
}
