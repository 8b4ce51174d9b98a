// Package manifests renders the embedded kustomize bases into objects ready
// for the applier, optionally validating them with kubeconform first.
package manifests

import (
	"context"
	"fmt"

	"github.com/opendatahub-io/maasctl/deploy"
	"github.com/opendatahub-io/maasctl/pkg/client/apply"
	"github.com/opendatahub-io/maasctl/pkg/client/kubeconform"
	"github.com/opendatahub-io/maasctl/pkg/client/kustomize"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Validator checks rendered manifests before they are applied.
type Validator interface {
	ValidateBytes(ctx context.Context, manifests []byte, opts *kubeconform.ValidationOptions) error
}

// Renderer builds the embedded bases.
type Renderer struct {
	kustomize *kustomize.Client
	validator Validator
}

// NewRenderer creates a Renderer over deploy.FS.
func NewRenderer() (*Renderer, error) {
	client, err := kustomize.NewClientFromFS(deploy.FS)
	if err != nil {
		return nil, fmt.Errorf("load embedded manifests: %w", err)
	}

	return &Renderer{kustomize: client}, nil
}

// WithValidator validates every rendered base with validator.
func (r *Renderer) WithValidator(validator Validator) *Renderer {
	r.validator = validator

	return r
}

// Render builds dir with overlay and decodes the result.
func (r *Renderer) Render(ctx context.Context, dir string, overlay kustomize.Overlay) ([]*unstructured.Unstructured, error) {
	out, err := r.kustomize.BuildWithOverlay(ctx, dir, overlay)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", dir, err)
	}

	if r.validator != nil {
		err = r.validator.ValidateBytes(ctx, out.Bytes(), &kubeconform.ValidationOptions{
			IgnoreMissingSchemas: true,
		})
		if err != nil {
			return nil, fmt.Errorf("validate %s: %w", dir, err)
		}
	}

	objects, err := apply.Decode(out.Bytes())
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", dir, err)
	}

	return objects, nil
}

// Find returns the first object of kind named name.
func Find(objects []*unstructured.Unstructured, kind, name string) *unstructured.Unstructured {
	for _, obj := range objects {
		if obj.GetKind() == kind && obj.GetName() == name {
			return obj
		}
	}

	return nil
}
