package kubeconform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yannh/kubeconform/pkg/validator"
)

// CRDsCatalogLocation serves JSON schemas for popular CRDs, including the
// Kuadrant, Gateway API and OLM kinds maasctl renders.
const CRDsCatalogLocation = "https://raw.githubusercontent.com/datreeio/CRDs-catalog/main/" +
	"{{.Group}}/{{.ResourceKind}}_{{.ResourceAPIVersion}}.json"

// ErrInvalidManifests is returned when at least one resource fails validation.
var ErrInvalidManifests = errors.New("manifests failed schema validation")

// ValidationOptions configures validation behavior.
type ValidationOptions struct {
	// SkipKinds lists kinds that are not validated (e.g. "Secret").
	SkipKinds []string
	// Strict rejects unknown fields.
	Strict bool
	// IgnoreMissingSchemas skips resources whose schema cannot be found.
	IgnoreMissingSchemas bool
	// KubernetesVersion selects the schema version; defaults to master.
	KubernetesVersion string
}

// Client validates rendered manifests against Kubernetes and CRD schemas.
type Client struct {
	schemaLocations []string
	cache           string
}

// NewClient creates a client using the upstream Kubernetes schemas and the
// CRDs catalog.
func NewClient() *Client {
	return &Client{schemaLocations: []string{"default", CRDsCatalogLocation}}
}

// NewClientWithSchemaLocations creates a client with custom schema locations.
// Each location is a kubeconform template or a local directory.
func NewClientWithSchemaLocations(cache string, locations ...string) *Client {
	return &Client{schemaLocations: locations, cache: cache}
}

// ValidateManifests validates the multi-document YAML read from reader,
// typically kustomize build output.
func (c *Client) ValidateManifests(ctx context.Context, reader io.Reader, opts *ValidationOptions) error {
	if opts == nil {
		opts = &ValidationOptions{}
	}

	ctxErr := ctx.Err()
	if ctxErr != nil {
		return fmt.Errorf("validate manifests: %w", ctxErr)
	}

	skipKinds := make(map[string]struct{}, len(opts.SkipKinds))
	for _, kind := range opts.SkipKinds {
		skipKinds[kind] = struct{}{}
	}

	kubernetesVersion := opts.KubernetesVersion
	if kubernetesVersion == "" {
		kubernetesVersion = "master"
	}

	v, err := validator.New(c.schemaLocations, validator.Opts{
		Cache:                c.cache,
		SkipKinds:            skipKinds,
		RejectKinds:          map[string]struct{}{},
		KubernetesVersion:    kubernetesVersion,
		Strict:               opts.Strict,
		IgnoreMissingSchemas: opts.IgnoreMissingSchemas,
	})
	if err != nil {
		return fmt.Errorf("create validator: %w", err)
	}

	var failures []string

	for _, res := range v.Validate("manifests", io.NopCloser(reader)) {
		switch res.Status {
		case validator.Invalid, validator.Error:
			failures = append(failures, describeResult(res))
		case validator.Valid, validator.Skipped, validator.Empty:
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("%w:\n%s", ErrInvalidManifests, strings.Join(failures, "\n"))
	}

	return nil
}

// ValidateBytes is ValidateManifests over an in-memory document stream.
func (c *Client) ValidateBytes(ctx context.Context, manifests []byte, opts *ValidationOptions) error {
	return c.ValidateManifests(ctx, bytes.NewReader(manifests), opts)
}

func describeResult(res validator.Result) string {
	name := "resource"

	sig, err := res.Resource.Signature()
	if err == nil && sig != nil {
		name = fmt.Sprintf("%s %s", sig.Kind, sig.Name)
		if sig.Namespace != "" {
			name = fmt.Sprintf("%s %s/%s", sig.Kind, sig.Namespace, sig.Name)
		}
	}

	if len(res.ValidationErrors) == 0 {
		return fmt.Sprintf("  %s: %v", name, res.Err)
	}

	msgs := make([]string, 0, len(res.ValidationErrors))
	for _, validationErr := range res.ValidationErrors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", validationErr.Path, validationErr.Msg))
	}

	return fmt.Sprintf("  %s: %s", name, strings.Join(msgs, "; "))
}
