package kustomize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"sigs.k8s.io/kustomize/api/krusty"
	ktypes "sigs.k8s.io/kustomize/api/types"
	"sigs.k8s.io/kustomize/kyaml/filesys"
	"sigs.k8s.io/yaml"
)

const (
	overlayBaseDir = "/maasctl-overlay/base"
	overlayDir     = "/maasctl-overlay/overlay"
	overlayBase    = "resources.yaml"
)

var errEmptyBuild = errors.New("kustomize build produced no resources")

// Overlay rewrites a rendered base the way a one-off kustomization would.
type Overlay struct {
	// Namespace replaces the namespace of every namespaced resource.
	Namespace string
	// Images maps an image name to its replacement "newName[:newTag]".
	Images map[string]ktypes.Image
	// Labels are added to every resource without touching selectors.
	Labels map[string]string
}

// Client renders kustomizations in-process with krusty.
type Client struct {
	fSys filesys.FileSystem
}

// NewClient creates a client reading kustomizations from disk.
func NewClient() *Client {
	return &Client{fSys: filesys.MakeFsOnDisk()}
}

// NewClientFromFS creates a client over a copy of src, typically an
// embed.FS holding the bundled manifests.
func NewClientFromFS(src fs.FS) (*Client, error) {
	memFS := filesys.MakeFsInMemory()

	err := fs.WalkDir(src, ".", func(name string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		target := path.Join("/", name)

		if entry.IsDir() {
			return memFS.MkdirAll(target)
		}

		data, err := fs.ReadFile(src, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}

		return memFS.WriteFile(target, data)
	})
	if err != nil {
		return nil, fmt.Errorf("copy manifests: %w", err)
	}

	return &Client{fSys: memFS}, nil
}

// Build renders the kustomization at dir.
func (c *Client) Build(ctx context.Context, dir string) (*bytes.Buffer, error) {
	return build(ctx, c.fSys, dir)
}

// BuildWithOverlay renders dir and then applies overlay on top of the result.
func (c *Client) BuildWithOverlay(ctx context.Context, dir string, overlay Overlay) (*bytes.Buffer, error) {
	base, err := c.Build(ctx, dir)
	if err != nil {
		return nil, err
	}

	memFS := filesys.MakeFsInMemory()

	err = memFS.MkdirAll(overlayBaseDir)
	if err != nil {
		return nil, fmt.Errorf("create overlay base: %w", err)
	}

	err = memFS.WriteFile(path.Join(overlayBaseDir, overlayBase), base.Bytes())
	if err != nil {
		return nil, fmt.Errorf("write overlay base: %w", err)
	}

	kustomization := overlay.kustomization()

	data, err := yaml.Marshal(kustomization)
	if err != nil {
		return nil, fmt.Errorf("marshal overlay kustomization: %w", err)
	}

	err = memFS.MkdirAll(overlayDir)
	if err != nil {
		return nil, fmt.Errorf("create overlay: %w", err)
	}

	err = memFS.WriteFile(path.Join(overlayDir, "kustomization.yaml"), data)
	if err != nil {
		return nil, fmt.Errorf("write overlay kustomization: %w", err)
	}

	return build(ctx, memFS, overlayDir)
}

func (o Overlay) kustomization() *ktypes.Kustomization {
	kustomization := &ktypes.Kustomization{
		TypeMeta: ktypes.TypeMeta{
			APIVersion: ktypes.KustomizationVersion,
			Kind:       ktypes.KustomizationKind,
		},
		Namespace: o.Namespace,
		Resources: []string{path.Join("..", "base", overlayBase)},
	}

	for name, image := range o.Images {
		image.Name = name
		kustomization.Images = append(kustomization.Images, image)
	}

	if len(o.Labels) > 0 {
		kustomization.Labels = []ktypes.Label{{Pairs: o.Labels}}
	}

	return kustomization
}

func build(ctx context.Context, fSys filesys.FileSystem, dir string) (*bytes.Buffer, error) {
	ctxErr := ctx.Err()
	if ctxErr != nil {
		return nil, fmt.Errorf("kustomize build %s: %w", dir, ctxErr)
	}

	opts := krusty.MakeDefaultOptions()
	opts.LoadRestrictions = ktypes.LoadRestrictionsNone

	resMap, err := krusty.MakeKustomizer(opts).Run(fSys, dir)
	if err != nil {
		return nil, fmt.Errorf("kustomize build %s: %w", dir, err)
	}

	if resMap.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", errEmptyBuild, dir)
	}

	out, err := resMap.AsYaml()
	if err != nil {
		return nil, fmt.Errorf("kustomize build %s: encode: %w", dir, err)
	}

	return bytes.NewBuffer(out), nil
}
