// Package helmtest provides an in-memory helm.Interface for tests.
package helmtest

import (
	"context"
	"sync"

	"github.com/opendatahub-io/maasctl/pkg/client/helm"
)

// Fake records every call. InstallErrs are returned one per install call,
// in order; a nil entry succeeds.
type Fake struct {
	mu sync.Mutex

	Repos       []*helm.RepositoryEntry
	Specs       []*helm.ChartSpec
	Uninstalled []string

	AddErr       error
	InstallErrs  []error
	UninstallErr error
}

var _ helm.Interface = (*Fake)(nil)

// InstallOrUpgradeChart implements helm.Interface.
func (f *Fake) InstallOrUpgradeChart(_ context.Context, spec *helm.ChartSpec) (*helm.ReleaseInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Specs = append(f.Specs, spec)

	if len(f.InstallErrs) > 0 {
		err := f.InstallErrs[0]
		f.InstallErrs = f.InstallErrs[1:]

		if err != nil {
			return nil, err
		}
	}

	return &helm.ReleaseInfo{Name: spec.ReleaseName, Namespace: spec.Namespace, Status: "deployed"}, nil
}

// UninstallRelease implements helm.Interface.
func (f *Fake) UninstallRelease(_ context.Context, releaseName, namespace string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Uninstalled = append(f.Uninstalled, namespace+"/"+releaseName)

	return f.UninstallErr
}

// AddRepository implements helm.Interface.
func (f *Fake) AddRepository(_ context.Context, entry *helm.RepositoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Repos = append(f.Repos, entry)

	return f.AddErr
}

// Releases returns the release names installed so far.
func (f *Fake) Releases() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	names := make([]string, 0, len(f.Specs))
	for _, spec := range f.Specs {
		names = append(names, spec.ReleaseName)
	}

	return names
}
