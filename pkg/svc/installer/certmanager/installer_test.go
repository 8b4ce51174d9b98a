package certmanagerinstaller_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/opendatahub-io/maasctl/pkg/apis/platform/v1alpha1"
	"github.com/opendatahub-io/maasctl/pkg/client/apply"
	"github.com/opendatahub-io/maasctl/pkg/client/helm/helmtest"
	"github.com/opendatahub-io/maasctl/pkg/k8s/k8stest"
	"github.com/opendatahub-io/maasctl/pkg/svc/installer"
	certmanagerinstaller "github.com/opendatahub-io/maasctl/pkg/svc/installer/certmanager"
	"github.com/opendatahub-io/maasctl/pkg/svc/installer/internal/component"
	"github.com/opendatahub-io/maasctl/pkg/svc/olm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDeps(helmClient *helmtest.Fake) (installer.Deps, *bytes.Buffer) {
	fakes := k8stest.NewClients()
	applier := apply.NewApplier(fakes.Dynamic, fakes.Mapper).WithRetryTimeout(50 * time.Millisecond)

	var out bytes.Buffer

	deps := installer.Deps{
		Kube:         fakes.Kube,
		Dynamic:      fakes.Dynamic,
		APIExt:       fakes.APIExt,
		Applier:      applier,
		OLM:          olm.NewManager(fakes.Dynamic, applier, &out),
		Writer:       &out,
		Timeout:      50 * time.Millisecond,
		Distribution: v1alpha1.DistributionKubernetes,
	}
	if helmClient != nil {
		deps.Helm = helmClient
	}

	return deps, &out
}

func TestInstallOnKubernetesUsesJetstackChart(t *testing.T) {
	t.Parallel()

	helmClient := &helmtest.Fake{}
	deps, out := newDeps(helmClient)

	err := certmanagerinstaller.NewCertManagerInstaller(deps, "").Install(context.Background())
	require.NoError(t, err)

	require.Len(t, helmClient.Specs, 1)
	spec := helmClient.Specs[0]
	assert.Equal(t, "jetstack/cert-manager", spec.ChartName)
	assert.Equal(t, certmanagerinstaller.Namespace, spec.Namespace)
	assert.Equal(t, "true", spec.SetValues["crds.enabled"])
	assert.Equal(t, "https://charts.jetstack.io", helmClient.Repos[0].URL)

	assert.Contains(t, out.String(), "cert-manager operator installed (helm release cert-manager)")
	assert.Contains(t, out.String(), "cert-manager workloads not ready")
}

func TestInstallWithoutHelmFails(t *testing.T) {
	t.Parallel()

	deps, _ := newDeps(nil)

	err := certmanagerinstaller.NewCertManagerInstaller(deps, "").Install(context.Background())
	require.ErrorIs(t, err, component.ErrHelmUnavailable)
}

func TestUninstallRemovesRelease(t *testing.T) {
	t.Parallel()

	helmClient := &helmtest.Fake{}
	deps, _ := newDeps(helmClient)

	require.NoError(t, certmanagerinstaller.NewCertManagerInstaller(deps, "").Uninstall(context.Background()))
	assert.Equal(t, []string{"cert-manager/cert-manager"}, helmClient.Uninstalled)
}
