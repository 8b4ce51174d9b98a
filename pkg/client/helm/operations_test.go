package helm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opendatahub-io/maasctl/pkg/client/helm"
	"github.com/opendatahub-io/maasctl/pkg/client/helm/helmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errRepositoryConnection = errors.New("failed to connect to repository")
	errChartInvalid         = errors.New("chart is invalid")
	errBadGateway           = errors.New("upstream returned 502 Bad Gateway")
)

var (
	certManagerRepo  = helm.RepoConfig{Name: "jetstack", URL: "https://charts.jetstack.io"}
	certManagerChart = helm.ChartConfig{
		ReleaseName:     "cert-manager",
		ChartName:       "jetstack/cert-manager",
		Namespace:       "cert-manager",
		CreateNamespace: true,
		SetValues:       map[string]string{"crds.enabled": "true"},
	}
)

func TestInstallOrUpgradeChart(t *testing.T) {
	t.Parallel()

	client := &helmtest.Fake{}

	err := helm.InstallOrUpgradeChart(context.Background(), client, certManagerRepo, certManagerChart, time.Minute)
	require.NoError(t, err)

	require.Len(t, client.Repos, 1)
	assert.Equal(t, "jetstack", client.Repos[0].Name)

	require.Len(t, client.Specs, 1)

	spec := client.Specs[0]
	assert.Equal(t, "cert-manager", spec.ReleaseName)
	assert.Equal(t, "https://charts.jetstack.io", spec.RepoURL)
	assert.True(t, spec.CreateNamespace)
	assert.True(t, spec.Wait)
	assert.True(t, spec.UpgradeCRDs)
	assert.Equal(t, "true", spec.SetValues["crds.enabled"])
}

func TestInstallOrUpgradeChartAddRepositoryError(t *testing.T) {
	t.Parallel()

	client := &helmtest.Fake{AddErr: errRepositoryConnection}

	err := helm.InstallOrUpgradeChart(context.Background(), client, certManagerRepo, certManagerChart, time.Minute)
	require.ErrorIs(t, err, errRepositoryConnection)
	assert.Contains(t, err.Error(), "failed to add jetstack repository")
	assert.Empty(t, client.Specs)
}

func TestInstallChartWithRetryStopsOnPermanentError(t *testing.T) {
	t.Parallel()

	client := &helmtest.Fake{InstallErrs: []error{errChartInvalid}}

	err := helm.InstallChartWithRetry(context.Background(), client, &helm.ChartSpec{ChartName: "kuadrant-operator"})
	require.ErrorIs(t, err, errChartInvalid)
	assert.Contains(t, err.Error(), "failed to install kuadrant-operator chart")
	assert.Len(t, client.Specs, 1)
}

func TestInstallChartWithRetryCancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	client := &helmtest.Fake{InstallErrs: []error{errBadGateway, errBadGateway}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := helm.InstallChartWithRetry(ctx, client, &helm.ChartSpec{ChartName: "kuadrant-operator"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, client.Specs, 1)
}

func TestParseChartRef(t *testing.T) {
	t.Parallel()

	repo, chart := helm.ParseChartRef("kuadrant/kuadrant-operator")
	assert.Equal(t, "kuadrant", repo)
	assert.Equal(t, "kuadrant-operator", chart)

	repo, chart = helm.ParseChartRef("cert-manager")
	assert.Empty(t, repo)
	assert.Equal(t, "cert-manager", chart)
}
