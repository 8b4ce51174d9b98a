package helm

import (
	"context"
	"fmt"
	"time"

	"github.com/opendatahub-io/maasctl/pkg/client/netretry"
)

const (
	// ContextTimeoutBuffer keeps the Go context alive while Helm's own
	// kstatus wait is still running.
	ContextTimeoutBuffer = 5 * time.Minute

	chartInstallMaxRetries    = 5
	chartInstallRetryBaseWait = 3 * time.Second
	chartInstallRetryMaxWait  = 30 * time.Second
)

// RepoConfig names a chart repository.
type RepoConfig struct {
	Name string
	URL  string
}

// ChartConfig describes a chart release from RepoConfig.
type ChartConfig struct {
	ReleaseName     string
	ChartName       string
	Namespace       string
	Version         string
	CreateNamespace bool
	SkipWait        bool
	SetValues       map[string]string
}

// InstallOrUpgradeChart adds the repository and installs or upgrades the
// release, retrying transient registry failures.
func InstallOrUpgradeChart(
	ctx context.Context,
	client Interface,
	repoConfig RepoConfig,
	chartConfig ChartConfig,
	timeout time.Duration,
) error {
	err := client.AddRepository(ctx, &RepositoryEntry{Name: repoConfig.Name, URL: repoConfig.URL})
	if err != nil {
		return fmt.Errorf("failed to add %s repository: %w", repoConfig.Name, err)
	}

	spec := &ChartSpec{
		ReleaseName:     chartConfig.ReleaseName,
		ChartName:       chartConfig.ChartName,
		Namespace:       chartConfig.Namespace,
		Version:         chartConfig.Version,
		RepoURL:         repoConfig.URL,
		CreateNamespace: chartConfig.CreateNamespace,
		UpgradeCRDs:     true,
		Timeout:         timeout,
		Wait:            !chartConfig.SkipWait,
		WaitForJobs:     !chartConfig.SkipWait,
		SetValues:       chartConfig.SetValues,
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout+ContextTimeoutBuffer)
	defer cancel()

	return InstallChartWithRetry(timeoutCtx, client, spec)
}

// InstallChartWithRetry retries InstallOrUpgradeChart on transient network errors.
func InstallChartWithRetry(ctx context.Context, client Interface, spec *ChartSpec) error {
	var lastErr error

	for attempt := 1; attempt <= chartInstallMaxRetries; attempt++ {
		_, lastErr = client.InstallOrUpgradeChart(ctx, spec)
		if lastErr == nil {
			return nil
		}

		if !netretry.IsRetryable(lastErr) || attempt == chartInstallMaxRetries {
			break
		}

		timer := time.NewTimer(netretry.ExponentialDelay(attempt, chartInstallRetryBaseWait, chartInstallRetryMaxWait))
		select {
		case <-ctx.Done():
			timer.Stop()

			return fmt.Errorf("chart install retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("failed to install %s chart: %w", spec.ChartName, lastErr)
}
