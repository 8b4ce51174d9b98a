package helm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	helmv4action "helm.sh/helm/v4/pkg/action"
	helmv4loader "helm.sh/helm/v4/pkg/chart/loader"
	chartv2 "helm.sh/helm/v4/pkg/chart/v2"
	helmv4cli "helm.sh/helm/v4/pkg/cli"
	helmv4getter "helm.sh/helm/v4/pkg/getter"
	helmv4kube "helm.sh/helm/v4/pkg/kube"
	v1 "helm.sh/helm/v4/pkg/release/v1"
	repov1 "helm.sh/helm/v4/pkg/repo/v1"
	"helm.sh/helm/v4/pkg/storage/driver"
)

// DefaultTimeout defines the fallback Helm chart installation timeout.
const DefaultTimeout = 5 * time.Minute

var (
	errReleaseNameRequired = errors.New("helm: release name is required")
	errChartSpecRequired   = errors.New("helm: chart spec is required")
	errUnexpectedRelease   = errors.New("helm: unexpected release type")
	errUnexpectedChart     = errors.New("helm: unexpected chart type")
)

// ChartSpec describes a chart release. On plain Kubernetes clusters the
// cert-manager and Kuadrant operators are installed this way.
type ChartSpec struct {
	ReleaseName string
	ChartName   string
	Namespace   string
	Version     string
	RepoURL     string

	CreateNamespace bool
	Wait            bool
	WaitForJobs     bool
	UpgradeCRDs     bool
	Timeout         time.Duration

	ValuesYaml  string
	SetValues   map[string]string
	SetJSONVals map[string]string
}

// RepositoryEntry describes a Helm repository that should be added locally
// before performing chart operations.
type RepositoryEntry struct {
	Name string
	URL  string
}

// ReleaseInfo captures metadata about a Helm release after an operation.
type ReleaseInfo struct {
	Name       string
	Namespace  string
	Revision   int
	Status     string
	Chart      string
	AppVersion string
	Updated    time.Time
}

// Interface defines the subset of Helm functionality maasctl needs.
type Interface interface {
	InstallOrUpgradeChart(ctx context.Context, spec *ChartSpec) (*ReleaseInfo, error)
	UninstallRelease(ctx context.Context, releaseName, namespace string) error
	AddRepository(ctx context.Context, entry *RepositoryEntry) error
}

// Client is the helm.sh/helm/v4 backed Interface implementation.
type Client struct {
	actionConfig *helmv4action.Configuration
	settings     *helmv4cli.EnvSettings
}

var _ Interface = (*Client)(nil)

// NewClient creates a Helm client using the provided kubeconfig and context.
func NewClient(kubeConfig, kubeContext string) (*Client, error) {
	settings := helmv4cli.New()
	if kubeConfig != "" {
		settings.KubeConfig = kubeConfig
	}

	if kubeContext != "" {
		settings.KubeContext = kubeContext
	}

	actionConfig := new(helmv4action.Configuration)

	err := actionConfig.Init(settings.RESTClientGetter(), settings.Namespace(), os.Getenv("HELM_DRIVER"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize helm action config: %w", err)
	}

	return &Client{actionConfig: actionConfig, settings: settings}, nil
}

// InstallOrUpgradeChart upgrades a release when present and installs it otherwise.
func (c *Client) InstallOrUpgradeChart(ctx context.Context, spec *ChartSpec) (*ReleaseInfo, error) {
	if spec == nil {
		return nil, errChartSpecRequired
	}

	if spec.ReleaseName == "" {
		return nil, errReleaseNameRequired
	}

	cleanup, err := c.switchNamespace(spec.Namespace)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	history := helmv4action.NewHistory(c.actionConfig)
	history.Max = 1

	var rel *v1.Release

	releases, histErr := history.Run(spec.ReleaseName)
	if histErr == nil && len(releases) > 0 {
		rel, err = c.upgradeRelease(ctx, spec)
	} else {
		rel, err = c.performInstall(ctx, spec)
	}

	if err != nil {
		return nil, err
	}

	return releaseToInfo(rel), nil
}

// UninstallRelease removes a Helm release. A release that does not exist is
// not an error.
func (c *Client) UninstallRelease(ctx context.Context, releaseName, namespace string) error {
	if releaseName == "" {
		return errReleaseNameRequired
	}

	ctxErr := ctx.Err()
	if ctxErr != nil {
		return fmt.Errorf("uninstall release context cancelled: %w", ctxErr)
	}

	cleanup, err := c.switchNamespace(namespace)
	if err != nil {
		return err
	}
	defer cleanup()

	client := helmv4action.NewUninstall(c.actionConfig)
	client.KeepHistory = false

	_, err = client.Run(releaseName)
	if err != nil {
		if errors.Is(err, driver.ErrReleaseNotFound) || strings.Contains(err.Error(), "not found") {
			return nil
		}

		return fmt.Errorf("uninstall release %q: %w", releaseName, err)
	}

	return nil
}

func (c *Client) performInstall(ctx context.Context, spec *ChartSpec) (*v1.Release, error) {
	client := helmv4action.NewInstall(c.actionConfig)
	client.ReleaseName = spec.ReleaseName
	client.Namespace = spec.Namespace
	client.CreateNamespace = spec.CreateNamespace
	client.Version = spec.Version
	client.WaitForJobs = spec.WaitForJobs
	client.Timeout = timeoutOrDefault(spec.Timeout)

	if spec.Wait {
		client.WaitStrategy = helmv4kube.StatusWatcherStrategy
	}

	if spec.RepoURL != "" {
		client.ChartPathOptions.RepoURL = spec.RepoURL
	}

	chart, err := c.locateAndLoadChart(spec)
	if err != nil {
		return nil, err
	}

	vals, err := mergeValues(spec)
	if err != nil {
		return nil, err
	}

	releaser, err := client.RunWithContext(ctx, chart, vals)
	if err != nil {
		return nil, fmt.Errorf("install release %q: %w", spec.ReleaseName, err)
	}

	rel, ok := releaser.(*v1.Release)
	if !ok {
		return nil, fmt.Errorf("%w: %T", errUnexpectedRelease, releaser)
	}

	return rel, nil
}

func (c *Client) upgradeRelease(ctx context.Context, spec *ChartSpec) (*v1.Release, error) {
	client := helmv4action.NewUpgrade(c.actionConfig)
	client.Namespace = spec.Namespace
	client.Version = spec.Version
	client.WaitForJobs = spec.WaitForJobs
	client.Timeout = timeoutOrDefault(spec.Timeout)
	client.SkipCRDs = !spec.UpgradeCRDs

	if spec.Wait {
		client.WaitStrategy = helmv4kube.StatusWatcherStrategy
	}

	if spec.RepoURL != "" {
		client.ChartPathOptions.RepoURL = spec.RepoURL
	}

	chart, err := c.locateAndLoadChart(spec)
	if err != nil {
		return nil, err
	}

	vals, err := mergeValues(spec)
	if err != nil {
		return nil, err
	}

	releaser, err := client.RunWithContext(ctx, spec.ReleaseName, chart, vals)
	if err != nil {
		return nil, fmt.Errorf("upgrade release %q: %w", spec.ReleaseName, err)
	}

	rel, ok := releaser.(*v1.Release)
	if !ok {
		return nil, fmt.Errorf("%w: %T", errUnexpectedRelease, releaser)
	}

	return rel, nil
}

func (c *Client) locateAndLoadChart(spec *ChartSpec) (*chartv2.Chart, error) {
	chartPath := spec.ChartName

	if spec.RepoURL != "" {
		_, chartName := ParseChartRef(spec.ChartName)

		chartURL, err := repov1.FindChartInRepoURL(
			spec.RepoURL,
			chartName,
			helmv4getter.All(c.settings),
			repov1.WithChartVersion(spec.Version),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to locate chart %q in repository %s: %w", chartName, spec.RepoURL, err)
		}

		chartPath = chartURL
	}

	chartInterface, err := helmv4loader.Load(chartPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load chart: %w", err)
	}

	chart, ok := chartInterface.(*chartv2.Chart)
	if !ok {
		return nil, fmt.Errorf("%w: %T", errUnexpectedChart, chartInterface)
	}

	return chart, nil
}

func (c *Client) switchNamespace(namespace string) (func(), error) {
	previousNamespace := c.settings.Namespace()
	if namespace == "" || previousNamespace == namespace {
		return func() {}, nil
	}

	c.settings.SetNamespace(namespace)

	err := c.actionConfig.Init(c.settings.RESTClientGetter(), namespace, os.Getenv("HELM_DRIVER"))
	if err != nil {
		c.settings.SetNamespace(previousNamespace)

		return nil, fmt.Errorf("failed to set helm namespace %q: %w", namespace, err)
	}

	return func() {
		c.settings.SetNamespace(previousNamespace)
		_ = c.actionConfig.Init(c.settings.RESTClientGetter(), previousNamespace, os.Getenv("HELM_DRIVER"))
	}, nil
}

// ParseChartRef splits "repo/chart" into its repository and chart names.
func ParseChartRef(chartRef string) (string, string) {
	repo, chart, found := strings.Cut(chartRef, "/")
	if !found {
		return "", chartRef
	}

	return repo, chart
}

func timeoutOrDefault(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return DefaultTimeout
	}

	return timeout
}

func releaseToInfo(rel *v1.Release) *ReleaseInfo {
	if rel == nil {
		return nil
	}

	info := &ReleaseInfo{
		Name:      rel.Name,
		Namespace: rel.Namespace,
		Revision:  rel.Version,
	}

	if rel.Info != nil {
		info.Status = rel.Info.Status.String()
		info.Updated = rel.Info.LastDeployed
	}

	if rel.Chart != nil && rel.Chart.Metadata != nil {
		info.Chart = rel.Chart.Metadata.Name
		info.AppVersion = rel.Chart.Metadata.AppVersion
	}

	return info
}
