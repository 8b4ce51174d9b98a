package helm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/opendatahub-io/maasctl/pkg/client/netretry"
	helmv4getter "helm.sh/helm/v4/pkg/getter"
	repov1 "helm.sh/helm/v4/pkg/repo/v1"
)

const (
	repoDirMode  = 0o750
	repoFileMode = 0o640

	repoIndexMaxRetries    = 3
	repoIndexRetryBaseWait = 2 * time.Second
	repoIndexRetryMaxWait  = 15 * time.Second
	repoIndexTimeout       = 2 * time.Minute
)

var (
	errRepositoryEntryRequired = errors.New("helm: repository entry is required")
	errRepositoryNameRequired  = errors.New("helm: repository name is required")
	errRepositoryCacheUnset    = errors.New("helm: repository cache path is not set")
	errRepositoryConfigUnset   = errors.New("helm: repository config path is not set")
)

// AddRepository registers a Helm repository and downloads its index.
func (c *Client) AddRepository(ctx context.Context, entry *RepositoryEntry) error {
	err := validateRepositoryRequest(ctx, entry)
	if err != nil {
		return err
	}

	repoFile, err := ensureDir(c.settings.RepositoryConfig, errRepositoryConfigUnset, true)
	if err != nil {
		return err
	}

	repoCache, err := ensureDir(c.settings.RepositoryCache, errRepositoryCacheUnset, false)
	if err != nil {
		return err
	}

	repositoryFile, loadErr := repov1.LoadFile(repoFile)
	if loadErr != nil {
		repositoryFile = repov1.NewFile()
	}

	repoEntry := &repov1.Entry{Name: entry.Name, URL: entry.URL}

	chartRepository, err := repov1.NewChartRepository(
		repoEntry,
		helmv4getter.All(c.settings, helmv4getter.WithTimeout(repoIndexTimeout)),
	)
	if err != nil {
		return fmt.Errorf("create chart repository: %w", err)
	}

	chartRepository.CachePath = repoCache

	err = downloadRepositoryIndex(ctx, chartRepository)
	if err != nil {
		return err
	}

	repositoryFile.Update(repoEntry)

	err = repositoryFile.WriteFile(repoFile, repoFileMode)
	if err != nil {
		return fmt.Errorf("write repository file: %w", err)
	}

	return nil
}

func validateRepositoryRequest(ctx context.Context, entry *RepositoryEntry) error {
	if entry == nil {
		return errRepositoryEntryRequired
	}

	if entry.Name == "" {
		return errRepositoryNameRequired
	}

	ctxErr := ctx.Err()
	if ctxErr != nil {
		return fmt.Errorf("add repository context cancelled: %w", ctxErr)
	}

	return nil
}

// ensureDir creates path (or its parent when isFile) and returns path.
func ensureDir(path string, unset error, isFile bool) (string, error) {
	if path == "" {
		return "", unset
	}

	dir := path
	if isFile {
		dir = filepath.Dir(path)
	}

	err := os.MkdirAll(dir, repoDirMode)
	if err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}

	return path, nil
}

func downloadRepositoryIndex(ctx context.Context, chartRepository *repov1.ChartRepository) error {
	var lastErr error

	for attempt := 1; attempt <= repoIndexMaxRetries; attempt++ {
		_, err := chartRepository.DownloadIndexFile()
		if err == nil {
			return nil
		}

		lastErr = fmt.Errorf("failed to download repository index file: %w", err)

		if !netretry.IsRetryable(lastErr) || attempt == repoIndexMaxRetries {
			break
		}

		timer := time.NewTimer(netretry.ExponentialDelay(attempt, repoIndexRetryBaseWait, repoIndexRetryMaxWait))
		select {
		case <-ctx.Done():
			timer.Stop()

			return fmt.Errorf("download repository index cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return lastErr
}

