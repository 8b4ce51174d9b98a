// Package prometheus queries the cluster's Prometheus or Thanos querier for
// the metrics the observability suite expects.
package prometheus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opendatahub-io/maasctl/pkg/log"
	promapi "github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	promconfig "github.com/prometheus/common/config"
	"github.com/prometheus/common/model"
	"go.uber.org/zap"
)

// DefaultQueryTimeout bounds a single instant query.
const DefaultQueryTimeout = 30 * time.Second

var (
	// ErrAddressRequired is returned when no Prometheus URL is configured.
	ErrAddressRequired = errors.New("prometheus address is required")
	// ErrUnexpectedResult is returned when a query does not yield an instant vector.
	ErrUnexpectedResult = errors.New("unexpected prometheus result type")
)

// Config describes how to reach Prometheus.
type Config struct {
	// Address is the base URL, e.g. the thanos-querier route.
	Address string
	// BearerToken authenticates against the OpenShift oauth proxy.
	BearerToken string
	// InsecureSkipTLSVerify disables certificate checks for self-signed routes.
	InsecureSkipTLSVerify bool
	// Timeout bounds each query; zero means DefaultQueryTimeout.
	Timeout time.Duration
}

// Client runs instant queries.
type Client struct {
	api     promv1.API
	timeout time.Duration
}

// NewClient builds a client from cfg.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Address == "" {
		return nil, ErrAddressRequired
	}

	httpConfig := promconfig.HTTPClientConfig{
		TLSConfig: promconfig.TLSConfig{InsecureSkipVerify: cfg.InsecureSkipTLSVerify},
	}

	if cfg.BearerToken != "" {
		httpConfig.Authorization = &promconfig.Authorization{
			Type:        "Bearer",
			Credentials: promconfig.Secret(cfg.BearerToken),
		}
	}

	roundTripper, err := promconfig.NewRoundTripperFromConfig(httpConfig, "maasctl")
	if err != nil {
		return nil, fmt.Errorf("build prometheus transport: %w", err)
	}

	apiClient, err := promapi.NewClient(promapi.Config{Address: cfg.Address, RoundTripper: roundTripper})
	if err != nil {
		return nil, fmt.Errorf("create prometheus client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}

	return &Client{api: promv1.NewAPI(apiClient), timeout: timeout}, nil
}

// Query runs an instant query and returns its vector.
func (c *Client) Query(ctx context.Context, query string) (model.Vector, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	value, warnings, err := c.api.Query(ctx, query, time.Now())
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", query, err)
	}

	if len(warnings) > 0 {
		log.Debug(ctx, "prometheus query warnings", zap.String("query", query), zap.Strings("warnings", warnings))
	}

	vector, ok := value.(model.Vector)
	if !ok {
		return nil, fmt.Errorf("%w: %s for %q", ErrUnexpectedResult, value.Type(), query)
	}

	return vector, nil
}

// Available checks that Prometheus answers the "up" query.
func (c *Client) Available(ctx context.Context) error {
	_, err := c.Query(ctx, "up")

	return err
}

// FindLabel returns the value of label on the first sample that carries it.
func FindLabel(vector model.Vector, label string) (string, bool, error) {
	name := model.LabelName(label)

	for _, sample := range vector {
		if value, ok := sample.Metric[name]; ok {
			return string(value), true, nil
		}
	}

	return "", false, nil
}
