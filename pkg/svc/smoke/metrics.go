package smoke

import (
	"fmt"
	"os"

	"github.com/opendatahub-io/maasctl/deploy"
	"gopkg.in/yaml.v3"
)

// ExpectedMetric is a metric and the labels each of its series must carry.
type ExpectedMetric struct {
	Name   string   `yaml:"name"`
	Labels []string `yaml:"labels,omitempty"`
}

// ExpectedMetrics lists what the observability suite looks for.
type ExpectedMetrics struct {
	Limitador struct {
		Metrics []ExpectedMetric `yaml:"metrics"`
	} `yaml:"limitador"`
	Prometheus struct {
		Metrics []ExpectedMetric `yaml:"metrics"`
		// Optional metrics are reported as skipped when absent.
		Optional []ExpectedMetric `yaml:"optional,omitempty"`
	} `yaml:"prometheus"`
}

// LoadExpectedMetrics reads path, or the embedded defaults when path is empty.
func LoadExpectedMetrics(path string) (*ExpectedMetrics, error) {
	var (
		data []byte
		err  error
	)

	if path == "" {
		path = deploy.ExpectedMetrics
		data, err = deploy.FS.ReadFile(path)
	} else {
		data, err = os.ReadFile(path) //nolint:gosec // path is operator input
	}

	if err != nil {
		return nil, fmt.Errorf("read expected metrics: %w", err)
	}

	return ParseExpectedMetrics(data)
}

// ParseExpectedMetrics decodes an expected_metrics.yaml document.
func ParseExpectedMetrics(data []byte) (*ExpectedMetrics, error) {
	var expected ExpectedMetrics

	err := yaml.Unmarshal(data, &expected)
	if err != nil {
		return nil, fmt.Errorf("parse expected metrics: %w", err)
	}

	return &expected, nil
}
