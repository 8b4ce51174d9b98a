// Package limitador reads rate limits and metrics straight from a Limitador
// pod, bypassing Prometheus, so the source of the token metrics can be
// checked on its own.
package limitador

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf8"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

const (
	// DefaultSelector matches the Limitador pods created by the Kuadrant operator.
	DefaultSelector = "app=limitador"
	// DefaultPort is Limitador's HTTP port.
	DefaultPort = 8080
	// LimitsPath lists the configured limits.
	LimitsPath = "/limits"
	// MetricsPath exposes the Prometheus metrics.
	MetricsPath = "/metrics"
)

var (
	// ErrNoPod is returned when no Limitador pod is running.
	ErrNoPod = errors.New("no running limitador pod found")
	// ErrNoLimits is returned when Limitador has no limits configured.
	ErrNoLimits = errors.New("limitador has no rate limits configured")
)

// Fetcher retrieves a path from Limitador's HTTP port.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// PodProxy fetches through the API server's pod proxy, so no port-forward
// or exec is needed.
type PodProxy struct {
	Clientset kubernetes.Interface
	Namespace string
	Selector  string
	Port      int
}

var _ Fetcher = (*PodProxy)(nil)

// Fetch implements Fetcher.
func (p *PodProxy) Fetch(ctx context.Context, path string) ([]byte, error) {
	pod, err := p.pod(ctx)
	if err != nil {
		return nil, err
	}

	port := p.Port
	if port == 0 {
		port = DefaultPort
	}

	body, err := p.Clientset.CoreV1().Pods(p.Namespace).
		ProxyGet("http", pod, strconv.Itoa(port), path, nil).
		DoRaw(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s from %s/%s: %w", path, p.Namespace, pod, err)
	}

	return body, nil
}

func (p *PodProxy) pod(ctx context.Context) (string, error) {
	selector := p.Selector
	if selector == "" {
		selector = DefaultSelector
	}

	pods, err := p.Clientset.CoreV1().Pods(p.Namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return "", fmt.Errorf("list limitador pods in %s: %w", p.Namespace, err)
	}

	for _, pod := range pods.Items {
		if pod.Status.Phase == corev1.PodRunning {
			return pod.Name, nil
		}
	}

	return "", fmt.Errorf("%w in namespace %s (selector %s)", ErrNoPod, p.Namespace, selector)
}

// Client reads Limitador state through a Fetcher.
type Client struct {
	fetcher Fetcher
}

// NewClient creates a client.
func NewClient(fetcher Fetcher) *Client {
	return &Client{fetcher: fetcher}
}

// Limit is one configured rate limit.
type Limit struct {
	Namespace  string   `json:"namespace"`
	MaxValue   int64    `json:"max_value"`
	Seconds    int64    `json:"seconds"`
	Name       string   `json:"name,omitempty"`
	Conditions []string `json:"conditions"`
	Variables  []string `json:"variables"`
}

// Limits returns the configured limits. An empty list is ErrNoLimits.
func (c *Client) Limits(ctx context.Context) ([]Limit, error) {
	body, err := c.fetcher.Fetch(ctx, LimitsPath)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || string(trimmed) == "null" || string(trimmed) == "[]" {
		return nil, ErrNoLimits
	}

	var limits []Limit

	err = json.Unmarshal(trimmed, &limits)
	if err != nil {
		return nil, fmt.Errorf("limitador %s returned invalid response %q: %w", LimitsPath, truncate(trimmed), err)
	}

	if len(limits) == 0 {
		return nil, ErrNoLimits
	}

	return limits, nil
}

// Metrics fetches and parses the metrics endpoint.
func (c *Client) Metrics(ctx context.Context) (Metrics, error) {
	body, err := c.fetcher.Fetch(ctx, MetricsPath)
	if err != nil {
		return nil, err
	}

	return ParseMetrics(body)
}

// Metrics maps metric family names to their parsed families.
type Metrics map[string]*dto.MetricFamily

// ParseMetrics parses Prometheus text exposition format.
func ParseMetrics(text []byte) (Metrics, error) {
	parser := expfmt.NewTextParser(model.UTF8Validation)

	families, err := parser.TextToMetricFamilies(bytes.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parse limitador metrics: %w", err)
	}

	return families, nil
}

// Has reports whether at least one sample of name exists.
func (m Metrics) Has(name string) bool {
	family, ok := m[name]

	return ok && len(family.GetMetric()) > 0
}

// HasLabel reports whether any sample of name carries label with a non-empty value.
func (m Metrics) HasLabel(name, label string) bool {
	family, ok := m[name]
	if !ok {
		return false
	}

	for _, metric := range family.GetMetric() {
		for _, pair := range metric.GetLabel() {
			if pair.GetName() == label && pair.GetValue() != "" {
				return true
			}
		}
	}

	return false
}

// MissingLabels returns the labels of want that no sample of name carries.
func (m Metrics) MissingLabels(name string, want ...string) []string {
	var missing []string

	for _, label := range want {
		if !m.HasLabel(name, label) {
			missing = append(missing, label)
		}
	}

	return missing
}

// Names returns the sorted metric family names.
func (m Metrics) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

const truncateLimit = 200

func truncate(body []byte) string {
	if len(body) <= truncateLimit {
		return string(body)
	}

	cut := truncateLimit
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}

	return string(body[:cut])
}
