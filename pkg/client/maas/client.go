// Package maas is a client for the MaaS API and the models it fronts, as
// seen through the gateway.
package maas

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const (
	// HealthPath is the MaaS API liveness endpoint.
	HealthPath = "/maas-api/health"
	// TokensPath mints and revokes tokens.
	TokensPath = "/maas-api/v1/tokens"
	// ModelsPath lists the models the caller may use.
	ModelsPath = "/maas-api/v1/models"
	// TierLookupPath resolves groups to a tier.
	TierLookupPath = "/maas-api/v1/tiers/lookup"
	// ChatCompletionsPath is appended to a model URL.
	ChatCompletionsPath = "/v1/chat/completions"

	defaultRetryMax     = 3
	defaultRetryWaitMin = 500 * time.Millisecond
	defaultRetryWaitMax = 5 * time.Second
	defaultHTTPTimeout  = 60 * time.Second
	maxErrorBody        = 512
)

var (
	// ErrBaseURLRequired is returned when no gateway URL is configured.
	ErrBaseURLRequired = errors.New("maas: gateway URL is required")
	// ErrEmptyToken is returned when the token endpoint answers without a token.
	ErrEmptyToken = errors.New("maas: token response carries no token")
)

// StatusError is returned for unexpected HTTP status codes.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// IsStatus reports whether err is a StatusError with code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError

	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}

// Config describes how to reach the gateway.
type Config struct {
	// BaseURL is the gateway URL, e.g. https://maas.apps.example.com.
	BaseURL string
	// Token authenticates requests after minting; an OpenShift token works
	// for the token endpoint itself.
	Token string
	// InsecureSkipTLSVerify disables certificate checks.
	InsecureSkipTLSVerify bool
	// RetryMax bounds retries of transient failures; 429 is never retried.
	RetryMax int
	// Logger receives retry diagnostics; nil discards them.
	Logger *zap.Logger
}

// Client talks to the MaaS API.
type Client struct {
	http    *retryablehttp.Client
	baseURL *url.URL
	token   string
}

// NewClient creates a client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrBaseURLRequired
	}

	baseURL, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse gateway URL %q: %w", cfg.BaseURL, err)
	}

	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = defaultHTTPTimeout

	if cfg.InsecureSkipTLSVerify {
		transport, ok := httpClient.Transport.(*http.Transport)
		if ok {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed gateways
		}
	}

	retryMax := cfg.RetryMax
	if retryMax == 0 {
		retryMax = defaultRetryMax
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	retryClient := &retryablehttp.Client{
		HTTPClient:   httpClient,
		Logger:       zapLeveledLogger{logger: logger.Sugar()},
		RetryWaitMin: defaultRetryWaitMin,
		RetryWaitMax: defaultRetryWaitMax,
		RetryMax:     max(retryMax, 0),
		CheckRetry:   retryPolicy,
		Backoff:      retryablehttp.DefaultBackoff,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}

	return &Client{http: retryClient, baseURL: baseURL, token: cfg.Token}, nil
}

// WithToken returns a copy of c that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token

	return &clone
}

// BaseURL returns the gateway URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Health checks that the MaaS API answers 200.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, c.url(HealthPath), nil, nil, http.StatusOK)
}

// MintToken requests a token valid for ttl.
func (c *Client) MintToken(ctx context.Context, ttl time.Duration) (*Token, error) {
	var token Token

	err := c.do(ctx, http.MethodPost, c.url(TokensPath), tokenRequest{Expiration: ttl.String()}, &token,
		http.StatusOK, http.StatusCreated)
	if err != nil {
		return nil, err
	}

	if token.Token == "" {
		return nil, ErrEmptyToken
	}

	return &token, nil
}

// RevokeTokens revokes every token of the caller.
func (c *Client) RevokeTokens(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, c.url(TokensPath), nil, nil, http.StatusOK, http.StatusNoContent)
}

// Models lists the model catalog.
func (c *Client) Models(ctx context.Context) ([]Model, error) {
	var list modelList

	err := c.do(ctx, http.MethodGet, c.url(ModelsPath), nil, &list, http.StatusOK)
	if err != nil {
		return nil, err
	}

	return list.Data, nil
}

// LookupTier resolves groups to the tier the gateway applies.
func (c *Client) LookupTier(ctx context.Context, groups []string) (string, error) {
	var resp tierLookupResponse

	err := c.do(ctx, http.MethodPost, c.url(TierLookupPath), tierLookupRequest{Groups: groups}, &resp, http.StatusOK)
	if err != nil {
		return "", err
	}

	return resp.Tier, nil
}

// Chat sends a single-message chat completion to model.
func (c *Client) Chat(ctx context.Context, model Model, prompt string, maxTokens int) (*ChatResponse, error) {
	var resp ChatResponse

	err := c.do(ctx, http.MethodPost, c.chatURL(model), chatRequest(model, prompt, maxTokens), &resp, http.StatusOK)
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

// ChatStatus sends a chat completion and returns only the status code, so
// rate limiting can be observed without treating 429 as an error.
func (c *Client) ChatStatus(ctx context.Context, model Model, prompt string, maxTokens int) (int, error) {
	resp, err := c.send(ctx, http.MethodPost, c.chatURL(model), chatRequest(model, prompt, maxTokens))
	if err != nil {
		return 0, err
	}

	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

func chatRequest(model Model, prompt string, maxTokens int) ChatRequest {
	return ChatRequest{
		Model:     model.ID,
		Messages:  []ChatMessage{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
	}
}

func (c *Client) chatURL(model Model) string {
	if model.URL != "" {
		return strings.TrimSuffix(model.URL, "/") + ChatCompletionsPath
	}

	return c.url(ChatCompletionsPath)
}

func (c *Client) url(path string) string {
	return c.baseURL.JoinPath(path).String()
}

func (c *Client) do(ctx context.Context, method, target string, body, out any, expected ...int) error {
	resp, err := c.send(ctx, method, target, body)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, target, err)
	}

	if !containsStatus(expected, resp.StatusCode) {
		return &StatusError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       truncate(payload),
		}
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	err = json.Unmarshal(payload, out)
	if err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, target, err)
	}

	return nil
}

func (c *Client) send(ctx context.Context, method, target string, body any) (*http.Response, error) {
	var rawBody any

	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s %s: encode request: %w", method, target, err)
		}

		rawBody = encoded
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, rawBody)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}

	return resp, nil
}

// retryPolicy retries connection errors and gateway hiccups, never 429:
// the smoke suite counts rate-limited responses.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}

	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, nil
	default:
		return false, nil
	}
}

func containsStatus(expected []int, code int) bool {
	for _, status := range expected {
		if status == code {
			return true
		}
	}

	return false
}

func truncate(payload []byte) string {
	text := strings.TrimSpace(string(payload))
	if len(text) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}

		return text[:cut] + "..."
	}

	return text
}

// zapLeveledLogger adapts zap to retryablehttp.LeveledLogger.
type zapLeveledLogger struct {
	logger *zap.SugaredLogger
}

func (l zapLeveledLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l zapLeveledLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l zapLeveledLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l zapLeveledLogger) Warn(msg string, keysAndValues ...any) {
	l.logger.Debugw(msg, keysAndValues...)
}
