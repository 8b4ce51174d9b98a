// Package smoke runs the end-to-end suites against a deployed platform: the
// smoke suite drives the gateway as a user would, the observability suite
// checks that the resulting traffic shows up in Limitador and Prometheus.
package smoke

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/opendatahub-io/maasctl/pkg/client/maas"
	"github.com/opendatahub-io/maasctl/pkg/report"
)

const (
	// DefaultTokenTTL is the lifetime requested for test tokens.
	DefaultTokenTTL = 10 * time.Minute
	// DefaultRateLimitRequests is how many requests a tier gets to hit a 429.
	DefaultRateLimitRequests = 20
	// DefaultTier names the tier of the caller's own token.
	DefaultTier = "default"

	expirySkew = time.Minute
	maxTokens  = 16
)

// ErrSuiteFailed is returned when at least one case failed.
var ErrSuiteFailed = errors.New("test suite failed")

// Tier is one rate limit tier to exercise.
type Tier struct {
	Name string
	// Token authenticates a user of the tier against the token endpoint;
	// empty means the caller's token.
	Token string
}

// Options configure the smoke suite.
type Options struct {
	TokenTTL          time.Duration
	RateLimitRequests int
	Tiers             []Tier
	// RunID tags prompts so traffic of one run can be told apart.
	RunID string
}

// Runner runs the smoke suite.
type Runner struct {
	client *maas.Client
	opts   Options
}

// NewRunner creates a runner; client must carry the caller's token.
func NewRunner(client *maas.Client, opts Options) *Runner {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = DefaultTokenTTL
	}

	if opts.RateLimitRequests <= 0 {
		opts.RateLimitRequests = DefaultRateLimitRequests
	}

	if len(opts.Tiers) == 0 {
		opts.Tiers = []Tier{{Name: DefaultTier}}
	}

	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	return &Runner{client: client, opts: opts}
}

// RunID identifies this run.
func (r *Runner) RunID() string {
	return r.opts.RunID
}

// Run executes every case in order. Cases that depend on an earlier one
// are skipped when it failed.
func (r *Runner) Run(ctx context.Context) *report.Report {
	results := &report.Report{}

	results.Add(r.health(ctx))

	token, result := r.mint(ctx, r.client)
	results.Add(result)

	if token == "" {
		results.Add(
			report.Skipped("model catalog", "no token"),
			report.Skipped("chat completion", "no token"),
		)

		for _, tier := range r.opts.Tiers {
			results.Add(report.Skipped(rateLimitName(tier), "no token"))
		}

		return results
	}

	user := r.client.WithToken(token)

	models, result := r.models(ctx, user)
	results.Add(result)

	if len(models) == 0 {
		results.Add(report.Skipped("chat completion", "no model"))

		for _, tier := range r.opts.Tiers {
			results.Add(report.Skipped(rateLimitName(tier), "no model"))
		}

		return results
	}

	model := models[0]

	results.Add(r.chat(ctx, user, model))

	for _, tier := range r.opts.Tiers {
		results.Add(r.rateLimit(ctx, tier, model))
	}

	results.Add(r.revoke(ctx))

	return results
}

func (r *Runner) health(ctx context.Context) report.Result {
	err := r.client.Health(ctx)
	if err != nil {
		return report.Failed("maas-api health",
			"check the maas-api deployment and the maas-api HTTPRoute on the gateway",
			"%v", err)
	}

	return report.Passed("maas-api health", "%s answered 200", maas.HealthPath)
}

func (r *Runner) mint(ctx context.Context, client *maas.Client) (string, report.Result) {
	const name = "token mint"

	requested := time.Now()

	token, err := client.MintToken(ctx, r.opts.TokenTTL)
	if err != nil {
		return "", report.Failed(name, "log in with `oc login` and check the maas-api AuthPolicy", "%v", err)
	}

	expiresAt := token.ExpiresAt.Time
	if expiresAt.IsZero() {
		return token.Token, report.Warned(name, "upgrade maas-api to a release that reports expiresAt",
			"token minted without expiresAt")
	}

	if !expiresAt.After(requested) {
		return "", report.Failed(name, "check the clock of the maas-api pods",
			"token already expired at %s", expiresAt.Format(time.RFC3339))
	}

	if expiresAt.After(requested.Add(r.opts.TokenTTL + expirySkew)) {
		return "", report.Failed(name, "maas-api must honour the requested expiration",
			"token expires at %s, beyond the requested %s", expiresAt.Format(time.RFC3339), r.opts.TokenTTL)
	}

	return token.Token, report.Passed(name, "expires at %s", expiresAt.Format(time.RFC3339))
}

func (r *Runner) models(ctx context.Context, client *maas.Client) ([]maas.Model, report.Result) {
	const name = "model catalog"

	models, err := client.Models(ctx)
	if err != nil {
		return nil, report.Failed(name, "check the maas-api logs", "%v", err)
	}

	if len(models) == 0 {
		return nil, report.Failed(name, "deploy a model, e.g. `maasctl deploy --deploy-simulator`", "no models listed")
	}

	ids := make([]string, 0, len(models))
	for _, model := range models {
		ids = append(ids, model.ID)
	}

	slices.Sort(ids)

	return models, report.Passed(name, "%d model(s): %v", len(models), ids)
}

func (r *Runner) chat(ctx context.Context, client *maas.Client, model maas.Model) report.Result {
	const name = "chat completion"

	resp, err := client.Chat(ctx, model, r.prompt(), maxTokens)
	if err != nil {
		return report.Failed(name, "check the model HTTPRoute and the gateway AuthPolicy", "%v", err)
	}

	if len(resp.Choices) == 0 {
		return report.Failed(name, "check the model server logs", "%s answered without choices", model.ID)
	}

	return report.Passed(name, "%s answered, %d tokens used", model.ID, resp.Usage.TotalTokens)
}

func (r *Runner) rateLimit(ctx context.Context, tier Tier, model maas.Model) report.Result {
	name := rateLimitName(tier)

	caller := r.client
	if tier.Token != "" {
		caller = r.client.WithToken(tier.Token)
	}

	token, err := caller.MintToken(ctx, r.opts.TokenTTL)
	if err != nil {
		return report.Failed(name, "check the token of the tier user", "mint: %v", err)
	}

	client := r.client.WithToken(token.Token)

	for request := 1; request <= r.opts.RateLimitRequests; request++ {
		status, err := client.ChatStatus(ctx, model, r.prompt(), maxTokens)
		if err != nil {
			return report.Failed(name, "check the gateway", "request %d: %v", request, err)
		}

		switch status {
		case http.StatusTooManyRequests:
			return report.Passed(name, "429 after %d request(s)", request)
		case http.StatusOK:
		default:
			return report.Failed(name, "check the gateway AuthPolicy", "request %d answered %d", request, status)
		}
	}

	return report.Failed(name, "check the RateLimitPolicy and TokenRateLimitPolicy on the gateway",
		"no 429 after %d requests", r.opts.RateLimitRequests)
}

func (r *Runner) revoke(ctx context.Context) report.Result {
	err := r.client.RevokeTokens(ctx)
	if err != nil {
		return report.Warned("token revocation", "revoke them with DELETE "+maas.TokensPath, "%v", err)
	}

	return report.Passed("token revocation", "test tokens revoked")
}

func (r *Runner) prompt() string {
	return fmt.Sprintf("maasctl smoke run %s: say hello", r.opts.RunID)
}

func rateLimitName(tier Tier) string {
	return "rate limit (" + tier.Name + ")"
}

// Check turns a report into ErrSuiteFailed when any case failed.
func Check(results *report.Report) error {
	if results.HasFailures() {
		return fmt.Errorf("%w: %s", ErrSuiteFailed, results.Summary())
	}

	return nil
}
