// Package maastest provides an in-process MaaS gateway for tests: it mints
// tokens, serves a model catalog and rate-limits chat completions per tier.
package maastest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// PremiumGroup maps callers to the premium tier.
const PremiumGroup = "premium-users"

// Options configure a Gateway.
type Options struct {
	// Models served by the catalog.
	Models []string
	// Burst is the number of chat completions a tier may send before 429.
	Burst int
	// UnhealthyResponses is how many health probes answer 503 first.
	UnhealthyResponses int32
	// Groups sent by a token holder; decides the tier.
	Groups []string
}

// Gateway is a fake MaaS gateway backed by httptest.
type Gateway struct {
	*httptest.Server

	mu        sync.Mutex
	tokens    map[string]string
	limiters  map[string]*rate.Limiter
	options   Options
	unhealthy atomic.Int32
	chats     atomic.Int32
}

// NewGateway starts a gateway; Close it when done.
func NewGateway(options Options) *Gateway {
	gin.SetMode(gin.TestMode)

	if options.Burst == 0 {
		options.Burst = 5
	}

	gateway := &Gateway{
		tokens:   map[string]string{},
		limiters: map[string]*rate.Limiter{},
		options:  options,
	}
	gateway.unhealthy.Store(options.UnhealthyResponses)

	router := gin.New()
	router.GET("/maas-api/health", gateway.health)
	router.POST("/maas-api/v1/tokens", gateway.mint)
	router.DELETE("/maas-api/v1/tokens", gateway.revoke)
	router.GET("/maas-api/v1/models", gateway.authorized, gateway.models)
	router.POST("/maas-api/v1/tiers/lookup", gateway.lookup)
	router.POST("/llm/:model/v1/chat/completions", gateway.authorized, gateway.chat)

	gateway.Server = httptest.NewServer(router)

	return gateway
}

// Chats returns the number of accepted chat completions.
func (g *Gateway) Chats() int {
	return int(g.chats.Load())
}

// Tokens returns the number of live tokens.
func (g *Gateway) Tokens() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.tokens)
}

func (g *Gateway) health(c *gin.Context) {
	if g.unhealthy.Load() > 0 {
		g.unhealthy.Add(-1)
		c.String(http.StatusServiceUnavailable, "upstream connect error")

		return
	}

	c.String(http.StatusOK, "ok")
}

func (g *Gateway) mint(c *gin.Context) {
	if bearer(c) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})

		return
	}

	var req struct {
		Expiration string `json:"expiration"`
	}

	err := c.ShouldBindJSON(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	ttl, err := time.ParseDuration(req.Expiration)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expiration"})

		return
	}

	token := "maas-" + uuid.NewString()

	g.mu.Lock()
	g.tokens[token] = tierFor(g.options.Groups)
	g.mu.Unlock()

	c.JSON(http.StatusCreated, gin.H{
		"token":      token,
		"expiration": req.Expiration,
		"expiresAt":  time.Now().Add(ttl).Unix(),
	})
}

func (g *Gateway) revoke(c *gin.Context) {
	g.mu.Lock()
	g.tokens = map[string]string{}
	g.mu.Unlock()

	c.Status(http.StatusNoContent)
}

func (g *Gateway) authorized(c *gin.Context) {
	g.mu.Lock()
	tier, ok := g.tokens[bearer(c)]
	g.mu.Unlock()

	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown token"})

		return
	}

	c.Set("tier", tier)
	c.Next()
}

func (g *Gateway) models(c *gin.Context) {
	data := make([]gin.H, 0, len(g.options.Models))
	for _, model := range g.options.Models {
		data = append(data, gin.H{
			"id":       model,
			"object":   "model",
			"owned_by": "llm",
			"url":      g.URL + "/llm/" + model,
			"ready":    true,
		})
	}

	c.JSON(http.StatusOK, gin.H{"object": "list", "data": data})
}

func (g *Gateway) lookup(c *gin.Context) {
	var req struct {
		Groups []string `json:"groups"`
	}

	err := c.ShouldBindJSON(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	c.JSON(http.StatusOK, gin.H{"tier": tierFor(req.Groups)})
}

func (g *Gateway) chat(c *gin.Context) {
	if !g.limiter(c.GetString("tier")).Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limited"})

		return
	}

	g.chats.Add(1)

	c.JSON(http.StatusOK, gin.H{
		"id":    "chatcmpl-" + uuid.NewString(),
		"model": c.Param("model"),
		"choices": []gin.H{{
			"index":         0,
			"message":       gin.H{"role": "assistant", "content": "Hello from the simulator"},
			"finish_reason": "stop",
		}},
		"usage": gin.H{"prompt_tokens": 5, "completion_tokens": 5, "total_tokens": 10},
	})
}

func (g *Gateway) limiter(tier string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()

	limiter, ok := g.limiters[tier]
	if !ok {
		burst := g.options.Burst
		if tier == "premium" {
			burst *= 2
		}

		limiter = rate.NewLimiter(rate.Every(time.Hour), burst)
		g.limiters[tier] = limiter
	}

	return limiter
}

func tierFor(groups []string) string {
	for _, group := range groups {
		if group == PremiumGroup {
			return "premium"
		}
	}

	return "free"
}

func bearer(c *gin.Context) string {
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}
