package llm

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"
)

// RateLimitedClient wraps any LLMClient with a token-bucket limiter so a
// burst of concurrent search expansions cannot exhaust the backend's quota.
type RateLimitedClient struct {
	inner   LLMClient
	limiter *rate.Limiter
}

// NewRateLimitedClient wraps client at reqPerSec requests per second with the
// given burst. A reqPerSec <= 0 disables limiting.
func NewRateLimitedClient(client LLMClient, reqPerSec float64, burst int) *RateLimitedClient {
	var limiter *rate.Limiter
	if reqPerSec > 0 {
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(reqPerSec), burst)
	}
	return &RateLimitedClient{inner: client, limiter: limiter}
}

// Generate implements the LLMClient interface
func (c *RateLimitedClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			slog.Debug("Rate limiter wait aborted", "error", err)
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}
	return c.inner.Generate(ctx, prompt, params)
}
