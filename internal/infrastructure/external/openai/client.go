// Package openai implements coaching.TextGenerator on the OpenAI chat
// completions API. Calls go through a circuit breaker and a short retry.
package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/habitverse/habitverse-api/internal/domain/coaching"
	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/pkg/circuitbreaker"
	"github.com/habitverse/habitverse-api/pkg/logger"
	"github.com/habitverse/habitverse-api/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// DefaultModel is used when Config.Model is empty.
const DefaultModel = goopenai.GPT3Dot5Turbo

// Config contains configuration for the OpenAI client.
type Config struct {
	APIKey string

	// Model is the chat model name.
	Model string

	// BaseURL overrides the API endpoint (proxies, tests).
	BaseURL string

	// Timeout is the HTTP timeout for a single attempt.
	Timeout time.Duration

	// OnCall, if set, is invoked once per Generate with the outcome
	// ("ok", "error", "rejected") and elapsed time.
	OnCall func(outcome string, elapsed time.Duration)

	// OnRetry, if set, is invoked before each repeated completion request.
	OnRetry func()
}

// DefaultConfig returns defaults for the given key.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:  apiKey,
		Model:   DefaultModel,
		Timeout: 15 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is a coaching.TextGenerator backed by OpenAI.
type Client struct {
	api     *goopenai.Client
	model   string
	breaker *circuitbreaker.CircuitBreaker
	retrier *retry.Retrier
	onCall  func(outcome string, elapsed time.Duration)
	log     *logger.Logger
}

var _ coaching.TextGenerator = (*Client)(nil)

// NewClient creates a new OpenAI client.
func NewClient(cfg Config, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	apiCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	log = log.With(logger.Component("openai"))

	return &Client{
		api:   goopenai.NewClientWithConfig(apiCfg),
		model: cfg.Model,
		breaker: circuitbreaker.AIProviderBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		}),
		retrier: retry.AIProviderRetrier(retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			log.Debug("retrying chat completion",
				logger.Int("attempt", attempt),
				logger.Duration("delay", delay),
				logger.Err(err),
			)
			if cfg.OnRetry != nil {
				cfg.OnRetry()
			}
		})),
		onCall:  cfg.OnCall,
		log:     log,
	}
}

// Breaker exposes the circuit breaker for health reporting.
func (c *Client) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}

// Generate sends a single-message chat completion and returns the first choice.
func (c *Client) Generate(ctx context.Context, p coaching.Prompt) (string, error) {
	start := time.Now()

	text, err := circuitbreaker.Call(ctx, c.breaker, func(ctx context.Context) (string, error) {
		var out string
		err := c.retrier.Do(ctx, func(ctx context.Context) error {
			var callErr error
			out, callErr = c.complete(ctx, p)
			if callErr != nil && isRetryable(callErr) {
				return retry.Retryable(callErr)
			}
			return callErr
		})
		return out, err
	})

	c.observe(err, time.Since(start))

	switch {
	case err == nil:
		return text, nil
	case circuitbreaker.IsRejection(err):
		return "", shared.WrapError("coaching", "Generate", shared.ErrServiceUnavailable, "AI provider circuit open", err)
	case errors.Is(err, shared.ErrAIProviderMalformed):
		return "", err
	default:
		c.log.Warn("chat completion failed", logger.Err(err))
		return "", shared.WrapError("coaching", "Generate", shared.ErrExternalService, "chat completion failed", err)
	}
}

func (c *Client) complete(ctx context.Context, p coaching.Prompt) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: p.Text},
		},
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", shared.ErrAIProviderMalformed
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) observe(err error, elapsed time.Duration) {
	if c.onCall == nil {
		return
	}
	outcome := "ok"
	switch {
	case circuitbreaker.IsRejection(err):
		outcome = "rejected"
	case err != nil:
		outcome = "error"
	}
	c.onCall(outcome, elapsed)
}

// isRetryable treats rate limiting, server errors and transport failures as transient.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return !errors.Is(err, shared.ErrAIProviderMalformed)
}
