// Package llm invokes the configured language model with a fixed per-call
// timeout and a bounded number of retries.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrExhausted is returned when every attempt failed. The invoker never
// substitutes a locally generated answer.
var ErrExhausted = errors.New("llm: all attempts failed")

const (
	defaultTimeout   = 10 * time.Second
	defaultMaxTokens = 700
)

// Config selects and bounds the model invocation.
type Config struct {
	// Provider is one of "anthropic", "openai", "ollama".
	Provider string
	Model    string
	APIKey   string
	// BaseURL overrides the provider endpoint (openai-compatible gateways,
	// ollama servers).
	BaseURL string
	// Timeout applies per attempt, not to the whole invocation.
	Timeout time.Duration
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
	MaxTokens  int
}

// Client calls one langchaingo-backed model.
type Client struct {
	model      llms.Model
	timeout    time.Duration
	maxRetries int
	maxTokens  int
}

// New creates a Client for the configured provider.
func New(cfg Config) (*Client, error) {
	var (
		model llms.Model
		err   error
	)

	switch cfg.Provider {
	case "anthropic":
		model, err = anthropic.New(
			anthropic.WithToken(cfg.APIKey),
			anthropic.WithModel(cfg.Model),
		)
	case "openai":
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
	case "ollama":
		serverURL := cfg.BaseURL
		if serverURL == "" {
			serverURL = "http://localhost:11434"
		}
		model, err = ollama.New(
			ollama.WithServerURL(serverURL),
			ollama.WithModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q (supported: anthropic, openai, ollama)", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("llm: init %s: %w", cfg.Provider, err)
	}

	return NewWithModel(model, cfg), nil
}

// NewWithModel wraps an already constructed model. Tests use this to inject
// fakes.
func NewWithModel(model llms.Model, cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{
		model:      model,
		timeout:    timeout,
		maxRetries: cfg.MaxRetries,
		maxTokens:  maxTokens,
	}
}

// Invoke sends the system/user prompt pair, retrying failed attempts up to
// the configured maximum. On exhaustion it returns ErrExhausted wrapping the
// last failure.
func (c *Client) Invoke(ctx context.Context, system, user string) (string, error) {
	attempts := c.maxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		text, err := c.invokeOnce(ctx, system, user)
		if err == nil {
			return text, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", attempts).
			Msg("model invocation failed")

		// The surrounding request is gone; further attempts cannot succeed.
		if ctx.Err() != nil {
			break
		}
	}

	return "", fmt.Errorf("%w: %v", ErrExhausted, lastErr)
}

func (c *Client) invokeOnce(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}

	resp, err := c.model.GenerateContent(ctx, messages, llms.WithMaxTokens(c.maxTokens))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", errors.New("empty model response")
	}
	return resp.Choices[0].Content, nil
}
