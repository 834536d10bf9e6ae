// Package llm asks open-ended questions of a remote chat-completions API.
//
// The default backend is Mistral, reached through its OpenAI-compatible
// endpoint. One request is made per question: no streaming, no retries. A
// circuit breaker short-circuits calls while the endpoint keeps failing.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sony/gobreaker"

	"github.com/nadzzz/jarvis/internal/config"
	"github.com/nadzzz/jarvis/internal/metrics"
	"github.com/nadzzz/jarvis/internal/proxy"
)

// ErrMissingAPIKey is returned when no credential was configured.
var ErrMissingAPIKey = errors.New("assistant api key not configured")

// Asker answers a free-form question.
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Client is the chat-completions Asker.
type Client struct {
	api         openai.Client
	apiKey      string
	model       string
	persona     string
	temperature float64
	breaker     *gobreaker.CircuitBreaker
}

// New creates a Client from the assistant config. A missing API key is not
// an error here; Ask reports it per call.
func New(cfg config.AssistantConfig) (*Client, error) {
	opts := []option.RequestOption{
		option.WithBaseURL(cfg.BaseURL),
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.Proxy != "" {
		hc, err := proxy.NewSocksClient(cfg.Proxy, cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("assistant proxy: %w", err)
		}
		opts = append(opts, option.WithHTTPClient(hc))
		slog.Info("assistant requests routed through proxy", "proxy", cfg.Proxy)
	}

	return &Client{
		api:         openai.NewClient(opts...),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		persona:     cfg.Persona,
		temperature: cfg.Temperature,
		breaker:     newBreaker(),
	}, nil
}

func newBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "assistant",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// Ask sends the persona and question and returns the trimmed content of the
// first choice.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	start := time.Now()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.complete(ctx, question)
	})
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.AssistantLatency.WithLabelValues(status).Observe(time.Since(start).Seconds())

	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (c *Client) complete(ctx context.Context, question string) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(c.persona),
			openai.UserMessage(question),
		},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty message content")
	}

	slog.Debug("assistant answered", "model", c.model, "length", len(content))
	return content, nil
}
