package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"biaswatch/internal/resilience/circuitbreaker"
	"biaswatch/internal/resilience/retry"
	"biaswatch/internal/usecase/analysis"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Claude implements analysis.Analyzer using Anthropic's Claude API.
type Claude struct {
	client         anthropic.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	config         Config
}

// NewClaude creates a Claude analyzer. SDK-level retries are disabled;
// retries go through retry.AIAPIConfig behind the circuit breaker.
func NewClaude(apiKey string, cfg Config) *Claude {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	slog.Info("initialized Claude analyzer",
		slog.String("model", cfg.Model),
		slog.Int("max_tokens", cfg.MaxTokens))

	return &Claude{
		client:         anthropic.NewClient(opts...),
		circuitBreaker: circuitbreaker.New(circuitbreaker.ClaudeAPIConfig()),
		retryConfig:    retry.AIAPIConfig(),
		config:         cfg,
	}
}

// Name identifies the provider in token metrics.
func (c *Claude) Name() string { return "claude" }

// Analyze sends text to Claude and returns the raw reply and token usage.
func (c *Claude) Analyze(ctx context.Context, text string) (analysis.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	resp, err := retry.Do(ctx, c.retryConfig, func() (analysis.Response, error) {
		resp, err := circuitbreaker.Do(c.circuitBreaker, func() (analysis.Response, error) {
			return c.doAnalyze(ctx, text)
		})
		if circuitbreaker.IsRejected(err) {
			slog.Warn("claude api circuit breaker open, request rejected",
				slog.String("service", "claude-api"),
				slog.String("state", c.circuitBreaker.State().String()))
			return resp, fmt.Errorf("claude api unavailable: %w", err)
		}
		return resp, err
	})
	if err != nil {
		return analysis.Response{}, fmt.Errorf("claude analyze failed: %w", err)
	}
	return resp, nil
}

func (c *Claude) doAnalyze(ctx context.Context, text string) (analysis.Response, error) {
	prompt, truncated := userPrompt(text, c.config.MaxInputChars)
	if truncated {
		slog.WarnContext(ctx, "text truncated for claude api",
			slog.Int("max_chars", c.config.MaxInputChars))
	}

	start := time.Now()
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: int64(c.config.MaxTokens),
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	duration := time.Since(start)
	if err != nil {
		slog.ErrorContext(ctx, "claude analysis call failed",
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return analysis.Response{}, fmt.Errorf("claude api error: %w", classifyClaudeError(err))
	}

	var body strings.Builder
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			body.WriteString(tb.Text)
		}
	}
	if body.Len() == 0 {
		return analysis.Response{}, errors.New("claude api returned empty response")
	}

	usage := analysis.Usage{Input: message.Usage.InputTokens, Output: message.Usage.OutputTokens}
	slog.DebugContext(ctx, "claude analysis completed",
		slog.Duration("duration", duration),
		slog.Int64("input_tokens", usage.Input),
		slog.Int64("output_tokens", usage.Output))

	return analysis.Response{Body: body.String(), Usage: usage}, nil
}

// classifyClaudeError exposes the HTTP status so retry can tell 5xx/429 from 4xx.
func classifyClaudeError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &retry.HTTPError{StatusCode: apiErr.StatusCode, Message: apiErr.Error()}
	}
	return err
}
