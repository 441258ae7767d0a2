package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"biaswatch/internal/resilience/circuitbreaker"
	"biaswatch/internal/resilience/retry"
	"biaswatch/internal/usecase/analysis"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI implements analysis.Analyzer using OpenAI's chat completions API.
type OpenAI struct {
	client         *openai.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	config         Config
}

// NewOpenAI creates an OpenAI analyzer.
func NewOpenAI(apiKey string, cfg Config) *OpenAI {
	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	slog.Info("initialized OpenAI analyzer",
		slog.String("model", cfg.Model),
		slog.Int("max_tokens", cfg.MaxTokens))

	return &OpenAI{
		client:         openai.NewClientWithConfig(clientConfig),
		circuitBreaker: circuitbreaker.New(circuitbreaker.OpenAIAPIConfig()),
		retryConfig:    retry.AIAPIConfig(),
		config:         cfg,
	}
}

// Name identifies the provider in token metrics.
func (o *OpenAI) Name() string { return "openai" }

// Analyze sends text to OpenAI and returns the raw reply and token usage.
func (o *OpenAI) Analyze(ctx context.Context, text string) (analysis.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	resp, err := retry.Do(ctx, o.retryConfig, func() (analysis.Response, error) {
		resp, err := circuitbreaker.Do(o.circuitBreaker, func() (analysis.Response, error) {
			return o.doAnalyze(ctx, text)
		})
		if circuitbreaker.IsRejected(err) {
			slog.Warn("openai api circuit breaker open, request rejected",
				slog.String("service", "openai-api"),
				slog.String("state", o.circuitBreaker.State().String()))
			return resp, fmt.Errorf("openai api unavailable: %w", err)
		}
		return resp, err
	})
	if err != nil {
		return analysis.Response{}, fmt.Errorf("openai analyze failed: %w", err)
	}
	return resp, nil
}

func (o *OpenAI) doAnalyze(ctx context.Context, text string) (analysis.Response, error) {
	prompt, truncated := userPrompt(text, o.config.MaxInputChars)
	if truncated {
		slog.WarnContext(ctx, "text truncated for openai api",
			slog.Int("max_chars", o.config.MaxInputChars))
	}

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.config.Model,
		MaxTokens: o.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	duration := time.Since(start)
	if err != nil {
		slog.ErrorContext(ctx, "openai analysis call failed",
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return analysis.Response{}, fmt.Errorf("openai api error: %w", classifyOpenAIError(err))
	}

	// Validate response structure (safety check to prevent panic on array access)
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return analysis.Response{}, errors.New("openai api returned empty response")
	}

	usage := analysis.Usage{
		Input:  int64(resp.Usage.PromptTokens),
		Output: int64(resp.Usage.CompletionTokens),
	}
	slog.DebugContext(ctx, "openai analysis completed",
		slog.Duration("duration", duration),
		slog.Int64("input_tokens", usage.Input),
		slog.Int64("output_tokens", usage.Output))

	return analysis.Response{Body: resp.Choices[0].Message.Content, Usage: usage}, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &retry.HTTPError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &retry.HTTPError{StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()}
	}
	return err
}
