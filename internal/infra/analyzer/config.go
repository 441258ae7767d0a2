package analyzer

import (
	"errors"
	"fmt"
	"time"

	"biaswatch/pkg/config"

	"github.com/anthropics/anthropic-sdk-go"
)

// Config holds the settings shared by the AI analyzers.
type Config struct {
	// Model is the provider model identifier.
	Model string

	// MaxTokens caps the reply length.
	MaxTokens int

	// Timeout bounds one call including retries.
	Timeout time.Duration

	// MaxInputChars truncates the article text sent to the model (runes).
	MaxInputChars int

	// BaseURL overrides the provider endpoint. Empty uses the SDK default.
	BaseURL string
}

const (
	defaultMaxTokens     = 1024
	defaultTimeout       = 45 * time.Second
	defaultMaxInputChars = 10000
)

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Model == "" {
		return errors.New("model cannot be empty")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	if err := config.ValidatePositiveDuration(c.Timeout); err != nil {
		return fmt.Errorf("timeout: %w", err)
	}
	if c.MaxInputChars < 500 {
		return fmt.Errorf("max input chars must be at least 500, got %d", c.MaxInputChars)
	}
	return nil
}

// LoadClaudeConfig reads the Claude settings.
//
// Environment variables:
//   - CLAUDE_MODEL (default: claude-sonnet-4-5)
//   - ANTHROPIC_BASE_URL (optional)
//   - ANALYZER_MAX_TOKENS, ANALYZER_TIMEOUT, ANALYZER_MAX_INPUT_CHARS
func LoadClaudeConfig() (Config, error) {
	cfg := loadShared(config.GetEnvString("CLAUDE_MODEL", string(anthropic.ModelClaudeSonnet4_5_20250929)))
	cfg.BaseURL = config.GetEnvString("ANTHROPIC_BASE_URL", "")
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid Claude configuration: %w", err)
	}
	return cfg, nil
}

// LoadOpenAIConfig reads the OpenAI settings.
//
// Environment variables:
//   - OPENAI_MODEL (default: gpt-4o-mini)
//   - OPENAI_BASE_URL (optional)
//   - ANALYZER_MAX_TOKENS, ANALYZER_TIMEOUT, ANALYZER_MAX_INPUT_CHARS
func LoadOpenAIConfig() (Config, error) {
	cfg := loadShared(config.GetEnvString("OPENAI_MODEL", "gpt-4o-mini"))
	cfg.BaseURL = config.GetEnvString("OPENAI_BASE_URL", "")
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid OpenAI configuration: %w", err)
	}
	return cfg, nil
}

func loadShared(model string) Config {
	return Config{
		Model:         model,
		MaxTokens:     config.GetEnvInt("ANALYZER_MAX_TOKENS", defaultMaxTokens),
		Timeout:       config.GetEnvDuration("ANALYZER_TIMEOUT", defaultTimeout),
		MaxInputChars: config.GetEnvInt("ANALYZER_MAX_INPUT_CHARS", defaultMaxInputChars),
	}
}
