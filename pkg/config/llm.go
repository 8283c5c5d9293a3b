package config

import (
	"fmt"
	"os"
	"strings"
)

// LLMProvider identifies the LLM provider type.
type LLMProvider string

const (
	LLMProviderOpenAI    LLMProvider = "openai"
	LLMProviderAnthropic LLMProvider = "anthropic"
	LLMProviderGemini    LLMProvider = "gemini"
	LLMProviderGroq      LLMProvider = "groq"
	LLMProviderDeepSeek  LLMProvider = "deepseek"
	LLMProviderCerebras  LLMProvider = "cerebras"
	LLMProviderSambaNova LLMProvider = "sambanova"
)

// defaultHosts maps each provider to its OpenAI-compatible endpoint. Anthropic
// and Gemini use their own wire protocols and ignore this table.
var defaultHosts = map[LLMProvider]string{
	LLMProviderOpenAI:    "https://api.openai.com/v1",
	LLMProviderGroq:      "https://api.groq.com/openai/v1",
	LLMProviderDeepSeek:  "https://api.deepseek.com/v1",
	LLMProviderCerebras:  "https://api.cerebras.ai/v1",
	LLMProviderSambaNova: "https://api.sambanova.ai/v1",
}

// envKeys maps each provider to the environment variable holding its API key.
var envKeys = map[LLMProvider]string{
	LLMProviderOpenAI:    "OPENAI_API_KEY",
	LLMProviderAnthropic: "ANTHROPIC_API_KEY",
	LLMProviderGemini:    "GEMINI_API_KEY",
	LLMProviderGroq:      "GROQ_API_KEY",
	LLMProviderDeepSeek:  "DEEPSEEK_API_KEY",
	LLMProviderCerebras:  "CEREBRAS_API_KEY",
	LLMProviderSambaNova: "SAMBANOVA_API_KEY",
}

// LLMConfig configures a single LLM provider instance.
type LLMConfig struct {
	// Provider type (openai, anthropic, gemini, groq, deepseek, cerebras, sambanova).
	Provider LLMProvider `yaml:"provider,omitempty" json:"provider,omitempty"`

	// Model name (e.g., "gpt-4o", "claude-sonnet-4-20250514").
	Model string `yaml:"model,omitempty" json:"model,omitempty"`

	// APIKey for authentication. Supports ${VAR} expansion; defaults to the
	// provider's environment variable.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty"`

	// BaseURL overrides the default API endpoint.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`

	// Temperature for generation.
	Temperature *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`

	// MaxTokens limits response length.
	MaxTokens int `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`

	// Timeout in seconds for a single provider call.
	Timeout int `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// MaxRetries bounds rate-limit retries (total attempts = MaxRetries + 1).
	MaxRetries int `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`

	// RetryDelay is the backoff base in seconds.
	RetryDelay int `yaml:"retry_delay,omitempty" json:"retry_delay,omitempty"`
}

// ParseModelRef splits a "provider:model" reference into an LLMConfig.
func ParseModelRef(ref string) (LLMConfig, error) {
	provider, model, ok := strings.Cut(ref, ":")
	if !ok || provider == "" || model == "" {
		return LLMConfig{}, fmt.Errorf("invalid model reference %q (expected provider:model)", ref)
	}

	cfg := LLMConfig{
		Provider: LLMProvider(provider),
		Model:    model,
	}
	cfg.SetDefaults()
	return cfg, cfg.Validate()
}

// EnvKey returns the environment variable name holding the API key for this
// provider, or "" for unknown providers.
func (c *LLMConfig) EnvKey() string {
	return envKeys[c.Provider]
}

// DefaultHost returns the provider's default endpoint for OpenAI-compatible
// providers, or "" for providers with a dedicated adapter.
func (c *LLMConfig) DefaultHost() string {
	return defaultHosts[c.Provider]
}

// SetDefaults applies default values.
func (c *LLMConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = LLMProviderOpenAI
	}

	if c.APIKey == "" {
		if key := envKeys[c.Provider]; key != "" {
			c.APIKey = os.Getenv(key)
		}
	}

	if c.BaseURL == "" {
		c.BaseURL = defaultHosts[c.Provider]
	}

	if c.Temperature == nil {
		temp := 0.3
		c.Temperature = &temp
	}

	if c.MaxTokens == 0 {
		c.MaxTokens = 2048
	}

	if c.Timeout == 0 {
		c.Timeout = 60
	}

	if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}

	if c.RetryDelay == 0 {
		c.RetryDelay = 2
	}
}

// Validate checks the LLM configuration. A missing API key for the selected
// provider is a startup error.
func (c *LLMConfig) Validate() error {
	if _, ok := envKeys[c.Provider]; !ok {
		return fmt.Errorf("invalid provider %q (valid: openai, anthropic, gemini, groq, deepseek, cerebras, sambanova)", c.Provider)
	}

	if c.Model == "" {
		return fmt.Errorf("model is required for provider %q", c.Provider)
	}

	if c.APIKey == "" {
		return fmt.Errorf("api_key is required for provider %q (set %s)", c.Provider, envKeys[c.Provider])
	}

	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2")
	}

	return nil
}
