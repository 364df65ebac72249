// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package llm

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/docent/core"
)

// Provider keys.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
	ProviderGemini     = "gemini"
	ProviderMock       = "mock"
)

// Providers lists every supported LLM provider key.
var Providers = []string{ProviderOpenRouter, ProviderOllama, ProviderGemini, ProviderMock}

// Defaults applied by NewConfig.
const (
	DefaultProvider       = ProviderOpenRouter
	DefaultMaxRetries     = 5
	DefaultRetryBaseDelay = time.Second

	DefaultOpenRouterBaseURL  = "https://openrouter.ai/api/v1"
	DefaultOpenRouterModel    = "openai/gpt-3.5-turbo"
	DefaultOpenRouterReferrer = "http://localhost"
	DefaultOpenRouterTitle    = "docent"

	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "llama3.2"

	DefaultGeminiModel = "gemini-2.5-flash"
)

// OpenRouterConfig configures the OpenRouter provider.
type OpenRouterConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Referrer string
	Title    string

	// RPS throttles requests client side. Zero disables throttling.
	RPS float64
}

// OllamaConfig configures the Ollama provider.
type OllamaConfig struct {
	Host  string
	Model string
}

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	// APIKeys is a pool of keys. Each client picks one at random.
	APIKeys []string
	Model   string
}

// Config holds configuration for every LLM provider.
type Config struct {
	// Default is the provider used when a request names none.
	Default string

	// MaxRetries bounds the attempts of a rate limited non-streaming call.
	MaxRetries int

	// RetryBaseDelay is the first backoff delay; it doubles on every attempt.
	RetryBaseDelay time.Duration

	OpenRouter OpenRouterConfig
	Ollama     OllamaConfig
	Gemini     GeminiConfig
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithDefault sets the default provider key.
func WithDefault(key string) ConfigOption {
	return func(c *Config) {
		c.Default = key
	}
}

// WithRetry sets the rate limit retry policy.
func WithRetry(maxRetries int, baseDelay time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryBaseDelay = baseDelay
	}
}

// WithOpenRouter replaces the OpenRouter settings. Empty fields get defaults.
func WithOpenRouter(or OpenRouterConfig) ConfigOption {
	return func(c *Config) {
		c.OpenRouter = or
	}
}

// WithOllama replaces the Ollama settings. Empty fields get defaults.
func WithOllama(o OllamaConfig) ConfigOption {
	return func(c *Config) {
		c.Ollama = o
	}
}

// WithGemini replaces the Gemini settings. Empty fields get defaults.
func WithGemini(g GeminiConfig) ConfigOption {
	return func(c *Config) {
		c.Gemini = g
	}
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// NewConfig creates a Config from options and fills in defaults.
func NewConfig(opts ...ConfigOption) *Config {
	c := &Config{}
	for _, opt := range opts {
		opt(c)
	}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	c.Default = strings.ToLower(strings.TrimSpace(c.Default))
	if c.Default == "" {
		c.Default = DefaultProvider
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryBaseDelay == 0 {
		c.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if c.OpenRouter.BaseURL == "" {
		c.OpenRouter.BaseURL = DefaultOpenRouterBaseURL
	}
	c.OpenRouter.BaseURL = strings.TrimRight(c.OpenRouter.BaseURL, "/")
	if c.OpenRouter.Model == "" {
		c.OpenRouter.Model = DefaultOpenRouterModel
	}
	if c.OpenRouter.Referrer == "" {
		c.OpenRouter.Referrer = DefaultOpenRouterReferrer
	}
	if c.OpenRouter.Title == "" {
		c.OpenRouter.Title = DefaultOpenRouterTitle
	}
	if c.Ollama.Host == "" {
		c.Ollama.Host = DefaultOllamaHost
	}
	if c.Ollama.Model == "" {
		c.Ollama.Model = DefaultOllamaModel
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = DefaultGeminiModel
	}
	c.Gemini.APIKeys = slices.DeleteFunc(c.Gemini.APIKeys, func(k string) bool {
		return strings.TrimSpace(k) == ""
	})
}

// Validate checks the policy values. Missing credentials are not an error
// here; the affected provider is simply not registered.
func (c *Config) Validate() error {
	if !slices.Contains(Providers, c.Default) {
		return fmt.Errorf("%w: %q", core.ErrUnknownProvider, c.Default)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("%w: llm config: MaxRetries must be positive, got %d", core.ErrConfiguration, c.MaxRetries)
	}
	if c.RetryBaseDelay < 0 {
		return fmt.Errorf("%w: llm config: RetryBaseDelay cannot be negative", core.ErrConfiguration)
	}
	if c.OpenRouter.RPS < 0 {
		return fmt.Errorf("%w: llm config: OpenRouter RPS cannot be negative", core.ErrConfiguration)
	}
	return nil
}
