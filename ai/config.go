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

package ai

import (
	"fmt"
	"strings"

	"github.com/poiesic/docent/core"
)

// Embedding provider keys.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderVoyage = "voyage"
	ProviderMock   = "mock"
)

// Providers lists every supported embedding provider key.
var Providers = []string{ProviderOpenAI, ProviderOllama, ProviderVoyage, ProviderMock}

// Config holds configuration for the active embedding provider.
type Config struct {
	// Provider selects the embedding backend. Default: "openai".
	Provider string

	// Host is the base URL of the embedding service.
	// Example: "https://api.openai.com/v1", "http://localhost:11434"
	Host string

	// Model is the embedding model identifier. It is stored with every chunk,
	// so changing it invalidates the ingestion cache.
	// Example: "text-embedding-3-small", "nomic-embed-text"
	Model string

	// Dimension is the expected vector length D.
	Dimension int

	// APIKey authenticates against hosted providers.
	APIKey string
}

type providerDefaults struct {
	host      string
	model     string
	dimension int
}

var defaults = map[string]providerDefaults{
	ProviderOpenAI: {host: "https://api.openai.com/v1", model: "text-embedding-3-small", dimension: 1536},
	ProviderOllama: {host: "http://localhost:11434", model: "nomic-embed-text", dimension: 768},
	ProviderVoyage: {host: "https://api.voyageai.com/v1", model: "voyage-3.5-lite", dimension: 1024},
	ProviderMock:   {host: "", model: "mock-embedding", dimension: 384},
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider selects the embedding backend.
func WithProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

// WithHost sets the embedding service base URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithModel sets the embedding model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithDimension sets the expected vector dimension.
func WithDimension(dim int) ConfigOption {
	return func(c *Config) {
		c.Dimension = dim
	}
}

// WithAPIKey sets the provider credential.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// DefaultConfig returns the OpenAI configuration.
func DefaultConfig() *Config {
	d := defaults[ProviderOpenAI]
	return &Config{
		Provider:  ProviderOpenAI,
		Host:      d.host,
		Model:     d.model,
		Dimension: d.dimension,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
// Fields left empty after the options are filled from the selected provider's defaults.
//
// Example:
//
//	cfg := NewConfig(
//	    WithProvider(ProviderOllama),
//	    WithModel("mxbai-embed-large"),
//	    WithDimension(1024),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := &Config{Provider: ProviderOpenAI}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills empty fields from the defaults of the selected provider.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}
	d, ok := defaults[c.Provider]
	if !ok {
		return
	}
	if c.Host == "" {
		c.Host = d.host
	}
	if c.Model == "" {
		c.Model = d.model
	}
	if c.Dimension == 0 {
		c.Dimension = d.dimension
	}
}

// Normalize puts the host in the form each client library expects.
// OpenAI-compatible APIs need the /v1 suffix; the Ollama client adds its own
// /api paths and must not have it.
func (c *Config) Normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Host == "" {
		return
	}
	c.Host = strings.TrimSuffix(c.Host, "/")
	switch c.Provider {
	case ProviderOpenAI:
		if !strings.HasSuffix(c.Host, "/v1") {
			c.Host += "/v1"
		}
	case ProviderOllama:
		c.Host = strings.TrimSuffix(c.Host, "/v1")
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if _, ok := defaults[c.Provider]; !ok {
		return fmt.Errorf("%w: embedding provider %q", core.ErrUnknownProvider, c.Provider)
	}
	if c.Provider != ProviderMock && c.Host == "" {
		return fmt.Errorf("%w: ai config: Host is required", core.ErrConfiguration)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: ai config: Model is required", core.ErrConfiguration)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: ai config: Dimension must be positive", core.ErrConfiguration)
	}
	if c.Provider == ProviderVoyage && c.APIKey == "" {
		return fmt.Errorf("%w: ai config: APIKey is required for voyage", core.ErrConfiguration)
	}
	return nil
}
