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

// Package config loads the application configuration.
//
// Values are resolved in four layers, each overriding the previous one:
// built-in defaults, an optional YAML or TOML file, a .env file and the
// process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/chunker"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/llm"
	"github.com/poiesic/docent/search"
	"github.com/poiesic/docent/vectorstore/qdrant"
	"gopkg.in/yaml.v3"
)

// Vector store backends.
const (
	BackendBadger = "badger"
	BackendQdrant = "qdrant"
)

// Duration is a time.Duration read from "1.5s" style strings or a plain
// number of seconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := parseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

// EmbeddingsConfig selects the embedding provider.
type EmbeddingsConfig struct {
	Provider  string `yaml:"provider" toml:"provider"`
	Model     string `yaml:"model" toml:"model"`
	Dimension int    `yaml:"dimension" toml:"dimension"`
	BaseURL   string `yaml:"base_url" toml:"base_url"`
	APIKey    string `yaml:"api_key" toml:"api_key"`
}

// QdrantConfig locates the Qdrant collection.
type QdrantConfig struct {
	Host       string `yaml:"host" toml:"host"`
	Port       int    `yaml:"port" toml:"port"`
	APIKey     string `yaml:"api_key" toml:"api_key"`
	Collection string `yaml:"collection" toml:"collection"`
	HTTPS      bool   `yaml:"https" toml:"https"`
}

// VectorStoreConfig selects the vector store backend.
type VectorStoreConfig struct {
	Backend    string       `yaml:"backend" toml:"backend"`
	BadgerPath string       `yaml:"badger_path" toml:"badger_path"`
	Qdrant     QdrantConfig `yaml:"qdrant" toml:"qdrant"`
}

// RetrievalConfig tunes the retrieval service.
type RetrievalConfig struct {
	ScoreThreshold float32 `yaml:"score_threshold" toml:"score_threshold"`
	Limit          int     `yaml:"limit" toml:"limit"`
}

// ChunkingConfig sizes chunks in characters.
type ChunkingConfig struct {
	Size    int `yaml:"size" toml:"size"`
	Overlap int `yaml:"overlap" toml:"overlap"`
}

// IngestionConfig tunes the ingestion pipeline.
type IngestionConfig struct {
	Workers    int    `yaml:"workers" toml:"workers"`
	LedgerPath string `yaml:"ledger_path" toml:"ledger_path"`
}

// OpenRouterConfig configures the OpenRouter provider.
type OpenRouterConfig struct {
	APIKey   string  `yaml:"api_key" toml:"api_key"`
	BaseURL  string  `yaml:"base_url" toml:"base_url"`
	Model    string  `yaml:"model" toml:"model"`
	Referrer string  `yaml:"referrer" toml:"referrer"`
	Title    string  `yaml:"title" toml:"title"`
	RPS      float64 `yaml:"rps" toml:"rps"`
}

// OllamaConfig configures the Ollama provider.
type OllamaConfig struct {
	Host  string `yaml:"host" toml:"host"`
	Model string `yaml:"model" toml:"model"`
}

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	APIKeys []string `yaml:"api_keys" toml:"api_keys"`
	Model   string   `yaml:"model" toml:"model"`
}

// LLMConfig selects and configures the language model providers.
type LLMConfig struct {
	Provider       string           `yaml:"provider" toml:"provider"`
	MaxRetries     int              `yaml:"max_retries" toml:"max_retries"`
	RetryBaseDelay Duration         `yaml:"retry_base_delay" toml:"retry_base_delay"`
	OpenRouter     OpenRouterConfig `yaml:"openrouter" toml:"openrouter"`
	Ollama         OllamaConfig     `yaml:"ollama" toml:"ollama"`
	Gemini         GeminiConfig     `yaml:"gemini" toml:"gemini"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// Config is the root application configuration.
type Config struct {
	Embeddings  EmbeddingsConfig  `yaml:"embeddings" toml:"embeddings"`
	VectorStore VectorStoreConfig `yaml:"vector_store" toml:"vector_store"`
	Retrieval   RetrievalConfig   `yaml:"retrieval" toml:"retrieval"`
	Chunking    ChunkingConfig    `yaml:"chunking" toml:"chunking"`
	Ingestion   IngestionConfig   `yaml:"ingestion" toml:"ingestion"`
	LLM         LLMConfig         `yaml:"llm" toml:"llm"`
	Server      ServerConfig      `yaml:"server" toml:"server"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Embeddings: EmbeddingsConfig{Provider: ai.ProviderOpenAI},
		VectorStore: VectorStoreConfig{
			Backend:    BackendQdrant,
			BadgerPath: "data/vectors",
			Qdrant: QdrantConfig{
				Host:       qdrant.DefaultHost,
				Port:       qdrant.DefaultPort,
				Collection: qdrant.DefaultCollection,
			},
		},
		Retrieval: RetrievalConfig{
			ScoreThreshold: search.DefaultScoreThreshold,
			Limit:          search.DefaultLimit,
		},
		Chunking: ChunkingConfig{
			Size:    chunker.DefaultChunkSize,
			Overlap: chunker.DefaultOverlap,
		},
		Ingestion: IngestionConfig{LedgerPath: "data/ledger.db"},
		LLM: LLMConfig{
			Provider:       llm.DefaultProvider,
			MaxRetries:     llm.DefaultMaxRetries,
			RetryBaseDelay: Duration(llm.DefaultRetryBaseDelay),
		},
		Server: ServerConfig{Addr: ":8000"},
	}
}

// Load builds the configuration from defaults, the file at path (skipped
// when path is empty), a .env file in the working directory and the
// environment. Existing environment variables win over .env entries.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: .env: %w", core.ErrConfiguration, err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %w", core.ErrConfiguration, path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		return fmt.Errorf("%w: unsupported config file type %q", core.ErrConfiguration, filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("%w: parsing %s: %w", core.ErrConfiguration, path, err)
	}
	return nil
}

// Validate checks every section and wraps failures in core.ErrConfiguration.
func (c *Config) Validate() error {
	var errs []error
	if err := c.AI().Validate(); err != nil {
		errs = append(errs, asConfigError("embeddings", err))
	}
	if err := c.LLMConfig().Validate(); err != nil {
		errs = append(errs, asConfigError("llm", err))
	}
	switch c.VectorStore.Backend {
	case BackendBadger:
		if c.VectorStore.BadgerPath == "" {
			errs = append(errs, fmt.Errorf("%w: vector store: badger path is required", core.ErrConfiguration))
		}
	case BackendQdrant:
		if err := c.Qdrant().Validate(); err != nil {
			errs = append(errs, err)
		}
	default:
		errs = append(errs, fmt.Errorf("%w: vector store: unknown backend %q", core.ErrConfiguration, c.VectorStore.Backend))
	}
	if _, err := c.Splitter(); err != nil {
		errs = append(errs, err)
	}
	if t := c.Retrieval.ScoreThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("%w: retrieval: score threshold %v outside [0, 1]", core.ErrConfiguration, t))
	}
	if c.Retrieval.Limit < 1 {
		errs = append(errs, fmt.Errorf("%w: retrieval: limit must be positive", core.ErrConfiguration))
	}
	if c.Ingestion.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: ingestion: workers cannot be negative", core.ErrConfiguration))
	}
	return errors.Join(errs...)
}

// asConfigError keeps sentinels like core.ErrUnknownProvider visible while
// classifying the failure as a configuration error.
func asConfigError(section string, err error) error {
	if errors.Is(err, core.ErrConfiguration) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", core.ErrConfiguration, section, err)
}

// AI returns the embedding provider configuration with defaults applied.
func (c *Config) AI() *ai.Config {
	return ai.NewConfig(
		ai.WithProvider(c.Embeddings.Provider),
		ai.WithHost(c.Embeddings.BaseURL),
		ai.WithModel(c.Embeddings.Model),
		ai.WithDimension(c.Embeddings.Dimension),
		ai.WithAPIKey(c.Embeddings.APIKey),
	)
}

// LLMConfig returns the LLM provider configuration with defaults applied.
func (c *Config) LLMConfig() *llm.Config {
	return llm.NewConfig(
		llm.WithDefault(c.LLM.Provider),
		llm.WithRetry(c.LLM.MaxRetries, time.Duration(c.LLM.RetryBaseDelay)),
		llm.WithOpenRouter(llm.OpenRouterConfig(c.LLM.OpenRouter)),
		llm.WithOllama(llm.OllamaConfig(c.LLM.Ollama)),
		llm.WithGemini(llm.GeminiConfig{APIKeys: append([]string(nil), c.LLM.Gemini.APIKeys...), Model: c.LLM.Gemini.Model}),
	)
}

// Qdrant returns the Qdrant client configuration.
func (c *Config) Qdrant() qdrant.Config {
	q := qdrant.DefaultConfig()
	q.Host = c.VectorStore.Qdrant.Host
	q.Port = c.VectorStore.Qdrant.Port
	q.APIKey = c.VectorStore.Qdrant.APIKey
	q.Collection = c.VectorStore.Qdrant.Collection
	q.HTTPS = c.VectorStore.Qdrant.HTTPS
	return q
}

// Splitter builds the chunker for the configured sizes.
func (c *Config) Splitter() (*chunker.Splitter, error) {
	return chunker.New(c.Chunking.Size, c.Chunking.Overlap)
}
