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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, BackendQdrant, cfg.VectorStore.Backend)
	assert.Equal(t, "bot_documents", cfg.VectorStore.Qdrant.Collection)
	assert.Equal(t, float32(0.65), cfg.Retrieval.ScoreThreshold)
	assert.Equal(t, 1000, cfg.Chunking.Size)
	assert.Equal(t, 100, cfg.Chunking.Overlap)
	assert.Equal(t, llm.ProviderOpenRouter, cfg.LLM.Provider)
	assert.Equal(t, time.Second, time.Duration(cfg.LLM.RetryBaseDelay))
	assert.Equal(t, ":8000", cfg.Server.Addr)
}

func TestLoadFile(t *testing.T) {
	yamlDoc := `
embeddings:
  provider: mock
vector_store:
  backend: badger
  badger_path: /tmp/vectors
retrieval:
  score_threshold: 0.5
llm:
  provider: ollama
  retry_base_delay: 250ms
  ollama:
    model: mistral
`
	tomlDoc := `
[embeddings]
provider = "mock"

[vector_store]
backend = "badger"
badger_path = "/tmp/vectors"

[retrieval]
score_threshold = 0.5

[llm]
provider = "ollama"
retry_base_delay = "250ms"

[llm.ollama]
model = "mistral"
`
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"yaml", "docent.yaml", yamlDoc},
		{"yml", "docent.yml", yamlDoc},
		{"toml", "docent.toml", tomlDoc},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			require.NoError(t, cfg.loadFile(writeFile(t, tt.file, tt.content)))

			assert.Equal(t, ai.ProviderMock, cfg.Embeddings.Provider)
			assert.Equal(t, BackendBadger, cfg.VectorStore.Backend)
			assert.Equal(t, "/tmp/vectors", cfg.VectorStore.BadgerPath)
			assert.Equal(t, float32(0.5), cfg.Retrieval.ScoreThreshold)
			assert.Equal(t, llm.ProviderOllama, cfg.LLM.Provider)
			assert.Equal(t, 250*time.Millisecond, time.Duration(cfg.LLM.RetryBaseDelay))
			assert.Equal(t, "mistral", cfg.LLM.Ollama.Model)
			// Sections absent from the file keep their defaults.
			assert.Equal(t, 1000, cfg.Chunking.Size)
			assert.Equal(t, ":8000", cfg.Server.Addr)
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	cfg := Default()

	err := cfg.loadFile(writeFile(t, "docent.json", "{}"))
	assert.ErrorIs(t, err, core.ErrConfiguration)

	err = cfg.loadFile(writeFile(t, "docent.yaml", "embeddings: [unclosed"))
	assert.ErrorIs(t, err, core.ErrConfiguration)

	err = cfg.loadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"EMBEDDINGS_PROVIDER":    "voyage",
		"VOYAGE_API_KEY":         "vk",
		"VOYAGE_BASE_URL":        "https://voyage.example/v1",
		"OPENAI_API_KEY":         "ignored-for-voyage",
		"EMBEDDING_DIM":          "512",
		"VECTOR_STORE":           "badger",
		"BADGER_PATH":            "/data/v",
		"QDRANT_PORT":            "7000",
		"QDRANT_SCORE_THRESHOLD": "0.7",
		"CHUNK_SIZE":             "800",
		"CHUNK_OVERLAP":          "80",
		"LLM_PROVIDER":           "gemini",
		"LLM_MAX_RETRIES":        "2",
		"LLM_RETRY_BASE_DELAY":   "0.5",
		"OPENROUTER_RPS":         "3",
		"LLAMA3_API_KEY":         "http://ollama:11434",
		"GOOGLE_API_KEY":         "g0",
		"GOOGLE_API_KEY2":        "g2",
		"GOOGLE_API_KEY3":        "  ",
		"SERVER_ADDR":            ":9000",
	}))
	require.NoError(t, err)

	assert.Equal(t, "vk", cfg.Embeddings.APIKey)
	assert.Equal(t, "https://voyage.example/v1", cfg.Embeddings.BaseURL)
	assert.Equal(t, 512, cfg.Embeddings.Dimension)
	assert.Equal(t, BackendBadger, cfg.VectorStore.Backend)
	assert.Equal(t, "/data/v", cfg.VectorStore.BadgerPath)
	assert.Equal(t, 7000, cfg.VectorStore.Qdrant.Port)
	assert.Equal(t, float32(0.7), cfg.Retrieval.ScoreThreshold)
	assert.Equal(t, 800, cfg.Chunking.Size)
	assert.Equal(t, 80, cfg.Chunking.Overlap)
	assert.Equal(t, llm.ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, 2, cfg.LLM.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, time.Duration(cfg.LLM.RetryBaseDelay))
	assert.Equal(t, 3.0, cfg.LLM.OpenRouter.RPS)
	assert.Equal(t, "http://ollama:11434", cfg.LLM.Ollama.Host)
	assert.Equal(t, []string{"g0", "g2"}, cfg.LLM.Gemini.APIKeys)
	assert.Equal(t, ":9000", cfg.Server.Addr)
}

func TestApplyEnvReportsEveryBadValue(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"QDRANT_PORT":          "http",
		"LLM_RETRY_BASE_DELAY": "soon",
	}))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConfiguration)
	assert.Contains(t, err.Error(), "QDRANT_PORT")
	assert.Contains(t, err.Error(), "LLM_RETRY_BASE_DELAY")
	assert.Equal(t, 6333, cfg.VectorStore.Qdrant.Port)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Embeddings.Provider = ai.ProviderMock
		cfg.LLM.Provider = llm.ProviderMock
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.VectorStore.Backend = "pinecone" }},
		{"badger without path", func(c *Config) {
			c.VectorStore.Backend = BackendBadger
			c.VectorStore.BadgerPath = ""
		}},
		{"overlap too large", func(c *Config) { c.Chunking.Overlap = c.Chunking.Size }},
		{"threshold above one", func(c *Config) { c.Retrieval.ScoreThreshold = 1.5 }},
		{"zero limit", func(c *Config) { c.Retrieval.Limit = 0 }},
		{"negative workers", func(c *Config) { c.Ingestion.Workers = -1 }},
		{"unknown llm provider", func(c *Config) { c.LLM.Provider = "claude" }},
		{"unknown embeddings provider", func(c *Config) { c.Embeddings.Provider = "cohere" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), core.ErrConfiguration)
		})
	}
}

func TestConverters(t *testing.T) {
	cfg := Default()
	cfg.Embeddings.Provider = ai.ProviderOllama
	cfg.LLM.OpenRouter.APIKey = "or"
	cfg.LLM.Gemini.APIKeys = []string{"g"}
	cfg.VectorStore.Qdrant.HTTPS = true

	aiCfg := cfg.AI()
	assert.Equal(t, "nomic-embed-text", aiCfg.Model)
	assert.Equal(t, 768, aiCfg.Dimension)

	llmCfg := cfg.LLMConfig()
	assert.Equal(t, "or", llmCfg.OpenRouter.APIKey)
	assert.Equal(t, llm.DefaultOpenRouterModel, llmCfg.OpenRouter.Model)
	assert.Equal(t, []string{"g"}, llmCfg.Gemini.APIKeys)

	q := cfg.Qdrant()
	assert.True(t, q.HTTPS)
	assert.Equal(t, 6333, q.Port)

	s, err := cfg.Splitter()
	require.NoError(t, err)
	assert.Equal(t, 1000, s.ChunkSize())
}
