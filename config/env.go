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
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
)

// LookupFunc reads one environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides the configuration with environment variables. Empty
// values are ignored.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	e := envReader{lookup: lookup}

	e.str("EMBEDDINGS_PROVIDER", &c.Embeddings.Provider)
	e.str("EMBEDDINGS_MODEL", &c.Embeddings.Model)
	e.integer("EMBEDDING_DIM", &c.Embeddings.Dimension)
	e.str("EMBEDDINGS_BASE_URL", &c.Embeddings.BaseURL)
	switch strings.ToLower(c.Embeddings.Provider) {
	case ai.ProviderOpenAI:
		e.str("OPENAI_API_KEY", &c.Embeddings.APIKey)
	case ai.ProviderVoyage:
		e.str("VOYAGE_API_KEY", &c.Embeddings.APIKey)
		e.str("VOYAGE_BASE_URL", &c.Embeddings.BaseURL)
	}

	e.str("VECTOR_STORE", &c.VectorStore.Backend)
	e.str("BADGER_PATH", &c.VectorStore.BadgerPath)
	e.str("QDRANT_HOST", &c.VectorStore.Qdrant.Host)
	e.integer("QDRANT_PORT", &c.VectorStore.Qdrant.Port)
	e.str("QDRANT_API_KEY", &c.VectorStore.Qdrant.APIKey)
	e.str("QDRANT_COLLECTION_NAME", &c.VectorStore.Qdrant.Collection)
	e.float32("QDRANT_SCORE_THRESHOLD", &c.Retrieval.ScoreThreshold)
	e.integer("RETRIEVAL_LIMIT", &c.Retrieval.Limit)

	e.integer("CHUNK_SIZE", &c.Chunking.Size)
	e.integer("CHUNK_OVERLAP", &c.Chunking.Overlap)
	e.integer("INGEST_WORKERS", &c.Ingestion.Workers)
	e.str("LEDGER_PATH", &c.Ingestion.LedgerPath)

	e.str("LLM_PROVIDER", &c.LLM.Provider)
	e.integer("LLM_MAX_RETRIES", &c.LLM.MaxRetries)
	e.duration("LLM_RETRY_BASE_DELAY", &c.LLM.RetryBaseDelay)
	e.str("OPENROUTER_API_KEY", &c.LLM.OpenRouter.APIKey)
	e.str("OPENROUTER_MODEL", &c.LLM.OpenRouter.Model)
	e.str("OPENROUTER_BASE_URL", &c.LLM.OpenRouter.BaseURL)
	e.str("OPENROUTER_REFERRER", &c.LLM.OpenRouter.Referrer)
	e.str("OPENROUTER_TITLE", &c.LLM.OpenRouter.Title)
	e.float64("OPENROUTER_RPS", &c.LLM.OpenRouter.RPS)
	e.str("LLAMA3_API_KEY", &c.LLM.Ollama.Host)
	e.str("OLLAMA_MODEL", &c.LLM.Ollama.Model)
	e.str("GEMINI_MODEL", &c.LLM.Gemini.Model)

	var keys []string
	for _, name := range []string{"GOOGLE_API_KEY", "GOOGLE_API_KEY1", "GOOGLE_API_KEY2", "GOOGLE_API_KEY3"} {
		if v, ok := e.get(name); ok {
			keys = append(keys, v)
		}
	}
	if len(keys) > 0 {
		c.LLM.Gemini.APIKeys = keys
	}

	e.str("SERVER_ADDR", &c.Server.Addr)

	return errors.Join(e.errs...)
}

type envReader struct {
	lookup LookupFunc
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) fail(key, value string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%w: %s=%q: %w", core.ErrConfiguration, key, value, err))
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = n
}

func (e *envReader) float64(key string, dst *float64) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = f
}

func (e *envReader) float32(key string, dst *float32) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = float32(f)
}

func (e *envReader) duration(key string, dst *Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	d, err := parseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = Duration(d)
}
