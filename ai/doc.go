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

// Package ai provides the embedding abstraction used by docent.
//
// Every backend implements Embedder. Callers never see a concrete type:
// the embedders package selects a variant from Config.Provider and wraps it
// with NewCheckedEmbedder, which enforces the configured dimension and maps
// transport failures onto core.ErrProviderUnavailable.
//
// # Implementation Packages
//
//   - ai/openai: any OpenAI-compatible /v1/embeddings endpoint (langchaingo)
//   - ai/ollama: a local Ollama server (langchaingo)
//   - ai/voyage: the Voyage AI REST API
//   - ai/mock: deterministic vectors for tests and offline runs
//
// Public constructors in the implementation packages return ai.Embedder.
// mock.NewMockEmbedder returns the concrete type so tests can inject
// behavior and assert on call counts.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithProvider(ai.ProviderOllama))
//	embedder, err := embedders.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vector, err := embedder.EmbedText(ctx, "Lab 5 covers thermodynamics.")
package ai
