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

// Package embedders selects the configured ai.Embedder variant.
package embedders

import (
	"fmt"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/ai/mock"
	"github.com/poiesic/docent/ai/ollama"
	"github.com/poiesic/docent/ai/openai"
	"github.com/poiesic/docent/ai/voyage"
	"github.com/poiesic/docent/core"
)

// New validates config and returns the selected embedder wrapped with
// ai.NewCheckedEmbedder. An unrecognized provider key returns
// core.ErrUnknownProvider.
func New(config *ai.Config) (ai.Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		embedder ai.Embedder
		err      error
	)
	switch config.Provider {
	case ai.ProviderOpenAI:
		embedder, err = openai.NewEmbedder(config)
	case ai.ProviderOllama:
		embedder, err = ollama.NewEmbedder(config)
	case ai.ProviderVoyage:
		embedder, err = voyage.NewEmbedder(config)
	case ai.ProviderMock:
		embedder, err = mock.NewEmbedder(config)
	default:
		return nil, fmt.Errorf("%w: embedding provider %q", core.ErrUnknownProvider, config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s embedder: %w", core.ErrConfiguration, config.Provider, err)
	}
	return ai.NewCheckedEmbedder(embedder), nil
}
