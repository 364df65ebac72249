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

// Package ollama provides an llm.Provider backed by a local Ollama server.
package ollama

import (
	"fmt"
	"log/slog"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/llm"
	"github.com/tmc/langchaingo/llms/ollama"
)

// New creates the Ollama provider from config.Ollama.
func New(config *llm.Config, logger *slog.Logger) (*llm.ModelProvider, error) {
	model, err := ollama.New(
		ollama.WithServerURL(config.Ollama.Host),
		ollama.WithModel(config.Ollama.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama: %w", core.ErrConfiguration, err)
	}
	return llm.NewModelProvider(llm.ProviderOllama, model, logger), nil
}
