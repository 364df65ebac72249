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

// Package gemini provides an llm.Provider backed by Google's Gemini API.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/llm"
	"github.com/tmc/langchaingo/llms/googleai"
)

// PickKey returns one key of the pool at random.
func PickKey(keys []string) (string, error) {
	if len(keys) == 0 {
		return "", fmt.Errorf("%w: no Google API key configured", core.ErrConfiguration)
	}
	return keys[rand.IntN(len(keys))], nil
}

// New creates the Gemini provider using a random key of config.Gemini.APIKeys.
func New(ctx context.Context, config *llm.Config, logger *slog.Logger) (*llm.ModelProvider, error) {
	key, err := PickKey(config.Gemini.APIKeys)
	if err != nil {
		return nil, err
	}
	model, err := googleai.New(ctx,
		googleai.WithAPIKey(key),
		googleai.WithDefaultModel(config.Gemini.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini: %w", core.ErrConfiguration, err)
	}
	return llm.NewModelProvider(llm.ProviderGemini, model, logger), nil
}
