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

// Package providers builds the LLM provider registry from configuration.
package providers

import (
	"context"
	"log/slog"

	"github.com/poiesic/docent/llm"
	"github.com/poiesic/docent/llm/gemini"
	"github.com/poiesic/docent/llm/mock"
	"github.com/poiesic/docent/llm/ollama"
	"github.com/poiesic/docent/llm/openrouter"
)

// New registers every provider that config can construct. Providers
// lacking credentials are recorded as unavailable. The mock provider is
// registered only when it is the default. The default provider must be
// constructible.
func New(ctx context.Context, config *llm.Config, logger *slog.Logger) (*llm.Registry, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "llm-registry")
	registry := llm.NewRegistry(config.Default)

	if p, err := openrouter.New(config, openrouter.WithLogger(logger)); err != nil {
		registry.MarkUnavailable(llm.ProviderOpenRouter, err)
	} else {
		registry.Register(p)
	}

	if p, err := ollama.New(config, logger); err != nil {
		registry.MarkUnavailable(llm.ProviderOllama, err)
	} else {
		registry.Register(p)
	}

	if p, err := gemini.New(ctx, config, logger); err != nil {
		registry.MarkUnavailable(llm.ProviderGemini, err)
	} else {
		registry.Register(p)
	}

	if config.Default == llm.ProviderMock {
		registry.Register(mock.NewMockProvider("This is a mock answer."))
	}

	for key, reason := range registry.Unavailable() {
		logger.Info("llm provider unavailable", "provider", key, "reason", reason)
	}
	if err := registry.Validate(); err != nil {
		return nil, err
	}
	logger.Info("llm providers ready", "providers", registry.Names(), "default", registry.Default())
	return registry, nil
}
