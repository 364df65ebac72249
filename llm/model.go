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
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/poiesic/docent/core"
	"github.com/tmc/langchaingo/llms"
)

// ModelProvider adapts a langchaingo model to Provider and Generator.
type ModelProvider struct {
	name   string
	model  llms.Model
	logger *slog.Logger
}

var (
	_ Provider  = (*ModelProvider)(nil)
	_ Generator = (*ModelProvider)(nil)
)

// NewModelProvider wraps model under the registry key name.
func NewModelProvider(name string, model llms.Model, logger *slog.Logger) *ModelProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelProvider{
		name:   name,
		model:  model,
		logger: logger.With("component", "llm", "provider", name),
	}
}

// Name implements Provider.
func (m *ModelProvider) Name() string { return m.name }

func humanMessage(prompt string) []llms.MessageContent {
	return []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}
}

// Generate implements Generator.
func (m *ModelProvider) Generate(ctx context.Context, prompt string) (string, error) {
	response, err := m.model.GenerateContent(ctx, humanMessage(prompt))
	if err != nil {
		m.logger.Error("failed to generate content", "err", err)
		return "", m.wrap(ctx, err)
	}
	if len(response.Choices) < 1 {
		return "", fmt.Errorf("%w: %s", ErrEmptyResponse, m.name)
	}
	return response.Choices[0].Content, nil
}

// Stream implements Provider through langchaingo's streaming callback.
func (m *ModelProvider) Stream(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return FromCallback(ctx, func(ctx context.Context, emit func(string) error) error {
		_, err := m.model.GenerateContent(ctx, humanMessage(prompt),
			llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
				if len(chunk) == 0 {
					return nil
				}
				return emit(string(chunk))
			}))
		if err != nil {
			m.logger.Error("stream failed", "err", err)
			return m.wrap(ctx, err)
		}
		return nil
	})
}

func (m *ModelProvider) wrap(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %s: %w", core.ErrProviderUnavailable, m.name, err)
}
