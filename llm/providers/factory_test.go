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

package providers

import (
	"context"
	"testing"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MockDefault(t *testing.T) {
	registry, err := New(context.Background(), llm.NewConfig(llm.WithDefault(llm.ProviderMock)), nil)
	require.NoError(t, err)

	p, err := registry.Get("")
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderMock, p.Name())

	assert.Contains(t, registry.Names(), llm.ProviderOllama)
	unavailable := registry.Unavailable()
	assert.Contains(t, unavailable, llm.ProviderOpenRouter)
	assert.Contains(t, unavailable, llm.ProviderGemini)

	_, err = registry.Get(llm.ProviderGemini)
	assert.ErrorIs(t, err, core.ErrUnknownProvider)
}

func TestNew_OpenRouterWithKey(t *testing.T) {
	config := llm.NewConfig(llm.WithOpenRouter(llm.OpenRouterConfig{APIKey: "key"}))
	registry, err := New(context.Background(), config, nil)
	require.NoError(t, err)

	p, err := registry.Get("")
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderOpenRouter, p.Name())
	_, isGenerator := p.(llm.Generator)
	assert.True(t, isGenerator)
}

func TestNew_DefaultWithoutCredentials(t *testing.T) {
	_, err := New(context.Background(), llm.DefaultConfig(), nil)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestNew_UnknownDefault(t *testing.T) {
	_, err := New(context.Background(), llm.NewConfig(llm.WithDefault("claude")), nil)
	assert.ErrorIs(t, err, core.ErrUnknownProvider)
}
