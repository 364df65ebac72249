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

// Package mock provides a scripted llm.Provider for tests.
package mock

import (
	"context"
	"iter"
	"sync"

	"github.com/poiesic/docent/llm"
)

// MockProvider streams a fixed list of fragments. It is safe for concurrent use.
type MockProvider struct {
	mu sync.Mutex

	// Fragments are yielded in order by every Stream call.
	Fragments []string

	// Err, if set, is yielded after the fragments.
	Err error

	name    string
	prompts []string
}

var _ llm.Provider = (*MockProvider)(nil)

// NewMockProvider creates a provider named "mock" that streams fragments.
// Note: Returns concrete type to allow test assertions.
func NewMockProvider(fragments ...string) *MockProvider {
	return &MockProvider{Fragments: fragments, name: llm.ProviderMock}
}

// WithName changes the registry key.
func (m *MockProvider) WithName(name string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
	return m
}

// WithError makes every stream end with err.
func (m *MockProvider) WithError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
	return m
}

// Name implements llm.Provider.
func (m *MockProvider) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

// Stream implements llm.Provider.
func (m *MockProvider) Stream(ctx context.Context, prompt string) iter.Seq2[string, error] {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	fragments := append([]string(nil), m.Fragments...)
	streamErr := m.Err
	m.mu.Unlock()

	return func(yield func(string, error) bool) {
		for _, f := range fragments {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			if !yield(f, nil) {
				return
			}
		}
		if streamErr != nil {
			yield("", streamErr)
		}
	}
}

// Prompts returns every prompt received so far.
func (m *MockProvider) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// LastPrompt returns the most recent prompt, or "".
func (m *MockProvider) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}
