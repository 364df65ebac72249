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

package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/poiesic/docent/ai"
)

const (
	// DefaultModel is the model name reported by a fresh MockEmbedder.
	DefaultModel = "mock-embedding"

	// DefaultDimension is the vector length of a fresh MockEmbedder.
	DefaultDimension = 384
)

// MockEmbedder is a test double for ai.Embedder. It is safe for concurrent use.
type MockEmbedder struct {
	mu sync.Mutex

	// EmbedTextFunc is called by EmbedText if set.
	// If nil, uses default deterministic behavior.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc is called by EmbedTexts if set.
	// If nil, uses default deterministic behavior.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	model     string
	dimension int
	callCount int
}

var _ ai.Embedder = (*MockEmbedder)(nil)

// NewMockEmbedder creates a mock embedder with default deterministic behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{model: DefaultModel, dimension: DefaultDimension}
}

// NewEmbedder builds a mock embedder from configuration.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	m := NewMockEmbedder()
	m.model = config.Model
	m.dimension = config.Dimension
	return m, nil
}

// WithEmbedTextFunc injects EmbedText behavior.
func (m *MockEmbedder) WithEmbedTextFunc(fn func(ctx context.Context, text string) ([]float32, error)) *MockEmbedder {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EmbedTextFunc = fn
	return m
}

// WithEmbedTextsFunc injects EmbedTexts behavior.
func (m *MockEmbedder) WithEmbedTextsFunc(fn func(ctx context.Context, texts []string) ([][]float32, error)) *MockEmbedder {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EmbedTextsFunc = fn
	return m
}

// WithModel changes the reported model name.
func (m *MockEmbedder) WithModel(model string) *MockEmbedder {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.model = model
	return m
}

// WithDimension changes the vector length.
func (m *MockEmbedder) WithDimension(dim int) *MockEmbedder {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dimension = dim
	return m
}

// EmbedText generates a deterministic embedding based on the words of text.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.callCount++
	fn := m.EmbedTextFunc
	dim := m.dimension
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}
	return generateDeterministicVector(text, dim), nil
}

// EmbedTexts generates deterministic embeddings for multiple texts.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.callCount++
	fn := m.EmbedTextsFunc
	dim := m.dimension
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, texts)
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = generateDeterministicVector(text, dim)
	}
	return vectors, nil
}

// Model returns the reported model name.
func (m *MockEmbedder) Model() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model
}

// Dimension returns the vector length.
func (m *MockEmbedder) Dimension() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dimension
}

// CallCount returns the number of times any embedding method was called.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockEmbedder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
}

// generateDeterministicVector maps text onto a unit vector: a constant
// baseline in every component plus a weight in one FNV bucket per word.
func generateDeterministicVector(text string, dim int) []float32 {
	vector := make([]float32, dim)
	for i := range vector {
		vector[i] = 1
	}
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		vector[h.Sum32()%uint32(dim)] += 4
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	norm := float32(1 / math.Sqrt(sumSquares))
	for i := range vector {
		vector[i] *= norm
	}
	return vector
}
