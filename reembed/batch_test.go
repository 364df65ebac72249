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

package reembed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/docent/ai/mock"
	"github.com/poiesic/docent/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEmbedder(model string) *mock.MockEmbedder {
	return mock.NewMockEmbedder().WithModel(model).WithDimension(testDimension)
}

func allPayloads(t *testing.T, it *PayloadIterator) []core.Payload {
	t.Helper()
	var out []core.Payload
	require.NoError(t, it.ForEach(context.Background(), func(p []core.Payload) error {
		out = append(out, p...)
		return nil
	}))
	return out
}

func TestBatchProcessor_Process(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t, "old", map[string]int{"doc1": 3})
	payloads := allPayloads(t, NewPayloadIterator(store, nil, 10))

	embedder := newEmbedder("new")
	processor := NewBatchProcessor(store, embedder, 3, time.Millisecond, false)

	n, err := processor.Process(ctx, payloads)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, embedder.CallCount(), "one batch call per page")

	for _, p := range allPayloads(t, NewPayloadIterator(store, nil, 10)) {
		assert.Equal(t, "new", p.EmbeddingModel)
		assert.Equal(t, core.ContentHash(p.PageContent), p.ContentHash)
	}
}

func TestBatchProcessor_SkipsCurrentModel(t *testing.T) {
	store := setupTestStore(t, "new", map[string]int{"doc1": 3})
	payloads := allPayloads(t, NewPayloadIterator(store, nil, 10))
	embedder := newEmbedder("new")

	n, err := NewBatchProcessor(store, embedder, 3, time.Millisecond, false).Process(context.Background(), payloads)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, embedder.CallCount())

	n, err = NewBatchProcessor(store, embedder, 3, time.Millisecond, true).Process(context.Background(), payloads)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	store := setupTestStore(t, "old", nil)
	embedder := newEmbedder("new")

	n, err := NewBatchProcessor(store, embedder, 3, time.Millisecond, false).Process(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, embedder.CallCount())
}

func TestBatchProcessor_RetriesTransientErrors(t *testing.T) {
	store := setupTestStore(t, "old", map[string]int{"doc1": 2})
	payloads := allPayloads(t, NewPayloadIterator(store, nil, 10))

	var attempts atomic.Int32
	embedder := newEmbedder("new").WithEmbedTextsFunc(func(_ context.Context, texts []string) ([][]float32, error) {
		if attempts.Add(1) < 3 {
			return nil, errors.New("temporary failure")
		}
		out := make([][]float32, len(texts))
		for i := range out {
			out[i] = []float32{0, 1, 0}
		}
		return out, nil
	})

	n, err := NewBatchProcessor(store, embedder, 3, time.Millisecond, false).Process(context.Background(), payloads)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestBatchProcessor_RetriesExhausted(t *testing.T) {
	store := setupTestStore(t, "old", map[string]int{"doc1": 2})
	payloads := allPayloads(t, NewPayloadIterator(store, nil, 10))
	embedder := newEmbedder("new").WithEmbedTextsFunc(func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("still down")
	})

	_, err := NewBatchProcessor(store, embedder, 2, time.Millisecond, false).Process(context.Background(), payloads)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")

	for _, p := range allPayloads(t, NewPayloadIterator(store, nil, 10)) {
		assert.Equal(t, "old", p.EmbeddingModel)
	}
}

func TestBatchProcessor_CountMismatch(t *testing.T) {
	store := setupTestStore(t, "old", map[string]int{"doc1": 2})
	payloads := allPayloads(t, NewPayloadIterator(store, nil, 10))
	embedder := newEmbedder("new").WithEmbedTextsFunc(func(context.Context, []string) ([][]float32, error) {
		return [][]float32{{1, 0, 0}}, nil
	})

	_, err := NewBatchProcessor(store, embedder, 1, time.Millisecond, false).Process(context.Background(), payloads)
	assert.ErrorIs(t, err, ErrEmbeddingCountMismatch)
}
