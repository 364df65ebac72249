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

package search

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/poiesic/docent/ai/mock"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/vectorstore"
	"github.com/poiesic/docent/vectorstore/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedEmbedder always embeds to the unit x axis.
func fixedEmbedder() *mock.MockEmbedder {
	return mock.NewMockEmbedder().WithDimension(3).WithEmbedTextFunc(func(context.Context, string) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	})
}

func putPoint(t *testing.T, store vectorstore.Store, docID string, index int, text string, vector []float32) {
	t.Helper()
	doc := &core.Document{ID: docID}
	chunk := core.NewChunks(docID, []string{text})[0]
	chunk.ID = core.ChunkID(docID, index)
	chunk.Index = index
	require.NoError(t, store.Upsert(context.Background(), core.Point{
		ChunkID: chunk.ID,
		Vector:  vector,
		Payload: core.NewPayload(doc, chunk, mock.DefaultModel, time.Now().UTC()),
	}))
}

func setupStore(t *testing.T) vectorstore.Store {
	t.Helper()
	store, err := badger.NewMemoryStore(3)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	putPoint(t, store, "doc1", 0, "Lab 5 covers thermodynamics.", []float32{1, 0, 0})
	putPoint(t, store, "doc1", 1, "Lab 6 covers optics.", []float32{0.8, 0.6, 0})
	putPoint(t, store, "doc1", 2, "Cafeteria menu.", []float32{0, 1, 0})
	putPoint(t, store, "doc2", 0, "Lab 5 is cancelled.", []float32{0.9, 0.1, 0})
	return store
}

func TestNewSearcher(t *testing.T) {
	store := setupStore(t)
	embedder := fixedEmbedder()

	t.Run("valid configuration", func(t *testing.T) {
		s, err := NewSearcher(store, embedder)
		require.NoError(t, err)
		assert.Equal(t, DefaultScoreThreshold, s.Threshold())
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		s, err := NewSearcher(store, embedder, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, s)
	})

	t.Run("with custom logger", func(t *testing.T) {
		s, err := NewSearcher(store, embedder, WithLogger(slog.Default()))
		require.NoError(t, err)
		assert.NotNil(t, s)
	})

	t.Run("nil store", func(t *testing.T) {
		_, err := NewSearcher(nil, embedder)
		assert.Equal(t, ErrStoreRequired, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewSearcher(store, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})

	t.Run("invalid threshold", func(t *testing.T) {
		_, err := NewSearcher(store, embedder, WithScoreThreshold(1.5))
		assert.ErrorIs(t, err, core.ErrConfiguration)
		assert.ErrorIs(t, err, ErrInvalidThreshold)
	})

	t.Run("invalid limit", func(t *testing.T) {
		_, err := NewSearcher(store, embedder, WithLimit(0))
		assert.ErrorIs(t, err, core.ErrConfiguration)
	})
}

func TestRetrieve_NoDocumentsSkipsEmbedding(t *testing.T) {
	embedder := fixedEmbedder()
	s, err := NewSearcher(setupStore(t), embedder)
	require.NoError(t, err)

	results, err := s.Retrieve(context.Background(), "what does lab 5 cover?", nil, 0)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Equal(t, 0, embedder.CallCount())
}

func TestRetrieve_ScopedToDocuments(t *testing.T) {
	s, err := NewSearcher(setupStore(t), fixedEmbedder())
	require.NoError(t, err)

	results, err := s.Retrieve(context.Background(), "what does lab 5 cover?", []string{"doc1"}, 0)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "doc1_chunk_0", results[0].Payload.ChunkID)
	assert.Equal(t, "doc1_chunk_1", results[1].Payload.ChunkID)
	for _, r := range results {
		assert.Equal(t, "doc1", r.Payload.DocumentID)
		assert.GreaterOrEqual(t, r.Score, DefaultScoreThreshold)
	}
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestRetrieve_SeveralDocuments(t *testing.T) {
	s, err := NewSearcher(setupStore(t), fixedEmbedder())
	require.NoError(t, err)

	results, err := s.Retrieve(context.Background(), "lab 5", []string{"doc1", "doc2"}, 0)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "doc1_chunk_0", results[0].Payload.ChunkID)
	assert.Equal(t, "doc2_chunk_0", results[1].Payload.ChunkID)
	assert.Equal(t, "doc1_chunk_1", results[2].Payload.ChunkID)
}

func TestRetrieve_UnknownDocument(t *testing.T) {
	s, err := NewSearcher(setupStore(t), fixedEmbedder())
	require.NoError(t, err)

	results, err := s.Retrieve(context.Background(), "lab 5", []string{"nope"}, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieve_LimitAndThreshold(t *testing.T) {
	store := setupStore(t)

	s, err := NewSearcher(store, fixedEmbedder(), WithScoreThreshold(0))
	require.NoError(t, err)
	results, err := s.Retrieve(context.Background(), "lab 5", []string{"doc1"}, 0)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	results, err = s.Retrieve(context.Background(), "lab 5", []string{"doc1"}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc1_chunk_0", results[0].Payload.ChunkID)

	limited, err := NewSearcher(store, fixedEmbedder(), WithScoreThreshold(0), WithLimit(2))
	require.NoError(t, err)
	results, err = limited.Retrieve(context.Background(), "lab 5", []string{"doc1"}, 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRetrieve_EmbedderError(t *testing.T) {
	embedder := mock.NewMockEmbedder().WithDimension(3).WithEmbedTextFunc(func(context.Context, string) ([]float32, error) {
		return nil, core.ErrProviderUnavailable
	})
	s, err := NewSearcher(setupStore(t), embedder)
	require.NoError(t, err)

	trace := &Trace{}
	_, err = s.RetrieveWithMonitor(context.Background(), "lab 5", []string{"doc1"}, 0, trace)
	assert.ErrorIs(t, err, core.ErrProviderUnavailable)
	assert.True(t, errors.Is(trace.Err, core.ErrProviderUnavailable))
}

func TestRetrieveWithMonitor_Trace(t *testing.T) {
	s, err := NewSearcher(setupStore(t), fixedEmbedder())
	require.NoError(t, err)

	trace := &Trace{}
	results, err := s.RetrieveWithMonitor(context.Background(), "lab 5", []string{"doc1"}, 0, trace)
	require.NoError(t, err)

	assert.Equal(t, "lab 5", trace.Question)
	assert.Equal(t, []string{"doc1"}, trace.DocumentIDs)
	assert.Equal(t, 3, trace.Dimension)
	assert.Equal(t, len(results), trace.Hits)
	assert.NoError(t, trace.Err)
}
