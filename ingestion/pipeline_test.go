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

package ingestion

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/docent/ai/mock"
	"github.com/poiesic/docent/chunker"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/extract"
	"github.com/poiesic/docent/ledger"
	"github.com/poiesic/docent/vectorstore"
	"github.com/poiesic/docent/vectorstore/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threeParagraphs = "alpha one.\n\nbeta bad.\n\ngamma three."

func setupPipeline(t *testing.T, embedder *mock.MockEmbedder, opts ...Option) (*Pipeline, vectorstore.Store) {
	t.Helper()
	store, err := badger.NewMemoryStore(mock.DefaultDimension)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	p, err := NewPipeline(store, embedder, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p, store
}

func smallSplitter(t *testing.T) Option {
	t.Helper()
	s, err := chunker.New(15, 0)
	require.NoError(t, err)
	return WithSplitter(s)
}

type stubRecorder struct {
	previous int
	calls    int
}

func (r *stubRecorder) Record(context.Context, *core.Document, *core.IngestResult) (int, error) {
	r.calls++
	return r.previous, nil
}

func TestNewPipeline_RequiresDependencies(t *testing.T) {
	store, err := badger.NewMemoryStore(mock.DefaultDimension)
	require.NoError(t, err)
	defer store.Close()

	_, err = NewPipeline(nil, mock.NewMockEmbedder())
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewPipeline(store, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestIngestText_StoresChunks(t *testing.T) {
	ctx := context.Background()
	p, store := setupPipeline(t, mock.NewMockEmbedder())

	doc := &core.Document{ID: "doc1", Name: "lab.txt"}
	result, err := p.IngestText(ctx, doc, "Lab 5 covers thermodynamics.")
	require.NoError(t, err)

	assert.Equal(t, "doc1", result.DocumentID)
	assert.Equal(t, core.StatusProcessed, result.Status)
	assert.Equal(t, 1, result.TotalChunks)
	assert.Equal(t, 1, result.ChunksStored)
	assert.Equal(t, 1, result.ChunksProcessed)

	payload, err := store.Retrieve(ctx, "doc1_chunk_0")
	require.NoError(t, err)
	require.NotNil(t, payload)
	assert.Equal(t, "doc1", payload.DocumentID)
	assert.Equal(t, "Lab 5 covers thermodynamics.", payload.PageContent)
	assert.Equal(t, "lab.txt", payload.Name)
	assert.Equal(t, 0, payload.ChunkIndex)
	assert.Equal(t, 1, payload.TotalChunks)
	assert.Equal(t, core.ContentHash("Lab 5 covers thermodynamics."), payload.ContentHash)
	assert.Equal(t, mock.DefaultModel, payload.EmbeddingModel)
	assert.False(t, payload.StoredAt.IsZero())
}

func TestIngestText_UnchangedContentIsSkipped(t *testing.T) {
	ctx := context.Background()
	embedder := mock.NewMockEmbedder()
	p, _ := setupPipeline(t, embedder, smallSplitter(t))
	doc := &core.Document{ID: "doc1"}

	first, err := p.IngestText(ctx, doc, threeParagraphs)
	require.NoError(t, err)
	assert.Equal(t, 3, first.ChunksStored)
	assert.Equal(t, 3, embedder.CallCount())

	embedder.Reset()
	second, err := p.IngestText(ctx, doc, threeParagraphs)
	require.NoError(t, err)
	assert.Equal(t, 0, second.ChunksStored)
	assert.Equal(t, 3, second.ChunksSkipped)
	assert.Equal(t, 3, second.ChunksProcessed)
	assert.Equal(t, 0, embedder.CallCount())
}

func TestIngestText_ModelChangeReembeds(t *testing.T) {
	ctx := context.Background()
	store, err := badger.NewMemoryStore(mock.DefaultDimension)
	require.NoError(t, err)
	defer store.Close()
	doc := &core.Document{ID: "doc1"}

	p1, err := NewPipeline(store, mock.NewMockEmbedder())
	require.NoError(t, err)
	defer p1.Release()
	_, err = p1.IngestText(ctx, doc, "Lab 5 covers thermodynamics.")
	require.NoError(t, err)

	other := mock.NewMockEmbedder().WithModel("other-model")
	p2, err := NewPipeline(store, other)
	require.NoError(t, err)
	defer p2.Release()
	result, err := p2.IngestText(ctx, doc, "Lab 5 covers thermodynamics.")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ChunksStored)
	assert.Equal(t, 0, result.ChunksSkipped)
	assert.Equal(t, 1, other.CallCount())

	payload, err := store.Retrieve(ctx, "doc1_chunk_0")
	require.NoError(t, err)
	assert.Equal(t, "other-model", payload.EmbeddingModel)
}

func TestIngestText_ChangedChunkOnlyIsReembedded(t *testing.T) {
	ctx := context.Background()
	embedder := mock.NewMockEmbedder()
	p, _ := setupPipeline(t, embedder, smallSplitter(t))
	doc := &core.Document{ID: "doc1"}

	_, err := p.IngestText(ctx, doc, threeParagraphs)
	require.NoError(t, err)
	embedder.Reset()

	result, err := p.IngestText(ctx, doc, strings.Replace(threeParagraphs, "beta", "delta", 1))
	require.NoError(t, err)
	assert.Equal(t, 1, result.ChunksStored)
	assert.Equal(t, 2, result.ChunksSkipped)
	assert.Equal(t, 1, embedder.CallCount())
}

func TestIngestText_PartialFailure(t *testing.T) {
	ctx := context.Background()
	base := mock.NewMockEmbedder()
	embedder := mock.NewMockEmbedder().WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		if strings.Contains(text, "bad") {
			return nil, errors.New("rate limited")
		}
		return base.EmbedText(ctx, text)
	})
	p, store := setupPipeline(t, embedder, smallSplitter(t))

	result, err := p.IngestText(ctx, &core.Document{ID: "doc1"}, threeParagraphs)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalChunks)
	assert.Equal(t, 2, result.ChunksStored)
	assert.Equal(t, 1, result.ChunksFailed)
	assert.Equal(t, 2, result.ChunksProcessed)

	missing, err := store.Retrieve(ctx, "doc1_chunk_1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	stored, err := store.Retrieve(ctx, "doc1_chunk_2")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "gamma three.", stored.PageContent)
}

func TestIngestText_AllChunksFail(t *testing.T) {
	embedder := mock.NewMockEmbedder().WithEmbedTextFunc(func(context.Context, string) ([]float32, error) {
		return nil, errors.New("provider down")
	})
	p, _ := setupPipeline(t, embedder)

	_, err := p.IngestText(context.Background(), &core.Document{ID: "doc1"}, "some text")
	assert.ErrorIs(t, err, core.ErrNoChunksStored)
}

func TestIngestText_BlankText(t *testing.T) {
	p, _ := setupPipeline(t, mock.NewMockEmbedder())

	_, err := p.IngestText(context.Background(), &core.Document{ID: "doc1"}, "  \n\t ")
	assert.ErrorIs(t, err, core.ErrNoChunksGenerated)
}

func TestIngestText_InvalidDocument(t *testing.T) {
	p, _ := setupPipeline(t, mock.NewMockEmbedder())

	_, err := p.IngestText(context.Background(), &core.Document{ID: " "}, "text")
	assert.ErrorIs(t, err, core.ErrInvalidDocument)
}

func TestIngestText_AfterRelease(t *testing.T) {
	p, _ := setupPipeline(t, mock.NewMockEmbedder())
	p.Release()

	_, err := p.IngestText(context.Background(), &core.Document{ID: "doc1"}, "text")
	assert.ErrorIs(t, err, ErrPipelineReleased)
}

func TestIngestText_WarnsAboutStaleChunks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	recorder := &stubRecorder{previous: 5}
	p, _ := setupPipeline(t, mock.NewMockEmbedder(), WithLogger(logger), WithRecorder(recorder))

	_, err := p.IngestText(context.Background(), &core.Document{ID: "doc1"}, "short now")
	require.NoError(t, err)

	assert.Equal(t, 1, recorder.calls)
	assert.Contains(t, buf.String(), "stale chunks remain")
	assert.Contains(t, buf.String(), "doc1_chunk_1")
	assert.Contains(t, buf.String(), "doc1_chunk_4")
}

func TestIngestText_RecordsInLedger(t *testing.T) {
	ctx := context.Background()
	l, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer l.Close()
	p, _ := setupPipeline(t, mock.NewMockEmbedder(), smallSplitter(t), WithRecorder(l))

	_, err = p.IngestText(ctx, &core.Document{ID: "doc1", Name: "notes.md"}, threeParagraphs)
	require.NoError(t, err)

	entry, err := l.Get(ctx, "doc1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "notes.md", entry.Name)
	assert.Equal(t, 3, entry.TotalChunks)
	assert.Equal(t, 3, entry.ChunksStored)
}

func TestIngestFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "lab.txt")
	require.NoError(t, os.WriteFile(path, []byte("Lab 5 covers thermodynamics."), 0o644))
	blank := filepath.Join(dir, "blank.txt")
	require.NoError(t, os.WriteFile(blank, []byte("   "), 0o644))

	p, store := setupPipeline(t, mock.NewMockEmbedder(), WithExtractor(extract.NewRegistry()))

	doc, err := p.NewDocument("doc1", path, Metadata{UploadedBy: "u1", OrganizationID: "org1"})
	require.NoError(t, err)
	assert.Equal(t, "lab.txt", doc.Name)
	assert.Equal(t, ".txt", doc.FileType)
	assert.Equal(t, int64(len("Lab 5 covers thermodynamics.")), doc.Size)

	_, err = p.IngestFile(ctx, doc)
	require.NoError(t, err)
	payload, err := store.Retrieve(ctx, "doc1_chunk_0")
	require.NoError(t, err)
	require.NotNil(t, payload)
	assert.Equal(t, "u1", payload.UploadedBy)
	assert.Equal(t, "org1", payload.OrganizationID)
	assert.Equal(t, path, payload.Path)

	blankDoc, err := p.NewDocument("doc2", blank, Metadata{})
	require.NoError(t, err)
	_, err = p.IngestFile(ctx, blankDoc)
	assert.ErrorIs(t, err, core.ErrNoContentExtracted)
}

func TestIngestFile_RequiresExtractor(t *testing.T) {
	p, _ := setupPipeline(t, mock.NewMockEmbedder())

	_, err := p.IngestFile(context.Background(), &core.Document{ID: "doc1", Path: "x.txt"})
	assert.ErrorIs(t, err, ErrExtractorRequired)
}

func TestIngestFiles_ReportsPerFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.md")
	require.NoError(t, os.WriteFile(good, []byte("# Notes\n\nSome notes."), 0o644))
	missing := filepath.Join(dir, "missing.txt")

	p, _ := setupPipeline(t, mock.NewMockEmbedder(), WithExtractor(extract.NewRegistry()))

	results := p.IngestFiles(context.Background(), "doc1", []string{good, missing}, Metadata{})
	require.Len(t, results, 2)

	assert.Equal(t, good, results[0].Path)
	require.NoError(t, results[0].Err)
	assert.Equal(t, 1, results[0].Result.ChunksStored)

	assert.Equal(t, missing, results[1].Path)
	assert.ErrorIs(t, results[1].Err, core.ErrFileNotFound)
	assert.Nil(t, results[1].Result)
}

func TestNewDocument_PathErrorsAreCallerErrors(t *testing.T) {
	dir := t.TempDir()
	p, _ := setupPipeline(t, mock.NewMockEmbedder())

	tests := []struct {
		name string
		path string
		want error
	}{
		{"missing file", filepath.Join(dir, "missing.txt"), core.ErrFileNotFound},
		{"directory", dir, core.ErrNotAFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.NewDocument("doc1", tt.path, Metadata{})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, core.IsValidationError(err))
		})
	}
}
