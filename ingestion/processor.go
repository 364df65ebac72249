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
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/vectorstore"
)

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeStored
	outcomeSkipped
)

// processor handles one chunk of a document.
type processor interface {
	process(ctx context.Context, doc *core.Document, chunk core.Chunk) outcome
}

// chunkProcessor embeds and stores chunks that are not already current.
type chunkProcessor struct {
	store    vectorstore.Store
	embedder ai.Embedder
	now      func() time.Time
	logger   *slog.Logger
}

var _ processor = (*chunkProcessor)(nil)

func newChunkProcessor(store vectorstore.Store, embedder ai.Embedder, now func() time.Time, logger *slog.Logger) *chunkProcessor {
	return &chunkProcessor{
		store:    store,
		embedder: embedder,
		now:      now,
		logger:   logger.With("processor", "chunks"),
	}
}

func (cp *chunkProcessor) process(ctx context.Context, doc *core.Document, chunk core.Chunk) outcome {
	logger := cp.logger.With("document_id", doc.ID, "chunk_id", chunk.ID)
	model := cp.embedder.Model()

	existing, err := cp.store.Retrieve(ctx, chunk.ID)
	if err != nil {
		logger.Warn("cache lookup failed, embedding anyway", "err", err)
	} else if existing.IsCurrent(chunk.ContentHash, model) {
		logger.Debug("chunk unchanged, skipping")
		return outcomeSkipped
	}

	vector, err := cp.embedder.EmbedText(ctx, chunk.Text)
	if err != nil {
		logger.Error("failed to embed chunk", "err", err)
		return outcomeFailed
	}

	point := core.Point{
		ChunkID: chunk.ID,
		Vector:  vector,
		Payload: core.NewPayload(doc, chunk, model, cp.now()),
	}
	if err := cp.store.Upsert(ctx, point); err != nil {
		logger.Error("failed to store chunk", "err", err)
		return outcomeFailed
	}
	logger.Debug("stored chunk", "index", chunk.Index)
	return outcomeStored
}
