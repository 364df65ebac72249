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
	"fmt"
	"time"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/retry"
	"github.com/poiesic/docent/vectorstore"
)

// BatchProcessor re-embeds one page of chunks.
type BatchProcessor struct {
	store          vectorstore.Store
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
	force          bool
	now            func() time.Time
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts for the batch embedding call
// retryBaseDelay: base delay for exponential backoff
// force: re-embed chunks already tagged with the active model
func NewBatchProcessor(store vectorstore.Store, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration, force bool) *BatchProcessor {
	return &BatchProcessor{
		store:          store,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		force:          force,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Process embeds the stale payloads of a page in one call and upserts them
// tagged with the active model. It returns the number of chunks re-embedded.
func (bp *BatchProcessor) Process(ctx context.Context, payloads []core.Payload) (int, error) {
	model := bp.embedder.Model()

	stale := make([]core.Payload, 0, len(payloads))
	for _, p := range payloads {
		if bp.force || p.EmbeddingModel != model {
			stale = append(stale, p)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	texts := make([]string, len(stale))
	for i, p := range stale {
		texts[i] = p.PageContent
	}

	var embeddings [][]float32
	err := retry.WithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return 0, fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(embeddings) != len(stale) {
		return 0, fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingCountMismatch, len(stale), len(embeddings))
	}

	storedAt := bp.now()
	for i, p := range stale {
		p.EmbeddingModel = model
		p.StoredAt = storedAt
		point := core.Point{ChunkID: p.ChunkID, Vector: embeddings[i], Payload: p}
		if err := bp.store.Upsert(ctx, point); err != nil {
			return i, fmt.Errorf("failed to update chunk %s: %w", p.ChunkID, err)
		}
	}
	return len(stale), nil
}
