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
	"fmt"
	"log/slog"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/vectorstore"
)

const (
	// DefaultScoreThreshold drops weakly related chunks.
	DefaultScoreThreshold float32 = 0.65

	// DefaultLimit is the number of chunks returned when the caller passes 0.
	DefaultLimit = vectorstore.DefaultSearchLimit
)

// Searcher provides scoped semantic retrieval over stored chunks.
type Searcher struct {
	store     vectorstore.Store
	embedder  ai.Embedder
	threshold float32
	limit     int
	logger    *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithScoreThreshold sets the minimum similarity of returned chunks.
// Default is DefaultScoreThreshold.
func WithScoreThreshold(threshold float32) Option {
	return func(s *Searcher) error {
		if threshold < 0 || threshold > 1 {
			return fmt.Errorf("%w: %w, got %v", core.ErrConfiguration, ErrInvalidThreshold, threshold)
		}
		s.threshold = threshold
		return nil
	}
}

// WithLimit sets the default number of chunks returned.
func WithLimit(limit int) Option {
	return func(s *Searcher) error {
		if limit < 1 {
			return fmt.Errorf("%w: retrieval limit must be positive, got %d", core.ErrConfiguration, limit)
		}
		s.limit = limit
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(store vectorstore.Store, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		store:     store,
		embedder:  embedder,
		threshold: DefaultScoreThreshold,
		limit:     DefaultLimit,
		logger:    slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "search")
	return s, nil
}

// Threshold returns the configured score threshold.
func (s *Searcher) Threshold() float32 { return s.threshold }

// Retrieve returns the chunks of documentIDs most similar to question,
// ordered by descending score. An empty documentIDs yields no chunks and
// no embedding call. A limit of 0 uses the configured default.
func (s *Searcher) Retrieve(ctx context.Context, question string, documentIDs []string, limit int) ([]core.RetrievedChunk, error) {
	return s.RetrieveWithMonitor(ctx, question, documentIDs, limit, nil)
}

// RetrieveWithMonitor is Retrieve with observer callbacks at each stage.
func (s *Searcher) RetrieveWithMonitor(ctx context.Context, question string, documentIDs []string, limit int, monitor SearchMonitor) (results []core.RetrievedChunk, err error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(question, documentIDs)
	defer func() { monitor.Finish(results, err) }()

	if len(documentIDs) == 0 {
		return []core.RetrievedChunk{}, nil
	}
	if limit <= 0 {
		limit = s.limit
	}

	vector, err := s.embedder.EmbedText(ctx, question)
	if err != nil {
		s.logger.Error("error generating embedding for question", "err", err)
		return nil, err
	}
	monitor.AfterEmbedding(vector)

	hits, err := s.store.Search(ctx, vectorstore.SearchQuery{
		Vector:         vector,
		DocumentIDs:    documentIDs,
		Limit:          limit,
		ScoreThreshold: s.threshold,
	})
	if err != nil {
		s.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}
	monitor.AfterSearch(hits)

	s.logger.Debug("retrieved chunks", "documents", len(documentIDs), "hits", len(hits))
	if hits == nil {
		hits = []core.RetrievedChunk{}
	}
	return hits, nil
}
