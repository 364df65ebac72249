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

// Package docent wires the document question answering service together
// from an application configuration.
package docent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/ai/embedders"
	"github.com/poiesic/docent/config"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/extract"
	"github.com/poiesic/docent/generation"
	"github.com/poiesic/docent/ingestion"
	"github.com/poiesic/docent/ledger"
	"github.com/poiesic/docent/llm"
	"github.com/poiesic/docent/llm/providers"
	"github.com/poiesic/docent/reembed"
	"github.com/poiesic/docent/search"
	"github.com/poiesic/docent/vectorstore"
	"github.com/poiesic/docent/vectorstore/badger"
	"github.com/poiesic/docent/vectorstore/qdrant"
)

// probeText is embedded by Verify to check the provider's output length.
const probeText = "dimension probe"

// Service owns every component of a running instance.
type Service struct {
	config       *config.Config
	store        vectorstore.Store
	embedder     ai.Embedder
	ledger       *ledger.Ledger
	pipeline     *ingestion.Pipeline
	searcher     *search.Searcher
	providers    *llm.Registry
	orchestrator *generation.Orchestrator
	logger       *slog.Logger
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	logger    *slog.Logger
	store     vectorstore.Store
	embedder  ai.Embedder
	providers *llm.Registry
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// WithStore uses store instead of opening the configured backend. The
// service takes ownership and closes it.
func WithStore(store vectorstore.Store) Option {
	return func(o *serviceOptions) {
		o.store = store
	}
}

// WithEmbedder uses embedder instead of the configured provider.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(o *serviceOptions) {
		o.embedder = embedder
	}
}

// WithProviders uses registry instead of building one from configuration.
func WithProviders(registry *llm.Registry) Option {
	return func(o *serviceOptions) {
		o.providers = registry
	}
}

// Open validates cfg and builds the service. The vector collection is
// created with the embedder's dimension when missing.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	options := &serviceOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{config: cfg, logger: options.logger.With("component", "docent")}
	if err := s.open(ctx, options); err != nil {
		if closeErr := s.Close(); closeErr != nil {
			s.logger.Error("error closing partially opened service", "err", closeErr)
		}
		return nil, err
	}
	return s, nil
}

func (s *Service) open(ctx context.Context, options *serviceOptions) error {
	var err error
	s.embedder = options.embedder
	if s.embedder == nil {
		if s.embedder, err = embedders.New(s.config.AI()); err != nil {
			return err
		}
	}

	s.store = options.store
	if s.store == nil {
		if s.store, err = s.openStore(options.logger); err != nil {
			return err
		}
	}
	if err := s.store.EnsureCollection(ctx, s.embedder.Dimension()); err != nil {
		return err
	}

	if s.ledger, err = ledger.Open(s.config.Ingestion.LedgerPath); err != nil {
		return fmt.Errorf("%w: %w", core.ErrConfiguration, err)
	}

	splitter, err := s.config.Splitter()
	if err != nil {
		return err
	}
	pipelineOpts := []ingestion.Option{
		ingestion.WithLogger(options.logger),
		ingestion.WithSplitter(splitter),
		ingestion.WithExtractor(extract.NewRegistry()),
		ingestion.WithRecorder(s.ledger),
	}
	if s.config.Ingestion.Workers > 0 {
		pipelineOpts = append(pipelineOpts, ingestion.WithPoolSize(s.config.Ingestion.Workers))
	}
	if s.pipeline, err = ingestion.NewPipeline(s.store, s.embedder, pipelineOpts...); err != nil {
		return err
	}

	if s.searcher, err = search.NewSearcher(s.store, s.embedder,
		search.WithLogger(options.logger),
		search.WithScoreThreshold(s.config.Retrieval.ScoreThreshold),
		search.WithLimit(s.config.Retrieval.Limit),
	); err != nil {
		return err
	}

	s.providers = options.providers
	if s.providers == nil {
		if s.providers, err = providers.New(ctx, s.config.LLMConfig(), options.logger); err != nil {
			return err
		}
	}

	s.orchestrator, err = generation.NewOrchestrator(s.searcher, s.providers,
		generation.WithLogger(options.logger),
		generation.WithRetrievalLimit(s.config.Retrieval.Limit),
	)
	return err
}

func (s *Service) openStore(logger *slog.Logger) (vectorstore.Store, error) {
	switch s.config.VectorStore.Backend {
	case config.BackendBadger:
		return badger.Open(s.config.VectorStore.BadgerPath, false, badger.WithLogger(logger))
	case config.BackendQdrant:
		return qdrant.New(s.config.Qdrant(), qdrant.WithLogger(logger))
	default:
		return nil, fmt.Errorf("%w: unknown vector store %q", core.ErrConfiguration, s.config.VectorStore.Backend)
	}
}

// Close releases every component. It is safe to call on a partially
// opened service.
func (s *Service) Close() error {
	var errs []error
	if s.pipeline != nil {
		s.pipeline.Release()
	}
	if s.ledger != nil {
		if err := s.ledger.Close(); err != nil {
			s.logger.Error("error closing ledger", "err", err)
			errs = append(errs, err)
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("error closing vector store", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Verify embeds a probe string and fails with core.ErrDimensionMismatch
// when the provider's vectors do not have the configured length.
func (s *Service) Verify(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	vector, err := s.embedder.EmbedText(ctx, probeText)
	if err != nil {
		return err
	}
	if len(vector) != s.embedder.Dimension() {
		return fmt.Errorf("%w: provider returned %d values, configured %d",
			core.ErrDimensionMismatch, len(vector), s.embedder.Dimension())
	}
	s.logger.Info("embedding provider verified", "model", s.embedder.Model(), "dimension", len(vector))
	return nil
}

// Config returns the configuration the service was opened with.
func (s *Service) Config() *config.Config {
	return s.config
}

func (s *Service) Store() vectorstore.Store {
	return s.store
}

func (s *Service) Embedder() ai.Embedder {
	return s.embedder
}

func (s *Service) Ledger() *ledger.Ledger {
	return s.ledger
}

func (s *Service) Pipeline() *ingestion.Pipeline {
	return s.pipeline
}

func (s *Service) Searcher() *search.Searcher {
	return s.searcher
}

func (s *Service) Providers() *llm.Registry {
	return s.providers
}

func (s *Service) Orchestrator() *generation.Orchestrator {
	return s.orchestrator
}

// NewReembedder returns a reembedder over the service's store and embedder.
func (s *Service) NewReembedder(cfg *reembed.Config, progress io.Writer) *reembed.Reembedder {
	return reembed.NewReembedder(s.store, s.embedder, cfg, progress)
}

// NewWatcher returns a watcher that re-ingests paths under documentID.
func (s *Service) NewWatcher(documentID string, paths []string, meta ingestion.Metadata) (*ingestion.Watcher, error) {
	return ingestion.NewWatcher(s.pipeline, documentID, paths, meta, ingestion.DefaultDebounce)
}
