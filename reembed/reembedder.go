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
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/vectorstore"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of chunks embedded per call
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for a batch embedding call
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Workers bounds how many batches are embedded concurrently
	Workers int

	// Force re-embeds chunks already tagged with the active model
	Force bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		Workers:        max(1, runtime.NumCPU()/2),
	}
}

// Stats summarizes a run.
type Stats struct {
	Visited    int
	Reembedded int
	Elapsed    time.Duration
}

// Reembedder re-embeds the stored chunks of a vector store.
type Reembedder struct {
	store     vectorstore.Store
	embedder  ai.Embedder
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	logger    *slog.Logger
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(store vectorstore.Store, embedder ai.Embedder, config *Config, progress io.Writer) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		store:     store,
		embedder:  embedder,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(store, embedder, config.MaxRetries, config.RetryDelay, config.Force),
		logger:    slog.Default().With("component", "reembed"),
	}
}

// Run re-embeds the chunks of documentIDs, or of every document when
// documentIDs is empty. Pages are embedded concurrently; every failed page
// is reported in the joined error and the remaining pages still run.
func (r *Reembedder) Run(ctx context.Context, documentIDs []string) (*Stats, error) {
	iterator := NewPayloadIterator(r.store, documentIDs, r.config.BatchSize)

	total, err := iterator.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}
	if total == 0 {
		fmt.Fprintf(r.progress, "No chunks found (0 chunks)\n")
		return &Stats{}, nil
	}

	fmt.Fprintf(r.progress, "Re-embedding %d chunks with %s (batch size: %d)\n",
		total, r.embedder.Model(), r.config.BatchSize)

	pool, err := ants.NewPool(r.config.Workers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		errs   []error
		failed = func(err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}
	)

	err = iterator.ForEach(ctx, func(payloads []core.Payload) error {
		page := payloads
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			n, err := r.processor.Process(ctx, page)
			if err != nil {
				r.logger.Error("failed to re-embed batch", "chunks", len(page), "err", err)
				failed(err)
			}
			tracker.Add(len(page), n)
		})
		if submitErr != nil {
			wg.Done()
			return submitErr
		}
		return nil
	})
	wg.Wait()
	if err != nil {
		failed(err)
	}

	tracker.Finish()
	visited, reembedded := tracker.Counts()
	stats := &Stats{Visited: visited, Reembedded: reembedded, Elapsed: tracker.Elapsed()}

	if len(errs) > 0 {
		return stats, errors.Join(errs...)
	}

	fmt.Fprintf(r.progress, "Re-embedding complete. Re-embedded %d of %d chunks in %v\n",
		stats.Reembedded, stats.Visited, stats.Elapsed.Round(time.Millisecond))
	return stats, nil
}
