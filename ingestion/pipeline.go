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
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/chunker"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/vectorstore"
)

// Extractor returns the text of a source file.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Recorder persists ingestion outcomes. Record returns the total chunk
// count of the previous ingestion of the same document, or 0.
type Recorder interface {
	Record(ctx context.Context, doc *core.Document, result *core.IngestResult) (int, error)
}

// Pipeline ingests documents into a vector store.
// It is safe for concurrent use; all calls share one worker pool.
type Pipeline struct {
	store     vectorstore.Store
	embedder  ai.Embedder
	splitter  *chunker.Splitter
	extractor Extractor
	recorder  Recorder
	pool      *ants.Pool
	proc      processor
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent chunk processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithSplitter replaces the default 1000/100 splitter.
func WithSplitter(splitter *chunker.Splitter) Option {
	return func(p *Pipeline) error {
		if splitter == nil {
			return errors.New("splitter cannot be nil")
		}
		p.splitter = splitter
		return nil
	}
}

// WithExtractor enables file ingestion.
func WithExtractor(extractor Extractor) Option {
	return func(p *Pipeline) error {
		p.extractor = extractor
		return nil
	}
}

// WithRecorder records every successful ingestion, e.g. in a ledger.
func WithRecorder(recorder Recorder) Option {
	return func(p *Pipeline) error {
		p.recorder = recorder
		return nil
	}
}

// WithClock overrides the time source used for stored_at and uploaded timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) error {
		p.now = now
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(store vectorstore.Store, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	splitter, err := chunker.New(chunker.DefaultChunkSize, chunker.DefaultOverlap)
	if err != nil {
		pool.Release()
		return nil, err
	}

	p := &Pipeline{
		store:    store,
		embedder: embedder,
		splitter: splitter,
		pool:     pool,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	p.logger = p.logger.With("component", "ingestion")
	p.proc = newChunkProcessor(store, embedder, p.now, p.logger)
	return p, nil
}

// IngestText splits text into chunks and stores every chunk that is not
// already current. It fails with core.ErrNoChunksGenerated for blank text
// and core.ErrNoChunksStored when every chunk failed.
func (p *Pipeline) IngestText(ctx context.Context, doc *core.Document, text string) (*core.IngestResult, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}
	if p.pool.IsClosed() {
		return nil, ErrPipelineReleased
	}

	pieces, err := p.splitter.Split(text)
	if err != nil {
		return nil, err
	}
	chunks := core.NewChunks(doc.ID, pieces)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: document %s", core.ErrNoChunksGenerated, doc.ID)
	}
	p.logger.Info("ingesting document", "document_id", doc.ID, "chunks", len(chunks))

	outcomes := make([]outcome, len(chunks))
	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			outcomes[i] = p.proc.process(ctx, doc, chunk)
		})
		if err != nil {
			wg.Done()
			p.logger.Error("failed to schedule chunk", "chunk_id", chunk.ID, "err", err)
			outcomes[i] = outcomeFailed
		}
	}
	wg.Wait()

	result := &core.IngestResult{
		DocumentID:  doc.ID,
		Status:      core.StatusProcessed,
		TotalChunks: len(chunks),
	}
	for _, o := range outcomes {
		switch o {
		case outcomeStored:
			result.ChunksStored++
		case outcomeSkipped:
			result.ChunksSkipped++
		default:
			result.ChunksFailed++
		}
	}
	result.ChunksProcessed = result.ChunksStored + result.ChunksSkipped

	if result.ChunksProcessed == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: document %s: all %d chunks failed", core.ErrNoChunksStored, doc.ID, len(chunks))
	}

	p.logger.Info("document ingested",
		"document_id", doc.ID,
		"stored", result.ChunksStored,
		"skipped", result.ChunksSkipped,
		"failed", result.ChunksFailed,
		"total", result.TotalChunks)
	p.record(ctx, doc, result)
	return result, nil
}

// record writes the ledger entry and flags chunks a shorter re-ingestion
// left behind. Those chunks stay searchable until the document is removed.
func (p *Pipeline) record(ctx context.Context, doc *core.Document, result *core.IngestResult) {
	if p.recorder == nil {
		return
	}
	previous, err := p.recorder.Record(ctx, doc, result)
	if err != nil {
		p.logger.Warn("failed to record ingestion", "document_id", doc.ID, "err", err)
		return
	}
	if previous > result.TotalChunks {
		p.logger.Warn("stale chunks remain from previous ingestion",
			"document_id", doc.ID,
			"first_stale_chunk", core.ChunkID(doc.ID, result.TotalChunks),
			"last_stale_chunk", core.ChunkID(doc.ID, previous-1))
	}
}

// IngestFile extracts the text of doc.Path and ingests it.
func (p *Pipeline) IngestFile(ctx context.Context, doc *core.Document) (*core.IngestResult, error) {
	if p.extractor == nil {
		return nil, ErrExtractorRequired
	}
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	text, err := p.extractor.Extract(ctx, doc.Path)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", doc.Path, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %s", core.ErrNoContentExtracted, doc.Path)
	}
	return p.IngestText(ctx, doc, text)
}

// Metadata carries the caller supplied fields of file ingestion.
type Metadata struct {
	UploadedBy     string
	OrganizationID string
}

// FileResult is the outcome of ingesting one path.
type FileResult struct {
	Path   string
	Result *core.IngestResult
	Err    error
}

// NewDocument describes the file at path as a Document.
func (p *Pipeline) NewDocument(documentID, path string, meta Metadata) (*core.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %w: %s", core.ErrInvalidDocument, core.ErrFileNotFound, path)
	case errors.Is(err, fs.ErrPermission):
		return nil, fmt.Errorf("%w: %w: %s", core.ErrInvalidDocument, core.ErrFileUnreadable, path)
	case err != nil:
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %w: %s", core.ErrInvalidDocument, core.ErrNotAFile, path)
	}
	return &core.Document{
		ID:             documentID,
		Name:           filepath.Base(abs),
		Path:           abs,
		FileType:       strings.ToLower(filepath.Ext(abs)),
		Size:           info.Size(),
		UploadedBy:     meta.UploadedBy,
		OrganizationID: meta.OrganizationID,
		UploadedAt:     p.now(),
	}, nil
}

// IngestFiles ingests every path under documentID. Each path gets its own
// FileResult; one failing file does not affect the others. Files sharing a
// document id share the chunk id space, so later files replace the chunks
// of earlier ones at the same index.
func (p *Pipeline) IngestFiles(ctx context.Context, documentID string, paths []string, meta Metadata) []FileResult {
	if len(paths) > 1 {
		p.logger.Warn("several files share one document id", "document_id", documentID, "files", len(paths))
	}
	results := make([]FileResult, 0, len(paths))
	for _, path := range paths {
		fr := FileResult{Path: path}
		doc, err := p.NewDocument(documentID, path, meta)
		if err == nil {
			fr.Result, err = p.IngestFile(ctx, doc)
		}
		if err != nil {
			p.logger.Error("file ingestion failed", "path", path, "err", err)
			fr.Err = err
		}
		results = append(results, fr)
	}
	return results
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
