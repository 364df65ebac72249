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
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a watched file must stay quiet before it is
// re-ingested. Editors usually emit several writes per save.
const DefaultDebounce = 500 * time.Millisecond

// Watcher re-ingests a fixed set of files under one document id whenever
// they are written or recreated.
type Watcher struct {
	pipeline   *Pipeline
	documentID string
	meta       Metadata
	files      map[string]struct{}
	debounce   time.Duration
	logger     *slog.Logger

	// OnIngest, if set, observes every re-ingestion.
	OnIngest func(FileResult)

	mu       sync.Mutex
	pending  map[string]*time.Timer
	inflight sync.WaitGroup // one count per scheduled ingest until it returns or is stopped
}

// NewWatcher creates a watcher for paths. Paths are resolved to absolute form.
func NewWatcher(pipeline *Pipeline, documentID string, paths []string, meta Metadata, debounce time.Duration) (*Watcher, error) {
	if pipeline == nil {
		return nil, errors.New("pipeline cannot be nil")
	}
	if len(paths) == 0 {
		return nil, errors.New("no paths to watch")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	files := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		files[abs] = struct{}{}
	}
	return &Watcher{
		pipeline:   pipeline,
		documentID: documentID,
		meta:       meta,
		files:      files,
		debounce:   debounce,
		logger:     pipeline.logger.With("processor", "watch"),
		pending:    make(map[string]*time.Timer),
	}, nil
}

// Run watches until ctx is cancelled. Directories of the watched files are
// registered with fsnotify so that atomic saves (rename over) are seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()

	dirs := make(map[string]struct{})
	for file := range w.files {
		dirs[filepath.Dir(file)] = struct{}{}
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	w.logger.Info("watching files", "document_id", w.documentID, "files", len(w.files))

	defer w.stopPending()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if path, ok := w.handleEvent(event); ok {
				w.schedule(ctx, path)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "err", err)
		}
	}
}

// handleEvent reports whether event should trigger re-ingestion and of which file.
func (w *Watcher) handleEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return "", false
	}
	path, err := filepath.Abs(event.Name)
	if err != nil {
		return "", false
	}
	if _, ok := w.files[path]; !ok {
		return "", false
	}
	return path, true
}

func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok && t.Stop() {
		t.Reset(w.debounce)
		return
	}
	w.inflight.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		defer w.inflight.Done()
		w.mu.Lock()
		if w.pending[path] == t {
			delete(w.pending, path)
		}
		w.mu.Unlock()
		w.ingest(ctx, path)
	})
	w.pending[path] = t
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	fr := FileResult{Path: path}
	doc, err := w.pipeline.NewDocument(w.documentID, path, w.meta)
	if err == nil {
		fr.Result, err = w.pipeline.IngestFile(ctx, doc)
	}
	fr.Err = err
	if err != nil {
		w.logger.Error("re-ingestion failed", "path", path, "err", err)
	} else {
		w.logger.Info("re-ingested file", "path", path,
			"stored", fr.Result.ChunksStored, "skipped", fr.Result.ChunksSkipped)
	}
	if w.OnIngest != nil {
		w.OnIngest(fr)
	}
}

// stopPending cancels timers that have not fired and waits for ingests
// already running, so the pipeline can be released once Run returns.
func (w *Watcher) stopPending() {
	w.mu.Lock()
	for path, t := range w.pending {
		if t.Stop() {
			w.inflight.Done()
		}
		delete(w.pending, path)
	}
	w.mu.Unlock()
	w.inflight.Wait()
}
