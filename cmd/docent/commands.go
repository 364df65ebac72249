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

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/docent"
	"github.com/poiesic/docent/config"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/ingestion"
	"github.com/poiesic/docent/reembed"
	"github.com/poiesic/docent/search"
	"github.com/poiesic/docent/server"
	"github.com/poiesic/docent/vectorstore"
	"github.com/urfave/cli/v2"
)

const (
	defaultRetryDelay = time.Second
	previewLen        = 200
	scrollPageSize    = 100
)

// openService loads the configuration named by --config and opens the service.
func openService(ctx context.Context, c *cli.Context) (*docent.Service, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	svc, err := docent.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open service: %w", err)
	}
	return svc, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signalContext(c)
	defer stop()

	svc, err := openService(ctx, c)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.Verify(ctx); err != nil {
		return fmt.Errorf("embedding provider check failed: %w", err)
	}

	srv, err := server.New(svc)
	if err != nil {
		return err
	}
	addr := c.String("addr")
	if addr == "" {
		addr = svc.Config().Server.Addr
	}
	return srv.ListenAndServe(ctx, addr)
}

func metadataFlags(c *cli.Context) ingestion.Metadata {
	return ingestion.Metadata{
		UploadedBy:     c.String("uploaded-by"),
		OrganizationID: c.String("organization-id"),
	}
}

func ingestCommand(c *cli.Context) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return errors.New("at least one PATH is required")
	}
	documentID := c.String("document-id")
	if documentID == "" {
		documentID = uuid.NewString()
	}

	ctx, stop := signalContext(c)
	defer stop()
	svc, err := openService(ctx, c)
	if err != nil {
		return err
	}
	defer svc.Close()

	out := c.App.Writer
	fmt.Fprintf(out, "Document: %s\n", documentID)

	failed := 0
	for _, fr := range svc.Pipeline().IngestFiles(ctx, documentID, paths, metadataFlags(c)) {
		if fr.Err != nil {
			failed++
			fmt.Fprintf(out, "%s: failed: %v\n", fr.Path, fr.Err)
			continue
		}
		r := fr.Result
		fmt.Fprintf(out, "%s: %d chunks, %d stored, %d skipped, %d failed\n",
			fr.Path, r.TotalChunks, r.ChunksStored, r.ChunksSkipped, r.ChunksFailed)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return errors.New("QUESTION is required")
	}

	ctx, stop := signalContext(c)
	defer stop()
	svc, err := openService(ctx, c)
	if err != nil {
		return err
	}
	defer svc.Close()

	req := &core.ChatRequest{
		Question:    question,
		DocumentIDs: c.StringSlice("document-id"),
		Stream:      !c.Bool("no-stream"),
		Provider:    c.String("provider"),
	}
	out := c.App.Writer

	if !req.Stream {
		answer, err := svc.Orchestrator().Answer(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, answer)
		return nil
	}

	fragments, err := svc.Orchestrator().Stream(ctx, req)
	if err != nil {
		return err
	}
	for fragment, err := range fragments {
		if err != nil {
			fmt.Fprintln(out)
			return err
		}
		fmt.Fprint(out, fragment)
	}
	fmt.Fprintln(out)
	return nil
}

func documentArg(c *cli.Context) (string, error) {
	id := strings.TrimSpace(c.Args().First())
	if id == "" {
		return "", errors.New("DOCUMENT_ID is required")
	}
	return id, nil
}

func preview(content string, n int) string {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if len(runes) > n {
		return string(runes[:n]) + "..."
	}
	return content
}

func debugChunksCommand(c *cli.Context) error {
	documentID, err := documentArg(c)
	if err != nil {
		return err
	}
	ctx := c.Context
	svc, err := openService(ctx, c)
	if err != nil {
		return err
	}
	defer svc.Close()

	out := c.App.Writer
	found := 0
	offset := ""
	for {
		page, err := svc.Store().Scroll(ctx, []string{documentID}, scrollPageSize, offset)
		if err != nil {
			return err
		}
		for _, p := range page.Payloads {
			found++
			fmt.Fprintf(out, "%s [%d/%d] model=%s hash=%s\n  %s\n",
				p.ChunkID, p.ChunkIndex+1, p.TotalChunks, p.EmbeddingModel, shortHash(p.ContentHash),
				preview(p.PageContent, previewLen))
		}
		if page.NextOffset == "" {
			break
		}
		offset = page.NextOffset
	}
	fmt.Fprintf(out, "%d chunks found for %s\n", found, documentID)
	return nil
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

func debugSearchCommand(c *cli.Context) error {
	documentID, err := documentArg(c)
	if err != nil {
		return err
	}
	ctx := c.Context
	svc, err := openService(ctx, c)
	if err != nil {
		return err
	}
	defer svc.Close()

	trace := &search.Trace{}
	hits, err := svc.Searcher().RetrieveWithMonitor(ctx, c.String("query"), []string{documentID}, vectorstore.DefaultSearchLimit, trace)
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintf(out, "Query: %q (dimension %d, threshold %.2f)\n", trace.Question, trace.Dimension, svc.Searcher().Threshold())
	for _, hit := range hits {
		fmt.Fprintf(out, "%.4f %s\n  %s\n", hit.Score, hit.Payload.ChunkID, preview(hit.Payload.PageContent, 300))
	}
	fmt.Fprintf(out, "%d results\n", len(hits))
	return nil
}

func documentsCommand(c *cli.Context) error {
	ctx := c.Context
	svc, err := openService(ctx, c)
	if err != nil {
		return err
	}
	defer svc.Close()

	entries, err := svc.Ledger().List(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DOCUMENT\tNAME\tCHUNKS\tSTORED\tSKIPPED\tFAILED\tUPDATED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			e.DocumentID, e.Name, e.TotalChunks, e.ChunksStored, e.ChunksSkipped, e.ChunksFailed,
			e.UpdatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func reembedCommand(c *cli.Context) error {
	reembedConfig := reembed.DefaultConfig()
	reembedConfig.BatchSize = c.Int("batch-size")
	reembedConfig.ReportInterval = c.Int("report-interval")
	reembedConfig.MaxRetries = c.Int("max-retries")
	reembedConfig.RetryDelay = c.Duration("retry-delay")
	reembedConfig.Force = c.Bool("force")

	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	ctx, stop := signalContext(c)
	defer stop()
	svc, err := openService(ctx, c)
	if err != nil {
		return err
	}
	defer svc.Close()

	errOut := c.App.ErrWriter
	fmt.Fprintf(errOut, "Embedding model: %s\n", svc.Embedder().Model())
	fmt.Fprintln(errOut)

	stats, err := svc.NewReembedder(reembedConfig, errOut).Run(ctx, c.StringSlice("document-id"))
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Re-embedded %d of %d chunks in %s\n",
		stats.Reembedded, stats.Visited, stats.Elapsed.Round(time.Millisecond))
	return nil
}

func watchCommand(c *cli.Context) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return errors.New("at least one PATH is required")
	}

	ctx, stop := signalContext(c)
	defer stop()
	svc, err := openService(ctx, c)
	if err != nil {
		return err
	}
	defer svc.Close()

	watcher, err := svc.NewWatcher(c.String("document-id"), paths, metadataFlags(c))
	if err != nil {
		return err
	}
	out := c.App.Writer
	watcher.OnIngest = func(fr ingestion.FileResult) {
		if fr.Err != nil {
			fmt.Fprintf(out, "%s: failed: %v\n", fr.Path, fr.Err)
			return
		}
		fmt.Fprintf(out, "%s: %d stored, %d skipped\n", fr.Path, fr.Result.ChunksStored, fr.Result.ChunksSkipped)
	}
	fmt.Fprintf(out, "Watching %d files, press Ctrl-C to stop\n", len(paths))
	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
