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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "docent",
		Usage: "Answer questions about your documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML or TOML configuration file",
				EnvVars: []string{"DOCENT_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log output format (text, json)",
				Value: "text",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (overrides the configured server address)",
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "Embed local files into the vector store",
				ArgsUsage: "PATH...",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "document-id",
						Aliases: []string{"d"},
						Usage:   "Document id shared by every file (generated when omitted)",
					},
					&cli.StringFlag{
						Name:  "organization-id",
						Usage: "Organization recorded in each chunk",
					},
					&cli.StringFlag{
						Name:  "uploaded-by",
						Usage: "Uploader recorded in each chunk",
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Ask a question about ingested documents",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "document-id",
						Aliases: []string{"d"},
						Usage:   "Document to search (repeatable)",
					},
					&cli.StringFlag{
						Name:  "provider",
						Usage: "LLM provider (defaults to the configured one)",
					},
					&cli.BoolFlag{
						Name:  "no-stream",
						Usage: "Print the answer once it is complete",
					},
				},
			},
			{
				Name:  "debug",
				Usage: "Inspect stored chunks and retrieval",
				Subcommands: []*cli.Command{
					{
						Name:      "chunks",
						Usage:     "List the stored chunks of a document",
						ArgsUsage: "DOCUMENT_ID",
						Action:    debugChunksCommand,
					},
					{
						Name:      "search",
						Usage:     "Show what retrieval returns for a query",
						ArgsUsage: "DOCUMENT_ID",
						Action:    debugSearchCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:    "query",
								Aliases: []string{"q"},
								Usage:   "Query to search for",
								Value:   "lab 5",
							},
						},
					},
				},
			},
			{
				Name:   "documents",
				Usage:  "List ingested documents",
				Action: documentsCommand,
			},
			{
				Name:   "reembed",
				Usage:  "Re-embed stored chunks with the configured embedding model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "document-id",
						Aliases: []string{"d"},
						Usage:   "Document to re-embed (repeatable, default all)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks embedded per call",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed batches",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: defaultRetryDelay,
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Re-embed chunks already tagged with the configured model",
					},
				},
			},
			{
				Name:      "watch",
				Usage:     "Re-ingest files whenever they change",
				ArgsUsage: "PATH...",
				Action:    watchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "document-id",
						Aliases:  []string{"d"},
						Usage:    "Document id shared by every file",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "organization-id",
						Usage: "Organization recorded in each chunk",
					},
					&cli.StringFlag{
						Name:  "uploaded-by",
						Usage: "Uploader recorded in each chunk",
					},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch format := strings.ToLower(c.String("log-format")); format {
	case "", "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", format)
	}
	slog.SetDefault(slog.New(handler))

	return nil
}
