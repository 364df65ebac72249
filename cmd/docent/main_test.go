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
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

type cliRunner struct {
	out *bytes.Buffer
}

// Run executes args on a fresh app so flag state never leaks between runs.
func (r *cliRunner) Run(args []string) error {
	app := newApp()
	app.Writer = r.out
	app.ErrWriter = &bytes.Buffer{}
	return app.Run(args)
}

// testApp returns a CLI runner with captured output and a config file that
// uses the mock providers and an on-disk badger store under a temp dir.
func testApp(t *testing.T) (*cliRunner, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "docent.yaml")
	cfg := fmt.Sprintf(`
embeddings:
  provider: mock
vector_store:
  backend: badger
  badger_path: %s
ingestion:
  ledger_path: %s
llm:
  provider: mock
`, filepath.Join(dir, "vectors"), filepath.Join(dir, "ledger.db"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	out := &bytes.Buffer{}
	return &cliRunner{out: out}, out, cfgPath
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestIngestAskAndInspect(t *testing.T) {
	app, out, cfg := testApp(t)
	path := writeFile(t, "syllabus.txt", "Lab 5 covers thermodynamics.")

	require.NoError(t, app.Run([]string{"docent", "--config", cfg, "ingest", "--document-id", "doc1", path}))
	assert.Contains(t, out.String(), "Document: doc1")
	assert.Contains(t, out.String(), "1 chunks, 1 stored, 0 skipped, 0 failed")

	out.Reset()
	require.NoError(t, app.Run([]string{"docent", "--config", cfg, "ingest", "--document-id", "doc1", path}))
	assert.Contains(t, out.String(), "1 chunks, 0 stored, 1 skipped, 0 failed")

	out.Reset()
	require.NoError(t, app.Run([]string{"docent", "--config", cfg, "documents"}))
	assert.Contains(t, out.String(), "DOCUMENT")
	assert.Contains(t, out.String(), "syllabus.txt")

	out.Reset()
	require.NoError(t, app.Run([]string{"docent", "--config", cfg, "debug", "chunks", "doc1"}))
	assert.Contains(t, out.String(), "doc1_chunk_0 [1/1]")
	assert.Contains(t, out.String(), "Lab 5 covers thermodynamics.")
	assert.Contains(t, out.String(), "1 chunks found for doc1")

	out.Reset()
	require.NoError(t, app.Run([]string{"docent", "--config", cfg, "debug", "search", "--query", "what does lab 5 cover?", "doc1"}))
	assert.Contains(t, out.String(), "doc1_chunk_0")
	assert.Contains(t, out.String(), "1 results")

	out.Reset()
	require.NoError(t, app.Run([]string{"docent", "--config", cfg, "ask", "-d", "doc1", "what does lab 5 cover?"}))
	assert.Equal(t, "This is a mock answer.\n", out.String())

	out.Reset()
	require.NoError(t, app.Run([]string{"docent", "--config", cfg, "ask", "--no-stream", "what does lab 5 cover?"}))
	assert.Equal(t, "This is a mock answer.\n", out.String())

	out.Reset()
	require.NoError(t, app.Run([]string{"docent", "--config", cfg, "reembed", "--force"}))
	assert.Contains(t, out.String(), "Re-embedded 1 of 1 chunks")
}

func TestIngestGeneratesDocumentID(t *testing.T) {
	app, out, cfg := testApp(t)
	path := writeFile(t, "notes.md", "# Notes\n\nSome notes.")

	require.NoError(t, app.Run([]string{"docent", "--config", cfg, "ingest", path}))
	line, _, _ := strings.Cut(out.String(), "\n")
	id := strings.TrimPrefix(line, "Document: ")
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
}

func TestIngestReportsFailedFiles(t *testing.T) {
	app, out, cfg := testApp(t)
	blank := writeFile(t, "blank.txt", "")

	err := app.Run([]string{"docent", "--config", cfg, "ingest", "-d", "doc1", blank})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 files failed")
	assert.Contains(t, out.String(), "no content extracted")
}

func TestCommandValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"ingest without paths", []string{"ingest", "-d", "doc1"}, "PATH"},
		{"ask without question", []string{"ask"}, "QUESTION"},
		{"debug chunks without id", []string{"debug", "chunks"}, "DOCUMENT_ID"},
		{"watch without document id", []string{"watch", "notes.txt"}, "document-id"},
		{"reembed with zero batch size", []string{"reembed", "--batch-size", "0"}, "batch-size"},
		{"reembed with zero retries", []string{"reembed", "--max-retries", "0"}, "max-retries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _, cfg := testApp(t)
			err := app.Run(append([]string{"docent", "--config", cfg}, tt.args...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMissingConfigFile(t *testing.T) {
	app, _, _ := testApp(t)
	err := app.Run([]string{"docent", "--config", filepath.Join(t.TempDir(), "absent.yaml"), "documents"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration error")
}

func TestSetupLogger(t *testing.T) {
	run := func(args ...string) error {
		app := &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Value: "info"},
				&cli.StringFlag{Name: "log-format", Value: "text"},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error { return nil },
		}
		return app.Run(append([]string{"test"}, args...))
	}

	for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "WaRn"} {
		t.Run("level "+level, func(t *testing.T) {
			require.NoError(t, run("--log-level", level))
		})
	}
	for _, format := range []string{"text", "json", "JSON"} {
		t.Run("format "+format, func(t *testing.T) {
			require.NoError(t, run("--log-format", format))
		})
	}

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := run("-l", "loud")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("invalid log format returns error", func(t *testing.T) {
		err := run("--log-format", "xml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log format")
	})
}

func TestAppFlags(t *testing.T) {
	app := newApp()

	names := make([]string, 0, len(app.Commands))
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	assert.ElementsMatch(t, []string{"serve", "ingest", "ask", "debug", "documents", "reembed", "watch"}, names)

	reembedCmd := app.Command("reembed")
	require.NotNil(t, reembedCmd)
	for _, flag := range reembedCmd.Flags {
		if f, ok := flag.(*cli.IntFlag); ok && f.Name == "batch-size" {
			assert.Equal(t, 100, f.Value)
		}
		if f, ok := flag.(*cli.DurationFlag); ok && f.Name == "retry-delay" {
			assert.Equal(t, defaultRetryDelay, f.Value)
		}
	}
}
