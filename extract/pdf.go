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

package extract

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ErrToolMissing indicates the external extraction command is not installed.
var ErrToolMissing = errors.New("extraction tool not installed")

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements CommandRunner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrToolMissing, name)
	}
	return exec.CommandContext(ctx, name, args...).Output()
}

// PDFLoader extracts text with pdftotext from poppler-utils.
type PDFLoader struct {
	runner CommandRunner
}

// NewPDFLoader creates a PDF loader using runner.
func NewPDFLoader(runner CommandRunner) *PDFLoader {
	return &PDFLoader{runner: runner}
}

// Load implements Loader. Pages are separated by form feeds in the output,
// which the splitter treats as ordinary whitespace.
func (l *PDFLoader) Load(ctx context.Context, path string) (string, error) {
	out, err := l.runner.Run(ctx, "pdftotext", "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext %s: %w", path, err)
	}
	return string(out), nil
}
