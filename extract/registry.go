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
	"maps"
	"path/filepath"
	"slices"
	"strings"
)

var (
	// ErrUnsupportedType indicates no loader handles the file.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrInvalidContent indicates the file could not be parsed as its type.
	ErrInvalidContent = errors.New("invalid file content")
)

// Loader extracts the text of one file.
type Loader interface {
	Load(ctx context.Context, path string) (string, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, path string) (string, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// Registry selects a Loader by file extension. It is safe for concurrent
// use once built.
type Registry struct {
	loaders  map[string]Loader
	fallback Loader
}

// Option configures a Registry.
type Option func(*Registry)

// WithLoader registers loader for ext, replacing any existing loader.
func WithLoader(ext string, loader Loader) Option {
	return func(r *Registry) {
		r.loaders[normalizeExt(ext)] = loader
	}
}

// WithCommandRunner routes PDF extraction through runner.
func WithCommandRunner(runner CommandRunner) Option {
	return func(r *Registry) {
		r.loaders[".pdf"] = NewPDFLoader(runner)
	}
}

// WithoutFallback rejects unregistered extensions instead of reading them
// as text.
func WithoutFallback() Option {
	return func(r *Registry) {
		r.fallback = nil
	}
}

// NewRegistry returns a registry with the default loaders.
func NewRegistry(opts ...Option) *Registry {
	text := TextLoader{}
	r := &Registry{
		loaders: map[string]Loader{
			".txt":  text,
			".md":   text,
			".csv":  CSVLoader{},
			".docx": DOCXLoader{},
			".pdf":  NewPDFLoader(ExecRunner{}),
		},
		fallback: text,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Extract returns the text of the file at path.
func (r *Registry) Extract(ctx context.Context, path string) (string, error) {
	ext := normalizeExt(filepath.Ext(path))
	loader, ok := r.loaders[ext]
	if !ok {
		if r.fallback == nil {
			return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
		}
		loader = r.fallback
	}
	return loader.Load(ctx, path)
}

// Extensions lists the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	return slices.Sorted(maps.Keys(r.loaders))
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
