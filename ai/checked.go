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

package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/poiesic/docent/core"
)

// CheckedEmbedder enforces the Embedder contract on top of a backend:
// vectors must have the configured dimension, batches must return one
// vector per input, and backend failures surface as core.ErrProviderUnavailable.
type CheckedEmbedder struct {
	inner Embedder
}

var _ Embedder = (*CheckedEmbedder)(nil)

// NewCheckedEmbedder wraps inner.
func NewCheckedEmbedder(inner Embedder) Embedder {
	if c, ok := inner.(*CheckedEmbedder); ok {
		return c
	}
	return &CheckedEmbedder{inner: inner}
}

// EmbedText implements Embedder.
func (c *CheckedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vector, err := c.inner.EmbedText(ctx, text)
	if err != nil {
		return nil, c.wrap(err)
	}
	if err := c.check(vector); err != nil {
		return nil, err
	}
	return vector, nil
}

// EmbedTexts implements Embedder.
func (c *CheckedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := c.inner.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, c.wrap(err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: %s returned %d vectors for %d inputs",
			core.ErrProviderUnavailable, c.inner.Model(), len(vectors), len(texts))
	}
	for _, v := range vectors {
		if err := c.check(v); err != nil {
			return nil, err
		}
	}
	return vectors, nil
}

// Model implements Embedder.
func (c *CheckedEmbedder) Model() string { return c.inner.Model() }

// Dimension implements Embedder.
func (c *CheckedEmbedder) Dimension() int { return c.inner.Dimension() }

func (c *CheckedEmbedder) check(vector []float32) error {
	if len(vector) != c.inner.Dimension() {
		return fmt.Errorf("%w: model %s returned %d values, configured %d",
			core.ErrDimensionMismatch, c.inner.Model(), len(vector), c.inner.Dimension())
	}
	return nil
}

func (c *CheckedEmbedder) wrap(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, core.ErrProviderUnavailable), errors.Is(err, core.ErrDimensionMismatch):
		return err
	}
	return fmt.Errorf("%w: %w", core.ErrProviderUnavailable, err)
}
