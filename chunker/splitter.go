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

// Package chunker splits extracted document text into overlapping chunks.
//
// The splitter tries separators from coarsest to finest (paragraph, line,
// sentence, word, character) so chunk boundaries land on natural breaks
// whenever the text allows it. Lengths are counted in runes.
package chunker

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/poiesic/docent/core"
)

const (
	// DefaultChunkSize is the maximum chunk length in characters.
	DefaultChunkSize = 1000

	// DefaultOverlap is the number of characters shared by adjacent chunks.
	DefaultOverlap = 100
)

// DefaultSeparators lists the split points from coarsest to finest.
// The empty separator splits between characters.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter is a recursive separator splitter. It is immutable after
// construction and safe for concurrent use.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
	inner      textsplitter.RecursiveCharacter
}

// Option configures a Splitter.
type Option func(*Splitter) error

// WithSeparators replaces the separator hierarchy. The list must end with
// the empty separator so that any text can be reduced to the chunk size.
func WithSeparators(separators ...string) Option {
	return func(s *Splitter) error {
		if len(separators) == 0 || separators[len(separators)-1] != "" {
			return fmt.Errorf("%w: separators must end with the empty separator", core.ErrConfiguration)
		}
		s.separators = separators
		return nil
	}
}

// New returns a Splitter producing chunks of at most chunkSize characters
// with overlap characters of shared context.
func New(chunkSize, overlap int, opts ...Option) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", core.ErrConfiguration, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap must be >= 0 and < chunk size, got %d", core.ErrConfiguration, overlap)
	}
	s := &Splitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: DefaultSeparators,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.inner = textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(s.chunkSize),
		textsplitter.WithChunkOverlap(s.overlap),
		textsplitter.WithSeparators(s.separators),
		textsplitter.WithKeepSeparator(true),
	)
	return s, nil
}

// ChunkSize returns the configured maximum chunk length.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// Split divides text into ordered chunks. Blank text yields no chunks and
// text no longer than the chunk size yields exactly one.
func (s *Splitter) Split(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	pieces, err := s.inner.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("splitting text: %w", err)
	}
	chunks := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		if piece = strings.TrimSpace(piece); piece != "" {
			chunks = append(chunks, piece)
		}
	}
	return chunks, nil
}
