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

package llm

import (
	"context"
	"iter"
	"strings"
)

// Provider streams answers from a language model.
type Provider interface {
	// Name returns the registry key of the provider.
	Name() string

	// Stream sends prompt and yields answer fragments in order. The sequence
	// is single use. It ends after the first error, when ctx is cancelled, or
	// when the consumer stops iterating; in every case the upstream request
	// is released.
	Stream(ctx context.Context, prompt string) iter.Seq2[string, error]
}

// Generator is implemented by providers with a native non-streaming call.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Generate answers prompt in full, using the provider's Generator when it
// has one and draining Stream otherwise.
func Generate(ctx context.Context, p Provider, prompt string) (string, error) {
	if g, ok := p.(Generator); ok {
		return g.Generate(ctx, prompt)
	}
	return Collect(p.Stream(ctx, prompt))
}

// Collect concatenates every fragment of stream.
func Collect(stream iter.Seq2[string, error]) (string, error) {
	var sb strings.Builder
	for fragment, err := range stream {
		if err != nil {
			return "", err
		}
		sb.WriteString(fragment)
	}
	return sb.String(), nil
}
