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

// Package generation answers chat requests by combining retrieval, prompt
// assembly and a language model.
package generation

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"slices"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/llm"
	"github.com/poiesic/docent/prompt"
)

var (
	// ErrRetrieverRequired is returned when a retriever is not provided.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrProvidersRequired is returned when a provider registry is not provided.
	ErrProvidersRequired = errors.New("provider registry required")
)

// Retriever finds the chunks of documentIDs relevant to question.
type Retriever interface {
	Retrieve(ctx context.Context, question string, documentIDs []string, limit int) ([]core.RetrievedChunk, error)
}

// Orchestrator runs the chat flow. It holds no per-request state and is
// safe for concurrent use.
type Orchestrator struct {
	retriever Retriever
	providers *llm.Registry
	limit     int
	refuse    bool
	logger    *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// WithRetrievalLimit sets how many chunks feed the prompt. Zero uses the
// retriever's default.
func WithRetrievalLimit(limit int) Option {
	return func(o *Orchestrator) error {
		o.limit = limit
		return nil
	}
}

// WithRefusalWithoutDocuments answers requests that name no documents with
// prompt.Refusal instead of calling a model.
func WithRefusalWithoutDocuments() Option {
	return func(o *Orchestrator) error {
		o.refuse = true
		return nil
	}
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(retriever Retriever, providers *llm.Registry, opts ...Option) (*Orchestrator, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if providers == nil {
		return nil, ErrProvidersRequired
	}
	o := &Orchestrator{
		retriever: retriever,
		providers: providers,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	o.logger = o.logger.With("component", "generation")
	return o, nil
}

// prepare validates req, selects the provider and builds the prompt. A nil
// provider with no error means the fixed refusal is the answer.
func (o *Orchestrator) prepare(ctx context.Context, req *core.ChatRequest) (llm.Provider, string, error) {
	if err := core.ValidateChatRequest(req); err != nil {
		return nil, "", err
	}
	provider, err := o.providers.Get(req.Provider)
	if err != nil {
		return nil, "", err
	}

	if len(req.DocumentIDs) == 0 && o.refuse {
		o.logger.Warn("no documents provided, replying with refusal")
		return nil, "", nil
	}

	var contextText string
	if len(req.DocumentIDs) > 0 {
		chunks, err := o.retriever.Retrieve(ctx, req.Question, slices.Clone(req.DocumentIDs), o.limit)
		if err != nil {
			return nil, "", err
		}
		if len(chunks) == 0 {
			o.logger.Warn("no chunks matched", "documents", len(req.DocumentIDs))
		} else {
			o.logger.Info("retrieved context", "chunks", len(chunks), "top_score", chunks[0].Score)
		}
		contextText = prompt.JoinContext(chunks)
	}
	return provider, prompt.Build(req.Question, contextText), nil
}

// Stream answers req as a sequence of fragments, forwarded in the order the
// provider yields them. Validation, provider selection and retrieval errors
// are returned before any fragment.
func (o *Orchestrator) Stream(ctx context.Context, req *core.ChatRequest) (iter.Seq2[string, error], error) {
	provider, text, err := o.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return refusal, nil
	}
	o.logger.Debug("streaming answer", "provider", provider.Name())
	return provider.Stream(ctx, text), nil
}

// Answer answers req in full. Providers without a native non-streaming call
// have their stream drained and concatenated.
func (o *Orchestrator) Answer(ctx context.Context, req *core.ChatRequest) (string, error) {
	provider, text, err := o.prepare(ctx, req)
	if err != nil {
		return "", err
	}
	if provider == nil {
		return prompt.Refusal, nil
	}
	return llm.Generate(ctx, provider, text)
}

// Reply is the result of Direct: Fragments when streaming, Text otherwise.
type Reply struct {
	Fragments iter.Seq2[string, error]
	Text      string
}

// Direct sends question to the provider as is, without retrieval or
// prompt templating.
func (o *Orchestrator) Direct(ctx context.Context, providerKey, question string, stream bool) (*Reply, error) {
	if err := core.ValidateChatRequest(&core.ChatRequest{Question: question}); err != nil {
		return nil, err
	}
	provider, err := o.providers.Get(providerKey)
	if err != nil {
		return nil, err
	}
	if stream {
		return &Reply{Fragments: provider.Stream(ctx, question)}, nil
	}
	text, err := llm.Generate(ctx, provider, question)
	if err != nil {
		return nil, err
	}
	return &Reply{Text: text}, nil
}

func refusal(yield func(string, error) bool) {
	yield(prompt.Refusal, nil)
}
