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

// Package openrouter implements llm.Provider against the OpenRouter chat
// completions API.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/llm"
	"github.com/poiesic/docent/retry"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds a non-streaming request. Streaming requests are
// bounded only by their context.
const DefaultTimeout = 60 * time.Second

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("openrouter: status %d: %s", e.StatusCode, e.Body)
}

// Unwrap maps 429 to llm.ErrRateLimited and 5xx to core.ErrProviderUnavailable.
func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return llm.ErrRateLimited
	case e.StatusCode >= 500:
		return core.ErrProviderUnavailable
	}
	return nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Provider streams and generates answers through OpenRouter.
type Provider struct {
	config     llm.OpenRouterConfig
	maxRetries int
	baseDelay  time.Duration
	client     *http.Client
	stream     *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

var (
	_ llm.Provider  = (*Provider)(nil)
	_ llm.Generator = (*Provider)(nil)
)

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient replaces the HTTP client used for both request kinds.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.client = client
		p.stream = client
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates an OpenRouter provider. An empty API key is a configuration error.
func New(config *llm.Config, opts ...Option) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(config.OpenRouter.APIKey) == "" {
		return nil, fmt.Errorf("%w: OPENROUTER_API_KEY is not set", core.ErrConfiguration)
	}

	p := &Provider{
		config:     config.OpenRouter,
		maxRetries: config.MaxRetries,
		baseDelay:  config.RetryBaseDelay,
		client:     &http.Client{Timeout: DefaultTimeout},
		stream:     &http.Client{},
		logger:     slog.Default(),
	}
	if rps := config.OpenRouter.RPS; rps > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "llm", "provider", llm.ProviderOpenRouter)
	return p, nil
}

// Name implements llm.Provider.
func (p *Provider) Name() string { return llm.ProviderOpenRouter }

func (p *Provider) newRequest(ctx context.Context, prompt string, stream bool) (*http.Request, error) {
	body, err := json.Marshal(chatRequest{
		Model:    p.config.Model,
		Messages: []message{{Role: "user", Content: prompt}},
		Stream:   stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	req.Header.Set("HTTP-Referer", p.config.Referrer)
	req.Header.Set("X-Title", p.config.Title)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	return req, nil
}

// send performs one request and returns the response when the status is 2xx.
func (p *Provider) send(ctx context.Context, client *http.Client, prompt string, stream bool) (*http.Response, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := p.newRequest(ctx, prompt, stream)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: openrouter: %w", core.ErrProviderUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return resp, nil
}

// Generate implements llm.Generator. Rate limited attempts are retried
// with exponential backoff; any other failure is returned at once.
func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	var answer string
	attempt := 0
	err := retry.WithBackoff(ctx, func() error {
		attempt++
		text, err := p.generateOnce(ctx, prompt)
		if err == nil {
			answer = text
			return nil
		}
		if errors.Is(err, llm.ErrRateLimited) {
			p.logger.Warn("rate limited, backing off", "attempt", attempt, "max_attempts", p.maxRetries)
			return err
		}
		return retry.Permanent(err)
	}, p.maxRetries, p.baseDelay)
	if err != nil {
		p.logger.Error("generation failed", "attempts", attempt, "err", err)
		return "", err
	}
	return answer, nil
}

func (p *Provider) generateOnce(ctx context.Context, prompt string) (string, error) {
	resp, err := p.send(ctx, p.client, prompt, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: openrouter", llm.ErrEmptyResponse)
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// Stream implements llm.Provider. Frames that fail to decode are logged and
// skipped. The response body is closed when iteration ends for any reason.
func (p *Provider) Stream(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		resp, err := p.send(ctx, p.stream, prompt, true)
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		for data, err := range llm.Frames(resp.Body) {
			if err != nil {
				if ctx.Err() != nil {
					err = ctx.Err()
				}
				yield("", err)
				return
			}
			var chunk streamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				p.logger.Warn("skipping malformed stream frame", "err", err)
				continue
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			if !yield(chunk.Choices[0].Delta.Content, nil) {
				return
			}
		}
	}
}
