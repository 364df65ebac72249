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
	"errors"
	"iter"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/docent/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type stubProvider struct {
	name      string
	fragments []string
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Stream(_ context.Context, _ string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, f := range s.fragments {
			if !yield(f, nil) {
				return
			}
		}
	}
}

type stubGenerator struct {
	stubProvider
	answer string
}

func (s *stubGenerator) Generate(context.Context, string) (string, error) { return s.answer, nil }

// fakeModel is a langchaingo model that streams canned chunks.
type fakeModel struct {
	chunks []string
	err    error
}

func (f *fakeModel) GenerateContent(ctx context.Context, _ []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, o := range options {
		o(&opts)
	}
	if f.err != nil {
		return nil, f.err
	}
	if opts.StreamingFunc != nil {
		for _, c := range f.chunks {
			if err := opts.StreamingFunc(ctx, []byte(c)); err != nil {
				return nil, err
			}
		}
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: strings.Join(f.chunks, "")}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestConfig_Defaults(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, ProviderOpenRouter, c.Default)
	assert.Equal(t, DefaultMaxRetries, c.MaxRetries)
	assert.Equal(t, DefaultRetryBaseDelay, c.RetryBaseDelay)
	assert.Equal(t, DefaultOpenRouterModel, c.OpenRouter.Model)
	assert.Equal(t, DefaultOllamaModel, c.Ollama.Model)
	assert.Equal(t, DefaultGeminiModel, c.Gemini.Model)
	assert.NoError(t, c.Validate())
}

func TestConfig_Options(t *testing.T) {
	c := NewConfig(
		WithDefault(" Gemini "),
		WithRetry(3, 10*time.Millisecond),
		WithOpenRouter(OpenRouterConfig{BaseURL: "http://example.test/v1/", APIKey: "k"}),
		WithGemini(GeminiConfig{APIKeys: []string{"a", "", " ", "b"}}),
	)
	assert.Equal(t, ProviderGemini, c.Default)
	assert.Equal(t, 3, c.MaxRetries)
	assert.Equal(t, "http://example.test/v1", c.OpenRouter.BaseURL)
	assert.Equal(t, []string{"a", "b"}, c.Gemini.APIKeys)
	assert.NoError(t, c.Validate())
}

func TestConfig_Validate(t *testing.T) {
	c := NewConfig(WithDefault("claude"))
	assert.ErrorIs(t, c.Validate(), core.ErrUnknownProvider)

	c = NewConfig(WithRetry(-1, time.Second))
	assert.ErrorIs(t, c.Validate(), core.ErrConfiguration)

	c = NewConfig(WithOpenRouter(OpenRouterConfig{RPS: -2}))
	assert.ErrorIs(t, c.Validate(), core.ErrConfiguration)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry("openrouter")
	r.Register(&stubProvider{name: "openrouter"})
	r.Register(&stubProvider{name: "ollama"})
	r.MarkUnavailable("gemini", errors.New("no key"))

	p, err := r.Get("")
	require.NoError(t, err)
	assert.Equal(t, "openrouter", p.Name())

	p, err = r.Get(" OLLAMA ")
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	_, err = r.Get("gemini")
	assert.ErrorIs(t, err, core.ErrUnknownProvider)
	assert.Contains(t, err.Error(), "no key")

	_, err = r.Get("claude")
	assert.ErrorIs(t, err, core.ErrUnknownProvider)

	assert.Equal(t, []string{"ollama", "openrouter"}, r.Names())
	assert.Equal(t, map[string]string{"gemini": "no key"}, r.Unavailable())
	assert.NoError(t, r.Validate())
}

func TestRegistry_ValidateMissingDefault(t *testing.T) {
	r := NewRegistry("gemini")
	r.Register(&stubProvider{name: "ollama"})

	err := r.Validate()
	assert.ErrorIs(t, err, core.ErrConfiguration)
	assert.ErrorIs(t, err, ErrNoDefaultProvider)
}

func TestGenerate_PrefersGenerator(t *testing.T) {
	g := &stubGenerator{stubProvider: stubProvider{name: "g", fragments: []string{"x"}}, answer: "full answer"}
	answer, err := Generate(context.Background(), g, "q")
	require.NoError(t, err)
	assert.Equal(t, "full answer", answer)
}

func TestGenerate_DrainsStream(t *testing.T) {
	p := &stubProvider{name: "s", fragments: []string{"The ", "cat ", "sat."}}
	answer, err := Generate(context.Background(), p, "q")
	require.NoError(t, err)
	assert.Equal(t, "The cat sat.", answer)
}

func TestCollect_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	stream := func(yield func(string, error) bool) {
		if !yield("partial", nil) {
			return
		}
		yield("", boom)
	}
	_, err := Collect(stream)
	assert.ErrorIs(t, err, boom)
}

func TestFrames(t *testing.T) {
	input := strings.Join([]string{
		": keep-alive",
		"event: message",
		`data: {"a":1}`,
		"",
		"data:{\"a\":2}",
		"data: ",
		"data: [DONE]",
		`data: {"a":3}`,
	}, "\n")

	var got []string
	for data, err := range Frames(strings.NewReader(input)) {
		require.NoError(t, err)
		got = append(got, data)
	}
	assert.Equal(t, []string{`{"a":1}`, `{"a":2}`}, got)
}

func TestFrames_EarlyBreak(t *testing.T) {
	input := "data: one\ndata: two\ndata: three\n"
	var got []string
	for data := range Frames(strings.NewReader(input)) {
		got = append(got, data)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"one", "two"}, got)
}

func TestFromCallback_Order(t *testing.T) {
	stream := FromCallback(context.Background(), func(_ context.Context, emit func(string) error) error {
		for _, f := range []string{"The ", "cat ", "sat."} {
			if err := emit(f); err != nil {
				return err
			}
		}
		return nil
	})

	var got []string
	for f, err := range stream {
		require.NoError(t, err)
		got = append(got, f)
	}
	assert.Equal(t, []string{"The ", "cat ", "sat."}, got)
}

func TestFromCallback_ErrorIsLast(t *testing.T) {
	boom := errors.New("boom")
	stream := FromCallback(context.Background(), func(_ context.Context, emit func(string) error) error {
		_ = emit("a")
		return boom
	})

	var fragments []string
	var gotErr error
	for f, err := range stream {
		if err != nil {
			gotErr = err
			break
		}
		fragments = append(fragments, f)
	}
	assert.Equal(t, []string{"a"}, fragments)
	assert.ErrorIs(t, gotErr, boom)
}

func TestFromCallback_ConsumerBreakStopsProducer(t *testing.T) {
	stopped := make(chan error, 1)
	stream := FromCallback(context.Background(), func(_ context.Context, emit func(string) error) error {
		for {
			if err := emit("x"); err != nil {
				stopped <- err
				return err
			}
		}
	})

	count := 0
	for range stream {
		count++
		if count == 3 {
			break
		}
	}
	select {
	case err := <-stopped:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("producer did not stop")
	}
}

func TestModelProvider_Stream(t *testing.T) {
	p := NewModelProvider("ollama", &fakeModel{chunks: []string{"The ", "", "cat ", "sat."}}, nil)
	assert.Equal(t, "ollama", p.Name())

	var got []string
	for f, err := range p.Stream(context.Background(), "q") {
		require.NoError(t, err)
		got = append(got, f)
	}
	assert.Equal(t, []string{"The ", "cat ", "sat."}, got)
}

func TestModelProvider_Generate(t *testing.T) {
	p := NewModelProvider("ollama", &fakeModel{chunks: []string{"The ", "cat ", "sat."}}, nil)
	answer, err := p.Generate(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "The cat sat.", answer)
}

func TestModelProvider_ErrorsAreProviderUnavailable(t *testing.T) {
	p := NewModelProvider("gemini", &fakeModel{err: errors.New("connection refused")}, nil)

	_, err := p.Generate(context.Background(), "q")
	assert.ErrorIs(t, err, core.ErrProviderUnavailable)

	_, err = Collect(p.Stream(context.Background(), "q"))
	assert.ErrorIs(t, err, core.ErrProviderUnavailable)
}
